package preprocessing

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"safepath-route-server/routing"
)

// SnapshotVersion is bumped whenever EdgeRecord changes shape.
const SnapshotVersion = 1

// SnapshotHeader precedes the records in a gob snapshot file.
type SnapshotHeader struct {
	Version int
	Created time.Time
	Source  string
	Count   int
}

// WriteSnapshot gob-encodes records to path, writing through a temp file so
// readers never observe a partial snapshot.
func WriteSnapshot(path, source string, records []routing.EdgeRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := EncodeSnapshot(w, source, records); err != nil {
		tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

func EncodeSnapshot(w io.Writer, source string, records []routing.EdgeRecord) error {
	enc := gob.NewEncoder(w)
	hdr := SnapshotHeader{Version: SnapshotVersion, Created: time.Now().UTC(), Source: source, Count: len(records)}
	if err := enc.Encode(hdr); err != nil {
		return fmt.Errorf("encode snapshot header: %w", err)
	}
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode snapshot records: %w", err)
	}
	return nil
}

// ReadSnapshot loads a snapshot written by WriteSnapshot.
func ReadSnapshot(path string) (SnapshotHeader, []routing.EdgeRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return SnapshotHeader{}, nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return DecodeSnapshot(bufio.NewReader(f))
}

func DecodeSnapshot(r io.Reader) (SnapshotHeader, []routing.EdgeRecord, error) {
	dec := gob.NewDecoder(r)
	var hdr SnapshotHeader
	if err := dec.Decode(&hdr); err != nil {
		return hdr, nil, fmt.Errorf("decode snapshot header: %w", err)
	}
	if hdr.Version != SnapshotVersion {
		return hdr, nil, fmt.Errorf("snapshot version %d, want %d", hdr.Version, SnapshotVersion)
	}
	var records []routing.EdgeRecord
	if err := dec.Decode(&records); err != nil {
		return hdr, nil, fmt.Errorf("decode snapshot records: %w", err)
	}
	if len(records) != hdr.Count {
		return hdr, nil, fmt.Errorf("snapshot holds %d records, header says %d", len(records), hdr.Count)
	}
	return hdr, records, nil
}

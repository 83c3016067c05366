package preprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"safepath-route-server/routing"
)

// Source yields the upstream edge list.
type Source interface {
	Load(ctx context.Context) ([]routing.EdgeRecord, LoadStats, error)
	String() string
}

// FileSource loads a unified CSV or, for *.gob paths, a gob snapshot.
type FileSource struct {
	Path string
	CSV  CSVOptions
}

func (s FileSource) String() string { return s.Path }

func (s FileSource) Load(context.Context) ([]routing.EdgeRecord, LoadStats, error) {
	if strings.EqualFold(filepath.Ext(s.Path), ".gob") {
		_, records, err := ReadSnapshot(s.Path)
		if err != nil {
			return nil, LoadStats{}, err
		}
		return records, LoadStats{Rows: len(records), Loaded: len(records)}, nil
	}
	return LoadCSV(s.Path, s.CSV)
}

func (s *PostgresSource) String() string { return "postgres:" + s.table }

// BuildSnapshot loads src and builds a new routing snapshot from it.
func BuildSnapshot(ctx context.Context, src Source, logger *slog.Logger, opts ...routing.BuildOption) (*routing.Snapshot, error) {
	start := time.Now()
	records, stats, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src, err)
	}
	g, err := routing.Build(records, opts...)
	if err != nil {
		return nil, fmt.Errorf("build graph from %s: %w", src, err)
	}
	snap := routing.NewSnapshot(g, src.String())
	logger.Info("graph snapshot built",
		"source", src.String(),
		"snapshot", snap.ID,
		"rows", stats.Rows,
		"skipped", stats.Skipped,
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"took", time.Since(start),
	)
	return snap, nil
}

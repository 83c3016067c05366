package routing

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Snapshot is one immutable generation of the serving graph.
type Snapshot struct {
	ID      string
	BuiltAt time.Time
	Source  string
	Graph   *Graph
	Costs   *CompositeCost
}

func NewSnapshot(g *Graph, source string) *Snapshot {
	return &Snapshot{
		ID:      uuid.NewString(),
		BuiltAt: time.Now().UTC(),
		Source:  source,
		Graph:   g,
		Costs:   g.Costs(),
	}
}

// SnapshotStore publishes snapshots copy-on-write. Queries load the current
// pointer once and keep using it even if a newer snapshot is swapped in.
type SnapshotStore struct {
	current atomic.Pointer[Snapshot]
}

func NewSnapshotStore(initial *Snapshot) *SnapshotStore {
	s := &SnapshotStore{}
	if initial != nil {
		s.current.Store(initial)
	}
	return s
}

// Current returns the serving snapshot, or nil before the first Swap.
func (s *SnapshotStore) Current() *Snapshot { return s.current.Load() }

// Swap publishes next and returns the snapshot it replaced.
func (s *SnapshotStore) Swap(next *Snapshot) *Snapshot { return s.current.Swap(next) }

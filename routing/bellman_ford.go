package routing

import (
	"fmt"
	"math"
	"time"
)

// BellmanFordSearch tolerates negative weights and reports a negative cycle
// reachable from the origin instead of returning a path.
type BellmanFordSearch struct{}

func (BellmanFordSearch) Name() Algorithm { return BellmanFord }

func (BellmanFordSearch) Search(g *Graph, cost CostModel, p Profile, origin, dest int64) (*SearchResult, error) {
	start := time.Now()
	if err := validateQuery(g, p, origin, dest); err != nil {
		return nil, err
	}

	n := g.NodeCount()
	dist := newDistances(n)
	prev := newPredecessors(n)
	dist[origin] = 0

	// nodesExplored counts node scans: one per reached node per pass.
	explored := 0
	for pass := 0; pass < n-1; pass++ {
		changed := false
		for u := 0; u < n; u++ {
			if math.IsInf(dist[u], 1) {
				continue
			}
			explored++
			for _, edge := range g.Neighbors(int64(u)) {
				if d := dist[u] + cost.Weight(edge, p); d < dist[edge.ToID] {
					dist[edge.ToID] = d
					prev[edge.ToID] = int64(u)
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}

	for u := 0; u < n; u++ {
		if math.IsInf(dist[u], 1) {
			continue
		}
		for _, edge := range g.Neighbors(int64(u)) {
			if dist[u]+cost.Weight(edge, p) < dist[edge.ToID] {
				return nil, fmt.Errorf("%w: edge %d -> %d still relaxes after %d passes",
					ErrNegativeCycleDetected, edge.FromID, edge.ToID, n-1)
			}
		}
	}

	if origin == dest {
		res := trivialResult(origin, start)
		res.NodesExplored = max(explored, 1)
		return res, nil
	}
	if math.IsInf(dist[dest], 1) {
		return nil, noPath(origin, dest)
	}
	path := tracePath(prev, origin, dest)
	if path == nil {
		return nil, fmt.Errorf("predecessor chain from %d to %d is broken", dest, origin)
	}
	return &SearchResult{
		Path:          path,
		Cost:          dist[dest],
		NodesExplored: explored,
		Elapsed:       time.Since(start),
	}, nil
}

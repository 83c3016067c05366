package routing

import (
	"fmt"
	"math"
	"time"
)

// GreedySearch always takes the cheapest edge to an unvisited node, breaking
// ties by straight-line distance to the destination. It never backtracks, so
// it is fast but neither optimal nor complete.
type GreedySearch struct{}

func (GreedySearch) Name() Algorithm { return Greedy }

func (GreedySearch) Search(g *Graph, cost CostModel, p Profile, origin, dest int64) (*SearchResult, error) {
	start := time.Now()
	if err := validateQuery(g, p, origin, dest); err != nil {
		return nil, err
	}

	visited := make([]bool, g.NodeCount())
	visited[origin] = true
	path := []int64{origin}
	total := 0.0

	for current := origin; current != dest; {
		var next *Edge
		bestW, bestD := math.Inf(1), math.Inf(1)
		for _, edge := range g.Neighbors(current) {
			if visited[edge.ToID] {
				continue
			}
			w := cost.Weight(edge, p)
			if w < 0 {
				return nil, negativeWeight(Greedy, edge, w)
			}
			d := g.Distance(edge.ToID, dest)
			if w < bestW || (w == bestW && d < bestD) {
				next, bestW, bestD = edge, w, d
			}
		}
		if next == nil {
			return nil, fmt.Errorf("%w: node %d has no unvisited successor after %d steps", ErrDeadEnd, current, len(path)-1)
		}
		visited[next.ToID] = true
		path = append(path, next.ToID)
		total += bestW
		current = next.ToID
	}

	return &SearchResult{
		Path:          path,
		Cost:          total,
		NodesExplored: len(path),
		Elapsed:       time.Since(start),
	}, nil
}

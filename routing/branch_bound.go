package routing

import (
	"math"
	"time"
)

// BranchAndBoundSearch expands partial paths best-first on cost plus the A*
// bound. A partial path is dropped when another one reached the same node
// cheaper, or when its bound cannot beat the incumbent.
type BranchAndBoundSearch struct {
	Budget Budget
}

func (BranchAndBoundSearch) Name() Algorithm { return BranchAndBound }

type bnbLabel struct {
	node   int64
	parent int
	cost   float64
}

func (b BranchAndBoundSearch) Search(g *Graph, cost CostModel, p Profile, origin, dest int64) (*SearchResult, error) {
	start := time.Now()
	if err := validateQuery(g, p, origin, dest); err != nil {
		return nil, err
	}
	if origin == dest {
		return trivialResult(origin, start), nil
	}

	h := newHeuristic(g, cost, p, dest)
	bestG := newDistances(g.NodeCount())
	bestG[origin] = 0
	labels := []bnbLabel{{node: origin, parent: -1}}

	openSet := &PriorityQueue{}
	openSet.push(origin, h.estimate(origin), 0, 0)

	best := math.Inf(1)
	bestLabel := -1
	steps, explored := 0, 0

	result := func() *SearchResult {
		if bestLabel < 0 {
			return nil
		}
		var path []int64
		for i := bestLabel; i >= 0; i = labels[i].parent {
			path = append(path, labels[i].node)
		}
		for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
			path[i], path[j] = path[j], path[i]
		}
		return &SearchResult{Path: path, Cost: best, NodesExplored: explored, Elapsed: time.Since(start)}
	}

	for openSet.Len() > 0 && openSet.peek().Priority < best {
		item := openSet.pop()
		l := labels[item.Label]
		if l.cost > bestG[l.node] {
			continue
		}

		steps++
		if limit, over := b.Budget.exceeded(steps, start); over {
			return nil, &BudgetError{Algorithm: BranchAndBound, Steps: steps, Limit: limit, Best: result()}
		}
		explored++

		if l.node == dest {
			if l.cost < best {
				best, bestLabel = l.cost, item.Label
			}
			continue
		}

		for _, edge := range g.Neighbors(l.node) {
			w := cost.Weight(edge, p)
			if w < 0 {
				return nil, negativeWeight(BranchAndBound, edge, w)
			}
			v := edge.ToID
			next := l.cost + w
			if next >= bestG[v] {
				continue
			}
			bound := next + h.estimate(v)
			if bound >= best {
				continue
			}
			bestG[v] = next
			labels = append(labels, bnbLabel{node: v, parent: item.Label, cost: next})
			openSet.push(v, bound, next, len(labels)-1)
		}
	}

	if bestLabel < 0 {
		return nil, noPath(origin, dest)
	}
	return result(), nil
}

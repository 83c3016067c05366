package routing

import (
	"math"
	"sort"
	"time"
)

// BacktrackingSearch enumerates simple paths depth-first, cheapest successor
// first, pruning any partial path that already costs as much as the best
// complete one. The explicit stack keeps deep graphs off the goroutine stack.
type BacktrackingSearch struct {
	Budget Budget
}

func (BacktrackingSearch) Name() Algorithm { return Backtracking }

type weightedEdge struct {
	edge   *Edge
	weight float64
}

type dfsFrame struct {
	node  int64
	cost  float64
	edges []weightedEdge
	next  int
}

func sortedSuccessors(g *Graph, cost CostModel, p Profile, alg Algorithm, node int64) ([]weightedEdge, error) {
	neighbors := g.Neighbors(node)
	out := make([]weightedEdge, 0, len(neighbors))
	for _, e := range neighbors {
		w := cost.Weight(e, p)
		if w < 0 {
			return nil, negativeWeight(alg, e, w)
		}
		out = append(out, weightedEdge{edge: e, weight: w})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].weight < out[j].weight })
	return out, nil
}

func (b BacktrackingSearch) Search(g *Graph, cost CostModel, p Profile, origin, dest int64) (*SearchResult, error) {
	start := time.Now()
	if err := validateQuery(g, p, origin, dest); err != nil {
		return nil, err
	}
	if origin == dest {
		return trivialResult(origin, start), nil
	}

	successors, err := sortedSuccessors(g, cost, p, Backtracking, origin)
	if err != nil {
		return nil, err
	}
	onPath := make([]bool, g.NodeCount())
	onPath[origin] = true
	stack := []dfsFrame{{node: origin, edges: successors}}

	best := math.Inf(1)
	var bestPath []int64
	steps, explored := 0, 1

	result := func() *SearchResult {
		if bestPath == nil {
			return nil
		}
		return &SearchResult{Path: bestPath, Cost: best, NodesExplored: explored, Elapsed: time.Since(start)}
	}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next >= len(top.edges) {
			onPath[top.node] = false
			stack = stack[:len(stack)-1]
			continue
		}
		candidate := top.edges[top.next]
		top.next++

		steps++
		if limit, over := b.Budget.exceeded(steps, start); over {
			return nil, &BudgetError{Algorithm: Backtracking, Steps: steps, Limit: limit, Best: result()}
		}

		v := candidate.edge.ToID
		if onPath[v] {
			continue
		}
		total := top.cost + candidate.weight
		if total >= best {
			// Successors are sorted, so every remaining sibling is at least as costly.
			top.next = len(top.edges)
			continue
		}
		if v == dest {
			best = total
			bestPath = make([]int64, 0, len(stack)+1)
			for _, f := range stack {
				bestPath = append(bestPath, f.node)
			}
			bestPath = append(bestPath, v)
			continue
		}

		successors, err := sortedSuccessors(g, cost, p, Backtracking, v)
		if err != nil {
			return nil, err
		}
		explored++
		onPath[v] = true
		stack = append(stack, dfsFrame{node: v, cost: total, edges: successors})
	}

	if bestPath == nil {
		return nil, noPath(origin, dest)
	}
	return result(), nil
}

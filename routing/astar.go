package routing

import "time"

// AStarSearch is Dijkstra guided by a haversine heuristic scaled to the cost
// model. The heuristic is consistent, so the first pop of the destination is
// optimal and closed nodes are never reopened.
type AStarSearch struct{}

func (AStarSearch) Name() Algorithm { return AStar }

func (AStarSearch) Search(g *Graph, cost CostModel, p Profile, origin, dest int64) (*SearchResult, error) {
	start := time.Now()
	if err := validateQuery(g, p, origin, dest); err != nil {
		return nil, err
	}
	if origin == dest {
		return trivialResult(origin, start), nil
	}

	h := newHeuristic(g, cost, p, dest)
	n := g.NodeCount()
	gScore := newDistances(n)
	previous := newPredecessors(n)
	closed := make([]bool, n)

	openSet := &PriorityQueue{}
	gScore[origin] = 0
	openSet.push(origin, h.estimate(origin), 0, -1)

	explored := 0
	for openSet.Len() > 0 {
		current := openSet.pop()
		u := current.NodeID
		if closed[u] {
			continue
		}
		closed[u] = true
		explored++

		if u == dest {
			return &SearchResult{
				Path:          tracePath(previous, origin, dest),
				Cost:          gScore[dest],
				NodesExplored: explored,
				Elapsed:       time.Since(start),
			}, nil
		}

		for _, edge := range g.Neighbors(u) {
			v := edge.ToID
			if closed[v] {
				continue
			}
			w := cost.Weight(edge, p)
			if w < 0 {
				return nil, negativeWeight(AStar, edge, w)
			}
			if tentative := gScore[u] + w; tentative < gScore[v] {
				gScore[v] = tentative
				previous[v] = u
				openSet.push(v, tentative+h.estimate(v), tentative, -1)
			}
		}
	}
	return nil, noPath(origin, dest)
}

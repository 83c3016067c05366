package routing

import "time"

// DijkstraSearch is the label-setting shortest path search with a binary
// heap frontier. It is optimal for non-negative weights.
type DijkstraSearch struct{}

func (DijkstraSearch) Name() Algorithm { return Dijkstra }

func (DijkstraSearch) Search(g *Graph, cost CostModel, p Profile, origin, dest int64) (*SearchResult, error) {
	start := time.Now()
	if err := validateQuery(g, p, origin, dest); err != nil {
		return nil, err
	}
	if origin == dest {
		return trivialResult(origin, start), nil
	}
	res, err := shortestPath(g, cost, p, origin, dest, nil)
	if err != nil {
		return nil, err
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

// exclusion removes nodes and edges from a search. Yen's spur searches use it.
type exclusion struct {
	nodes map[int64]bool
	edges map[edgeKey]bool
}

func newExclusion() *exclusion {
	return &exclusion{nodes: make(map[int64]bool), edges: make(map[edgeKey]bool)}
}

func (x *exclusion) blocks(e *Edge) bool {
	if x == nil {
		return false
	}
	return x.nodes[e.ToID] || x.edges[edgeKey{e.FromID, e.ToID}]
}

func shortestPath(g *Graph, cost CostModel, p Profile, origin, dest int64, skip *exclusion) (*SearchResult, error) {
	start := time.Now()
	n := g.NodeCount()
	dist := newDistances(n)
	prev := newPredecessors(n)
	settled := make([]bool, n)

	openSet := &PriorityQueue{}
	dist[origin] = 0
	openSet.push(origin, 0, 0, -1)

	explored := 0
	for openSet.Len() > 0 {
		current := openSet.pop()
		u := current.NodeID
		if settled[u] {
			continue
		}
		settled[u] = true
		explored++

		if u == dest {
			return &SearchResult{
				Path:          tracePath(prev, origin, dest),
				Cost:          dist[u],
				NodesExplored: explored,
				Elapsed:       time.Since(start),
			}, nil
		}

		for _, edge := range g.Neighbors(u) {
			v := edge.ToID
			if settled[v] || skip.blocks(edge) {
				continue
			}
			w := cost.Weight(edge, p)
			if w < 0 {
				return nil, negativeWeight(Dijkstra, edge, w)
			}
			if tentative := dist[u] + w; tentative < dist[v] {
				dist[v] = tentative
				prev[v] = u
				openSet.push(v, tentative, tentative, -1)
			}
		}
	}
	return nil, noPath(origin, dest)
}

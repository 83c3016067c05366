package routing

import (
	"github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

func haversine(a, b orb.Point) float64 { return geo.DistanceHaversine(a, b) }

type nodePair struct{ a, b int64 }

// distanceCache memoizes node-to-node haversine distances. The underlying
// LRU is synchronized, so one cache is shared by every query on a snapshot.
type distanceCache struct {
	lru *lru.Cache[nodePair, float64]
}

func newDistanceCache(size int) *distanceCache {
	if size <= 0 {
		return &distanceCache{}
	}
	c, err := lru.New[nodePair, float64](size)
	if err != nil {
		return &distanceCache{}
	}
	return &distanceCache{lru: c}
}

// Distance returns the great-circle distance in meters between two nodes.
func (g *Graph) Distance(a, b int64) float64 {
	if a > b {
		a, b = b, a
	}
	key := nodePair{a, b}
	if g.distances != nil && g.distances.lru != nil {
		if d, ok := g.distances.lru.Get(key); ok {
			return d
		}
	}
	d := haversine(g.nodes[a].Point(), g.nodes[b].Point())
	if g.distances != nil && g.distances.lru != nil {
		g.distances.lru.Add(key, d)
	}
	return d
}

// heuristic estimates the remaining cost to dest as straight-line distance
// times the cost model's per-meter lower bound.
type heuristic struct {
	g     *Graph
	dest  int64
	scale float64
}

func newHeuristic(g *Graph, cost CostModel, p Profile, dest int64) heuristic {
	scale := cost.CostPerMeter(p)
	if !(scale > 0) {
		scale = 0
	}
	return heuristic{g: g, dest: dest, scale: scale}
}

func (h heuristic) estimate(n int64) float64 {
	if h.scale == 0 || n == h.dest {
		return 0
	}
	return h.g.Distance(n, h.dest) * h.scale
}

package routing

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/quadtree"
)

func (g *Graph) buildIndex() error {
	g.bound = orb.Bound{Min: g.nodes[0].Point(), Max: g.nodes[0].Point()}
	for _, n := range g.nodes[1:] {
		g.bound = g.bound.Extend(n.Point())
	}
	g.index = quadtree.New(g.bound)
	for _, n := range g.nodes {
		if err := g.index.Add(n); err != nil {
			return fmt.Errorf("index node %d: %w", n.ID, err)
		}
	}
	return nil
}

// NearestNode resolves c to the closest node by haversine distance. A
// positive radiusM bounds the accepted distance; beyond it ErrNodeNotFound
// is returned.
//
// Degrees of longitude shrink away from the equator, so the planar nearest
// node only bounds the answer: every node inside a ground circle of that
// distance (or radiusM, if smaller) is re-ranked.
func (g *Graph) NearestNode(c Coordinate, radiusM float64) (*Node, error) {
	if g.index == nil {
		return nil, fmt.Errorf("%w: graph has no nodes", ErrNodeNotFound)
	}
	p := c.Point()
	first := g.index.Find(p)
	if first == nil {
		return nil, fmt.Errorf("%w: graph has no nodes", ErrNodeNotFound)
	}
	best := first.(*Node)
	bestD := haversine(p, best.Point())

	search := bestD
	if radiusM > 0 {
		search = math.Min(search, radiusM)
	}
	if search > 0 {
		bound := geo.NewBoundAroundPoint(p, search).Pad(1e-9)
		for _, found := range g.index.InBound(nil, bound) {
			n := found.(*Node)
			d := haversine(p, n.Point())
			if d < bestD || (d == bestD && n.ID < best.ID) {
				best, bestD = n, d
			}
		}
	}
	if radiusM > 0 && bestD > radiusM {
		return nil, fmt.Errorf("%w: nearest node to %s is %.1fm away (radius %.1fm)", ErrNodeNotFound, c, bestD, radiusM)
	}
	return best, nil
}

package routing

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"
)

// Coordinate is a WGS84 position in degrees.
type Coordinate struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

func (c Coordinate) Point() orb.Point { return orb.Point{c.Lon, c.Lat} }

func (c Coordinate) String() string { return fmt.Sprintf("(%.7f, %.7f)", c.Lon, c.Lat) }

// Node represents an intersection. IDs are dense, starting at 0, assigned in
// the order coordinates are first seen while building.
type Node struct {
	ID    int64      // Unique identifier for the node
	Coord Coordinate // Geographic position
}

// Point lets nodes live in the orb quadtree.
func (n *Node) Point() orb.Point { return n.Coord.Point() }

// EdgeRecord is one row of the upstream, already attributed edge list.
type EdgeRecord struct {
	Name              string
	LengthM           float64
	OneWay            bool
	Geometry          orb.LineString
	HarassmentRisk    float64
	CamerasCount      int
	IncidentsCount    int
	IncidentsSeverity float64
	Origin            Coordinate
	Destination       Coordinate
}

// Validate checks the attribute ranges Build relies on.
func (r EdgeRecord) Validate() error {
	switch {
	case math.IsNaN(r.LengthM) || math.IsInf(r.LengthM, 0) || r.LengthM < 0:
		return invalidArgf("length %v", r.LengthM)
	case math.IsNaN(r.HarassmentRisk) || r.HarassmentRisk < 0 || r.HarassmentRisk > 1:
		return invalidArgf("harassment risk %v outside [0,1]", r.HarassmentRisk)
	case math.IsNaN(r.IncidentsSeverity) || r.IncidentsSeverity < 0 || r.IncidentsSeverity > 2:
		return invalidArgf("incident severity %v outside [0,2]", r.IncidentsSeverity)
	case r.CamerasCount < 0 || r.IncidentsCount < 0:
		return invalidArgf("negative count (cameras=%d incidents=%d)", r.CamerasCount, r.IncidentsCount)
	}
	return nil
}

func (r EdgeRecord) reversed() EdgeRecord {
	out := r
	out.Origin, out.Destination = r.Destination, r.Origin
	if len(r.Geometry) > 0 {
		out.Geometry = r.Geometry.Clone()
		out.Geometry.Reverse()
	}
	return out
}

// Edge is a directed street segment owned by a Graph. Derived values
// (RiskScore and the per-profile weights) are frozen when the graph is built.
type Edge struct {
	FromID            int64
	ToID              int64
	Name              string
	LengthM           float64
	Geometry          orb.LineString
	HarassmentRisk    float64
	CamerasCount      int
	IncidentsCount    int
	IncidentsSeverity float64
	RiskScore         float64

	weights [profileCount]float64
}

// Weight returns the frozen weight of e for profile p.
func (e *Edge) Weight(p Profile) float64 { return e.weights[p] }

type edgeKey struct{ from, to int64 }

// Graph is an immutable directed graph for one snapshot. It is safe for
// concurrent readers; nothing mutates it after Build returns.
type Graph struct {
	nodes     []*Node
	edges     []*Edge
	adjacency [][]*Edge
	lookup    map[edgeKey]*Edge
	byCoord   map[Coordinate]int64
	index     *quadtree.Quadtree
	bound     orb.Bound
	costs     *CompositeCost
	distances *distanceCache
}

type buildOptions struct {
	twoWay    bool
	cacheSize int
}

// BuildOption customizes Build.
type BuildOption func(*buildOptions)

// WithTwoWayExpansion adds the reverse edge for every record with OneWay=false.
func WithTwoWayExpansion() BuildOption {
	return func(o *buildOptions) { o.twoWay = true }
}

// WithHeuristicCacheSize bounds the memoized node-to-node distances. Zero or
// negative disables the cache.
func WithHeuristicCacheSize(n int) BuildOption {
	return func(o *buildOptions) { o.cacheSize = n }
}

// DefaultHeuristicCacheSize is the LRU capacity used when no option is given.
const DefaultHeuristicCacheSize = 1 << 16

// Build constructs the directed graph from the upstream edge list and
// freezes the graph-wide normalization used by the cost model.
func Build(records []EdgeRecord, opts ...BuildOption) (*Graph, error) {
	cfg := buildOptions{cacheSize: DefaultHeuristicCacheSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(records) == 0 {
		return nil, invalidArgf("empty edge list")
	}

	g := &Graph{
		lookup:  make(map[edgeKey]*Edge, len(records)),
		byCoord: make(map[Coordinate]int64, len(records)),
	}
	// explicit rows win over reverses synthesized from two-way rows
	explicit := make(map[edgeKey]bool, len(records))
	for i, rec := range records {
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("edge %d (%s): %w", i, rec.Name, err)
		}
		explicit[g.addEdge(rec)] = true
		if cfg.twoWay && !rec.OneWay {
			rev := rec.reversed()
			if !explicit[g.keyOf(rev)] {
				g.addEdge(rev)
			}
		}
	}

	g.costs = newCompositeCost(g)
	g.distances = newDistanceCache(cfg.cacheSize)
	if err := g.buildIndex(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) nodeFor(c Coordinate) int64 {
	if id, ok := g.byCoord[c]; ok {
		return id
	}
	id := int64(len(g.nodes))
	g.nodes = append(g.nodes, &Node{ID: id, Coord: c})
	g.adjacency = append(g.adjacency, nil)
	g.byCoord[c] = id
	return id
}

func (g *Graph) keyOf(rec EdgeRecord) edgeKey {
	return edgeKey{g.nodeFor(rec.Origin), g.nodeFor(rec.Destination)}
}

// addEdge inserts rec; a later record for the same (from, to) pair replaces
// the earlier one in place.
func (g *Graph) addEdge(rec EdgeRecord) edgeKey {
	from := g.nodeFor(rec.Origin)
	to := g.nodeFor(rec.Destination)
	e := &Edge{
		FromID:            from,
		ToID:              to,
		Name:              rec.Name,
		LengthM:           rec.LengthM,
		Geometry:          rec.Geometry,
		HarassmentRisk:    rec.HarassmentRisk,
		CamerasCount:      rec.CamerasCount,
		IncidentsCount:    rec.IncidentsCount,
		IncidentsSeverity: rec.IncidentsSeverity,
	}
	key := edgeKey{from, to}
	if old, ok := g.lookup[key]; ok {
		*old = *e
		return key
	}
	g.lookup[key] = e
	g.edges = append(g.edges, e)
	g.adjacency[from] = append(g.adjacency[from], e)
	return key
}

// Node returns the node with the given id.
func (g *Graph) Node(id int64) (*Node, bool) {
	if id < 0 || id >= int64(len(g.nodes)) {
		return nil, false
	}
	return g.nodes[id], true
}

// Edge looks up the directed edge from -> to in O(1).
func (g *Graph) Edge(from, to int64) (*Edge, bool) {
	e, ok := g.lookup[edgeKey{from, to}]
	return e, ok
}

// Neighbors returns the outgoing edges of id. The slice must not be modified.
func (g *Graph) Neighbors(id int64) []*Edge {
	if id < 0 || id >= int64(len(g.adjacency)) {
		return nil
	}
	return g.adjacency[id]
}

// Edges returns every edge in insertion order. The slice must not be modified.
func (g *Graph) Edges() []*Edge { return g.edges }

func (g *Graph) NodeCount() int { return len(g.nodes) }

func (g *Graph) EdgeCount() int { return len(g.edges) }

func (g *Graph) Bound() orb.Bound { return g.bound }

// Costs returns the composite cost model frozen at build time.
func (g *Graph) Costs() *CompositeCost { return g.costs }

// GraphStats describes a built graph.
type GraphStats struct {
	Nodes         int           `json:"nodes"`
	Edges         int           `json:"edges"`
	Bound         [4]float64    `json:"bbox"`
	Normalization Normalization `json:"normalization"`
}

func (g *Graph) Stats() GraphStats {
	return GraphStats{
		Nodes:         g.NodeCount(),
		Edges:         g.EdgeCount(),
		Bound:         [4]float64{g.bound.Min.Lon(), g.bound.Min.Lat(), g.bound.Max.Lon(), g.bound.Max.Lat()},
		Normalization: g.costs.Normalization(),
	}
}

package routing

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Segment is one traversed edge of a route.
type Segment struct {
	From           int64          `json:"from"`
	To             int64          `json:"to"`
	Name           string         `json:"name"`
	Length         float64        `json:"length"`
	HarassmentRisk float64        `json:"harassmentRisk"`
	CamerasCount   int            `json:"cameras_count"`
	IncidentsCount int            `json:"incidents_count"`
	RiskScore      float64        `json:"risk_score"`
	Geometry       orb.LineString `json:"-"`
}

type Statistics struct {
	TotalDistance  float64 `json:"total_distance"`
	AvgRisk        float64 `json:"avg_risk"`
	TotalCameras   int     `json:"total_cameras"`
	TotalIncidents int     `json:"total_incidents"`
	NumSegments    int     `json:"num_segments"`
	Cost           float64 `json:"cost"`
}

type Performance struct {
	ExecutionTimeMs float64 `json:"execution_time_ms"`
	NodesExplored   int     `json:"nodes_explored"`
	NodesInPath     int     `json:"nodes_in_path"`
}

// Route is a search result enriched for API consumers.
type Route struct {
	Algorithm   Algorithm      `json:"algorithm"`
	Profile     Profile        `json:"optimization"`
	Path        []int64        `json:"path"`
	Geometry    orb.LineString `json:"-"`
	Segments    []Segment      `json:"segments"`
	Statistics  Statistics     `json:"statistics"`
	Performance Performance    `json:"performance"`
}

// Assemble turns a raw search result into a Route. It reads the cost and
// counters the strategy produced and never recomputes them.
func Assemble(res *SearchResult, g *Graph, p Profile, alg Algorithm) (*Route, error) {
	if res == nil || len(res.Path) == 0 {
		return nil, invalidArgf("empty search result")
	}
	route := &Route{
		Algorithm: alg,
		Profile:   p,
		Path:      res.Path,
		Segments:  make([]Segment, 0, len(res.Path)-1),
		Performance: Performance{
			ExecutionTimeMs: float64(res.Elapsed) / float64(time.Millisecond),
			NodesExplored:   res.NodesExplored,
			NodesInPath:     len(res.Path),
		},
	}

	first, ok := g.Node(res.Path[0])
	if !ok {
		return nil, invalidArgf("path node %d not in graph", res.Path[0])
	}
	route.Geometry = orb.LineString{first.Point()}

	stats := &route.Statistics
	riskSum := 0.0
	for i := 1; i < len(res.Path); i++ {
		from, to := res.Path[i-1], res.Path[i]
		e, ok := g.Edge(from, to)
		if !ok {
			return nil, invalidArgf("path step %d: no edge %d -> %d", i, from, to)
		}
		geom := edgeGeometry(g, e)
		route.Geometry = appendLine(route.Geometry, geom)
		route.Segments = append(route.Segments, Segment{
			From:           from,
			To:             to,
			Name:           e.Name,
			Length:         e.LengthM,
			HarassmentRisk: e.HarassmentRisk,
			CamerasCount:   e.CamerasCount,
			IncidentsCount: e.IncidentsCount,
			RiskScore:      e.RiskScore,
			Geometry:       geom,
		})
		stats.TotalDistance += e.LengthM
		stats.TotalCameras += e.CamerasCount
		stats.TotalIncidents += e.IncidentsCount
		riskSum += e.RiskScore
	}
	stats.NumSegments = len(route.Segments)
	if stats.NumSegments > 0 {
		stats.AvgRisk = riskSum / float64(stats.NumSegments)
	}
	stats.Cost = res.Cost
	return route, nil
}

// AssembleAll assembles res and each of its alternatives in order.
func AssembleAll(res *SearchResult, g *Graph, p Profile, alg Algorithm) ([]*Route, error) {
	all := append([]*SearchResult{res}, res.Alternatives...)
	routes := make([]*Route, 0, len(all))
	for i, r := range all {
		route, err := Assemble(r, g, p, alg)
		if err != nil {
			return nil, fmt.Errorf("route %d: %w", i, err)
		}
		routes = append(routes, route)
	}
	return routes, nil
}

func edgeGeometry(g *Graph, e *Edge) orb.LineString {
	if len(e.Geometry) >= 2 {
		return e.Geometry
	}
	return orb.LineString{g.nodes[e.FromID].Point(), g.nodes[e.ToID].Point()}
}

func appendLine(dst, src orb.LineString) orb.LineString {
	if len(src) == 0 {
		return dst
	}
	if len(dst) > 0 && dst[len(dst)-1].Equal(src[0]) {
		src = src[1:]
	}
	return append(dst, src...)
}

// FeatureCollection renders the route as GeoJSON: one feature per segment and
// route-level statistics in the collection's foreign members.
func (r *Route) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, s := range r.Segments {
		f := geojson.NewFeature(s.Geometry)
		f.Properties["name"] = s.Name
		f.Properties["length"] = s.Length
		f.Properties["harassmentRisk"] = s.HarassmentRisk
		f.Properties["cameras_count"] = s.CamerasCount
		f.Properties["incidents_count"] = s.IncidentsCount
		f.Properties["risk_score"] = s.RiskScore
		f.Properties["optimization"] = r.Profile.String()
		f.Properties["algorithm"] = string(r.Algorithm)
		fc.Append(f)
	}
	fc.ExtraMembers = geojson.Properties{
		"properties": map[string]interface{}{
			"statistics":   r.Statistics,
			"performance":  r.Performance,
			"cost":         r.Statistics.Cost,
			"optimization": r.Profile.String(),
			"algorithm":    string(r.Algorithm),
		},
	}
	return fc
}

// GeometryGeoJSON wraps the full route line for JSON embedding.
func (r *Route) GeometryGeoJSON() *geojson.Geometry {
	return geojson.NewGeometry(r.Geometry)
}

// MarshalJSON emits the route line as a GeoJSON geometry under "geometry".
func (r Route) MarshalJSON() ([]byte, error) {
	type plain Route
	return json.Marshal(struct {
		plain
		Geometry *geojson.Geometry `json:"geometry"`
	}{plain(r), r.GeometryGeoJSON()})
}

func (r *Route) UnmarshalJSON(data []byte) error {
	type plain Route
	aux := struct {
		*plain
		Geometry *geojson.Geometry `json:"geometry"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Geometry = lineOf(aux.Geometry)
	return nil
}

func (s Segment) MarshalJSON() ([]byte, error) {
	type plain Segment
	return json.Marshal(struct {
		plain
		Geometry *geojson.Geometry `json:"geometry"`
	}{plain(s), geojson.NewGeometry(s.Geometry)})
}

func (s *Segment) UnmarshalJSON(data []byte) error {
	type plain Segment
	aux := struct {
		*plain
		Geometry *geojson.Geometry `json:"geometry"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Geometry = lineOf(aux.Geometry)
	return nil
}

func lineOf(g *geojson.Geometry) orb.LineString {
	if g == nil {
		return nil
	}
	ls, _ := g.Geometry().(orb.LineString)
	return ls
}

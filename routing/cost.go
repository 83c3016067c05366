package routing

import (
	"math"
	"strings"
)

// Profile selects which weight an edge contributes to a path cost.
type Profile int

const (
	ProfileDistance Profile = iota
	ProfileRisk
	ProfileCombined
	ProfileIncidents

	profileCount
)

var profileNames = [profileCount]string{"distance", "risk", "combined", "incidents"}

func (p Profile) String() string {
	if !p.Valid() {
		return "unknown"
	}
	return profileNames[p]
}

func (p Profile) Valid() bool { return p >= 0 && p < profileCount }

func (p Profile) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, invalidArgf("profile %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Profile) UnmarshalText(b []byte) error {
	parsed, err := ParseProfile(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Profiles lists every supported profile.
func Profiles() []Profile {
	return []Profile{ProfileDistance, ProfileRisk, ProfileCombined, ProfileIncidents}
}

// ParseProfile accepts the canonical names plus the legacy "incident" and
// "incidentes" spellings.
func ParseProfile(s string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "distance":
		return ProfileDistance, nil
	case "risk":
		return ProfileRisk, nil
	case "combined":
		return ProfileCombined, nil
	case "incidents", "incident", "incidentes":
		return ProfileIncidents, nil
	}
	return 0, invalidArgf("unknown optimization profile %q", s)
}

// ParseProfiles parses a comma-separated list. Empty input yields nil.
func ParseProfiles(s string) ([]Profile, error) {
	var out []Profile
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		p, err := ParseProfile(part)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// CostModel turns an edge into a weight for a profile.
//
// CostPerMeter must be a lower bound of Weight(e, p) / straight-line length of
// e over the whole graph. A* and branch and bound scale their haversine
// heuristic with it; returning 0 degrades them to uninformed search.
type CostModel interface {
	Weight(e *Edge, p Profile) float64
	CostPerMeter(p Profile) float64
}

// Range is an observed [Min, Max] interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Normalize maps v into [0,1]. A zero-width range maps everything to 0.
func (r Range) Normalize(v float64) float64 {
	span := r.Max - r.Min
	if span == 0 {
		return 0
	}
	return (v - r.Min) / span
}

func (r *Range) observe(v float64, first bool) {
	if first {
		r.Min, r.Max = v, v
		return
	}
	r.Min = math.Min(r.Min, v)
	r.Max = math.Max(r.Max, v)
}

// Normalization holds the graph-wide min-max ranges of every raw attribute.
type Normalization struct {
	Length     Range `json:"length_m"`
	Harassment Range `json:"harassment_risk"`
	Cameras    Range `json:"cameras_count"`
	Incidents  Range `json:"incidents_count"`
	Severity   Range `json:"incidents_severity"`
}

func computeNormalization(edges []*Edge) Normalization {
	var n Normalization
	for i, e := range edges {
		first := i == 0
		n.Length.observe(e.LengthM, first)
		n.Harassment.observe(e.HarassmentRisk, first)
		n.Cameras.observe(float64(e.CamerasCount), first)
		n.Incidents.observe(float64(e.IncidentsCount), first)
		n.Severity.observe(e.IncidentsSeverity, first)
	}
	return n
}

// IncidentScore is the traffic-incident term of RiskScore: 0.7 count + 0.3 severity.
func (n Normalization) IncidentScore(e *Edge) float64 {
	return 0.7*n.Incidents.Normalize(float64(e.IncidentsCount)) + 0.3*n.Severity.Normalize(e.IncidentsSeverity)
}

// RiskScore blends harassment, incidents and missing camera coverage.
func (n Normalization) RiskScore(e *Edge) float64 {
	harassment := n.Harassment.Normalize(e.HarassmentRisk)
	cameras := n.Cameras.Normalize(float64(e.CamerasCount))
	return 0.4*harassment + 0.3*n.IncidentScore(e) + 0.3*(1-cameras)
}

// CompositeCost is the cost model frozen with a graph. Weights are computed
// once at build time; Weight is a lookup.
type CompositeCost struct {
	norm     Normalization
	perMeter [profileCount]float64
}

// headroom shrinks the heuristic scale so float rounding never lets
// h(u) exceed w(u,v) + h(v).
const headroom = 1 - 1e-9

func newCompositeCost(g *Graph) *CompositeCost {
	c := &CompositeCost{norm: computeNormalization(g.edges)}
	for p := range c.perMeter {
		c.perMeter[p] = math.Inf(1)
	}
	for _, e := range g.edges {
		e.RiskScore = c.norm.RiskScore(e)
		e.weights[ProfileDistance] = e.LengthM
		e.weights[ProfileRisk] = e.RiskScore
		e.weights[ProfileCombined] = 0.5*c.norm.Length.Normalize(e.LengthM) + 0.5*e.RiskScore
		e.weights[ProfileIncidents] = float64(e.IncidentsCount)

		straight := haversine(g.nodes[e.FromID].Point(), g.nodes[e.ToID].Point())
		if straight <= 0 {
			continue
		}
		for p := range c.perMeter {
			c.perMeter[p] = math.Min(c.perMeter[p], e.weights[p]/straight)
		}
	}
	for p, v := range c.perMeter {
		if math.IsInf(v, 1) || v < 0 {
			c.perMeter[p] = 0
			continue
		}
		c.perMeter[p] = v * headroom
	}
	return c
}

func (c *CompositeCost) Weight(e *Edge, p Profile) float64 { return e.Weight(p) }

func (c *CompositeCost) CostPerMeter(p Profile) float64 {
	if !p.Valid() {
		return 0
	}
	return c.perMeter[p]
}

func (c *CompositeCost) Normalization() Normalization { return c.norm }

// CameraReward discounts edges by their normalized camera coverage:
// weight = base - Reward * cameras_norm. Weights may become negative, so
// only Bellman-Ford accepts it once Reward exceeds the cheapest base weight.
type CameraReward struct {
	Base   CostModel
	Reward float64
	norm   Range
}

func NewCameraReward(g *Graph, base CostModel, reward float64) *CameraReward {
	return &CameraReward{Base: base, Reward: reward, norm: g.costs.norm.Cameras}
}

func (c *CameraReward) Weight(e *Edge, p Profile) float64 {
	return c.Base.Weight(e, p) - c.Reward*c.norm.Normalize(float64(e.CamerasCount))
}

// CostPerMeter is 0: no positive lower bound exists once rewards apply.
func (c *CameraReward) CostPerMeter(Profile) float64 { return 0 }

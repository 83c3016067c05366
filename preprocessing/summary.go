package preprocessing

import (
	"math"

	"safepath-route-server/routing"
)

// AttributeStats summarizes one numeric edge attribute.
type AttributeStats struct {
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Zeros int     `json:"zeros"`
}

type accumulator struct {
	sum, min, max float64
	n, zeros      int
}

func (a *accumulator) add(v float64) {
	if a.n == 0 {
		a.min, a.max = v, v
	}
	a.min = math.Min(a.min, v)
	a.max = math.Max(a.max, v)
	a.sum += v
	a.n++
	if v == 0 {
		a.zeros++
	}
}

func (a accumulator) stats() AttributeStats {
	if a.n == 0 {
		return AttributeStats{}
	}
	return AttributeStats{Mean: a.sum / float64(a.n), Min: a.min, Max: a.max, Zeros: a.zeros}
}

// Summary mirrors the report printed after dataset unification.
type Summary struct {
	Records    int                `json:"records"`
	OneWay     int                `json:"oneway"`
	Graph      routing.GraphStats `json:"graph"`
	Length     AttributeStats     `json:"length_m"`
	Cameras    AttributeStats     `json:"cameras_count"`
	Incidents  AttributeStats     `json:"incidents_count"`
	Harassment AttributeStats     `json:"harassment_risk"`
	RiskScore  AttributeStats     `json:"risk_score"`
}

// Summarize builds the graph for records and reports attribute statistics.
// Risk scores come from the built graph, so they reflect the same
// normalization the router uses.
func Summarize(records []routing.EdgeRecord, opts ...routing.BuildOption) (Summary, error) {
	g, err := routing.Build(records, opts...)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{Records: len(records), Graph: g.Stats()}
	var length, cameras, incidents, harassment, risk accumulator
	for _, rec := range records {
		if rec.OneWay {
			s.OneWay++
		}
	}
	for _, e := range g.Edges() {
		length.add(e.LengthM)
		cameras.add(float64(e.CamerasCount))
		incidents.add(float64(e.IncidentsCount))
		harassment.add(e.HarassmentRisk)
		risk.add(e.RiskScore)
	}
	s.Length = length.stats()
	s.Cameras = cameras.stats()
	s.Incidents = incidents.stats()
	s.Harassment = harassment.stats()
	s.RiskScore = risk.stats()
	return s, nil
}

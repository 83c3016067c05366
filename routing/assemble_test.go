package routing

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemble(t *testing.T) {
	ab := street("Calle 10", at(0, 0), at(1, 0), 110)
	ab.Geometry = orb.LineString{at(0, 0).Point(), {-75.5695, 6.2401}, at(1, 0).Point()}
	ab.CamerasCount = 2
	ab.IncidentsCount = 1
	ab.HarassmentRisk = 0.2
	bc := street("Carrera 43A", at(1, 0), at(1, 1), 90)
	bc.IncidentsCount = 3
	bc.HarassmentRisk = 0.6
	g, err := Build([]EdgeRecord{ab, bc})
	require.NoError(t, err)

	res := &SearchResult{Path: []int64{0, 1, 2}, Cost: 200, NodesExplored: 7, Elapsed: 1500 * time.Microsecond}
	route, err := Assemble(res, g, ProfileDistance, Dijkstra)
	require.NoError(t, err)

	e0, _ := g.Edge(0, 1)
	e1, _ := g.Edge(1, 2)
	assert.Equal(t, Statistics{
		TotalDistance:  200,
		AvgRisk:        (e0.RiskScore + e1.RiskScore) / 2,
		TotalCameras:   2,
		TotalIncidents: 4,
		NumSegments:    2,
		Cost:           200,
	}, route.Statistics)
	assert.Equal(t, Performance{ExecutionTimeMs: 1.5, NodesExplored: 7, NodesInPath: 3}, route.Performance)

	// the shared joint between segments appears once
	require.Len(t, route.Geometry, 4)
	assert.Equal(t, at(0, 0).Point(), route.Geometry[0])
	assert.Equal(t, at(1, 0).Point(), route.Geometry[2])
	assert.Equal(t, at(1, 1).Point(), route.Geometry[3])

	require.Len(t, route.Segments, 2)
	assert.Equal(t, "Carrera 43A", route.Segments[1].Name)
	assert.Len(t, route.Segments[1].Geometry, 2, "missing geometry falls back to the endpoints")
}

func TestAssembleSingleNode(t *testing.T) {
	d := newDiamond(t)
	route, err := Assemble(&SearchResult{Path: []int64{d.a}}, d.g, ProfileRisk, AStar)
	require.NoError(t, err)
	assert.Zero(t, route.Statistics.AvgRisk)
	assert.Zero(t, route.Statistics.NumSegments)
	assert.Equal(t, 1, route.Performance.NodesInPath)
	assert.Len(t, route.Geometry, 1)
}

func TestAssembleRejectsBrokenPath(t *testing.T) {
	d := newDiamond(t)
	_, err := Assemble(&SearchResult{Path: []int64{d.a, d.d}}, d.g, ProfileDistance, Dijkstra)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Assemble(&SearchResult{}, d.g, ProfileDistance, Dijkstra)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestFeatureCollection(t *testing.T) {
	d := newDiamond(t)
	res, err := DijkstraSearch{}.Search(d.g, d.g.Costs(), ProfileCombined, d.a, d.d)
	require.NoError(t, err)
	route, err := Assemble(res, d.g, ProfileCombined, Dijkstra)
	require.NoError(t, err)

	raw, err := json.Marshal(route.FeatureCollection())
	require.NoError(t, err)

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
		Properties struct {
			Statistics   Statistics  `json:"statistics"`
			Performance  Performance `json:"performance"`
			Cost         float64     `json:"cost"`
			Optimization string      `json:"optimization"`
			Algorithm    string      `json:"algorithm"`
		} `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))

	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 2)
	assert.Equal(t, "LineString", doc.Features[0].Geometry.Type)
	assert.Equal(t, "ab", doc.Features[0].Properties["name"])
	assert.Equal(t, "combined", doc.Features[0].Properties["optimization"])
	assert.Equal(t, "dijkstra", doc.Properties.Algorithm)
	assert.Equal(t, "combined", doc.Properties.Optimization)
	assert.InDelta(t, res.Cost, doc.Properties.Cost, 1e-12)
	assert.Equal(t, 2, doc.Properties.Statistics.NumSegments)
}

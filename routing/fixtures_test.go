package routing

import (
	"math/rand"
	"testing"

	"github.com/paulmach/orb/geo"
	"github.com/stretchr/testify/require"
)

// Points around central Medellín, about 110m apart.
func at(col, row int) Coordinate {
	return Coordinate{Lon: -75.5700 + float64(col)*0.001, Lat: 6.2400 + float64(row)*0.001}
}

func street(name string, from, to Coordinate, length float64) EdgeRecord {
	return EdgeRecord{Name: name, LengthM: length, OneWay: true, Origin: from, Destination: to}
}

func nodeAt(t *testing.T, g *Graph, c Coordinate) int64 {
	t.Helper()
	n, err := g.NearestNode(c, 1)
	require.NoError(t, err)
	return n.ID
}

// diamond is A->B(1)->D(1), A->C(5)->D(1).
type diamondGraph struct {
	g          *Graph
	a, b, c, d int64
}

func newDiamond(t *testing.T) diamondGraph {
	t.Helper()
	A, B, C, D := at(0, 0), at(1, 1), at(1, -1), at(2, 0)
	g, err := Build([]EdgeRecord{
		street("ab", A, B, 1),
		street("bd", B, D, 1),
		street("ac", A, C, 5),
		street("cd", C, D, 1),
	})
	require.NoError(t, err)
	return diamondGraph{g: g, a: nodeAt(t, g, A), b: nodeAt(t, g, B), c: nodeAt(t, g, C), d: nodeAt(t, g, D)}
}

// newGrid builds an n x n two-way street grid with deterministic, varied
// safety attributes.
func newGrid(t *testing.T, n int) *Graph {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	var records []EdgeRecord
	add := func(from, to Coordinate) {
		straight := geo.DistanceHaversine(from.Point(), to.Point())
		records = append(records, EdgeRecord{
			Name:              "calle",
			LengthM:           straight * (1 + rng.Float64()*0.5),
			HarassmentRisk:    rng.Float64(),
			CamerasCount:      rng.Intn(4),
			IncidentsCount:    rng.Intn(6),
			IncidentsSeverity: rng.Float64() * 2,
			Origin:            from,
			Destination:       to,
		})
	}
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			if col+1 < n {
				add(at(col, row), at(col+1, row))
			}
			if row+1 < n {
				add(at(col, row), at(col, row+1))
			}
		}
	}
	g, err := Build(records, WithTwoWayExpansion())
	require.NoError(t, err)
	return g
}

func requireValidPath(t *testing.T, g *Graph, res *SearchResult, origin, dest int64) {
	t.Helper()
	require.NotEmpty(t, res.Path)
	require.Equal(t, origin, res.Path[0])
	require.Equal(t, dest, res.Path[len(res.Path)-1])
	for i := 1; i < len(res.Path); i++ {
		_, ok := g.Edge(res.Path[i-1], res.Path[i])
		require.Truef(t, ok, "missing edge %d -> %d", res.Path[i-1], res.Path[i])
	}
}

func allStrategies() []Strategy {
	cfg := DefaultStrategyConfig()
	return []Strategy{
		DijkstraSearch{},
		AStarSearch{},
		BellmanFordSearch{},
		GreedySearch{},
		BacktrackingSearch{Budget: cfg.Backtracking},
		BranchAndBoundSearch{Budget: cfg.BranchAndBound},
		YenSearch{K: cfg.K, MaxK: cfg.MaxK},
	}
}

package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panickingStrategy struct{}

func (panickingStrategy) Name() Algorithm { return "exploding" }

func (panickingStrategy) Search(*Graph, CostModel, Profile, int64, int64) (*SearchResult, error) {
	panic("boom")
}

func TestCompareDijkstraAndGreedy(t *testing.T) {
	d := newDiamond(t)
	c, err := Compare(d.g, d.g.Costs(), ProfileDistance, d.a, d.d, []Strategy{DijkstraSearch{}, GreedySearch{}}, 2)
	require.NoError(t, err)

	require.Len(t, c.Results, 2)
	assert.Equal(t, Dijkstra, c.Results[0].Algorithm)
	assert.Equal(t, Greedy, c.Results[1].Algorithm)
	for _, e := range c.Results {
		require.NotNil(t, e.Route, e.Algorithm)
		assert.Empty(t, e.Error)
		path := e.Route.Path
		assert.Equal(t, d.a, path[0])
		assert.Equal(t, d.d, path[len(path)-1])
		for i := 1; i < len(path); i++ {
			_, ok := d.g.Edge(path[i-1], path[i])
			assert.True(t, ok)
		}
	}
	assert.Equal(t, 2.0, c.Results[0].Route.Statistics.Cost)
	assert.Len(t, c.Ranking, 2)
	assert.Equal(t, 2.0, c.Best().Statistics.Cost)
}

func TestCompareIsolatesFailures(t *testing.T) {
	g, err := Build([]EdgeRecord{
		street("trap", at(0, 0), at(1, 1), 1),
		street("long", at(0, 0), at(1, -1), 5),
		street("to goal", at(1, -1), at(2, 0), 1),
	})
	require.NoError(t, err)
	origin, dest := nodeAt(t, g, at(0, 0)), nodeAt(t, g, at(2, 0))

	strategies := []Strategy{GreedySearch{}, panickingStrategy{}, AStarSearch{}, DijkstraSearch{}}
	c, err := Compare(g, g.Costs(), ProfileDistance, origin, dest, strategies, 0)
	require.NoError(t, err)

	require.Len(t, c.Results, 4)
	assert.Equal(t, "DeadEnd", c.Results[0].Kind)
	assert.ErrorIs(t, c.Results[0].Err(), ErrDeadEnd)
	assert.Nil(t, c.Results[0].Route)

	assert.Equal(t, "Internal", c.Results[1].Kind)
	assert.Contains(t, c.Results[1].Error, "boom")

	require.NotNil(t, c.Results[2].Route)
	require.NotNil(t, c.Results[3].Route)
	assert.Equal(t, 6.0, c.Results[3].Route.Statistics.Cost)

	require.Len(t, c.Ranking, 2)
	assert.ElementsMatch(t, []Algorithm{AStar, Dijkstra}, c.Ranking)
}

func TestCompareRanking(t *testing.T) {
	g := newGrid(t, 5)
	origin, dest := nodeAt(t, g, at(0, 0)), nodeAt(t, g, at(4, 4))
	c, err := Compare(g, g.Costs(), ProfileRisk, origin, dest, allStrategies(), 3)
	require.NoError(t, err)

	var prev *Route
	for _, alg := range c.Ranking {
		var route *Route
		for _, e := range c.Results {
			if e.Algorithm == alg {
				route = e.Route
			}
		}
		require.NotNil(t, route)
		if prev != nil {
			if prev.Statistics.Cost == route.Statistics.Cost {
				assert.LessOrEqual(t, prev.Performance.NodesExplored, route.Performance.NodesExplored)
			} else {
				assert.Less(t, prev.Statistics.Cost, route.Statistics.Cost)
			}
		}
		prev = route
	}
}

func TestCompareRejectsBadRequests(t *testing.T) {
	d := newDiamond(t)
	_, err := Compare(d.g, d.g.Costs(), ProfileDistance, d.a, d.d, []Strategy{DijkstraSearch{}, DijkstraSearch{}}, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Compare(d.g, d.g.Costs(), ProfileDistance, d.a, d.d, nil, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

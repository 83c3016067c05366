package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A square with a diagonal: the diagonal is short but risky.
const squareCSV = `name,length,oneway,geometry,harassmentRisk,cameras_count,incidents_count,incidents_severity,origin,destination
Diagonal,150,True,,0.9,0,5,2,"(-75.570, 6.240)","(-75.569, 6.241)"
North,100,True,,0.1,2,0,0,"(-75.570, 6.240)","(-75.570, 6.241)"
East,100,True,,0.1,2,0,0,"(-75.570, 6.241)","(-75.569, 6.241)"
`

func writeData(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "square.csv")
	require.NoError(t, os.WriteFile(path, []byte(squareCSV), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRouteCommand(t *testing.T) {
	data := writeData(t)

	out, err := run(t, "route", "--data", data, "--from", "-75.570,6.240", "--to", "-75.569,6.241", "--profile", "distance")
	require.NoError(t, err)
	assert.Contains(t, out, "Algorithm:      dijkstra")
	assert.Contains(t, out, "Distance:       150.0 m")
	assert.Contains(t, out, "Streets:        Diagonal")

	out, err = run(t, "route", "--data", data, "--from", "(-75.570, 6.240)", "--to", "(-75.569, 6.241)",
		"--profile", "risk", "--algorithm", "astar", "--geojson")
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection([]byte(out))
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "North", fc.Features[0].Properties["name"])
}

func TestRouteCommandErrors(t *testing.T) {
	data := writeData(t)

	_, err := run(t, "route", "--data", data, "--to", "-75.569,6.241")
	require.Error(t, err, "--from is required")

	_, err = run(t, "route", "--data", data, "--from", "nowhere", "--to", "-75.569,6.241")
	require.ErrorContains(t, err, "--from")

	_, err = run(t, "route", "--data", data, "--from", "-75.569,6.241", "--to", "-75.570,6.240")
	require.ErrorContains(t, err, "no path")

	_, err = run(t, "route", "--data", filepath.Join(t.TempDir(), "missing.csv"), "--from", "-75.570,6.240", "--to", "-75.569,6.241")
	require.Error(t, err)
}

func TestCompareCommand(t *testing.T) {
	data := writeData(t)

	out, err := run(t, "compare", "--data", data, "--from", "-75.570,6.240", "--to", "-75.569,6.241",
		"--profile", "distance", "--algorithms", "dijkstra,greedy,bellman_ford")
	require.NoError(t, err)
	assert.Contains(t, out, "ALGORITHM")
	assert.Contains(t, out, "bellman_ford")
	assert.Contains(t, out, "Ranking (distance):")

	out, err = run(t, "compare", "--data", data, "--from", "-75.570,6.240", "--to", "-75.569,6.241", "--json")
	require.NoError(t, err)
	var body struct {
		Results []json.RawMessage `json:"results"`
		Ranking []string          `json:"ranking"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Len(t, body.Results, 6)
	assert.Len(t, body.Ranking, 6)
}

func TestCompareProfilesCommand(t *testing.T) {
	data := writeData(t)
	args := []string{"compare", "--data", data, "--from", "-75.570,6.240", "--to", "-75.569,6.241"}

	out, err := run(t, append(args, "--profiles", "distance,risk")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Algorithm: dijkstra")
	assert.Contains(t, out, "PROFILE")

	out, err = run(t, append(args, "--profiles", "", "--algorithms", "astar", "--json")...)
	require.NoError(t, err)
	var body struct {
		Algorithm string `json:"algorithm"`
		Results   []struct {
			Optimization string `json:"optimization"`
			Route        struct {
				Statistics struct {
					TotalDistance float64 `json:"total_distance"`
				} `json:"statistics"`
				Geometry struct {
					Type string `json:"type"`
				} `json:"geometry"`
			} `json:"route"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, "astar", body.Algorithm)
	require.Len(t, body.Results, 3)
	assert.Equal(t, "distance", body.Results[0].Optimization)
	assert.Equal(t, 150.0, body.Results[0].Route.Statistics.TotalDistance)
	assert.Equal(t, "risk", body.Results[1].Optimization)
	assert.Equal(t, 200.0, body.Results[1].Route.Statistics.TotalDistance)
	assert.Equal(t, "LineString", body.Results[1].Route.Geometry.Type)

	_, err = run(t, append(args, "--profiles", "risk", "--algorithms", "dijkstra,astar")...)
	require.ErrorContains(t, err, "single algorithm")
}

func TestBenchCommand(t *testing.T) {
	data := writeData(t)

	out, err := run(t, "bench", "--data", data, "--runs", "20", "--seed", "7", "--json",
		"--algorithms", "dijkstra,astar,branch_and_bound")
	require.NoError(t, err)

	var rows []benchRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.Equal(t, 20, r.Runs, r.Algorithm)
		assert.Equal(t, r.Found, r.Optimal, "%s is exact", r.Algorithm)
		failures := 0
		for _, n := range r.Failures {
			failures += n
		}
		assert.Equal(t, r.Runs, r.Found+failures)
	}
	// every exact algorithm succeeds and fails on the same pairs
	assert.Equal(t, rows[0].Found, rows[1].Found)
	assert.Equal(t, rows[0].Found, rows[2].Found)

	_, err = run(t, "bench", "--data", data, "--runs", "0")
	require.Error(t, err)
}

func TestFormatFailures(t *testing.T) {
	assert.Equal(t, "-", formatFailures(nil))
	assert.Equal(t, "DeadEnd=1 NoPathFound=3", formatFailures(map[string]int{"NoPathFound": 3, "DeadEnd": 1}))
}

package preprocessing

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safepath-route-server/routing"
)

const sampleCSV = `name,length,oneway,geometry,harassmentRisk,cameras_count,incidents_count,incidents_severity,origin,destination
Calle 10,112.5,True,"LINESTRING (-75.5728593 6.2115169, -75.5720000 6.2118000)",0.35,2.0,1,0.5,"(-75.5728593, 6.2115169)","(-75.5720000, 6.2118000)"
Carrera 43A,80,False,"LINESTRING (-75.5720000 6.2118000, -75.5712000 6.2121000)",,,,,"(-75.5720000, 6.2118000)","(-75.5712000, 6.2121000)"
`

func TestReadCSV(t *testing.T) {
	records, stats, err := ReadCSV(strings.NewReader(sampleCSV), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, LoadStats{Rows: 2, Loaded: 2}, stats)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "Calle 10", first.Name)
	assert.Equal(t, 112.5, first.LengthM)
	assert.True(t, first.OneWay)
	assert.Equal(t, 0.35, first.HarassmentRisk)
	assert.Equal(t, 2, first.CamerasCount)
	assert.Equal(t, 1, first.IncidentsCount)
	assert.Equal(t, 0.5, first.IncidentsSeverity)
	assert.Equal(t, routing.Coordinate{Lon: -75.5728593, Lat: 6.2115169}, first.Origin)
	assert.Equal(t, orb.LineString{{-75.5728593, 6.2115169}, {-75.5720000, 6.2118000}}, first.Geometry)

	second := records[1]
	assert.False(t, second.OneWay)
	assert.Zero(t, second.HarassmentRisk)
	assert.Zero(t, second.CamerasCount)
	assert.Zero(t, second.IncidentsSeverity)

	g, err := routing.Build(records)
	require.NoError(t, err)
	assert.Equal(t, 3, g.NodeCount())
}

func TestReadCSVErrors(t *testing.T) {
	header := "name,length,geometry,origin,destination\n"
	tests := []struct {
		name string
		row  string
		want string
	}{
		{"bad coordinate", `x,10,,"(-75.5)","(-75.5, 6.2)"`, "origin"},
		{"coordinate out of range", `x,10,,"(-275.5, 6.2)","(-75.5, 6.2)"`, "out of range"},
		{"bad length", `x,ten,,"(-75.5, 6.2)","(-75.4, 6.2)"`, "length"},
		{"bad wkt", `x,10,LINESTRING (1,"(-75.5, 6.2)","(-75.4, 6.2)"`, "geometry"},
		{"point geometry", `x,10,POINT (1 2),"(-75.5, 6.2)","(-75.4, 6.2)"`, "unsupported geometry"},
		{"infinite length", `x,Inf,,"(-75.5, 6.2)","(-75.4, 6.2)"`, "finite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ReadCSV(strings.NewReader(header+tt.row+"\n"), CSVOptions{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, err.Error(), "row 2")
		})
	}

	_, _, err := ReadCSV(strings.NewReader("name,length,origin\n"), CSVOptions{})
	require.ErrorContains(t, err, `missing column "destination"`)
}

func TestReadCSVSkipInvalid(t *testing.T) {
	in := sampleCSV + "broken,abc,,,,,,,\"(-75.5, 6.2)\",\"(-75.4, 6.2)\"\n"
	records, stats, err := ReadCSV(strings.NewReader(in), CSVOptions{SkipInvalid: true})
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, LoadStats{Rows: 3, Loaded: 2, Skipped: 1}, stats)
}

func TestReadCSVSemicolon(t *testing.T) {
	in := "\ufefforigin;destination;length\n(-75.57, 6.24);(-75.56, 6.24);110\n"
	records, _, err := ReadCSV(strings.NewReader(in), CSVOptions{Comma: ';'})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 110.0, records[0].LengthM)
	assert.Nil(t, records[0].Geometry)
}

func TestCoordinateRoundTrip(t *testing.T) {
	c := routing.Coordinate{Lon: -75.5728593, Lat: 6.2115169}
	got, err := ParseCoordinate(FormatCoordinate(c))
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestParseLineStringMulti(t *testing.T) {
	ls, err := ParseLineString("MULTILINESTRING ((0 0, 1 1), (1 1, 2 2))")
	require.NoError(t, err)
	assert.Len(t, ls, 4)
}

func TestLoadCSVFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unified.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	records, _, err := FileSource{Path: path}.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, _, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"), CSVOptions{})
	require.Error(t, err)
}

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safepath-route-server/preprocessing"
)

const edgesCSV = `name,length,oneway,geometry,harassmentRisk,cameras_count,incidents_count,incidents_severity,origin,destination
Calle 10,112.5,True,"LINESTRING (-75.5728593 6.2115169, -75.5720000 6.2118000)",0.35,2,1,0.5,"(-75.5728593, 6.2115169)","(-75.5720000, 6.2118000)"
Carrera 43A,80,False,,0.1,0,0,0,"(-75.5720000, 6.2118000)","(-75.5712000, 6.2121000)"
Broken,-5,True,,0,0,0,0,"(-75.5712000, 6.2121000)","(-75.5700000, 6.2125000)"
`

func TestDefaultOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "unified_medellin_data.gob"), defaultOutputPath(filepath.Join("data", "unified_medellin_data.csv")))
	assert.Equal(t, "edges.gob", defaultOutputPath("edges"))
}

func TestConvertCSVToGOB(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "edges.csv")
	out := filepath.Join(dir, "out", "edges.gob")
	require.NoError(t, os.WriteFile(in, []byte(edgesCSV), 0o644))

	require.Error(t, convertCSVToGOB(in, out, preprocessing.CSVOptions{}), "negative length is rejected")
	_, err := os.Stat(out)
	require.True(t, os.IsNotExist(err))

	require.NoError(t, convertCSVToGOB(in, out, preprocessing.CSVOptions{SkipInvalid: true}))
	hdr, records, err := preprocessing.ReadSnapshot(out)
	require.NoError(t, err)
	assert.Equal(t, "edges.csv", hdr.Source)
	require.Len(t, records, 2)
	assert.Equal(t, "Carrera 43A", records[1].Name)
}

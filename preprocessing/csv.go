package preprocessing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"

	"safepath-route-server/routing"
)

// Columns of the unified edge list produced upstream.
const (
	ColName              = "name"
	ColLength            = "length"
	ColOneWay            = "oneway"
	ColGeometry          = "geometry"
	ColHarassmentRisk    = "harassmentRisk"
	ColCamerasCount      = "cameras_count"
	ColIncidentsCount    = "incidents_count"
	ColIncidentsSeverity = "incidents_severity"
	ColOrigin            = "origin"
	ColDestination       = "destination"
)

var requiredColumns = []string{ColLength, ColOrigin, ColDestination}

// CSVOptions tunes LoadCSV.
type CSVOptions struct {
	// Comma is the field separator; zero means ','.
	Comma rune
	// SkipInvalid drops malformed rows instead of failing the load.
	SkipInvalid bool
}

// LoadStats reports what a loader did with its input.
type LoadStats struct {
	Rows    int `json:"rows"`
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped"`
}

// LoadCSV reads the unified edge list from path.
func LoadCSV(path string, opts CSVOptions) ([]routing.EdgeRecord, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f, opts)
}

// ReadCSV parses the unified edge list. Empty numeric cells read as 0.
func ReadCSV(in io.Reader, opts CSVOptions) ([]routing.EdgeRecord, LoadStats, error) {
	var stats LoadStats
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true
	if opts.Comma != 0 {
		r.Comma = opts.Comma
	}

	header, err := r.Read()
	if err != nil {
		return nil, stats, fmt.Errorf("read edge header: %w", err)
	}
	h := headerIndex(header)
	for _, col := range requiredColumns {
		if _, ok := h[col]; !ok {
			return nil, stats, fmt.Errorf("edge header: missing column %q", col)
		}
	}

	var records []routing.EdgeRecord
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read edge row %d: %w", line, err)
		}
		stats.Rows++

		rec, err := parseRow(h, row)
		if err != nil {
			if opts.SkipInvalid {
				stats.Skipped++
				continue
			}
			return nil, stats, fmt.Errorf("edge row %d: %w", line, err)
		}
		records = append(records, rec)
	}
	stats.Loaded = len(records)
	return records, stats, nil
}

func headerIndex(hdr []string) map[string]int {
	m := make(map[string]int, len(hdr))
	for i, k := range hdr {
		m[strings.TrimSpace(strings.TrimPrefix(k, "\ufeff"))] = i
	}
	return m
}

func parseRow(h map[string]int, row []string) (routing.EdgeRecord, error) {
	get := func(k string) string {
		i, ok := h[k]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var (
		rec routing.EdgeRecord
		err error
	)
	rec.Name = get(ColName)
	if rec.Origin, err = ParseCoordinate(get(ColOrigin)); err != nil {
		return rec, fmt.Errorf("%s: %w", ColOrigin, err)
	}
	if rec.Destination, err = ParseCoordinate(get(ColDestination)); err != nil {
		return rec, fmt.Errorf("%s: %w", ColDestination, err)
	}
	if rec.LengthM, err = parseFloat(get(ColLength)); err != nil {
		return rec, fmt.Errorf("%s: %w", ColLength, err)
	}
	if rec.HarassmentRisk, err = parseFloat(get(ColHarassmentRisk)); err != nil {
		return rec, fmt.Errorf("%s: %w", ColHarassmentRisk, err)
	}
	if rec.IncidentsSeverity, err = parseFloat(get(ColIncidentsSeverity)); err != nil {
		return rec, fmt.Errorf("%s: %w", ColIncidentsSeverity, err)
	}
	if rec.CamerasCount, err = parseCount(get(ColCamerasCount)); err != nil {
		return rec, fmt.Errorf("%s: %w", ColCamerasCount, err)
	}
	if rec.IncidentsCount, err = parseCount(get(ColIncidentsCount)); err != nil {
		return rec, fmt.Errorf("%s: %w", ColIncidentsCount, err)
	}
	if rec.OneWay, err = parseBool(get(ColOneWay)); err != nil {
		return rec, fmt.Errorf("%s: %w", ColOneWay, err)
	}
	if rec.Geometry, err = ParseLineString(get(ColGeometry)); err != nil {
		return rec, fmt.Errorf("%s: %w", ColGeometry, err)
	}
	return rec, rec.Validate()
}

// ParseCoordinate reads the upstream "(lon, lat)" notation.
func ParseCoordinate(s string) (routing.Coordinate, error) {
	s = strings.Trim(strings.TrimSpace(s), `()"`)
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return routing.Coordinate{}, fmt.Errorf("coordinate %q: want \"(lon, lat)\"", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return routing.Coordinate{}, fmt.Errorf("coordinate lon: %w", err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return routing.Coordinate{}, fmt.Errorf("coordinate lat: %w", err)
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return routing.Coordinate{}, fmt.Errorf("coordinate (%g, %g) out of range", lon, lat)
	}
	return routing.Coordinate{Lon: lon, Lat: lat}, nil
}

// FormatCoordinate is the inverse of ParseCoordinate.
func FormatCoordinate(c routing.Coordinate) string {
	return "(" + strconv.FormatFloat(c.Lon, 'f', -1, 64) + ", " + strconv.FormatFloat(c.Lat, 'f', -1, 64) + ")"
}

// ParseLineString decodes WKT street geometry. Empty input is a nil line;
// a MULTILINESTRING is flattened in order.
func ParseLineString(s string) (orb.LineString, error) {
	if s == "" {
		return nil, nil
	}
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, err
	}
	switch geom := g.(type) {
	case orb.LineString:
		return geom, nil
	case orb.MultiLineString:
		var out orb.LineString
		for _, ls := range geom {
			out = append(out, ls...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported geometry %s", g.GeoJSONType())
}

var errNotFinite = errors.New("not a finite number")

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFinite
	}
	return v, nil
}

// parseCount accepts "3" as well as pandas-style "3.0".
func parseCount(s string) (int, error) {
	v, err := parseFloat(s)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("count %q is not whole", s)
	}
	return int(v), nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "", "false", "0", "no", "f":
		return false, nil
	case "true", "1", "yes", "t", "si", "sí":
		return true, nil
	}
	return false, fmt.Errorf("boolean %q", s)
}

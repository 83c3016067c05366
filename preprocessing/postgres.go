package preprocessing

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"safepath-route-server/routing"
)

// edgeRow mirrors one row of the PostGIS edge table.
type edgeRow struct {
	Name              string  `db:"name"`
	Length            float64 `db:"length"`
	OneWay            bool    `db:"oneway"`
	Geometry          string  `db:"geometry"`
	HarassmentRisk    float64 `db:"harassment_risk"`
	CamerasCount      int     `db:"cameras_count"`
	IncidentsCount    int     `db:"incidents_count"`
	IncidentsSeverity float64 `db:"incidents_severity"`
	OriginLon         float64 `db:"origin_lon"`
	OriginLat         float64 `db:"origin_lat"`
	DestLon           float64 `db:"dest_lon"`
	DestLat           float64 `db:"dest_lat"`
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PostgresSource reads the unified edge list from a PostGIS table whose
// geometry column holds the street LineString in EPSG:4326.
type PostgresSource struct {
	db    *sqlx.DB
	table string
}

// NewPostgresSource connects with the lib/pq driver.
func NewPostgresSource(ctx context.Context, dsn, table string) (*PostgresSource, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid edge table name %q", table)
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return &PostgresSource{db: db, table: table}, nil
}

// NewPostgresSourceDB wraps an existing connection.
func NewPostgresSourceDB(db *sqlx.DB, table string) (*PostgresSource, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid edge table name %q", table)
	}
	return &PostgresSource{db: db, table: table}, nil
}

func (s *PostgresSource) query() string {
	return fmt.Sprintf(`
		SELECT
			COALESCE(name, '') AS name,
			length,
			COALESCE(oneway, false) AS oneway,
			COALESCE(ST_AsText(geometry), '') AS geometry,
			COALESCE(harassment_risk, 0) AS harassment_risk,
			COALESCE(cameras_count, 0) AS cameras_count,
			COALESCE(incidents_count, 0) AS incidents_count,
			COALESCE(incidents_severity, 0) AS incidents_severity,
			ST_X(ST_StartPoint(geometry)) AS origin_lon,
			ST_Y(ST_StartPoint(geometry)) AS origin_lat,
			ST_X(ST_EndPoint(geometry)) AS dest_lon,
			ST_Y(ST_EndPoint(geometry)) AS dest_lat
		FROM %s
		ORDER BY id`, s.table)
}

// Load fetches every edge row.
func (s *PostgresSource) Load(ctx context.Context) ([]routing.EdgeRecord, LoadStats, error) {
	var rows []edgeRow
	if err := s.db.SelectContext(ctx, &rows, s.query()); err != nil {
		return nil, LoadStats{}, fmt.Errorf("failed to query edges from %s: %w", s.table, err)
	}
	records := make([]routing.EdgeRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, LoadStats{Rows: len(rows)}, fmt.Errorf("edge row %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, LoadStats{Rows: len(rows), Loaded: len(records)}, nil
}

func (r edgeRow) record() (routing.EdgeRecord, error) {
	geom, err := ParseLineString(r.Geometry)
	if err != nil {
		return routing.EdgeRecord{}, fmt.Errorf("geometry: %w", err)
	}
	return routing.EdgeRecord{
		Name:              r.Name,
		LengthM:           r.Length,
		OneWay:            r.OneWay,
		Geometry:          geom,
		HarassmentRisk:    r.HarassmentRisk,
		CamerasCount:      r.CamerasCount,
		IncidentsCount:    r.IncidentsCount,
		IncidentsSeverity: r.IncidentsSeverity,
		Origin:            routing.Coordinate{Lon: r.OriginLon, Lat: r.OriginLat},
		Destination:       routing.Coordinate{Lon: r.DestLon, Lat: r.DestLat},
	}, nil
}

func (s *PostgresSource) Close() error { return s.db.Close() }

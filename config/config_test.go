package config

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safepath-route-server/routing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	eng := cfg.Engine()
	assert.Equal(t, 500.0, eng.SnapRadiusM)
	assert.Equal(t, routing.DefaultK, eng.Strategies.K)
	assert.Equal(t, routing.DefaultMaxSteps, eng.Strategies.Backtracking.MaxSteps)
	assert.Equal(t, eng.Strategies.Backtracking, eng.Strategies.BranchAndBound)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "safepath.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
  allowed_origins: ["http://localhost:3000"]
data:
  csv: /data/unified.csv
  two_way: true
routing:
  max_k: 8
  default_k: 4
  max_duration: 750ms
log:
  level: debug
`), 0o644))

	t.Setenv("SAFEPATH_ROUTING_SNAP_RADIUS_M", "250")
	t.Setenv("SAFEPATH_SERVER_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("SAFEPATH_LOG_JSON", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "/data/unified.csv", cfg.Data.CSV)
	assert.True(t, cfg.Data.TwoWay)
	assert.Equal(t, 8, cfg.Routing.MaxK)
	assert.Equal(t, 4, cfg.Routing.DefaultK)
	assert.Equal(t, 750*time.Millisecond, cfg.Routing.MaxDuration)
	assert.Equal(t, 250.0, cfg.Routing.SnapRadiusM)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	// untouched keys keep their defaults
	assert.Equal(t, routing.DefaultMaxSteps, cfg.Routing.MaxSteps)

	assert.Len(t, cfg.BuildOptions(), 2)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "read config file")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server: [unclosed"), 0o644))
	_, err = Load(bad)
	require.ErrorContains(t, err, "parse config file")

	t.Setenv("SAFEPATH_ROUTING_MAX_K", "many")
	t.Setenv("SAFEPATH_DATA_WATCH", "maybe")
	_, err = Load("")
	require.Error(t, err)
	assert.ErrorContains(t, err, "routing.max_k")
	assert.ErrorContains(t, err, "data.watch")
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"default k above max k": func(c *Config) { c.Routing.DefaultK = c.Routing.MaxK + 1 },
		"zero max k":            func(c *Config) { c.Routing.MaxK = 0 },
		"negative radius":       func(c *Config) { c.Routing.SnapRadiusM = -1 },
		"no data source":        func(c *Config) { c.Data.CSV = "" },
		"dsn without table":     func(c *Config) { c.Data.PostgresDSN = "postgres://x"; c.Data.PostgresTable = "" },
		"unknown log level":     func(c *Config) { c.Log.Level = "verbose" },
		"long separator":        func(c *Config) { c.Data.Separator = ";;" },
		"empty addr":            func(c *Config) { c.Server.Addr = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.Data.CSV = ""
	cfg.Data.Snapshot = "graph.gob"
	assert.NoError(t, cfg.Validate(), "a snapshot alone is a data source")
}

func TestLoadEnvOverrides(t *testing.T) {
	env := map[string]string{
		"SAFEPATH_DATA_SEPARATOR":              ";",
		"SAFEPATH_DATA_WATCH_DEBOUNCE":         "5s",
		"SAFEPATH_ROUTING_MAX_STEPS":           "",
		"SAFEPATH_SERVER_RATE_LIMIT":           "2.5",
		"SAFEPATH_DATA_POSTGRES_DSN":           "postgres://localhost/safepath",
		"SAFEPATH_ROUTING_COMPARE_PARALLELISM": "2",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ';', cfg.Data.Comma())
	assert.Equal(t, 5*time.Second, cfg.Data.WatchDebounce)
	assert.Equal(t, routing.DefaultMaxSteps, cfg.Routing.MaxSteps, "empty values are ignored")
	assert.Equal(t, 2.5, cfg.Server.RateLimit)
	assert.Equal(t, "postgres://localhost/safepath", cfg.Data.PostgresDSN)
	assert.Equal(t, "safepath_edges", cfg.Data.PostgresTable)
	assert.Equal(t, 2, cfg.Routing.CompareParallelism)
	assert.Equal(t, rune(0), Default().Data.Comma())
}

func TestLoadWithoutOverridesKeepsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	want := Default()
	assert.Empty(t, cfg.Server.AllowedOrigins)
	cfg.Server.AllowedOrigins = want.Server.AllowedOrigins
	assert.Equal(t, want, cfg)
}

func TestStringToList(t *testing.T) {
	listType := reflect.TypeOf([]string(nil))
	out, err := stringToList(reflect.TypeOf(""), listType, " a ,,b ")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out)

	out, err = stringToList(reflect.TypeOf(0), listType, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, out, "non-strings pass through")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(LogConfig{Level: "warn", JSON: true}, &buf).Info("dropped")
	assert.Empty(t, buf.String())

	NewLogger(LogConfig{Level: "warn", JSON: true}, &buf).Warn("kept", "k", 1)
	assert.Contains(t, buf.String(), `"msg":"kept"`)

	buf.Reset()
	NewLogger(LogConfig{Level: "nonsense"}, &buf).Info("text")
	assert.Contains(t, buf.String(), "msg=text")
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"safepath-route-server/routing"
)

// EnvPrefix prefixes every environment override, e.g. SAFEPATH_SERVER_ADDR.
// Nested keys join with an underscore.
const EnvPrefix = "SAFEPATH"

type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Data    DataConfig    `yaml:"data" mapstructure:"data"`
	Routing RoutingConfig `yaml:"routing" mapstructure:"routing"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr" mapstructure:"addr" validate:"required"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	// RateLimit is requests per second per client IP; 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst int     `yaml:"rate_burst" mapstructure:"rate_burst" validate:"gte=0"`
}

type DataConfig struct {
	// CSV is the unified edge list; Snapshot a gob file written by csv_to_gob.
	// Snapshot wins when both are set.
	CSV           string        `yaml:"csv" mapstructure:"csv" validate:"required_without_all=Snapshot PostgresDSN"`
	Snapshot      string        `yaml:"snapshot" mapstructure:"snapshot"`
	PostgresDSN   string        `yaml:"postgres_dsn" mapstructure:"postgres_dsn"`
	PostgresTable string        `yaml:"postgres_table" mapstructure:"postgres_table" validate:"required_with=PostgresDSN"`
	Separator     string        `yaml:"separator" mapstructure:"separator" validate:"omitempty,len=1"`
	TwoWay        bool          `yaml:"two_way" mapstructure:"two_way"`
	Watch         bool          `yaml:"watch" mapstructure:"watch"`
	WatchDebounce time.Duration `yaml:"watch_debounce" mapstructure:"watch_debounce" validate:"gte=0"`
}

type RoutingConfig struct {
	SnapRadiusM        float64       `yaml:"snap_radius_m" mapstructure:"snap_radius_m" validate:"gte=0"`
	DefaultK           int           `yaml:"default_k" mapstructure:"default_k" validate:"gte=1,ltefield=MaxK"`
	MaxK               int           `yaml:"max_k" mapstructure:"max_k" validate:"gte=1,lte=50"`
	MaxSteps           int           `yaml:"max_steps" mapstructure:"max_steps" validate:"gte=0"`
	MaxDuration        time.Duration `yaml:"max_duration" mapstructure:"max_duration" validate:"gte=0"`
	HeuristicCacheSize int           `yaml:"heuristic_cache_size" mapstructure:"heuristic_cache_size" validate:"gte=0"`
	CompareParallelism int           `yaml:"compare_parallelism" mapstructure:"compare_parallelism" validate:"gte=0"`
}

type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `yaml:"json" mapstructure:"json"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:      ":8080",
			RateLimit: 20,
			RateBurst: 40,
		},
		Data: DataConfig{
			CSV:           "assets/unified_medellin_data.csv",
			PostgresTable: "safepath_edges",
			WatchDebounce: 2 * time.Second,
		},
		Routing: RoutingConfig{
			SnapRadiusM:        500,
			DefaultK:           routing.DefaultK,
			MaxK:               routing.DefaultMaxK,
			MaxSteps:           routing.DefaultMaxSteps,
			MaxDuration:        routing.DefaultMaxDuration,
			HeuristicCacheSize: routing.DefaultHeuristicCacheSize,
			CompareParallelism: 4,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load resolves configuration in order: defaults, the optional YAML file at
// path, a .env file in the working directory, SAFEPATH_* environment
// variables. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only overrides keys viper already knows, so every
	// default is registered up front.
	defaults, err := yaml.Marshal(cfg)
	if err != nil {
		return cfg, fmt.Errorf("encode defaults: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return cfg, fmt.Errorf("load defaults: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		stringToList,
	))
	if err := v.Unmarshal(&cfg, hooks); err != nil {
		return cfg, fmt.Errorf("apply config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// stringToList splits comma-separated env values such as
// SAFEPATH_SERVER_ALLOWED_ORIGINS, dropping blanks.
func stringToList(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf([]string(nil)) {
		return data, nil
	}
	var out []string
	for _, part := range strings.Split(reflect.ValueOf(data).String(), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, nil
}

// Engine converts the routing section into engine settings.
func (c Config) Engine() routing.EngineConfig {
	budget := routing.Budget{MaxSteps: c.Routing.MaxSteps, MaxDuration: c.Routing.MaxDuration}
	return routing.EngineConfig{
		SnapRadiusM: c.Routing.SnapRadiusM,
		Strategies: routing.StrategyConfig{
			Backtracking:   budget,
			BranchAndBound: budget,
			K:              c.Routing.DefaultK,
			MaxK:           c.Routing.MaxK,
		},
		CompareParallelism: c.Routing.CompareParallelism,
	}
}

// BuildOptions returns the graph build options implied by the data section.
func (c Config) BuildOptions() []routing.BuildOption {
	opts := []routing.BuildOption{routing.WithHeuristicCacheSize(c.Routing.HeuristicCacheSize)}
	if c.Data.TwoWay {
		opts = append(opts, routing.WithTwoWayExpansion())
	}
	return opts
}

// Comma returns the CSV separator rune, or 0 for the default.
func (d DataConfig) Comma() rune {
	if d.Separator == "" {
		return 0
	}
	return []rune(d.Separator)[0]
}

// NewLogger builds the process logger described by the log section.
func NewLogger(c LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.JSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

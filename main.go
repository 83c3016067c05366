package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"safepath-route-server/config"
	"safepath-route-server/preprocessing"
	"safepath-route-server/routing"
)

func dataSource(cfg config.Config) (preprocessing.Source, func(), error) {
	switch {
	case cfg.Data.Snapshot != "":
		return preprocessing.FileSource{Path: cfg.Data.Snapshot}, func() {}, nil
	case cfg.Data.PostgresDSN != "":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		src, err := preprocessing.NewPostgresSource(ctx, cfg.Data.PostgresDSN, cfg.Data.PostgresTable)
		if err != nil {
			return nil, nil, err
		}
		return src, func() { src.Close() }, nil
	default:
		return preprocessing.FileSource{
			Path: cfg.Data.CSV,
			CSV:  preprocessing.CSVOptions{Comma: cfg.Data.Comma()},
		}, func() {}, nil
	}
}

func main() {
	configPath := flag.String("config", os.Getenv("SAFEPATH_CONFIG"), "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	src, closeSrc, err := dataSource(cfg)
	if err != nil {
		logger.Error("Failed to open data source", "error", err)
		os.Exit(1)
	}
	defer closeSrc()

	logger.Info("Loading edge list and building routing graph...", "source", src.String())
	snap, err := preprocessing.BuildSnapshot(context.Background(), src, logger, cfg.BuildOptions()...)
	if err != nil {
		logger.Error("Failed to load required graph data", "error", err)
		os.Exit(1)
	}
	store := routing.NewSnapshotStore(snap)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := routing.NewMetrics(reg)
	if err != nil {
		logger.Error("Failed to register metrics", "error", err)
		os.Exit(1)
	}
	metrics.ObserveSnapshot(snap)

	engine := routing.NewEngine(store, cfg.Engine(),
		routing.WithMetrics(metrics),
		routing.WithLogger(logger),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Data.Watch {
		if path, ok := src.(preprocessing.FileSource); ok {
			w, err := preprocessing.NewWatcher(path.Path, cfg.Data.WatchDebounce, func(ctx context.Context) error {
				next, err := preprocessing.BuildSnapshot(ctx, src, logger, cfg.BuildOptions()...)
				if err != nil {
					return err
				}
				prev := store.Swap(next)
				metrics.ObserveSnapshot(next)
				logger.Info("Graph snapshot replaced", "previous", prev.ID, "current", next.ID)
				return nil
			}, logger)
			if err != nil {
				logger.Error("Failed to start data watcher", "error", err)
				os.Exit(1)
			}
			go func() {
				if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("Data watcher stopped", "error", err)
				}
			}()
		} else {
			logger.Warn("Watch is only supported for file sources", "source", src.String())
		}
	}

	s := &server{engine: engine, gatherer: reg, log: logger}
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(s, cfg.Server),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			logger.Error("Graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("SafePath Route Server starting", "addr", cfg.Server.Addr,
		"nodes", snap.Graph.NodeCount(), "edges", snap.Graph.EdgeCount())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

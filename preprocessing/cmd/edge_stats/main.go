package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"safepath-route-server/preprocessing"
	"safepath-route-server/routing"
)

type statsDump struct {
	Source  string                  `json:"source"`
	Load    preprocessing.LoadStats `json:"load"`
	Summary preprocessing.Summary   `json:"summary"`
}

func main() {
	var in, out string
	var twoWay, skipInvalid bool
	flag.StringVar(&in, "in", "assets/unified_medellin_data.csv", "Path to the unified edge CSV or a .gob snapshot")
	flag.StringVar(&out, "out", "preprocessing/cache/edge_stats.json", "Path to write the JSON summary")
	flag.BoolVar(&twoWay, "two-way", false, "Add reverse edges for rows with oneway=false")
	flag.BoolVar(&skipInvalid, "skip-invalid", false, "Skip rows that fail to parse instead of aborting")
	flag.Parse()

	log.Printf("Loading edge list from %s...", in)
	src := preprocessing.FileSource{Path: in, CSV: preprocessing.CSVOptions{SkipInvalid: skipInvalid}}
	records, stats, err := src.Load(context.Background())
	if err != nil {
		log.Fatalf("failed to load edges: %v", err)
	}

	var opts []routing.BuildOption
	if twoWay {
		opts = append(opts, routing.WithTwoWayExpansion())
	}
	summary, err := preprocessing.Summarize(records, opts...)
	if err != nil {
		log.Fatalf("failed to summarize edges: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		log.Fatalf("failed to ensure output dir: %v", err)
	}
	f, err := os.Create(out)
	if err != nil {
		log.Fatalf("failed to create output file %s: %v", out, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(statsDump{Source: in, Load: stats, Summary: summary}); err != nil {
		log.Fatalf("failed to write JSON: %v", err)
	}

	fmt.Printf("Edge summary written to %s\n", out)
	fmt.Printf("Summary: rows=%d skipped=%d nodes=%d edges=%d mean_risk=%.3f\n",
		stats.Rows, stats.Skipped, summary.Graph.Nodes, summary.Graph.Edges, summary.RiskScore.Mean)
}

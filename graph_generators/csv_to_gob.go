package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"safepath-route-server/preprocessing"
	"safepath-route-server/routing"
)

func defaultOutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	base := strings.TrimSuffix(filepath.Base(inputPath), ext)
	return filepath.Join(filepath.Dir(inputPath), base+".gob")
}

// convertCSVToGOB reads the unified edge list, checks that it builds into a
// routing graph and writes it as a gob snapshot the server can load directly.
func convertCSVToGOB(inputPath, outputPath string, opts preprocessing.CSVOptions) error {
	records, stats, err := preprocessing.LoadCSV(inputPath, opts)
	if err != nil {
		return fmt.Errorf("failed to read CSV file %s: %w", inputPath, err)
	}

	g, err := routing.Build(records)
	if err != nil {
		return fmt.Errorf("edge list %s does not build a graph: %w", inputPath, err)
	}

	if err := preprocessing.WriteSnapshot(outputPath, filepath.Base(inputPath), records); err != nil {
		return fmt.Errorf("failed to write GOB to %s: %w", outputPath, err)
	}

	fmt.Printf("Successfully converted %s to %s\n", inputPath, outputPath)
	fmt.Printf("Rows: %d, Skipped: %d, Nodes: %d, Edges: %d\n", stats.Rows, stats.Skipped, g.NodeCount(), g.EdgeCount())
	return nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./graph_generators <input_csv_file> [output_gob_file] [--skip-invalid]")
		os.Exit(1)
	}

	var opts preprocessing.CSVOptions
	var args []string
	for _, a := range os.Args[1:] {
		if a == "--skip-invalid" {
			opts.SkipInvalid = true
			continue
		}
		args = append(args, a)
	}
	if len(args) == 0 {
		fmt.Println("Error: missing input CSV file")
		os.Exit(1)
	}

	inputPath := args[0]
	outputPath := defaultOutputPath(inputPath)
	if len(args) > 1 {
		outputPath = args[1]
	}

	if err := convertCSVToGOB(inputPath, outputPath, opts); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"safepath-route-server/config"
	"safepath-route-server/preprocessing"
	"safepath-route-server/routing"
)

type rootOptions struct {
	configPath  string
	data        string
	twoWay      bool
	skipInvalid bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "routebench",
		Short:         "Run safe-route searches against an edge list from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "optional YAML config file")
	root.PersistentFlags().StringVar(&opts.data, "data", "", "edge list CSV or .gob snapshot (overrides config)")
	root.PersistentFlags().BoolVar(&opts.twoWay, "two-way", false, "add reverse edges for rows with oneway=false")
	root.PersistentFlags().BoolVar(&opts.skipInvalid, "skip-invalid", false, "skip edge rows that fail to parse")

	root.AddCommand(newRouteCmd(opts), newCompareCmd(opts), newBenchCmd(opts))
	return root
}

// engine loads the configured edge list and wraps it in a routing engine.
func (o *rootOptions) engine(cmd *cobra.Command) (*routing.Engine, *routing.Snapshot, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return nil, nil, err
		}
	}
	path := cfg.Data.CSV
	if cfg.Data.Snapshot != "" {
		path = cfg.Data.Snapshot
	}
	if o.data != "" {
		path = o.data
	}
	if o.twoWay {
		cfg.Data.TwoWay = true
	}

	logger := config.NewLogger(cfg.Log, cmd.ErrOrStderr())
	src := preprocessing.FileSource{
		Path: path,
		CSV:  preprocessing.CSVOptions{Comma: cfg.Data.Comma(), SkipInvalid: o.skipInvalid},
	}
	snap, err := preprocessing.BuildSnapshot(cmd.Context(), src, logger, cfg.BuildOptions()...)
	if err != nil {
		return nil, nil, err
	}
	engine := routing.NewEngine(routing.NewSnapshotStore(snap), cfg.Engine(), routing.WithLogger(logger))
	return engine, snap, nil
}

type queryFlags struct {
	from, to string
	profile  string
}

func (q *queryFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&q.from, "from", "", `origin as "lon,lat"`)
	cmd.Flags().StringVar(&q.to, "to", "", `destination as "lon,lat"`)
	cmd.Flags().StringVar(&q.profile, "profile", "combined", "optimization profile: distance, risk, combined, incidents")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
}

func (q *queryFlags) resolve() (from, to routing.Coordinate, p routing.Profile, err error) {
	if from, err = preprocessing.ParseCoordinate(q.from); err != nil {
		return from, to, p, fmt.Errorf("--from: %w", err)
	}
	if to, err = preprocessing.ParseCoordinate(q.to); err != nil {
		return from, to, p, fmt.Errorf("--to: %w", err)
	}
	p, err = routing.ParseProfile(q.profile)
	return from, to, p, err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRouteCmd(root *rootOptions) *cobra.Command {
	var (
		q         queryFlags
		algorithm string
		reward    float64
		geo       bool
	)
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Find one route and print its statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, to, profile, err := q.resolve()
			if err != nil {
				return err
			}
			alg, err := routing.ParseAlgorithm(algorithm)
			if err != nil {
				return err
			}
			engine, _, err := root.engine(cmd)
			if err != nil {
				return err
			}
			route, err := engine.RouteWithFallback(routing.RouteQuery{
				Origin:       from,
				Destination:  to,
				Profile:      profile,
				Algorithm:    alg,
				CameraReward: reward,
			})
			if err != nil {
				return err
			}
			if geo {
				return writeJSON(cmd.OutOrStdout(), route.FeatureCollection())
			}
			printRoute(cmd.OutOrStdout(), route)
			return nil
		},
	}
	q.bind(cmd)
	cmd.Flags().StringVar(&algorithm, "algorithm", string(routing.Dijkstra), "search algorithm")
	cmd.Flags().Float64Var(&reward, "camera-reward", 0, "subtract this much per normalized camera coverage (bellman_ford only)")
	cmd.Flags().BoolVar(&geo, "geojson", false, "print the route as a GeoJSON FeatureCollection")
	return cmd
}

func printRoute(w io.Writer, r *routing.Route) {
	names := make([]string, 0, len(r.Segments))
	for _, s := range r.Segments {
		if s.Name == "" {
			continue
		}
		if n := len(names); n > 0 && names[n-1] == s.Name {
			continue
		}
		names = append(names, s.Name)
	}
	fmt.Fprintf(w, "Algorithm:      %s\n", r.Algorithm)
	fmt.Fprintf(w, "Optimization:   %s\n", r.Profile)
	fmt.Fprintf(w, "Distance:       %.1f m\n", r.Statistics.TotalDistance)
	fmt.Fprintf(w, "Segments:       %d\n", r.Statistics.NumSegments)
	fmt.Fprintf(w, "Average risk:   %.3f\n", r.Statistics.AvgRisk)
	fmt.Fprintf(w, "Cameras:        %d\n", r.Statistics.TotalCameras)
	fmt.Fprintf(w, "Incidents:      %d\n", r.Statistics.TotalIncidents)
	fmt.Fprintf(w, "Cost:           %.4f\n", r.Statistics.Cost)
	fmt.Fprintf(w, "Nodes explored: %d\n", r.Performance.NodesExplored)
	fmt.Fprintf(w, "Time:           %.3f ms\n", r.Performance.ExecutionTimeMs)
	if len(names) > 0 {
		fmt.Fprintf(w, "Streets:        %s\n", strings.Join(names, " -> "))
	}
}

func newCompareCmd(root *rootOptions) *cobra.Command {
	var (
		q          queryFlags
		algorithms string
		profiles   string
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Run several algorithms on one query and rank them, or one algorithm under several profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, to, profile, err := q.resolve()
			if err != nil {
				return err
			}
			var algs []routing.Algorithm
			if algorithms != "" {
				if algs, err = routing.ParseAlgorithms(algorithms); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("profiles") {
				return compareProfiles(cmd, root, from, to, algs, profiles, asJSON)
			}
			engine, _, err := root.engine(cmd)
			if err != nil {
				return err
			}
			cmp, err := engine.Compare(routing.CompareQuery{
				Origin:      from,
				Destination: to,
				Profile:     profile,
				Algorithms:  algs,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), cmp)
			}
			printComparison(cmd.OutOrStdout(), cmp)
			return nil
		},
	}
	q.bind(cmd)
	cmd.Flags().StringVar(&algorithms, "algorithms", "", "comma-separated algorithms (default: all but k_shortest)")
	cmd.Flags().StringVar(&profiles, "profiles", "", "compare these profiles with one algorithm instead (default: distance,risk,combined)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the comparison as JSON")
	return cmd
}

func compareProfiles(cmd *cobra.Command, root *rootOptions, from, to routing.Coordinate, algs []routing.Algorithm, profiles string, asJSON bool) error {
	if len(algs) > 1 {
		return fmt.Errorf("--profiles takes a single algorithm, got %d", len(algs))
	}
	var alg routing.Algorithm
	if len(algs) == 1 {
		alg = algs[0]
	}
	ps, err := routing.ParseProfiles(profiles)
	if err != nil {
		return err
	}
	engine, _, err := root.engine(cmd)
	if err != nil {
		return err
	}
	cmp, err := engine.CompareProfiles(routing.ProfileCompareQuery{
		Origin:      from,
		Destination: to,
		Algorithm:   alg,
		Profiles:    ps,
	})
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), cmp)
	}
	printProfileComparison(cmd.OutOrStdout(), cmp)
	return nil
}

func printProfileComparison(w io.Writer, c *routing.ProfileComparison) {
	fmt.Fprintf(w, "Algorithm: %s\n", c.Algorithm)
	fmt.Fprintf(w, "%-12s %12s %10s %8s %10s  %s\n", "PROFILE", "DISTANCE_M", "AVG_RISK", "CAMERAS", "INCIDENTS", "ERROR")
	for _, e := range c.Results {
		if e.Route == nil {
			fmt.Fprintf(w, "%-12s %12s %10s %8s %10s  %s: %s\n", e.Profile, "-", "-", "-", "-", e.Kind, e.Error)
			continue
		}
		st := e.Route.Statistics
		fmt.Fprintf(w, "%-12s %12.1f %10.3f %8d %10d\n", e.Profile, st.TotalDistance, st.AvgRisk, st.TotalCameras, st.TotalIncidents)
	}
}

func printComparison(w io.Writer, c *routing.Comparison) {
	fmt.Fprintf(w, "%-18s %12s %12s %10s %10s  %s\n", "ALGORITHM", "COST", "DISTANCE_M", "EXPLORED", "TIME_MS", "ERROR")
	for _, e := range c.Results {
		if e.Route == nil {
			fmt.Fprintf(w, "%-18s %12s %12s %10s %10s  %s: %s\n", e.Algorithm, "-", "-", "-", "-", e.Kind, e.Error)
			continue
		}
		r := e.Route
		fmt.Fprintf(w, "%-18s %12.4f %12.1f %10d %10.3f\n",
			e.Algorithm, r.Statistics.Cost, r.Statistics.TotalDistance, r.Performance.NodesExplored, r.Performance.ExecutionTimeMs)
	}
	ranking := make([]string, len(c.Ranking))
	for i, a := range c.Ranking {
		ranking[i] = string(a)
	}
	fmt.Fprintf(w, "Ranking (%s): %s\n", c.Profile, strings.Join(ranking, ", "))
}

type benchRow struct {
	Algorithm     routing.Algorithm `json:"algorithm"`
	Runs          int               `json:"runs"`
	Found         int               `json:"found"`
	Optimal       int               `json:"optimal"`
	Failures      map[string]int    `json:"failures,omitempty"`
	MeanTimeMs    float64           `json:"mean_time_ms"`
	MeanExplored  float64           `json:"mean_nodes_explored"`
	totalTime     float64
	totalExplored int
}

// runBench routes between random node pairs with every algorithm. A found
// route is optimal when its cost matches the cheapest cost any algorithm
// found for that pair.
func runBench(engine *routing.Engine, g *routing.Graph, p routing.Profile, algs []routing.Algorithm, runs int, seed int64) []*benchRow {
	rows := make([]*benchRow, len(algs))
	for i, alg := range algs {
		rows[i] = &benchRow{Algorithm: alg, Failures: map[string]int{}}
	}
	rng := rand.New(rand.NewSource(seed))
	n := g.NodeCount()

	for run := 0; run < runs; run++ {
		from, _ := g.Node(rng.Int63n(int64(n)))
		to, _ := g.Node(rng.Int63n(int64(n)))
		costs := make([]float64, len(algs))
		best := math.Inf(1)
		for i, alg := range algs {
			costs[i] = math.NaN()
			row := rows[i]
			row.Runs++
			route, err := engine.Route(routing.RouteQuery{Origin: from.Coord, Destination: to.Coord, Profile: p, Algorithm: alg})
			if err != nil {
				row.Failures[routing.Kind(err)]++
				continue
			}
			row.Found++
			row.totalTime += route.Performance.ExecutionTimeMs
			row.totalExplored += route.Performance.NodesExplored
			costs[i] = route.Statistics.Cost
			best = math.Min(best, costs[i])
		}
		for i, c := range costs {
			if !math.IsNaN(c) && c <= best+1e-9*math.Max(1, math.Abs(best)) {
				rows[i].Optimal++
			}
		}
	}

	for _, row := range rows {
		if row.Found > 0 {
			row.MeanTimeMs = row.totalTime / float64(row.Found)
			row.MeanExplored = float64(row.totalExplored) / float64(row.Found)
		}
	}
	return rows
}

func newBenchCmd(root *rootOptions) *cobra.Command {
	var (
		algorithms string
		profile    string
		runs       int
		seed       int64
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Route between random node pairs and report per-algorithm timings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if runs < 1 {
				return fmt.Errorf("--runs must be at least 1")
			}
			p, err := routing.ParseProfile(profile)
			if err != nil {
				return err
			}
			algs := routing.DefaultCompareAlgorithms()
			if algorithms != "" {
				if algs, err = routing.ParseAlgorithms(algorithms); err != nil {
					return err
				}
			}
			engine, snap, err := root.engine(cmd)
			if err != nil {
				return err
			}

			rows := runBench(engine, snap.Graph, p, algs, runs, seed)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), rows)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d runs, profile %s, %d nodes, %d edges\n", runs, p, snap.Graph.NodeCount(), snap.Graph.EdgeCount())
			fmt.Fprintf(out, "%-18s %6s %8s %10s %12s  %s\n", "ALGORITHM", "FOUND", "OPTIMAL", "MEAN_MS", "MEAN_NODES", "FAILURES")
			for _, r := range rows {
				fmt.Fprintf(out, "%-18s %6d %8d %10.3f %12.1f  %s\n",
					r.Algorithm, r.Found, r.Optimal, r.MeanTimeMs, r.MeanExplored, formatFailures(r.Failures))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&algorithms, "algorithms", "", "comma-separated algorithms (default: all but k_shortest)")
	cmd.Flags().StringVar(&profile, "profile", "combined", "optimization profile")
	cmd.Flags().IntVar(&runs, "runs", 100, "number of random origin/destination pairs")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed for pair selection")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}

func formatFailures(m map[string]int) string {
	if len(m) == 0 {
		return "-"
	}
	kinds := make([]string, 0, len(m))
	for k := range m {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%s=%d", k, m[k])
	}
	return strings.Join(parts, " ")
}

package routing

import (
	"errors"
	"fmt"
	"log/slog"
)

// EngineConfig tunes query resolution and the strategies.
type EngineConfig struct {
	SnapRadiusM        float64
	Strategies         StrategyConfig
	CompareParallelism int
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		SnapRadiusM:        500,
		Strategies:         DefaultStrategyConfig(),
		CompareParallelism: 4,
	}
}

// Engine answers route queries against whatever snapshot is current when
// the query starts.
type Engine struct {
	store    *SnapshotStore
	cfg      EngineConfig
	registry *Registry
	metrics  *Metrics
	log      *slog.Logger
}

type EngineOption func(*Engine)

func WithMetrics(m *Metrics) EngineOption { return func(e *Engine) { e.metrics = m } }

func WithLogger(l *slog.Logger) EngineOption { return func(e *Engine) { e.log = l } }

// WithRegistry replaces the default strategy registry.
func WithRegistry(r *Registry) EngineOption { return func(e *Engine) { e.registry = r } }

func NewEngine(store *SnapshotStore, cfg EngineConfig, opts ...EngineOption) *Engine {
	e := &Engine{store: store, cfg: cfg, log: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = NewRegistry(cfg.Strategies)
	}
	return e
}

func (e *Engine) Registry() *Registry { return e.registry }

// Snapshot returns the current snapshot or an error before one is loaded.
func (e *Engine) Snapshot() (*Snapshot, error) {
	snap := e.store.Current()
	if snap == nil || snap.Graph == nil {
		return nil, errors.New("routing: no graph snapshot loaded")
	}
	return snap, nil
}

type RouteQuery struct {
	Origin       Coordinate
	Destination  Coordinate
	Profile      Profile
	Algorithm    Algorithm
	CameraReward float64
}

type CompareQuery struct {
	Origin      Coordinate
	Destination Coordinate
	Profile     Profile
	Algorithms  []Algorithm // empty means every algorithm except k_shortest
}

type ProfileCompareQuery struct {
	Origin      Coordinate
	Destination Coordinate
	Algorithm   Algorithm // empty means dijkstra
	Profiles    []Profile // empty means distance, risk and combined
}

type AlternativesQuery struct {
	Origin      Coordinate
	Destination Coordinate
	Profile     Profile
	K           int
}

func (e *Engine) resolve(g *Graph, origin, dest Coordinate) (int64, int64, error) {
	from, err := g.NearestNode(origin, e.cfg.SnapRadiusM)
	if err != nil {
		return 0, 0, fmt.Errorf("origin: %w", err)
	}
	to, err := g.NearestNode(dest, e.cfg.SnapRadiusM)
	if err != nil {
		return 0, 0, fmt.Errorf("destination: %w", err)
	}
	return from.ID, to.ID, nil
}

func (e *Engine) costModel(snap *Snapshot, reward float64) CostModel {
	if reward == 0 {
		return snap.Costs
	}
	return NewCameraReward(snap.Graph, snap.Costs, reward)
}

// Route resolves both coordinates and runs a single strategy.
func (e *Engine) Route(q RouteQuery) (*Route, error) {
	snap, err := e.Snapshot()
	if err != nil {
		return nil, err
	}
	if q.Algorithm == "" {
		q.Algorithm = Dijkstra
	}
	strategy, err := e.registry.Get(q.Algorithm)
	if err != nil {
		return nil, err
	}
	origin, dest, err := e.resolve(snap.Graph, q.Origin, q.Destination)
	if err != nil {
		e.metrics.ObserveFailure(q.Algorithm, err)
		return nil, err
	}

	res, err := strategy.Search(snap.Graph, e.costModel(snap, q.CameraReward), q.Profile, origin, dest)
	if err != nil {
		e.metrics.ObserveFailure(q.Algorithm, err)
		e.log.Debug("search failed", "algorithm", q.Algorithm, "profile", q.Profile, "kind", Kind(err), "error", err)
		return nil, err
	}
	route, err := Assemble(res, snap.Graph, q.Profile, q.Algorithm)
	if err != nil {
		return nil, err
	}
	e.metrics.ObserveRoute(route)
	e.log.Debug("route found",
		"algorithm", q.Algorithm,
		"profile", q.Profile,
		"snapshot", snap.ID,
		"nodes", route.Performance.NodesInPath,
		"explored", route.Performance.NodesExplored,
		"cost", route.Statistics.Cost,
	)
	return route, nil
}

// RouteWithFallback behaves like Route but retries once with Dijkstra on the
// plain profile cost when the requested search hits a negative cycle.
func (e *Engine) RouteWithFallback(q RouteQuery) (*Route, error) {
	route, err := e.Route(q)
	if !errors.Is(err, ErrNegativeCycleDetected) {
		return route, err
	}
	e.log.Warn("negative cycle, retrying with dijkstra on base cost",
		"algorithm", q.Algorithm, "profile", q.Profile, "camera_reward", q.CameraReward)
	q.Algorithm = Dijkstra
	q.CameraReward = 0
	return e.Route(q)
}

// DefaultCompareAlgorithms is every algorithm except k_shortest.
func DefaultCompareAlgorithms() []Algorithm {
	var out []Algorithm
	for _, alg := range Algorithms() {
		if alg != KShortest {
			out = append(out, alg)
		}
	}
	return out
}

// Compare runs several strategies on the same resolved endpoints.
func (e *Engine) Compare(q CompareQuery) (*Comparison, error) {
	snap, err := e.Snapshot()
	if err != nil {
		return nil, err
	}
	algs := q.Algorithms
	if len(algs) == 0 {
		algs = DefaultCompareAlgorithms()
	}
	strategies := make([]Strategy, 0, len(algs))
	for _, alg := range algs {
		s, err := e.registry.Get(alg)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, s)
	}
	origin, dest, err := e.resolve(snap.Graph, q.Origin, q.Destination)
	if err != nil {
		return nil, err
	}

	c, err := Compare(snap.Graph, snap.Costs, q.Profile, origin, dest, strategies, e.cfg.CompareParallelism)
	if err != nil {
		return nil, err
	}
	e.metrics.ObserveComparison(c)
	e.log.Debug("comparison done", "profile", q.Profile, "algorithms", len(algs), "ranked", len(c.Ranking))
	return c, nil
}

// CompareProfiles runs one strategy under several profiles on the same
// resolved endpoints.
func (e *Engine) CompareProfiles(q ProfileCompareQuery) (*ProfileComparison, error) {
	snap, err := e.Snapshot()
	if err != nil {
		return nil, err
	}
	if q.Algorithm == "" {
		q.Algorithm = Dijkstra
	}
	profiles := q.Profiles
	if len(profiles) == 0 {
		profiles = DefaultCompareProfiles()
	}
	strategy, err := e.registry.Get(q.Algorithm)
	if err != nil {
		return nil, err
	}
	origin, dest, err := e.resolve(snap.Graph, q.Origin, q.Destination)
	if err != nil {
		return nil, err
	}

	c, err := CompareProfiles(snap.Graph, snap.Costs, strategy, origin, dest, profiles, e.cfg.CompareParallelism)
	if err != nil {
		return nil, err
	}
	e.metrics.ObserveEntries(c.Results)
	e.log.Debug("profile comparison done", "algorithm", q.Algorithm, "profiles", len(profiles))
	return c, nil
}

// Alternatives returns up to K loopless routes, cheapest first.
func (e *Engine) Alternatives(q AlternativesQuery) ([]*Route, error) {
	snap, err := e.Snapshot()
	if err != nil {
		return nil, err
	}
	k := q.K
	if k == 0 {
		k = e.cfg.Strategies.K
	}
	origin, dest, err := e.resolve(snap.Graph, q.Origin, q.Destination)
	if err != nil {
		return nil, err
	}

	yen := YenSearch{K: k, MaxK: e.cfg.Strategies.MaxK}
	paths, err := yen.Paths(snap.Graph, snap.Costs, q.Profile, origin, dest, k)
	if err != nil {
		e.metrics.ObserveFailure(KShortest, err)
		return nil, err
	}
	routes := make([]*Route, 0, len(paths))
	for _, p := range paths {
		route, err := Assemble(p, snap.Graph, q.Profile, KShortest)
		if err != nil {
			return nil, err
		}
		routes = append(routes, route)
	}
	if len(routes) > 0 {
		e.metrics.ObserveRoute(routes[0])
	}
	return routes, nil
}

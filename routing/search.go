package routing

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Algorithm names a search strategy.
type Algorithm string

const (
	Dijkstra       Algorithm = "dijkstra"
	AStar          Algorithm = "astar"
	BellmanFord    Algorithm = "bellman_ford"
	Greedy         Algorithm = "greedy"
	Backtracking   Algorithm = "backtracking"
	BranchAndBound Algorithm = "branch_and_bound"
	KShortest      Algorithm = "k_shortest"
)

// Algorithms lists every registered algorithm in a stable order.
func Algorithms() []Algorithm {
	return []Algorithm{Dijkstra, AStar, BellmanFord, Greedy, Backtracking, BranchAndBound, KShortest}
}

// ParseAlgorithm resolves a name or one of its aliases.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dijkstra":
		return Dijkstra, nil
	case "astar", "a*", "a_star", "a-star":
		return AStar, nil
	case "bellman_ford", "bellman-ford", "bellmanford":
		return BellmanFord, nil
	case "greedy":
		return Greedy, nil
	case "backtracking":
		return Backtracking, nil
	case "branch_and_bound", "branch-and-bound", "bnb":
		return BranchAndBound, nil
	case "k_shortest", "k-shortest", "yen":
		return KShortest, nil
	}
	return "", invalidArgf("unknown algorithm %q", s)
}

// ParseAlgorithms parses a comma-separated list. Empty input yields nil.
func ParseAlgorithms(s string) ([]Algorithm, error) {
	var out []Algorithm
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		alg, err := ParseAlgorithm(part)
		if err != nil {
			return nil, err
		}
		out = append(out, alg)
	}
	return out, nil
}

// SearchResult is the raw output of a strategy. Cost is the sum of the
// profile weights along Path.
type SearchResult struct {
	Path          []int64
	Cost          float64
	NodesExplored int
	Elapsed       time.Duration
	Alternatives  []*SearchResult
}

// Strategy is a pluggable path search. Implementations keep all search state
// local to Search so one value can serve concurrent queries.
type Strategy interface {
	Name() Algorithm
	Search(g *Graph, cost CostModel, p Profile, origin, dest int64) (*SearchResult, error)
}

// Budget bounds the exhaustive strategies. Zero fields are unlimited.
type Budget struct {
	MaxSteps    int           `yaml:"max_steps" validate:"gte=0"`
	MaxDuration time.Duration `yaml:"max_duration" validate:"gte=0"`
}

func (b Budget) exceeded(steps int, start time.Time) (string, bool) {
	if b.MaxSteps > 0 && steps > b.MaxSteps {
		return fmt.Sprintf("max %d steps", b.MaxSteps), true
	}
	if b.MaxDuration > 0 && steps%256 == 0 && time.Since(start) > b.MaxDuration {
		return fmt.Sprintf("max %s", b.MaxDuration), true
	}
	return "", false
}

const (
	DefaultMaxSteps    = 1_000_000
	DefaultMaxDuration = 2 * time.Second
	DefaultMaxK        = 5
	DefaultK           = 3
)

// StrategyConfig carries the tunables of the strategies that have any.
type StrategyConfig struct {
	Backtracking   Budget
	BranchAndBound Budget
	K              int
	MaxK           int
}

func DefaultStrategyConfig() StrategyConfig {
	b := Budget{MaxSteps: DefaultMaxSteps, MaxDuration: DefaultMaxDuration}
	return StrategyConfig{Backtracking: b, BranchAndBound: b, K: DefaultK, MaxK: DefaultMaxK}
}

// Registry maps algorithm names to configured strategies.
type Registry struct {
	strategies map[Algorithm]Strategy
}

func NewRegistry(cfg StrategyConfig) *Registry {
	r := &Registry{strategies: make(map[Algorithm]Strategy)}
	for _, s := range []Strategy{
		DijkstraSearch{},
		AStarSearch{},
		BellmanFordSearch{},
		GreedySearch{},
		BacktrackingSearch{Budget: cfg.Backtracking},
		BranchAndBoundSearch{Budget: cfg.BranchAndBound},
		YenSearch{K: cfg.K, MaxK: cfg.MaxK},
	} {
		r.Register(s)
	}
	return r
}

// Register adds or replaces the strategy under its own name.
func (r *Registry) Register(s Strategy) { r.strategies[s.Name()] = s }

func (r *Registry) Get(alg Algorithm) (Strategy, error) {
	s, ok := r.strategies[alg]
	if !ok {
		return nil, invalidArgf("algorithm %q is not registered", alg)
	}
	return s, nil
}

// Lookup parses name and returns the registered strategy.
func (r *Registry) Lookup(name string) (Strategy, error) {
	alg, err := ParseAlgorithm(name)
	if err != nil {
		return nil, err
	}
	return r.Get(alg)
}

func validateQuery(g *Graph, p Profile, origin, dest int64) error {
	if g == nil {
		return invalidArgf("nil graph")
	}
	if !p.Valid() {
		return invalidArgf("profile %d", int(p))
	}
	if _, ok := g.Node(origin); !ok {
		return invalidArgf("origin node %d not in graph", origin)
	}
	if _, ok := g.Node(dest); !ok {
		return invalidArgf("destination node %d not in graph", dest)
	}
	return nil
}

func trivialResult(origin int64, start time.Time) *SearchResult {
	return &SearchResult{Path: []int64{origin}, NodesExplored: 1, Elapsed: time.Since(start)}
}

func negativeWeight(alg Algorithm, e *Edge, w float64) error {
	return invalidArgf("%s cannot use negative weight %g on edge %d -> %d", alg, w, e.FromID, e.ToID)
}

func noPath(origin, dest int64) error {
	return fmt.Errorf("%w: %d -> %d", ErrNoPathFound, origin, dest)
}

func newDistances(n int) []float64 {
	d := make([]float64, n)
	for i := range d {
		d[i] = math.Inf(1)
	}
	return d
}

func newPredecessors(n int) []int64 {
	p := make([]int64, n)
	for i := range p {
		p[i] = -1
	}
	return p
}

// tracePath walks predecessors back from dest.
func tracePath(prev []int64, origin, dest int64) []int64 {
	path := []int64{dest}
	for cur := dest; cur != origin; {
		cur = prev[cur]
		if cur < 0 || len(path) > len(prev) {
			return nil
		}
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// PathCost sums the weights along path, failing on a missing edge.
func PathCost(g *Graph, cost CostModel, p Profile, path []int64) (float64, error) {
	total := 0.0
	for i := 1; i < len(path); i++ {
		e, ok := g.Edge(path[i-1], path[i])
		if !ok {
			return 0, invalidArgf("no edge %d -> %d", path[i-1], path[i])
		}
		total += cost.Weight(e, p)
	}
	return total, nil
}

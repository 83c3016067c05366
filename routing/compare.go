package routing

import (
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ComparisonEntry is the outcome of one search in a comparison: either a
// route or a failure note with its error kind.
type ComparisonEntry struct {
	Algorithm Algorithm `json:"algorithm"`
	Profile   Profile   `json:"optimization"`
	Route     *Route    `json:"route,omitempty"`
	Error     string    `json:"error,omitempty"`
	Kind      string    `json:"kind,omitempty"`

	err error
}

// Err returns the underlying failure, if any.
func (e ComparisonEntry) Err() error { return e.err }

// Comparison keeps entries in request order. Ranking lists the algorithms
// that succeeded, cheapest first, ties broken by fewer explored nodes.
type Comparison struct {
	Profile Profile           `json:"optimization"`
	Results []ComparisonEntry `json:"results"`
	Ranking []Algorithm       `json:"ranking"`
}

// Best returns the top-ranked route, or nil when every strategy failed.
func (c *Comparison) Best() *Route {
	if len(c.Ranking) == 0 {
		return nil
	}
	for _, e := range c.Results {
		if e.Algorithm == c.Ranking[0] {
			return e.Route
		}
	}
	return nil
}

// Compare runs every strategy on the same query concurrently. A failing or
// panicking strategy is recorded in its entry and never aborts the others.
// parallelism <= 0 runs all strategies at once.
func Compare(g *Graph, cost CostModel, p Profile, origin, dest int64, strategies []Strategy, parallelism int) (*Comparison, error) {
	if len(strategies) == 0 {
		return nil, invalidArgf("no algorithms to compare")
	}
	seen := make(map[Algorithm]bool, len(strategies))
	for _, s := range strategies {
		if seen[s.Name()] {
			return nil, invalidArgf("algorithm %q requested twice", s.Name())
		}
		seen[s.Name()] = true
	}

	entries := runAll(len(strategies), parallelism, func(i int) ComparisonEntry {
		return runEntry(g, cost, p, origin, dest, strategies[i])
	})

	c := &Comparison{Profile: p, Results: entries}
	ranked := make([]ComparisonEntry, 0, len(entries))
	for _, e := range entries {
		if e.Route != nil {
			ranked = append(ranked, e)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].Route, ranked[j].Route
		if a.Statistics.Cost != b.Statistics.Cost {
			return a.Statistics.Cost < b.Statistics.Cost
		}
		return a.Performance.NodesExplored < b.Performance.NodesExplored
	})
	for _, e := range ranked {
		c.Ranking = append(c.Ranking, e.Algorithm)
	}
	return c, nil
}

// ProfileComparison is one strategy run once per profile. Costs are in
// each profile's own unit, so entries are not ranked against each other.
type ProfileComparison struct {
	Algorithm Algorithm         `json:"algorithm"`
	Results   []ComparisonEntry `json:"results"`
}

// DefaultCompareProfiles are the profiles compared when none are requested.
func DefaultCompareProfiles() []Profile {
	return []Profile{ProfileDistance, ProfileRisk, ProfileCombined}
}

// CompareProfiles runs s on the same endpoints under each profile
// concurrently, showing for instance what the safest route costs in
// distance. Failures are isolated per entry as in Compare.
func CompareProfiles(g *Graph, cost CostModel, s Strategy, origin, dest int64, profiles []Profile, parallelism int) (*ProfileComparison, error) {
	if len(profiles) == 0 {
		return nil, invalidArgf("no profiles to compare")
	}
	seen := make(map[Profile]bool, len(profiles))
	for _, p := range profiles {
		if !p.Valid() {
			return nil, invalidArgf("profile %d", int(p))
		}
		if seen[p] {
			return nil, invalidArgf("profile %q requested twice", p)
		}
		seen[p] = true
	}

	entries := runAll(len(profiles), parallelism, func(i int) ComparisonEntry {
		return runEntry(g, cost, profiles[i], origin, dest, s)
	})
	return &ProfileComparison{Algorithm: s.Name(), Results: entries}, nil
}

// runAll evaluates run(0..n-1) on at most parallelism goroutines and keeps
// the results in index order.
func runAll(n, parallelism int, run func(i int) ComparisonEntry) []ComparisonEntry {
	entries := make([]ComparisonEntry, n)
	var eg errgroup.Group
	if parallelism > 0 {
		eg.SetLimit(parallelism)
	}
	for i := 0; i < n; i++ {
		i := i
		eg.Go(func() error {
			entries[i] = run(i)
			return nil
		})
	}
	_ = eg.Wait()
	return entries
}

func runEntry(g *Graph, cost CostModel, p Profile, origin, dest int64, s Strategy) (entry ComparisonEntry) {
	entry.Algorithm = s.Name()
	entry.Profile = p
	defer func() {
		if r := recover(); r != nil {
			entry.Route = nil
			entry.fail(fmt.Errorf("%s panicked: %v", s.Name(), r))
		}
	}()

	res, err := s.Search(g, cost, p, origin, dest)
	if err != nil {
		entry.fail(err)
		return entry
	}
	route, err := Assemble(res, g, p, s.Name())
	if err != nil {
		entry.fail(err)
		return entry
	}
	entry.Route = route
	return entry
}

func (e *ComparisonEntry) fail(err error) {
	e.err = err
	e.Error = err.Error()
	e.Kind = Kind(err)
}

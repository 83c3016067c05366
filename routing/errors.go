package routing

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the routing engine. Callers should match them
// with errors.Is; most are wrapped with request context.
var (
	// ErrNodeNotFound: the query coordinate has no graph node within the snap radius.
	ErrNodeNotFound = errors.New("routing: node not found")

	// ErrNoPathFound: the destination is unreachable from the origin.
	ErrNoPathFound = errors.New("routing: no path found")

	// ErrNegativeCycleDetected is only returned by Bellman-Ford.
	ErrNegativeCycleDetected = errors.New("routing: negative cycle detected")

	// ErrDeadEnd is only returned by the greedy strategy.
	ErrDeadEnd = errors.New("routing: dead end")

	// ErrSearchBudgetExceeded is returned by backtracking and branch and bound.
	ErrSearchBudgetExceeded = errors.New("routing: search budget exceeded")

	// ErrInvalidArgument covers bad profiles, algorithm names, k values and malformed input.
	ErrInvalidArgument = errors.New("routing: invalid argument")
)

// BudgetError reports an exhausted step or time budget. Best holds the best
// complete path found before the budget ran out, or nil.
type BudgetError struct {
	Algorithm Algorithm
	Steps     int
	Limit     string
	Best      *SearchResult
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("%s: %s after %d steps (%s)", ErrSearchBudgetExceeded, e.Algorithm, e.Steps, e.Limit)
}

func (e *BudgetError) Unwrap() error { return ErrSearchBudgetExceeded }

// Kind returns the taxonomy name of err, used for API responses and metric labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNodeNotFound):
		return "NodeNotFound"
	case errors.Is(err, ErrNoPathFound):
		return "NoPathFound"
	case errors.Is(err, ErrNegativeCycleDetected):
		return "NegativeCycleDetected"
	case errors.Is(err, ErrDeadEnd):
		return "DeadEnd"
	case errors.Is(err, ErrSearchBudgetExceeded):
		return "SearchBudgetExceeded"
	case errors.Is(err, ErrInvalidArgument):
		return "InvalidArgument"
	default:
		return "Internal"
	}
}

func invalidArgf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

package routing

import (
	"container/heap"
	"errors"
	"strconv"
	"strings"
	"time"
)

// YenSearch returns up to K loopless paths in non-decreasing cost order.
type YenSearch struct {
	K    int
	MaxK int
}

func (YenSearch) Name() Algorithm { return KShortest }

// Search returns the cheapest path with the others in Alternatives.
func (y YenSearch) Search(g *Graph, cost CostModel, p Profile, origin, dest int64) (*SearchResult, error) {
	k := y.K
	if k == 0 {
		k = DefaultK
	}
	paths, err := y.Paths(g, cost, p, origin, dest, k)
	if err != nil {
		return nil, err
	}
	best := *paths[0]
	best.Alternatives = paths[1:]
	return &best, nil
}

type yenCandidate struct {
	path []int64
	cost float64
	seq  int
}

type candidateHeap []*yenCandidate

func (h candidateHeap) Len() int { return len(h) }
func (h candidateHeap) Less(i, j int) bool {
	if h[i].cost != h[j].cost {
		return h[i].cost < h[j].cost
	}
	return h[i].seq < h[j].seq
}
func (h candidateHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x interface{}) { *h = append(*h, x.(*yenCandidate)) }
func (h *candidateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

func pathKey(path []int64) string {
	var b strings.Builder
	for i, id := range path {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
	return b.String()
}

func hasPrefix(path, prefix []int64) bool {
	if len(path) < len(prefix) {
		return false
	}
	for i := range prefix {
		if path[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Paths runs Yen's algorithm for k paths. It returns fewer than k when the
// graph has fewer distinct loopless paths.
func (y YenSearch) Paths(g *Graph, cost CostModel, p Profile, origin, dest int64, k int) ([]*SearchResult, error) {
	start := time.Now()
	maxK := y.MaxK
	if maxK <= 0 {
		maxK = DefaultMaxK
	}
	if k < 1 || k > maxK {
		return nil, invalidArgf("k=%d outside [1, %d]", k, maxK)
	}
	if err := validateQuery(g, p, origin, dest); err != nil {
		return nil, err
	}
	if origin == dest {
		return []*SearchResult{trivialResult(origin, start)}, nil
	}

	first, err := shortestPath(g, cost, p, origin, dest, nil)
	if err != nil {
		return nil, err
	}
	accepted := []*SearchResult{first}
	seen := map[string]bool{pathKey(first.Path): true}
	explored := first.NodesExplored
	candidates := &candidateHeap{}
	seq := 0

	for len(accepted) < k {
		last := accepted[len(accepted)-1].Path
		for i := 0; i < len(last)-1; i++ {
			spur := last[i]
			root := last[:i+1]

			skip := newExclusion()
			for _, a := range accepted {
				if len(a.Path) > i+1 && hasPrefix(a.Path, root) {
					skip.edges[edgeKey{a.Path[i], a.Path[i+1]}] = true
				}
			}
			for _, id := range root[:i] {
				skip.nodes[id] = true
			}

			spurPath, err := shortestPath(g, cost, p, spur, dest, skip)
			if errors.Is(err, ErrNoPathFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			explored += spurPath.NodesExplored

			full := make([]int64, 0, i+len(spurPath.Path))
			full = append(full, root[:i]...)
			full = append(full, spurPath.Path...)
			key := pathKey(full)
			if seen[key] {
				continue
			}
			seen[key] = true
			total, err := PathCost(g, cost, p, full)
			if err != nil {
				return nil, err
			}
			seq++
			heap.Push(candidates, &yenCandidate{path: full, cost: total, seq: seq})
		}
		if candidates.Len() == 0 {
			break
		}
		next := heap.Pop(candidates).(*yenCandidate)
		accepted = append(accepted, &SearchResult{Path: next.path, Cost: next.cost})
	}

	elapsed := time.Since(start)
	for _, r := range accepted {
		r.NodesExplored = explored
		r.Elapsed = elapsed
	}
	return accepted, nil
}

package routing

import "container/heap"

type PriorityQueueItem struct {
	NodeID   int64
	Priority float64
	GScore   float64
	Label    int // index into a caller-owned label arena, -1 if unused
	seq      uint64
	Index    int
}

// PriorityQueue is a min-heap on Priority. Equal priorities pop in the
// order they were pushed.
type PriorityQueue struct {
	items []*PriorityQueueItem
	seq   uint64
}

func (pq *PriorityQueue) Len() int { return len(pq.items) }

func (pq *PriorityQueue) Less(i, j int) bool {
	a, b := pq.items[i], pq.items[j]
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.seq < b.seq
}

func (pq *PriorityQueue) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
	pq.items[i].Index = i
	pq.items[j].Index = j
}

func (pq *PriorityQueue) Push(x interface{}) {
	item := x.(*PriorityQueueItem)
	item.Index = len(pq.items)
	pq.items = append(pq.items, item)
}

func (pq *PriorityQueue) Pop() interface{} {
	old := pq.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.Index = -1
	pq.items = old[:n-1]
	return item
}

func (pq *PriorityQueue) push(node int64, priority, gScore float64, label int) {
	pq.seq++
	heap.Push(pq, &PriorityQueueItem{NodeID: node, Priority: priority, GScore: gScore, Label: label, seq: pq.seq})
}

func (pq *PriorityQueue) pop() *PriorityQueueItem {
	return heap.Pop(pq).(*PriorityQueueItem)
}

// peek returns the minimum item without removing it.
func (pq *PriorityQueue) peek() *PriorityQueueItem { return pq.items[0] }

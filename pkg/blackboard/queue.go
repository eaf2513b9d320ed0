package blackboard

import (
	"github.com/wolftrace/deaddrop/pkg/types"
)

// task is one queued knowledge-source invocation
type task struct {
	priority  Priority
	seq       uint64
	source    *Source
	caseID    string
	eventType string
	mutation  types.Mutation
}

// taskHeap is a binary heap over (priority, seq). seq is a monotonic
// counter, so ties at the same priority break strictly FIFO. Language
// priority queues that break ties arbitrarily would reorder same-case
// work.
type taskHeap []*task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) { *h = append(*h, x.(*task)) }

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

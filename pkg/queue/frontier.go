package queue

import (
	"container/heap"
	"sync"

	"github.com/sirupsen/logrus"

	"crawl-core/pkg/models"
)

// frontierItem is one entry of the heap
type frontierItem struct {
	workItem models.WorkItem
	seq      uint64 // Insertion order; breaks ties between equal depths
	index    int
}

// depthHeap implements heap.Interface ordered by (depth, insertion order),
// which makes the crawl breadth-first.
type depthHeap []*frontierItem

func (h depthHeap) Len() int { return len(h) }

func (h depthHeap) Less(i, j int) bool {
	if h[i].workItem.Depth != h[j].workItem.Depth {
		return h[i].workItem.Depth < h[j].workItem.Depth
	}
	return h[i].seq < h[j].seq
}

func (h depthHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *depthHeap) Push(x any) {
	item := x.(*frontierItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *depthHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[0 : n-1]
	return item
}

// Frontier is a blocking, concurrency-safe queue of URLs waiting to be fetched.
// Shallower items are popped first; items of equal depth come out in the
// order they were added.
type Frontier struct {
	h      depthHeap
	mu     sync.Mutex
	cond   *sync.Cond // Signalled on Add and Close
	nextSq uint64
	closed bool
	log    *logrus.Entry
}

// NewFrontier creates an empty, open frontier
func NewFrontier(log *logrus.Entry) *Frontier {
	f := &Frontier{log: log.WithField("component", "frontier")}
	f.cond = sync.NewCond(&f.mu)
	heap.Init(&f.h)
	return f
}

// Add pushes a work item. It reports false if the frontier is already closed.
func (f *Frontier) Add(item models.WorkItem) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		f.log.Debugf("Dropping %s: frontier closed", item.URL)
		return false
	}

	heap.Push(&f.h, &frontierItem{workItem: item, seq: f.nextSq})
	f.nextSq++
	f.cond.Signal()
	return true
}

// Pop removes the next work item, blocking while the frontier is empty and
// open. It returns false once the frontier is closed and drained.
func (f *Frontier) Pop() (models.WorkItem, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.h) == 0 {
		if f.closed {
			return models.WorkItem{}, false
		}
		f.cond.Wait()
	}

	item := heap.Pop(&f.h).(*frontierItem)
	return item.workItem, true
}

// Close stops accepting items and wakes every blocked Pop. Items already
// queued can still be popped.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		f.cond.Broadcast()
	}
}

// Drain closes the frontier and discards what is left, returning the number
// of dropped items
func (f *Frontier) Drain() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	n := len(f.h)
	f.h = f.h[:0]
	f.cond.Broadcast()
	return n
}

// Len returns the number of queued items
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.h)
}

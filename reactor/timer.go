package reactor

import (
	"container/heap"
	"time"
)

// timerHeap is a min-heap of events with a pending timeout, ordered by
// deadline. Ties are broken by event ID, so events with equal deadlines fire
// in the order they were created.
type timerHeap []*Event

// Implement heap.Interface for timerHeap
func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].id < h[j].id
	}
	return h[i].deadline.Before(h[j].deadline)
}
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *timerHeap) Push(x any) {
	ev := x.(*Event)
	ev.heapIndex = len(*h)
	*h = append(*h, ev)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	x.heapIndex = -1
	*h = old[:n-1]
	return x
}

// schedule inserts ev, or moves it if it is already scheduled.
func (h *timerHeap) schedule(ev *Event, deadline time.Time) {
	ev.deadline = deadline
	if ev.heapIndex >= 0 {
		heap.Fix(h, ev.heapIndex)
		return
	}
	heap.Push(h, ev)
}

func (h *timerHeap) remove(ev *Event) {
	if ev.heapIndex < 0 {
		return
	}
	heap.Remove(h, ev.heapIndex)
}

// peek returns the event with the earliest deadline, or nil.
func (h timerHeap) peek() *Event {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}

// calculateTimeout returns the poll timeout in milliseconds for the earliest
// deadline, -1 if there is none. Sub-millisecond remainders round up, so the
// poller never wakes before a deadline is due.
func (h timerHeap) calculateTimeout(now time.Time) int {
	ev := h.peek()
	if ev == nil {
		return -1
	}
	return durationToTimeout(ev.deadline.Sub(now))
}

func durationToTimeout(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	ms := d / time.Millisecond
	if d%time.Millisecond != 0 {
		ms++
	}
	const maxTimeout = 1<<31 - 1
	if ms > maxTimeout {
		return maxTimeout
	}
	return int(ms)
}

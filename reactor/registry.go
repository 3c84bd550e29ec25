package reactor

import (
	"slices"
)

// registry holds strong references to every event of a base that is armed
// (pending) or active, keyed by event ID. It is what keeps a callback, and
// anything it captures, reachable for as long as the base may invoke it,
// even when the caller dropped every other reference.
//
// Not safe for concurrent use; accessed only from the loop goroutine.
type registry struct {
	data   map[uint64]*Event
	nextID uint64
}

func newRegistry() *registry {
	return &registry{
		data:   make(map[uint64]*Event),
		nextID: 1, // 0 marks an event that was never registered
	}
}

// allocID returns a new, unique, event ID.
func (r *registry) allocID() uint64 {
	id := r.nextID
	r.nextID++
	return id
}

// retain is idempotent.
func (r *registry) retain(ev *Event) {
	r.data[ev.id] = ev
}

// release drops the reference once the event is neither pending nor active.
func (r *registry) release(ev *Event) {
	if ev.state&(evInserted|evTimeout|evActive) != 0 {
		return
	}
	delete(r.data, ev.id)
}

func (r *registry) lookup(id uint64) (*Event, bool) {
	ev, ok := r.data[id]
	return ev, ok
}

func (r *registry) len() int {
	return len(r.data)
}

// snapshot returns the retained events, in registration order.
func (r *registry) snapshot() []*Event {
	events := make([]*Event, 0, len(r.data))
	for _, ev := range r.data {
		events = append(events, ev)
	}
	slices.SortFunc(events, func(a, b *Event) int {
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		default:
			return 0
		}
	})
	return events
}

// clear drops all references, reallocating the map so its buckets are
// reclaimed.
func (r *registry) clear() {
	r.data = make(map[uint64]*Event)
}

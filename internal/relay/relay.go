// Package relay implements the per-run event channel: an unbounded,
// single-producer, single-consumer relay of step and completion events.
package relay

import (
	"sync"

	"github.com/petrijr/nodeflow/pkg/api"
)

// Relay buffers events from one run loop until its sole consumer drains
// them. Publication never blocks the producer; events published before a
// consumer attaches are retained. Disposal is idempotent.
type Relay struct {
	in   chan api.Event
	out  chan api.Event
	stop chan struct{}

	finishOnce  sync.Once
	disposeOnce sync.Once
}

// New creates a relay and starts its pump goroutine.
func New() *Relay {
	r := &Relay{
		in:   make(chan api.Event),
		out:  make(chan api.Event),
		stop: make(chan struct{}),
	}
	go r.pump()
	return r
}

// Publish appends an event to the relay. It returns as soon as the pump
// accepts the event; the event is held in the relay's internal buffer until
// consumed. Publish must not be called after Finish.
func (r *Relay) Publish(ev api.Event) {
	select {
	case r.in <- ev:
	case <-r.stop:
	}
}

// Finish tells the relay that no further events will be published. Once the
// buffer drains, the consumer channel is closed. The producer calls this
// right after publishing the completion event.
func (r *Relay) Finish() {
	r.finishOnce.Do(func() { close(r.in) })
}

// Events returns the consumer side of the relay. The channel is closed once
// Finish has been called and every buffered event was delivered.
func (r *Relay) Events() <-chan api.Event {
	return r.out
}

// Dispose drops the relay, discarding any undelivered events. It is safe to
// call more than once and safe to call concurrently with Publish.
func (r *Relay) Dispose() {
	r.disposeOnce.Do(func() { close(r.stop) })
}

// pump moves events from in to out through a growable buffer so the
// producer side never blocks on a slow or absent consumer.
func (r *Relay) pump() {
	var buf []api.Event
	in := r.in

	for in != nil || len(buf) > 0 {
		var out chan api.Event
		var next api.Event
		if len(buf) > 0 {
			out = r.out
			next = buf[0]
		}

		select {
		case ev, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			buf = append(buf, ev)
		case out <- next:
			buf = buf[1:]
		case <-r.stop:
			return
		}
	}
	close(r.out)
}

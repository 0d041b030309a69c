package phlux

import (
	"sync"
	"sync/atomic"

	"github.com/grovetools/phlux/pkg/pmap"
)

type subscriber struct {
	id     Subscription
	cb     Callback
	active *atomic.Bool
}

// subscribers is the immutable subscriber list of one scope. The outbox is
// shared by every version of the list for the scope's whole lifetime.
type subscribers struct {
	seq    pmap.Seq[subscriber]
	outbox *outbox
}

type delivery struct {
	state   State
	targets pmap.Seq[subscriber]
}

// outbox serializes deliveries of one scope. Deliveries are pushed while the
// store's writer lock is held, so queue order is publication order. Whoever
// finds the outbox idle drains it; everyone else leaves their delivery to the
// running drainer. A callback that mutates its own scope therefore sees the
// resulting delivery after it returns, never nested inside itself.
type outbox struct {
	mu       sync.Mutex
	queue    []delivery
	draining bool
}

func (o *outbox) push(d delivery) {
	o.mu.Lock()
	o.queue = append(o.queue, d)
	o.mu.Unlock()
}

func (o *outbox) next() (delivery, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.queue) == 0 {
		o.draining = false
		return delivery{}, false
	}
	d := o.queue[0]
	o.queue[0] = delivery{}
	o.queue = o.queue[1:]
	return d, true
}

func (o *outbox) drain() {
	o.mu.Lock()
	if o.draining {
		o.mu.Unlock()
		return
	}
	o.draining = true
	o.mu.Unlock()

	// a panicking callback must not leave the outbox stuck in draining mode
	defer func() {
		if r := recover(); r != nil {
			o.mu.Lock()
			o.draining = false
			o.mu.Unlock()
			panic(r)
		}
	}()

	for {
		d, ok := o.next()
		if !ok {
			return
		}
		d.targets.Range(func(_ int, s subscriber) bool {
			if s.active.Load() {
				s.cb(d.state)
			}
			return true
		})
	}
}

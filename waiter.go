package wakering

import (
	"sync"
)

// waiter is the handle for a single parked goroutine. All fields except the
// done channel are guarded by the ring lock. The done channel has capacity
// one, and carries at most one wakeup token per park.
type waiter struct {
	// done receives a single token when a signal chooses this waiter.
	done chan struct{}
	// signaled records that a signal chose this waiter, i.e. that a token
	// was sent on done, and that the handle is no longer queued.
	signaled bool
	// abandoned records that the parked goroutine gave up, e.g. context
	// cancellation, transferring ownership of the (still queued) handle to
	// the slot queue, to be discarded by a later signal.
	abandoned bool
}

// waiterPool recycles waiter handles between parks.
var waiterPool = sync.Pool{New: func() any {
	return &waiter{done: make(chan struct{}, 1)}
}}

func newWaiter() *waiter {
	w := waiterPool.Get().(*waiter)
	w.signaled = false
	w.abandoned = false
	return w
}

func putWaiter(w *waiter) {
	select {
	case <-w.done:
		// drained an unconsumed wakeup token, the channel must be empty
		// prior to reuse
	default:
	}
	waiterPool.Put(w)
}

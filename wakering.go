package wakering

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/joeycumines/logiface"
)

type (
	// Ring is a fixed-size ring of waitable slots, sharing a single
	// exclusion lock, with one independently-signalable condition per slot.
	// See the package documentation for an overview of the semantics.
	//
	// Initialize using [New]. Must not be copied after first use.
	Ring struct {
		_ [0]func() // prevent equality and discourage copying

		// logger receives ring diagnostics, nil disables logging.
		logger *logiface.Logger[logiface.Event]

		// mu is the one lock shared by every slot. At most one woken
		// waiter runs its critical section at any time.
		mu sync.Mutex

		// holder is the id of the goroutine holding mu through the
		// Wait / Relay protocol, or zero. Written only by that goroutine,
		// while it holds mu.
		holder atomic.Uint64

		// slots are the per-slot wait queues, guarded by mu.
		slots []ringSlot

		// closed is set by Close, guarded by mu.
		closed bool

		// sticky retains undelivered signals, see WithStickySignals.
		sticky bool

		// hooks observe ring internals, nil unless set, see ringHooks.
		hooks *ringHooks
	}

	// ringSlot is the wait state for a single slot, guarded by the ring
	// lock.
	ringSlot struct {
		// waiters holds *waiter handles in arrival order.
		waiters *queue.Queue
		// pending counts undelivered signals, sticky mode only.
		pending int
	}

	// ringHooks observe ring internals, e.g. the readiness barrier used by
	// Brigade, and deterministic orderings in tests. Hooks are assigned
	// before the ring is shared, are called with the ring lock held, and
	// must not attempt to acquire it.
	ringHooks struct {
		// parked is called after a waiter is enqueued on slot.
		parked func(slot int)
		// woken is called after a wakeup re-acquires the ring lock.
		woken func(slot int)
	}
)

// New initializes a [Ring] with the given number of slots.
//
// An error is returned if size is less than one, see [ErrInvalidSize], or if
// an option fails to apply. On error, no partial state is retained.
func New(size int, opts ...Option) (*Ring, error) {
	if size < 1 {
		return nil, ErrInvalidSize
	}
	cfg, err := resolveRingOptions(opts)
	if err != nil {
		return nil, err
	}
	x := Ring{
		logger: cfg.logger,
		slots:  make([]ringSlot, size),
		sticky: cfg.sticky,
	}
	for i := range x.slots {
		x.slots[i].waiters = queue.New()
	}
	return &x, nil
}

// Slots returns the configured number of slots.
func (x *Ring) Slots() int {
	return len(x.slots)
}

// Wait parks the calling goroutine on slot, until it is woken by a signal.
//
// On success, Wait returns holding the ring lock, which the caller must
// release, using [Ring.Relay] or [Ring.Release]. No wakeup is observable
// without the lock held. Each signal selects the earliest parked live
// waiter of its slot, though with multiple wakeups outstanding, the order
// in which they re-acquire the ring lock is not specified.
//
// Wait validates slot before any other effect, see [ErrSlotOutOfRange], and
// fails with [ErrClosed] after [Ring.Close], and with [ErrLockHeld] if the
// caller already holds the ring lock. There is no deadline, see also
// [Ring.WaitContext]. Note that, unless the ring is sticky, a waiter that
// parks after the signal intended for it was dropped will block forever.
func (x *Ring) Wait(slot int) error {
	return x.WaitContext(context.Background(), slot)
}

// WaitContext is [Ring.Wait] with a context, allowing the wait to be
// abandoned on cancellation or deadline expiry, in which case it returns a
// [*WaitError] wrapping the context error, without holding the ring lock.
// The bounded wait is an extension of the condition-variable model, as a
// signal may still be dropped, if it arrives after an abandon.
//
// If a signal chose this waiter before cancellation was observed, the
// wakeup wins, and WaitContext returns nil, holding the ring lock. The race
// is resolved under the lock, so a delivered wakeup is never discarded.
func (x *Ring) WaitContext(ctx context.Context, slot int) error {
	if ctx == nil {
		panic(`wakering: nil context`)
	}
	if err := x.checkSlot(slot); err != nil {
		return err
	}
	if x.holder.Load() == goroutineID() {
		return ErrLockHeld
	}
	if err := ctx.Err(); err != nil {
		return &WaitError{Cause: err, Slot: slot}
	}

	x.mu.Lock()

	if x.closed {
		x.mu.Unlock()
		return ErrClosed
	}

	if x.sticky && x.slots[slot].pending > 0 {
		x.slots[slot].pending--
		x.logger.Trace().Int(`slot`, slot).Log(`consumed retained signal`)
		x.woke(slot)
		return nil
	}

	w := newWaiter()
	x.slots[slot].waiters.Add(w)
	x.logger.Trace().Int(`slot`, slot).Log(`waiter parked`)
	if h := x.hooks; h != nil && h.parked != nil {
		h.parked(slot)
	}

	x.mu.Unlock()

	select {
	case <-w.done:
		x.mu.Lock()

	case <-ctx.Done():
		x.mu.Lock()
		if !w.signaled {
			// never signaled, leave the queued handle to be discarded by
			// a later signal
			w.abandoned = true
			x.logger.Trace().Int(`slot`, slot).Log(`wait abandoned`)
			x.mu.Unlock()
			return &WaitError{Cause: ctx.Err(), Slot: slot}
		}
		// a signal chose this waiter before the cancellation took effect,
		// the wakeup wins
		<-w.done
	}

	putWaiter(w)
	x.woke(slot)
	return nil
}

// Signal wakes one waiter parked on slot, selecting the earliest parked
// waiter that has not abandoned its wait. It manages the ring lock
// internally, and may be called with or without holding it, making it
// suitable as the external kick that starts a pass.
//
// If no waiter is parked on slot, the signal is dropped, unless the ring
// was configured using [WithStickySignals]. Delivery is not reported,
// either way. See the package documentation regarding the resulting
// signal-before-wait race.
func (x *Ring) Signal(slot int) error {
	if err := x.checkSlot(slot); err != nil {
		return err
	}
	if x.holder.Load() == goroutineID() {
		x.signalLocked(slot)
		return nil
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return ErrClosed
	}
	x.signalLocked(slot)
	return nil
}

// SignalSuccessor wakes one waiter parked on the successor of slot, that is
// (slot+1) modulo [Ring.Slots], wrapping around to slot zero. It must be
// called while holding the ring lock, between a successful [Ring.Wait] and
// the matching release, see [ErrLockNotHeld]. As with [Ring.Signal], a
// signal to a slot with no parked waiter is dropped, unless sticky, and
// delivery is not reported.
func (x *Ring) SignalSuccessor(slot int) error {
	if err := x.checkSlot(slot); err != nil {
		return err
	}
	if x.holder.Load() != goroutineID() {
		return ErrLockNotHeld
	}
	x.signalLocked((slot + 1) % len(x.slots))
	return nil
}

// Relay signals the successor of slot, then releases the ring lock, as the
// combined exit step of a woken waiter propagating the wakeup chain. The
// same conditions as [Ring.SignalSuccessor] apply. On success, the caller
// no longer holds the ring lock.
func (x *Ring) Relay(slot int) error {
	if err := x.SignalSuccessor(slot); err != nil {
		return err
	}
	x.holder.Store(0)
	x.mu.Unlock()
	return nil
}

// Release releases the ring lock without signaling, ending the critical
// section entered by a successful [Ring.Wait]. It is used by a waiter that
// ends a pass, e.g. one whose successor is the originally-signaled slot.
func (x *Ring) Release() error {
	if x.holder.Load() != goroutineID() {
		return ErrLockNotHeld
	}
	x.holder.Store(0)
	x.mu.Unlock()
	return nil
}

// Close marks the ring destroyed. Subsequent operations fail with
// [ErrClosed], including redundant Close calls.
//
// The caller is responsible for ensuring that no goroutine can still be
// waiting. Close never wakes parked waiters, it leaves them parked,
// forever. If any are detected, a warning is logged, but the precondition
// is not otherwise enforced. Close fails with [ErrLockHeld] if the caller
// holds the ring lock.
func (x *Ring) Close() error {
	if x.holder.Load() == goroutineID() {
		return ErrLockHeld
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return ErrClosed
	}
	x.closed = true
	if parked := x.parkedLocked(); parked != 0 {
		x.logger.Warning().Int(`waiters`, parked).Log(`ring closed with parked waiters`)
	}
	return nil
}

func (x *Ring) checkSlot(slot int) error {
	if slot < 0 || slot >= len(x.slots) {
		return ErrSlotOutOfRange
	}
	return nil
}

// woke completes a wakeup, with the ring lock held, recording the caller as
// the holder.
func (x *Ring) woke(slot int) {
	x.holder.Store(goroutineID())
	x.logger.Trace().Int(`slot`, slot).Log(`waiter woken`)
	if h := x.hooks; h != nil && h.woken != nil {
		h.woken(slot)
	}
}

// signalLocked wakes one live waiter parked on slot, discarding abandoned
// handles in passing. With no live waiter, the signal is retained (sticky)
// or dropped. Requires the ring lock.
func (x *Ring) signalLocked(slot int) {
	q := x.slots[slot].waiters
	for q.Length() != 0 {
		w := q.Remove().(*waiter)
		if w.abandoned {
			putWaiter(w)
			continue
		}
		w.signaled = true
		w.done <- struct{}{}
		x.logger.Trace().Int(`slot`, slot).Log(`signal delivered`)
		return
	}
	if x.sticky {
		x.slots[slot].pending++
		x.logger.Trace().Int(`slot`, slot).Int(`pending`, x.slots[slot].pending).Log(`signal retained`)
		return
	}
	x.logger.Debug().Int(`slot`, slot).Log(`signal dropped`)
}

// parkedLocked counts live parked waiters, across all slots. Requires the
// ring lock.
func (x *Ring) parkedLocked() int {
	var parked int
	for i := range x.slots {
		q := x.slots[i].waiters
		for j := 0; j < q.Length(); j++ {
			if !q.Get(j).(*waiter).abandoned {
				parked++
			}
		}
	}
	return parked
}

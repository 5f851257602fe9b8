// Package wakering implements a fixed-size ring of waitable slots, sharing a
// single exclusion lock, with an independently-signalable condition per slot.
// It supports the "bucket brigade" wakeup pattern, where an external driver
// signals one slot, and each woken waiter signals the next slot, in ring
// order, exactly once, before exiting.
//
// Waits have monitor semantics. A successful [Ring.Wait] returns holding the
// ring lock, which the caller must release, using [Ring.Relay] (signal the
// successor slot then release) or [Ring.Release] (release without signaling).
// The lock is shared by every slot, so at most one woken waiter runs its
// critical section at any time.
//
// Signals are not sticky, by default. A signal delivered to a slot with no
// parked waiter is dropped, and a waiter that parks afterwards will block
// until the next signal, possibly forever. Drivers must ensure waiters are
// parked before signaling, e.g. see [Brigade], or opt in to
// [WithStickySignals], which retains undelivered signals per slot.
package wakering

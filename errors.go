package wakering

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSize is returned by [New] and [Brigade] when the requested
	// ring size is less than one.
	ErrInvalidSize = errors.New("wakering: ring size must be at least one")

	// ErrSlotOutOfRange is returned by slot-indexed operations when the slot
	// is negative or not less than [Ring.Slots]. The operation has no other
	// effect.
	ErrSlotOutOfRange = errors.New("wakering: slot out of range")

	// ErrClosed is returned by operations on a ring after [Ring.Close],
	// including by redundant Close calls.
	ErrClosed = errors.New("wakering: ring is closed")

	// ErrLockNotHeld is returned by [Ring.SignalSuccessor], [Ring.Relay],
	// and [Ring.Release], when the calling goroutine does not hold the ring
	// lock, i.e. when it is not between a successful [Ring.Wait] and the
	// matching release.
	ErrLockNotHeld = errors.New("wakering: ring lock not held")

	// ErrLockHeld is returned by operations that would deadlock or misbehave
	// if performed while holding the ring lock, e.g. [Ring.Close], or a
	// nested [Ring.Wait].
	ErrLockHeld = errors.New("wakering: ring lock held")
)

// WaitError is returned by [Ring.WaitContext] when a wait is abandoned due
// to context cancellation or deadline expiry. The caller does not hold the
// ring lock in that case.
type WaitError struct {
	// Cause is the underlying reason, typically a context error.
	Cause error
	// Slot is the slot that was being waited on.
	Slot int
}

// Error implements the error interface.
func (e *WaitError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("wakering: wait on slot %d canceled", e.Slot)
	}
	return fmt.Sprintf("wakering: wait on slot %d: %s", e.Slot, e.Cause)
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *WaitError) Unwrap() error {
	return e.Cause
}

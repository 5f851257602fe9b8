package wakering

import (
	"runtime"
	"testing"
	"time"
)

// checkNumGoroutines guards against goroutine leaks. It snapshots the count
// when called, and the returned func polls until the count is no greater
// than the snapshot, or the timeout elapses.
func checkNumGoroutines(timeout time.Duration) func(t *testing.T) {
	count := runtime.NumGoroutine()
	return func(t *testing.T) {
		t.Helper()
		deadline := time.Now().Add(timeout)
		for runtime.NumGoroutine() > count {
			if time.Now().After(deadline) {
				t.Errorf(`expected at most %d goroutines, found %d`, count, runtime.NumGoroutine())
				return
			}
			time.Sleep(time.Millisecond * 10)
		}
	}
}

// parkBarrier installs a parked hook on the ring, returning a channel that
// receives the slot of each park. Must be called before the ring is shared.
func parkBarrier(x *Ring, capacity int) <-chan int {
	ch := make(chan int, capacity)
	h := &ringHooks{parked: func(slot int) { ch <- slot }}
	if x.hooks != nil {
		h.woken = x.hooks.woken
	}
	x.hooks = h
	return ch
}

// recvSlot receives a slot notification, failing the test on timeout.
func recvSlot(t *testing.T, ch <-chan int, timeout time.Duration) int {
	t.Helper()
	select {
	case slot := <-ch:
		return slot
	case <-time.After(timeout):
		t.Fatal(`timed out waiting for a slot notification`)
		return -1
	}
}

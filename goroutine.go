package wakering

import (
	"runtime"
)

// goroutineID returns the numeric id of the calling goroutine, parsed from
// the first line of [runtime.Stack] output. It is used to identify the
// holder of the ring lock across the Wait / Relay protocol, which cannot be
// expressed with sync.Mutex alone. Goroutine ids are never zero, and never
// reused within a process.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// first line is of the form "goroutine 123 [running]:"
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

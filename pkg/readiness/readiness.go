// Package readiness implements the single-threaded cooperative I/O
// readiness multiplexer (spec §4.4): register file descriptors for
// readability/writability, and block in one call until some are ready,
// dispatching callbacks in the order the OS reports them.
package readiness

import "time"

// Callback is invoked when its descriptor becomes ready for the direction
// it was registered under. data is the opaque pointer supplied to Add.
type Callback func(fd int, data any)

// record is one descriptor's bookkeeping (spec §3 "Readiness descriptor
// record"). useCount tracks in-flight callback dispatches so a callback
// that triggers Remove(otherFd) mid-cycle doesn't free a record still being
// used by the current Poll call.
type record struct {
	fd        int
	read      Callback
	write     Callback
	data      any
	useCount  int
	removed   bool
}

// Multiplexer is the readiness multiplexer contract from spec §4.4,
// implemented per-platform (see readiness_linux.go).
type Multiplexer interface {
	Start() error
	Stop() error
	Add(fd int, readCB, writeCB Callback, data any)
	Remove(fd int)
	// Poll blocks up to timeout (negative means indefinite), dispatches
	// ready callbacks, and returns how many descriptors were ready.
	Poll(timeout time.Duration) (int, error)
}

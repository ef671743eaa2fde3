//go:build !linux

package readiness

import (
	"errors"
	"time"
)

// New returns a Multiplexer. Only the Linux epoll backend is implemented;
// this core's suspension point is platform-specific the same way cupsd's
// own scheduler has one cselect/epoll/kqueue implementation per OS.
func New() Multiplexer {
	return &unsupportedMux{}
}

type unsupportedMux struct{}

func (*unsupportedMux) Start() error { return nil }
func (*unsupportedMux) Stop() error  { return nil }
func (*unsupportedMux) Add(int, Callback, Callback, any) {}
func (*unsupportedMux) Remove(int)  {}
func (*unsupportedMux) Poll(time.Duration) (int, error) {
	return 0, errors.New("readiness: no multiplexer backend for this platform")
}

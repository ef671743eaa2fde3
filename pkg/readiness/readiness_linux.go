//go:build linux

package readiness

import (
	"fmt"
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
	"golang.org/x/sys/unix"
)

// epollMux is the Linux epoll-backed Multiplexer.
type epollMux struct {
	mu deadlock.Mutex

	epfd        int
	active      map[int]*record
	inactive    map[int]*record
	dispatching bool
}

// New returns a Multiplexer backed by epoll(7).
func New() Multiplexer {
	return &epollMux{
		active:   make(map[int]*record),
		inactive: make(map[int]*record),
		epfd:     -1,
	}
}

func (m *epollMux) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epfd >= 0 {
		return nil
	}
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return fmt.Errorf("readiness: epoll_create1: %w", err)
	}
	m.epfd = fd
	return nil
}

// Stop frees all records. Per the single-threaded cooperative contract, any
// in-flight Poll must return before Stop is invoked (spec §4.4).
func (m *epollMux) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epfd < 0 {
		return nil
	}
	err := unix.Close(m.epfd)
	m.epfd = -1
	m.active = make(map[int]*record)
	m.inactive = make(map[int]*record)
	return err
}

func eventMask(r *record) uint32 {
	var mask uint32
	if r.read != nil {
		mask |= unix.EPOLLIN
	}
	if r.write != nil {
		mask |= unix.EPOLLOUT
	}
	return mask
}

// Add registers fd, or overwrites its callbacks if already registered
// (idempotent per spec §4.4). Registering both callbacks as nil removes
// the descriptor entirely, since neither direction is being monitored.
func (m *epollMux) Add(fd int, readCB, writeCB Callback, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if readCB == nil && writeCB == nil {
		m.removeLocked(fd)
		return
	}

	existing, ok := m.active[fd]
	if ok {
		existing.read = readCB
		existing.write = writeCB
		existing.data = data
		ev := unix.EpollEvent{Events: eventMask(existing), Fd: int32(fd)}
		_ = unix.EpollCtl(m.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
		return
	}

	r := &record{fd: fd, read: readCB, write: writeCB, data: data, useCount: 1}
	ev := unix.EpollEvent{Events: eventMask(r), Fd: int32(fd)}
	if err := unix.EpollCtl(m.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return
	}
	m.active[fd] = r
}

// Remove removes fd from the active set. If called during a dispatch
// cycle, the record moves to the inactive set and is freed only once its
// use count reaches zero after the cycle ends (spec §4.4).
func (m *epollMux) Remove(fd int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(fd)
}

func (m *epollMux) removeLocked(fd int) {
	r, ok := m.active[fd]
	if !ok {
		return
	}
	delete(m.active, fd)
	_ = unix.EpollCtl(m.epfd, unix.EPOLL_CTL_DEL, fd, nil)

	// Releasing the registration's own reference. If a callback dispatch
	// for this record is still in flight, it holds additional references
	// and the record is kept (inactive) until they all drop.
	r.useCount--
	r.removed = true
	if r.useCount > 0 || m.dispatching {
		m.inactive[fd] = r
	}
}

const maxEpollEvents = 256

// Poll blocks up to timeout, then dispatches ready callbacks in the order
// epoll_wait returns them. Within one descriptor, the read callback runs
// before the write callback (spec §4.4 "Ordering guarantees").
func (m *epollMux) Poll(timeout time.Duration) (int, error) {
	m.mu.Lock()
	epfd := m.epfd
	m.dispatching = true
	m.mu.Unlock()

	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}

	var events [maxEpollEvents]unix.EpollEvent
	n, err := unix.EpollWait(epfd, events[:], ms)
	if err != nil {
		if err == unix.EINTR {
			m.endDispatch()
			return 0, nil
		}
		m.endDispatch()
		return 0, fmt.Errorf("readiness: epoll_wait: %w", err)
	}

	for i := 0; i < n; i++ {
		ev := events[i]
		fd := int(ev.Fd)

		m.mu.Lock()
		r, ok := m.active[fd]
		if ok {
			r.useCount++
		}
		m.mu.Unlock()
		if !ok {
			continue
		}

		if ev.Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0 && r.read != nil {
			r.read(fd, r.data)
		}
		if ev.Events&(unix.EPOLLOUT|unix.EPOLLERR) != 0 && r.write != nil {
			r.write(fd, r.data)
		}

		m.releaseUse(r)
	}

	m.endDispatch()
	return n, nil
}

func (m *epollMux) releaseUse(r *record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.useCount--
	if r.useCount <= 0 && r.removed {
		delete(m.inactive, r.fd)
	}
}

func (m *epollMux) endDispatch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatching = false
	for fd, r := range m.inactive {
		if r.useCount <= 0 {
			delete(m.inactive, fd)
		}
	}
}

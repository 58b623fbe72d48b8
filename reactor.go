// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/original_source/src/IOManager.cpp
//

package networkd

import (
	"time"

	"golang.org/x/sys/unix"
)

// Reactor is a poll(2)-style readiness multiplexer over a dynamic set of
// registered [Socket] implementations.
//
// The reactor does not own the sockets it watches; callers must Unregister
// a socket before it goes away. Unregister is safe to call from inside any
// callback the reactor itself is dispatching, including the callback of the
// socket being unregistered.
type Reactor struct {
	cfg     *Config
	entries []*reactorEntry
}

type reactorEntry struct {
	socket  Socket
	fd      int
	removed bool
}

// NewReactor returns a [*Reactor] using cfg for logging.
func NewReactor(cfg *Config) *Reactor {
	return &Reactor{cfg: cfg}
}

// Register adds socket to the watch set bound to fd. The caller must not
// register the same socket twice without an intervening Unregister.
func (r *Reactor) Register(socket Socket, fd int) {
	r.entries = append(r.entries, &reactorEntry{socket: socket, fd: fd})
}

// SetFD rebinds the file descriptor associated with an already-registered
// socket, used after a late socket(2) call (e.g. a deferred connect).
func (r *Reactor) SetFD(socket Socket, fd int) {
	for _, e := range r.entries {
		if e.socket == socket && !e.removed {
			e.fd = fd
			return
		}
	}
}

// Unregister schedules socket for removal from the watch set. Safe to call
// during dispatch, including from the socket's own callback.
func (r *Reactor) Unregister(socket Socket) {
	for _, e := range r.entries {
		if e.socket == socket {
			e.removed = true
			return
		}
	}
}

// compact drops every entry flagged for removal.
func (r *Reactor) compact() {
	kept := r.entries[:0]
	for _, e := range r.entries {
		if !e.removed {
			kept = append(kept, e)
		}
	}
	r.entries = kept
}

// Step waits at most maxWait for readiness on all registered descriptors
// and dispatches callbacks. maxWait <= 0 waits indefinitely, except that
// with no socket registered Step returns at once.
func (r *Reactor) Step(maxWait time.Duration) error {
	r.compact()

	if len(r.entries) == 0 {
		if maxWait > 0 {
			time.Sleep(maxWait)
		}
		return nil
	}

	pollfds := make([]unix.PollFd, len(r.entries))
	for i, e := range r.entries {
		events := e.socket.Hint().pollEvents()
		pollfds[i] = unix.PollFd{Fd: int32(e.fd), Events: events}
	}

	timeoutMs := -1
	if maxWait > 0 {
		timeoutMs = int(maxWait / time.Millisecond)
	}

	_, err := unix.Poll(pollfds, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		r.cfg.Logger.Info("pollFailed", "err", r.cfg.ErrClassifier.Classify(err))
		return err
	}

	// Dispatch in a fixed POLLERR -> POLLOUT -> POLLIN order per fd,
	// re-checking the removal flag before each step so that a callback
	// that unregisters this or another entry is always observed safely.
	for i, e := range r.entries {
		if e.removed || e.socket.Hint() == HintIgnore {
			continue
		}
		revents := pollfds[i].Revents

		if revents&unix.POLLERR != 0 {
			e.socket.PollError()
		}
		if e.removed {
			continue
		}

		if revents&unix.POLLOUT != 0 {
			e.socket.PollWrite()
		}
		if e.removed {
			continue
		}

		if revents&unix.POLLIN != 0 {
			e.socket.PollRead()
		}
	}

	r.compact()
	return nil
}

// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/original_source/include/libnetworkd/IO.hpp
//

package networkd

// Socket is the addressable object the [Reactor] multiplexes readiness for.
//
// Implementations are [TCPSocket], [UnixSocket], and [UDPSocket]. The
// reactor reads Hint once per step to compute the poll events to request,
// then dispatches PollError, PollWrite, PollRead in that fixed order for
// whichever events came back ready.
type Socket interface {
	// FD returns the current file descriptor, or -1 if none is open.
	FD() int
	// Hint reports the socket's current readiness interest.
	Hint() Hint
	// PollRead is invoked when the descriptor is readable.
	PollRead()
	// PollWrite is invoked when the descriptor is writable.
	PollWrite()
	// PollError is invoked when the descriptor reports an error condition.
	PollError()
}

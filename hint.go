// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/original_source/include/libnetworkd/IO.hpp
//

package networkd

import "golang.org/x/sys/unix"

// Hint is the readiness class a [Socket] advertises to the [Reactor]. The
// reactor consults it every [Reactor.Step] to decide which poll events to
// request for that socket's file descriptor.
type Hint int

const (
	// HintIgnore means the socket receives no callbacks this step.
	HintIgnore Hint = iota
	// HintIdle means the socket wants to know about incoming data or errors.
	HintIdle
	// HintBuffering means the socket additionally wants to know when it can write.
	HintBuffering
	// HintBusy means the socket only wants to know about errors.
	HintBusy
)

// pollEvents returns the poll(2) event mask requested for h.
func (h Hint) pollEvents() int16 {
	switch h {
	case HintIdle:
		return unix.POLLIN | unix.POLLERR
	case HintBuffering:
		return unix.POLLIN | unix.POLLOUT | unix.POLLERR
	case HintBusy:
		return unix.POLLERR
	default: // HintIgnore
		return 0
	}
}

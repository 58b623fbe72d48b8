// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/original_source/src/TimeoutManager.cpp
//

package networkd

import "time"

// TimerHandle identifies a pending timer. Its only meaningful operations
// are passing it back to [TimeoutWheel.Cancel] and reading it inside its
// own callback.
type TimerHandle struct {
	fireAt   time.Time
	receiver any
	callback func(*TimerHandle)
}

// TimeoutWheel is an ordered multiset of pending (fire-time, receiver)
// entries. It is not safe for concurrent use; it is meant to be driven from
// the same goroutine that runs the owning [Reactor].
type TimeoutWheel struct {
	cfg     *Config
	entries []*TimerHandle
}

// NewTimeoutWheel returns a [*TimeoutWheel] using cfg for its clock.
func NewTimeoutWheel(cfg *Config) *TimeoutWheel {
	return &TimeoutWheel{cfg: cfg}
}

// Schedule arranges for callback to run once delta has elapsed, and returns
// a handle that can be passed to Cancel. receiver is an opaque identity used
// only by CancelAll to match timers owned by a particular caller.
func (w *TimeoutWheel) Schedule(delta time.Duration, receiver any, callback func(*TimerHandle)) *TimerHandle {
	h := &TimerHandle{
		fireAt:   w.cfg.TimeNow().Add(delta),
		receiver: receiver,
		callback: callback,
	}
	w.entries = append(w.entries, h)
	return h
}

// Cancel removes a pending timer. It is a no-op for a nil handle, a handle
// that already fired, or a handle that has been canceled. Crucially, the
// handle currently being fired by [TimeoutWheel.FireDue] has already been
// unlinked from the wheel before its callback runs, so a callback that
// calls Cancel on itself harmlessly finds nothing to remove.
func (w *TimeoutWheel) Cancel(h *TimerHandle) {
	if h == nil {
		return
	}
	for i, e := range w.entries {
		if e == h {
			w.removeAt(i)
			return
		}
	}
}

// CancelAll removes every pending timer whose receiver equals receiver. A
// timer currently firing has already been unlinked (see Cancel) so this
// cannot re-enter its own removal.
func (w *TimeoutWheel) CancelAll(receiver any) {
	kept := w.entries[:0]
	for _, e := range w.entries {
		if e.receiver != receiver {
			kept = append(kept, e)
		}
	}
	w.entries = kept
}

// NextDelta returns the time remaining until the soonest pending timer, and
// true. It returns (0, false) when no timer is pending.
func (w *TimeoutWheel) NextDelta() (time.Duration, bool) {
	if len(w.entries) == 0 {
		return 0, false
	}
	now := w.cfg.TimeNow()
	soonest := w.entries[0].fireAt
	for _, e := range w.entries[1:] {
		if e.fireAt.Before(soonest) {
			soonest = e.fireAt
		}
	}
	if d := soonest.Sub(now); d > 0 {
		return d, true
	}
	return 0, true
}

// FireDue invokes the callback of every entry whose fire time has passed,
// earliest first (ties broken by schedule order), removing each entry from
// the wheel immediately before its callback runs. A callback is therefore
// free to cancel any other pending timer, including one also due in this
// same call, without disturbing the entries still to be dispatched.
func (w *TimeoutWheel) FireDue(now time.Time) {
	for {
		idx := -1
		for i, e := range w.entries {
			if e.fireAt.After(now) {
				continue
			}
			if idx == -1 || e.fireAt.Before(w.entries[idx].fireAt) {
				idx = i
			}
		}
		if idx == -1 {
			return
		}
		entry := w.entries[idx]
		w.removeAt(idx)
		w.cfg.Logger.Debug("timerFire", "fireAt", entry.fireAt)
		entry.callback(entry)
	}
}

func (w *TimeoutWheel) removeAt(idx int) {
	w.entries = append(w.entries[:idx], w.entries[idx+1:]...)
}

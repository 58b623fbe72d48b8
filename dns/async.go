// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/original_source/src/UdnsResolvingFacility.cpp
//
// The original drives libudns's own non-blocking query state machine
// (dns_submit_a4/dns_timeouts/dns_ioevent) over a socket it owns. There is
// no Go equivalent of libudns; this adapts the same shape — a single
// non-blocking UDP socket registered with the reactor, one pending-query
// set, one re-armed wheel timer for the soonest deadline — to build and
// parse A-record queries with github.com/miekg/dns directly, since that
// library operates on already-built messages rather than owning the event
// loop itself.
//

package dns

import (
	"net"
	"time"

	"github.com/miekg/dns"
	"github.com/oxff/networkd"
	"golang.org/x/sys/unix"
)

// DefaultQueryTimeout is how long an [AsyncResolver] waits for a response
// to a single query before delivering [StatusTimeout].
const DefaultQueryTimeout = 5 * time.Second

// AsyncResolver is a reactor-driven [Resolver] that issues A-record queries
// over a single non-blocking UDP socket connected to one upstream name
// server, per spec.md §4.5.
type AsyncResolver struct {
	reactor      *networkd.Reactor
	wheel        *networkd.TimeoutWheel
	cfg          *networkd.Config
	QueryTimeout time.Duration

	fd      int
	pending map[uint16]*asyncPendingEntry
	timer   *networkd.TimerHandle
	nextID  uint16
}

var _ networkd.Socket = &AsyncResolver{}

type asyncPendingEntry struct {
	pendingEntry
	deadline time.Time
}

// NewAsyncResolver creates a non-blocking UDP socket connected to
// nameserver, registers it with reactor in hint Idle, and returns the ready
// [*AsyncResolver]. It returns false if the socket could not be created,
// bound, or connected.
func NewAsyncResolver(reactor *networkd.Reactor, wheel *networkd.TimeoutWheel, cfg *networkd.Config, nameserver networkd.Node) (*AsyncResolver, bool) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return nil, false
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, false
	}
	ip := net.ParseIP(nameserver.Name).To4()
	if ip == nil {
		unix.Close(fd)
		return nil, false
	}
	sa := &unix.SockaddrInet4{Port: int(nameserver.Port)}
	copy(sa.Addr[:], ip)
	if err := unix.Connect(fd, sa); err != nil && err != unix.EINPROGRESS {
		unix.Close(fd)
		return nil, false
	}

	r := &AsyncResolver{
		reactor:      reactor,
		wheel:        wheel,
		cfg:          cfg,
		QueryTimeout: DefaultQueryTimeout,
		fd:           fd,
		pending:      make(map[uint16]*asyncPendingEntry),
	}
	reactor.Register(r, fd)
	return r, true
}

// Resolve implements [Resolver]. A literal IPv4 address is delivered
// synchronously per spec.md step 1; otherwise an A-record query is
// submitted and deliver is invoked later, driven by [networkd.Reactor.Step]
// (on response or on read error) or by the wheel timer (on timeout).
func (r *AsyncResolver) Resolve(name string, requester Requester, deliver func(addresses []string, status Status)) {
	if ip := net.ParseIP(name); ip != nil && ip.To4() != nil {
		deliver([]string{ip.To4().String()}, StatusOk)
		return
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeA)
	msg.Id = r.freshID()
	msg.RecursionDesired = true

	packed, err := msg.Pack()
	if err != nil {
		r.cfg.Logger.Info("dnsQuery", "name", name, "status", StatusFailed.String())
		deliver(nil, StatusFailed)
		return
	}

	if _, err := unix.Write(r.fd, packed); err != nil {
		r.cfg.Logger.Info("dnsQuery", "name", name, "status", StatusFailed.String(), "err", err.Error())
		deliver(nil, StatusFailed)
		return
	}

	r.cfg.Logger.Info("dnsQuery", "name", name, "id", msg.Id)
	r.pending[msg.Id] = &asyncPendingEntry{
		pendingEntry: pendingEntry{requester: requester, name: name, deliver: deliver},
		deadline:     r.cfg.TimeNow().Add(r.QueryTimeout),
	}
	r.rearm()
}

// freshID returns a query ID not currently in use by a pending query.
func (r *AsyncResolver) freshID() uint16 {
	for {
		r.nextID++
		if _, taken := r.pending[r.nextID]; !taken {
			return r.nextID
		}
	}
}

// rearm cancels any previously scheduled timeout timer and, if any query is
// still pending, schedules a new one for the soonest deadline, matching
// spec.md §4.5's "cancel a prior pending timer first" / Scenario 5.
func (r *AsyncResolver) rearm() {
	r.wheel.Cancel(r.timer)
	r.timer = nil

	if len(r.pending) == 0 {
		return
	}
	soonest := r.cfg.TimeNow().Add(r.QueryTimeout + time.Hour)
	for _, e := range r.pending {
		if e.deadline.Before(soonest) {
			soonest = e.deadline
		}
	}
	delta := soonest.Sub(r.cfg.TimeNow())
	if delta < 0 {
		delta = 0
	}
	r.timer = r.wheel.Schedule(delta, r, func(*networkd.TimerHandle) { r.checkTimeouts() })
}

// checkTimeouts delivers [StatusTimeout] for every query whose deadline has
// passed, then re-arms for whatever remains.
func (r *AsyncResolver) checkTimeouts() {
	now := r.cfg.TimeNow()
	for id, e := range r.pending {
		if e.deadline.After(now) {
			continue
		}
		delete(r.pending, id)
		r.cfg.Logger.Info("dnsResponse", "name", e.name, "status", StatusTimeout.String())
		e.deliver(nil, StatusTimeout)
	}
	r.rearm()
}

// CancelAll implements [Resolver].
func (r *AsyncResolver) CancelAll(requester Requester) {
	found := false
	for id, e := range r.pending {
		if e.requester == requester {
			delete(r.pending, id)
			found = true
		}
	}
	if found {
		r.rearm()
	}
}

// FD implements [networkd.Socket].
func (r *AsyncResolver) FD() int { return r.fd }

// Hint implements [networkd.Socket]: always interested in incoming
// responses and errors, never write-ready (queries are sent inline).
func (r *AsyncResolver) Hint() networkd.Hint { return networkd.HintIdle }

// PollRead implements [networkd.Socket]: parses one response datagram and
// delivers it to the matching pending query, if any.
func (r *AsyncResolver) PollRead() {
	buf := make([]byte, 4096)
	n, err := unix.Read(r.fd, buf)
	if err != nil || n <= 0 {
		return
	}

	msg := new(dns.Msg)
	if err := msg.Unpack(buf[:n]); err != nil {
		return
	}

	entry, ok := r.pending[msg.Id]
	if !ok {
		return
	}
	delete(r.pending, msg.Id)
	r.rearm()

	var addrs []string
	for _, rr := range msg.Answer {
		if a, ok := rr.(*dns.A); ok && a.A.To4() != nil {
			addrs = append(addrs, a.A.To4().String())
		}
	}

	status := StatusOk
	switch {
	case len(addrs) > 0:
		status = StatusOk
	case msg.Rcode == dns.RcodeNameError || msg.Rcode == dns.RcodeSuccess:
		status = StatusHostUnknown
	default:
		status = StatusFailed
	}

	r.cfg.Logger.Info("dnsResponse", "name", entry.name, "status", status.String(), "count", len(addrs))
	entry.deliver(addrs, status)
}

// PollWrite implements [networkd.Socket] as a no-op: queries are written
// inline by Resolve and never buffered.
func (r *AsyncResolver) PollWrite() {}

// PollError implements [networkd.Socket]: the upstream name server socket
// is broken. Every pending query is delivered as failed, matching the
// original's TODO ("handle the socket error") — the corrected behavior.
func (r *AsyncResolver) PollError() {
	for id, e := range r.pending {
		delete(r.pending, id)
		e.deliver(nil, StatusFailed)
	}
	r.wheel.Cancel(r.timer)
	r.timer = nil
}

// Close unregisters the resolver's socket and closes its file descriptor.
func (r *AsyncResolver) Close() {
	r.reactor.Unregister(r)
	unix.Close(r.fd)
	r.fd = -1
	r.wheel.Cancel(r.timer)
}

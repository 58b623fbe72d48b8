// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/original_source/src/ProxiedTcpSocket.cpp
//

package socks5

import (
	"net"

	"github.com/oxff/networkd"
)

// Phase is the SOCKS5 negotiation state of a [ProxiedSocket].
type Phase int

const (
	// PhaseNone is the state before the underlying TCP connection to the
	// proxy has been established.
	PhaseNone Phase = iota
	// PhaseAwaitGreeting awaits the proxy's method-selection response.
	PhaseAwaitGreeting
	// PhaseAwaitUserAuth awaits the proxy's user/pass sub-negotiation response.
	PhaseAwaitUserAuth
	// PhaseSendConnect means the CONNECT request is about to be sent.
	PhaseSendConnect
	// PhaseAwaitConnect awaits the proxy's CONNECT response.
	PhaseAwaitConnect
	// PhaseDone means negotiation succeeded; callbacks now forward to the
	// final endpoint.
	PhaseDone
)

// Credentials is an optional proxy username/password pair. A zero value
// means "offer no-auth only is not possible" — per spec.md the greeting
// always offers both methods; Credentials only supplies what to send if the
// proxy selects user/pass.
type Credentials struct {
	User     string
	Password string
}

// ProxiedSocket wraps a [*networkd.TCPSocket] and simultaneously implements
// [networkd.Endpoint], intercepting its own connection/data callbacks until
// SOCKS5 negotiation completes, then forwarding everything to Final. See
// spec.md §4.6.
//
// No byte originating from the final target is ever delivered to Final
// before Final's ConnectionEstablished has been invoked: [ProxiedSocket.pivot]
// always calls ConnectionEstablished before delivering trailing bytes.
type ProxiedSocket struct {
	networkd.BaseEndpoint

	sock   *networkd.TCPSocket
	cfg    *networkd.Config
	Final  networkd.Endpoint
	target net.TCPAddr
	creds  Credentials

	phase  Phase
	buffer []byte
}

var _ networkd.Endpoint = &ProxiedSocket{}

// NewProxiedSocket returns a [*ProxiedSocket] that will dial proxyAddr, then
// negotiate SOCKS5 access to target, then deliver callbacks to final.
func NewProxiedSocket(reactor *networkd.Reactor, cfg *networkd.Config, final networkd.Endpoint, target net.TCPAddr, creds Credentials) *ProxiedSocket {
	p := &ProxiedSocket{cfg: cfg, Final: final, target: target, creds: creds, phase: PhaseNone}
	p.sock = networkd.NewTCPSocket(reactor, cfg, p)
	return p
}

// Connect dials the proxy address (not the final target); see
// [networkd.TCPSocket.Connect] for the return semantics.
func (p *ProxiedSocket) Connect(proxyAddr networkd.Node) bool {
	return p.sock.Connect(proxyAddr)
}

// Close tears down the underlying socket; see [networkd.TCPSocket.Close].
func (p *ProxiedSocket) Close(force bool) bool { return p.sock.Close(force) }

// FD returns the underlying socket's file descriptor.
func (p *ProxiedSocket) FD() int { return p.sock.FD() }

// ConnectionEstablished implements [networkd.Endpoint]: on first connection
// to the proxy, sends the method-selection greeting. Any later call (which
// should be impossible once pivoted) tears the connection down.
func (p *ProxiedSocket) ConnectionEstablished(remote, local networkd.Node) {
	if p.phase != PhaseNone {
		p.sock.Close(true)
		return
	}
	p.cfg.Logger.Info("socks5Negotiate", "phase", "greeting", "proxy", remote.String(), "target", p.target.String())
	p.sock.Send(buildGreeting())
	p.phase = PhaseAwaitGreeting
}

// DataRead implements [networkd.Endpoint], driving the negotiation FSM
// described in spec.md §4.6 until [PhaseDone], at which point every
// subsequent read is forwarded to Final unchanged.
func (p *ProxiedSocket) DataRead(buf []byte) {
	if p.phase == PhaseDone {
		if p.Final != nil {
			p.Final.DataRead(buf)
		}
		return
	}

	p.buffer = append(p.buffer, buf...)

	switch p.phase {
	case PhaseAwaitGreeting:
		if len(p.buffer) < greetingResponseLen {
			return
		}
		resp := p.consume(greetingResponseLen)
		if resp[0] != version5 {
			p.sock.Close(true)
			return
		}
		switch resp[1] {
		case methodNoAuth:
			p.phase = PhaseSendConnect
		case methodUserPass:
			auth, err := buildUserAuth(p.creds.User, p.creds.Password)
			if err != nil {
				p.sock.Close(true)
				return
			}
			p.sock.Send(auth)
			p.phase = PhaseAwaitUserAuth
		default:
			p.sock.Close(true)
			return
		}
	case PhaseAwaitUserAuth:
		if len(p.buffer) < userAuthResponseLen {
			return
		}
		resp := p.consume(userAuthResponseLen)
		if resp[0] != version1 || resp[1] != 0 {
			p.sock.Close(true)
			return
		}
		p.phase = PhaseSendConnect
	case PhaseAwaitConnect:
		if len(p.buffer) < connectResponseLen {
			return
		}
		reply, bound, err := parseConnectResponse(p.buffer)
		if err != nil {
			p.sock.Close(true)
			return
		}
		if reply != 0 {
			p.sock.Close(true)
			return
		}
		trailing := append([]byte(nil), p.buffer[connectResponseLen:]...)
		p.buffer = nil
		p.pivot(bound, trailing)
		return
	default:
		p.sock.Close(true)
		return
	}

	if p.phase == PhaseSendConnect {
		req, err := buildConnectRequest(p.target.IP, uint16(p.target.Port))
		if err != nil {
			p.sock.Close(true)
			return
		}
		p.sock.Send(req)
		p.phase = PhaseAwaitConnect
	}
}

// consume removes and returns the first n bytes of p.buffer.
func (p *ProxiedSocket) consume(n int) []byte {
	head := append([]byte(nil), p.buffer[:n]...)
	p.buffer = p.buffer[n:]
	return head
}

// pivot fires ConnectionEstablished on Final with the negotiated remote and
// bound-local addresses, delivers any trailing bytes from the CONNECT
// response, and transitions to [PhaseDone]. From this point p remains the
// registered [networkd.Endpoint], but DataRead forwards every subsequent
// read to Final unchanged (see DataRead's PhaseDone case).
func (p *ProxiedSocket) pivot(bound net.TCPAddr, trailing []byte) {
	p.phase = PhaseDone
	remote := networkd.Node{Name: p.target.IP.String(), Port: uint16(p.target.Port)}
	local := networkd.Node{Name: bound.IP.String(), Port: uint16(bound.Port)}
	p.cfg.Logger.Info("socks5Negotiate", "phase", "done", "target", remote.String(), "bound", local.String())
	if p.Final != nil {
		p.Final.ConnectionEstablished(remote, local)
		if len(trailing) > 0 {
			p.Final.DataRead(trailing)
		}
	}
}

// DataSent implements [networkd.Endpoint], forwarding once pivoted.
func (p *ProxiedSocket) DataSent(length int) {
	if p.phase == PhaseDone && p.Final != nil {
		p.Final.DataSent(length)
	}
}

// ConnectionClosed implements [networkd.Endpoint].
func (p *ProxiedSocket) ConnectionClosed() {
	if p.Final != nil {
		p.Final.ConnectionClosed()
	}
}

// ConnectionLost implements [networkd.Endpoint].
func (p *ProxiedSocket) ConnectionLost() {
	if p.Final != nil {
		p.Final.ConnectionLost()
	}
}

// Send writes to the underlying socket. Before [PhaseDone] this is used
// internally for negotiation; after pivoting, the final endpoint's owner is
// expected to call this to send application data.
func (p *ProxiedSocket) Send(buf []byte) { p.sock.Send(buf) }

// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/original_source/include/libnetworkd/Network.hpp
//
// The original leaves bind/pollRead/pollWrite/pollError/sendTo as stubs for
// UDP; this completes them following the TCP engine's patterns (bound fd in
// hint Idle, recvfrom on read-ready, per-peer endpoint lookup with factory
// fallback, outbound datagrams queued on EAGAIN and flushed on write-ready).
//

package networkd

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// UDPSocket is a single bound UDP file descriptor multiplexing many logical
// peer endpoints, keyed by [Node]. Unlike [TCPSocket], it carries no
// per-peer connection state of its own: peers are tracked only so incoming
// datagrams can be routed to the right [Endpoint].
type UDPSocket struct {
	reactor *Reactor
	cfg     *Config
	factory EndpointFactory

	fd   int
	hint Hint

	peers   map[Node]Endpoint
	pending []udpDatagram
}

var _ Socket = &UDPSocket{}

type udpDatagram struct {
	peer Node
	data []byte
}

// NewUDPSocket returns an unbound [*UDPSocket]. factory, if non-nil,
// manufactures an [Endpoint] for datagrams from a peer that is not already
// known via [UDPSocket.RegisterPeer]; if factory is nil, datagrams from
// unknown peers are dropped.
func NewUDPSocket(reactor *Reactor, cfg *Config, factory EndpointFactory) *UDPSocket {
	return &UDPSocket{
		reactor: reactor,
		cfg:     cfg,
		factory: factory,
		fd:      -1,
		hint:    HintIgnore,
		peers:   make(map[Node]Endpoint),
	}
}

// Bind creates the underlying socket, binds it to local, and registers it
// with the reactor in hint Idle.
func (s *UDPSocket) Bind(local Node) bool {
	if s.fd >= 0 {
		return false
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return false
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return false
	}
	sa, err := udpSockaddr(local)
	if err != nil {
		unix.Close(fd)
		return false
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return false
	}

	s.fd = fd
	s.hint = HintIdle
	s.reactor.Register(s, fd)
	s.cfg.Logger.Info("udpBind", "localAddr", local.String())
	return true
}

// RegisterPeer associates endpoint with peer explicitly, bypassing the
// factory. Used by callers (such as a DNS resolver) that know the peer
// before any datagram has arrived from it.
func (s *UDPSocket) RegisterPeer(peer Node, endpoint Endpoint) {
	s.peers[peer] = endpoint
}

// UnregisterPeer drops the association created by RegisterPeer or by the
// factory fallback in PollRead.
func (s *UDPSocket) UnregisterPeer(peer Node) {
	delete(s.peers, peer)
}

// SendTo queues buf for delivery to peer, flushing opportunistically. A
// datagram that the kernel cannot accept immediately (EAGAIN) is queued and
// retried on the next write-ready dispatch; like any UDP send, delivery is
// not guaranteed.
func (s *UDPSocket) SendTo(peer Node, buf []byte) {
	if len(s.pending) == 0 {
		sa, err := udpSockaddr(peer)
		if err == nil {
			sendErr := unix.Sendto(s.fd, buf, 0, sa)
			if sendErr == nil {
				return
			}
			if sendErr != unix.EAGAIN && sendErr != unix.EWOULDBLOCK {
				return // datagram dropped; UDP delivery is best-effort
			}
		}
	}
	s.pending = append(s.pending, udpDatagram{peer: peer, data: buf})
	s.hint = HintBuffering
}

// FD implements [Socket].
func (s *UDPSocket) FD() int { return s.fd }

// Hint implements [Socket].
func (s *UDPSocket) Hint() Hint { return s.hint }

// PollRead implements [Socket]: receives one datagram and routes it to the
// peer's endpoint, manufacturing one via the factory if the peer is new.
func (s *UDPSocket) PollRead() {
	buf := make([]byte, s.cfg.ReadBufferSize)
	n, from, err := unix.Recvfrom(s.fd, buf, 0)
	if err != nil || from == nil {
		return
	}

	peer := udpFamily{}.nodeFromSockaddr(from)
	endpoint, known := s.peers[peer]
	if !known {
		if s.factory == nil {
			s.cfg.Logger.Debug("udpDatagramDropped", "peerAddr", peer.String(), "reason", "no factory")
			return
		}
		endpoint = s.factory.CreateEndpoint(s)
		s.peers[peer] = endpoint
		s.cfg.Logger.Info("udpPeerDiscovered", "peerAddr", peer.String())
	}
	s.cfg.Logger.Debug("udpRead", "peerAddr", peer.String(), "bytes", n)
	endpoint.DataRead(buf[:n])
}

// PollWrite implements [Socket]: flushes queued datagrams.
func (s *UDPSocket) PollWrite() {
	for len(s.pending) != 0 {
		head := s.pending[0]
		sa, err := udpSockaddr(head.peer)
		if err == nil {
			sendErr := unix.Sendto(s.fd, head.data, 0, sa)
			if sendErr != nil {
				if sendErr == unix.EAGAIN || sendErr == unix.EWOULDBLOCK {
					return
				}
				// dropped; continue with the next queued datagram
			}
		}
		s.pending = s.pending[1:]
	}
	s.hint = HintIdle
}

// PollError implements [Socket]: closes the descriptor, then notifies every
// known peer endpoint that the connection is lost.
func (s *UDPSocket) PollError() {
	s.cfg.Logger.Info("udpPollError", "fd", s.fd, "peers", len(s.peers))
	s.reactor.Unregister(s)
	unix.Close(s.fd)
	s.fd = -1
	s.hint = HintIgnore
	for peer, endpoint := range s.peers {
		endpoint.ConnectionLost()
		delete(s.peers, peer)
	}
}

func udpSockaddr(n Node) (unix.Sockaddr, error) {
	sa := &unix.SockaddrInet4{Port: int(n.Port)}
	if n.Name != AnyNode && n.Name != "" {
		ip := net.ParseIP(n.Name)
		if ip == nil {
			return nil, fmt.Errorf("networkd: invalid IPv4 address %q", n.Name)
		}
		ip4 := ip.To4()
		if ip4 == nil {
			return nil, fmt.Errorf("networkd: %q is not an IPv4 address", n.Name)
		}
		copy(sa.Addr[:], ip4)
	}
	return sa, nil
}

// udpFamily reuses tcpFamily's sockaddr<->Node conversion, which is
// address-family specific, not protocol specific.
type udpFamily struct{ tcpFamily }

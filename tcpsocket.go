// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/original_source/src/TcpSocket.cpp
//

package networkd

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// TCPSocket is a non-blocking IPv4 TCP client or server socket driven by a
// [Reactor]. See [StreamState] for its lifecycle.
type TCPSocket struct {
	core *streamCore
}

var _ Socket = &TCPSocket{}

// NewTCPSocket returns a client-mode [*TCPSocket] that delivers callbacks to
// endpoint. Call [TCPSocket.Connect] to start it.
func NewTCPSocket(reactor *Reactor, cfg *Config, endpoint Endpoint) *TCPSocket {
	s := &TCPSocket{core: newStreamCore(reactor, cfg, tcpFamily{})}
	s.core.self = s
	s.core.endpoint = endpoint
	return s
}

// NewTCPServerSocket returns a server-mode [*TCPSocket]. Call
// [TCPSocket.Bind] then [TCPSocket.Listen] to start accepting connections;
// factory manufactures an [Endpoint] for each one.
func NewTCPServerSocket(reactor *Reactor, cfg *Config, factory EndpointFactory) *TCPSocket {
	s := &TCPSocket{core: newStreamCore(reactor, cfg, tcpFamily{})}
	s.core.self = s
	s.core.factory = factory
	s.core.acceptChild = func(nfd int, remote Node) {
		child := &TCPSocket{core: newStreamCore(reactor, cfg, tcpFamily{})}
		child.core.self = child
		child.core.factory = factory
		finishAccept(s.core, child.core, child, nfd, remote)
	}
	return s
}

// Connect dials remote. See [streamCore.Connect] for the return semantics.
func (s *TCPSocket) Connect(remote Node) bool { return s.core.Connect(remote) }

// Bind binds the socket to local.
func (s *TCPSocket) Bind(local Node) bool { return s.core.Bind(local) }

// Listen transitions the socket to a listening server.
func (s *TCPSocket) Listen(backlog int) bool { return s.core.Listen(backlog) }

// Send queues buf for transmission, flushing opportunistically.
func (s *TCPSocket) Send(buf []byte) { s.core.Send(buf) }

// Close tears the connection down; see [streamCore.Close].
func (s *TCPSocket) Close(force bool) bool { return s.core.Close(force) }

// State reports the current [StreamState].
func (s *TCPSocket) State() StreamState { return s.core.state }

// FD implements [Socket].
func (s *TCPSocket) FD() int { return s.core.FD() }

// Hint implements [Socket].
func (s *TCPSocket) Hint() Hint { return s.core.Hint() }

// PollRead implements [Socket].
func (s *TCPSocket) PollRead() { s.core.PollRead() }

// PollWrite implements [Socket].
func (s *TCPSocket) PollWrite() { s.core.PollWrite() }

// PollError implements [Socket].
func (s *TCPSocket) PollError() { s.core.PollError() }

// tcpFamily implements [streamFamily] for AF_INET/SOCK_STREAM sockets.
type tcpFamily struct{}

func (tcpFamily) newFD() (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

func (tcpFamily) sockaddr(n Node) (unix.Sockaddr, error) {
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

func (tcpFamily) nodeFromSockaddr(sa unix.Sockaddr) Node {
	in4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return Node{}
	}
	return Node{Name: net.IP(in4.Addr[:]).String(), Port: uint16(in4.Port)}
}

func (f tcpFamily) localNode(fd int) (Node, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return Node{}, err
	}
	return f.nodeFromSockaddr(sa), nil
}

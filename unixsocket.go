// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/original_source/src/TcpSocket.cpp
//
// UnixSocket reuses the TCP engine's read/write/close logic wholesale
// (see stream.go); only address family, socket() and accept() handling
// differ, which is exactly what the original's own UnixSocket specialized.
//

package networkd

import "golang.org/x/sys/unix"

// UnixSocket is a non-blocking AF_UNIX stream socket driven by a [Reactor].
// Its lifecycle and callback semantics are identical to [TCPSocket]; only
// addressing differs: Node.Name holds a filesystem path instead of an IPv4
// address and Node.Port is unused.
type UnixSocket struct {
	core *streamCore
}

var _ Socket = &UnixSocket{}

// NewUnixSocket returns a client-mode [*UnixSocket].
func NewUnixSocket(reactor *Reactor, cfg *Config, endpoint Endpoint) *UnixSocket {
	s := &UnixSocket{core: newStreamCore(reactor, cfg, unixFamily{})}
	s.core.self = s
	s.core.endpoint = endpoint
	return s
}

// NewUnixServerSocket returns a server-mode [*UnixSocket].
func NewUnixServerSocket(reactor *Reactor, cfg *Config, factory EndpointFactory) *UnixSocket {
	s := &UnixSocket{core: newStreamCore(reactor, cfg, unixFamily{})}
	s.core.self = s
	s.core.factory = factory
	s.core.acceptChild = func(nfd int, remote Node) {
		child := &UnixSocket{core: newStreamCore(reactor, cfg, unixFamily{})}
		child.core.self = child
		child.core.factory = factory
		finishAccept(s.core, child.core, child, nfd, remote)
	}
	return s
}

// Connect dials the UNIX socket at remote.Name.
func (s *UnixSocket) Connect(remote Node) bool { return s.core.Connect(remote) }

// Bind binds the socket to the filesystem path local.Name, first removing
// a stale socket file left over from a previous run, if any.
func (s *UnixSocket) Bind(local Node) bool {
	unix.Unlink(local.Name)
	return s.core.Bind(local)
}

// Listen transitions the socket to a listening server.
func (s *UnixSocket) Listen(backlog int) bool { return s.core.Listen(backlog) }

// Send queues buf for transmission, flushing opportunistically.
func (s *UnixSocket) Send(buf []byte) { s.core.Send(buf) }

// Close tears the connection down; see [streamCore.Close].
func (s *UnixSocket) Close(force bool) bool { return s.core.Close(force) }

// State reports the current [StreamState].
func (s *UnixSocket) State() StreamState { return s.core.state }

// FD implements [Socket].
func (s *UnixSocket) FD() int { return s.core.FD() }

// Hint implements [Socket].
func (s *UnixSocket) Hint() Hint { return s.core.Hint() }

// PollRead implements [Socket].
func (s *UnixSocket) PollRead() { s.core.PollRead() }

// PollWrite implements [Socket].
func (s *UnixSocket) PollWrite() { s.core.PollWrite() }

// PollError implements [Socket].
func (s *UnixSocket) PollError() { s.core.PollError() }

// unixFamily implements [streamFamily] for AF_UNIX/SOCK_STREAM sockets.
type unixFamily struct{}

func (unixFamily) newFD() (int, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

func (unixFamily) sockaddr(n Node) (unix.Sockaddr, error) {
	return &unix.SockaddrUnix{Name: n.Name}, nil
}

func (unixFamily) nodeFromSockaddr(sa unix.Sockaddr) Node {
	un, ok := sa.(*unix.SockaddrUnix)
	if !ok {
		return Node{}
	}
	return Node{Name: un.Name}
}

func (f unixFamily) localNode(fd int) (Node, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return Node{}, err
	}
	return f.nodeFromSockaddr(sa), nil
}

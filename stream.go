// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/original_source/src/TcpSocket.cpp
//

package networkd

import "golang.org/x/sys/unix"

// StreamState is the lifecycle state of a [TCPSocket] or [UnixSocket].
//
//	Uninitialized -> GoingUp (EINPROGRESS) -> Idle <-> Buffering -> GoingDown -> Down
//	                    \_____________________/ (immediate connect success)
type StreamState int

const (
	StreamUninitialized StreamState = iota
	StreamGoingUp
	StreamIdle
	StreamBuffering
	StreamGoingDown
	StreamDown
)

// streamFamily hides the AF_INET vs AF_UNIX differences behind a small
// interface so the state machine below is written once and shared by
// [TCPSocket] and [UnixSocket], matching the way the original source reused
// TcpSocket's read/write/close logic for UnixSocket.
type streamFamily interface {
	newFD() (int, error)
	sockaddr(n Node) (unix.Sockaddr, error)
	nodeFromSockaddr(sa unix.Sockaddr) Node
	localNode(fd int) (Node, error)
}

// streamCore implements the non-blocking stream socket state machine
// common to TCP and UNIX-domain sockets.
type streamCore struct {
	reactor *Reactor
	cfg     *Config
	family  streamFamily

	self        Socket
	endpoint    Endpoint
	factory     EndpointFactory
	acceptChild func(nfd int, remote Node)

	fd           int
	state        StreamState
	hint         Hint
	serverSocket bool
	remote       Node
	outputBuffer []byte
}

func newStreamCore(reactor *Reactor, cfg *Config, family streamFamily) *streamCore {
	return &streamCore{
		reactor: reactor,
		cfg:     cfg,
		family:  family,
		fd:      -1,
		state:   StreamUninitialized,
		hint:    HintIgnore,
	}
}

// Connect requires [StreamUninitialized]. It creates the file descriptor if
// needed, then attempts a non-blocking connect(2). A return value of false
// means the caller should destroy the socket; setup never leaves it
// half-alive.
func (c *streamCore) Connect(remote Node) bool {
	if c.state != StreamUninitialized {
		return false
	}
	if c.fd < 0 {
		fd, err := c.family.newFD()
		if err != nil {
			return false
		}
		c.fd = fd
	}

	sa, err := c.family.sockaddr(remote)
	if err != nil {
		return false
	}
	c.remote = remote

	err = unix.Connect(c.fd, sa)
	if err == nil {
		c.reactor.Register(c.self, c.fd)
		c.state = StreamIdle
		c.hint = HintIdle
		local, _ := c.family.localNode(c.fd)
		c.cfg.Logger.Info("connectDone", "remoteAddr", remote.String(), "localAddr", local.String())
		c.endpoint.ConnectionEstablished(remote, local)
		return true
	}
	if err == unix.EINPROGRESS {
		c.reactor.Register(c.self, c.fd)
		c.state = StreamGoingUp
		c.hint = HintBuffering
		c.cfg.Logger.Info("connectStart", "remoteAddr", remote.String())
		return true
	}

	c.cfg.Logger.Info("connectDone", "remoteAddr", remote.String(), "err", err.Error(), "errClass", c.cfg.ErrClassifier.Classify(err))
	unix.Close(c.fd)
	c.fd = -1
	return false
}

// Bind is pure setup; it causes no state transition.
func (c *streamCore) Bind(local Node) bool {
	if c.fd < 0 {
		fd, err := c.family.newFD()
		if err != nil {
			return false
		}
		c.fd = fd
	}
	sa, err := c.family.sockaddr(local)
	if err != nil {
		return false
	}
	return unix.Bind(c.fd, sa) == nil
}

// Listen transitions to [StreamIdle] as a server socket.
func (c *streamCore) Listen(backlog int) bool {
	if c.fd < 0 {
		return false
	}
	if err := unix.Listen(c.fd, backlog); err != nil {
		return false
	}
	c.reactor.Register(c.self, c.fd)
	c.state = StreamIdle
	c.hint = HintIdle
	c.serverSocket = true
	return true
}

// Send writes buf, buffering whatever the kernel does not accept
// immediately. In [StreamBuffering] or [StreamGoingUp] everything is
// buffered unconditionally, matching the original's ordering rule that
// send() never races ahead of data already queued.
func (c *streamCore) Send(buf []byte) {
	switch c.state {
	case StreamIdle:
		n, err := unix.SendmsgN(c.fd, buf, nil, nil, unix.MSG_NOSIGNAL)
		if err == nil && n == len(buf) {
			return
		}
		if err != nil {
			if err == unix.EINTR || err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				c.state = StreamBuffering
				c.hint = HintBuffering
				c.outputBuffer = append(c.outputBuffer, buf...)
			}
			// Any other send error is left for the next POLLERR dispatch
			// to tear the socket down; the bytes are dropped, matching the
			// original engine's documented behavior for this branch.
			return
		}
		c.state = StreamBuffering
		c.hint = HintBuffering
		c.outputBuffer = append(c.outputBuffer, buf[n:]...)
	case StreamBuffering, StreamGoingUp:
		c.outputBuffer = append(c.outputBuffer, buf...)
	}
}

// Close tears the socket down. If the output buffer is non-empty and force
// is false, the close is deferred until the buffer drains (transition to
// [StreamGoingDown], return false). Otherwise the descriptor is closed
// immediately and true is returned.
func (c *streamCore) Close(force bool) bool {
	if c.fd < 0 {
		return true
	}
	if c.state == StreamBuffering && !force {
		c.state = StreamGoingDown
		return false
	}

	// Snapshot the pre-close state before mutating it. The original engine
	// set m_state to DOWN and only then compared it against BUFFERING to
	// pick connection_lost vs connection_closed, so that branch could never
	// fire; deciding from the snapshot fixes that.
	wasBuffering := c.state == StreamBuffering

	c.reactor.Unregister(c.self)
	unix.Close(c.fd)
	c.fd = -1
	c.state = StreamDown
	c.hint = HintIgnore

	if c.endpoint != nil {
		if wasBuffering {
			c.cfg.Logger.Info("closeDone", "outcome", "lost", "outputBufferedBytes", len(c.outputBuffer))
			c.endpoint.ConnectionLost()
		} else {
			c.cfg.Logger.Info("closeDone", "outcome", "closed")
			c.endpoint.ConnectionClosed()
		}
	}
	return true
}

// FD implements [Socket].
func (c *streamCore) FD() int { return c.fd }

// Hint implements [Socket].
func (c *streamCore) Hint() Hint { return c.hint }

// PollRead implements [Socket]: accepts a new connection on a server socket,
// or reads and delivers data on a client socket.
func (c *streamCore) PollRead() {
	if c.serverSocket {
		c.acceptOne()
		return
	}

	buf := make([]byte, c.cfg.ReadBufferSize)
	n, err := unix.Read(c.fd, buf)
	if n <= 0 {
		graceful := n == 0 && c.state == StreamIdle && len(c.outputBuffer) == 0
		c.reactor.Unregister(c.self)
		unix.Close(c.fd)
		c.fd = -1
		c.state = StreamDown
		c.hint = HintIgnore
		if graceful {
			c.cfg.Logger.Info("readDone", "outcome", "eof")
			c.endpoint.ConnectionClosed()
		} else if err != nil {
			c.cfg.Logger.Info("readDone", "outcome", "lost", "err", err.Error(), "errClass", c.cfg.ErrClassifier.Classify(err))
			c.endpoint.ConnectionLost()
		} else {
			c.cfg.Logger.Info("readDone", "outcome", "lost")
			c.endpoint.ConnectionLost()
		}
		return
	}

	c.cfg.Logger.Debug("read", "bytes", n)
	c.endpoint.DataRead(buf[:n])
}

func (c *streamCore) acceptOne() {
	nfd, sa, err := unix.Accept4(c.fd, unix.SOCK_NONBLOCK)
	if err != nil {
		c.cfg.Logger.Debug("acceptFailed", "errClass", c.cfg.ErrClassifier.Classify(err))
		return
	}
	if c.acceptChild == nil {
		unix.Close(nfd)
		return
	}
	remote := c.family.nodeFromSockaddr(sa)
	c.acceptChild(nfd, remote)
}

// PollWrite implements [Socket].
func (c *streamCore) PollWrite() {
	if c.state == StreamGoingUp {
		if len(c.outputBuffer) != 0 {
			c.state = StreamBuffering
			c.hint = HintBuffering
		} else {
			c.state = StreamIdle
			c.hint = HintIdle
		}
		local, _ := c.family.localNode(c.fd)
		c.cfg.Logger.Info("connectDone", "remoteAddr", c.remote.String(), "localAddr", local.String())
		c.endpoint.ConnectionEstablished(c.remote, local)
		return
	}

	n, err := unix.SendmsgN(c.fd, c.outputBuffer, nil, nil, unix.MSG_NOSIGNAL)
	if err != nil {
		if err == unix.EWOULDBLOCK || err == unix.EAGAIN {
			return
		}
		c.cfg.Logger.Info("writeDone", "outcome", "lost", "err", err.Error(), "errClass", c.cfg.ErrClassifier.Classify(err))
		c.reactor.Unregister(c.self)
		unix.Close(c.fd)
		c.fd = -1
		c.state = StreamDown
		c.hint = HintIgnore
		c.endpoint.ConnectionLost()
		return
	}
	c.cfg.Logger.Debug("write", "bytes", n)

	c.outputBuffer = c.outputBuffer[n:]
	if len(c.outputBuffer) != 0 {
		return
	}

	if c.state == StreamGoingDown {
		c.cfg.Logger.Info("writeDone", "outcome", "closed")
		c.reactor.Unregister(c.self)
		unix.Close(c.fd)
		c.fd = -1
		c.state = StreamDown
		c.hint = HintIgnore
		c.endpoint.ConnectionClosed()
	} else {
		c.state = StreamIdle
		c.hint = HintIdle
	}
}

// PollError implements [Socket]: unconditional teardown.
func (c *streamCore) PollError() {
	c.cfg.Logger.Info("pollError", "fd", c.fd)
	c.reactor.Unregister(c.self)
	unix.Close(c.fd)
	c.fd = -1
	c.state = StreamDown
	c.hint = HintIgnore
	c.endpoint.ConnectionLost()
}

// finishAccept wires up a freshly accepted child socket: binds it to the
// factory-created endpoint, registers it with the reactor, and fires
// connection_established with resolved remote and local node information.
func finishAccept(parent *streamCore, child *streamCore, childSocket Socket, nfd int, remote Node) {
	child.fd = nfd
	child.state = StreamIdle
	child.hint = HintIdle

	if child.endpoint == nil && parent.factory != nil {
		child.endpoint = parent.factory.CreateEndpoint(childSocket)
	}

	child.reactor.Register(childSocket, nfd)
	local, _ := child.family.localNode(nfd)
	child.cfg.Logger.Info("accept", "remoteAddr", remote.String(), "localAddr", local.String())
	child.endpoint.ConnectionEstablished(remote, local)
}

// SPDX-License-Identifier: GPL-3.0-or-later

package networkd

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUnixSocketEchoServer(t *testing.T) {
	reactor := NewReactor(NewConfig())
	cfg := NewConfig()
	closed := make(chan struct{})

	sockPath := filepath.Join(t.TempDir(), fmt.Sprintf("networkd-test-%d.sock", time.Now().UnixNano()))

	factory := EndpointFactoryFunc(func(socket Socket) Endpoint {
		return &echoEndpoint{sock: socket.(sender), closed: closed}
	})
	server := NewUnixServerSocket(reactor, cfg, factory)
	require.True(t, server.Bind(Node{Name: sockPath}))
	require.True(t, server.Listen(4))
	defer os.Remove(sockPath)

	done := make(chan struct{})
	var clientErr error
	go func() {
		defer close(done)
		conn, err := net.Dial("unix", sockPath)
		if err != nil {
			clientErr = err
			return
		}
		defer conn.Close()
		if _, err := conn.Write([]byte("hello")); err != nil {
			clientErr = err
			return
		}
		buf := make([]byte, 16)
		n, err := conn.Read(buf)
		if err != nil {
			clientErr = err
			return
		}
		if string(buf[:n]) != "hello" {
			clientErr = fmt.Errorf("got %q", buf[:n])
		}
	}()

	isDone := func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
	driveUntil(t, reactor, isDone, 2*time.Second)
	require.NoError(t, clientErr)
}

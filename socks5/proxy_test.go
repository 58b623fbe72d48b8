// SPDX-License-Identifier: GPL-3.0-or-later

package socks5

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/oxff/networkd"
	"github.com/stretchr/testify/require"
)

func driveProxy(t *testing.T, reactor *networkd.Reactor, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out driving the reactor")
		}
		require.NoError(t, reactor.Step(10*time.Millisecond))
	}
}

// fakeSOCKS5Server speaks just enough SOCKS5 (no-auth, CONNECT) to drive
// [ProxiedSocket] end to end, then echoes whatever it receives afterward.
func fakeSOCKS5Server(t *testing.T) (addr string, done chan struct{}) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done = make(chan struct{})

	go func() {
		defer close(done)
		defer ln.Close()
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		greeting := make([]byte, 4)
		if _, err := readFull(conn, greeting); err != nil {
			return
		}
		conn.Write([]byte{version5, methodNoAuth})

		req := make([]byte, connectResponseLen)
		if _, err := readFull(conn, req); err != nil {
			return
		}
		resp := []byte{version5, 0, 0, atypIPv4, 127, 0, 0, 1, 0x1F, 0x90}
		conn.Write(resp)

		buf := make([]byte, 64)
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		conn.Write(buf[:n])
	}()

	return ln.Addr().String(), done
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// pivotEndpoint records ConnectionEstablished and every byte DataRead
// delivers, so the test can confirm no final-target byte ever arrives
// before pivoting completes.
type pivotEndpoint struct {
	networkd.BaseEndpoint
	established           bool
	remote                networkd.Node
	reads                 [][]byte
	readBeforeEstablished bool
}

func (p *pivotEndpoint) ConnectionEstablished(remote, local networkd.Node) {
	p.established = true
	p.remote = remote
}

func (p *pivotEndpoint) DataRead(buf []byte) {
	if !p.established {
		p.readBeforeEstablished = true
	}
	p.reads = append(p.reads, append([]byte(nil), buf...))
}

func TestProxiedSocketNegotiatesAndPivots(t *testing.T) {
	proxyAddr, serverDone := fakeSOCKS5Server(t)
	host, portStr, err := net.SplitHostPort(proxyAddr)
	require.NoError(t, err)
	var port int
	fmt.Sscanf(portStr, "%d", &port)

	reactor := networkd.NewReactor(networkd.NewConfig())
	cfg := networkd.NewConfig()

	final := &pivotEndpoint{}
	target := net.TCPAddr{IP: net.ParseIP("93.184.216.34"), Port: 443}
	p := NewProxiedSocket(reactor, cfg, final, target, Credentials{})

	require.True(t, p.Connect(networkd.Node{Name: host, Port: uint16(port)}))

	driveProxy(t, reactor, func() bool { return p.phase == PhaseDone })
	require.True(t, final.established)
	require.Equal(t, "93.184.216.34:443", final.remote.String())

	p.Send([]byte("hi"))
	driveProxy(t, reactor, func() bool { return len(final.reads) > 0 })
	require.False(t, final.readBeforeEstablished)
	require.Equal(t, "hi", string(final.reads[0]))

	<-serverDone
}

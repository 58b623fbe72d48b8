// SPDX-License-Identifier: GPL-3.0-or-later

package dns

import (
	"testing"
	"time"

	miekgdns "github.com/miekg/dns"
	"github.com/oxff/networkd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestSyncResolverLiteralAndRealLookup(t *testing.T) {
	cfg := networkd.NewConfig()
	r := NewSyncResolver(cfg)

	var addrs []string
	var status Status
	r.Resolve("127.0.0.1", "req", func(a []string, s Status) {
		addrs = a
		status = s
	})
	assert.Equal(t, StatusOk, status)
	assert.Contains(t, addrs, "127.0.0.1")
}

func TestSyncResolverCancelAllIsNoOp(t *testing.T) {
	r := NewSyncResolver(networkd.NewConfig())
	assert.NotPanics(t, func() { r.CancelAll("anything") })
}

// fakeServer is a minimal non-blocking UDP A-record server used to drive
// AsyncResolver end-to-end without a real network dependency.
type fakeServer struct {
	fd   int
	port int
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	require.NoError(t, err)
	require.NoError(t, unix.SetNonblock(fd, true))
	require.NoError(t, unix.Bind(fd, &unix.SockaddrInet4{Port: 0, Addr: [4]byte{127, 0, 0, 1}}))
	sa, err := unix.Getsockname(fd)
	require.NoError(t, err)
	in4 := sa.(*unix.SockaddrInet4)
	return &fakeServer{fd: fd, port: in4.Port}
}

func (f *fakeServer) close() { unix.Close(f.fd) }

// respondOnce waits for one query and replies with the given IPv4 answer
// (or no answer for an empty answerIP).
func (f *fakeServer) respondOnce(t *testing.T, answerIP string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	var buf [512]byte
	var n int
	var from unix.Sockaddr
	var err error
	for {
		n, from, err = unix.Recvfrom(f.fd, buf[:], 0)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("fake DNS server never received a query")
		}
		time.Sleep(time.Millisecond)
	}

	msg := new(miekgdns.Msg)
	require.NoError(t, msg.Unpack(buf[:n]))

	resp := new(miekgdns.Msg)
	resp.SetReply(msg)
	if answerIP != "" {
		rr, err := miekgdns.NewRR(msg.Question[0].Name + " 60 IN A " + answerIP)
		require.NoError(t, err)
		resp.Answer = append(resp.Answer, rr)
	}
	packed, err := resp.Pack()
	require.NoError(t, err)
	require.NoError(t, unix.Sendto(f.fd, packed, 0, from))
}

func driveResolver(t *testing.T, reactor *networkd.Reactor, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out driving the reactor")
		}
		require.NoError(t, reactor.Step(10*time.Millisecond))
	}
}

func TestAsyncResolverDeliversAddresses(t *testing.T) {
	server := newFakeServer(t)
	defer server.close()

	cfg := networkd.NewConfig()
	reactor := networkd.NewReactor(cfg)
	wheel := networkd.NewTimeoutWheel(cfg)

	resolver, ok := NewAsyncResolver(reactor, wheel, cfg, networkd.Node{Name: "127.0.0.1", Port: uint16(server.port)})
	require.True(t, ok)

	var addrs []string
	var status Status
	done := false
	resolver.Resolve("example.test", "req", func(a []string, s Status) {
		addrs, status, done = a, s, true
	})

	server.respondOnce(t, "1.2.3.4")
	driveResolver(t, reactor, func() bool { return done })

	assert.Equal(t, StatusOk, status)
	assert.Equal(t, []string{"1.2.3.4"}, addrs)
}

func TestAsyncResolverHostUnknownOnEmptyAnswer(t *testing.T) {
	server := newFakeServer(t)
	defer server.close()

	cfg := networkd.NewConfig()
	reactor := networkd.NewReactor(cfg)
	wheel := networkd.NewTimeoutWheel(cfg)
	resolver, ok := NewAsyncResolver(reactor, wheel, cfg, networkd.Node{Name: "127.0.0.1", Port: uint16(server.port)})
	require.True(t, ok)

	var status Status
	done := false
	resolver.Resolve("nxdomain.test", "req", func(a []string, s Status) { status, done = s, true })

	server.respondOnce(t, "")
	driveResolver(t, reactor, func() bool { return done })

	assert.Equal(t, StatusHostUnknown, status)
}

func TestAsyncResolverLiteralIPv4Synchronous(t *testing.T) {
	server := newFakeServer(t)
	defer server.close()

	cfg := networkd.NewConfig()
	reactor := networkd.NewReactor(cfg)
	wheel := networkd.NewTimeoutWheel(cfg)
	resolver, ok := NewAsyncResolver(reactor, wheel, cfg, networkd.Node{Name: "127.0.0.1", Port: uint16(server.port)})
	require.True(t, ok)

	var addrs []string
	var status Status
	resolver.Resolve("10.0.0.1", "req", func(a []string, s Status) { addrs, status = a, s })

	assert.Equal(t, StatusOk, status)
	assert.Equal(t, []string{"10.0.0.1"}, addrs)
	assert.Empty(t, resolver.pending)
}

func TestAsyncResolverTimeoutRearmsToSoonest(t *testing.T) {
	now := time.Unix(1000, 0)
	cfg := networkd.NewConfig()
	cfg.TimeNow = func() time.Time { return now }

	server := newFakeServer(t)
	defer server.close()

	reactor := networkd.NewReactor(cfg)
	wheel := networkd.NewTimeoutWheel(cfg)
	resolver, ok := NewAsyncResolver(reactor, wheel, cfg, networkd.Node{Name: "127.0.0.1", Port: uint16(server.port)})
	require.True(t, ok)
	resolver.QueryTimeout = 1 * time.Second

	resolver.Resolve("slow-a.test", "req-a", func([]string, Status) {})

	cfg.TimeNow = func() time.Time { return now.Add(500 * time.Millisecond) }
	resolver.QueryTimeout = 5 * time.Second
	resolver.Resolve("slow-b.test", "req-b", func([]string, Status) {})

	delta, ok := wheel.NextDelta()
	require.True(t, ok)
	assert.LessOrEqual(t, delta, 500*time.Millisecond)

	cfg.TimeNow = func() time.Time { return now.Add(1100 * time.Millisecond) }
	wheel.FireDue(now.Add(1100 * time.Millisecond))
	assert.Len(t, resolver.pending, 1)
}

func TestAsyncResolverCancelAllDropsMatchingQueries(t *testing.T) {
	server := newFakeServer(t)
	defer server.close()

	cfg := networkd.NewConfig()
	reactor := networkd.NewReactor(cfg)
	wheel := networkd.NewTimeoutWheel(cfg)
	resolver, ok := NewAsyncResolver(reactor, wheel, cfg, networkd.Node{Name: "127.0.0.1", Port: uint16(server.port)})
	require.True(t, ok)

	resolver.Resolve("a.test", "req-a", func([]string, Status) {})
	resolver.Resolve("b.test", "req-b", func([]string, Status) {})
	require.Len(t, resolver.pending, 2)

	resolver.CancelAll("req-a")
	assert.Len(t, resolver.pending, 1)

	resolver.CancelAll("req-a")
	assert.Len(t, resolver.pending, 1)
}

// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/nabbar-golib/httpserver/run/waitNotify.go (signal
// handling shape) and _examples/original_source/src/main.cpp's daemon
// bootstrap (bind, listen, run, shut down on signal).
//

// Command networkd-echo is a minimal example daemon built on top of
// [github.com/oxff/networkd]: it binds a TCP listener, echoes every byte it
// reads back to the sender, and shuts down cleanly on SIGINT/SIGTERM,
// draining already-accepted connections before exiting.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oxff/networkd"
	"github.com/oxff/networkd/config"
)

func main() {
	addr := "127.0.0.1:7007"
	if len(os.Args) > 1 {
		addr = os.Args[1]
	}

	cfg := networkd.NewConfig()
	cfg.Logger = slog.Default()

	tree := config.Map{
		"listen": map[string]any{
			"address": addr,
		},
	}

	if err := run(cfg, tree); err != nil {
		fmt.Fprintln(os.Stderr, "networkd-echo:", err)
		os.Exit(1)
	}
}

// echoEndpoint writes every byte it reads back to the peer it came from.
type echoEndpoint struct {
	networkd.BaseEndpoint
	sock *networkd.TCPSocket
}

func (e *echoEndpoint) DataRead(buf []byte) {
	e.sock.Send(append([]byte(nil), buf...))
}

func run(cfg *networkd.Config, tree config.Tree) error {
	node, err := parseListenAddress(tree)
	if err != nil {
		return err
	}

	reactor := networkd.NewReactor(cfg)

	var connections []*networkd.TCPSocket
	factory := networkd.EndpointFactoryFunc(func(socket networkd.Socket) networkd.Endpoint {
		tcp := socket.(*networkd.TCPSocket)
		connections = append(connections, tcp)
		return &echoEndpoint{sock: tcp}
	})

	server := networkd.NewTCPServerSocket(reactor, cfg, factory)
	if !server.Bind(node) {
		return fmt.Errorf("bind %s: failed", node)
	}
	if !server.Listen(cfg.ServerBacklog) {
		return fmt.Errorf("listen on %s: failed", node)
	}
	cfg.Logger.Info("listening", "address", node.String())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-quit:
			cfg.Logger.Info("shutting down")
			server.Close(true)
			for _, c := range connections {
				c.Close(false)
			}
			return drain(reactor, connections, 5*time.Second)
		default:
		}
		if err := reactor.Step(100 * time.Millisecond); err != nil {
			return fmt.Errorf("reactor step: %w", err)
		}
	}
}

// drain steps the reactor until every connection has finished flushing its
// buffered output and gone down, or timeout elapses.
func drain(reactor *networkd.Reactor, connections []*networkd.TCPSocket, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		allDown := true
		for _, c := range connections {
			if c.State() != networkd.StreamDown {
				allDown = false
				break
			}
		}
		if allDown || time.Now().After(deadline) {
			return nil
		}
		if err := reactor.Step(50 * time.Millisecond); err != nil {
			return fmt.Errorf("reactor step during drain: %w", err)
		}
	}
}

func parseListenAddress(tree config.Tree) (networkd.Node, error) {
	addr := tree.GetString("listen:address", "")
	if addr == "" {
		return networkd.Node{}, fmt.Errorf("missing listen:address")
	}
	host, portStr, err := splitHostPort(addr)
	if err != nil {
		return networkd.Node{}, err
	}
	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return networkd.Node{}, fmt.Errorf("bad port %q: %w", portStr, err)
	}
	return networkd.Node{Name: host, Port: uint16(port)}, nil
}

func splitHostPort(addr string) (host, port string, err error) {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i], addr[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("address %q has no port", addr)
}

// SPDX-License-Identifier: GPL-3.0-or-later

// Package networkd provides a single-threaded, event-driven runtime for
// building POSIX network daemons.
//
// # Core Abstraction
//
// Everything in this package revolves around the [Reactor]: a readiness-based
// I/O multiplexer built on [golang.org/x/sys/unix.Poll]. Callers register
// [Socket] implementations with the reactor and then drive it by repeatedly
// calling [Reactor.Step]. The reactor never spawns goroutines and never
// blocks anywhere except inside the poll syscall itself.
//
// # Available Primitives
//
// Connection handling:
//   - [TCPSocket]: non-blocking TCP client/server socket with output buffering
//   - [UnixSocket]: the same state machine over AF_UNIX stream sockets
//   - [UDPSocket]: datagram socket multiplexing per-peer virtual endpoints
//   - [Endpoint]: the callback interface every socket drives
//   - [TimeoutWheel]: schedules callbacks to fire after a delay, re-entrant safe
//
// Subpackages:
//   - [github.com/oxff/networkd/dns]: synchronous and reactor-driven asynchronous
//     DNS resolution
//   - [github.com/oxff/networkd/socks5]: a SOCKS5 proxy-capable dialer built as
//     another [Endpoint]
//   - [github.com/oxff/networkd/eventbus]: a publish/subscribe bus for inter-module
//     communication, with wildcard subscriptions and parent-event correlation
//   - [github.com/oxff/networkd/config]: the configuration-tree collaborator
//     interface
//   - [github.com/oxff/networkd/module]: the minimal module lifecycle interface
//
// # Observability
//
// All primitives support structured logging via [Logger] (compatible with
// [log/slog]). By default, logging is disabled: set the Logger field of
// [Config] to a custom [*slog.Logger] to enable it. Error classification is
// configurable via [ErrClassifier]; the default, [DefaultErrClassifier], wraps
// the [github.com/oxff/networkd/errclass] POSIX errno classifier.
//
// Primitives emit two kinds of structured log events:
//
//   - Span events (connectStart/connectDone, accept, and the readDone,
//     writeDone and closeDone events that end a connection): record
//     connection lifecycle and its success or failure.
//
//   - Wire observations (e.g. dnsQuery/dnsResponse, socks5Negotiate): capture
//     protocol-level detail for debugging.
//
// Connection events carry remoteAddr and localAddr where known; failure
// events additionally carry err and errClass. Events carry no timestamp
// fields of their own. Per-I/O events (read, write, timer firing) are
// emitted at [slog.LevelDebug]; lifecycle and protocol events use
// [slog.LevelInfo].
//
// Use [NewSpanID] to generate a unique, time-ordered identifier (UUIDv7) for
// each operation, then attach it to the logger with [*slog.Logger.With]. All
// log entries from that operation will share the same spanID.
//
// # Concurrency Model
//
// This package is deliberately single-threaded: exactly one goroutine is
// expected to call [Reactor.Step] in a loop, and every callback it invokes
// (Endpoint methods, timer callbacks, event subscribers) runs synchronously
// on that same goroutine. Nothing in this package uses a mutex. Callbacks are
// free to register, unregister, or cancel any reactor entity, including the
// one currently firing; see [Reactor] and [TimeoutWheel] for the specific
// re-entrancy guarantees this requires.
//
// # Design Boundaries
//
// This package intentionally does not provide: multi-threaded parallelism,
// cross-process reactor sharing, TLS, IPv6, fair scheduling or priorities,
// encryption or authentication of bus events, or persistent state. Build
// those, if needed, as additional modules layered on top.
package networkd

//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/ooni/probe-cli/blob/v3.20.1/internal/netxlite/dialer.go
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/x/netcore/dialer.go
//

package networkd

// Logger abstracts the [*slog.Logger] behavior.
//
// By using an abstraction we allow for unit testing and alternative implementations.
//
// This package uses two log levels:
//   - Info for lifecycle and protocol events (connect, close, accept, DNS
//     exchange, SOCKS5 negotiation)
//   - Debug for per-I/O events (read, write, timer firing)
//
// The [*slog.Logger] type satisfies this interface.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

// DefaultLogger returns the default [Logger] to use.
//
// The default is a no-op logger that discards all output. This follows the
// library convention of not writing to stdout/stderr unless explicitly configured.
//
// Use a custom [*slog.Logger] for emitting logs.
func DefaultLogger() Logger {
	return discardLogger{}
}

// discardLogger is a no-op [Logger] that discards all log messages.
type discardLogger struct{}

var _ Logger = discardLogger{}

// Debug implements [Logger].
func (discardLogger) Debug(msg string, args ...any) {
	// nothing
}

// Info implements [Logger].
func (discardLogger) Info(msg string, args ...any) {
	// nothing
}

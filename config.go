// SPDX-License-Identifier: GPL-3.0-or-later

package networkd

import "time"

// Config holds common configuration shared by the types in this package.
//
// Pass this to constructor functions to pre-wire dependencies. All fields
// have sensible defaults set by [NewConfig].
type Config struct {
	// Logger receives structured log events.
	//
	// Set by [NewConfig] to [DefaultLogger].
	Logger Logger

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewConfig] to [DefaultErrClassifier].
	ErrClassifier ErrClassifier

	// TimeNow returns the current time.
	//
	// Set by [NewConfig] to [time.Now].
	TimeNow func() time.Time

	// ReadBufferSize is the size, in bytes, of the per-read buffer used by
	// [TCPSocket], [UnixSocket], and [UDPSocket].
	//
	// Set by [NewConfig] to 4096, matching the original daemon's fixed
	// read buffer.
	ReadBufferSize int

	// ServerBacklog is a default backlog for callers to pass to a server
	// socket's Listen; the sockets themselves do not read it.
	//
	// Set by [NewConfig] to 16.
	ServerBacklog int
}

// NewConfig creates a [*Config] with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Logger:         DefaultLogger(),
		ErrClassifier:  DefaultErrClassifier,
		TimeNow:        time.Now,
		ReadBufferSize: 4096,
		ServerBacklog:  16,
	}
}

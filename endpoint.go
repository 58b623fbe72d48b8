// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/original_source/include/libnetworkd/Network.hpp
//

package networkd

// Endpoint is the callback sink for one connection, implemented by users
// of the library and driven by [TCPSocket], [UnixSocket], and [UDPSocket].
type Endpoint interface {
	// DataRead delivers newly received bytes. The slice is only valid for
	// the duration of the call; implementations must copy it to retain it.
	DataRead(buffer []byte)
	// DataSent reports that length bytes have been sent. It has no effect
	// on the socket's behavior. The sockets in this package do not call it;
	// socks5.ProxiedSocket forwards it to its final endpoint.
	DataSent(length int)
	// ConnectionEstablished fires once a connection is usable: immediately
	// for an accepted or already-connected socket, or after the first
	// write-ready event following an EINPROGRESS connect.
	ConnectionEstablished(remote, local Node)
	// ConnectionClosed fires on a graceful, expected teardown (peer EOF
	// with nothing buffered, or a fully-drained deferred close).
	ConnectionClosed()
	// ConnectionLost fires on any other teardown: a read or write error,
	// or EOF while data was still buffered.
	ConnectionLost()
}

// BaseEndpoint provides the defaults the spec assigns to [Endpoint]:
// DataSent is a no-op and ConnectionLost forwards to ConnectionClosed.
// Embed it in a concrete endpoint to only override what matters.
type BaseEndpoint struct {
	// ConnectionClosedFunc, if set, backs ConnectionClosed. Leaving it nil
	// makes ConnectionClosed a no-op, which also makes the default
	// ConnectionLost a no-op.
	ConnectionClosedFunc func()
}

var _ Endpoint = &BaseEndpoint{}

// DataRead implements [Endpoint] as a no-op; override by not embedding, or
// by shadowing the method on the embedding type.
func (*BaseEndpoint) DataRead(buffer []byte) {}

// DataSent implements [Endpoint] as a no-op.
func (*BaseEndpoint) DataSent(length int) {}

// ConnectionEstablished implements [Endpoint] as a no-op.
func (*BaseEndpoint) ConnectionEstablished(remote, local Node) {}

// ConnectionClosed implements [Endpoint], calling ConnectionClosedFunc if set.
func (b *BaseEndpoint) ConnectionClosed() {
	if b.ConnectionClosedFunc != nil {
		b.ConnectionClosedFunc()
	}
}

// ConnectionLost implements [Endpoint] by forwarding to ConnectionClosed,
// matching the spec's stated default.
func (b *BaseEndpoint) ConnectionLost() {
	b.ConnectionClosed()
}

// EndpointFactory manufactures endpoints for accepted connections (stream
// servers) or newly observed peers (UDP fan-in).
type EndpointFactory interface {
	// CreateEndpoint returns the endpoint to drive for socket.
	CreateEndpoint(socket Socket) Endpoint
	// DestroyEndpoint releases an endpoint this factory created.
	DestroyEndpoint(endpoint Endpoint)
}

// EndpointFactoryFunc adapts a function to [EndpointFactory] for the common
// case where destruction needs no special handling.
type EndpointFactoryFunc func(socket Socket) Endpoint

var _ EndpointFactory = EndpointFactoryFunc(nil)

// CreateEndpoint implements [EndpointFactory].
func (f EndpointFactoryFunc) CreateEndpoint(socket Socket) Endpoint {
	return f(socket)
}

// DestroyEndpoint implements [EndpointFactory] as a no-op.
func (f EndpointFactoryFunc) DestroyEndpoint(endpoint Endpoint) {}

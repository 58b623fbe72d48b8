// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/original_source/src/ProxiedTcpSocket.cpp
//

// Package socks5 implements a SOCKS5 proxy-capable dialer: [ProxiedSocket]
// wraps a [github.com/oxff/networkd.TCPSocket] and transparently negotiates
// the SOCKS5 handshake before handing the connection to the caller's real
// [networkd.Endpoint].
package socks5

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Wire constants for the SOCKS5 subset this package speaks: version 5,
// no-auth and user/password authentication methods, the CONNECT command,
// and the IPv4 address type. See spec.md §6 "SOCKS5 wire frames".
const (
	version5 = 0x05
	version1 = 0x01 // user/pass sub-negotiation version

	methodNoAuth   = 0x00
	methodUserPass = 0x02

	cmdConnect = 0x01
	atypIPv4   = 0x01

	greetingResponseLen = 2
	userAuthResponseLen = 2
	connectResponseLen  = 10
)

// buildGreeting returns the method-selection greeting offering both
// no-auth and user/password methods: [5, 2, 0x00, 0x02].
func buildGreeting() []byte {
	return []byte{version5, 2, methodNoAuth, methodUserPass}
}

// buildUserAuth returns the user/pass sub-negotiation request
// [1, ulen, user, plen, pass]. Per spec.md Open Question (c), the original
// rejected plen == 1 alongside plen == 0 (a typo); this rejects
// ulen == 0 || plen == 0, the corrected condition.
func buildUserAuth(user, pass string) ([]byte, error) {
	if len(user) == 0 || len(pass) == 0 {
		return nil, fmt.Errorf("socks5: empty username or password")
	}
	if len(user) > 255 || len(pass) > 255 {
		return nil, fmt.Errorf("socks5: username or password too long")
	}
	buf := make([]byte, 0, 3+len(user)+len(pass))
	buf = append(buf, version1, byte(len(user)))
	buf = append(buf, user...)
	buf = append(buf, byte(len(pass)))
	buf = append(buf, pass...)
	return buf, nil
}

// buildConnectRequest returns the CONNECT request frame
// [5, 1, 0, 1, ipv4(4), port(2)] for an IPv4 target.
func buildConnectRequest(target net.IP, port uint16) ([]byte, error) {
	ip4 := target.To4()
	if ip4 == nil {
		return nil, fmt.Errorf("socks5: target %v is not an IPv4 address", target)
	}
	buf := make([]byte, connectResponseLen)
	buf[0] = version5
	buf[1] = cmdConnect
	buf[2] = 0
	buf[3] = atypIPv4
	copy(buf[4:8], ip4)
	binary.BigEndian.PutUint16(buf[8:10], port)
	return buf, nil
}

// parseConnectResponse parses the fixed 10-byte IPv4 CONNECT response
// [5, reply, 0, atype, bnd_addr(4), bnd_port(2)] and returns the bound
// address it carries.
func parseConnectResponse(buf []byte) (replyCode byte, bound net.TCPAddr, err error) {
	if len(buf) < connectResponseLen {
		return 0, net.TCPAddr{}, fmt.Errorf("socks5: short connect response")
	}
	if buf[0] != version5 {
		return 0, net.TCPAddr{}, fmt.Errorf("socks5: bad version %d in connect response", buf[0])
	}
	if buf[3] != atypIPv4 {
		return 0, net.TCPAddr{}, fmt.Errorf("socks5: unsupported address type %d", buf[3])
	}
	ip := net.IP(append([]byte(nil), buf[4:8]...))
	port := binary.BigEndian.Uint16(buf[8:10])
	return buf[1], net.TCPAddr{IP: ip, Port: int(port)}, nil
}

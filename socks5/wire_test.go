// SPDX-License-Identifier: GPL-3.0-or-later

package socks5

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGreetingOffersBothMethods(t *testing.T) {
	assert.Equal(t, []byte{0x05, 2, 0x00, 0x02}, buildGreeting())
}

func TestBuildUserAuthRejectsEmptyUserOrPass(t *testing.T) {
	_, err := buildUserAuth("", "pw")
	assert.Error(t, err)
	_, err = buildUserAuth("user", "")
	assert.Error(t, err)
}

func TestBuildUserAuthRoundTrip(t *testing.T) {
	buf, err := buildUserAuth("alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, byte(version1), buf[0])
	assert.Equal(t, byte(5), buf[1])
	assert.Equal(t, "alice", string(buf[2:7]))
	assert.Equal(t, byte(7), buf[7])
	assert.Equal(t, "hunter2", string(buf[8:15]))
}

func TestBuildConnectRequestRejectsNonIPv4(t *testing.T) {
	_, err := buildConnectRequest(net.ParseIP("::1"), 80)
	assert.Error(t, err)
}

func TestBuildConnectRequestAndParseResponseRoundTrip(t *testing.T) {
	req, err := buildConnectRequest(net.ParseIP("93.184.216.34"), 443)
	require.NoError(t, err)
	assert.Equal(t, byte(version5), req[0])
	assert.Equal(t, byte(cmdConnect), req[1])
	assert.Equal(t, byte(atypIPv4), req[3])

	resp := []byte{version5, 0, 0, atypIPv4, 10, 0, 0, 1, 0x1F, 0x90}
	reply, bound, err := parseConnectResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, byte(0), reply)
	assert.Equal(t, "10.0.0.1", bound.IP.String())
	assert.Equal(t, 8080, bound.Port)
}

func TestParseConnectResponseRejectsShortOrBadVersion(t *testing.T) {
	_, _, err := parseConnectResponse([]byte{1, 2, 3})
	assert.Error(t, err)

	bad := []byte{0x04, 0, 0, atypIPv4, 0, 0, 0, 0, 0, 0}
	_, _, err = parseConnectResponse(bad)
	assert.Error(t, err)
}

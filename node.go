// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/original_source/include/libnetworkd/Network.hpp
//

package networkd

import "strconv"

// AnyNode is the sentinel node name meaning INADDR_ANY when used to bind a
// socket, or a wildcard when used in a [Node] comparison.
const AnyNode = "any"

// Node is a (name, port) pair identifying a peer or a bind address.
//
// Name is either a literal IPv4 dotted-quad or [AnyNode].
type Node struct {
	Name string
	Port uint16
}

// Matches reports whether n and other refer to the same node, treating
// [AnyNode] on either side's Name as a wildcard for that field.
func (n Node) Matches(other Node) bool {
	if n.Name != AnyNode && other.Name != AnyNode && n.Name != other.Name {
		return false
	}
	return n.Port == other.Port
}

// String renders the node as "name:port".
func (n Node) String() string {
	return n.Name + ":" + strconv.Itoa(int(n.Port))
}

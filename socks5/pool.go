// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/original_source/include/libnetworkd/ProxiedNetwork.hpp
//
// The original keys an unordered_map<int, ProxySet> by an integer "set" id,
// each ProxySet holding a list<ProxyAddress> plus its own round-robin
// iterator. This keeps the same two-level shape (pool of sets, each a
// round-robin cursor over its own addresses) with Go slices and an index
// instead of a list<> iterator.
//

package socks5

import "github.com/oxff/networkd"

// Address is one proxy endpoint plus the credentials to offer it if it
// requires user/password authentication, matching the original's
// ProxyAddress.
type Address struct {
	Node        networkd.Node
	Credentials Credentials
}

// proxySet is a round-robin cursor over one set's addresses.
type proxySet struct {
	addresses []Address
	next      int
}

// Pool is a collection of named proxy sets, each round-robin cycled
// independently, per spec.md §4.6. The zero value is an empty pool ready
// to use.
type Pool struct {
	sets      map[int]*proxySet
	activeSet int
	hasActive bool
}

// NewPool returns an empty [*Pool].
func NewPool() *Pool {
	return &Pool{sets: make(map[int]*proxySet)}
}

// Add appends addr to set, creating the set if it does not yet exist.
func (p *Pool) Add(set int, addr Address) {
	s, ok := p.sets[set]
	if !ok {
		s = &proxySet{}
		p.sets[set] = s
	}
	s.addresses = append(s.addresses, addr)
}

// Clear removes every set and address from the pool.
func (p *Pool) Clear() {
	p.sets = make(map[int]*proxySet)
	p.hasActive = false
}

// Empty reports whether the pool has no usable addresses at all.
func (p *Pool) Empty() bool {
	for _, s := range p.sets {
		if len(s.addresses) > 0 {
			return false
		}
	}
	return true
}

// Activate selects which set subsequent [Pool.Next] calls draw from.
func (p *Pool) Activate(set int) {
	p.activeSet = set
	p.hasActive = true
}

// Next returns the next address in the active set's round-robin rotation,
// advancing its cursor, and false if no set is active or the active set has
// no addresses.
func (p *Pool) Next() (Address, bool) {
	if !p.hasActive {
		return Address{}, false
	}
	s, ok := p.sets[p.activeSet]
	if !ok || len(s.addresses) == 0 {
		return Address{}, false
	}
	addr := s.addresses[s.next]
	s.next = (s.next + 1) % len(s.addresses)
	return addr, true
}

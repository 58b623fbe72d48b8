// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/original_source/include/libnetworkd/Event.hpp
//

// Package eventbus implements the publish/subscribe inter-module
// communication bus: name-mask subscriptions with a single trailing
// wildcard, exclusive-subscription mutual exclusion, and correlation of an
// event to a previously fired event's UID.
//
// This package deliberately does not specify event wire serialization; the
// original's EventAttribute tagged union and serialize/unserialize methods
// are a framing concern spec.md excludes. [Event.Attributes] is a plain
// map[string]any, which needs no manual discriminated union in Go.
package eventbus

// Event is a named, attributed message fired on a [Bus]. Name is matched
// against subscription masks; UID identifies this firing for parent
// correlation via [Bus.SubscribeParent]; ParentUID, if non-zero, is the UID
// of the event that caused this one, and is matched against parent
// subscriptions at fire time.
type Event struct {
	Name       string
	UID        UID
	ParentUID  UID
	Attributes map[string]any
}

// NewEvent returns an [Event] named name with a freshly minted UID and an
// empty attribute map.
func NewEvent(name string) *Event {
	return &Event{
		Name:       name,
		UID:        NewUID(),
		Attributes: make(map[string]any),
	}
}

// WithParent sets e's ParentUID to parent.UID and returns e, for chaining
// at construction time.
func (e *Event) WithParent(parent *Event) *Event {
	e.ParentUID = parent.UID
	return e
}

// Set stores value under name and returns e, for chaining.
func (e *Event) Set(name string, value any) *Event {
	e.Attributes[name] = value
	return e
}

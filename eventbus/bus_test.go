// SPDX-License-Identifier: GPL-3.0-or-later

package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskMatchesReflexiveAndWildcard(t *testing.T) {
	assert.True(t, maskMatches("a:b:c", "a:b:c"))
	assert.True(t, maskMatches("a:b:c", "a:*"))
	assert.False(t, maskMatches("a:b:c", "b:*"))
	assert.False(t, maskMatches("a:b", "a:b:c"))
}

func TestSubscribeExclusiveRejectsOverlap(t *testing.T) {
	bus := NewBus()
	var a, b int
	require.True(t, bus.Subscribe("conn:*", SubscriberFunc(func(*Event) { a++ }), true))
	assert.False(t, bus.Subscribe("conn:established", SubscriberFunc(func(*Event) { b++ }), false))
	assert.False(t, bus.Subscribe("conn:*", SubscriberFunc(func(*Event) { b++ }), false))

	// a failed subscription call must leave prior state unchanged.
	bus.Fire(NewEvent("conn:established"))
	assert.Equal(t, 1, a)
	assert.Equal(t, 0, b)
}

func TestSubscribeNonExclusiveRejectedByExistingExclusive(t *testing.T) {
	bus := NewBus()
	require.True(t, bus.Subscribe("conn:*", SubscriberFunc(func(*Event) {}), true))
	assert.False(t, bus.Subscribe("conn:established", SubscriberFunc(func(*Event) {}), false))
}

func TestSubscriberCannotDoubleSubscribeOverlapping(t *testing.T) {
	bus := NewBus()
	sub := SubscriberFunc(func(*Event) {})
	require.True(t, bus.Subscribe("conn:a", sub, false))
	assert.False(t, bus.Subscribe("conn:*", sub, false))
}

func TestFireDispatchesMatchingSubscriptions(t *testing.T) {
	bus := NewBus()
	var got []string
	bus.Subscribe("conn:*", SubscriberFunc(func(e *Event) { got = append(got, e.Name) }), false)
	bus.Subscribe("timer:fired", SubscriberFunc(func(e *Event) { got = append(got, e.Name) }), false)

	bus.Fire(NewEvent("conn:established"))
	bus.Fire(NewEvent("timer:fired"))
	bus.Fire(NewEvent("unrelated"))

	assert.Equal(t, []string{"conn:established", "timer:fired"}, got)
}

func TestParentCorrelation(t *testing.T) {
	bus := NewBus()
	parent := NewEvent("query:started")

	var correlated *Event
	bus.SubscribeParent(parent.UID, SubscriberFunc(func(e *Event) { correlated = e }))

	child := NewEvent("query:resolved").WithParent(parent)
	bus.Fire(child)

	require.NotNil(t, correlated)
	assert.Equal(t, "query:resolved", correlated.Name)
}

func TestUnsubscribeAllLeavesParentSubscriptionsIntact(t *testing.T) {
	bus := NewBus()
	sub := SubscriberFunc(func(*Event) {})
	parent := NewEvent("p")

	bus.Subscribe("x:*", sub, false)
	bus.SubscribeParent(parent.UID, sub)

	assert.True(t, bus.UnsubscribeAll(sub))

	var fired bool
	bus.SubscribeParent(parent.UID, SubscriberFunc(func(*Event) { fired = true }))
	bus.Fire(NewEvent("p:child").WithParent(parent))
	assert.True(t, fired)
}

func TestFireIsReentrantUnderSelfUnsubscribe(t *testing.T) {
	bus := NewBus()
	var calls int
	var self Subscriber
	self = SubscriberFunc(func(*Event) {
		calls++
		bus.UnsubscribeAll(self)
	})
	bus.Subscribe("x:*", self, false)

	bus.Fire(NewEvent("x:1"))
	bus.Fire(NewEvent("x:2"))

	assert.Equal(t, 1, calls)
}

func TestNewUIDIsUnique(t *testing.T) {
	seen := make(map[UID]bool)
	for i := 0; i < 1000; i++ {
		u := NewUID()
		assert.False(t, seen[u])
		seen[u] = true
	}
}

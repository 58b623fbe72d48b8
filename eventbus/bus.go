// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/original_source/src/EventManager.cpp
//

package eventbus

import (
	"fmt"
	"strings"
)

// Subscriber is notified by a [Bus] whenever a subscribed event fires.
type Subscriber interface {
	HandleEvent(event *Event)
}

// SubscriberFunc adapts a function to [Subscriber].
type SubscriberFunc func(event *Event)

var _ Subscriber = SubscriberFunc(nil)

// HandleEvent implements [Subscriber].
func (f SubscriberFunc) HandleEvent(event *Event) { f(event) }

// LogSink receives a textual rendering of every fired event, matching
// spec.md's "a log facade is notified with a textual rendering". It is
// deliberately coarser than [github.com/oxff/networkd.Logger]: the original
// passes a single formatted string to the process log level LL_EVENT.
type LogSink interface {
	LogEvent(rendered string)
}

type subscription struct {
	mask       string
	subscriber Subscriber
	exclusive  bool
}

// Bus is a publish/subscribe event dispatcher with mask-based subscriptions
// and parent-UID correlation, matching spec.md §4.7. It is not safe for
// concurrent use; like the rest of this module it is meant to be driven
// from a single goroutine.
type Bus struct {
	// Log, if set, receives a rendering of every fired event.
	Log LogSink

	subscriptions []subscription
	parents       map[UID][]Subscriber
}

// NewBus returns an empty [*Bus].
func NewBus() *Bus {
	return &Bus{parents: make(map[UID][]Subscriber)}
}

// maskMatches reports whether name matches mask: they share a common
// prefix, and either both are fully consumed or the next byte of mask
// (after the shared prefix) is '*'. This is a direct port of the original's
// nameLikeMask character-by-character comparison.
func maskMatches(name, mask string) bool {
	i := 0
	for i < len(name) && i < len(mask) && name[i] == mask[i] {
		i++
	}
	if i == len(name) && i == len(mask) {
		return true
	}
	return i < len(mask) && mask[i] == '*'
}

// Subscribe registers subscriber's interest in every event whose name
// matches mask (at most one trailing '*' acts as a prefix wildcard).
//
// It fails (returns false, leaving the bus state unchanged) if: this would
// be an exclusive subscription overlapping any existing subscription; any
// existing exclusive subscription overlaps mask; or subscriber already has
// an overlapping subscription (exclusive or not).
//
// The original's overlap check (nameLikeMask applied to only one of the two
// mask/pattern orderings per term) misses the case of an exclusive wildcard
// subscription followed by a literal one it already covers; this uses a
// symmetric overlap test in both directions so the invariant spec.md states
// actually holds.
func (b *Bus) Subscribe(mask string, subscriber Subscriber, exclusive bool) bool {
	for _, s := range b.subscriptions {
		overlap := maskMatches(mask, s.mask) || maskMatches(s.mask, mask)
		if overlap && (exclusive || s.exclusive) {
			return false
		}
		if overlap && s.subscriber == subscriber {
			return false
		}
	}
	b.subscriptions = append(b.subscriptions, subscription{mask: mask, subscriber: subscriber, exclusive: exclusive})
	return true
}

// Unsubscribe removes the single subscription for the exact pair
// (mask, subscriber), if any. It reports whether one was found.
func (b *Bus) Unsubscribe(mask string, subscriber Subscriber) bool {
	for i, s := range b.subscriptions {
		if s.mask == mask && s.subscriber == subscriber {
			b.subscriptions = append(b.subscriptions[:i], b.subscriptions[i+1:]...)
			return true
		}
	}
	return false
}

// UnsubscribeAll removes every mask subscription belonging to subscriber.
// It does not touch parent subscriptions; see [Bus.UnsubscribeParent]. It
// reports whether at least one subscription was removed.
func (b *Bus) UnsubscribeAll(subscriber Subscriber) bool {
	found := false
	kept := b.subscriptions[:0]
	for _, s := range b.subscriptions {
		if s.subscriber == subscriber {
			found = true
			continue
		}
		kept = append(kept, s)
	}
	b.subscriptions = kept
	return found
}

// SubscribeParent registers subscriber's interest in any event whose
// ParentUID equals parent, regardless of name.
func (b *Bus) SubscribeParent(parent UID, subscriber Subscriber) {
	b.parents[parent] = append(b.parents[parent], subscriber)
}

// UnsubscribeParent removes subscriber's interest in parent. It reports
// whether it was found.
func (b *Bus) UnsubscribeParent(parent UID, subscriber Subscriber) bool {
	list, ok := b.parents[parent]
	if !ok {
		return false
	}
	for i, s := range list {
		if s == subscriber {
			list = append(list[:i], list[i+1:]...)
			if len(list) == 0 {
				delete(b.parents, parent)
			} else {
				b.parents[parent] = list
			}
			return true
		}
	}
	return false
}

// Fire dispatches event to every subscription whose mask matches event.Name,
// and to every subscriber registered via [Bus.SubscribeParent] for
// event.ParentUID, in that order. It is re-entrant: a subscriber may
// Subscribe, Unsubscribe, or UnsubscribeAll (including unsubscribing
// itself) without corrupting this dispatch, because both loops iterate a
// snapshot slice rather than the live subscription list.
func (b *Bus) Fire(event *Event) {
	if b.Log != nil {
		b.Log.LogEvent(renderEvent(event))
	}

	snapshot := append([]subscription(nil), b.subscriptions...)
	for _, s := range snapshot {
		if maskMatches(event.Name, s.mask) {
			s.subscriber.HandleEvent(event)
		}
	}

	var zero UID
	if event.ParentUID == zero {
		return
	}
	parents := append([]Subscriber(nil), b.parents[event.ParentUID]...)
	for _, subscriber := range parents {
		subscriber.HandleEvent(event)
	}
}

func renderEvent(event *Event) string {
	var sb strings.Builder
	sb.WriteString("[\"")
	sb.WriteString(event.Name)
	sb.WriteString("\"] { ")
	first := true
	for k, v := range event.Attributes {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(k)
		sb.WriteString(" = \"")
		sb.WriteString(sanitizeAttribute(v))
		sb.WriteString("\"")
	}
	sb.WriteString(" }")
	return sb.String()
}

func sanitizeAttribute(v any) string {
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	if len(s) > 64 {
		s = s[:64]
	}
	b := []byte(s)
	for i, c := range b {
		if c == '\n' || c == '\r' || c < 0x20 || c >= 0x7f {
			b[i] = '.'
		}
	}
	return string(b)
}

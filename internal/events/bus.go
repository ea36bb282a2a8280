/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	EventRevealStarted    EventType = "reveal.started"
	EventRevealSlot       EventType = "reveal.slot"
	EventRevealCompleted  EventType = "reveal.completed"
	EventRevealSuperseded EventType = "reveal.superseded"

	// Session lifecycle events
	EventSessionCreated EventType = "session.created"
	EventSessionTrack   EventType = "session.track"
	EventSessionBounds  EventType = "session.bounds"
	EventSessionClosed  EventType = "session.closed"
)

// RevealEvents lists the types a session event stream subscribes to.
var RevealEvents = []EventType{
	EventRevealStarted,
	EventRevealSlot,
	EventRevealCompleted,
	EventRevealSuperseded,
	EventSessionTrack,
	EventSessionBounds,
	EventSessionClosed,
}

// Payload generic event payload.
type Payload map[string]any

// Event pairs a payload with its type.
type Event struct {
	Type    EventType
	Payload Payload
}

// Subscriber receives events of its types in the order they were published.
type Subscriber chan Event

// subscriberBuffer holds a few full runs, lifecycle events included.
const subscriberBuffer = 64

type subscription struct {
	ch    Subscriber
	types map[EventType]struct{}
}

// Bus implements a simple in-process pubsub.
type Bus struct {
	mu   sync.RWMutex
	subs []subscription
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers one subscriber for all of types. A single channel per
// subscriber keeps publish order across types.
func (b *Bus) Subscribe(types ...EventType) Subscriber {
	set := make(map[EventType]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	ch := make(Subscriber, subscriberBuffer)
	b.mu.Lock()
	b.subs = append(b.subs, subscription{ch: ch, types: set})
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers of eventType. Slow subscribers miss
// events rather than block the publisher.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if _, ok := sub.types[eventType]; !ok {
			continue
		}
		select {
		case sub.ch <- Event{Type: eventType, Payload: payload}:
		default:
		}
	}
}

// Unsubscribe removes and closes the subscriber.
func (b *Bus) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, candidate := range b.subs {
		if candidate.ch == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			close(sub)
			return
		}
	}
}

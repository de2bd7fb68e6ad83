// Package events carries scheduling and consolidation notifications from
// the pool to the TUI and the episode journal over a channel-based bus.
package events

import (
	"strings"
	"sync"
)

const defaultBuffer = 256

// Bus is a topic-based pub-sub bus. Publishing never blocks: when a
// subscriber's buffer is full the event is dropped for that subscriber.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]chan Event
	all    []chan Event
	closed bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]chan Event)}
}

// Topic returns the topic an event is published under: the segment of its
// type before the first dot ("task.started" -> "task").
func Topic(ev Event) string {
	t := ev.EventType()
	if i := strings.IndexByte(t, '.'); i > 0 {
		return t[:i]
	}
	return t
}

// Subscribe returns a channel receiving events published under topic.
// bufSize <= 0 selects the default buffer of 256.
func (b *Bus) Subscribe(topic string, bufSize int) <-chan Event {
	ch := newSubChan(bufSize)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[topic] = append(b.subs[topic], ch)
	return ch
}

// SubscribeAll returns a channel receiving every published event.
func (b *Bus) SubscribeAll(bufSize int) <-chan Event {
	ch := newSubChan(bufSize)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.all = append(b.all, ch)
	return ch
}

// Publish delivers ev to the subscribers of its topic and to all-topic
// subscribers. Safe to call after Close (the event is discarded).
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	for _, ch := range b.subs[Topic(ev)] {
		send(ch, ev)
	}
	for _, ch := range b.all {
		send(ch, ev)
	}
}

// Close closes every subscriber channel. Idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true

	for _, channels := range b.subs {
		for _, ch := range channels {
			close(ch)
		}
	}
	for _, ch := range b.all {
		close(ch)
	}
}

func newSubChan(bufSize int) chan Event {
	if bufSize <= 0 {
		bufSize = defaultBuffer
	}
	return make(chan Event, bufSize)
}

// send drops the event when the subscriber is not keeping up.
func send(ch chan Event, ev Event) {
	select {
	case ch <- ev:
	default:
	}
}

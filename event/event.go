// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package event implements a typed observer registry shared between
// subsystems.
package event

import "sync"

// Kind names an event.
type Kind string

// Callback receives the payload of a triggered event and the context given
// on subscription.
type Callback func(payload interface{}, ctx interface{})

// ID identifies a subscription.
type ID uint64

type subscriber struct {
	id  ID
	fn  Callback
	ctx interface{}
}

// Registry maps event kinds to ordered callback lists. It is safe for
// concurrent use.
type Registry struct {
	mu     sync.Mutex
	nextID ID
	subs   map[Kind][]subscriber
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		subs: make(map[Kind][]subscriber),
	}
}

// Subscribe appends fn to the callbacks of kind.
func (r *Registry) Subscribe(kind Kind, fn Callback, ctx interface{}) ID {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	r.subs[kind] = append(r.subs[kind], subscriber{id: r.nextID, fn: fn, ctx: ctx})
	return r.nextID
}

// Unsubscribe removes the subscription id. It reports whether it existed.
func (r *Registry) Unsubscribe(id ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for kind, list := range r.subs {
		for i, s := range list {
			if s.id != id {
				continue
			}
			r.subs[kind] = append(list[:i:i], list[i+1:]...)
			if len(r.subs[kind]) == 0 {
				delete(r.subs, kind)
			}
			return true
		}
	}
	return false
}

// Trigger calls the callbacks of kind in subscription order. Callbacks run
// outside the lock and may subscribe or unsubscribe.
func (r *Registry) Trigger(kind Kind, payload interface{}) {
	r.mu.Lock()
	list := make([]subscriber, len(r.subs[kind]))
	copy(list, r.subs[kind])
	r.mu.Unlock()

	for _, s := range list {
		s.fn(payload, s.ctx)
	}
}

// Len returns the number of subscriptions of kind.
func (r *Registry) Len(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs[kind])
}

// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package layoutcache deduplicates driver layout objects by structural key
// and keeps each alive while anything references it.
package layoutcache

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

type entry[V any] struct {
	value V
	refs  int
}

// Cache holds reference counted values by key. It is not safe for
// concurrent use.
type Cache[V any] struct {
	name    string
	entries map[string]*entry[V]
	destroy func(V)
	log     log.FieldLogger
}

// New creates a cache. destroy is called for a value once it is no longer
// referenced, and for every remaining value on Destroy.
func New[V any](name string, destroy func(V), logger log.FieldLogger) *Cache[V] {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Cache[V]{
		name:    name,
		entries: make(map[string]*entry[V]),
		destroy: destroy,
		log:     logger.WithField("cache", name),
	}
}

// Acquire returns the value stored under key and takes a reference to it.
// On a miss create builds the value; a failed create leaves the cache
// unchanged.
func (c *Cache[V]) Acquire(key string, create func() (V, error)) (V, error) {
	if e, ok := c.entries[key]; ok {
		e.refs++
		c.log.WithField("refs", e.refs).Debug("layout cache hit")
		return e.value, nil
	}

	v, err := create()
	if err != nil {
		var zero V
		return zero, err
	}
	c.entries[key] = &entry[V]{value: v, refs: 1}
	c.log.WithField("entries", len(c.entries)).Debug("layout cache miss")
	return v, nil
}

// Retain takes another reference to a value that is already cached.
// Retaining an unknown key is a programming error.
func (c *Cache[V]) Retain(key string) {
	e, ok := c.entries[key]
	if !ok {
		panic(fmt.Sprintf("layoutcache: %s: retain of unknown key %q", c.name, key))
	}
	e.refs++
}

// Release drops one reference to key and destroys the value when none
// remain. Releasing an unknown key is a programming error.
func (c *Cache[V]) Release(key string) {
	e, ok := c.entries[key]
	if !ok {
		panic(fmt.Sprintf("layoutcache: %s: release of unknown key %q", c.name, key))
	}
	e.refs--
	if e.refs > 0 {
		return
	}
	delete(c.entries, key)
	if c.destroy != nil {
		c.destroy(e.value)
	}
}

// Refs returns the reference count of key.
func (c *Cache[V]) Refs(key string) int {
	if e, ok := c.entries[key]; ok {
		return e.refs
	}
	return 0
}

// Len returns the number of cached values.
func (c *Cache[V]) Len() int {
	return len(c.entries)
}

// Destroy destroys every cached value regardless of references.
func (c *Cache[V]) Destroy() {
	if len(c.entries) > 0 {
		c.log.WithField("entries", len(c.entries)).Debug("destroying referenced layouts")
	}
	for key, e := range c.entries {
		if c.destroy != nil {
			c.destroy(e.value)
		}
		delete(c.entries, key)
	}
}

// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package poolchain grows a list of fixed capacity pools on demand and
// routes every free back to the pool that served the allocation.
package poolchain

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// ErrExhausted is returned by an Allocator when a pool cannot satisfy a
// request. The chain reacts by moving to another pool.
var ErrExhausted = errors.New("poolchain: pool exhausted")

// Allocator is the driver side of a chain. P is the pool type and S the
// allocated item type.
type Allocator[P comparable, S any] interface {
	NewPool() (P, error)

	// Allocate returns n items from pool or none of them.
	Allocate(pool P, n int) ([]S, error)
	Free(pool P, items []S) error
	Reset(pool P) error
	DestroyPool(pool P)
}

// Chain allocates from the current pool and adds pools as they fill up.
// It is not safe for concurrent use.
type Chain[P comparable, S any] struct {
	alloc   Allocator[P, S]
	pools   []P
	live    map[P]int
	current int
	log     log.FieldLogger
}

// New creates an empty chain. The first pool is created on first use.
func New[P comparable, S any](a Allocator[P, S], logger log.FieldLogger) *Chain[P, S] {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Chain[P, S]{
		alloc: a,
		live:  make(map[P]int),
		log:   logger,
	}
}

// Allocate returns n items taken from a single pool together with that pool.
// The caller passes the pool back to Free.
func (c *Chain[P, S]) Allocate(n int) (P, []S, error) {
	var zero P
	if n <= 0 {
		return zero, nil, fmt.Errorf("poolchain: invalid allocation count %d", n)
	}

	for i := c.current; i < len(c.pools); i++ {
		items, err := c.alloc.Allocate(c.pools[i], n)
		if err == nil {
			c.current = i
			c.live[c.pools[i]] += n
			return c.pools[i], items, nil
		}
		if !errors.Is(err, ErrExhausted) {
			return zero, nil, err
		}
	}

	pool, err := c.grow()
	if err != nil {
		return zero, nil, err
	}
	items, err := c.alloc.Allocate(pool, n)
	if err != nil {
		if errors.Is(err, ErrExhausted) {
			return zero, nil, fmt.Errorf("poolchain: %d items do not fit an empty pool: %w", n, err)
		}
		return zero, nil, err
	}
	c.live[pool] += n
	return pool, items, nil
}

// Free returns items to the pool that allocated them. A pool emptied by
// the free becomes the preferred pool again.
func (c *Chain[P, S]) Free(pool P, items []S) error {
	idx := c.indexOf(pool)
	if idx < 0 {
		panic("poolchain: free to a pool not owned by the chain")
	}
	if err := c.alloc.Free(pool, items); err != nil {
		return err
	}
	c.live[pool] -= len(items)
	if idx < c.current {
		c.current = idx
	}
	return nil
}

// Reset resets every pool. Items allocated before are invalid afterwards.
func (c *Chain[P, S]) Reset() error {
	for _, p := range c.pools {
		if err := c.alloc.Reset(p); err != nil {
			return err
		}
		c.live[p] = 0
	}
	c.current = 0
	return nil
}

// Destroy destroys every pool.
func (c *Chain[P, S]) Destroy() {
	for _, p := range c.pools {
		c.alloc.DestroyPool(p)
	}
	c.pools = nil
	c.live = make(map[P]int)
	c.current = 0
}

// Pools returns the number of pools in the chain.
func (c *Chain[P, S]) Pools() int {
	return len(c.pools)
}

// Live returns the number of items outstanding from pool.
func (c *Chain[P, S]) Live(pool P) int {
	return c.live[pool]
}

func (c *Chain[P, S]) grow() (P, error) {
	pool, err := c.alloc.NewPool()
	if err != nil {
		return pool, err
	}
	c.pools = append(c.pools, pool)
	c.current = len(c.pools) - 1
	c.log.WithField("pools", len(c.pools)).Debug("pool chain grown")
	return pool, nil
}

func (c *Chain[P, S]) indexOf(pool P) int {
	for i, p := range c.pools {
		if p == pool {
			return i
		}
	}
	return -1
}

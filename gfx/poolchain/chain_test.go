package poolchain_test

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/starlight/gfx/poolchain"
)

type pool struct {
	id   int
	used int
}

type set struct {
	pool int
	n    int
}

// fixed hands out at most capacity sets per pool.
type fixed struct {
	capacity  int
	pools     []*pool
	destroyed int
	failNext  error
}

func (f *fixed) NewPool() (*pool, error) {
	p := &pool{id: len(f.pools)}
	f.pools = append(f.pools, p)
	return p, nil
}

func (f *fixed) Allocate(p *pool, n int) ([]set, error) {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return nil, err
	}
	if p.used+n > f.capacity {
		return nil, poolchain.ErrExhausted
	}
	out := make([]set, n)
	for i := range out {
		p.used++
		out[i] = set{pool: p.id, n: p.used}
	}
	return out, nil
}

func (f *fixed) Free(p *pool, items []set) error {
	for _, it := range items {
		if it.pool != p.id {
			return errors.New("freed to the wrong pool")
		}
	}
	p.used -= len(items)
	return nil
}

func (f *fixed) Reset(p *pool) error {
	p.used = 0
	return nil
}

func (f *fixed) DestroyPool(*pool) {
	f.destroyed++
}

func TestGrowOnExhaustion(t *testing.T) {
	c := qt.New(t)
	a := &fixed{capacity: 2}
	chain := poolchain.New[*pool, set](a, nil)

	p0, s0, err := chain.Allocate(2)
	c.Assert(err, qt.IsNil)
	c.Assert(s0, qt.HasLen, 2)
	c.Assert(chain.Pools(), qt.Equals, 1)

	p1, s1, err := chain.Allocate(1)
	c.Assert(err, qt.IsNil)
	c.Assert(chain.Pools(), qt.Equals, 2)
	c.Assert(p1 == p0, qt.Equals, false)
	c.Assert(s1[0].pool, qt.Equals, 1)

	// Frees route to the owning pool.
	c.Assert(chain.Free(p0, s0[:1]), qt.IsNil)
	c.Assert(chain.Live(p0), qt.Equals, 1)
	c.Assert(chain.Free(p1, s1), qt.IsNil)
	c.Assert(chain.Live(p1), qt.Equals, 0)

	// The freed slot of the first pool is reused before growing.
	p, _, err := chain.Allocate(1)
	c.Assert(err, qt.IsNil)
	c.Assert(p == p0, qt.Equals, true)
	c.Assert(chain.Pools(), qt.Equals, 2)
}

func TestBatchComesFromOnePool(t *testing.T) {
	c := qt.New(t)
	a := &fixed{capacity: 3}
	chain := poolchain.New[*pool, set](a, nil)

	chain.Allocate(2)
	p, sets, err := chain.Allocate(3)
	c.Assert(err, qt.IsNil)
	c.Assert(p.id, qt.Equals, 1)
	for _, s := range sets {
		c.Assert(s.pool, qt.Equals, 1)
	}
	c.Assert(a.pools[0].used, qt.Equals, 2)
}

func TestOversizedRequest(t *testing.T) {
	c := qt.New(t)
	chain := poolchain.New[*pool, set](&fixed{capacity: 2}, nil)

	_, _, err := chain.Allocate(3)
	c.Assert(errors.Is(err, poolchain.ErrExhausted), qt.Equals, true)

	_, _, err = chain.Allocate(0)
	c.Assert(err, qt.ErrorMatches, "poolchain: invalid allocation count 0")
}

func TestDriverErrorIsReturned(t *testing.T) {
	c := qt.New(t)
	a := &fixed{capacity: 2}
	chain := poolchain.New[*pool, set](a, nil)
	chain.Allocate(1)

	a.failNext = errors.New("device lost")
	_, _, err := chain.Allocate(1)
	c.Assert(err, qt.ErrorMatches, "device lost")
	c.Assert(chain.Pools(), qt.Equals, 1)
}

func TestResetAndDestroy(t *testing.T) {
	c := qt.New(t)
	a := &fixed{capacity: 1}
	chain := poolchain.New[*pool, set](a, nil)

	chain.Allocate(1)
	chain.Allocate(1)
	c.Assert(chain.Reset(), qt.IsNil)
	for _, p := range a.pools {
		c.Assert(p.used, qt.Equals, 0)
	}

	p, _, err := chain.Allocate(1)
	c.Assert(err, qt.IsNil)
	c.Assert(p.id, qt.Equals, 0)

	chain.Destroy()
	c.Assert(a.destroyed, qt.Equals, 2)
	c.Assert(chain.Pools(), qt.Equals, 0)
}

package layoutcache_test

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/starlight/gfx"
	"github.com/devblok/starlight/gfx/layoutcache"
)

type layout struct {
	id int
}

type driver struct {
	created   int
	destroyed []*layout
}

func (d *driver) create() (*layout, error) {
	d.created++
	return &layout{id: d.created}, nil
}

func (d *driver) destroy(l *layout) {
	d.destroyed = append(d.destroyed, l)
}

var (
	uniform = gfx.DescriptorBinding{Binding: 0, Type: gfx.DescriptorUniformBuffer, Count: 1, Stages: gfx.StageVertex}
	sampled = gfx.DescriptorBinding{Binding: 1, Type: gfx.DescriptorCombinedTextureSampler, Count: 1, Stages: gfx.StageFragment}
)

func TestEqualKeysShareLayout(t *testing.T) {
	c := qt.New(t)
	d := &driver{}
	cache := layoutcache.New("descriptor set layouts", d.destroy, log.New())

	a := gfx.DescriptorSetLayoutDesc{Bindings: []gfx.DescriptorBinding{uniform, sampled}}
	b := gfx.DescriptorSetLayoutDesc{Bindings: []gfx.DescriptorBinding{uniform, sampled}}

	la, err := cache.Acquire(a.CacheKey(), d.create)
	c.Assert(err, qt.IsNil)
	lb, err := cache.Acquire(b.CacheKey(), d.create)
	c.Assert(err, qt.IsNil)

	c.Assert(la == lb, qt.Equals, true)
	c.Assert(d.created, qt.Equals, 1)
	c.Assert(cache.Refs(a.CacheKey()), qt.Equals, 2)
}

func TestBindingOrderIsDistinct(t *testing.T) {
	c := qt.New(t)
	d := &driver{}
	cache := layoutcache.New("descriptor set layouts", d.destroy, nil)

	a := gfx.DescriptorSetLayoutDesc{Bindings: []gfx.DescriptorBinding{uniform, sampled}}
	swapped := gfx.DescriptorSetLayoutDesc{Bindings: []gfx.DescriptorBinding{sampled, uniform}}

	la, _ := cache.Acquire(a.CacheKey(), d.create)
	ls, _ := cache.Acquire(swapped.CacheKey(), d.create)

	c.Assert(la == ls, qt.Equals, false)
	c.Assert(cache.Len(), qt.Equals, 2)
}

func TestReleaseDestroysLastReference(t *testing.T) {
	c := qt.New(t)
	d := &driver{}
	cache := layoutcache.New("pipeline layouts", d.destroy, nil)

	key := gfx.PipelineInputLayoutDesc{
		PushConstants: []gfx.PushConstantRange{{Stages: gfx.StageVertex, Size: 64}},
	}.CacheKey()

	l, _ := cache.Acquire(key, d.create)
	cache.Acquire(key, d.create)

	cache.Release(key)
	c.Assert(d.destroyed, qt.HasLen, 0)
	c.Assert(cache.Refs(key), qt.Equals, 1)

	cache.Release(key)
	c.Assert(d.destroyed, qt.CmpEquals(cmp.AllowUnexported(layout{})), []*layout{l})
	c.Assert(cache.Len(), qt.Equals, 0)

	// A new request after destruction creates a fresh object.
	l2, _ := cache.Acquire(key, d.create)
	c.Assert(l2 == l, qt.Equals, false)

	c.Assert(func() { cache.Release("unknown") }, qt.PanicMatches, `layoutcache: pipeline layouts: release of unknown key "unknown"`)
}

func TestFailedCreateIsNotCached(t *testing.T) {
	c := qt.New(t)
	cache := layoutcache.New[*layout]("layouts", nil, nil)

	_, err := cache.Acquire("k", func() (*layout, error) { return nil, errors.New("out of memory") })
	c.Assert(err, qt.ErrorMatches, "out of memory")
	c.Assert(cache.Len(), qt.Equals, 0)
}

func TestDestroy(t *testing.T) {
	c := qt.New(t)
	d := &driver{}
	cache := layoutcache.New("layouts", d.destroy, nil)

	cache.Acquire("a", d.create)
	cache.Acquire("b", d.create)
	cache.Acquire("b", d.create)

	cache.Destroy()
	c.Assert(d.destroyed, qt.HasLen, 2)
	c.Assert(cache.Len(), qt.Equals, 0)
}

func TestRetainOutlivesAcquirer(t *testing.T) {
	c := qt.New(t)
	d := &driver{}
	cache := layoutcache.New("pipeline layouts", d.destroy, nil)

	l, _ := cache.Acquire("k", d.create)
	cache.Retain("k")
	c.Assert(cache.Refs("k"), qt.Equals, 2)

	// The original acquirer goes away first.
	cache.Release("k")
	c.Assert(d.destroyed, qt.HasLen, 0)
	c.Assert(cache.Refs("k"), qt.Equals, 1)

	cache.Release("k")
	c.Assert(d.destroyed, qt.CmpEquals(cmp.AllowUnexported(layout{})), []*layout{l})

	c.Assert(func() { cache.Retain("k") }, qt.PanicMatches, `layoutcache: pipeline layouts: retain of unknown key "k"`)
}

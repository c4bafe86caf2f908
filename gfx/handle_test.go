package gfx_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/starlight/gfx"
)

type image struct {
	name string
}

func TestTableInsertGet(t *testing.T) {
	c := qt.New(t)
	tab := gfx.NewTable[image](gfx.Vulkan)

	a := tab.Insert(image{"a"})
	b := tab.Insert(image{"b"})

	c.Assert(a.IsNil(), qt.Equals, false)
	c.Assert(a == b, qt.Equals, false)
	c.Assert(a.Backend(), qt.Equals, gfx.Vulkan)
	c.Assert(tab.Get(a).name, qt.Equals, "a")
	c.Assert(tab.Get(b).name, qt.Equals, "b")
	c.Assert(tab.Len(), qt.Equals, 2)
}

func TestTableStaleHandle(t *testing.T) {
	c := qt.New(t)
	tab := gfx.NewTable[image](gfx.Vulkan)

	a := tab.Insert(image{"a"})
	c.Assert(tab.Remove(a).name, qt.Equals, "a")

	_, ok := tab.Lookup(a)
	c.Assert(ok, qt.Equals, false)

	// The slot is reused, the old handle stays dead.
	b := tab.Insert(image{"b"})
	c.Assert(a == b, qt.Equals, false)
	_, ok = tab.Lookup(a)
	c.Assert(ok, qt.Equals, false)
	c.Assert(tab.Get(b).name, qt.Equals, "b")

	c.Assert(func() { tab.Remove(a) }, qt.PanicMatches, "gfx: handle .* is destroyed")
}

func TestTableForeignBackend(t *testing.T) {
	c := qt.New(t)
	vk := gfx.NewTable[image](gfx.Vulkan)
	gl := gfx.NewTable[image](gfx.OpenGL)

	h := gl.Insert(image{"gl"})
	c.Assert(func() { vk.Get(h) }, qt.PanicMatches, "gfx: handle .* used with vulkan renderer")
	c.Assert(func() { vk.Get(0) }, qt.PanicMatches, "gfx: nil handle")
}

func TestTableEach(t *testing.T) {
	c := qt.New(t)
	tab := gfx.NewTable[image](gfx.D3D12)
	hs := []gfx.Handle{
		tab.Insert(image{"a"}),
		tab.Insert(image{"b"}),
		tab.Insert(image{"c"}),
	}
	tab.Remove(hs[1])

	var names []string
	tab.Each(func(h gfx.Handle, v *image) {
		names = append(names, v.name)
	})
	c.Assert(names, qt.DeepEquals, []string{"a", "c"})
	c.Assert(tab.Len(), qt.Equals, 2)
}

package d3d_test

import (
	"errors"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/devblok/starlight/gfx"
	"github.com/devblok/starlight/gfx/d3d"
)

var (
	_ gfx.CommandPool    = (*d3d.CommandPool)(nil)
	_ gfx.CommandBuffer  = (*d3d.CommandBuffer)(nil)
	_ gfx.DescriptorPool = (*d3d.DescriptorPool)(nil)
)

func TestNewIsUnavailable(t *testing.T) {
	for _, b := range []gfx.Backend{gfx.D3D11, gfx.D3D12} {
		r, err := d3d.New(gfx.AllocInfo{Backend: b, Logger: log.New()})
		if r != nil {
			t.Errorf("%s: renderer = %v, want nil", b, r)
		}
		if !errors.Is(err, gfx.ErrBackendUnavailable) {
			t.Errorf("%s: error = %v, want unavailable", b, err)
		}
	}
}

func TestBatchAllocateFreeReset(t *testing.T) {
	pool := d3d.NewCommandPool(gfx.D3D12, gfx.QueueGraphics)

	bufs, err := pool.AllocateCommandBuffers(gfx.LevelPrimary, 4)
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[gfx.CommandBuffer]bool)
	for _, b := range bufs {
		if seen[b] {
			t.Fatal("batch returned the same buffer twice")
		}
		seen[b] = true
		if b.Level() != gfx.LevelPrimary {
			t.Errorf("level = %s, want primary", b.Level())
		}
	}

	pool.FreeCommandBuffer(bufs[0])
	if bufs[0].State() != gfx.StateInvalid {
		t.Errorf("freed buffer state = %s", bufs[0].State())
	}
	pool.FreeCommandBuffers(bufs[1:])
	if pool.Len() != 0 {
		t.Fatalf("pool still holds %d buffers", pool.Len())
	}

	if err := pool.Reset(true); err != nil {
		t.Fatal(err)
	}

	b, err := pool.AllocateCommandBuffer(gfx.LevelSecondary)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Begin(0); err != nil {
		t.Fatal(err)
	}
	if err := b.End(); err != nil {
		t.Fatal(err)
	}
}

func TestAllocateZeroPanics(t *testing.T) {
	defer func() {
		if _, ok := recover().(gfx.ContractViolation); !ok {
			t.Error("allocating zero buffers did not raise a contract violation")
		}
	}()
	d3d.NewCommandPool(gfx.D3D11, gfx.QueueGraphics).AllocateCommandBuffers(gfx.LevelPrimary, 0)
}

func TestResetReturnsBuffersToInitial(t *testing.T) {
	pool := d3d.NewCommandPool(gfx.D3D12, gfx.QueueGraphics)
	b, _ := pool.AllocateCommandBuffer(gfx.LevelPrimary)
	b.Begin(gfx.UsageOneTimeSubmit)
	b.End()

	pool.Reset(false)
	if b.State() != gfx.StateInitial {
		t.Errorf("state after pool reset = %s, want initial", b.State())
	}
}

func TestTransitionBarriers(t *testing.T) {
	objs := d3d.NewObjects(gfx.D3D12)
	tex := gfx.Texture(objs.Textures12.Insert(d3d.Texture12{}))

	pool12 := d3d.NewCommandPool(gfx.D3D12, gfx.QueueGraphics)
	b, _ := pool12.AllocateCommandBuffer(gfx.LevelPrimary)
	cb := b.(*d3d.CommandBuffer)
	cb.Begin(0)
	cb.TransitionTextureLayout(tex, gfx.LayoutUndefined, gfx.LayoutTransferDst)
	cb.TransitionTextureLayout(tex, gfx.LayoutTransferDst, gfx.LayoutShaderReadOnly)
	cb.TransitionTextureLayout(tex, gfx.LayoutUndefined, gfx.LayoutGeneral)
	cb.End()

	want := []d3d.Barrier{
		{Texture: tex, Before: d3d.StateCommon, After: d3d.StateCopyDest},
		{Texture: tex, Before: d3d.StateCopyDest, After: d3d.StateAllShaderResource},
	}
	if len(cb.Barriers) != len(want) {
		t.Fatalf("barriers = %v, want %v", cb.Barriers, want)
	}
	for i := range want {
		if cb.Barriers[i] != want[i] {
			t.Errorf("barrier %d = %+v, want %+v", i, cb.Barriers[i], want[i])
		}
	}

	pool11 := d3d.NewCommandPool(gfx.D3D11, gfx.QueueGraphics)
	b11, _ := pool11.AllocateCommandBuffer(gfx.LevelPrimary)
	b11.Begin(0)
	b11.TransitionTextureLayout(tex, gfx.LayoutUndefined, gfx.LayoutTransferDst)
	if n := len(b11.(*d3d.CommandBuffer).Barriers); n != 0 {
		t.Errorf("D3D11 recorded %d barriers", n)
	}
}

func TestRecording(t *testing.T) {
	pool := d3d.NewCommandPool(gfx.D3D12, gfx.QueueGraphics)
	b, _ := pool.AllocateCommandBuffer(gfx.LevelPrimary)
	cb := b.(*d3d.CommandBuffer)

	cb.Begin(0)
	cb.BeginRenderPass(1, 1, gfx.Rect{Width: 4, Height: 4}, nil)
	cb.BindPipeline(2)
	cb.PushConstants(gfx.StageVertex, 0, []byte{1, 2, 3, 4})
	cb.Draw(3, 1, 0, 0)
	cb.EndRenderPass()
	cb.End()

	want := []string{"OMSetRenderTargets", "SetPipelineState", "SetGraphicsRoot32BitConstants", "DrawInstanced"}
	if len(cb.Ops) != len(want) {
		t.Fatalf("ops = %v, want %v", cb.Ops, want)
	}
	for i := range want {
		if cb.Ops[i] != want[i] {
			t.Errorf("op %d = %s, want %s", i, cb.Ops[i], want[i])
		}
	}
}

func TestDescriptorPool(t *testing.T) {
	objs := d3d.NewObjects(gfx.D3D12)
	pool := d3d.NewDescriptorPool(objs)
	layout := gfx.DescriptorSetLayoutDesc{Bindings: []gfx.DescriptorBinding{{Binding: 0, Type: gfx.DescriptorUniformBuffer, Count: 2}}}

	sets, err := pool.AllocateDescriptorSets(layout, 3)
	if err != nil {
		t.Fatal(err)
	}
	if objs.Sets12.Len() != 3 {
		t.Fatalf("table holds %d sets, want 3", objs.Sets12.Len())
	}
	if off := objs.Sets12.Get(gfx.Handle(sets[2])).Offset; off != 4 {
		t.Errorf("third set offset = %d, want 4", off)
	}

	pool.Update(sets[0], []gfx.DescriptorWrite{{Binding: 0, Buffer: 9}})
	if w := objs.Sets12.Get(gfx.Handle(sets[0])).Writes; len(w) != 1 || w[0].Buffer != 9 {
		t.Errorf("writes = %+v", w)
	}

	pool.FreeDescriptorSet(sets[0])
	pool.FreeDescriptorSets(sets[1:])
	if objs.Sets12.Len() != 0 {
		t.Errorf("table holds %d sets after free", objs.Sets12.Len())
	}

	pool.AllocateDescriptorSet(layout)
	pool.Reset()
	if objs.Sets12.Len() != 0 {
		t.Errorf("table holds %d sets after reset", objs.Sets12.Len())
	}
}

func TestDescriptorPoolsShareObjects(t *testing.T) {
	objs := d3d.NewObjects(gfx.D3D12)
	a := d3d.NewDescriptorPool(objs)
	b := d3d.NewDescriptorPool(objs)
	layout := gfx.DescriptorSetLayoutDesc{Bindings: []gfx.DescriptorBinding{{Binding: 0, Type: gfx.DescriptorUniformBuffer, Count: 1}}}

	a.AllocateDescriptorSets(layout, 2)
	s, _ := b.AllocateDescriptorSet(layout)

	a.Reset()
	if _, ok := objs.Sets12.Lookup(gfx.Handle(s)); !ok {
		t.Fatalf("resetting one pool destroyed set %s owned by another", gfx.Handle(s))
	}
	if objs.Sets12.Len() != 1 {
		t.Errorf("table holds %d sets after reset, want 1", objs.Sets12.Len())
	}

	func() {
		defer func() {
			v, ok := recover().(gfx.ContractViolation)
			if !ok {
				t.Fatal("freeing a foreign set did not raise a contract violation")
			}
			if want := "gfx: descriptor set " + gfx.Handle(s).String() + " freed to a pool that did not allocate it"; v.Error() != want {
				t.Errorf("violation = %q, want %q", v.Error(), want)
			}
		}()
		a.FreeDescriptorSet(s)
	}()

	b.FreeDescriptorSet(s)
	if objs.Sets12.Len() != 0 {
		t.Errorf("table holds %d sets after free", objs.Sets12.Len())
	}
	b.Destroy()
}

func TestDescriptorPoolD3D11(t *testing.T) {
	objs := d3d.NewObjects(gfx.D3D11)
	pool := d3d.NewDescriptorPool(objs)
	layout := gfx.DescriptorSetLayoutDesc{Bindings: []gfx.DescriptorBinding{{Binding: 0, Type: gfx.DescriptorSampledTexture, Count: 1}}}

	s, _ := pool.AllocateDescriptorSet(layout)
	if objs.Sets11.Len() != 1 || objs.Sets12.Len() != 0 {
		t.Fatalf("D3D11 set stored in sets11=%d sets12=%d", objs.Sets11.Len(), objs.Sets12.Len())
	}
	pool.Update(s, []gfx.DescriptorWrite{{Binding: 0, View: 3}})
	if w := objs.Sets11.Get(gfx.Handle(s)).Writes; len(w) != 1 {
		t.Errorf("writes = %+v", w)
	}
	pool.Destroy()
	if objs.Sets11.Len() != 0 {
		t.Errorf("table holds %d sets after destroy", objs.Sets11.Len())
	}
}

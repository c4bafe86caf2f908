// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package glr implements the OpenGL 4.3 core renderer.
//
// Shader modules take GLSL source. Descriptor set s binding b is bound to
// GL binding point s*8+b; the push constant block is the uniform block at
// binding 32. A Renderer must only be used from the goroutine whose OS
// thread owns the GL context.
package glr

import (
	"fmt"
	"unsafe"

	"github.com/devblok/starlight/event"
	"github.com/devblok/starlight/gfx"
	"github.com/devblok/starlight/gfx/layoutcache"
	"github.com/go-gl/gl/v4.3-core/gl"
	log "github.com/sirupsen/logrus"
)

const (
	maxDescriptorSets   = 4
	bindingsPerSet      = 8
	pushConstantBinding = maxDescriptorSets * bindingsPerSet
)

// Context is a window owning an OpenGL 4.3 core context.
type Context interface {
	gfx.Window

	// MakeCurrent binds the context to the calling thread.
	MakeCurrent() error

	// SwapBuffers presents the default framebuffer.
	SwapBuffers()

	// SetSwapInterval enables or disables waiting for vertical blank.
	SetSwapInterval(vsync bool) error
}

// ProcAddrLoader is implemented by contexts that resolve GL entry points
// themselves.
type ProcAddrLoader interface {
	GLProcAddress(name string) unsafe.Pointer
}

// Renderer is the OpenGL implementation of gfx.Renderer.
type Renderer struct {
	info   gfx.AllocInfo
	log    log.FieldLogger
	events *event.Registry
	ctx    Context

	initialised bool
	debug       bool
	extensions  map[string]bool
	queues      gfx.DeviceQueues
	maxAniso    float32

	objects     objects
	layouts     *layoutcache.Cache[*inputLayout]
	descriptors *DescriptorPool
	pools       map[*CommandPool]struct{}
	descPools   map[*DescriptorPool]struct{}

	pushBuffer uint32
	blitFBO    uint32
	serial     uint64

	swapchain *swapchain
}

// New creates an uninitialised OpenGL renderer. The window must implement
// Context.
func New(info gfx.AllocInfo) (*Renderer, error) {
	info.Backend = gfx.OpenGL
	r := &Renderer{
		info:      info,
		log:       info.Log(),
		events:    event.NewRegistry(),
		objects:   newObjects(),
		pools:     make(map[*CommandPool]struct{}),
		descPools: make(map[*DescriptorPool]struct{}),
		queues:    singleQueue(),
	}
	if ctx, ok := info.Window.(Context); ok {
		r.ctx = ctx
	}
	return r, nil
}

// singleQueue assigns every role to the one implicit GL queue.
func singleQueue() gfx.DeviceQueues {
	return gfx.FindQueueFamilies([]gfx.QueueFamily{{
		Caps:       gfx.CapGraphics | gfx.CapCompute | gfx.CapTransfer,
		QueueCount: 1,
		Present:    true,
	}}, false)
}

// Init implements gfx.Renderer.
func (r *Renderer) Init() error {
	if r.initialised {
		gfx.Violationf("Init called twice")
	}
	if r.ctx == nil {
		return gfx.Unavailable(gfx.OpenGL, "window does not provide an OpenGL context")
	}
	if err := r.ctx.MakeCurrent(); err != nil {
		return gfx.NewFatal(gfx.OpenGL, "MakeCurrent", 0, err.Error())
	}

	var err error
	if loader, ok := r.ctx.(ProcAddrLoader); ok {
		err = gl.InitWithProcAddrFunc(loader.GLProcAddress)
	} else {
		err = gl.Init()
	}
	if err != nil {
		return gfx.Unavailable(gfx.OpenGL, "gl.Init(): "+err.Error())
	}

	var major, minor int32
	gl.GetIntegerv(gl.MAJOR_VERSION, &major)
	gl.GetIntegerv(gl.MINOR_VERSION, &minor)
	if major < 4 || major == 4 && minor < 3 {
		return gfx.Unavailable(gfx.OpenGL, fmt.Sprintf("OpenGL %d.%d is older than 4.3", major, minor))
	}
	r.extensions = loadExtensions()
	if r.extensions["GL_EXT_texture_filter_anisotropic"] {
		gl.GetFloatv(maxTextureMaxAnisotropy, &r.maxAniso)
	}

	if r.info.Debug {
		r.enableDebugOutput()
	}

	r.layouts = layoutcache.New("pipeline layouts", func(*inputLayout) {}, r.log)
	r.descriptors = r.CreateDescriptorPool()

	gl.GenBuffers(1, &r.pushBuffer)
	gl.BindBuffer(gl.UNIFORM_BUFFER, r.pushBuffer)
	gl.BufferData(gl.UNIFORM_BUFFER, gfx.MaxPushConstantsSize, nil, gl.DYNAMIC_DRAW)
	gl.BindBuffer(gl.UNIFORM_BUFFER, 0)
	gl.GenFramebuffers(1, &r.blitFBO)
	if err := check("Init"); err != nil {
		return err
	}

	r.initialised = true
	r.log.WithFields(log.Fields{
		"vendor":   gl.GoStr(gl.GetString(gl.VENDOR)),
		"renderer": gl.GoStr(gl.GetString(gl.RENDERER)),
		"version":  gl.GoStr(gl.GetString(gl.VERSION)),
	}).Info("opengl context initialised")
	return nil
}

func loadExtensions() map[string]bool {
	var n int32
	gl.GetIntegerv(gl.NUM_EXTENSIONS, &n)
	exts := make(map[string]bool, n)
	for i := int32(0); i < n; i++ {
		exts[gl.GoStr(gl.GetStringi(gl.EXTENSIONS, uint32(i)))] = true
	}
	return exts
}

// Destroy implements gfx.Renderer.
func (r *Renderer) Destroy() {
	if !r.initialised {
		return
	}
	gl.Finish()
	r.swapchain = nil
	for p := range r.pools {
		p.destroy()
	}
	for p := range r.descPools {
		p.Destroy()
	}
	r.descriptors = nil

	if n := r.objects.live(); n > 0 {
		r.log.WithField("objects", n).Warn("destroying objects still alive at renderer teardown")
	}
	r.objects.destroyAll()
	r.layouts.Destroy()

	gl.DeleteBuffers(1, &r.pushBuffer)
	gl.DeleteFramebuffers(1, &r.blitFBO)
	r.initialised = false
}

// Backend implements gfx.Renderer.
func (r *Renderer) Backend() gfx.Backend {
	return gfx.OpenGL
}

// DeviceQueues implements gfx.Renderer. Every role maps to the single GL
// command stream.
func (r *Renderer) DeviceQueues() gfx.DeviceQueues {
	return r.queues
}

// Events implements gfx.Renderer.
func (r *Renderer) Events() *event.Registry {
	return r.events
}

// WaitForQueueIdle implements gfx.Renderer.
func (r *Renderer) WaitForQueueIdle(q gfx.QueueType) error {
	if q < gfx.QueueGraphics || q > gfx.QueueTransfer {
		gfx.Violationf("unknown queue %d", q)
	}
	gl.Finish()
	return check("glFinish")
}

// WaitForDeviceIdle implements gfx.Renderer.
func (r *Renderer) WaitForDeviceIdle() error {
	gl.Finish()
	if err := check("glFinish"); err != nil {
		return err
	}
	r.events.Trigger(gfx.EventDeviceIdle, nil)
	return nil
}

func (r *Renderer) requireInit() error {
	if !r.initialised {
		return gfx.ErrNotInitialised
	}
	return nil
}

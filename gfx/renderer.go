// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"time"

	"github.com/devblok/starlight/event"
	"github.com/go-gl/mathgl/mgl32"
)

// Events triggered by renderers on their registry.
const (
	// EventSwapchainRecreated carries a SwapchainDesc with the new size.
	EventSwapchainRecreated event.Kind = "gfx.swapchain_recreated"

	// EventDeviceIdle is triggered after WaitForDeviceIdle returns.
	EventDeviceIdle event.Kind = "gfx.device_idle"
)

// Renderer is the backend neutral GPU interface. A Renderer is owned by one
// goroutine; its creation and destruction calls are not synchronised.
//
// Every Create call must be matched by exactly one Destroy call for the
// returned handle. Handles are only valid with the Renderer that issued them.
type Renderer interface {

	// Init creates the backend instance and device. Errors are fatal.
	Init() error

	// Destroy waits for the device and releases everything the renderer
	// still owns, including command pools and the buffers allocated from them.
	Destroy()

	// Backend returns the implemented graphics API.
	Backend() Backend

	// DeviceQueues returns the queue families selected during Init.
	DeviceQueues() DeviceQueues

	// Events returns the registry notified of swapchain and device events.
	Events() *event.Registry

	CreateBuffer(desc BufferDesc) (Buffer, error)
	UpdateBuffer(b Buffer, offset uint64, data []byte) error
	DestroyBuffer(b Buffer)

	CreateTexture(desc TextureDesc) (Texture, error)
	DestroyTexture(t Texture)

	CreateTextureView(desc TextureViewDesc) (TextureView, error)
	DestroyTextureView(v TextureView)

	CreateSampler(desc SamplerDesc) (Sampler, error)
	DestroySampler(s Sampler)

	CreateShaderModule(desc ShaderModuleDesc) (ShaderModule, error)
	DestroyShaderModule(m ShaderModule)

	CreateRenderPass(desc RenderPassDesc) (RenderPass, error)
	DestroyRenderPass(p RenderPass)

	CreateFramebuffer(desc FramebufferDesc) (Framebuffer, error)
	DestroyFramebuffer(f Framebuffer)

	// CreatePipelineInputLayout returns a layout sharing driver objects with
	// every structurally equal layout still alive.
	CreatePipelineInputLayout(desc PipelineInputLayoutDesc) (PipelineInputLayout, error)
	DestroyPipelineInputLayout(l PipelineInputLayout)

	CreateGraphicsPipeline(desc GraphicsPipelineDesc) (Pipeline, error)
	DestroyPipeline(p Pipeline)

	CreateDescriptorSet(desc DescriptorSetDesc) (DescriptorSet, error)
	UpdateDescriptorSet(s DescriptorSet, writes []DescriptorWrite)
	DestroyDescriptorSet(s DescriptorSet)

	CreateStagingBuffer(data []byte) (StagingBuffer, error)
	DestroyStagingBuffer(s StagingBuffer)

	CreateFence(signaled bool) (Fence, error)
	DestroyFence(f Fence)

	// WaitForFences blocks until all or any fences are signaled, or the
	// timeout elapses. It reports whether the wait was satisfied.
	WaitForFences(fences []Fence, all bool, timeout time.Duration) (bool, error)
	ResetFences(fences []Fence) error

	CreateSemaphore() (Semaphore, error)
	DestroySemaphore(s Semaphore)

	// CreateCommandPool creates a pool whose buffers are submitted to queue.
	CreateCommandPool(queue QueueType) (CommandPool, error)
	DestroyCommandPool(p CommandPool)

	// SubmitToQueue submits recorded command buffers. fence may be zero.
	SubmitToQueue(queue QueueType, submits []SubmitInfo, fence Fence) error
	WaitForQueueIdle(queue QueueType) error
	WaitForDeviceIdle() error

	InitSwapchain(desc SwapchainDesc) error

	// AcquireSwapchainImage returns the index of the next image to render
	// into. signal is signaled when the image is ready and may be zero.
	AcquireSwapchainImage(signal Semaphore) (uint32, error)

	// PresentToSwapchain presents image after wait. When a swapchain texture
	// is set it is first copied into the image.
	PresentToSwapchain(image uint32, wait []Semaphore) error

	// RecreateSwapchain rebuilds the swapchain for a new size. The texture set
	// with SetSwapchainTexture stays bound.
	RecreateSwapchain(width, height uint32) error

	// SetSwapchainTexture selects the texture presented to the swapchain.
	SetSwapchainTexture(view TextureView, sampler Sampler, layout ImageLayout)

	SwapchainTextures() []Texture
	SwapchainTextureViews() []TextureView
	SwapchainFormat() Format

	// SetObjectDebugName names a handle in debugging tools. obj is any typed
	// handle. It has no effect without debug support.
	SetObjectDebugName(obj interface{}, name string)
}

// CommandPool allocates command buffers for one queue. A pool and its buffers
// must be used from one goroutine at a time.
type CommandPool interface {

	// Queue returns the queue the pool's buffers are submitted to.
	Queue() QueueType

	// AllocateCommandBuffer allocates one buffer.
	AllocateCommandBuffer(level CommandBufferLevel) (CommandBuffer, error)

	// AllocateCommandBuffers allocates count buffers at once. On error none
	// of the batch is valid. count must be positive.
	AllocateCommandBuffers(level CommandBufferLevel, count int) ([]CommandBuffer, error)

	FreeCommandBuffer(b CommandBuffer)
	FreeCommandBuffers(b []CommandBuffer)

	// Reset returns every buffer of the pool to the initial state. With
	// releaseResources the backing memory is returned to the system.
	Reset(releaseResources bool) error
}

// CommandBuffer records commands for submission. Recording happens between
// Begin and End; draws must be inside a render pass.
type CommandBuffer interface {
	Level() CommandBufferLevel
	State() RecordState

	Begin(usage CommandBufferUsage) error
	End() error
	Reset(releaseResources bool) error

	BeginRenderPass(pass RenderPass, fb Framebuffer, area Rect, clear []ClearValue)
	NextSubpass()
	EndRenderPass()

	BindPipeline(p Pipeline)
	BindIndexBuffer(b Buffer, offset uint64, t IndexType)
	BindVertexBuffers(first uint32, buffers []Buffer, offsets []uint64)
	BindDescriptorSets(first uint32, sets []DescriptorSet)
	PushConstants(stages ShaderStage, offset uint32, data []byte)

	SetViewport(v Viewport)
	SetScissor(r Rect)

	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)

	CopyBuffer(src, dst Buffer, regions []BufferCopy)
	CopyBufferToTexture(src Buffer, dst Texture, layout ImageLayout, regions []BufferTextureCopy)

	// TransitionTextureLayout declares that tex moves from old to new.
	TransitionTextureLayout(tex Texture, old, new ImageLayout)

	BeginDebugRegion(name string, color mgl32.Vec4)
	EndDebugRegion()
	InsertDebugMarker(name string, color mgl32.Vec4)
}

// DescriptorPool allocates descriptor sets. Sets are freed to the pool that
// allocated them.
type DescriptorPool interface {
	AllocateDescriptorSet(layout DescriptorSetLayoutDesc) (DescriptorSet, error)
	AllocateDescriptorSets(layout DescriptorSetLayoutDesc, count int) ([]DescriptorSet, error)
	FreeDescriptorSet(s DescriptorSet)
	FreeDescriptorSets(s []DescriptorSet)
	Reset() error
	Destroy()
}

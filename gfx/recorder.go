// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

// RecordState is the lifecycle state of a command buffer.
type RecordState int

const (
	StateInitial RecordState = iota
	StateRecording
	StateExecutable
	StateInvalid
)

func (s RecordState) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateRecording:
		return "recording"
	case StateExecutable:
		return "executable"
	default:
		return "invalid"
	}
}

// Recorder tracks the recording state and bound objects of a command buffer.
// Backends embed it and call its methods before emitting native commands;
// misuse panics with a ContractViolation.
type Recorder struct {
	level   CommandBufferLevel
	state   RecordState
	inPass  bool
	subpass int

	pipeline        Pipeline
	pushSize        uint32
	indexBuffer     Buffer
	indexOffset     uint64
	indexType       IndexType
	vertexBuffers   []Buffer
	descriptorSets  []DescriptorSet
	pushConstants   [MaxPushConstantsSize]byte
	debugRegionDeep int
}

// NewRecorder returns a recorder in the initial state.
func NewRecorder(level CommandBufferLevel) Recorder {
	return Recorder{level: level}
}

// Level returns the level fixed at allocation.
func (r *Recorder) Level() CommandBufferLevel {
	return r.level
}

// State returns the current lifecycle state.
func (r *Recorder) State() RecordState {
	return r.state
}

// InRenderPass reports whether a render pass scope is open.
func (r *Recorder) InRenderPass() bool {
	return r.inPass
}

// Subpass returns the index of the current subpass.
func (r *Recorder) Subpass() int {
	return r.subpass
}

// StartRecording moves to the recording state. Beginning a buffer that is
// executable implicitly resets it.
func (r *Recorder) StartRecording() {
	switch r.state {
	case StateRecording:
		Violationf("Begin on a command buffer that is already recording")
	case StateInvalid:
		Violationf("Begin on a command buffer whose pool was reset or destroyed")
	}
	r.clearBindings()
	r.state = StateRecording
}

// FinishRecording moves to the executable state.
func (r *Recorder) FinishRecording() {
	r.RequireRecording("End")
	if r.inPass {
		Violationf("End inside a render pass")
	}
	if r.debugRegionDeep != 0 {
		Violationf("End with %d open debug regions", r.debugRegionDeep)
	}
	r.state = StateExecutable
}

// ResetRecording returns to the initial state and drops bound state.
func (r *Recorder) ResetRecording() {
	r.clearBindings()
	r.state = StateInitial
}

// Invalidate marks the buffer unusable until its pool is reset.
func (r *Recorder) Invalidate() {
	r.clearBindings()
	r.state = StateInvalid
}

// RequireRecording panics unless the buffer is recording.
func (r *Recorder) RequireRecording(op string) {
	if r.state != StateRecording {
		Violationf("%s outside Begin/End (state %s)", op, r.state)
	}
}

// RequireRenderPass panics unless a render pass scope is open.
func (r *Recorder) RequireRenderPass(op string) {
	r.RequireRecording(op)
	if !r.inPass {
		Violationf("%s outside a render pass", op)
	}
}

// RequireNoRenderPass panics if a render pass scope is open.
func (r *Recorder) RequireNoRenderPass(op string) {
	r.RequireRecording(op)
	if r.inPass {
		Violationf("%s inside a render pass", op)
	}
}

// RequireSubmittable panics unless the buffer finished recording.
func (r *Recorder) RequireSubmittable() {
	if r.state != StateExecutable {
		Violationf("submitting a command buffer in state %s", r.state)
	}
}

// BeginPass opens a render pass scope.
func (r *Recorder) BeginPass() {
	r.RequireNoRenderPass("BeginRenderPass")
	r.inPass = true
	r.subpass = 0
}

// NextPass advances to the next subpass.
func (r *Recorder) NextPass() {
	r.RequireRenderPass("NextSubpass")
	r.subpass++
}

// EndPass closes the render pass scope.
func (r *Recorder) EndPass() {
	r.RequireRenderPass("EndRenderPass")
	r.inPass = false
	r.subpass = 0
}

// SetPipeline binds p. pushSize is the push constant size of its layout.
func (r *Recorder) SetPipeline(p Pipeline, pushSize uint32) {
	r.RequireRecording("BindPipeline")
	r.pipeline = p
	r.pushSize = pushSize
}

// Pipeline returns the bound pipeline.
func (r *Recorder) Pipeline() Pipeline {
	return r.pipeline
}

// SetIndexBuffer binds the index buffer.
func (r *Recorder) SetIndexBuffer(b Buffer, offset uint64, t IndexType) {
	r.RequireRecording("BindIndexBuffer")
	r.indexBuffer = b
	r.indexOffset = offset
	r.indexType = t
}

// IndexBuffer returns the bound index buffer.
func (r *Recorder) IndexBuffer() (Buffer, uint64, IndexType) {
	return r.indexBuffer, r.indexOffset, r.indexType
}

// SetVertexBuffers binds buffers starting at slot first.
func (r *Recorder) SetVertexBuffers(first uint32, buffers []Buffer) {
	r.RequireRecording("BindVertexBuffers")
	r.vertexBuffers = bindRange(r.vertexBuffers, first, buffers)
}

// VertexBuffers returns the bound vertex buffers by slot.
func (r *Recorder) VertexBuffers() []Buffer {
	return r.vertexBuffers
}

// SetDescriptorSets binds sets starting at set index first.
func (r *Recorder) SetDescriptorSets(first uint32, sets []DescriptorSet) {
	r.RequireRecording("BindDescriptorSets")
	if r.pipeline == 0 {
		Violationf("BindDescriptorSets before BindPipeline")
	}
	r.descriptorSets = bindRange(r.descriptorSets, first, sets)
}

// DescriptorSets returns the bound descriptor sets by set index.
func (r *Recorder) DescriptorSets() []DescriptorSet {
	return r.descriptorSets
}

// WritePushConstants copies data into the push constant block at offset.
// The range must lie within the bound pipeline layout's block.
func (r *Recorder) WritePushConstants(offset uint32, data []byte) {
	r.RequireRecording("PushConstants")
	if r.pipeline == 0 {
		Violationf("PushConstants before BindPipeline")
	}
	end := uint64(offset) + uint64(len(data))
	if end > uint64(r.pushSize) || end > MaxPushConstantsSize {
		Violationf("push constant range [%d, %d) exceeds block of %d bytes", offset, end, r.pushSize)
	}
	copy(r.pushConstants[offset:end], data)
}

// PushConstantBlock returns the push constant block of the bound layout.
func (r *Recorder) PushConstantBlock() []byte {
	return r.pushConstants[:r.pushSize]
}

// RequireDraw panics unless a draw can be recorded.
func (r *Recorder) RequireDraw(op string) {
	r.RequireRenderPass(op)
	if r.pipeline == 0 {
		Violationf("%s without a bound pipeline", op)
	}
}

// PushDebugRegion and PopDebugRegion keep debug regions balanced.
func (r *Recorder) PushDebugRegion() {
	r.RequireRecording("BeginDebugRegion")
	r.debugRegionDeep++
}

func (r *Recorder) PopDebugRegion() {
	r.RequireRecording("EndDebugRegion")
	if r.debugRegionDeep == 0 {
		Violationf("EndDebugRegion without BeginDebugRegion")
	}
	r.debugRegionDeep--
}

func (r *Recorder) clearBindings() {
	r.inPass = false
	r.subpass = 0
	r.pipeline = 0
	r.pushSize = 0
	r.indexBuffer = 0
	r.indexOffset = 0
	r.indexType = IndexUint16
	r.vertexBuffers = r.vertexBuffers[:0]
	r.descriptorSets = r.descriptorSets[:0]
	r.pushConstants = [MaxPushConstantsSize]byte{}
	r.debugRegionDeep = 0
}

func bindRange[T any](dst []T, first uint32, src []T) []T {
	end := int(first) + len(src)
	for len(dst) < end {
		var zero T
		dst = append(dst, zero)
	}
	copy(dst[first:], src)
	return dst
}

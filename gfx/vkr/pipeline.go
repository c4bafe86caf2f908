// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"unsafe"

	"github.com/devblok/starlight/gfx"
	vk "github.com/devblok/vulkan"
)

// CreateRenderPass implements gfx.Renderer. Consecutive subpasses are
// chained with colour attachment dependencies.
func (r *Renderer) CreateRenderPass(desc gfx.RenderPassDesc) (gfx.RenderPass, error) {
	if len(desc.Subpasses) == 0 {
		gfx.Violationf("render pass without subpasses")
	}

	attachments := make([]vk.AttachmentDescription, len(desc.Attachments))
	for i, a := range desc.Attachments {
		stencilLoad, stencilStore := vk.AttachmentLoadOpDontCare, vk.AttachmentStoreOpDontCare
		if a.Format.HasStencil() {
			stencilLoad, stencilStore = vkLoadOp(a.Load), vkStoreOp(a.Store)
		}
		attachments[i] = vk.AttachmentDescription{
			Format:         vkFormat(a.Format),
			Samples:        vkSamples(a.Samples),
			LoadOp:         vkLoadOp(a.Load),
			StoreOp:        vkStoreOp(a.Store),
			StencilLoadOp:  stencilLoad,
			StencilStoreOp: stencilStore,
			InitialLayout:  vkImageLayout(a.InitialLayout),
			FinalLayout:    vkImageLayout(a.FinalLayout),
		}
	}

	checkIndex := func(idx uint32) {
		if int(idx) >= len(desc.Attachments) {
			gfx.Violationf("subpass references attachment %d of %d", idx, len(desc.Attachments))
		}
	}

	subpasses := make([]vk.SubpassDescription, len(desc.Subpasses))
	for i, sp := range desc.Subpasses {
		colorRefs := make([]vk.AttachmentReference, len(sp.Color))
		for j, idx := range sp.Color {
			checkIndex(idx)
			colorRefs[j] = vk.AttachmentReference{
				Attachment: idx,
				Layout:     vk.ImageLayoutColorAttachmentOptimal,
			}
		}
		inputRefs := make([]vk.AttachmentReference, len(sp.Input))
		for j, idx := range sp.Input {
			checkIndex(idx)
			inputRefs[j] = vk.AttachmentReference{
				Attachment: idx,
				Layout:     vk.ImageLayoutShaderReadOnlyOptimal,
			}
		}
		subpasses[i] = vk.SubpassDescription{
			PipelineBindPoint:    vk.PipelineBindPointGraphics,
			ColorAttachmentCount: uint32(len(colorRefs)),
			PColorAttachments:    colorRefs,
			InputAttachmentCount: uint32(len(inputRefs)),
			PInputAttachments:    inputRefs,
		}
		if sp.DepthStencil != nil {
			checkIndex(*sp.DepthStencil)
			subpasses[i].PDepthStencilAttachment = &vk.AttachmentReference{
				Attachment: *sp.DepthStencil,
				Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
			}
		}
	}

	dependencies := []vk.SubpassDependency{{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}}
	for i := 1; i < len(subpasses); i++ {
		dependencies = append(dependencies, vk.SubpassDependency{
			SrcSubpass:      uint32(i - 1),
			DstSubpass:      uint32(i),
			SrcStageMask:    vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			SrcAccessMask:   vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
			DstStageMask:    vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			DstAccessMask:   vk.AccessFlags(vk.AccessInputAttachmentReadBit | vk.AccessShaderReadBit),
			DependencyFlags: vk.DependencyFlags(vk.DependencyByRegionBit),
		})
	}

	rpci := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    uint32(len(subpasses)),
		PSubpasses:      subpasses,
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}

	var pass vk.RenderPass
	if err := check("vkCreateRenderPass", vk.CreateRenderPass(r.device, &rpci, nil, &pass)); err != nil {
		return 0, err
	}
	return gfx.RenderPass(r.objects.passes.Insert(renderPass{pass: pass, desc: desc})), nil
}

// DestroyRenderPass implements gfx.Renderer.
func (r *Renderer) DestroyRenderPass(h gfx.RenderPass) {
	p := r.objects.passes.Remove(gfx.Handle(h))
	vk.DestroyRenderPass(r.device, p.pass, nil)
}

// CreateFramebuffer implements gfx.Renderer.
func (r *Renderer) CreateFramebuffer(desc gfx.FramebufferDesc) (gfx.Framebuffer, error) {
	pass := r.objects.passes.Get(gfx.Handle(desc.RenderPass))
	if len(desc.Attachments) != len(pass.desc.Attachments) {
		gfx.Violationf("framebuffer with %d attachments for a render pass with %d",
			len(desc.Attachments), len(pass.desc.Attachments))
	}
	if desc.Layers == 0 {
		desc.Layers = 1
	}

	views := make([]vk.ImageView, len(desc.Attachments))
	for i, v := range desc.Attachments {
		views[i] = r.objects.views.Get(gfx.Handle(v)).view
	}

	fci := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      pass.pass,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           desc.Width,
		Height:          desc.Height,
		Layers:          desc.Layers,
	}

	var fb vk.Framebuffer
	if err := check("vkCreateFramebuffer", vk.CreateFramebuffer(r.device, &fci, nil, &fb)); err != nil {
		return 0, err
	}
	return gfx.Framebuffer(r.objects.framebuffers.Insert(framebuffer{
		framebuffer: fb,
		width:       desc.Width,
		height:      desc.Height,
	})), nil
}

// DestroyFramebuffer implements gfx.Renderer.
func (r *Renderer) DestroyFramebuffer(h gfx.Framebuffer) {
	f := r.objects.framebuffers.Remove(gfx.Handle(h))
	vk.DestroyFramebuffer(r.device, f.framebuffer, nil)
}

// acquireSetLayout returns the cached set layout for desc, creating it on a
// miss. Every call must be paired with setLayouts.Release(desc.CacheKey()).
func (r *Renderer) acquireSetLayout(desc gfx.DescriptorSetLayoutDesc) (vk.DescriptorSetLayout, error) {
	return r.setLayouts.Acquire(desc.CacheKey(), func() (vk.DescriptorSetLayout, error) {
		bindings := make([]vk.DescriptorSetLayoutBinding, len(desc.Bindings))
		for i, b := range desc.Bindings {
			count := b.Count
			if count == 0 {
				count = 1
			}
			bindings[i] = vk.DescriptorSetLayoutBinding{
				Binding:         b.Binding,
				DescriptorType:  vkDescriptorType(b.Type),
				DescriptorCount: count,
				StageFlags:      vkShaderStages(b.Stages),
			}
		}
		dslci := vk.DescriptorSetLayoutCreateInfo{
			SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
			Flags:        vk.DescriptorSetLayoutCreateFlags(desc.Flags),
			BindingCount: uint32(len(bindings)),
			PBindings:    bindings,
		}
		var layout vk.DescriptorSetLayout
		if err := check("vkCreateDescriptorSetLayout", vk.CreateDescriptorSetLayout(r.device, &dslci, nil, &layout)); err != nil {
			return nil, err
		}
		return layout, nil
	})
}

// CreatePipelineInputLayout implements gfx.Renderer. Set layouts and the
// pipeline layout are shared through the layout caches.
func (r *Renderer) CreatePipelineInputLayout(desc gfx.PipelineInputLayoutDesc) (gfx.PipelineInputLayout, error) {
	pushSize := desc.PushConstantSize()
	if pushSize > gfx.MaxPushConstantsSize {
		gfx.Violationf("push constants of %d bytes exceed %d", pushSize, gfx.MaxPushConstantsSize)
	}

	setKeys := make([]string, 0, len(desc.Sets))
	setLayouts := make([]vk.DescriptorSetLayout, 0, len(desc.Sets))
	release := func() {
		for _, key := range setKeys {
			r.setLayouts.Release(key)
		}
	}
	for _, set := range desc.Sets {
		layout, err := r.acquireSetLayout(set)
		if err != nil {
			release()
			return 0, err
		}
		setKeys = append(setKeys, set.CacheKey())
		setLayouts = append(setLayouts, layout)
	}

	key := desc.CacheKey()
	layout, err := r.pipelineLayouts.Acquire(key, func() (vk.PipelineLayout, error) {
		ranges := make([]vk.PushConstantRange, len(desc.PushConstants))
		for i, pc := range desc.PushConstants {
			ranges[i] = vk.PushConstantRange{
				StageFlags: vkShaderStages(pc.Stages),
				Offset:     pc.Offset,
				Size:       pc.Size,
			}
		}
		plci := vk.PipelineLayoutCreateInfo{
			SType:                  vk.StructureTypePipelineLayoutCreateInfo,
			SetLayoutCount:         uint32(len(setLayouts)),
			PSetLayouts:            setLayouts,
			PushConstantRangeCount: uint32(len(ranges)),
			PPushConstantRanges:    ranges,
		}
		var pipelineLayout vk.PipelineLayout
		if err := check("vkCreatePipelineLayout", vk.CreatePipelineLayout(r.device, &plci, nil, &pipelineLayout)); err != nil {
			return vk.NullPipelineLayout, err
		}
		return pipelineLayout, nil
	})
	if err != nil {
		release()
		return 0, err
	}

	return gfx.PipelineInputLayout(r.objects.pipelineLayouts.Insert(pipelineLayout{
		layout:   layout,
		refs:     layoutRefs{key: key, setKeys: setKeys},
		pushSize: pushSize,
	})), nil
}

// DestroyPipelineInputLayout implements gfx.Renderer. The cached layouts
// stay alive while a pipeline created from them does.
func (r *Renderer) DestroyPipelineInputLayout(h gfx.PipelineInputLayout) {
	l := r.objects.pipelineLayouts.Remove(gfx.Handle(h))
	r.releaseLayout(l.refs)
}

// retainLayout takes another reference on every cached layout in refs.
func (r *Renderer) retainLayout(refs layoutRefs) layoutRefs {
	r.pipelineLayouts.Retain(refs.key)
	for _, key := range refs.setKeys {
		r.setLayouts.Retain(key)
	}
	return refs
}

func (r *Renderer) releaseLayout(refs layoutRefs) {
	r.pipelineLayouts.Release(refs.key)
	for _, key := range refs.setKeys {
		r.setLayouts.Release(key)
	}
}

// CreateGraphicsPipeline implements gfx.Renderer. Viewport and scissor are
// dynamic state.
func (r *Renderer) CreateGraphicsPipeline(desc gfx.GraphicsPipelineDesc) (gfx.Pipeline, error) {
	if len(desc.Shaders) == 0 {
		gfx.Violationf("pipeline %q without shaders", desc.Name)
	}
	layout := r.objects.pipelineLayouts.Get(gfx.Handle(desc.Layout))
	pass := r.objects.passes.Get(gfx.Handle(desc.RenderPass))
	if int(desc.Subpass) >= len(pass.desc.Subpasses) {
		gfx.Violationf("pipeline %q for subpass %d of %d", desc.Name, desc.Subpass, len(pass.desc.Subpasses))
	}

	stages := make([]vk.PipelineShaderStageCreateInfo, len(desc.Shaders))
	for i, h := range desc.Shaders {
		s := r.objects.shaders.Get(gfx.Handle(h))
		stages[i] = vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vkShaderStage(s.stage),
			Module: s.module,
			PName:  "main\x00",
		}
	}

	bindings := make([]vk.VertexInputBindingDescription, len(desc.Bindings))
	for i, b := range desc.Bindings {
		bindings[i] = vk.VertexInputBindingDescription{
			Binding:   b.Binding,
			Stride:    b.Stride,
			InputRate: vkInputRate(b.Rate),
		}
	}
	attributes := make([]vk.VertexInputAttributeDescription, len(desc.Attributes))
	for i, a := range desc.Attributes {
		attributes[i] = vk.VertexInputAttributeDescription{
			Location: a.Location,
			Binding:  a.Binding,
			Format:   vkFormat(a.Format),
			Offset:   a.Offset,
		}
	}

	colorCount := len(pass.desc.Subpasses[desc.Subpass].Color)
	blend := make([]vk.PipelineColorBlendAttachmentState, colorCount)
	for i := range blend {
		state := gfx.BlendState{}
		if i < len(desc.Blend) {
			state = desc.Blend[i]
		}
		blend[i] = vk.PipelineColorBlendAttachmentState{
			BlendEnable:         vkBool(state.Enable),
			SrcColorBlendFactor: vkBlendFactor(state.SrcColor),
			DstColorBlendFactor: vkBlendFactor(state.DstColor),
			ColorBlendOp:        vkBlendOp(state.ColorOp),
			SrcAlphaBlendFactor: vkBlendFactor(state.SrcAlpha),
			DstAlphaBlendFactor: vkBlendFactor(state.DstAlpha),
			AlphaBlendOp:        vkBlendOp(state.AlphaOp),
			ColorWriteMask:      0xF,
		}
	}

	polygonMode := vk.PolygonModeFill
	if desc.Wireframe {
		if r.limits.fillModeNonSolid {
			polygonMode = vk.PolygonModeLine
		} else {
			r.log.WithField("pipeline", desc.Name).Warn("wireframe not supported by the device")
		}
	}
	lineWidth := desc.LineWidth
	if lineWidth <= 0 || !r.limits.wideLines {
		lineWidth = 1
	}
	depthOp := vkCompareOp(desc.DepthOp)
	if !desc.DepthTest {
		depthOp = vk.CompareOpAlways
	}

	gpci := []vk.GraphicsPipelineCreateInfo{{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: uint32(len(stages)),
		PStages:    stages,
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
			VertexBindingDescriptionCount:   uint32(len(bindings)),
			PVertexBindingDescriptions:      bindings,
			VertexAttributeDescriptionCount: uint32(len(attributes)),
			PVertexAttributeDescriptions:    attributes,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: vkTopology(desc.Topology),
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: polygonMode,
			CullMode:    vkCullMode(desc.Cull),
			FrontFace:   vkFrontFace(desc.FrontFace),
			LineWidth:   lineWidth,
		},
		PDepthStencilState: &vk.PipelineDepthStencilStateCreateInfo{
			SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
			DepthTestEnable:       vkBool(desc.DepthTest),
			DepthWriteEnable:      vkBool(desc.DepthWrite),
			DepthCompareOp:        depthOp,
			DepthBoundsTestEnable: vk.False,
			StencilTestEnable:     vk.False,
			Back: vk.StencilOpState{
				FailOp:    vk.StencilOpKeep,
				PassOp:    vk.StencilOpKeep,
				CompareOp: vk.CompareOpAlways,
			},
			Front: vk.StencilOpState{
				FailOp:    vk.StencilOpKeep,
				PassOp:    vk.StencilOpKeep,
				CompareOp: vk.CompareOpAlways,
			},
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vkSamples(desc.Samples),
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			AttachmentCount: uint32(len(blend)),
			PAttachments:    blend,
		},
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: 2,
			PDynamicStates: []vk.DynamicState{
				vk.DynamicStateScissor,
				vk.DynamicStateViewport,
			},
		},
		Layout:     layout.layout,
		RenderPass: pass.pass,
		Subpass:    desc.Subpass,
	}}

	pipelines := make([]vk.Pipeline, len(gpci))
	if err := check("vkCreateGraphicsPipelines", vk.CreateGraphicsPipelines(r.device, r.pipelineCache, uint32(len(gpci)), gpci, nil, pipelines)); err != nil {
		return 0, err
	}
	if desc.Name != "" {
		r.debug.name(vk.DebugReportObjectTypePipeline, unsafe.Pointer(pipelines[0]), desc.Name)
	}
	return gfx.Pipeline(r.objects.pipelines.Insert(pipeline{
		pipeline: pipelines[0],
		layout:   layout.layout,
		refs:     r.retainLayout(layout.refs),
		pushSize: layout.pushSize,
	})), nil
}

// DestroyPipeline implements gfx.Renderer.
func (r *Renderer) DestroyPipeline(h gfx.Pipeline) {
	p := r.objects.pipelines.Remove(gfx.Handle(h))
	vk.DestroyPipeline(r.device, p.pipeline, nil)
	r.releaseLayout(p.refs)
}

// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"unsafe"

	"github.com/devblok/starlight/gfx"
	vk "github.com/devblok/vulkan"
	log "github.com/sirupsen/logrus"
)

// Surface is a window Vulkan can present into.
type Surface interface {
	gfx.Window

	// VulkanInstanceExtensions lists the instance extensions the window
	// system needs.
	VulkanInstanceExtensions() []string

	// VulkanCreateSurface creates the presentation surface for instance.
	VulkanCreateSurface(instance vk.Instance) (vk.Surface, error)
}

// ProcAddrLoader is implemented by windows that load Vulkan themselves and
// hand out vkGetInstanceProcAddr.
type ProcAddrLoader interface {
	VulkanProcAddr() unsafe.Pointer
}

// Validation layers in order of preference.
var validationLayers = []string{
	"VK_LAYER_KHRONOS_validation",
	"VK_LAYER_LUNARG_standard_validation",
}

const debugReportExtension = "VK_EXT_debug_report"

// reportLog receives validation messages. The callback has no user data
// that survives the cgo boundary, so the logger is package wide.
var reportLog log.FieldLogger = log.StandardLogger()

func (r *Renderer) createInstance() error {
	if loader, ok := r.info.Window.(ProcAddrLoader); ok {
		vk.SetGetInstanceProcAddr(loader.VulkanProcAddr())
	} else if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return gfx.Unavailable(gfx.Vulkan, "vulkan loader not found: "+err.Error())
	}
	if err := vk.Init(); err != nil {
		return gfx.Unavailable(gfx.Vulkan, "vk.Init(): "+err.Error())
	}

	var extensions, layers []string
	if r.surfaceWindow != nil {
		extensions = append(extensions, r.surfaceWindow.VulkanInstanceExtensions()...)
	}
	if r.flags.EnableVulkanLayers {
		if layer, ok := r.findValidationLayer(); ok {
			layers = append(layers, layer)
			if r.instanceExtensionSupported(debugReportExtension) {
				extensions = append(extensions, debugReportExtension)
			}
			r.log.WithField("layer", layer).Info("validation layers enabled")
		} else {
			r.log.Warn("validation layers requested but not supported by this system")
		}
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         vk.MakeVersion(1, 0, 0),
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PApplicationName:   safeString(r.info.AppName),
		PEngineName:        safeString("starlight"),
	}

	instanceInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     safeStrings(layers),
	}

	var instance vk.Instance
	if err := check("vkCreateInstance", vk.CreateInstance(&instanceInfo, nil, &instance)); err != nil {
		return err
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, nil)
		return fatal("vkInitInstance", err.Error())
	}
	r.instance = instance
	r.log.WithField("extensions", extensions).Info("vulkan instance created")

	for _, ext := range extensions {
		if ext == debugReportExtension {
			return r.createDebugReport()
		}
	}
	return nil
}

func (r *Renderer) findValidationLayer() (string, bool) {
	var count uint32
	if err := vk.Error(vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return "", false
	}
	available := make([]vk.LayerProperties, count)
	if err := vk.Error(vk.EnumerateInstanceLayerProperties(&count, available)); err != nil {
		return "", false
	}

	names := make(map[string]bool, len(available))
	for _, layer := range available {
		layer.Deref()
		names[vk.ToString(layer.LayerName[:])] = true
	}
	for _, want := range validationLayers {
		if names[want] {
			return want, true
		}
	}
	return "", false
}

func (r *Renderer) instanceExtensionSupported(name string) bool {
	var count uint32
	if err := vk.Error(vk.EnumerateInstanceExtensionProperties("", &count, nil)); err != nil {
		return false
	}
	available := make([]vk.ExtensionProperties, count)
	if err := vk.Error(vk.EnumerateInstanceExtensionProperties("", &count, available)); err != nil {
		return false
	}
	for _, ext := range available {
		ext.Deref()
		if vk.ToString(ext.ExtensionName[:]) == name {
			return true
		}
	}
	return false
}

func (r *Renderer) createDebugReport() error {
	reportLog = r.log.WithField("source", "validation")
	info := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: debugReport,
	}
	var callback vk.DebugReportCallback
	if err := check("vkCreateDebugReportCallbackEXT", vk.CreateDebugReportCallback(r.instance, &info, nil, &callback)); err != nil {
		return err
	}
	r.debugReport = callback
	return nil
}

func debugReport(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint, location uint,
	messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	entry := reportLog.WithFields(log.Fields{"layer": pLayerPrefix, "code": messageCode})
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		entry.Error(pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit|vk.DebugReportPerformanceWarningBit) != 0:
		entry.Warn(pMessage)
	default:
		entry.Debug(pMessage)
	}
	return vk.False
}

func (r *Renderer) createSurface() error {
	if r.surfaceWindow == nil {
		return nil
	}
	surface, err := r.surfaceWindow.VulkanCreateSurface(r.instance)
	if err != nil {
		return fatal("vkCreateSurfaceKHR", err.Error())
	}
	if surface == vk.NullSurface {
		return fatal("vkCreateSurfaceKHR", "window returned a null surface")
	}
	r.surface = surface
	return nil
}

func (r *Renderer) destroyInstance() {
	if r.surface != vk.NullSurface {
		vk.DestroySurface(r.instance, r.surface, nil)
		r.surface = vk.NullSurface
	}
	if r.debugReport != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(r.instance, r.debugReport, nil)
		r.debugReport = vk.NullDebugReportCallback
	}
	if r.instance != nil {
		vk.DestroyInstance(r.instance, nil)
		r.instance = nil
	}
}

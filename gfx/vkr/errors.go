// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/devblok/starlight/gfx"
	vk "github.com/devblok/vulkan"
)

// Result codes of extensions and core 1.1 that the bindings do not name.
const (
	errorOutOfPoolMemory vk.Result = -1000069000
	errorFragmentedPool  vk.Result = -12
)

// check turns a failed Vulkan result into a fatal gfx.Error attributed to
// the caller of check.
func check(op string, res vk.Result) error {
	if err := vk.Error(res); err != nil {
		return gfx.NewFatalAt(1, gfx.Vulkan, op, int64(res), err.Error())
	}
	return nil
}

func fatal(op, desc string) error {
	return gfx.NewFatalAt(1, gfx.Vulkan, op, 0, desc)
}

func poolExhausted(res vk.Result) bool {
	return res == errorOutOfPoolMemory || res == errorFragmentedPool
}

func safeString(s string) string {
	if len(s) == 0 || s[len(s)-1] != 0 {
		return s + "\x00"
	}
	return s
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = safeString(list[i])
	}
	return out
}

func vkBool(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}

// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/devblok/starlight/gfx"
	"github.com/devblok/starlight/shader"
	log "github.com/sirupsen/logrus"
)

type shaderSet struct {
	r       gfx.Renderer
	modules map[string]gfx.ShaderModule
	archive *shader.Archive
}

// loadShaders creates a module for every shader found at path, a directory
// or a .slsa archive. Shaders the backend cannot consume are skipped.
func loadShaders(r gfx.Renderer, path string, logger log.FieldLogger) *shaderSet {
	set := &shaderSet{r: r, modules: make(map[string]gfx.ShaderModule)}
	entry := logger.WithField("shaders", path)

	var (
		src   shader.Source
		names []string
	)
	if strings.HasSuffix(path, ".slsa") {
		ar, err := shader.OpenArchiveFile(path)
		if err != nil {
			entry.WithError(err).Warn("shader archive not loaded")
			return set
		}
		set.archive = ar
		src, names = ar, ar.Names()
	} else {
		if _, err := os.Stat(path); err != nil {
			entry.WithError(err).Debug("no shader directory")
			return set
		}
		entries, err := shader.Scan(path)
		if err != nil {
			entry.WithError(err).Warn("shader directory not scanned")
			return set
		}
		for _, e := range entries {
			rel, err := filepath.Rel(path, filepath.Join(filepath.Dir(e.Path), e.Name))
			if err != nil {
				continue
			}
			names = append(names, rel)
		}
		src = shader.Dir(path)
	}

	for _, name := range names {
		name = strings.TrimSuffix(name, ".spv")
		desc, err := shader.Module(src, name)
		if err != nil {
			entry.WithError(err).Warn("shader skipped")
			continue
		}
		if r.Backend() == gfx.Vulkan && (len(desc.Code) == 0 || len(desc.Code)%4 != 0) {
			entry.WithField("name", name).Warn("shader is not SPIR-V")
			continue
		}
		m, err := r.CreateShaderModule(desc)
		if errors.Is(err, gfx.ErrBackendUnavailable) {
			entry.WithField("name", name).Debug("shader format not supported by the backend")
			continue
		}
		if err != nil {
			entry.WithError(err).WithField("name", name).Warn("shader module not created")
			continue
		}
		r.SetObjectDebugName(m, name)
		set.modules[name] = m
	}
	entry.WithField("modules", len(set.modules)).Info("shaders loaded")
	return set
}

func (s *shaderSet) destroy() {
	for _, m := range s.modules {
		s.r.DestroyShaderModule(m)
	}
	if s.archive != nil {
		s.archive.Close()
	}
}

// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package shader finds compiled shader code by name in directories, packr
// boxes and shader archives.
package shader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/devblok/starlight/gfx"
	"github.com/gobuffalo/packd"
	"github.com/gobuffalo/packr"
)

// ErrNotFound is returned by sources that have no shader of a given name.
var ErrNotFound = errors.New("shader not found")

const compiledSuffix = ".spv"

// Source loads shader code by name.
type Source interface {
	Load(name string) ([]byte, error)
}

// Entry is a compiled shader file found by Scan.
type Entry struct {
	Name  string
	Path  string
	Stage gfx.ShaderStage
}

var stageSuffixes = map[string]gfx.ShaderStage{
	"vert": gfx.StageVertex,
	"frag": gfx.StageFragment,
	"comp": gfx.StageCompute,
	"geom": gfx.StageGeometry,
	"tesc": gfx.StageTessControl,
	"tese": gfx.StageTessEvaluation,
}

// StageOf returns the stage named by the second to last dot separated part
// of name, as in "sprite.frag.spv" or "sprite.frag".
func StageOf(name string) (gfx.ShaderStage, bool) {
	nodes := strings.Split(strings.TrimSuffix(filepath.Base(name), compiledSuffix), ".")
	if len(nodes) != 2 {
		return 0, false
	}
	stage, ok := stageSuffixes[nodes[1]]
	return stage, ok
}

// Dir is a directory of shader files.
type Dir string

// Load reads name from the directory, trying name and then name.spv.
func (d Dir) Load(name string) ([]byte, error) {
	for _, candidate := range []string{name, name + compiledSuffix} {
		data, err := os.ReadFile(filepath.Join(string(d), candidate))
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%s in %s: %w", name, string(d), ErrNotFound)
}

// Scan lists the compiled shaders in dir. Only files named
// <name>.<stage>.spv are returned, sorted by name.
func Scan(dir string) ([]Entry, error) {
	var entries []Entry
	err := filepath.Walk(dir, func(path string, f os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if f.IsDir() || !strings.HasSuffix(f.Name(), compiledSuffix) {
			return nil
		}
		stage, ok := StageOf(f.Name())
		if !ok {
			return nil
		}
		entries = append(entries, Entry{
			Name:  strings.TrimSuffix(f.Name(), compiledSuffix),
			Path:  path,
			Stage: stage,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

type finder struct {
	packd.Finder
}

func (f finder) Load(name string) ([]byte, error) {
	for _, candidate := range []string{name, name + compiledSuffix} {
		if data, err := f.Find(candidate); err == nil {
			return data, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
}

// FromFinder loads shaders through any packd finder.
func FromFinder(f packd.Finder) Source {
	return finder{f}
}

// FromBox loads shaders from a packr box at an absolute path. Boxes meant
// for embedding must be created with packr.NewBox by the host and passed to
// FromFinder, since packr resolves relative paths against the calling file.
func FromBox(path string) Source {
	return FromFinder(packr.NewBox(path))
}

// Module loads name from src and describes it as a shader module. The stage
// is taken from the name.
func Module(src Source, name string) (gfx.ShaderModuleDesc, error) {
	stage, ok := StageOf(name)
	if !ok {
		return gfx.ShaderModuleDesc{}, fmt.Errorf("shader %q: name does not carry a stage", name)
	}
	code, err := src.Load(name)
	if err != nil {
		return gfx.ShaderModuleDesc{}, err
	}
	return gfx.ShaderModuleDesc{Name: name, Stage: stage, Code: code}, nil
}

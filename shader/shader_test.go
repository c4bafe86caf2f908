package shader_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/gobuffalo/packd"

	"github.com/devblok/starlight/gfx"
	"github.com/devblok/starlight/shader"
)

func writeFiles(c *qt.C, files map[string]string) string {
	dir := c.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		c.Assert(os.MkdirAll(filepath.Dir(path), 0o755), qt.IsNil)
		c.Assert(os.WriteFile(path, []byte(content), 0o644), qt.IsNil)
	}
	return dir
}

func TestStageOf(t *testing.T) {
	tests := []struct {
		name  string
		stage gfx.ShaderStage
		ok    bool
	}{
		{"sprite.vert.spv", gfx.StageVertex, true},
		{"sprite.frag", gfx.StageFragment, true},
		{"dir/cull.comp.spv", gfx.StageCompute, true},
		{"sprite.spv", 0, false},
		{"a.b.frag.spv", 0, false},
		{"sprite.pixel.spv", 0, false},
	}
	for _, test := range tests {
		stage, ok := shader.StageOf(test.name)
		if stage != test.stage || ok != test.ok {
			t.Errorf("StageOf(%q) = %v, %v; want %v, %v", test.name, stage, ok, test.stage, test.ok)
		}
	}
}

func TestDir(t *testing.T) {
	c := qt.New(t)
	dir := writeFiles(c, map[string]string{
		"sprite.vert.spv": "vertex",
		"sprite.frag":     "fragment source",
	})
	src := shader.Dir(dir)

	data, err := src.Load("sprite.vert")
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "vertex")

	data, err = src.Load("sprite.frag")
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "fragment source")

	_, err = src.Load("missing.frag")
	c.Assert(errors.Is(err, shader.ErrNotFound), qt.IsTrue)
}

func TestScan(t *testing.T) {
	c := qt.New(t)
	dir := writeFiles(c, map[string]string{
		"b.frag.spv":        "1",
		"a.vert.spv":        "2",
		"nested/c.comp.spv": "3",
		"readme.txt":        "4",
		"a.vert":            "5",
		"odd.spv":           "6",
	})
	entries, err := shader.Scan(dir)
	c.Assert(err, qt.IsNil)
	c.Assert(entries, qt.DeepEquals, []shader.Entry{
		{Name: "a.vert", Path: filepath.Join(dir, "a.vert.spv"), Stage: gfx.StageVertex},
		{Name: "b.frag", Path: filepath.Join(dir, "b.frag.spv"), Stage: gfx.StageFragment},
		{Name: "c.comp", Path: filepath.Join(dir, "nested", "c.comp.spv"), Stage: gfx.StageCompute},
	})

	_, err = shader.Scan(filepath.Join(dir, "nowhere"))
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestFromFinder(t *testing.T) {
	c := qt.New(t)
	box := packd.NewMemoryBox()
	c.Assert(box.AddString("light.frag.spv", "lit"), qt.IsNil)

	src := shader.FromFinder(box)
	data, err := src.Load("light.frag")
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "lit")

	_, err = src.Load("dark.frag")
	c.Assert(errors.Is(err, shader.ErrNotFound), qt.IsTrue)
}

func TestFromBox(t *testing.T) {
	c := qt.New(t)
	dir := writeFiles(c, map[string]string{"quad.vert.spv": "quad"})
	data, err := shader.FromBox(dir).Load("quad.vert")
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "quad")
}

func TestModule(t *testing.T) {
	c := qt.New(t)
	dir := writeFiles(c, map[string]string{"sky.frag.spv": "sky"})

	desc, err := shader.Module(shader.Dir(dir), "sky.frag")
	c.Assert(err, qt.IsNil)
	c.Assert(desc, qt.DeepEquals, gfx.ShaderModuleDesc{Name: "sky.frag", Stage: gfx.StageFragment, Code: []byte("sky")})

	_, err = shader.Module(shader.Dir(dir), "sky")
	c.Assert(err, qt.ErrorMatches, `shader "sky": name does not carry a stage`)
}

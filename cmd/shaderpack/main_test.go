package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestCompressExtractList(t *testing.T) {
	c := qt.New(t)
	src := c.TempDir()
	c.Assert(os.MkdirAll(filepath.Join(src, "ui"), 0o755), qt.IsNil)
	c.Assert(os.WriteFile(filepath.Join(src, "mesh.vert.spv"), []byte("vertex code"), 0o644), qt.IsNil)
	c.Assert(os.WriteFile(filepath.Join(src, "ui", "text.frag.spv"), []byte("fragment code"), 0o644), qt.IsNil)
	c.Assert(os.WriteFile(filepath.Join(src, "notes.txt"), []byte("ignored"), 0o644), qt.IsNil)

	dst := filepath.Join(c.TempDir(), "shaders.slsa")
	c.Assert(compressShaders(src, dst), qt.IsNil)
	c.Assert(compressShaders(src, dst), qt.ErrorMatches, "destination file exists.*")

	var out bytes.Buffer
	c.Assert(extractShader(dst, "ui/text.frag", &out), qt.IsNil)
	c.Assert(out.String(), qt.Equals, "fragment code")

	out.Reset()
	c.Assert(listShaders(dst, &out), qt.IsNil)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	c.Assert(lines, qt.HasLen, 2)
	c.Assert(strings.HasPrefix(lines[0], "mesh.vert.spv\t"), qt.IsTrue)
	c.Assert(strings.HasPrefix(lines[1], "ui/text.frag.spv\t"), qt.IsTrue)
}

func TestCompressEmpty(t *testing.T) {
	c := qt.New(t)
	err := compressShaders(c.TempDir(), filepath.Join(c.TempDir(), "out.slsa"))
	c.Assert(err, qt.ErrorMatches, "no compiled shaders in .*")
}

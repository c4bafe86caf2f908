package shader_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/starlight/shader"
)

var (
	testString1 = "idunvovkjnreovmegihjbrqlkmfrjnb"
	testString2 = "idunvovkjnreovmsdvwrvnervnreegihjbrqlkmfrjnb"
)

func buildArchive(c *qt.C, entries map[string][]byte) []byte {
	b := shader.NewArchiveBuilder()
	for name, data := range entries {
		c.Assert(b.Add(name, data), qt.IsNil)
	}
	var buf bytes.Buffer
	n, err := b.WriteTo(&buf)
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, int64(buf.Len()))
	return buf.Bytes()
}

func TestCreateAndRead(t *testing.T) {
	c := qt.New(t)
	large := bytes.Repeat([]byte(testString2), 4096)
	data := buildArchive(c, map[string][]byte{
		"test.vert.spv": []byte(testString1),
		"test.frag.spv": large,
		"empty.comp":    nil,
	})
	c.Assert(string(data[:4]), qt.Equals, "SLSA")

	ar, err := shader.OpenArchive(bytes.NewReader(data))
	c.Assert(err, qt.IsNil)
	c.Assert(ar.Names(), qt.DeepEquals, []string{"empty.comp", "test.frag.spv", "test.vert.spv"})

	got, err := ar.Load("test.vert")
	c.Assert(err, qt.IsNil)
	c.Assert(string(got), qt.Equals, testString1)

	got, err = ar.Load("test.frag.spv")
	c.Assert(err, qt.IsNil)
	c.Assert(bytes.Equal(got, large), qt.IsTrue)

	got, err = ar.Load("empty.comp")
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.HasLen, 0)

	_, err = ar.Load("missing")
	c.Assert(errors.Is(err, shader.ErrNotFound), qt.IsTrue)
}

func TestConcurrentAddAndLoad(t *testing.T) {
	c := qt.New(t)
	b := shader.NewArchiveBuilder()
	names := []string{"a.vert", "b.frag", "c.comp", "d.geom", "e.tesc", "f.tese"}

	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if err := b.Add(name, []byte(strings.Repeat(name, 100))); err != nil {
				t.Error(err)
			}
		}(name)
	}
	wg.Wait()
	c.Assert(b.Len(), qt.Equals, len(names))

	var buf bytes.Buffer
	_, err := b.WriteTo(&buf)
	c.Assert(err, qt.IsNil)
	ar, err := shader.OpenArchive(bytes.NewReader(buf.Bytes()))
	c.Assert(err, qt.IsNil)

	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			got, err := ar.Load(name)
			if err != nil || string(got) != strings.Repeat(name, 100) {
				t.Errorf("Load(%q) = %d bytes, %v", name, len(got), err)
			}
		}(name)
	}
	wg.Wait()
}

func TestAddTwice(t *testing.T) {
	c := qt.New(t)
	b := shader.NewArchiveBuilder()
	c.Assert(b.Add("x.vert", []byte("1")), qt.IsNil)
	c.Assert(b.Add("x.vert", []byte("2")), qt.ErrorMatches, `shader "x.vert" added twice`)
}

func TestOpenNotAnArchive(t *testing.T) {
	c := qt.New(t)
	for _, data := range [][]byte{nil, []byte("KAR\x00"), []byte("NOPE0000000000000000")} {
		_, err := shader.OpenArchive(bytes.NewReader(data))
		c.Assert(errors.Is(err, shader.ErrFileFormat), qt.IsTrue, qt.Commentf("%q", data))
	}

	data := buildArchive(c, map[string][]byte{"a.vert": []byte("a")})
	_, err := shader.OpenArchive(bytes.NewReader(data[:20]))
	c.Assert(errors.Is(err, shader.ErrFileFormat), qt.IsTrue)
}

func TestOpenArchiveFile(t *testing.T) {
	c := qt.New(t)
	path := filepath.Join(c.TempDir(), "shaders.slsa")
	c.Assert(os.WriteFile(path, buildArchive(c, map[string][]byte{"a.vert": []byte(testString1)}), 0o644), qt.IsNil)

	ar, err := shader.OpenArchiveFile(path)
	c.Assert(err, qt.IsNil)
	defer ar.Close()

	var src shader.Source = ar
	got, err := src.Load("a.vert")
	c.Assert(err, qt.IsNil)
	c.Assert(string(got), qt.Equals, testString1)
}

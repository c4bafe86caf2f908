package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/gobuffalo/envy"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/starlight/config"
)

func writeEnv(c *qt.C, name, content string) string {
	path := filepath.Join(c.TempDir(), name)
	c.Assert(os.WriteFile(path, []byte(content), 0o644), qt.IsNil)
	return path
}

func TestDefaults(t *testing.T) {
	c := qt.New(t)
	cfg, err := config.Load(filepath.Join(c.TempDir(), "missing.env"))
	c.Assert(err, qt.IsNil)
	c.Assert(cfg, qt.DeepEquals, config.Default())
}

func TestLoadFiles(t *testing.T) {
	c := qt.New(t)
	first := writeEnv(c, "first.env", "STARLIGHT_WIDTH=800\nSTARLIGHT_VSYNC=false\n")
	second := writeEnv(c, "second.env", "STARLIGHT_WIDTH=1024\nSTARLIGHT_HEIGHT=600\nSTARLIGHT_LOG_LEVEL=debug\n")

	cfg, err := config.Load(first, second)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Window.Width, qt.Equals, uint32(800))
	c.Assert(cfg.Window.Height, qt.Equals, uint32(600))
	c.Assert(cfg.Renderer.VSync, qt.Equals, false)
	c.Assert(cfg.LogLevel, qt.Equals, log.DebugLevel)
	c.Assert(cfg.Time.FramesPerSecond, qt.Equals, 60)
}

func TestEnvironmentOverridesFiles(t *testing.T) {
	envy.Temp(func() {
		c := qt.New(t)
		envy.Set(config.KeyFPS, "0")
		envy.Set(config.KeyShaders, "assets/shaders.slsa")
		file := writeEnv(c, "app.env", "STARLIGHT_FPS=144\n")

		cfg, err := config.Load(file)
		c.Assert(err, qt.IsNil)
		c.Assert(cfg.Time.FramesPerSecond, qt.Equals, 0)
		c.Assert(cfg.Renderer.Shaders, qt.Equals, "assets/shaders.slsa")
	})
}

func TestInvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{config.KeyWidth, "wide"},
		{config.KeyHeight, "-1"},
		{config.KeySwapchainSize, "0"},
		{config.KeyVSync, "sometimes"},
		{config.KeyFPS, "fast"},
		{config.KeyFPS, "-30"},
		{config.KeyLogLevel, "loud"},
	}
	for _, test := range tests {
		t.Run(test.key+"="+test.value, func(t *testing.T) {
			c := qt.New(t)
			file := writeEnv(c, "bad.env", test.key+"="+strconv.Quote(test.value)+"\n")
			_, err := config.Load(file)

			var cerr *config.Error
			c.Assert(errors.As(err, &cerr), qt.IsTrue)
			c.Assert(cerr.Key, qt.Equals, test.key)
			c.Assert(err, qt.ErrorMatches, "config: "+test.key+"=.*")
		})
	}
}

func TestMalformedFile(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()
	_, err := config.Load(dir)
	c.Assert(err, qt.Not(qt.IsNil))
}

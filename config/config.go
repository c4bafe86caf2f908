// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config resolves the host configuration from .env files and the
// process environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/gobuffalo/envy"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Environment keys read by Load.
const (
	KeyWidth         = "STARLIGHT_WIDTH"
	KeyHeight        = "STARLIGHT_HEIGHT"
	KeySwapchainSize = "STARLIGHT_SWAPCHAIN_SIZE"
	KeyVSync         = "STARLIGHT_VSYNC"
	KeyFPS           = "STARLIGHT_FPS"
	KeyShaders       = "STARLIGHT_SHADERS"
	KeyLogLevel      = "STARLIGHT_LOG_LEVEL"
)

// Configuration is the complete host configuration.
type Configuration struct {
	Window   WindowConfiguration
	Renderer RendererConfiguration
	Time     TimeConfiguration

	LogLevel log.Level
}

// WindowConfiguration sizes the host window.
type WindowConfiguration struct {
	Title  string
	Width  uint32
	Height uint32
}

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	SwapchainSize uint32
	VSync         bool

	// Shaders is a directory or shader archive.
	Shaders string
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int
}

// Default returns the configuration used when nothing is set.
func Default() Configuration {
	return Configuration{
		Window: WindowConfiguration{
			Title:  "starlight",
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfiguration{
			SwapchainSize: 2,
			VSync:         true,
			Shaders:       "shaders",
		},
		Time: TimeConfiguration{
			FramesPerSecond: 60,
		},
		LogLevel: log.InfoLevel,
	}
}

// Error reports a key whose value could not be parsed.
type Error struct {
	Key   string
	Value string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s=%q: %v", e.Key, e.Value, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Load reads files in order, skipping the ones that do not exist, and
// resolves every key. The process environment overrides the files, and
// earlier files override later ones.
func Load(files ...string) (Configuration, error) {
	values := make(map[string]string)
	for _, file := range files {
		env, err := godotenv.Read(file)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return Configuration{}, fmt.Errorf("config: reading %s: %w", file, err)
		}
		for k, v := range env {
			if _, ok := values[k]; !ok {
				values[k] = v
			}
		}
	}
	return resolve(values)
}

func resolve(values map[string]string) (Configuration, error) {
	cfg := Default()
	get := func(key, def string) string {
		if v, ok := values[key]; ok {
			def = v
		}
		return envy.Get(key, def)
	}

	var err error
	if cfg.Window.Width, err = parseUint32(KeyWidth, get(KeyWidth, "1280")); err != nil {
		return cfg, err
	}
	if cfg.Window.Height, err = parseUint32(KeyHeight, get(KeyHeight, "720")); err != nil {
		return cfg, err
	}
	if cfg.Renderer.SwapchainSize, err = parseUint32(KeySwapchainSize, get(KeySwapchainSize, "2")); err != nil {
		return cfg, err
	}
	if cfg.Renderer.SwapchainSize == 0 {
		return cfg, &Error{Key: KeySwapchainSize, Value: "0", Err: fmt.Errorf("at least one image is needed")}
	}

	vsync := get(KeyVSync, "true")
	if cfg.Renderer.VSync, err = strconv.ParseBool(vsync); err != nil {
		return cfg, &Error{Key: KeyVSync, Value: vsync, Err: err}
	}

	fps := get(KeyFPS, "60")
	if cfg.Time.FramesPerSecond, err = strconv.Atoi(fps); err != nil {
		return cfg, &Error{Key: KeyFPS, Value: fps, Err: err}
	}
	if cfg.Time.FramesPerSecond < 0 {
		return cfg, &Error{Key: KeyFPS, Value: fps, Err: fmt.Errorf("negative frame rate")}
	}

	cfg.Renderer.Shaders = get(KeyShaders, cfg.Renderer.Shaders)

	level := get(KeyLogLevel, "info")
	if cfg.LogLevel, err = log.ParseLevel(level); err != nil {
		return cfg, &Error{Key: KeyLogLevel, Value: level, Err: err}
	}
	return cfg, nil
}

func parseUint32(key, value string) (uint32, error) {
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, &Error{Key: key, Value: value, Err: err}
	}
	return uint32(n), nil
}

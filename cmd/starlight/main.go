// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/devblok/starlight/clock"
	"github.com/devblok/starlight/config"
	"github.com/devblok/starlight/gfx"
	"github.com/devblok/starlight/gfx/renderer"
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
)

func init() {
	runtime.LockOSThread()
}

var (
	envFile = flag.String("env", ".env", "Configuration file read before the environment")
	debug   = flag.Bool("debug", false, "Name objects and mark command regions")
)

func main() {
	// Backend switches are not flags, keep them away from flag.Parse.
	var args []string
	for _, arg := range os.Args[1:] {
		switch arg {
		case gfx.FlagForceVulkan, gfx.FlagForceOpenGL, gfx.FlagForceD3D12, gfx.FlagEnableVulkanLayers:
		default:
			args = append(args, arg)
		}
	}
	flag.CommandLine.Parse(args)

	logger := log.StandardLogger()
	cfg, err := config.Load(*envFile)
	if err != nil {
		logger.WithError(err).Fatal("configuration")
	}
	logger.SetLevel(cfg.LogLevel)

	backend := gfx.ChooseBackend(os.Args[1:])
	entry := logger.WithField("backend", backend.String())

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		entry.WithError(err).Fatal("SDL initialisation")
	}
	defer sdl.Quit()

	win, err := newWindow(cfg.Window, backend)
	if err != nil {
		gfx.Fatal(entry, err)
	}
	defer win.destroy()

	r, err := renderer.Allocate(gfx.AllocInfo{
		Backend: backend,
		Args:    os.Args[1:],
		Window:  win,
		AppName: cfg.Window.Title,
		Debug:   *debug,
		Logger:  logger,
	})
	if err != nil {
		gfx.Fatal(entry, err)
	}
	if err := r.Init(); err != nil {
		gfx.Fatal(entry, err)
	}
	defer r.Destroy()

	width, height := win.DrawableSize()
	if err := r.InitSwapchain(gfx.SwapchainDesc{
		Width:      uint32(width),
		Height:     uint32(height),
		ImageCount: cfg.Renderer.SwapchainSize,
		VSync:      cfg.Renderer.VSync,
	}); err != nil {
		gfx.Fatal(entry, err)
	}

	shaders := loadShaders(r, cfg.Renderer.Shaders, entry)
	defer shaders.destroy()

	frames, err := newFrameLoop(r, uint32(width), uint32(height), entry)
	if err != nil {
		gfx.Fatal(entry, err)
	}
	defer frames.destroy()

	clk := clock.New(cfg.Time)
	defer clk.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		reportFrames(ctx, clk, entry)
	}()

	resized := false
EventLoop:
	for {
		select {
		case <-ctx.Done():
			break EventLoop
		case <-clk.FpsTicker().C:
			for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
				switch et := event.(type) {
				case *sdl.KeyboardEvent:
					if et.Keysym.Sym == sdl.K_ESCAPE {
						cancel()
						continue EventLoop
					}
				case *sdl.QuitEvent:
					cancel()
					continue EventLoop
				case *sdl.WindowEvent:
					if et.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
						resized = true
					}
				}
			}

			if resized {
				resized = false
				if err := frames.recreate(win); err != nil {
					gfx.Fatal(entry, err)
				}
			}
			if err := frames.render(clk.Frame()); err != nil {
				gfx.Fatal(entry, err)
			}
		}
	}

	wg.Wait()
	if err := r.WaitForDeviceIdle(); err != nil {
		entry.WithError(err).Error("waiting for the device on exit")
	}
	entry.WithField("frames", clk.Total()).Info("event loop exited")
}

func reportFrames(ctx context.Context, clk *clock.Clock, logger log.FieldLogger) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.WithFields(log.Fields{
				"fps":       clk.TakeFrames(),
				"cgo_calls": runtime.NumCgoCall(),
			}).Debug("frame rate")
		}
	}
}

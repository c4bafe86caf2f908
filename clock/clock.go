// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package clock paces the frame loop and counts frames.
package clock

import (
	"sync/atomic"
	"time"

	"github.com/devblok/starlight/config"
)

// Interval is the frame period for fps. Zero means unlimited, which is
// served by the shortest ticker period.
func Interval(fps int) time.Duration {
	if fps <= 0 {
		return time.Nanosecond
	}
	return time.Second / time.Duration(fps)
}

// Clock contains the frame ticker and the frame statistics.
type Clock struct {
	fps       int
	fpsTicker *time.Ticker

	frames int64
	total  int64
	last   time.Time
}

// New creates a running clock.
func New(cfg config.TimeConfiguration) *Clock {
	return &Clock{
		fps:       cfg.FramesPerSecond,
		fpsTicker: time.NewTicker(Interval(cfg.FramesPerSecond)),
		last:      time.Now(),
	}
}

// Fps gets the set frames per second
func (c *Clock) Fps() int {
	return c.fps
}

// FpsTicker gets the initialized fps ticker
func (c *Clock) FpsTicker() *time.Ticker {
	return c.fpsTicker
}

// Frame records a finished frame and returns the time since the previous
// one. It must be called from the frame loop only.
func (c *Clock) Frame() time.Duration {
	now := time.Now()
	delta := now.Sub(c.last)
	c.last = now
	atomic.AddInt64(&c.frames, 1)
	atomic.AddInt64(&c.total, 1)
	return delta
}

// TakeFrames returns the frames recorded since the previous call and resets
// the count. It can be called from any goroutine.
func (c *Clock) TakeFrames() int64 {
	return atomic.SwapInt64(&c.frames, 0)
}

// Total returns the number of frames recorded since New.
func (c *Clock) Total() int64 {
	return atomic.LoadInt64(&c.total)
}

// Stop stops the ticker.
func (c *Clock) Stop() {
	c.fpsTicker.Stop()
}

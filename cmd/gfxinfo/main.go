// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command gfxinfo prints the Vulkan physical devices as JSON.
package main

import (
	"encoding/json"
	"os"

	"github.com/devblok/starlight/gfx"
	"github.com/devblok/starlight/gfx/vkr"
	log "github.com/sirupsen/logrus"
)

func main() {
	logger := log.StandardLogger()
	logger.SetOutput(os.Stderr)

	devices, err := vkr.ListDevices(gfx.AllocInfo{
		Backend: gfx.Vulkan,
		Args:    os.Args[1:],
		AppName: "gfxinfo",
		Logger:  logger,
	})
	if err != nil {
		gfx.Fatal(logger, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(devices); err != nil {
		logger.WithError(err).Fatal("encoding devices")
	}
}

// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/devblok/starlight/shader"
	log "github.com/sirupsen/logrus"
)

var (
	extract  = flag.String("e", "", "Extract the shader given to stdout")
	compress = flag.String("c", "", "Compress the compiled shaders of the given folder")
	list     = flag.Bool("l", false, "List the shaders of the archive")
	dstFile  = flag.String("f", "out.slsa", "Archive file")
	silent   = flag.Bool("s", false, "Silent")
)

func main() {
	flag.Parse()
	if *silent {
		log.SetLevel(log.WarnLevel)
	}

	ops := 0
	for _, set := range []bool{*extract != "", *compress != "", *list} {
		if set {
			ops++
		}
	}
	if ops > 1 {
		log.Fatal("only one operation at a time")
	}

	var err error
	switch {
	case *compress != "":
		err = compressShaders(*compress, *dstFile)
	case *extract != "":
		err = extractShader(*dstFile, *extract, os.Stdout)
	case *list:
		err = listShaders(*dstFile, os.Stdout)
	default:
		flag.PrintDefaults()
		return
	}
	if err != nil {
		log.WithError(err).Fatal("shaderpack")
	}
}

func compressShaders(dir, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return errors.New("destination file exists, will not overwrite")
	}
	entries, err := shader.Scan(dir)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no compiled shaders in %s", dir)
	}

	builder := shader.NewArchiveBuilder()
	errs := make(chan error, len(entries))
	var wg sync.WaitGroup
	for _, e := range entries {
		wg.Add(1)
		go func(e shader.Entry) {
			defer wg.Done()
			data, err := os.ReadFile(e.Path)
			if err != nil {
				errs <- err
				return
			}
			rel, err := filepath.Rel(dir, e.Path)
			if err != nil {
				errs <- err
				return
			}
			if err := builder.Add(filepath.ToSlash(rel), data); err != nil {
				errs <- err
				return
			}
			log.WithFields(log.Fields{"shader": rel, "size": len(data)}).Info("added")
		}(e)
	}
	wg.Wait()
	close(errs)
	if err := <-errs; err != nil {
		return err
	}

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	n, err := builder.WriteTo(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return err
	}
	log.WithFields(log.Fields{"archive": dst, "shaders": builder.Len(), "bytes": n}).Info("archive written")
	return nil
}

func extractShader(archive, name string, w io.Writer) error {
	ar, err := shader.OpenArchiveFile(archive)
	if err != nil {
		return err
	}
	defer ar.Close()

	data, err := ar.Load(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func listShaders(archive string, w io.Writer) error {
	ar, err := shader.OpenArchiveFile(archive)
	if err != nil {
		return err
	}
	defer ar.Close()

	for _, name := range ar.Names() {
		stage, _ := shader.StageOf(name)
		fmt.Fprintf(w, "%s\t%s\n", name, stage)
	}
	return nil
}

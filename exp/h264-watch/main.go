/*
AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// h264-watch watches a directory for new .h264/.264 files and prints a
// structural summary of each as it lands, for checking capture pipelines
// as they run.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/ausocean/h264ab/codec/h264"
	"github.com/ausocean/h264ab/codec/h264/h264dec"
)

func main() {
	var dir string
	flag.StringVar(&dir, "dir", ".", "directory to watch for elementary stream files")
	flag.Parse()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Fatal(err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		log.Fatal(err)
	}
	log.Printf("watching %s", dir)

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			ext := strings.ToLower(filepath.Ext(ev.Name))
			if ext != ".h264" && ext != ".264" {
				continue
			}
			summarise(ev.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("watch error: %v", err)
		}
	}
}

func summarise(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("%s: %v", path, err)
		return
	}

	// Captures often begin mid-GOP; start at the first key frame when one
	// is present.
	if trimmed, err := h264.Trim(data); err == nil {
		data = trimmed
	}
	typ, err := h264.NALType(data)
	if err != nil {
		log.Printf("%s: %v", path, err)
		return
	}

	nalus, err := h264dec.NewDecoder().Decode(data)
	if err != nil {
		log.Printf("%s: %v", path, err)
		return
	}
	var slices, errs int
	for _, n := range nalus {
		if n.Slice != nil {
			slices++
		}
		if n.Err != nil {
			errs++
		}
	}
	fmt.Printf("%s: first NAL type %d, %d NALUs, %d slices, %d parse errors\n", path, typ, len(nalus), slices, errs)
}

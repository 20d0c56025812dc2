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

// h264parse reads an H.264 Annex-B elementary stream (or an MPEG-TS file
// containing one) and prints a per-NAL-unit summary of its structure:
// parameter set contents, slice headers and macroblock counts.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/ausocean/h264ab/codec/codecutil"
	"github.com/ausocean/h264ab/codec/h264"
	"github.com/ausocean/h264ab/codec/h264/h264dec"
	"github.com/ausocean/h264ab/container/mts"
)

func main() {
	var (
		inPath    string
		format    string
		pid       int
		verbose   bool
		streamOut string
		delay     time.Duration
	)
	flag.StringVar(&inPath, "in", "", "file path of input")
	flag.StringVar(&format, "format", codecutil.H264, "input format: h264, h264_au or mts")
	flag.IntVar(&pid, "pid", mts.VideoPid, "PID of the H.264 program when -format=mts")
	flag.BoolVar(&verbose, "v", false, "also print parser log output to stderr")
	flag.StringVar(&streamOut, "stream", "", "relex the input into paced access unit writes to this file instead of printing structure")
	flag.DurationVar(&delay, "delay", 0, "minimum delay between access unit writes with -stream")
	flag.Parse()

	if inPath == "" {
		log.Fatal("no input file; use -in")
	}
	if !codecutil.IsValid(format) {
		log.Fatalf("unknown -format %q", format)
	}
	if verbose {
		h264dec.SetLogOutput(os.Stderr)
	}

	data, err := os.ReadFile(inPath)
	if err != nil {
		log.Fatal(err)
	}
	if format == codecutil.MTS {
		data, err = mts.ExtractPES(data, pid)
		if err != nil {
			log.Fatal(err)
		}
	}

	if streamOut != "" {
		out, err := os.Create(streamOut)
		if err != nil {
			log.Fatal(err)
		}
		defer out.Close()
		err = h264.Lex(out, bytes.NewReader(data), delay)
		if err != io.EOF && err != io.ErrUnexpectedEOF {
			log.Fatal(err)
		}
		return
	}

	dec := h264dec.NewDecoder()
	nalus, err := dec.Decode(data)
	if err != nil {
		log.Fatal(err)
	}

	for i, n := range nalus {
		fmt.Printf("NALU %3d: type=%2d (%s) bytes=[%d,%d] refIdc=%d\n",
			i, n.Type, h264dec.NALUnitType[int(n.Type)], n.Start, n.End, n.RefIdc)
		switch {
		case n.Err != nil:
			fmt.Printf("  parse error: %v\n", n.Err)
		case n.SPS != nil:
			fmt.Printf("  SPS %d: profile=%d level=%d %dx%d mbs\n", n.SPS.SPSID,
				n.SPS.Profile, n.SPS.LevelIDC, n.SPS.PicWidthInMbs(), n.SPS.FrameHeightInMbs())
		case n.PPS != nil:
			fmt.Printf("  PPS %d: SPS=%d entropy=%d\n", n.PPS.ID, n.PPS.SPSID, n.PPS.EntropyCodingMode)
		case n.AUD != nil:
			fmt.Printf("  AUD: primary_pic_type=%d\n", n.AUD.PrimaryPicType)
		case n.Slice != nil:
			h := n.Slice.Header
			fmt.Printf("  slice: type=%s first_mb=%d frame_num=%d mbs=%d\n",
				h.SliceTypeName, h.FirstMbInSlice, h.FrameNum, len(n.Slice.Order))
		}
	}
}

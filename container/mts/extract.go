/*
NAME
  extract.go

DESCRIPTION
  extract.go provides functionality for pulling an H.264 elementary stream
  out of an MPEG-TS container, so that files captured as transport streams
  can be fed to the Annex-B parser without an external demuxer.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package mts provides MPEG-TS extraction utilities for obtaining an H.264
// elementary stream from a transport stream.
package mts

import (
	"errors"
	"fmt"

	"github.com/Comcast/gots/packet"
	"github.com/Comcast/gots/pes"
)

// PacketSize is the size of an MPEG-TS packet in bytes.
const PacketSize = 188

// Standard program PIDs used by this package's encodings.
const (
	PatPid   = 0
	PmtPid   = 4096
	VideoPid = 256
)

// ErrInvalidLen is returned when the given clip is not a whole number of
// MPEG-TS packets.
var ErrInvalidLen = errors.New("MTS clip is not of valid size")

// ExtractPES extracts the PES payload data carried on the given PID from
// the MPEG-TS clip p, concatenated in stream order with PES headers
// removed. For an H.264 program this yields the Annex-B elementary stream.
func ExtractPES(p []byte, pid int) ([]byte, error) {
	if len(p)%PacketSize != 0 {
		return nil, ErrInvalidLen
	}

	var (
		out      []byte
		pkt      packet.Packet
		sawStart bool
	)
	for i := 0; i < len(p); i += PacketSize {
		copy(pkt[:], p[i:i+PacketSize])
		if int(pkt.PID()) != pid {
			continue
		}
		payload, err := pkt.Payload()
		if err != nil {
			return nil, fmt.Errorf("could not extract payload: %w", err)
		}
		if pkt.PayloadUnitStartIndicator() {
			_pes, err := pes.NewPESHeader(payload)
			if err != nil {
				return nil, fmt.Errorf("could not parse PES: %w", err)
			}
			out = append(out, _pes.Data()...)
			sawStart = true
		} else if sawStart {
			// Continuation of the current PES packet; no header present.
			out = append(out, payload...)
		}
	}
	return out, nil
}

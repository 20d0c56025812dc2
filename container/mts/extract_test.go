/*
NAME
  extract_test.go

DESCRIPTION
  extract_test.go provides testing for the MPEG-TS extraction utilities in
  extract.go.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package mts

import (
	"bytes"
	"testing"
)

// tsPacket builds one MPEG-TS packet carrying payload on pid. payload must
// fill the packet exactly (184 bytes, or fewer only in tests that pad
// themselves).
func tsPacket(pid int, pusi bool, cc byte, payload []byte) []byte {
	pkt := make([]byte, PacketSize)
	pkt[0] = 0x47
	pkt[1] = byte(pid >> 8 & 0x1f)
	if pusi {
		pkt[1] |= 0x40
	}
	pkt[2] = byte(pid)
	pkt[3] = 0x10 | (cc & 0x0f) // payload only
	copy(pkt[4:], payload)
	return pkt
}

// pesPacket wraps es in a minimal video PES header (no PTS).
func pesPacket(es []byte) []byte {
	hdr := []byte{
		0x00, 0x00, 0x01, 0xe0, // start code prefix, stream_id (video)
		0x00, 0x00, // PES_packet_length = 0 (unbounded, allowed for video)
		0x80, 0x00, 0x00, // marker bits, no flags, header_data_length = 0
	}
	return append(hdr, es...)
}

func TestExtractPES(t *testing.T) {
	// Elementary stream data sized so that the PES packet fills exactly two
	// TS packets: 2*184 - 9 (PES header) = 359 bytes.
	es := make([]byte, 359)
	for i := range es {
		es[i] = byte(i)
	}
	p := pesPacket(es)

	var clip []byte
	clip = append(clip, tsPacket(VideoPid, true, 0, p[:184])...)
	clip = append(clip, tsPacket(VideoPid, false, 1, p[184:])...)
	// A packet on another PID must be ignored.
	clip = append(clip, tsPacket(VideoPid+1, true, 0, pesPacket(bytes.Repeat([]byte{0xff}, 175)))...)

	got, err := ExtractPES(clip, VideoPid)
	if err != nil {
		t.Fatalf("ExtractPES: %v", err)
	}
	if !bytes.Equal(got, es) {
		t.Fatalf("extracted %d bytes, want %d; first divergence near %x", len(got), len(es), got[:minInt(16, len(got))])
	}
}

func TestExtractPESInvalidLen(t *testing.T) {
	if _, err := ExtractPES(make([]byte, PacketSize+1), VideoPid); err != ErrInvalidLen {
		t.Fatalf("got err %v, want ErrInvalidLen", err)
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

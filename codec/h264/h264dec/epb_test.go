/*
DESCRIPTION
  epb_test.go provides testing for the emulation prevention byte codec in
  epb.go.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package h264dec

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestEncodeRBSPVectors(t *testing.T) {
	tests := []struct {
		in, want []byte
	}{
		{[]byte{0x00, 0x00, 0x00}, []byte{0x00, 0x00, 0x03, 0x00}},
		{[]byte{0x00, 0x00, 0x01}, []byte{0x00, 0x00, 0x03, 0x01}},
		{[]byte{0x00, 0x00, 0x02}, []byte{0x00, 0x00, 0x03, 0x02}},
		{[]byte{0x00, 0x00, 0x03}, []byte{0x00, 0x00, 0x03, 0x03}},
		{[]byte{0x00, 0x00, 0x04}, []byte{0x00, 0x00, 0x04}},
		{[]byte{0xff, 0x00, 0x00}, []byte{0xff, 0x00, 0x00}},
	}
	for _, tt := range tests {
		if got := EncodeRBSP(tt.in); !bytes.Equal(got, tt.want) {
			t.Errorf("EncodeRBSP(%x) = %x, want %x", tt.in, got, tt.want)
		}
	}
}

func TestDecodeRBSP(t *testing.T) {
	in := []byte{0x00, 0x00, 0x03, 0x01, 0x00, 0x00, 0x03, 0x03}
	want := []byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x03}
	if got := DecodeRBSP(in); !bytes.Equal(got, want) {
		t.Errorf("DecodeRBSP(%x) = %x, want %x", in, got, want)
	}
}

// TestRBSPRoundTrip checks decode(encode(x)) == x over random byte
// sequences biased towards zeros, and that the encoded form never contains
// 00 00 00, 00 00 01 or 00 00 02, and has 00 00 03 only as an emulation
// prevention sequence (followed by a byte no greater than 03).
func TestRBSPRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 200; trial++ {
		n := rng.Intn(64)
		x := make([]byte, n)
		for i := range x {
			// Half the bytes zero so emulation sequences are common.
			if rng.Intn(2) == 0 {
				x[i] = byte(rng.Intn(4))
			} else {
				x[i] = byte(rng.Intn(256))
			}
		}
		enc := EncodeRBSP(x)
		for i := 0; i+2 < len(enc); i++ {
			if enc[i] == 0 && enc[i+1] == 0 && enc[i+2] <= 0x02 {
				t.Fatalf("EncodeRBSP(%x) contains emulation pattern at %d: %x", x, i, enc)
			}
			if enc[i] == 0 && enc[i+1] == 0 && enc[i+2] == 0x03 && i+3 < len(enc) && enc[i+3] > 0x03 {
				t.Fatalf("EncodeRBSP(%x) contains a stray 00 00 03 at %d: %x", x, i, enc)
			}
		}
		if got := DecodeRBSP(enc); !bytes.Equal(got, x) {
			t.Fatalf("round trip failed for %x: encoded %x, decoded %x", x, enc, got)
		}
	}
}

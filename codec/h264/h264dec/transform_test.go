/*
DESCRIPTION
  transform_test.go provides testing for the per-NALU stream rewriting pass
  in transform.go.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package h264dec

import (
	"bytes"
	"crypto/sha256"
	"testing"
)

// testStream is a small Annex-B stream with a prologue byte, mixed start
// code lengths, and a trailing zero that belongs to the final NALU.
var testStream = []byte{
	0xab, // prologue
	0x00, 0x00, 0x00, 0x01, 0x09, 0x10,
	0x00, 0x00, 0x01, 0x67, 0x42, 0x00, 0x0a,
	0x00, 0x00, 0x00, 0x01, 0x65, 0x88, 0x80, 0x00,
}

func TestTransformIdentity(t *testing.T) {
	out, err := Transform(testStream, func(p []byte, _, _, _ uint8) ([]byte, error) {
		return p, nil
	})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if !bytes.Equal(out, testStream) {
		t.Fatalf("identity transform changed the stream:\nin:  %x\nout: %x", testStream, out)
	}
	if sha256.Sum256(out) != sha256.Sum256(testStream) {
		t.Fatal("identity transform changed the stream digest")
	}
}

// TestTransformLengthChange doubles one NALU's payload and checks that all
// framing bytes and other NALUs are carried through verbatim.
func TestTransformLengthChange(t *testing.T) {
	out, err := Transform(testStream, func(p []byte, _, _, typ uint8) ([]byte, error) {
		if typ == NALTypeIDRSlice {
			return append(append([]byte{}, p...), p...), nil
		}
		return p, nil
	})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	want := append(append([]byte{}, testStream...), 0x65, 0x88, 0x80, 0x00)
	if !bytes.Equal(out, want) {
		t.Fatalf("got %x, want %x", out, want)
	}

	// The rewritten stream frames to the same NALU count.
	_, ranges := Scan(out)
	if len(ranges) != 3 {
		t.Errorf("got %d ranges, want 3", len(ranges))
	}
}

func TestTransformCallbackError(t *testing.T) {
	wantErr := errUnsupported("test")
	_, err := Transform(testStream, func(p []byte, _, _, _ uint8) ([]byte, error) {
		return nil, wantErr
	})
	if err != wantErr {
		t.Fatalf("got err %v, want %v", err, wantErr)
	}
}

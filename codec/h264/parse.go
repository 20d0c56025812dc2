/*
DESCRIPTION
  parse.go provides byte-level inspection utilities for H.264 streams:
  finding the type of the first meaningful NAL unit and trimming a stream
  so that decoding can begin at a key frame. Both are thin views over the
  Annex-B framer in h264dec rather than independent start-code scanners.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h264

import (
	"errors"

	"github.com/ausocean/h264ab/codec/h264/h264dec"
)

var errNotEnoughBytes = errors.New("not enough bytes to read")

// NALType returns the NAL type of the first NAL unit in n, skipping access
// unit delimiters. The given data may hold one unit or a whole byte
// stream.
func NALType(n []byte) (int, error) {
	_, ranges := h264dec.Scan(n)
	for _, r := range ranges {
		if r.Type == h264dec.NALTypeAccessUnitDelimiter {
			continue
		}
		return int(r.Type), nil
	}
	return 0, errNotEnoughBytes
}

// Trim trims down a given byte stream of video data so that a key frame
// appears first: everything before the first sequence parameter set is
// dropped. The result begins with the last three bytes of the SPS's start
// code, which is itself a valid start code.
func Trim(n []byte) ([]byte, error) {
	_, ranges := h264dec.Scan(n)
	for _, r := range ranges {
		if r.Type == h264dec.NALTypeSPS {
			return n[r.Start-3:], nil
		}
	}
	return nil, errNotEnoughBytes
}

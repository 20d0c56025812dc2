/*
DESCRIPTION
  nalu.go provides Annex-B start-code framing and NAL unit header decoding,
  as defined in sections 7.3.1 and B.1.1 (Annex B byte stream format) of
  ITU-T H.264.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)
  mrmod <mcmoranbjr@gmail.com>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h264dec

import "github.com/pkg/errors"

// NAL unit types, as defined by Table 7-1 of ITU-T H.264.
const (
	NALTypeUnspecified0             = 0
	NALTypeNonIDRSlice              = 1
	NALTypeSliceDataPartitionA       = 2
	NALTypeSliceDataPartitionB       = 3
	NALTypeSliceDataPartitionC       = 4
	NALTypeIDRSlice                  = 5
	NALTypeSEI                       = 6
	NALTypeSPS                       = 7
	NALTypePPS                       = 8
	NALTypeAccessUnitDelimiter       = 9
	NALTypeEndOfSequence             = 10
	NALTypeEndOfStream               = 11
	NALTypeFillerData                = 12
	NALTypeSPSExtension              = 13
	NALTypePrefixNALU                = 14
	NALTypeSubsetSPS                 = 15
	NALTypeDepthParameterSet         = 16
	NALTypeSliceLayerExtRBSP         = 19
	NALTypeSliceLayerExtRBSP2        = 20
	NALTypeCodedSliceExtension3D     = 21
)

// NALUnitType maps a nal_unit_type value to its descriptive name, per Table 7-1.
var NALUnitType = map[int]string{
	0:  "Unspecified",
	1:  "Coded slice of a non-IDR picture",
	2:  "Coded slice data partition A",
	3:  "Coded slice data partition B",
	4:  "Coded slice data partition C",
	5:  "Coded slice of an IDR picture",
	6:  "Supplemental enhancement information",
	7:  "Sequence parameter set",
	8:  "Picture parameter set",
	9:  "Access unit delimiter",
	10: "End of sequence",
	11: "End of stream",
	12: "Filler data",
	13: "Sequence parameter set extension",
	14: "Prefix NAL unit",
	15: "Subset sequence parameter set",
	16: "Depth parameter set",
	19: "Coded slice of an auxiliary coded picture",
	20: "Coded slice extension",
	21: "Coded slice extension for depth view",
}

// VCL (Video Coding Layer) NAL units carry slice data; IsVCL reports whether
// typ is one of those types (1-5), per 7.4.1.2.
func IsVCL(typ uint8) bool { return typ >= 1 && typ <= 5 }

// Range identifies one NAL unit within an Annex-B byte stream: the inclusive
// byte offsets it spans (header included), whether its start code was 4
// bytes, and its decoded header fields.
type Range struct {
	Start, End        int // inclusive byte offsets into the scanned buffer
	FourByteStartCode bool
	ForbiddenZeroBit  uint8
	RefIdc            uint8
	Type              uint8
}

// Payload returns the byte range of the NALU (header included) from data.
func (r Range) Payload(data []byte) []byte { return data[r.Start : r.End+1] }

// ErrNoStartCode is returned when no Annex-B start code could be found.
var ErrNoStartCode = errors.New("h264dec: no start code found")

// Scan scans data for Annex-B start codes (00 00 01 or 00 00 00 01) and
// returns the leading bytes before the first start code (the prologue, which
// belongs to no NALU) along with a Range per NAL unit found. Trailing zero
// bytes after the last start code belong to the last NALU.
func Scan(data []byte) (prologue []byte, ranges []Range) {
	starts := findStartCodes(data)
	if len(starts) == 0 {
		return data, nil
	}
	prologue = data[:starts[0].pos]
	for i, s := range starts {
		bodyStart := s.pos + s.len
		var end int
		if i+1 < len(starts) {
			end = starts[i+1].pos - 1
		} else {
			end = len(data) - 1
		}
		if bodyStart > end {
			continue
		}
		header := data[bodyStart]
		ranges = append(ranges, Range{
			Start:             bodyStart,
			End:               end,
			FourByteStartCode: s.len == 4,
			ForbiddenZeroBit:  (header >> 7) & 0x1,
			RefIdc:            (header >> 5) & 0x3,
			Type:              header & 0x1f,
		})
	}
	return prologue, ranges
}

type startCode struct {
	pos int
	len int // 3 or 4
}

// findStartCodes locates every occurrence of 00 00 01, recording whether it
// was preceded by an extra 00 (making it a 4-byte start code).
func findStartCodes(data []byte) []startCode {
	var out []startCode
	zeros := 0
	for i, b := range data {
		if b == 0x01 && zeros >= 2 {
			four := zeros >= 3
			n := 3
			if four {
				n = 4
			}
			out = append(out, startCode{pos: i - n + 1, len: n})
			zeros = 0
			continue
		}
		if b == 0x00 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return out
}

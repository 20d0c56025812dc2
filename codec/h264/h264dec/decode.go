/*
DESCRIPTION
  decode.go ties the framer, EPB codec and RBSP parsers together into a
  stream-level decoder: NAL units are framed out of an Annex-B byte stream,
  their payloads unescaped, and then dispatched by nal_unit_type to the
  AUD, SPS, PPS and slice parsers. Parameter sets are installed into the
  decoder as they arrive and referenced by the slices that follow.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package h264dec

import (
	"github.com/ausocean/h264ab/codec/h264/h264dec/bits"
)

// NALU is one decoded NAL unit: its framing information, unescaped payload,
// and at most one of the payload records below depending on Type. Parse
// failures are recorded in Err; a NALU with a non-nil Err was framed
// correctly but its RBSP could not be (fully) decoded.
type NALU struct {
	Range
	RBSP []byte

	AUD   *AUD
	SPS   *SPS
	PPS   *PPS
	Slice *Slice

	Err error
}

// Decoder accumulates the parameter sets of an Annex-B stream and decodes
// the NAL units that reference them. Parameter sets survive slice parse
// failures: a malformed slice aborts only its own NALU.
type Decoder struct {
	sps map[int]*SPS
	pps map[int]*PPS
}

// NewDecoder returns a Decoder with no installed parameter sets.
func NewDecoder() *Decoder {
	return &Decoder{sps: make(map[int]*SPS), pps: make(map[int]*PPS)}
}

// SPS returns the installed SPS with the given id, or nil.
func (d *Decoder) SPS(id int) *SPS { return d.sps[id] }

// PPS returns the installed PPS with the given id, or nil.
func (d *Decoder) PPS(id int) *PPS { return d.pps[id] }

// Decode frames data (an Annex-B byte stream) into NAL units and parses
// each recognised RBSP. The returned slice preserves stream order; per-NALU
// parse failures are recorded on the NALU rather than aborting the pass.
func (d *Decoder) Decode(data []byte) ([]NALU, error) {
	_, ranges := Scan(data)
	if len(ranges) == 0 {
		return nil, ErrNoStartCode
	}
	nalus := make([]NALU, 0, len(ranges))
	for _, rng := range ranges {
		nalus = append(nalus, d.decodeNALU(data, rng))
	}
	return nalus, nil
}

// decodeNALU unescapes and parses a single framed NAL unit.
func (d *Decoder) decodeNALU(data []byte, rng Range) NALU {
	n := NALU{Range: rng}
	// Strip the one-byte header before unescaping; the header itself cannot
	// contain an emulation prevention sequence.
	n.RBSP = DecodeRBSP(rng.Payload(data)[1:])
	r := bits.NewCursor(n.RBSP)

	switch rng.Type {
	case NALTypeAccessUnitDelimiter:
		n.AUD, n.Err = NewAUD(r)
	case NALTypeSPS:
		n.SPS, n.Err = NewSPS(r)
		if n.Err == nil {
			d.sps[int(n.SPS.SPSID)] = n.SPS
			logger.Printf("installed SPS %d (profile %d, level %d)", n.SPS.SPSID, n.SPS.Profile, n.SPS.LevelIDC)
		}
	case NALTypePPS:
		n.PPS, n.Err = NewPPS(r)
		if n.Err == nil {
			d.pps[n.PPS.ID] = n.PPS
			logger.Printf("installed PPS %d (SPS %d)", n.PPS.ID, n.PPS.SPSID)
		}
	case NALTypeNonIDRSlice, NALTypeIDRSlice:
		n.Slice, n.Err = d.ParseSlice(n.RBSP, rng.Type, rng.RefIdc)
	}
	return n
}

// ParseSlice parses one VCL slice RBSP against the decoder's installed
// parameter sets: the slice header first, then slice data down to
// macroblock residual levels. On error the partially decoded Slice is
// returned alongside it.
func (d *Decoder) ParseSlice(rbsp []byte, nalType, nalRefIdc uint8) (*Slice, error) {
	s := &Slice{
		IsIDR:       nalType == NALTypeIDRSlice,
		State:       SliceHeaderPending,
		Macroblocks: make(map[int]*Macroblock),
	}

	// The PPS (and through it the SPS) in effect is identified by the
	// third syntax element of the header; peek it before the real parse.
	peek := bits.NewCursor(rbsp)
	if _, err := peek.UE(); err != nil { // first_mb_in_slice
		return s, err
	}
	if _, err := peek.UE(); err != nil { // slice_type
		return s, err
	}
	ppsID, err := peek.UE()
	if err != nil {
		return s, err
	}
	pps := d.pps[int(ppsID)]
	if pps == nil {
		return s, &MissingParameterSetError{Kind: "PPS", ID: int(ppsID)}
	}
	sps := d.sps[pps.SPSID]
	if sps == nil {
		return s, &MissingParameterSetError{Kind: "SPS", ID: pps.SPSID}
	}

	r := bits.NewCursor(rbsp)
	s.Header, err = NewSliceHeader(r, sps, pps, nalType, nalRefIdc)
	if err != nil {
		return s, err
	}
	s.State = SliceHeaderParsed

	if err := decodeSliceData(r, sps, pps, s.Header, s); err != nil {
		return s, err
	}
	return s, nil
}

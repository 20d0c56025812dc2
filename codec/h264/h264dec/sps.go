/*
DESCRIPTION
  sps.go parses the sequence parameter set RBSP (clause 7.3.2.1.1). Scaling
  matrices and VUI parameters are deliberately not decoded: this package
  only needs the geometry and entropy-mode fields required to decode slice
  data, so a sequence that sets seq_scaling_matrix_present_flag is reported
  as unsupported rather than silently mis-parsed.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h264dec

import (
	"github.com/ausocean/h264ab/codec/h264/h264dec/bits"
)

// profiles that carry the extended chroma_format_idc/bit_depth/scaling
// fields per clause 7.3.2.1.1's profile_idc condition.
var extendedChromaProfiles = []int{100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134, 135}

// isInList reports whether term is present in l.
func isInList(l []int, term int) bool {
	for _, v := range l {
		if v == term {
			return true
		}
	}
	return false
}

// SPS describes a sequence parameter set as defined by clause 7.3.2.1.1.
type SPS struct {
	Profile, LevelIDC uint8

	Constraint0 bool
	Constraint1 bool
	Constraint2 bool
	Constraint3 bool
	Constraint4 bool
	Constraint5 bool

	SPSID uint64

	ChromaFormatIDC        uint64
	SeparateColorPlaneFlag bool
	BitDepthLumaMinus8     uint64
	BitDepthChromaMinus8   uint64

	QPPrimeYZeroTransformBypassFlag bool
	SeqScalingMatrixPresentFlag     bool

	Log2MaxFrameNumMinus4 uint64

	PicOrderCntType                   uint64
	Log2MaxPicOrderCntLsbMinus4       uint64
	DeltaPicOrderAlwaysZeroFlag       bool
	OffsetForNonRefPic                int
	OffsetForTopToBottomField         int
	NumRefFramesInPicOrderCntCycle    uint64
	OffsetForRefFrame                 []int

	MaxNumRefFrames               uint64
	GapsInFrameNumValueAllowed    bool
	PicWidthInMbsMinus1           uint64
	PicHeightInMapUnitsMinus1     uint64
	FrameMbsOnlyFlag              bool
	MbAdaptiveFrameFieldFlag      bool
	Direct8x8InferenceFlag        bool

	FrameCroppingFlag    bool
	FrameCropLeftOffset  uint64
	FrameCropRightOffset uint64
	FrameCropTopOffset   uint64
	FrameCropBottomOffset uint64

	VUIParametersPresentFlag bool
}

// ChromaArrayType returns ChromaFormatIDC, or 0 when separate colour planes
// are coded, per clause 7.4.2.1.1's ChromaArrayType derivation.
func (s *SPS) ChromaArrayType() uint64 {
	if s.SeparateColorPlaneFlag {
		return 0
	}
	return s.ChromaFormatIDC
}

// NewSPS parses a sequence parameter set RBSP from r.
func NewSPS(r *bits.Cursor) (*SPS, error) {
	sps := &SPS{ChromaFormatIDC: 1}
	f := newFieldReader(r)

	sps.Profile = uint8(f.readBits(8))
	sps.Constraint0 = f.readFlag()
	sps.Constraint1 = f.readFlag()
	sps.Constraint2 = f.readFlag()
	sps.Constraint3 = f.readFlag()
	sps.Constraint4 = f.readFlag()
	sps.Constraint5 = f.readFlag()
	if f.readBits(2) != 0 && f.err() == nil { // reserved_zero_2bits
		return nil, errInvalidValue("reserved_zero_2bits")
	}
	sps.LevelIDC = uint8(f.readBits(8))
	sps.SPSID = f.readUe()

	if isInList(extendedChromaProfiles, int(sps.Profile)) {
		sps.ChromaFormatIDC = f.readUe()
		if sps.ChromaFormatIDC == 3 {
			sps.SeparateColorPlaneFlag = f.readFlag()
		}
		sps.BitDepthLumaMinus8 = f.readUe()
		sps.BitDepthChromaMinus8 = f.readUe()
		sps.QPPrimeYZeroTransformBypassFlag = f.readFlag()
		sps.SeqScalingMatrixPresentFlag = f.readFlag()
		if sps.SeqScalingMatrixPresentFlag {
			return nil, errUnsupported("seq_scaling_matrix_present_flag")
		}
	}

	sps.Log2MaxFrameNumMinus4 = f.readUe()
	sps.PicOrderCntType = f.readUe()
	switch sps.PicOrderCntType {
	case 0:
		sps.Log2MaxPicOrderCntLsbMinus4 = f.readUe()
	case 1:
		sps.DeltaPicOrderAlwaysZeroFlag = f.readFlag()
		sps.OffsetForNonRefPic = f.readSe()
		sps.OffsetForTopToBottomField = f.readSe()
		sps.NumRefFramesInPicOrderCntCycle = f.readUe()
		sps.OffsetForRefFrame = make([]int, sps.NumRefFramesInPicOrderCntCycle)
		for i := range sps.OffsetForRefFrame {
			sps.OffsetForRefFrame[i] = f.readSe()
		}
	}

	sps.MaxNumRefFrames = f.readUe()
	sps.GapsInFrameNumValueAllowed = f.readFlag()
	sps.PicWidthInMbsMinus1 = f.readUe()
	sps.PicHeightInMapUnitsMinus1 = f.readUe()
	sps.FrameMbsOnlyFlag = f.readFlag()
	if !sps.FrameMbsOnlyFlag {
		sps.MbAdaptiveFrameFieldFlag = f.readFlag()
	}
	sps.Direct8x8InferenceFlag = f.readFlag()

	sps.FrameCroppingFlag = f.readFlag()
	if sps.FrameCroppingFlag {
		sps.FrameCropLeftOffset = f.readUe()
		sps.FrameCropRightOffset = f.readUe()
		sps.FrameCropTopOffset = f.readUe()
		sps.FrameCropBottomOffset = f.readUe()
	}

	sps.VUIParametersPresentFlag = f.readFlag()
	if err := f.err(); err != nil {
		return nil, err
	}
	// VUI parameters, if present, are intentionally not parsed; callers only
	// need the fields above to decode slice data.
	return sps, nil
}

// PicWidthInMbs returns the picture width in macroblock units, clause
// 7.4.2.1.1.
func (s *SPS) PicWidthInMbs() int { return int(s.PicWidthInMbsMinus1) + 1 }

// FrameHeightInMbs returns FrameHeightInMbs per clause 7.4.2.1.1.
func (s *SPS) FrameHeightInMbs() int {
	m := 1
	if !s.FrameMbsOnlyFlag {
		m = 2
	}
	return m * (int(s.PicHeightInMapUnitsMinus1) + 1)
}

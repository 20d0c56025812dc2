/*
DESCRIPTION
  pps.go parses the picture parameter set RBSP (clause 7.3.2.2). As with
  sps.go, picture-level scaling matrices are not decoded; a stream that
  sets pic_scaling_matrix_present_flag is reported unsupported.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package h264dec

import (
	"math"

	"github.com/ausocean/h264ab/codec/h264/h264dec/bits"
)

// PPS describes a picture parameter set as defined by clause 7.3.2.2.
type PPS struct {
	ID, SPSID                         int
	EntropyCodingMode                 int
	BottomFieldPicOrderInFramePresent bool
	NumSliceGroupsMinus1              int
	SliceGroupMapType                 int
	RunLengthMinus1                   []int
	TopLeft                           []int
	BottomRight                       []int
	SliceGroupChangeDirection         bool
	SliceGroupChangeRateMinus1        int
	PicSizeInMapUnitsMinus1           int
	SliceGroupId                      []int
	NumRefIdxL0DefaultActiveMinus1    int
	NumRefIdxL1DefaultActiveMinus1    int
	WeightedPred                      bool
	WeightedBipred                    int
	PicInitQpMinus26                  int
	PicInitQsMinus26                  int
	ChromaQpIndexOffset               int
	DeblockingFilterControlPresent    bool
	ConstrainedIntraPred              bool
	RedundantPicCntPresent            bool
	Transform8x8Mode                  int
	PicScalingMatrixPresent           bool
	SecondChromaQpIndexOffset         int
}

// NewPPS parses a picture parameter set RBSP from r.
func NewPPS(r *bits.Cursor) (*PPS, error) {
	pps := &PPS{}
	f := newFieldReader(r)

	pps.ID = int(f.readUe())
	pps.SPSID = int(f.readUe())
	pps.EntropyCodingMode = int(f.readBits(1))
	pps.BottomFieldPicOrderInFramePresent = f.readFlag()
	pps.NumSliceGroupsMinus1 = int(f.readUe())

	if pps.NumSliceGroupsMinus1 > 0 {
		pps.SliceGroupMapType = int(f.readUe())

		switch {
		case pps.SliceGroupMapType == 0:
			pps.RunLengthMinus1 = make([]int, pps.NumSliceGroupsMinus1+1)
			for i := range pps.RunLengthMinus1 {
				pps.RunLengthMinus1[i] = int(f.readUe())
			}
		case pps.SliceGroupMapType == 2:
			pps.TopLeft = make([]int, pps.NumSliceGroupsMinus1)
			pps.BottomRight = make([]int, pps.NumSliceGroupsMinus1)
			for i := range pps.TopLeft {
				pps.TopLeft[i] = int(f.readUe())
				pps.BottomRight[i] = int(f.readUe())
			}
		case pps.SliceGroupMapType > 2 && pps.SliceGroupMapType < 6:
			pps.SliceGroupChangeDirection = f.readFlag()
			pps.SliceGroupChangeRateMinus1 = int(f.readUe())
		case pps.SliceGroupMapType == 6:
			// slice_group_id entries are ceil(log2(num_slice_groups_minus1+1))
			// bits wide, clause 7.4.2.2.
			pps.PicSizeInMapUnitsMinus1 = int(f.readUe())
			bitWidth := int(math.Ceil(math.Log2(float64(pps.NumSliceGroupsMinus1 + 1))))
			pps.SliceGroupId = make([]int, pps.PicSizeInMapUnitsMinus1+1)
			for i := range pps.SliceGroupId {
				pps.SliceGroupId[i] = int(f.readBits(bitWidth))
			}
		}
	}

	pps.NumRefIdxL0DefaultActiveMinus1 = int(f.readUe())
	pps.NumRefIdxL1DefaultActiveMinus1 = int(f.readUe())
	pps.WeightedPred = f.readFlag()
	pps.WeightedBipred = int(f.readBits(2))
	pps.PicInitQpMinus26 = f.readSe()
	pps.PicInitQsMinus26 = f.readSe()
	pps.ChromaQpIndexOffset = f.readSe()
	pps.DeblockingFilterControlPresent = f.readFlag()
	pps.ConstrainedIntraPred = f.readFlag()
	pps.RedundantPicCntPresent = f.readFlag()

	if err := f.err(); err != nil {
		return nil, err
	}

	if r.MoreRBSPData() {
		pps.Transform8x8Mode = int(f.readBits(1))
		pps.PicScalingMatrixPresent = f.readFlag()
		if pps.PicScalingMatrixPresent {
			return nil, errUnsupported("pic_scaling_matrix_present_flag")
		}
		pps.SecondChromaQpIndexOffset = f.readSe()
		if err := f.err(); err != nil {
			return nil, err
		}
	}

	stop := f.readBits(1)
	if err := f.err(); err != nil {
		return nil, err
	}
	if stop != 1 {
		return nil, errInvalidValue("rbsp_stop_one_bit")
	}
	for !r.ByteAligned() {
		b := f.readBits(1)
		if err := f.err(); err != nil {
			return nil, err
		}
		if b != 0 {
			return nil, errInvalidValue("rbsp_alignment_zero_bit")
		}
	}
	return pps, nil
}

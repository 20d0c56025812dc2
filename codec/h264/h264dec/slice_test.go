/*
DESCRIPTION
  slice_test.go provides testing for parsing functionality found in
  slice.go.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>
  Shawn Smith <shawn@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h264dec

import (
	"testing"

	"github.com/ausocean/h264ab/codec/h264/h264dec/bits"
)

func TestPicWidthHeightInMbs(t *testing.T) {
	sps := &SPS{PicWidthInMbsMinus1: 19, PicHeightInMapUnitsMinus1: 10, FrameMbsOnlyFlag: true}
	if got := picWidthInMbs(sps); got != 20 {
		t.Errorf("picWidthInMbs = %d, want 20", got)
	}
	h := &SliceHeader{}
	if got := picHeightInMbs(sps, h); got != 11 {
		t.Errorf("picHeightInMbs = %d, want 11", got)
	}
}

func TestBlockIdxXYRoundTrip(t *testing.T) {
	for i := 0; i < 16; i++ {
		x, y := xyFromBlockIdx(i)
		if got := blockIdxFromXY(x, y); got != i {
			t.Errorf("blockIdxFromXY(xyFromBlockIdx(%d)) = %d, want %d", i, got, i)
		}
	}
}

func TestNewSliceHeaderIFrame(t *testing.T) {
	sps := &SPS{Log2MaxFrameNumMinus4: 0, PicOrderCntType: 2, FrameMbsOnlyFlag: true, ChromaFormatIDC: 1}
	pps := &PPS{ID: 0, SPSID: 0}

	bin := "1" + // ue(v) first_mb_in_slice = 0
		"011" + // ue(v) slice_type = 2 (I)
		"1" + // ue(v) pic_parameter_set_id = 0
		"0000" + // u(4) frame_num = 0
		"1" + // ue(v) idr_pic_id = 0
		"00" + // no_output_of_prior_pics_flag, long_term_reference_flag
		"1" // se(v) slice_qp_delta = 0

	b, err := binToSlice(bin)
	if err != nil {
		t.Fatalf("binToSlice: %v", err)
	}
	c := bits.NewCursor(b)
	h, err := NewSliceHeader(c, sps, pps, NALTypeIDRSlice, 1)
	if err != nil {
		t.Fatalf("NewSliceHeader: %v", err)
	}
	if h.FirstMbInSlice != 0 {
		t.Errorf("FirstMbInSlice = %d, want 0", h.FirstMbInSlice)
	}
	if h.PPSID != 0 {
		t.Errorf("PPSID = %d, want 0", h.PPSID)
	}
}

// nCState builds a decodeState over a picWidth-wide picture with the given
// already-decoded macroblocks.
func nCState(picWidth int, mbs map[int]*Macroblock) *decodeState {
	return &decodeState{
		geom: sliceGeom{PicWidthInMbs: picWidth, MbHeightC: 8},
		mbs:  mbs,
	}
}

// TestNCForLuma4x4Availability checks clause 9.2.1's availability rules:
// no neighbours gives 0, one gives that neighbour's count, two give the
// rounded mean.
func TestNCForLuma4x4Availability(t *testing.T) {
	left := &Macroblock{Addr: 0}
	for i := range left.TotalCoeff {
		left.TotalCoeff[i] = 3
	}
	top := &Macroblock{Addr: 1}
	for i := range top.TotalCoeff {
		top.TotalCoeff[i] = 6
	}

	// Current macroblock at address 3 in a 2-wide picture: A is addr 2, B is
	// addr 1.
	tests := []struct {
		name string
		mbs  map[int]*Macroblock
		want int
	}{
		{"neither", map[int]*Macroblock{}, 0},
		{"left only", map[int]*Macroblock{2: left}, 3},
		{"top only", map[int]*Macroblock{1: top}, 6},
		{"both", map[int]*Macroblock{2: left, 1: top}, (3 + 6 + 1) >> 1},
	}
	for _, tt := range tests {
		d := nCState(2, tt.mbs)
		got, err := d.nCForLuma4x4(3, 0) // block 0: both neighbours cross MB edges
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: nC = %d, want %d", tt.name, got, tt.want)
		}
	}
}

// TestNCForLuma4x4SpecialMacroblocks checks the skip and I_PCM neighbour
// contributions of clause 9.2.1.
func TestNCForLuma4x4SpecialMacroblocks(t *testing.T) {
	skip := &Macroblock{Addr: 2, Skipped: true}
	skip.TotalCoeff[5] = 9 // must be ignored for skipped macroblocks
	pcm := &Macroblock{Addr: 1, PCM: true}

	d := nCState(2, map[int]*Macroblock{2: skip, 1: pcm})
	got, err := d.nCForLuma4x4(3, 0)
	if err != nil {
		t.Fatalf("nCForLuma4x4: %v", err)
	}
	if want := (0 + 16 + 1) >> 1; got != want {
		t.Errorf("nC = %d, want %d", got, want)
	}
}

// TestNCForLuma4x4InMacroblock checks in-macroblock neighbour lookup: for
// block 3 both neighbours are earlier blocks of the same macroblock.
func TestNCForLuma4x4InMacroblock(t *testing.T) {
	cur := &Macroblock{Addr: 0}
	cur.TotalCoeff[blockIdxFromXY(0, 1)] = 4 // left of block (1,1)
	cur.TotalCoeff[blockIdxFromXY(1, 0)] = 2 // above block (1,1)

	d := nCState(2, map[int]*Macroblock{0: cur})
	got, err := d.nCForLuma4x4(0, blockIdxFromXY(1, 1))
	if err != nil {
		t.Fatalf("nCForLuma4x4: %v", err)
	}
	if want := (4 + 2 + 1) >> 1; got != want {
		t.Errorf("nC = %d, want %d", got, want)
	}
}

func TestNCForChromaAC(t *testing.T) {
	left := &Macroblock{Addr: 2}
	left.ChromaTotalCoeff[0][1] = 5 // rightmost column, top row
	top := &Macroblock{Addr: 1}
	top.ChromaTotalCoeff[0][2] = 3 // bottom row (4:2:0), left column

	d := nCState(2, map[int]*Macroblock{2: left, 1: top})
	got, err := d.nCForChromaAC(3, 0, 0)
	if err != nil {
		t.Fatalf("nCForChromaAC: %v", err)
	}
	if want := (5 + 3 + 1) >> 1; got != want {
		t.Errorf("nC = %d, want %d", got, want)
	}
}

func TestNewSliceHeaderMissingPPS(t *testing.T) {
	sps := &SPS{FrameMbsOnlyFlag: true}
	pps := &PPS{ID: 1}
	bin := "1" + "011" + "1" // first_mb_in_slice=0, slice_type=2 (I), pic_parameter_set_id=0 (mismatches pps.ID=1)
	b, err := binToSlice(bin)
	if err != nil {
		t.Fatalf("binToSlice: %v", err)
	}
	c := bits.NewCursor(b)
	_, err = NewSliceHeader(c, sps, pps, NALTypeIDRSlice, 1)
	if _, ok := err.(*MissingParameterSetError); !ok {
		t.Fatalf("got error %v (%T), want *MissingParameterSetError", err, err)
	}
}

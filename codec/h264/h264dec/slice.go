/*
DESCRIPTION
  slice.go parses slice headers (clause 7.3.3) and slice data (clause
  7.3.4), driving the macroblock loop down to CAVLC residual blocks
  (clauses 7.3.5, 7.3.5.3, 9.2). CABAC (entropy_coding_mode_flag == 1) and
  slice group map types other than 0 are reported unsupported rather than
  guessed at.

  Pixel reconstruction (intra prediction, motion compensation, the inverse
  transform) is out of scope: macroblock_layer() is walked far enough to
  consume every syntax element correctly and to hand each residual block's
  decoded coefficient levels to the caller, which is what a bitstream
  parser needs to do; it does not produce sample values.

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

// sliceTypeMap maps the slice_type value (which repeats with +5 for
// redundant coding) to its name, Table 7-6.
var sliceTypeMap = map[uint64]string{
	0: "P", 1: "B", 2: "I", 3: "SP", 4: "SI",
	5: "P", 6: "B", 7: "I", 8: "SP", 9: "SI",
}

// RefPicListMod is one entry of ref_pic_list_modification(), clause
// 7.3.3.1: a modification_of_pic_nums_idc and its operand
// (abs_diff_pic_num_minus1 for idc 0/1, long_term_pic_num for idc 2).
type RefPicListMod struct {
	Idc   uint64
	Value uint64
}

// WeightEntry is one reference picture's explicit weights from
// pred_weight_table(), clause 7.3.3.2.
type WeightEntry struct {
	LumaFlag               bool
	LumaWeight, LumaOffset int
	ChromaFlag             bool
	ChromaWeight           [2]int
	ChromaOffset           [2]int
}

// PredWeightTable holds pred_weight_table(), clause 7.3.3.2.
type PredWeightTable struct {
	LumaLog2WeightDenom   uint64
	ChromaLog2WeightDenom uint64
	L0, L1                []WeightEntry
}

// DecRefPicMarkingOp is one memory_management_control_operation of
// dec_ref_pic_marking(), clause 7.3.3.3, with its operands (op 3 carries
// two).
type DecRefPicMarkingOp struct {
	Op         uint64
	Val1, Val2 uint64
}

// SliceHeader describes the fields of slice_header(), clause 7.3.3.
type SliceHeader struct {
	FirstMbInSlice int
	SliceType      uint64
	SliceTypeName  string
	PPSID          int
	ColorPlaneID   int
	FrameNum       int

	FieldPic    bool
	BottomField bool

	IDRPicID int

	PicOrderCntLsb         int
	DeltaPicOrderCntBottom int
	DeltaPicOrderCnt       [2]int

	RedundantPicCnt int

	DirectSpatialMvPred bool

	NumRefIdxActiveOverride bool
	NumRefIdxL0ActiveMinus1 int
	NumRefIdxL1ActiveMinus1 int

	RefPicListModL0 []RefPicListMod
	RefPicListModL1 []RefPicListMod

	Weights *PredWeightTable

	NoOutputOfPriorPics bool
	LongTermReference   bool
	AdaptiveRefPicMarking bool
	MemManagementOps      []DecRefPicMarkingOp

	SliceQpDelta               int
	SpForSwitch                bool
	SliceQsDelta               int
	DisableDeblockingFilterIdc int
	SliceAlphaC0OffsetDiv2     int
	SliceBetaOffsetDiv2        int

	SliceGroupChangeCycle int
}

func (h *SliceHeader) isB() bool  { return h.SliceTypeName == "B" }
func (h *SliceHeader) isP() bool  { return h.SliceTypeName == "P" }
func (h *SliceHeader) isI() bool  { return h.SliceTypeName == "I" }
func (h *SliceHeader) isSI() bool { return h.SliceTypeName == "SI" }
func (h *SliceHeader) isSP() bool { return h.SliceTypeName == "SP" }

// readRefPicListModification consumes one list's worth of
// ref_pic_list_modification() entries, clause 7.3.3.1: (idc, operand)
// pairs terminated by idc == 3, which carries no operand.
func readRefPicListModification(f *fieldReader) []RefPicListMod {
	if !f.readFlag() {
		return nil
	}
	var mods []RefPicListMod
	for {
		idc := f.readUe()
		if idc == 3 || f.err() != nil {
			return mods
		}
		// abs_diff_pic_num_minus1 for idc 0/1, long_term_pic_num for 2.
		mods = append(mods, RefPicListMod{Idc: idc, Value: f.readUe()})
	}
}

// readPredWeightTable consumes pred_weight_table(), clause 7.3.3.2.
func readPredWeightTable(f *fieldReader, chromaArrayType uint64, h *SliceHeader) *PredWeightTable {
	w := &PredWeightTable{}
	w.LumaLog2WeightDenom = f.readUe()
	if chromaArrayType != 0 {
		w.ChromaLog2WeightDenom = f.readUe()
	}
	readList := func(n int) []WeightEntry {
		entries := make([]WeightEntry, n)
		for i := range entries {
			e := &entries[i]
			e.LumaFlag = f.readFlag()
			if e.LumaFlag {
				e.LumaWeight = f.readSe()
				e.LumaOffset = f.readSe()
			}
			if chromaArrayType != 0 {
				e.ChromaFlag = f.readFlag()
				if e.ChromaFlag {
					for c := 0; c < 2; c++ {
						e.ChromaWeight[c] = f.readSe()
						e.ChromaOffset[c] = f.readSe()
					}
				}
			}
		}
		return entries
	}
	w.L0 = readList(h.NumRefIdxL0ActiveMinus1 + 1)
	if h.isB() {
		w.L1 = readList(h.NumRefIdxL1ActiveMinus1 + 1)
	}
	return w
}

// readDecRefPicMarking consumes dec_ref_pic_marking(), clause 7.3.3.3,
// recording the marking commands on h.
func readDecRefPicMarking(f *fieldReader, idrPicFlag bool, h *SliceHeader) {
	if idrPicFlag {
		h.NoOutputOfPriorPics = f.readFlag()
		h.LongTermReference = f.readFlag()
		return
	}
	h.AdaptiveRefPicMarking = f.readFlag()
	if !h.AdaptiveRefPicMarking {
		return
	}
	for {
		op := DecRefPicMarkingOp{Op: f.readUe()}
		if op.Op == 0 || f.err() != nil {
			return
		}
		switch op.Op {
		case 1, 2, 4, 6:
			op.Val1 = f.readUe()
		case 3:
			op.Val1 = f.readUe()
			op.Val2 = f.readUe()
		}
		h.MemManagementOps = append(h.MemManagementOps, op)
	}
}

// NewSliceHeader parses slice_header() from r, using sps/pps to resolve
// conditional fields. nalType and nalRefIdc come from the enclosing NAL
// unit header.
func NewSliceHeader(r *bits.Cursor, sps *SPS, pps *PPS, nalType uint8, nalRefIdc uint8) (*SliceHeader, error) {
	h := &SliceHeader{}
	f := newFieldReader(r)

	h.FirstMbInSlice = int(f.readUe())
	h.SliceType = f.readUe()
	h.SliceTypeName = sliceTypeMap[h.SliceType%5]
	h.PPSID = int(f.readUe())
	if pps == nil || pps.ID != h.PPSID {
		return nil, &MissingParameterSetError{Kind: "PPS", ID: h.PPSID}
	}
	if sps.SeparateColorPlaneFlag {
		h.ColorPlaneID = int(f.readBits(2))
	}

	h.FrameNum = int(f.readBits(int(sps.Log2MaxFrameNumMinus4 + 4)))

	if !sps.FrameMbsOnlyFlag {
		h.FieldPic = f.readFlag()
		if h.FieldPic {
			h.BottomField = f.readFlag()
		}
	}

	idrPicFlag := nalType == NALTypeIDRSlice
	if idrPicFlag {
		h.IDRPicID = int(f.readUe())
	}

	if sps.PicOrderCntType == 0 {
		h.PicOrderCntLsb = int(f.readBits(int(sps.Log2MaxPicOrderCntLsbMinus4 + 4)))
		if pps.BottomFieldPicOrderInFramePresent && !h.FieldPic {
			h.DeltaPicOrderCntBottom = f.readSe()
		}
	} else if sps.PicOrderCntType == 1 && !sps.DeltaPicOrderAlwaysZeroFlag {
		h.DeltaPicOrderCnt[0] = f.readSe()
		if pps.BottomFieldPicOrderInFramePresent && !h.FieldPic {
			h.DeltaPicOrderCnt[1] = f.readSe()
		}
	}

	if pps.RedundantPicCntPresent {
		h.RedundantPicCnt = int(f.readUe())
	}

	if h.isB() {
		h.DirectSpatialMvPred = f.readFlag()
	}

	chromaArrayType := sps.ChromaArrayType()

	if h.isP() || h.isSP() || h.isB() {
		h.NumRefIdxActiveOverride = f.readFlag()
		if h.NumRefIdxActiveOverride {
			h.NumRefIdxL0ActiveMinus1 = int(f.readUe())
			if h.isB() {
				h.NumRefIdxL1ActiveMinus1 = int(f.readUe())
			}
		} else {
			h.NumRefIdxL0ActiveMinus1 = pps.NumRefIdxL0DefaultActiveMinus1
			h.NumRefIdxL1ActiveMinus1 = pps.NumRefIdxL1DefaultActiveMinus1
		}
	}

	if nalType == NALTypeSliceLayerExtRBSP || nalType == NALTypeSliceLayerExtRBSP2 {
		return nil, errUnsupported("MVC/3D-AVC ref_pic_list_mvc_modification")
	}
	if h.isP() || h.isSP() || h.isB() {
		h.RefPicListModL0 = readRefPicListModification(&f)
	}
	if h.isB() {
		h.RefPicListModL1 = readRefPicListModification(&f)
	}

	if (pps.WeightedPred && (h.isP() || h.isSP())) || (pps.WeightedBipred == 1 && h.isB()) {
		h.Weights = readPredWeightTable(&f, chromaArrayType, h)
	}

	if nalRefIdc != 0 {
		readDecRefPicMarking(&f, idrPicFlag, h)
	}

	h.SliceQpDelta = f.readSe()
	if h.isSP() || h.isSI() {
		if h.isSP() {
			h.SpForSwitch = f.readFlag()
		}
		h.SliceQsDelta = f.readSe()
	}

	if pps.DeblockingFilterControlPresent {
		h.DisableDeblockingFilterIdc = int(f.readUe())
		if h.DisableDeblockingFilterIdc != 1 {
			h.SliceAlphaC0OffsetDiv2 = f.readSe()
			h.SliceBetaOffsetDiv2 = f.readSe()
		}
	}

	if pps.NumSliceGroupsMinus1 > 0 && pps.SliceGroupMapType >= 3 && pps.SliceGroupMapType <= 5 {
		picSizeInMapUnits := sps.PicWidthInMbs() * (int(sps.PicHeightInMapUnitsMinus1) + 1)
		rate := pps.SliceGroupChangeRateMinus1 + 1
		width := int(math.Ceil(math.Log2(float64(picSizeInMapUnits/rate + 1))))
		h.SliceGroupChangeCycle = int(f.readBits(width))
	}

	if err := f.err(); err != nil {
		return nil, err
	}
	return h, nil
}

// picWidthInMbs and picHeightInMbs (frame coordinates) per clause 7.4.2.1.1.
func picWidthInMbs(sps *SPS) int { return sps.PicWidthInMbs() }

func picHeightInMbs(sps *SPS, h *SliceHeader) int {
	height := sps.FrameHeightInMbs()
	if h.FieldPic {
		height /= 2
	}
	return height
}

// sliceGeom bundles the geometry a slice's macroblock loop derives from its
// SPS/PPS/header context, clauses 6.2 and 7.4.
type sliceGeom struct {
	PicWidthInMbs     int
	PicHeightInMbs    int
	PicSizeInMbs      int
	PicSizeInMapUnits int
	MbaffFrameFlag    bool
	ChromaArrayType   uint64
	SubWidthC         int
	SubHeightC        int
	MbWidthC          int
	MbHeightC         int
	BitDepthY         int
	BitDepthC         int
	NumC8x8           int
}

// newSliceGeom derives the slice geometry for sh under sps/pps.
func newSliceGeom(sps *SPS, sh *SliceHeader) sliceGeom {
	g := sliceGeom{
		PicWidthInMbs:   picWidthInMbs(sps),
		PicHeightInMbs:  picHeightInMbs(sps, sh),
		MbaffFrameFlag:  sps.MbAdaptiveFrameFieldFlag && !sh.FieldPic,
		ChromaArrayType: sps.ChromaArrayType(),
		BitDepthY:       8 + int(sps.BitDepthLumaMinus8),
		BitDepthC:       8 + int(sps.BitDepthChromaMinus8),
	}
	g.PicSizeInMbs = g.PicWidthInMbs * g.PicHeightInMbs
	g.PicSizeInMapUnits = g.PicWidthInMbs * (int(sps.PicHeightInMapUnitsMinus1) + 1)

	// Table 6-1.
	switch g.ChromaArrayType {
	case 1:
		g.SubWidthC, g.SubHeightC = 2, 2
	case 2:
		g.SubWidthC, g.SubHeightC = 2, 1
	case 3:
		g.SubWidthC, g.SubHeightC = 1, 1
	}
	if g.SubWidthC != 0 {
		g.MbWidthC = 16 / g.SubWidthC
		g.MbHeightC = 16 / g.SubHeightC
		g.NumC8x8 = 4 / (g.SubWidthC * g.SubHeightC)
	}
	return g
}

// SliceState tracks a slice parse through its lifecycle.
type SliceState int

const (
	SliceHeaderPending SliceState = iota
	SliceHeaderParsed
	SliceDecoding
	SliceTrailing
)

// Slice is a fully parsed VCL slice: its header, and the macroblocks
// decoded from its slice data keyed by CurrMbAddr (with Order preserving
// decode order).
type Slice struct {
	Header      *SliceHeader
	IsIDR       bool
	State       SliceState
	Macroblocks map[int]*Macroblock
	Order       []*Macroblock
}

// Macroblock is the parsed content of one macroblock_layer() (or an
// inferred skip): the syntax elements of clauses 7.3.5 through 7.3.5.3 and
// the decoded residual coefficient levels. Raw diagnostic values (MbType)
// are retained alongside their normalised forms (ClearType, InterType).
type Macroblock struct {
	Addr          int
	MbType        int    // mb_type as coded, before slice-type normalisation
	InterType     int    // mb_type with the slice-type offset stripped
	ClearType     string // "I", "SI", "P" or "B"
	SliceTypeName string

	Skipped       bool
	PCM           bool
	FieldDecoding bool

	TransformSize8x8 bool

	CodedBlockPattern   int
	CBPLuma, CBPChroma  int
	MbQPDelta           int
	QP                  int
	IntraChromaPredMode int

	PrevIntra4x4PredModeFlag [16]bool
	RemIntra4x4PredMode      [16]int
	PrevIntra8x8PredModeFlag [4]bool
	RemIntra8x8PredMode      [4]int

	SubMbType [4]int
	RefIdxL0  [4]int
	RefIdxL1  [4]int
	MvdL0     [4][4][2]int
	MvdL1     [4][4][2]int

	PCMSampleLuma   []uint64
	PCMSampleChroma []uint64

	Intra16x16DCLevel []int
	Intra16x16ACLevel [16][]int
	LumaLevel4x4      [16][]int
	LumaLevel8x8      [4][]int
	ChromaDCLevel     [2][]int
	ChromaACLevel     [2][8][]int

	// TotalCoeff and ChromaTotalCoeff record per-block non-zero coefficient
	// counts for later macroblocks' nC derivation, clause 9.2.1.
	TotalCoeff        [16]int
	ChromaTotalCoeff  [2][8]int
	ChromaDCTotalCoeff [2]int

	// StartPos and EndPos are the bit offsets of this macroblock's syntax
	// within the enclosing slice RBSP, for downstream tooling.
	StartPos, EndPos int
}

// decodeState threads the per-slice information macroblock decoding
// depends on: geometry, the macroblocks already decoded in this slice (for
// neighbour nC derivation), the slice group map, and the bit cursor.
type decodeState struct {
	sps  *SPS
	pps  *PPS
	sh   *SliceHeader
	geom sliceGeom
	r    *bits.Cursor

	mbToSliceGroup []int
	mbs            map[int]*Macroblock

	// mb_field_decoding_flag state for the current pair under MBAFF; false
	// for non-MBAFF slices.
	mbFieldDecodingFlag bool
}

// blockIdxFromXY maps a (x,y) 4x4-block position within a macroblock (each
// in [0,4)) to the zig-zag luma4x4BlkIdx of clause 6.4.3, and
// neighbours4x4/nCForLuma4x4 use its inverse to walk block positions.
func blockIdxFromXY(x, y int) int {
	x8, x4in8 := x>>1, x&1
	y8, y4in8 := y>>1, y&1
	group8 := y8<<1 | x8
	sub4 := y4in8<<1 | x4in8
	return group8<<2 | sub4
}

// xyFromBlockIdx is the inverse of blockIdxFromXY.
func xyFromBlockIdx(blkIdx int) (x, y int) {
	group8, sub4 := blkIdx>>2, blkIdx&3
	x8, y8 := group8&1, group8>>1
	x4in8, y4in8 := sub4&1, sub4>>1
	return x8*2 + x4in8, y8*2 + y4in8
}

// lumaContribution returns the nN value a decoded macroblock contributes
// for one of its luma 4x4 blocks, per clause 9.2.1's step 6: 0 for skipped
// macroblocks, 16 for I_PCM, else the block's TotalCoeff.
func lumaContribution(mb *Macroblock, blk int) int {
	switch {
	case mb.Skipped:
		return 0
	case mb.PCM:
		return 16
	default:
		return mb.TotalCoeff[blk]
	}
}

// chromaContribution is lumaContribution's analogue for chroma AC blocks.
func chromaContribution(mb *Macroblock, iCbCr, blk int) int {
	switch {
	case mb.Skipped:
		return 0
	case mb.PCM:
		return 16
	default:
		return mb.ChromaTotalCoeff[iCbCr][blk]
	}
}

// neighbours4x4 returns the nN contributions of the left and top neighbours
// of luma4x4BlkIdx within mbAddr, per the non-MBAFF frame/field derivation
// of clauses 6.4.9, 6.4.11.4 and 6.4.12: neighbours are looked up by
// macroblock raster address and are only available if that macroblock has
// already been decoded in this slice.
func (d *decodeState) neighbours4x4(mbAddr, blkIdx int) (nA int, aAvail bool, nB int, bAvail bool) {
	x, y := xyFromBlockIdx(blkIdx)

	if x > 0 {
		if mb, ok := d.mbs[mbAddr]; ok {
			nA, aAvail = lumaContribution(mb, blockIdxFromXY(x-1, y)), true
		}
	} else if mbAddr%d.geom.PicWidthInMbs != 0 {
		if mb, ok := d.mbs[mbAddr-1]; ok {
			nA, aAvail = lumaContribution(mb, blockIdxFromXY(3, y)), true
		}
	}
	if y > 0 {
		if mb, ok := d.mbs[mbAddr]; ok {
			nB, bAvail = lumaContribution(mb, blockIdxFromXY(x, y-1)), true
		}
	} else if mbAddr >= d.geom.PicWidthInMbs {
		if mb, ok := d.mbs[mbAddr-d.geom.PicWidthInMbs]; ok {
			nB, bAvail = lumaContribution(mb, blockIdxFromXY(x, 3)), true
		}
	}
	return
}

// combineNC applies clause 9.2.1's final nC rule to the neighbour
// contributions.
func combineNC(nA int, aOK bool, nB int, bOK bool) int {
	switch {
	case aOK && bOK:
		return (nA + nB + 1) >> 1
	case aOK:
		return nA
	case bOK:
		return nB
	default:
		return 0
	}
}

// nCForLuma4x4 derives nC for residual_block_cavlc on a luma 4x4 block, per
// clause 9.2.1. MBAFF frames would need the field/frame neighbour
// derivation of clause 6.4.12.2, which this parser does not implement.
func (d *decodeState) nCForLuma4x4(mbAddr, blkIdx int) (int, error) {
	if d.geom.MbaffFrameFlag {
		return 0, errUnsupported("MBAFF neighbour derivation")
	}
	nA, aOK, nB, bOK := d.neighbours4x4(mbAddr, blkIdx)
	return combineNC(nA, aOK, nB, bOK), nil
}

// nCForChromaAC derives nC for a chroma AC block (iCbCr in {0,1}, blkIdx in
// [0, 4*NumC8x8)), per clauses 6.4.11.5 and 9.2.1. Chroma blocks are in
// raster order within the macroblock: 2 wide and MbHeightC/4 tall.
func (d *decodeState) nCForChromaAC(mbAddr, iCbCr, blkIdx int) (int, error) {
	if d.geom.MbaffFrameFlag {
		return 0, errUnsupported("MBAFF neighbour derivation")
	}
	blocksHigh := d.geom.MbHeightC / 4 // 2 for 4:2:0, 4 for 4:2:2
	x, y := blkIdx&1, blkIdx>>1
	var nA, nB int
	var aOK, bOK bool
	if x > 0 {
		if mb, ok := d.mbs[mbAddr]; ok {
			nA, aOK = chromaContribution(mb, iCbCr, y*2), true
		}
	} else if mbAddr%d.geom.PicWidthInMbs != 0 {
		if mb, ok := d.mbs[mbAddr-1]; ok {
			nA, aOK = chromaContribution(mb, iCbCr, y*2+1), true
		}
	}
	if y > 0 {
		if mb, ok := d.mbs[mbAddr]; ok {
			nB, bOK = chromaContribution(mb, iCbCr, (y-1)*2+x), true
		}
	} else if mbAddr >= d.geom.PicWidthInMbs {
		if mb, ok := d.mbs[mbAddr-d.geom.PicWidthInMbs]; ok {
			nB, bOK = chromaContribution(mb, iCbCr, (blocksHigh-1)*2+x), true
		}
	}
	return combineNC(nA, aOK, nB, bOK), nil
}

// decodeSliceData walks slice_data() (clause 7.3.4): mb_skip_run-prefixed
// macroblocks for P/B slices, or a dense macroblock loop for I/SI slices,
// advancing between macroblocks by the NextMbAddress process over the
// slice group map.
func decodeSliceData(r *bits.Cursor, sps *SPS, pps *PPS, sh *SliceHeader, s *Slice) error {
	if pps.EntropyCodingMode == 1 {
		return errUnsupported("CABAC entropy decoding")
	}

	geom := newSliceGeom(sps, sh)

	mapUnits, err := mapUnitToSliceGroupMap(pps, geom.PicSizeInMapUnits)
	if err != nil {
		return err
	}
	groups, err := mbToSliceGroupMap(sps, sh.FieldPic, geom.MbaffFrameFlag, mapUnits, geom.PicSizeInMbs)
	if err != nil {
		return err
	}

	d := &decodeState{
		sps: sps, pps: pps, sh: sh, geom: geom, r: r,
		mbToSliceGroup: groups,
		mbs:            s.Macroblocks,
	}

	f := newFieldReader(r)
	qp := 26 + pps.PicInitQpMinus26 + sh.SliceQpDelta

	mbaff := 0
	if geom.MbaffFrameFlag {
		mbaff = 1
	}
	currMbAddr := sh.FirstMbInSlice * (1 + mbaff)
	s.State = SliceDecoding
	moreDataFlag := true
	prevMbSkipped := false
	for moreDataFlag {
		if !sh.isI() && !sh.isSI() {
			skipRun := int(f.readUe())
			if err := f.err(); err != nil {
				return err
			}
			prevMbSkipped = skipRun > 0
			for i := 0; i < skipRun; i++ {
				if currMbAddr >= geom.PicSizeInMbs {
					return errInvalidValue("mb_skip_run")
				}
				clearType := sh.SliceTypeName
				if clearType == "SP" {
					clearType = "P"
				}
				mb := &Macroblock{Addr: currMbAddr, Skipped: true, ClearType: clearType, SliceTypeName: sh.SliceTypeName}
				d.mbs[currMbAddr] = mb
				s.Order = append(s.Order, mb)
				currMbAddr = nextMbAddress(currMbAddr, groups)
			}
			if skipRun > 0 {
				moreDataFlag = r.MoreRBSPData()
			}
		}
		if moreDataFlag {
			if currMbAddr >= geom.PicSizeInMbs {
				return errInvalidValue("CurrMbAddr")
			}
			if geom.MbaffFrameFlag && (currMbAddr%2 == 0 || (currMbAddr%2 == 1 && prevMbSkipped)) {
				d.mbFieldDecodingFlag = f.readFlag()
			}
			mb, err := decodeMacroblock(d, &f, currMbAddr, &qp)
			if mb != nil {
				s.Order = append(s.Order, mb)
			}
			if err != nil {
				return err
			}
		}
		moreDataFlag = r.MoreRBSPData()
		currMbAddr = nextMbAddress(currMbAddr, groups)
	}
	s.State = SliceTrailing
	return nil
}

// decodeMacroblock parses one macroblock_layer() (clause 7.3.5). qp is the
// running QP state, updated in place per mb_qp_delta.
func decodeMacroblock(d *decodeState, f *fieldReader, addr int, qp *int) (*Macroblock, error) {
	mb := &Macroblock{
		Addr:          addr,
		SliceTypeName: d.sh.SliceTypeName,
		FieldDecoding: d.mbFieldDecodingFlag,
		StartPos:      d.r.Pos(),
	}
	// Registered before residual decoding so the in-macroblock neighbour
	// lookups of clause 6.4.11.4 can see the blocks decoded so far.
	d.mbs[addr] = mb

	mb.MbType = int(f.readUe())
	if err := f.err(); err != nil {
		return mb, err
	}
	info, err := resolveMbType(d.sh.SliceTypeName, mb.MbType)
	if err != nil {
		return mb, err
	}
	mb.ClearType = info.clear
	mb.InterType = info.interType

	if info.class == mbClassIPCM {
		mb.PCM = true
		if err := d.decodePCM(f, mb); err != nil {
			return mb, err
		}
		mb.EndPos = d.r.Pos() - 1
		return mb, nil
	}

	noSubMbPartSizeLessThan8x8Flag := true
	if info.class == mbClassInter8x8 {
		subInfos, err := subMbPred(d, f, mb, info)
		if err != nil {
			return mb, err
		}
		for i, si := range subInfos {
			if info.clear == "B" && mb.SubMbType[i] == subMbBDirect8x8 {
				if !d.sh.DirectSpatialMvPred {
					noSubMbPartSizeLessThan8x8Flag = false
				}
			} else if si.numParts > 1 {
				noSubMbPartSizeLessThan8x8Flag = false
			}
		}
	} else {
		if d.pps.Transform8x8Mode == 1 && info.class == mbClassINxN {
			mb.TransformSize8x8 = f.readFlag()
		}
		if err := mbPred(d, f, mb, info); err != nil {
			return mb, err
		}
	}
	if err := f.err(); err != nil {
		return mb, err
	}

	isIntra16x16 := info.class == mbClassI16x16
	if isIntra16x16 {
		mb.CBPLuma, mb.CBPChroma = info.i16.cbpLuma, info.i16.cbpChroma
	} else {
		mpm := inter
		if info.class == mbClassINxN || info.class == mbClassSI {
			mpm = intra4x4
			if mb.TransformSize8x8 {
				mpm = intra8x8
			}
		}
		cbp, err := readMe(d.r, uint(d.geom.ChromaArrayType), mpm)
		if err != nil {
			return mb, err
		}
		mb.CodedBlockPattern = int(cbp)
		mb.CBPLuma = int(cbp) & 0xf
		mb.CBPChroma = int(cbp) >> 4
		if mb.CBPLuma > 0 && d.pps.Transform8x8Mode == 1 && info.class != mbClassINxN &&
			noSubMbPartSizeLessThan8x8Flag &&
			(!(info.clear == "B" && info.interType == mbBDirect16x16) || d.sps.Direct8x8InferenceFlag) {
			mb.TransformSize8x8 = f.readFlag()
		}
	}

	if mb.CBPLuma > 0 || mb.CBPChroma > 0 || isIntra16x16 {
		mb.MbQPDelta = f.readSe()
		if err := f.err(); err != nil {
			return mb, err
		}
		qpBdOffset := d.sps.QpBdOffsetY()
		*qp = ((*qp+mb.MbQPDelta+52+2*qpBdOffset)%(52+qpBdOffset)) - qpBdOffset

		if err := decodeResidual(d, mb, isIntra16x16, 0, 15); err != nil {
			return mb, err
		}
	}
	mb.QP = *qp
	mb.EndPos = d.r.Pos() - 1

	return mb, f.err()
}

// decodePCM consumes an I_PCM macroblock's payload: pcm_alignment_zero_bit
// padding to a byte boundary, then raw luma and chroma samples, clause
// 7.3.5.
func (d *decodeState) decodePCM(f *fieldReader, mb *Macroblock) error {
	for !d.r.ByteAligned() {
		b := f.readBits(1)
		if err := f.err(); err != nil {
			return err
		}
		if b != 0 {
			return errInvalidValue("pcm_alignment_zero_bit")
		}
	}
	mb.PCMSampleLuma = make([]uint64, 256)
	for i := range mb.PCMSampleLuma {
		mb.PCMSampleLuma[i] = f.readBits(d.geom.BitDepthY)
	}
	mb.PCMSampleChroma = make([]uint64, 2*d.geom.MbWidthC*d.geom.MbHeightC)
	for i := range mb.PCMSampleChroma {
		mb.PCMSampleChroma[i] = f.readBits(d.geom.BitDepthC)
	}
	return f.err()
}

// QpBdOffsetY returns QpBdOffset_Y, clause 7-4.
func (s *SPS) QpBdOffsetY() int { return 6 * int(s.BitDepthLumaMinus8) }

// refIdxPresent reports whether a ref_idx_lX syntax element is present for
// the current macroblock, per the predicates of clauses 7.3.5.1/7.3.5.2.
func (d *decodeState) refIdxPresent(numRefMinus1 int) bool {
	return numRefMinus1 > 0 || d.mbFieldDecodingFlag != d.sh.FieldPic
}

// refIdxRange returns the te(v) range for a ref_idx_lX element: the
// reference count doubles when a field macroblock indexes a frame-coded
// reference list, clause 7.4.5.1.
func (d *decodeState) refIdxRange(numRefMinus1 int) uint {
	if d.mbFieldDecodingFlag && !d.sh.FieldPic {
		return uint(2*numRefMinus1 + 1)
	}
	return uint(numRefMinus1)
}

// predMode0 returns MbPartPredMode(mb_type, 0) for the resolved macroblock,
// accounting for I_NxN's dependence on transform_size_8x8_flag, clause
// 7.4.5.
func predMode0(info mbTypeInfo, transform8x8 bool) mbPartPredMode {
	switch info.class {
	case mbClassINxN:
		if transform8x8 {
			return intra8x8
		}
		return intra4x4
	case mbClassSI:
		return intra4x4
	case mbClassI16x16:
		return intra16x16
	default:
		return info.inter.pred0
	}
}

// partPredMode returns MbPartPredMode(mb_type, i) for an inter macroblock.
func partPredMode(info mbTypeInfo, i int) mbPartPredMode {
	if i == 0 {
		return info.inter.pred0
	}
	return info.inter.pred1
}

// mbPred parses mb_pred() (clause 7.3.5.1): intra prediction mode hints for
// intra macroblocks, reference indices and motion vector differences for
// inter macroblocks other than Direct.
func mbPred(d *decodeState, f *fieldReader, mb *Macroblock, info mbTypeInfo) error {
	sh := d.sh
	mode := predMode0(info, mb.TransformSize8x8)

	switch mode {
	case intra4x4, intra8x8, intra16x16:
		if mode == intra4x4 {
			for i := 0; i < 16; i++ {
				mb.PrevIntra4x4PredModeFlag[i] = f.readFlag()
				if !mb.PrevIntra4x4PredModeFlag[i] {
					mb.RemIntra4x4PredMode[i] = int(f.readBits(3))
				}
			}
		}
		if mode == intra8x8 {
			for i := 0; i < 4; i++ {
				mb.PrevIntra8x8PredModeFlag[i] = f.readFlag()
				if !mb.PrevIntra8x8PredModeFlag[i] {
					mb.RemIntra8x8PredMode[i] = int(f.readBits(3))
				}
			}
		}
		if d.geom.ChromaArrayType == 1 || d.geom.ChromaArrayType == 2 {
			mb.IntraChromaPredMode = int(f.readUe())
		}
	case direct:
		// No explicit prediction syntax.
	default:
		n := info.inter.numParts
		for i := 0; i < n; i++ {
			if d.refIdxPresent(sh.NumRefIdxL0ActiveMinus1) && partPredMode(info, i) != predL1 {
				mb.RefIdxL0[i] = int(f.readTe(d.refIdxRange(sh.NumRefIdxL0ActiveMinus1)))
			}
		}
		for i := 0; i < n; i++ {
			if d.refIdxPresent(sh.NumRefIdxL1ActiveMinus1) && partPredMode(info, i) != predL0 {
				mb.RefIdxL1[i] = int(f.readTe(d.refIdxRange(sh.NumRefIdxL1ActiveMinus1)))
			}
		}
		for i := 0; i < n; i++ {
			if partPredMode(info, i) != predL1 {
				for c := 0; c < 2; c++ {
					mb.MvdL0[i][0][c] = f.readSe()
				}
			}
		}
		for i := 0; i < n; i++ {
			if partPredMode(info, i) != predL0 {
				for c := 0; c < 2; c++ {
					mb.MvdL1[i][0][c] = f.readSe()
				}
			}
		}
	}
	return f.err()
}

// subMbPred parses sub_mb_pred() (clause 7.3.5.2): four sub_mb_type values,
// then reference indices and per-sub-partition motion vector differences
// with the standard's direct-mode and prediction-direction exclusions.
func subMbPred(d *decodeState, f *fieldReader, mb *Macroblock, info mbTypeInfo) ([4]subMbInfo, error) {
	var subInfos [4]subMbInfo
	sh := d.sh

	for i := 0; i < 4; i++ {
		mb.SubMbType[i] = int(f.readUe())
		if err := f.err(); err != nil {
			return subInfos, err
		}
		si, err := resolveSubMbType(info.clear, mb.SubMbType[i])
		if err != nil {
			return subInfos, err
		}
		subInfos[i] = si
	}

	isDirect := func(i int) bool { return info.clear == "B" && mb.SubMbType[i] == subMbBDirect8x8 }

	for i := 0; i < 4; i++ {
		if d.refIdxPresent(sh.NumRefIdxL0ActiveMinus1) && info.interType != mbP8x8ref0 &&
			!isDirect(i) && subInfos[i].pred != predL1 {
			mb.RefIdxL0[i] = int(f.readTe(d.refIdxRange(sh.NumRefIdxL0ActiveMinus1)))
		}
	}
	for i := 0; i < 4; i++ {
		if d.refIdxPresent(sh.NumRefIdxL1ActiveMinus1) && !isDirect(i) && subInfos[i].pred != predL0 {
			mb.RefIdxL1[i] = int(f.readTe(d.refIdxRange(sh.NumRefIdxL1ActiveMinus1)))
		}
	}
	for i := 0; i < 4; i++ {
		if !isDirect(i) && subInfos[i].pred != predL1 {
			for j := 0; j < subInfos[i].numParts; j++ {
				for c := 0; c < 2; c++ {
					mb.MvdL0[i][j][c] = f.readSe()
				}
			}
		}
	}
	for i := 0; i < 4; i++ {
		if !isDirect(i) && subInfos[i].pred != predL0 {
			for j := 0; j < subInfos[i].numParts; j++ {
				for c := 0; c < 2; c++ {
					mb.MvdL1[i][j][c] = f.readSe()
				}
			}
		}
	}
	return subInfos, f.err()
}

// residual component selectors for residualLuma, mirroring the invoker
// distinction of clause 7.3.5.3.2 (luma vs Cb vs Cr when ChromaArrayType is
// 3).
type residualComp int

const (
	compLuma residualComp = iota
	compCb
	compCr
)

// decodeResidual walks residual() (clause 7.3.5.3): luma (and for 4:4:4,
// Cb/Cr) residual via residualLuma, then chroma DC and AC blocks, each fed
// through residualBlockCAVLC with its neighbour-derived nC.
func decodeResidual(d *decodeState, mb *Macroblock, isIntra16x16 bool, startIdx, endIdx int) error {
	if err := residualLuma(d, mb, isIntra16x16, startIdx, endIdx, compLuma); err != nil {
		return err
	}

	cat := d.geom.ChromaArrayType
	if cat == 3 {
		if err := residualLuma(d, mb, isIntra16x16, startIdx, endIdx, compCb); err != nil {
			return err
		}
		return residualLuma(d, mb, isIntra16x16, startIdx, endIdx, compCr)
	}
	if cat != 1 && cat != 2 {
		return nil
	}

	numC8x8 := d.geom.NumC8x8
	dcCoeffs := 4 * numC8x8
	dcNC := -1
	if cat == 2 {
		dcNC = -2
	}

	for iCbCr := 0; iCbCr < 2; iCbCr++ {
		mb.ChromaDCLevel[iCbCr] = make([]int, dcCoeffs)
		if mb.CBPChroma&3 != 0 && startIdx == 0 {
			tc, err := residualBlockCAVLC(d.r, mb.ChromaDCLevel[iCbCr], 0, dcCoeffs-1, dcNC)
			if err != nil {
				return err
			}
			mb.ChromaDCTotalCoeff[iCbCr] = tc
		}
	}

	for iCbCr := 0; iCbCr < 2; iCbCr++ {
		for blk := 0; blk < 4*numC8x8; blk++ {
			mb.ChromaACLevel[iCbCr][blk] = make([]int, 15)
			if mb.CBPChroma&2 != 0 {
				nC, err := d.nCForChromaAC(mb.Addr, iCbCr, blk)
				if err != nil {
					return err
				}
				tc, err := residualBlockCAVLC(d.r, mb.ChromaACLevel[iCbCr][blk], max(0, startIdx-1), endIdx-1, nC)
				if err != nil {
					return err
				}
				mb.ChromaTotalCoeff[iCbCr][blk] = tc
			}
		}
	}
	return nil
}

// residualLuma decodes the luma residual of one macroblock (clause
// 7.3.5.3.2): the Intra16x16 DC block when applicable, then the sixteen
// 4x4 AC/full blocks gated by CodedBlockPatternLuma. When the 8x8
// transform is active under CAVLC, the 4x4 level arrays are interleaved
// into the 8x8 level array per the standard's level8x8 assembly.
func residualLuma(d *decodeState, mb *Macroblock, isIntra16x16 bool, startIdx, endIdx int, comp residualComp) error {
	if comp != compLuma {
		// ChromaArrayType 3 residual ordering is defined by the standard, but
		// its neighbour derivation (clause 6.4.11.6) is not implemented.
		return errUnsupported("ChromaArrayType 3 neighbour derivation")
	}

	if startIdx == 0 && isIntra16x16 {
		nC, err := d.nCForLuma4x4(mb.Addr, 0)
		if err != nil {
			return err
		}
		mb.Intra16x16DCLevel = make([]int, 16)
		tc, err := residualBlockCAVLC(d.r, mb.Intra16x16DCLevel, 0, 15, nC)
		if err != nil {
			return err
		}
		// Recorded for block 0's neighbour derivation; overwritten by the AC
		// block's count when CodedBlockPatternLuma has bit 0 set.
		mb.TotalCoeff[0] = tc
	}

	for i8x8 := 0; i8x8 < 4; i8x8++ {
		for i4x4 := 0; i4x4 < 4; i4x4++ {
			blk := i8x8*4 + i4x4
			if mb.CBPLuma&(1<<uint(i8x8)) != 0 {
				nC, err := d.nCForLuma4x4(mb.Addr, blk)
				if err != nil {
					return err
				}
				if isIntra16x16 {
					mb.Intra16x16ACLevel[blk] = make([]int, 15)
					tc, err := residualBlockCAVLC(d.r, mb.Intra16x16ACLevel[blk], max(0, startIdx-1), endIdx-1, nC)
					if err != nil {
						return err
					}
					mb.TotalCoeff[blk] = tc
				} else {
					mb.LumaLevel4x4[blk] = make([]int, 16)
					tc, err := residualBlockCAVLC(d.r, mb.LumaLevel4x4[blk], startIdx, endIdx, nC)
					if err != nil {
						return err
					}
					mb.TotalCoeff[blk] = tc
				}
			} else if isIntra16x16 {
				mb.Intra16x16ACLevel[blk] = make([]int, 15)
			} else {
				mb.LumaLevel4x4[blk] = make([]int, 16)
			}
			if mb.TransformSize8x8 {
				if mb.LumaLevel8x8[i8x8] == nil {
					mb.LumaLevel8x8[i8x8] = make([]int, 64)
				}
				for k, v := range mb.LumaLevel4x4[blk] {
					mb.LumaLevel8x8[i8x8][4*k+i4x4] = v
				}
			}
		}
	}
	return nil
}

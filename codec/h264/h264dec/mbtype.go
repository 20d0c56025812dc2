/*
DESCRIPTION
  mbtype.go resolves mb_type and sub_mb_type values per clause 7.4.5 and
  Tables 7-11 through 7-18: the coded value is first normalised by slice
  type (the P/SP and B slice numbering prepends the inter types to the I
  types, clause 7.4.5's "mb_type - 5" / "mb_type - 23" offsets), then the
  normalised value indexes the static tables below to yield the prediction
  mode of each partition, partition geometry, and for I_16x16 the implied
  Intra16x16PredMode and CodedBlockPattern.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package h264dec

// mbClass categorizes a resolved mb_type for the purposes of
// macroblock_layer() control flow.
type mbClass int

const (
	mbClassINxN mbClass = iota
	mbClassI16x16
	mbClassIPCM
	mbClassSI
	mbClassInterSingle // one or two motion-vector partitions (16x16, 16x8, 8x16)
	mbClassInter8x8    // P_8x8 / P_8x8ref0 / B_8x8: four sub-macroblock partitions
)

// Inter mb_type values within a P/SP slice, Table 7-13.
const (
	mbPL016x16 = iota
	mbPL0L016x8
	mbPL0L08x16
	mbP8x8
	mbP8x8ref0
	numPMbTypes
)

// Inter mb_type values within a B slice, Table 7-14.
const (
	mbBDirect16x16 = iota
	mbBL016x16
	mbBL116x16
	mbBBi16x16
	mbBL0L016x8
	mbBL0L08x16
	mbBL1L116x8
	mbBL1L18x16
	mbBL0L116x8
	mbBL0L18x16
	mbBL1L016x8
	mbBL1L08x16
	mbBL0Bi16x8
	mbBL0Bi8x16
	mbBL1Bi16x8
	mbBL1Bi8x16
	mbBBiL016x8
	mbBBiL08x16
	mbBBiL116x8
	mbBBiL18x16
	mbBBiBi16x8
	mbBBiBi8x16
	mbB8x8
	numBMbTypes
)

// Sub-macroblock types in B macroblocks, Table 7-18.
const (
	subMbBDirect8x8 = 0
)

// i16x16Info holds the CodedBlockPattern and Intra16x16PredMode implied by
// an I_16x16_* mb_type value, per Table 7-11.
type i16x16Info struct {
	predMode  int
	cbpChroma int
	cbpLuma   int
}

// i16x16Table maps (mbType - 1) to its implied prediction mode / CBP, valid
// for mbType in [1,24].
var i16x16Table = [24]i16x16Info{
	{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {3, 0, 0},
	{0, 1, 0}, {1, 1, 0}, {2, 1, 0}, {3, 1, 0},
	{0, 2, 0}, {1, 2, 0}, {2, 2, 0}, {3, 2, 0},
	{0, 0, 15}, {1, 0, 15}, {2, 0, 15}, {3, 0, 15},
	{0, 1, 15}, {1, 1, 15}, {2, 1, 15}, {3, 1, 15},
	{0, 2, 15}, {1, 2, 15}, {2, 2, 15}, {3, 2, 15},
}

// mbPartInfo describes an inter mb_type row of Table 7-13/7-14:
// MbPartPredMode(mb_type,0), MbPartPredMode(mb_type,1), MbPartWidth,
// MbPartHeight and NumMbPart.
type mbPartInfo struct {
	pred0, pred1  mbPartPredMode
	width, height int
	numParts      int
}

// mbTypeTableP is Table 7-13, indexed by mb_type (0..4).
var mbTypeTableP = [numPMbTypes]mbPartInfo{
	{predL0, naMbPartPredMode, 16, 16, 1},
	{predL0, predL0, 16, 8, 2},
	{predL0, predL0, 8, 16, 2},
	{naMbPartPredMode, naMbPartPredMode, 8, 8, 4},
	{naMbPartPredMode, naMbPartPredMode, 8, 8, 4},
}

// mbTypeTableB is Table 7-14, indexed by mb_type (0..22). B_Direct_16x16's
// NumMbPart is not applicable per the standard; 1 is recorded so loops that
// never run for Direct mode stay in range.
var mbTypeTableB = [numBMbTypes]mbPartInfo{
	{direct, naMbPartPredMode, 8, 8, 1},
	{predL0, naMbPartPredMode, 16, 16, 1},
	{predL1, naMbPartPredMode, 16, 16, 1},
	{biPred, naMbPartPredMode, 16, 16, 1},
	{predL0, predL0, 16, 8, 2},
	{predL0, predL0, 8, 16, 2},
	{predL1, predL1, 16, 8, 2},
	{predL1, predL1, 8, 16, 2},
	{predL0, predL1, 16, 8, 2},
	{predL0, predL1, 8, 16, 2},
	{predL1, predL0, 16, 8, 2},
	{predL1, predL0, 8, 16, 2},
	{predL0, biPred, 16, 8, 2},
	{predL0, biPred, 8, 16, 2},
	{predL1, biPred, 16, 8, 2},
	{predL1, biPred, 8, 16, 2},
	{biPred, predL0, 16, 8, 2},
	{biPred, predL0, 8, 16, 2},
	{biPred, predL1, 16, 8, 2},
	{biPred, predL1, 8, 16, 2},
	{biPred, biPred, 16, 8, 2},
	{biPred, biPred, 8, 16, 2},
	{naMbPartPredMode, naMbPartPredMode, 8, 8, 4},
}

// subMbInfo describes a sub_mb_type row of Table 7-17/7-18: NumSubMbPart,
// SubMbPredMode, SubMbPartWidth and SubMbPartHeight.
type subMbInfo struct {
	numParts      int
	pred          mbPartPredMode
	width, height int
}

// subMbTypeTableP is Table 7-17, indexed by sub_mb_type (0..3).
var subMbTypeTableP = [4]subMbInfo{
	{1, predL0, 8, 8},
	{2, predL0, 8, 4},
	{2, predL0, 4, 8},
	{4, predL0, 4, 4},
}

// subMbTypeTableB is Table 7-18, indexed by sub_mb_type (0..12).
var subMbTypeTableB = [13]subMbInfo{
	{4, direct, 4, 4},
	{1, predL0, 8, 8},
	{1, predL1, 8, 8},
	{1, biPred, 8, 8},
	{2, predL0, 8, 4},
	{2, predL0, 4, 8},
	{2, predL1, 8, 4},
	{2, predL1, 4, 8},
	{4, predL0, 4, 4},
	{4, predL1, 4, 4},
	{2, biPred, 8, 4},
	{2, biPred, 4, 8},
	{4, biPred, 4, 4},
}

// mbTypeInfo is the fully resolved description of a coded mb_type value: its
// control-flow class, the coarse macroblock type after normalisation by
// slice type, and the table rows the class needs.
type mbTypeInfo struct {
	raw       int     // mb_type value as parsed
	clear     string  // "I", "SI", "P" or "B"
	class     mbClass
	i16       i16x16Info // valid when class == mbClassI16x16
	inter     mbPartInfo // valid when class is an inter class
	interType int        // raw value with the slice-type offset stripped
}

// resolveMbType normalises mbType by slice type per clause 7.4.5 and
// resolves it against the static tables.
func resolveMbType(sliceTypeName string, mbType int) (mbTypeInfo, error) {
	info := mbTypeInfo{raw: mbType}
	switch sliceTypeName {
	case "P", "SP":
		if mbType < numPMbTypes {
			info.clear = "P"
			info.interType = mbType
			info.inter = mbTypeTableP[mbType]
			if mbType == mbP8x8 || mbType == mbP8x8ref0 {
				info.class = mbClassInter8x8
			} else {
				info.class = mbClassInterSingle
			}
			return info, nil
		}
		return resolveIMbType(info, mbType-numPMbTypes)
	case "B":
		if mbType < numBMbTypes {
			info.clear = "B"
			info.interType = mbType
			info.inter = mbTypeTableB[mbType]
			if mbType == mbB8x8 {
				info.class = mbClassInter8x8
			} else {
				info.class = mbClassInterSingle
			}
			return info, nil
		}
		return resolveIMbType(info, mbType-numBMbTypes)
	case "SI":
		if mbType == 0 {
			info.clear = "SI"
			info.class = mbClassSI
			return info, nil
		}
		return resolveIMbType(info, mbType-1)
	case "I":
		return resolveIMbType(info, mbType)
	}
	return info, errInvalidValue("slice_type")
}

// resolveIMbType resolves an I-slice mb_type value (0 == I_NxN, 1..24 ==
// I_16x16_*, 25 == I_PCM), per Table 7-11.
func resolveIMbType(info mbTypeInfo, mbType int) (mbTypeInfo, error) {
	info.clear = "I"
	info.interType = mbType
	switch {
	case mbType == 0:
		info.class = mbClassINxN
	case mbType >= 1 && mbType <= 24:
		info.class = mbClassI16x16
		info.i16 = i16x16Table[mbType-1]
	case mbType == 25:
		info.class = mbClassIPCM
	default:
		return info, errInvalidValue("mb_type")
	}
	return info, nil
}

// resolveSubMbType resolves a sub_mb_type value against Table 7-17 or 7-18
// depending on whether the enclosing macroblock is in a P or B slice.
func resolveSubMbType(clear string, subMbType int) (subMbInfo, error) {
	switch clear {
	case "P":
		if subMbType >= 0 && subMbType < len(subMbTypeTableP) {
			return subMbTypeTableP[subMbType], nil
		}
	case "B":
		if subMbType >= 0 && subMbType < len(subMbTypeTableB) {
			return subMbTypeTableB[subMbType], nil
		}
	}
	return subMbInfo{}, errInvalidValue("sub_mb_type")
}

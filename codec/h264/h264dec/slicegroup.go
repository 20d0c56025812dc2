/*
DESCRIPTION
  slicegroup.go derives the macroblock to slice group map used by the slice
  data parser: clause 8.2.2.1's interleaved map for slice_group_map_type 0,
  clause 8.2.2.8's conversion from map units to macroblock addresses, and
  the NextMbAddress process of clause 8.2.2. The remaining map types (the
  foreground/leftover, box-out, raster, wipe and explicit maps) are
  reported unsupported when a stream actually uses them.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package h264dec

// mapUnitToSliceGroupMap derives mapUnitToSliceGroupMap[0..picSizeInMapUnits)
// for the given PPS. With a single slice group every map unit belongs to
// group 0; with several, only the interleaved map of clause 8.2.2.1
// (slice_group_map_type 0) is derived.
func mapUnitToSliceGroupMap(pps *PPS, picSizeInMapUnits int) ([]int, error) {
	m := make([]int, picSizeInMapUnits)
	if pps.NumSliceGroupsMinus1 == 0 {
		return m, nil
	}
	if pps.SliceGroupMapType != 0 {
		return nil, errUnsupported("slice_group_map_type != 0")
	}

	i := 0
	for i < picSizeInMapUnits {
		for iGroup := 0; iGroup <= pps.NumSliceGroupsMinus1 && i < picSizeInMapUnits; i, iGroup = i+pps.RunLengthMinus1[iGroup]+1, iGroup+1 {
			for j := 0; j <= pps.RunLengthMinus1[iGroup] && i+j < picSizeInMapUnits; j++ {
				m[i+j] = iGroup
			}
		}
	}
	return m, nil
}

// mbToSliceGroupMap converts a map unit to slice group map into a macroblock
// to slice group map per clause 8.2.2.8, using the frame/field structure of
// the current picture.
func mbToSliceGroupMap(sps *SPS, fieldPic, mbaff bool, mapUnits []int, picSizeInMbs int) ([]int, error) {
	m := make([]int, picSizeInMbs)
	switch {
	case sps.FrameMbsOnlyFlag || fieldPic:
		copy(m, mapUnits)
	case mbaff:
		for i := range m {
			m[i] = mapUnits[i/2]
		}
	case !sps.FrameMbsOnlyFlag && !sps.MbAdaptiveFrameFieldFlag && !fieldPic:
		w := sps.PicWidthInMbs()
		for i := range m {
			m[i] = mapUnits[(i/(2*w))*w+(i%w)]
		}
	default:
		return nil, errUnsupported("macroblock to slice group map derivation")
	}
	return m, nil
}

// nextMbAddress returns the next macroblock address after n within n's slice
// group: the smallest i > n with groups[i] == groups[n], or picSizeInMbs
// when the group is exhausted, per clause 8.2.2's NextMbAddress process.
func nextMbAddress(n int, groups []int) int {
	i := n + 1
	for i < len(groups) && groups[i] != groups[n] {
		i++
	}
	return i
}

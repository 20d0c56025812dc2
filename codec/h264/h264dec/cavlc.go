/*
DESCRIPTION
  cavlc.go implements the CAVLC residual decoding primitives of clause
  9.2: coeff_token, level_prefix/level_suffix, total_zeros and run_before,
  combined into residualBlockCAVLC per clause 9.2.1 and Figure 9-1's
  overall flow (TotalCoeff/TrailingOnes -> levels -> total_zeros ->
  run_before -> scatter into a maxNumCoeff-length coefficient array).

  The decode algorithm for coeff_token (read one bit at a time, extending
  (length, code) until a row of the applicable table matches) follows the
  first-match-wins scan h26x-extractor's cavlc.py performs against its own
  coeff_token dictionary; the numeric tables it scans against live in
  cavlctab.go.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package h264dec

import (
	"github.com/ausocean/h264ab/codec/h264/h264dec/bits"
)

// coeffToken reads coeff_token given the neighbour context nC, returning
// TotalCoeff and TrailingOnes. nC is an ordinary neighbour-derived value in
// the standard's sense for nC >= 0; the chroma DC columns of Table 9-5 are
// selected by passing nC == -1 (4:2:0) or nC == -2 (4:2:2).
func coeffToken(r *bits.Cursor, nC int) (totalCoeff, trailingOnes int, err error) {
	switch {
	case nC == -2:
		return scanVLCRows(r, chromaDC422Rows(), 13)
	case nC == -1:
		return scanVLCRows(r, chromaDCRows(), 8)
	case nC >= 0 && nC < 2:
		return scanVLCRows(r, lumaRows(0), 16)
	case nC >= 2 && nC < 4:
		return scanVLCRows(r, lumaRows(1), 16)
	case nC >= 4 && nC < 8:
		return scanVLCRows(r, lumaRows(2), 16)
	default:
		code, err := r.U(6)
		if err != nil {
			return 0, 0, err
		}
		tc, t1, _ := coeffTokenNC8Plus(uint32(code))
		return tc, t1, nil
	}
}

// lumaRows adapts coeffTokenLuma[set]'s fixed-width rows to [][]vlcEntry.
func lumaRows(set int) [][]vlcEntry {
	rows := make([][]vlcEntry, 4)
	for i := range coeffTokenLuma[set] {
		rows[i] = coeffTokenLuma[set][i][:]
	}
	return rows
}

// chromaDCRows adapts coeffTokenChromaDC420's fixed-width rows to
// [][]vlcEntry.
func chromaDCRows() [][]vlcEntry {
	rows := make([][]vlcEntry, 4)
	for i := range coeffTokenChromaDC420 {
		rows[i] = coeffTokenChromaDC420[i][:]
	}
	return rows
}

// chromaDC422Rows adapts coeffTokenChromaDC422's fixed-width rows to
// [][]vlcEntry.
func chromaDC422Rows() [][]vlcEntry {
	rows := make([][]vlcEntry, 4)
	for i := range coeffTokenChromaDC422 {
		rows[i] = coeffTokenChromaDC422[i][:]
	}
	return rows
}

// scanVLCRows is the bit-at-a-time first-match-wins scan shared by every
// coeff_token variant, where row index is TrailingOnes and column index is
// TotalCoeff.
func scanVLCRows(r *bits.Cursor, rows [][]vlcEntry, maxLen int) (totalCoeff, trailingOnes int, err error) {
	var length int
	var value uint32
	for length < maxLen {
		bit, err := r.U(1)
		if err != nil {
			return 0, 0, err
		}
		value = value<<1 | uint32(bit)
		length++
		for t1, row := range rows {
			for tc, e := range row {
				if e.length == length && e.code == value {
					return tc, t1, nil
				}
			}
		}
	}
	return 0, 0, ErrCavlcUnknownCode
}

// levelPrefix reads level_prefix: the number of leading zero bits before the
// terminating 1, per clause 9.2.2.1.
func levelPrefix(r *bits.Cursor) (int, error) {
	n := 0
	for {
		bit, err := r.U(1)
		if err != nil {
			return 0, err
		}
		if bit == 1 {
			return n, nil
		}
		n++
		if n > 63 {
			return 0, ErrCavlcUnknownCode
		}
	}
}

// abs returns the absolute value of a.
func abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

// levelSuffixSize computes the level_suffix bit length for the current
// level_prefix/suffixLength state, per clause 9.2.2.1.
func levelSuffixSize(levelPrefix, suffixLength int) int {
	if levelPrefix == 14 && suffixLength == 0 {
		return 4
	}
	if levelPrefix >= 15 {
		return levelPrefix - 3
	}
	return suffixLength
}

// totalZeros reads total_zeros for the general (luma/4:2:0 chroma AC,
// maxNumCoeff == 16) case, given the already-decoded TotalCoeff.
func totalZeros(r *bits.Cursor, totalCoeff int) (int, error) {
	if totalCoeff <= 0 || totalCoeff > 15 {
		return 0, errInvalidValue("total_zeros totalCoeff")
	}
	return scanFlatVLC(r, totalZerosTable[totalCoeff-1])
}

// chromaDCTotalZeros reads total_zeros for a 4:2:0 chroma DC block
// (maxNumCoeff == 4).
func chromaDCTotalZeros(r *bits.Cursor, totalCoeff int) (int, error) {
	if totalCoeff <= 0 || totalCoeff > 3 {
		return 0, errInvalidValue("chroma total_zeros totalCoeff")
	}
	return scanFlatVLC(r, chromaDCTotalZerosTable[totalCoeff-1])
}

// runBefore reads run_before for a given zerosLeft, per Table 9-10.
func runBefore(r *bits.Cursor, zerosLeft int) (int, error) {
	if zerosLeft <= 0 {
		return 0, nil
	}
	idx := zerosLeft - 1
	if idx > 6 {
		idx = 6
	}
	return scanFlatVLC(r, runBeforeTable[idx])
}

// scanFlatVLC performs the same bit-at-a-time first-match scan as
// scanVLCRows but against a single flat table indexed directly by the
// decoded value (total_zeros, run_before).
func scanFlatVLC(r *bits.Cursor, table []vlcEntry) (int, error) {
	var length int
	var value uint32
	for length < 16 {
		bit, err := r.U(1)
		if err != nil {
			return 0, err
		}
		value = value<<1 | uint32(bit)
		length++
		for v, e := range table {
			if e.length == length && e.code == value {
				return v, nil
			}
		}
	}
	return 0, ErrCavlcUnknownCode
}

// residualBlockCAVLC decodes one residual block per clause 9.2/7.3.5.3.1
// into coeffLevel, whose length is the block's maxNumCoeff. Decoded levels
// are scattered into coeffLevel[startIdx..startIdx+coeffNum] in scan order;
// the remaining entries are zeroed. The caller supplies nC, derived from
// neighbouring-block state per clause 9.2.1 (or -1/-2 for chroma DC).
func residualBlockCAVLC(r *bits.Cursor, coeffLevel []int, startIdx, endIdx, nC int) (totalCoeffOut int, err error) {
	maxNumCoeff := len(coeffLevel)
	for i := range coeffLevel {
		coeffLevel[i] = 0
	}

	totalCoeff, trailingOnes, err := coeffToken(r, nC)
	if err != nil {
		return 0, err
	}
	if totalCoeff == 0 {
		return 0, nil
	}

	levelVal := make([]int, totalCoeff)
	suffixLength := 0
	if totalCoeff > 10 && trailingOnes < 3 {
		suffixLength = 1
	}
	for i := 0; i < totalCoeff; i++ {
		if i < trailingOnes {
			sign, err := r.U(1)
			if err != nil {
				return 0, err
			}
			if sign == 1 {
				levelVal[i] = -1
			} else {
				levelVal[i] = 1
			}
			continue
		}
		prefix, err := levelPrefix(r)
		if err != nil {
			return 0, err
		}
		suffixLen := levelSuffixSize(prefix, suffixLength)
		var suffix uint64
		if suffixLen > 0 {
			suffix, err = r.U(suffixLen)
			if err != nil {
				return 0, err
			}
		}
		levelCode := min(15, prefix)<<suffixLength + int(suffix)
		if prefix >= 15 && suffixLength == 0 {
			levelCode += 15
		}
		if prefix >= 16 {
			levelCode += (1 << uint(prefix-3)) - 4096
		}
		if i == trailingOnes && trailingOnes < 3 {
			levelCode += 2
		}
		if levelCode%2 == 0 {
			levelVal[i] = (levelCode + 2) >> 1
		} else {
			levelVal[i] = (-levelCode - 1) >> 1
		}
		if suffixLength == 0 {
			suffixLength = 1
		}
		if abs(levelVal[i]) > (3 << uint(suffixLength-1)) && suffixLength < 6 {
			suffixLength++
		}
	}

	var tz int
	if totalCoeff < endIdx-startIdx+1 {
		switch maxNumCoeff {
		case 4:
			tz, err = chromaDCTotalZeros(r, totalCoeff)
		case 8:
			err = errUnsupported("4:2:2 chroma DC total_zeros")
		default:
			tz, err = totalZeros(r, totalCoeff)
		}
		if err != nil {
			return 0, err
		}
	}

	runVal := make([]int, totalCoeff)
	zerosLeft := tz
	for i := 0; i < totalCoeff-1; i++ {
		if zerosLeft <= 0 {
			runVal[i] = 0
			continue
		}
		rv, err := runBefore(r, zerosLeft)
		if err != nil {
			return 0, err
		}
		runVal[i] = rv
		zerosLeft -= rv
	}
	runVal[totalCoeff-1] = zerosLeft

	coeffNum := -1
	for i := totalCoeff - 1; i >= 0; i-- {
		coeffNum += runVal[i] + 1
		if startIdx+coeffNum < 0 || startIdx+coeffNum >= maxNumCoeff {
			return 0, errInvalidValue("residual coeffNum")
		}
		coeffLevel[startIdx+coeffNum] = levelVal[i]
	}

	return totalCoeff, nil
}

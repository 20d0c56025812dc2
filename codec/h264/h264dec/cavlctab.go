/*
DESCRIPTION
  cavlctab.go holds the static VLC tables CAVLC residual decoding is driven
  by: coeff_token (Table 9-5, one column per nC range),
  total_zeros (Tables 9-7/9-8) and run_before (Table 9-10).

  The three luma coeff_token tables (nC in [0,2), [2,4), [4,8)) are
  transcribed from the lookup tables h26x-extractor's cavlc.py builds from
  ITU-T H.264 Table 9-5; nC >= 8 uses the fixed 6-bit code documented in the
  same clause rather than a table. The chroma DC tables (nC == -1 and -2),
  total_zeros and run_before tables are not present anywhere in the
  retrieved reference material (the upstream project loads them from data
  files that were not kept) and have been reconstructed here from the
  published standard tables.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package h264dec

// vlcEntry is one (length, code) pair of a variable-length code table. A
// zero length marks an entry that the standard does not define (TrailingOnes
// cannot exceed TotalCoeff).
type vlcEntry struct {
	length int
	code   uint32
}

// coeffTokenLuma holds the three nC-range tables used for 4:2:0/4:2:2/4:4:4
// luma and Cb/Cr AC blocks. Row index is TrailingOnes (0..3), column index
// is TotalCoeff (0..16).
var coeffTokenLuma = [3][4][17]vlcEntry{
	// 0 <= nC < 2
	{
		{{1, 1}, {6, 5}, {8, 7}, {9, 7}, {10, 7}, {11, 7}, {13, 15}, {13, 11}, {13, 8}, {14, 15}, {14, 11}, {15, 15}, {15, 11}, {16, 15}, {16, 11}, {16, 7}, {16, 4}},
		{{0, 0}, {2, 1}, {6, 4}, {8, 6}, {9, 6}, {10, 6}, {11, 6}, {13, 14}, {13, 10}, {14, 14}, {14, 10}, {15, 14}, {15, 10}, {15, 1}, {16, 14}, {16, 10}, {16, 6}},
		{{0, 0}, {0, 0}, {3, 1}, {7, 5}, {8, 5}, {9, 5}, {10, 5}, {11, 5}, {13, 13}, {13, 9}, {14, 13}, {14, 9}, {15, 13}, {15, 9}, {16, 13}, {16, 9}, {16, 5}},
		{{0, 0}, {0, 0}, {0, 0}, {5, 3}, {6, 3}, {7, 4}, {8, 4}, {9, 4}, {10, 4}, {11, 4}, {13, 12}, {14, 12}, {14, 8}, {15, 12}, {15, 8}, {16, 12}, {16, 8}},
	},
	// 2 <= nC < 4
	{
		{{2, 3}, {6, 11}, {6, 7}, {7, 7}, {8, 7}, {8, 4}, {9, 7}, {11, 15}, {11, 11}, {12, 15}, {12, 11}, {12, 8}, {13, 15}, {13, 11}, {13, 7}, {14, 9}, {14, 7}},
		{{0, 0}, {2, 2}, {5, 7}, {6, 10}, {6, 6}, {7, 6}, {8, 6}, {9, 6}, {11, 14}, {11, 10}, {12, 14}, {12, 10}, {13, 14}, {13, 10}, {14, 11}, {14, 8}, {14, 6}},
		{{0, 0}, {0, 0}, {3, 3}, {6, 9}, {6, 5}, {7, 5}, {8, 5}, {9, 5}, {11, 13}, {11, 9}, {12, 13}, {12, 9}, {13, 13}, {13, 9}, {13, 6}, {14, 10}, {14, 5}},
		{{0, 0}, {0, 0}, {0, 0}, {4, 5}, {4, 4}, {5, 6}, {6, 8}, {6, 4}, {7, 4}, {9, 4}, {11, 12}, {11, 8}, {12, 12}, {13, 12}, {13, 8}, {13, 1}, {14, 4}},
	},
	// 4 <= nC < 8
	{
		{{4, 15}, {6, 15}, {6, 11}, {6, 8}, {7, 15}, {7, 11}, {7, 9}, {7, 8}, {8, 15}, {8, 11}, {9, 15}, {9, 11}, {9, 8}, {10, 13}, {10, 9}, {10, 5}, {10, 1}},
		{{0, 0}, {4, 14}, {5, 15}, {5, 12}, {5, 10}, {5, 8}, {6, 14}, {6, 10}, {7, 14}, {8, 14}, {8, 10}, {9, 14}, {9, 10}, {9, 7}, {10, 12}, {10, 8}, {10, 4}},
		{{0, 0}, {0, 0}, {4, 13}, {5, 14}, {5, 11}, {5, 9}, {6, 13}, {6, 9}, {7, 13}, {7, 10}, {8, 13}, {8, 9}, {9, 13}, {9, 9}, {10, 11}, {10, 7}, {10, 3}},
		{{0, 0}, {0, 0}, {0, 0}, {4, 12}, {4, 11}, {4, 10}, {4, 9}, {4, 8}, {5, 13}, {6, 12}, {7, 12}, {8, 12}, {8, 8}, {9, 12}, {10, 10}, {10, 6}, {10, 2}},
	},
}

// coeffTokenChromaDC420 is Table 9-5's nC == -1 column, used for the 2x2
// chroma DC block of 4:2:0 sequences (maxNumCoeff == 4). Row index is
// TrailingOnes (0..3), column index is TotalCoeff (0..4).
var coeffTokenChromaDC420 = [4][5]vlcEntry{
	{{2, 1}, {6, 7}, {6, 4}, {6, 3}, {6, 2}},
	{{0, 0}, {1, 1}, {6, 6}, {7, 3}, {8, 3}},
	{{0, 0}, {0, 0}, {3, 1}, {7, 2}, {8, 2}},
	{{0, 0}, {0, 0}, {0, 0}, {6, 5}, {7, 0}},
}

// coeffTokenChromaDC422 is Table 9-5's nC == -2 column, used for the 2x4
// chroma DC block of 4:2:2 sequences (maxNumCoeff == 8). Row index is
// TrailingOnes (0..3), column index is TotalCoeff (0..8).
var coeffTokenChromaDC422 = [4][9]vlcEntry{
	{{1, 1}, {7, 15}, {7, 14}, {9, 7}, {9, 6}, {10, 7}, {11, 7}, {12, 7}, {13, 7}},
	{{0, 0}, {2, 1}, {7, 13}, {7, 12}, {9, 5}, {10, 6}, {11, 6}, {12, 6}, {12, 5}},
	{{0, 0}, {0, 0}, {3, 1}, {7, 11}, {7, 10}, {9, 4}, {10, 5}, {11, 5}, {12, 4}},
	{{0, 0}, {0, 0}, {0, 0}, {5, 1}, {6, 1}, {7, 9}, {7, 8}, {10, 4}, {11, 4}},
}

// coeffTokenNC8Plus decodes the fixed 6-bit code used when nC >= 8, per
// clause 9.2.1: a plain fixed-length code rather than a VLC table.
func coeffTokenNC8Plus(code uint32) (totalCoeff, trailingOnes int, ok bool) {
	switch code {
	case 3:
		return 0, 0, true
	case 0:
		return 1, 0, true
	case 1:
		return 1, 1, true
	}
	return int(code/4) + 1, int(code % 4), true
}

// totalZerosTable holds Table 9-7/9-8: indexed [totalCoeff-1][totalZeros].
// Valid for the general (maxNumCoeff == 16) case.
var totalZerosTable = [15][]vlcEntry{
	{{1, 1}, {3, 3}, {3, 2}, {4, 3}, {4, 2}, {5, 3}, {5, 2}, {6, 3}, {6, 2}, {7, 3}, {7, 2}, {8, 3}, {8, 2}, {9, 3}, {9, 2}, {9, 1}},
	{{3, 7}, {3, 6}, {3, 5}, {3, 4}, {3, 3}, {4, 5}, {4, 4}, {4, 3}, {4, 2}, {5, 3}, {5, 2}, {6, 3}, {6, 2}, {6, 1}, {6, 0}},
	{{4, 5}, {3, 7}, {3, 6}, {3, 5}, {4, 4}, {4, 3}, {3, 4}, {3, 3}, {4, 2}, {5, 3}, {5, 2}, {6, 1}, {5, 1}, {6, 0}},
	{{5, 3}, {3, 7}, {4, 5}, {4, 4}, {3, 6}, {3, 5}, {3, 4}, {4, 3}, {3, 3}, {4, 2}, {5, 2}, {5, 1}, {5, 0}},
	{{4, 5}, {4, 4}, {4, 3}, {3, 7}, {3, 6}, {3, 5}, {3, 4}, {3, 3}, {4, 2}, {5, 1}, {4, 1}, {5, 0}},
	{{6, 1}, {5, 1}, {3, 7}, {3, 6}, {3, 5}, {3, 4}, {3, 3}, {3, 2}, {4, 1}, {3, 1}, {6, 0}},
	{{6, 1}, {5, 1}, {3, 5}, {3, 4}, {3, 3}, {2, 3}, {3, 2}, {4, 1}, {3, 1}, {6, 0}},
	{{6, 1}, {4, 1}, {5, 1}, {3, 3}, {2, 3}, {2, 2}, {3, 2}, {3, 1}, {6, 0}},
	{{6, 1}, {6, 0}, {4, 1}, {2, 3}, {2, 2}, {3, 1}, {2, 1}, {5, 1}},
	{{5, 1}, {5, 0}, {3, 1}, {2, 3}, {2, 2}, {2, 1}, {4, 1}},
	{{4, 0}, {4, 1}, {3, 1}, {3, 2}, {1, 1}, {3, 3}},
	{{4, 0}, {4, 1}, {2, 1}, {1, 1}, {3, 1}},
	{{3, 0}, {3, 1}, {1, 1}, {2, 1}},
	{{2, 0}, {2, 1}, {1, 1}},
	{{1, 0}, {1, 1}},
}

// chromaDCTotalZerosTable is the maxNumCoeff == 4 variant of total_zeros
// used for the 4:2:0 chroma DC block, indexed [totalCoeff-1][totalZeros].
var chromaDCTotalZerosTable = [3][]vlcEntry{
	{{1, 1}, {2, 1}, {3, 1}, {3, 0}},
	{{1, 1}, {2, 1}, {2, 0}},
	{{1, 1}, {1, 0}},
}

// runBeforeTable is Table 9-10, indexed [min(zerosLeft,7)-1][run_before].
// The final row (zerosLeft > 6) is shared by every larger zerosLeft value.
var runBeforeTable = [7][]vlcEntry{
	{{1, 1}, {1, 0}},
	{{1, 1}, {2, 1}, {2, 0}},
	{{2, 3}, {2, 2}, {2, 1}, {2, 0}},
	{{2, 3}, {2, 2}, {2, 1}, {3, 1}, {3, 0}},
	{{2, 3}, {2, 2}, {3, 3}, {3, 2}, {3, 1}, {3, 0}},
	{{2, 3}, {3, 0}, {3, 1}, {3, 3}, {3, 2}, {3, 5}, {3, 4}},
	{{3, 7}, {3, 6}, {3, 5}, {3, 4}, {3, 3}, {3, 2}, {3, 1}, {4, 1}, {5, 1}, {6, 1}, {7, 1}, {8, 1}, {9, 1}, {10, 1}, {11, 1}},
}

/*
DESCRIPTION
  cavlc_test.go provides testing for functionality in cavlc.go.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

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

	"github.com/google/go-cmp/cmp"

	"github.com/ausocean/h264ab/codec/h264/h264dec/bits"
)

func mustBits(t *testing.T, s string) []byte {
	t.Helper()
	b, err := binToSlice(s)
	if err != nil {
		t.Fatalf("binToSlice(%q): %v", s, err)
	}
	return b
}

// bitString renders an n-bit code value as a binary string for feeding
// back through the decoder.
func bitString(length int, code uint32) string {
	s := make([]byte, length)
	for i := 0; i < length; i++ {
		if code&(1<<uint(length-1-i)) != 0 {
			s[i] = '1'
		} else {
			s[i] = '0'
		}
	}
	return string(s)
}

func TestCoeffTokenZeroNC(t *testing.T) {
	// nC == 0 range, TotalCoeff=0, TrailingOnes=0 is code "1" (length 1).
	b := mustBits(t, "1")
	c := bits.NewCursor(b)
	tc, t1, err := coeffToken(c, 0)
	if err != nil {
		t.Fatalf("coeffToken: %v", err)
	}
	if tc != 0 || t1 != 0 {
		t.Errorf("got (%d,%d), want (0,0)", tc, t1)
	}
}

// TestCoeffTokenCoverage decodes every defined code of every coeff_token
// table and checks the decoder returns its (TotalCoeff, TrailingOnes) pair
// and advances the cursor by exactly the code length.
func TestCoeffTokenCoverage(t *testing.T) {
	check := func(name string, nC int, rows [][]vlcEntry) {
		for t1, row := range rows {
			for tc, e := range row {
				if e.length == 0 {
					continue
				}
				// Pad with ones so the cursor can always be advanced past the code.
				b := mustBits(t, bitString(e.length, e.code)+"11111111")
				c := bits.NewCursor(b)
				gotTC, gotT1, err := coeffToken(c, nC)
				if err != nil {
					t.Errorf("%s (%d,%d): %v", name, tc, t1, err)
					continue
				}
				if gotTC != tc || gotT1 != t1 {
					t.Errorf("%s code %s: got (%d,%d), want (%d,%d)", name, bitString(e.length, e.code), gotTC, gotT1, tc, t1)
				}
				if c.Pos() != e.length {
					t.Errorf("%s (%d,%d): cursor at %d, want %d", name, tc, t1, c.Pos(), e.length)
				}
			}
		}
	}
	check("nC 0-1", 0, lumaRows(0))
	check("nC 2-3", 2, lumaRows(1))
	check("nC 4-7", 4, lumaRows(2))
	check("chroma DC 4:2:0", -1, chromaDCRows())
	check("chroma DC 4:2:2", -2, chromaDC422Rows())
}

// TestCoeffTokenNC8Plus exercises the fixed 6-bit fast path used when
// nC >= 8.
func TestCoeffTokenNC8Plus(t *testing.T) {
	tests := []struct {
		in       string
		wantTC   int
		wantT1   int
	}{
		{"000011", 0, 0},
		{"000000", 1, 0},
		{"000001", 1, 1},
		{"000110", 2, 2},
		{"111111", 16, 3},
	}
	for _, tt := range tests {
		c := bits.NewCursor(mustBits(t, tt.in))
		tc, t1, err := coeffToken(c, 8)
		if err != nil {
			t.Fatalf("coeffToken(%q): %v", tt.in, err)
		}
		if tc != tt.wantTC || t1 != tt.wantT1 {
			t.Errorf("coeffToken(%q) = (%d,%d), want (%d,%d)", tt.in, tc, t1, tt.wantTC, tt.wantT1)
		}
	}
}

func TestLevelPrefix(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"1", 0},
		{"01", 1},
		{"001", 2},
		{"0001", 3},
		{"00000001", 7},
	}
	for _, tt := range tests {
		c := bits.NewCursor(mustBits(t, tt.in))
		got, err := levelPrefix(c)
		if err != nil {
			t.Fatalf("levelPrefix(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("levelPrefix(%q) = %d, want %d", tt.in, got, tt.want)
		}
		if c.Pos() != len(tt.in) {
			t.Errorf("levelPrefix(%q): cursor at %d, want %d", tt.in, c.Pos(), len(tt.in))
		}
	}
}

func TestTotalZeros(t *testing.T) {
	// maxNumCoeff == 4 table, tzVlcIndex 1: bit "1" decodes 0.
	c := bits.NewCursor(mustBits(t, "1"))
	got, err := chromaDCTotalZeros(c, 1)
	if err != nil {
		t.Fatalf("chromaDCTotalZeros: %v", err)
	}
	if got != 0 {
		t.Errorf("chromaDCTotalZeros = %d, want 0", got)
	}
	if c.Pos() != 1 {
		t.Errorf("cursor at %d, want 1", c.Pos())
	}

	// General table, tzVlcIndex 1: bits "011" decode 1.
	c = bits.NewCursor(mustBits(t, "011"))
	got, err = totalZeros(c, 1)
	if err != nil {
		t.Fatalf("totalZeros: %v", err)
	}
	if got != 1 {
		t.Errorf("totalZeros = %d, want 1", got)
	}
}

func TestRunBefore(t *testing.T) {
	tests := []struct {
		zerosLeft int
		in        string
		want      int
	}{
		{1, "1", 0},
		{1, "0", 1},
		{3, "11", 0},
		{3, "00", 3},
		{7, "111", 0},
		{7, "0001", 7},
		{10, "00000001", 11},
	}
	for _, tt := range tests {
		c := bits.NewCursor(mustBits(t, tt.in))
		got, err := runBefore(c, tt.zerosLeft)
		if err != nil {
			t.Fatalf("runBefore(%d, %q): %v", tt.zerosLeft, tt.in, err)
		}
		if got != tt.want {
			t.Errorf("runBefore(%d, %q) = %d, want %d", tt.zerosLeft, tt.in, got, tt.want)
		}
	}
}

func TestResidualBlockCAVLCAllZero(t *testing.T) {
	// coeff_token for (TotalCoeff=0, TrailingOnes=0) at nC==0 is "1".
	c := bits.NewCursor(mustBits(t, "1"))
	levels := make([]int, 16)
	totalCoeff, err := residualBlockCAVLC(c, levels, 0, 15, 0)
	if err != nil {
		t.Fatalf("residualBlockCAVLC: %v", err)
	}
	if totalCoeff != 0 {
		t.Errorf("totalCoeff = %d, want 0", totalCoeff)
	}
	for i, v := range levels {
		if v != 0 {
			t.Errorf("levels[%d] = %d, want 0", i, v)
		}
	}
}

// TestResidualBlockCAVLCTrailingOnes decodes a block of two trailing ones
// separated by a zero run and checks the combine step scatters the levels
// correctly: coeff_token (TC=2,T1=2) "001", signs "0" (+1) and "1" (-1),
// total_zeros 1 ("110" at tzVlcIndex 2), run_before 1 ("0").
func TestResidualBlockCAVLCTrailingOnes(t *testing.T) {
	c := bits.NewCursor(mustBits(t, "001" + "0" + "1" + "110" + "0"))
	levels := make([]int, 16)
	totalCoeff, err := residualBlockCAVLC(c, levels, 0, 15, 0)
	if err != nil {
		t.Fatalf("residualBlockCAVLC: %v", err)
	}
	if totalCoeff != 2 {
		t.Errorf("totalCoeff = %d, want 2", totalCoeff)
	}
	want := make([]int, 16)
	want[0] = -1
	want[2] = 1
	if diff := cmp.Diff(want, levels); diff != "" {
		t.Errorf("unexpected levels (-want +got):\n%s", diff)
	}
}

// TestResidualBlockCAVLCLevelPrefix decodes a single non-trailing-one
// coefficient: coeff_token (TC=1,T1=0) at nC==0 is "000101"; level_prefix
// 0 ("1") with the trailing-ones adjustment gives levelCode 2 -> +2;
// total_zeros for tzVlcIndex 1 "1" decodes 0, so the level lands at index
// 0.
func TestResidualBlockCAVLCLevelPrefix(t *testing.T) {
	c := bits.NewCursor(mustBits(t, "000101" + "1" + "1"))
	levels := make([]int, 16)
	totalCoeff, err := residualBlockCAVLC(c, levels, 0, 15, 0)
	if err != nil {
		t.Fatalf("residualBlockCAVLC: %v", err)
	}
	if totalCoeff != 1 {
		t.Errorf("totalCoeff = %d, want 1", totalCoeff)
	}
	if levels[0] != 2 {
		t.Errorf("levels[0] = %d, want 2", levels[0])
	}
}

func TestResidualBlockCAVLCUnknownCode(t *testing.T) {
	// 16 zero bits match nothing in the nC 0-1 table.
	c := bits.NewCursor(mustBits(t, "0000000000000000"))
	levels := make([]int, 16)
	if _, err := residualBlockCAVLC(c, levels, 0, 15, 0); err != ErrCavlcUnknownCode {
		t.Fatalf("got err %v, want ErrCavlcUnknownCode", err)
	}
}

// FuzzResidualBlockCAVLC exercises residualBlockCAVLC against arbitrary
// bitstreams: the decoder must only ever return either a well-formed
// coefficient array or one of the documented sentinel errors, never panic
// or loop forever (the VLC scan functions cap their bit budget explicitly
// for this reason).
func FuzzResidualBlockCAVLC(f *testing.F) {
	f.Add([]byte{0xff, 0x00, 0x12, 0x34}, 0)
	f.Add([]byte{0x00, 0x00, 0x00}, -1)
	f.Add([]byte{0x7f, 0xaa}, 10)
	f.Fuzz(func(t *testing.T, data []byte, nC int) {
		maxNumCoeff := 16
		if nC == -1 {
			maxNumCoeff = 4
		}
		if nC < -2 {
			nC = 0
		}
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("residualBlockCAVLC panicked: %v", r)
			}
		}()
		levels := make([]int, maxNumCoeff)
		totalCoeff, err := residualBlockCAVLC(bits.NewCursor(data), levels, 0, maxNumCoeff-1, nC)
		if err == nil && (totalCoeff < 0 || totalCoeff > maxNumCoeff) {
			t.Fatalf("invalid result: totalCoeff=%d maxNumCoeff=%d", totalCoeff, maxNumCoeff)
		}
	})
}

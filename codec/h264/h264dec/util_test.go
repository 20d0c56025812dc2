/*
DESCRIPTION
  util_test.go provides shared helpers for this package's tests: syntax
  element sequences are written out as binary strings and packed into
  bytes for feeding to the parsers.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package h264dec

import (
	"fmt"
	"strings"
)

// binToSlice packs a string of '0' and '1' characters into bytes, MSB
// first, zero-padding the final byte. Spaces may be used to group fields
// and are ignored.
func binToSlice(s string) ([]byte, error) {
	s = strings.ReplaceAll(s, " ", "")
	out := make([]byte, (len(s)+7)/8)
	for i, c := range s {
		switch c {
		case '1':
			out[i/8] |= 0x80 >> uint(i%8)
		case '0':
		default:
			return nil, fmt.Errorf("invalid binary digit %q", c)
		}
	}
	return out, nil
}

/*
DESCRIPTION
  aud.go parses the access unit delimiter RBSP (clause 7.3.2.4): a single
  3-bit primary_pic_type field followed by rbsp_trailing_bits().

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package h264dec

import "github.com/ausocean/h264ab/codec/h264/h264dec/bits"

// AUD describes an access_unit_delimiter_rbsp(), clause 7.3.2.4.
type AUD struct {
	PrimaryPicType uint8
}

// NewAUD parses an access unit delimiter RBSP from r.
func NewAUD(r *bits.Cursor) (*AUD, error) {
	v, err := r.U(3)
	if err != nil {
		return nil, err
	}
	return &AUD{PrimaryPicType: uint8(v)}, nil
}

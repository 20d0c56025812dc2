/*
DESCRIPTION
  errors.go provides the error taxonomy shared by the SPS, PPS, slice and
  CAVLC parsers: every failure mode a caller might need to distinguish is
  enumerated here rather than left as ad-hoc wrapped errors.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h264dec

import (
	"github.com/pkg/errors"

	"github.com/ausocean/h264ab/codec/h264/h264dec/bits"
)

// ErrTruncated indicates that a syntax element could not be read because the
// bitstream was exhausted first. It is the bits package's sentinel, re-exported
// so callers need not import bits to match on it.
var ErrTruncated = bits.ErrTruncated

// ErrCavlcUnknownCode indicates that a CAVLC VLC decode ran past the
// relevant table's maximum code length without finding a match.
var ErrCavlcUnknownCode = errors.New("h264dec: unknown CAVLC code")

// UnsupportedError indicates that the bitstream exercises a feature this
// parser deliberately does not implement (CABAC, scaling matrices, slice
// group map types other than 0, 4:4:4 neighbour derivation, 4:2:2 chroma DC
// total_zeros, and MBAFF address derivation beyond the frame/field cases
// this package covers).
type UnsupportedError struct {
	Feature string
}

func (e *UnsupportedError) Error() string { return "h264dec: unsupported: " + e.Feature }

// errUnsupported constructs an UnsupportedError for feature.
func errUnsupported(feature string) error { return &UnsupportedError{Feature: feature} }

// InvalidValueError indicates a syntax element took a value the standard
// forbids (e.g. a reserved bit pattern, or a stop bit that was not 1).
type InvalidValueError struct {
	Field string
}

func (e *InvalidValueError) Error() string { return "h264dec: invalid value for " + e.Field }

func errInvalidValue(field string) error { return &InvalidValueError{Field: field} }

// MissingParameterSetError indicates a slice referenced an SPS or PPS id
// that has not been installed into the decoding context.
type MissingParameterSetError struct {
	Kind string // "SPS" or "PPS"
	ID   int
}

func (e *MissingParameterSetError) Error() string {
	return "h264dec: missing " + e.Kind + " parameter set"
}

/*
NAME
  list.go

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved. 

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


package codecutil

// All available input formats for reference in any application.
// When adding or removing a format from this list, the IsValid function below must be updated.
const (
	H264    = "h264"    // h264 bytestream (requires lexing).
	H264_AU = "h264_au" // Discrete h264 access units.
	MTS     = "mts"     // MPEG-TS container carrying an h264 program.
)

// IsValid checks if a string is a known and valid format in the right form.
func IsValid(s string) bool {
	switch s {
	case H264, H264_AU, MTS:
		return true
	default:
		return false
	}
}

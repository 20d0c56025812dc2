/*
DESCRIPTION
  epb.go provides the emulation prevention byte codec described in section
  7.3.1 and 7.4.1 of ITU-T H.264: the bidirectional conversion between a NALU
  byte stream payload and its raw byte sequence payload (RBSP).

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

// DecodeRBSP strips emulation prevention bytes from nalu, a NALU payload
// (header included), returning the RBSP. Whenever the sequence 00 00 03 is
// encountered, the 03 byte is dropped, the two zero bytes are kept, and
// scanning resumes after the dropped byte.
func DecodeRBSP(nalu []byte) []byte {
	out := make([]byte, 0, len(nalu))
	zeros := 0
	for i := 0; i < len(nalu); i++ {
		b := nalu[i]
		if zeros >= 2 && b == 0x03 {
			zeros = 0
			continue
		}
		if b == 0x00 {
			zeros++
		} else {
			zeros = 0
		}
		out = append(out, b)
	}
	return out
}

// EncodeRBSP inserts emulation prevention bytes into data, a raw byte
// sequence payload, returning the corresponding NALU payload. Whenever two
// zero bytes would be immediately followed by a byte in {00,01,02,03}, a 03
// byte is inserted between them and it, so that DecodeRBSP(EncodeRBSP(x)) ==
// x for all x.
func EncodeRBSP(data []byte) []byte {
	out := make([]byte, 0, len(data)+len(data)/3+1)
	zeros := 0
	for _, b := range data {
		if zeros >= 2 && b <= 0x03 {
			out = append(out, 0x03)
			zeros = 0
		}
		out = append(out, b)
		if b == 0x00 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return out
}

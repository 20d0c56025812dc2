/*
DESCRIPTION
  transform.go provides a per-NALU rewriting pass over an Annex-B byte
  stream: each NAL unit's payload is replaced by the result of a
  caller-supplied function while every byte outside the payload ranges
  (start codes, any prologue before the first start code) is carried
  through verbatim. Selective slice encryption is the motivating use; the
  pass itself knows nothing about what the callback does.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package h264dec

// TransformFunc rewrites one NAL unit. payload is the framed NALU bytes
// (header included, emulation prevention bytes intact); the remaining
// arguments are the decoded header fields. The returned bytes replace the
// payload in the output stream and may differ in length, but must
// themselves be free of start-code patterns (re-escape with EncodeRBSP
// after modifying unescaped data).
type TransformFunc func(payload []byte, forbiddenZeroBit, refIdc, naluType uint8) ([]byte, error)

// Transform rewrites each NAL unit of the Annex-B stream data with f,
// preserving all bytes outside NALU payload ranges. With an identity f the
// output equals the input byte for byte.
func Transform(data []byte, f TransformFunc) ([]byte, error) {
	prologue, ranges := Scan(data)

	out := make([]byte, 0, len(data))
	out = append(out, prologue...)

	prevEnd := len(prologue) - 1
	for _, rng := range ranges {
		// Start code (and any other bytes) between the previous NALU and
		// this one.
		out = append(out, data[prevEnd+1:rng.Start]...)

		p, err := f(rng.Payload(data), rng.ForbiddenZeroBit, rng.RefIdc, rng.Type)
		if err != nil {
			return nil, err
		}
		out = append(out, p...)
		prevEnd = rng.End
	}
	out = append(out, data[prevEnd+1:]...)
	return out, nil
}

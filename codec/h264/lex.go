/*
NAME
  lex.go

DESCRIPTION
  lex.go provides a lexer to lex an h264 bytestream into access units.

AUTHOR
  Dan Kortschak <dan@ausocean.org>
  Saxon Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package h264 provides an h264 bytestream lexer and NAL unit inspection
// utilities.
package h264

import (
	"io"
	"time"

	"github.com/ausocean/h264ab/codec/h264/h264dec"
)

var noDelay = make(chan time.Time)

func init() {
	close(noDelay)
}

// audPrefix is written ahead of each access unit so that downstream
// consumers see explicit access unit delimiters.
var audPrefix = [...]byte{0x00, 0x00, 0x01, 0x09, 0xf0}

// Lex lexes H.264 NAL units read from src into separate writes to dst,
// with successive writes being performed not earlier than the specified
// delay. A write is performed once a NAL unit of type 1 (coded slice of a
// non-IDR picture), 5 (coded slice of an IDR picture), 6 (SEI) or 8
// (picture parameter set) has been completed by the start code of the
// unit after it; each write is prefixed with an access unit delimiter.
//
// NAL units are accumulated until their terminating start code arrives,
// so a stream that does not end on a start code leaves its final access
// unit unwritten and Lex returns io.ErrUnexpectedEOF.
func Lex(dst io.Writer, src io.Reader, delay time.Duration) error {
	var tick <-chan time.Time
	if delay == 0 {
		tick = noDelay
	} else {
		ticker := time.NewTicker(delay)
		defer ticker.Stop()
		tick = ticker.C
	}

	const chunkSize = 4 << 10
	chunk := make([]byte, chunkSize)
	buf := make([]byte, 0, 2*chunkSize)
	au := make([]byte, 0, 2*chunkSize)

	for {
		n, rerr := src.Read(chunk)
		buf = append(buf, chunk[:n]...)

		// Drop any bytes before the first start code; once synchronised,
		// buf always begins at one and neither branch applies.
		if p, _ := nextStartCode(buf, 0); p > 0 {
			buf = buf[p:]
		} else if p < 0 && len(buf) > 3 {
			buf = buf[len(buf)-3:]
		}

		// Each NAL unit is complete once the start code of the unit after
		// it has arrived.
		for {
			_, l := nextStartCode(buf, 0)
			if l == 0 {
				break
			}
			next, _ := nextStartCode(buf, l)
			if next < 0 {
				break
			}
			typ := buf[l] & 0x1f
			au = append(au, buf[:next]...)
			buf = buf[next:]

			switch typ {
			case h264dec.NALTypeNonIDRSlice, h264dec.NALTypeIDRSlice,
				h264dec.NALTypeSEI, h264dec.NALTypePPS:
				<-tick
				if _, err := dst.Write(append(audPrefix[:], au...)); err != nil {
					return err
				}
				au = au[:0]
			}
		}

		if rerr != nil {
			if rerr != io.EOF {
				return rerr
			}
			if len(buf) != 0 || len(au) != 0 {
				return io.ErrUnexpectedEOF
			}
			return io.EOF
		}
	}
}

// nextStartCode returns the index and length of the first Annex-B start
// code at or after from in b, or (-1, 0) when none is present. A zero byte
// immediately ahead of a three-byte code (and not before from) makes it a
// four-byte code.
func nextStartCode(b []byte, from int) (pos, length int) {
	for i := from; i+2 < len(b); i++ {
		if b[i] == 0x00 && b[i+1] == 0x00 && b[i+2] == 0x01 {
			if i > from && b[i-1] == 0x00 {
				return i - 1, 4
			}
			return i, 3
		}
	}
	return -1, 0
}

/*
DESCRIPTION
  cursor.go provides a position-tracking bit cursor over an immutable byte
  slice, used to decode the fixed-width and Exp-Golomb syntax elements
  described in section 9.1 of ITU-T H.264.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package bits provides a bit cursor implementation for decoding H.264 RBSP
// syntax elements.
package bits

import "github.com/pkg/errors"

// ErrTruncated is returned when a read would advance the cursor beyond the
// end of the underlying byte slice.
var ErrTruncated = errors.New("bits: truncated read past end of buffer")

// Cursor is an immutable byte payload plus a bit position in [0, 8*len(data)].
// Read operations advance the position; callers may save and restore
// positions with Pos and SeekTo.
type Cursor struct {
	data []byte
	pos  int // bit position
}

// NewCursor returns a new Cursor over data. data is never modified.
func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Len returns the total number of bits in the underlying payload.
func (c *Cursor) Len() int { return len(c.data) * 8 }

// Pos returns the current bit position.
func (c *Cursor) Pos() int { return c.pos }

// SeekTo restores a previously saved bit position. It does not validate that
// pos is in range; a subsequent read will fail with ErrTruncated if it is not.
func (c *Cursor) SeekTo(pos int) { c.pos = pos }

// ByteAligned reports whether the cursor sits at the start of a byte.
func (c *Cursor) ByteAligned() bool { return c.pos%8 == 0 }

// bitAt returns the bit at absolute bit position p.
func (c *Cursor) bitAt(p int) uint64 {
	byt := c.data[p/8]
	shift := 7 - uint(p%8)
	return uint64((byt >> shift) & 1)
}

// U reads n bits, n in [1,64], as an unsigned integer, big-endian MSB-first.
func (c *Cursor) U(n int) (uint64, error) {
	if n < 0 || c.pos+n > c.Len() {
		return 0, ErrTruncated
	}
	var v uint64
	for i := 0; i < n; i++ {
		v = (v << 1) | c.bitAt(c.pos)
		c.pos++
	}
	return v, nil
}

// F is an alias for U, matching the f(n) descriptor of 7.2.
func (c *Cursor) F(n int) (uint64, error) { return c.U(n) }

// I reads n bits as a two's-complement signed integer.
func (c *Cursor) I(n int) (int64, error) {
	u, err := c.U(n)
	if err != nil {
		return 0, err
	}
	if n == 64 {
		return int64(u), nil
	}
	if u&(1<<(uint(n)-1)) != 0 {
		return int64(u) - (1 << uint(n)), nil
	}
	return int64(u), nil
}

// UE reads an unsigned Exp-Golomb coded syntax element, ue(v), as specified
// in 9.1: count leading zero bits k, consume the following 1 bit, read k more
// bits as tail, value = (1<<k) - 1 + tail.
func (c *Cursor) UE() (uint64, error) {
	k := 0
	for {
		b, err := c.U(1)
		if err != nil {
			return 0, err
		}
		if b != 0 {
			break
		}
		k++
	}
	if k == 0 {
		return 0, nil
	}
	tail, err := c.U(k)
	if err != nil {
		return 0, err
	}
	return (uint64(1)<<uint(k) - 1) + tail, nil
}

// SE reads a signed Exp-Golomb coded syntax element, se(v), mapping the
// unsigned code number k via k -> (-1)^(k+1) * ceil(k/2), per 9.1.1.
func (c *Cursor) SE() (int, error) {
	k, err := c.UE()
	if err != nil {
		return 0, errors.Wrap(err, "could not read ue(v) for se(v)")
	}
	half := int64(k+1) / 2
	if k%2 == 0 {
		return int(-half), nil
	}
	return int(half), nil
}

// TE reads a truncated Exp-Golomb coded syntax element, te(v), per 9.1:
// when x (the range) is 1, returns u(1)==0 ? 1 : 0; otherwise behaves as ue(v).
func (c *Cursor) TE(x uint) (uint64, error) {
	if x > 1 {
		return c.UE()
	}
	if x == 1 {
		b, err := c.U(1)
		if err != nil {
			return 0, err
		}
		if b == 0 {
			return 1, nil
		}
		return 0, nil
	}
	return 0, errors.New("bits: te(v) range x must be >= 1")
}

// MoreRBSPData implements more_rbsp_data() of 7.2: it returns true iff there
// exists at least one 1 bit strictly beyond the current position that is not
// part of the rbsp_trailing_bits() pattern (a single 1 bit followed by zero
// padding to the next byte boundary, with nothing after it).
func (c *Cursor) MoreRBSPData() bool {
	total := c.Len()
	if c.pos >= total {
		return false
	}
	// Find the position of the last 1 bit in the buffer.
	lastOne := -1
	for p := total - 1; p >= c.pos; p-- {
		if c.bitAt(p) == 1 {
			lastOne = p
			break
		}
	}
	if lastOne == -1 {
		return false
	}
	// If the only remaining 1 bit is exactly at the current position, that
	// is the rbsp_stop_one_bit itself, not more data.
	return lastOne != c.pos
}

// RBSPTrailingBits consumes the rbsp_trailing_bits() syntax of 7.3.2.11: a
// single 1 bit (rbsp_stop_one_bit) followed by zero bits up to the next byte
// boundary.
func (c *Cursor) RBSPTrailingBits() error {
	b, err := c.U(1)
	if err != nil {
		return errors.Wrap(err, "could not read rbsp_stop_one_bit")
	}
	if b != 1 {
		return errors.New("bits: rbsp_stop_one_bit was not 1")
	}
	for !c.ByteAligned() {
		if _, err := c.U(1); err != nil {
			return errors.Wrap(err, "could not read rbsp_alignment_zero_bit")
		}
	}
	return nil
}

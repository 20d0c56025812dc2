/*
DESCRIPTION
  Package crypt applies selective encryption to H.264 Annex-B streams: the
  payloads of chosen NAL units (typically IDR slices) are enciphered while
  start-code framing, non-selected NAL units and a configurable clear
  prefix of each selected unit are preserved, so that the output remains a
  well-formed Annex-B stream. The cipher itself is opaque to this package;
  any block cipher from the standard library (or elsewhere) can be plugged
  in through the Cipher interface or the CTR/CBC adapters.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package crypt

import (
	"bytes"
	"crypto/cipher"

	"github.com/pkg/errors"

	"github.com/ausocean/h264ab/codec/h264/h264dec"
)

// Cipher enciphers and deciphers byte sequences. Encrypt may change the
// data's length (e.g. block padding); Decrypt must invert it.
type Cipher interface {
	Encrypt(data []byte) ([]byte, error)
	Decrypt(data []byte) ([]byte, error)
}

// Filter selects the NAL units a Processor rewrites, given the framed
// payload and decoded header fields.
type Filter func(payload []byte, forbiddenZeroBit, refIdc, naluType uint8) bool

// IDRSlices selects IDR slices (nal_unit_type 5) only: encrypting just the
// random-access points is the cheapest way to make a stream undecodable.
func IDRSlices(_ []byte, _, _, typ uint8) bool { return typ == h264dec.NALTypeIDRSlice }

// VCLSlices selects all coded slices (nal_unit_type 1 and 5).
func VCLSlices(_ []byte, _, _, typ uint8) bool {
	return typ == h264dec.NALTypeNonIDRSlice || typ == h264dec.NALTypeIDRSlice
}

// DefaultClearLen is the number of leading payload bytes left unencrypted
// on selected NAL units: enough to keep the NAL header and the leading
// slice header fields parseable by inspection tools.
const DefaultClearLen = 8

// Processor rewrites the selected NAL units of an Annex-B stream with a
// Cipher. The zero value is not usable; set Cipher and Select.
type Processor struct {
	Cipher   Cipher
	Select   Filter
	ClearLen int // leading payload bytes kept clear; DefaultClearLen if 0
}

func (p *Processor) clearLen() int {
	if p.ClearLen > 0 {
		return p.ClearLen
	}
	return DefaultClearLen
}

// Encrypt rewrites stream, enciphering each selected NAL unit's payload
// beyond the clear prefix and re-inserting emulation prevention bytes so
// the ciphertext cannot alias a start code.
func (p *Processor) Encrypt(stream []byte) ([]byte, error) {
	return h264dec.Transform(stream, func(payload []byte, fzb, refIdc, typ uint8) ([]byte, error) {
		if !p.Select(payload, fzb, refIdc, typ) || len(payload) <= p.clearLen() {
			return payload, nil
		}
		n := p.clearLen()
		enc, err := p.Cipher.Encrypt(payload[n:])
		if err != nil {
			return nil, errors.Wrap(err, "could not encrypt NALU payload")
		}
		out := make([]byte, 0, n+len(enc))
		out = append(out, payload[:n]...)
		out = append(out, enc...)
		return h264dec.EncodeRBSP(out), nil
	})
}

// Decrypt inverts Encrypt: emulation prevention bytes are stripped from
// each selected NAL unit, and the bytes beyond the clear prefix are
// deciphered.
func (p *Processor) Decrypt(stream []byte) ([]byte, error) {
	return h264dec.Transform(stream, func(payload []byte, fzb, refIdc, typ uint8) ([]byte, error) {
		if !p.Select(payload, fzb, refIdc, typ) || len(payload) <= p.clearLen() {
			return payload, nil
		}
		raw := h264dec.DecodeRBSP(payload)
		n := p.clearLen()
		if len(raw) <= n {
			return payload, nil
		}
		dec, err := p.Cipher.Decrypt(raw[n:])
		if err != nil {
			return nil, errors.Wrap(err, "could not decrypt NALU payload")
		}
		out := make([]byte, 0, n+len(dec))
		out = append(out, raw[:n]...)
		out = append(out, dec...)
		return out, nil
	})
}

// CTR adapts a block cipher in counter mode to the Cipher interface. The
// keystream restarts from IV for every NAL unit, so units can be
// deciphered independently.
type CTR struct {
	Block cipher.Block
	IV    []byte
}

func (c *CTR) apply(data []byte) ([]byte, error) {
	if len(c.IV) != c.Block.BlockSize() {
		return nil, errors.New("IV length does not match cipher block size")
	}
	out := make([]byte, len(data))
	cipher.NewCTR(c.Block, c.IV).XORKeyStream(out, data)
	return out, nil
}

// Encrypt enciphers data with the counter-mode keystream.
func (c *CTR) Encrypt(data []byte) ([]byte, error) { return c.apply(data) }

// Decrypt deciphers data; counter mode is symmetric.
func (c *CTR) Decrypt(data []byte) ([]byte, error) { return c.apply(data) }

// CBC adapts a block cipher in CBC mode with PKCS#7 padding to the Cipher
// interface.
type CBC struct {
	Block cipher.Block
	IV    []byte
}

// Encrypt pads data to the block size and enciphers it in CBC mode.
func (c *CBC) Encrypt(data []byte) ([]byte, error) {
	bs := c.Block.BlockSize()
	if len(c.IV) != bs {
		return nil, errors.New("IV length does not match cipher block size")
	}
	pad := bs - len(data)%bs
	padded := make([]byte, len(data)+pad)
	copy(padded, data)
	copy(padded[len(data):], bytes.Repeat([]byte{byte(pad)}, pad))
	cipher.NewCBCEncrypter(c.Block, c.IV).CryptBlocks(padded, padded)
	return padded, nil
}

// Decrypt deciphers data and strips the PKCS#7 padding.
func (c *CBC) Decrypt(data []byte) ([]byte, error) {
	bs := c.Block.BlockSize()
	if len(c.IV) != bs {
		return nil, errors.New("IV length does not match cipher block size")
	}
	if len(data) == 0 || len(data)%bs != 0 {
		return nil, errors.New("ciphertext is not a whole number of blocks")
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(c.Block, c.IV).CryptBlocks(out, data)
	pad := int(out[len(out)-1])
	if pad == 0 || pad > bs || pad > len(out) {
		return nil, errors.New("invalid padding")
	}
	return out[:len(out)-pad], nil
}

// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

// Package cobs implements Consistent Overhead Byte Stuffing: a
// streaming encoder and decoder that remove every 0x00 byte from an
// arbitrary payload so 0x00 can serve as an unambiguous frame
// delimiter on the wire. Byte for byte this mirrors the reactor's own
// cobs_encoder/cobs_decoder — same overhead-byte bookkeeping, same
// 254-byte run-forcing rule — translated from pointer walking into
// slice indexing.
package cobs

import "fmt"

// Encoder accumulates bytes into a fixed-capacity target buffer,
// replacing every zero byte with a length-prefixed run the way COBS
// requires. Insert reports false once the buffer cannot hold another
// byte; Commit finalizes the last run and returns the written slice.
//
// An Encoder is single-use: construct one per frame with NewEncoder.
type Encoder struct {
	target []byte
	lastP  int
	p      int
	count  byte
}

// NewEncoder returns an Encoder that writes into target, which must be
// at least len(payload) + len(payload)/254 + 2 bytes long: Insert
// reports false as soon as it fills the last byte of target, so one
// byte beyond the encoded length must stay free. The caller owns
// target's backing storage; Commit returns a sub-slice of it.
func NewEncoder(target []byte) *Encoder {
	return &Encoder{target: target, lastP: 0, p: 1, count: 1}
}

// Insert adds one payload byte. It returns false once target is full;
// the caller must stop inserting and discard the partial frame.
func (e *Encoder) Insert(b byte) bool {
	if b != 0 {
		e.count++
		e.target[e.p] = b
	} else {
		e.target[e.lastP] = e.count
		e.count = 1
		e.lastP = e.p
	}
	e.p++

	if e.p == len(e.target) {
		return false
	}

	if e.count == 255 {
		e.target[e.lastP] = 255
		e.count = 1
		e.lastP = e.p
		e.p++
	}

	return e.p != len(e.target)
}

// Commit writes the final run-length byte and returns the encoded
// slice, target[:n]. Call it exactly once, after all payload bytes
// have been inserted successfully.
func (e *Encoder) Commit() []byte {
	e.target[e.lastP] = e.count
	return e.target[:e.p]
}

// EncodeFrame COBS-encodes payload and appends the trailing 0x00 frame
// delimiter, returning the complete frame ready to write to a
// connection. It reports an error if scratch is too small to hold the
// worst-case expansion.
func EncodeFrame(payload []byte, scratch []byte) ([]byte, error) {
	required := len(payload) + len(payload)/254 + 2
	if len(scratch) < required {
		return nil, fmt.Errorf("cobs: scratch buffer too small: have %d, need %d", len(scratch), required)
	}

	encoder := NewEncoder(scratch)
	for _, b := range payload {
		if !encoder.Insert(b) {
			return nil, fmt.Errorf("cobs: encode overflow: scratch buffer too small for %d-byte payload", len(payload))
		}
	}
	encoded := encoder.Commit()
	return append(encoded, 0), nil
}

// Decoder consumes the COBS-encoded byte stream for a single frame one
// byte at a time, yielding payload bytes as they become available.
// The caller primes it with NewDecoder(firstByte) and then feeds every
// subsequent encoded byte (not including the trailing 0x00 delimiter,
// which terminates the frame rather than being decoded) to Iter.
type Decoder struct {
	nonzero bool
	offset  byte
}

// NewDecoder primes a Decoder with the frame's first encoded byte,
// which is always a run-length marker rather than a data byte.
func NewDecoder(firstByte byte) *Decoder {
	return &Decoder{nonzero: firstByte == 255, offset: firstByte}
}

// Iter feeds one encoded byte and reports the next decoded payload
// byte, if this step produced one. A run-length marker byte produces
// no output (ok is false). It returns an error if b is a literal zero
// where the encoding never puts one: mid-run (a data position) or as a
// run-length marker itself (a marker of 0 is meaningless), since a
// well-formed COBS stream never contains a 0x00 byte before the frame
// delimiter that terminates it.
func (d *Decoder) Iter(b byte) (value byte, ok bool, err error) {
	if b == 0 {
		return 0, false, fmt.Errorf("cobs: decode failed: zero byte mid-frame")
	}

	if d.offset == 1 {
		if d.nonzero {
			value, ok = 0, false
		} else {
			value, ok = 0, true
		}
	} else {
		value, ok = b, true
	}

	if d.offset == 1 {
		d.nonzero = b == 255
		d.offset = b
	} else {
		d.offset--
	}

	return value, ok, nil
}

// DecodeFrame decodes a complete COBS-encoded frame (without its
// trailing 0x00 delimiter) into target, returning the decoded
// sub-slice. It reports an error if target is too small or encoded is
// empty.
func DecodeFrame(encoded []byte, target []byte) ([]byte, error) {
	if len(encoded) == 0 {
		return nil, fmt.Errorf("cobs: empty frame")
	}

	if encoded[0] == 0 {
		return nil, fmt.Errorf("cobs: decode failed: zero run-length marker")
	}

	decoder := NewDecoder(encoded[0])
	n := 0
	for i := 1; i < len(encoded); i++ {
		value, ok, err := decoder.Iter(encoded[i])
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if n == len(target) {
			return nil, fmt.Errorf("cobs: decode overflow: target capacity %d exceeded", len(target))
		}
		target[n] = value
		n++
	}
	if decoder.offset != 1 {
		return nil, fmt.Errorf("cobs: decode failed: frame ended mid-run")
	}
	return target[:n], nil
}

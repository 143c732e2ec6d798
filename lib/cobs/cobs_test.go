// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

package cobs

import (
	"bytes"
	"testing"
)

func roundtrip(t *testing.T, payload []byte) {
	t.Helper()

	scratch := make([]byte, len(payload)+len(payload)/254+2)
	encoded, err := EncodeFrame(payload, scratch)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if len(encoded) == 0 || encoded[len(encoded)-1] != 0 {
		t.Fatalf("EncodeFrame result missing trailing 0x00 delimiter: %x", encoded)
	}
	for _, b := range encoded[:len(encoded)-1] {
		if b == 0 {
			t.Fatalf("encoded frame contains a 0x00 byte before the delimiter: %x", encoded)
		}
	}

	target := make([]byte, len(payload))
	decoded, err := DecodeFrame(encoded[:len(encoded)-1], target)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Fatalf("roundtrip mismatch: got %x, want %x", decoded, payload)
	}
}

func TestRoundtripCases(t *testing.T) {
	cases := map[string][]byte{
		"empty":            {},
		"no zeros":         []byte("hello"),
		"single zero":      {0},
		"leading zero":     {0, 1, 2, 3},
		"trailing zero":    {1, 2, 3, 0},
		"consecutive zero": {1, 0, 0, 2},
		"all zero":         {0, 0, 0, 0, 0},
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			roundtrip(t, payload)
		})
	}
}

// TestRun254ForcesOverheadByte exercises the rule that a run of 254
// consecutive non-zero bytes forces an overhead byte of 0xFF without
// consuming an input zero, matching cobs_encoder's count==255 branch.
func TestRun254ForcesOverheadByte(t *testing.T) {
	payload := bytes.Repeat([]byte{0x01}, 254)
	roundtrip(t, payload)

	scratch := make([]byte, len(payload)+len(payload)/254+2)
	encoded, err := EncodeFrame(payload, scratch)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	// 254 non-zero bytes force a 0xFF overhead byte immediately
	// followed by 254 data bytes, a final 0x01 run byte, then the
	// trailing 0x00 delimiter.
	if encoded[0] != 0xFF {
		t.Fatalf("expected forced overhead byte 0xFF, got %#x", encoded[0])
	}
}

func TestEncodeFrameScratchTooSmall(t *testing.T) {
	payload := []byte("hello")
	if _, err := EncodeFrame(payload, make([]byte, 2)); err == nil {
		t.Fatal("expected error for undersized scratch buffer")
	}
}

func TestDecodeFrameTargetTooSmall(t *testing.T) {
	payload := []byte("hello world")
	scratch := make([]byte, len(payload)+len(payload)/254+2)
	encoded, err := EncodeFrame(payload, scratch)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if _, err := DecodeFrame(encoded[:len(encoded)-1], make([]byte, 2)); err == nil {
		t.Fatal("expected overflow error for undersized target buffer")
	}
}

func TestDecodeFrameRejectsTruncatedRun(t *testing.T) {
	// Code byte 0x03 promises two more data bytes before the run ends,
	// but only one (0x01) follows: a truncated/malformed frame, not a
	// valid one-byte payload.
	if _, err := DecodeFrame([]byte{0x03, 0x01}, make([]byte, 4)); err == nil {
		t.Fatal("expected an error for a frame that ends mid-run")
	}
}

func TestDecodeFrameRejectsZeroMidFrame(t *testing.T) {
	if _, err := DecodeFrame([]byte{0x03, 0x01, 0x00}, make([]byte, 4)); err == nil {
		t.Fatal("expected an error for a literal zero byte before the frame delimiter")
	}
}

func TestDecodeFrameRejectsZeroLengthCode(t *testing.T) {
	if _, err := DecodeFrame([]byte{0x00, 0x01}, make([]byte, 4)); err == nil {
		t.Fatal("expected an error for a zero run-length marker")
	}
}

func TestReceiverAssemblesFrames(t *testing.T) {
	r := NewReceiver(64)

	frame1 := []byte{0x03, 0x01, 0x02}
	frame2 := []byte{0x02, 0x09}

	var got [][]byte
	for _, b := range append(append(append([]byte{}, frame1...), 0), append(append([]byte{}, frame2...), 0)...) {
		frame, ok, err := r.Push(b)
		if err != nil {
			t.Fatalf("Push: %v", err)
		}
		if ok {
			got = append(got, append([]byte{}, frame...))
		}
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(got))
	}
	if !bytes.Equal(got[0], frame1) || !bytes.Equal(got[1], frame2) {
		t.Fatalf("frames mismatch: got %x, %x", got[0], got[1])
	}
}

func TestReceiverOverflowResets(t *testing.T) {
	r := NewReceiver(2)

	if _, _, err := r.Push(1); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if _, _, err := r.Push(2); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if _, _, err := r.Push(3); err == nil {
		t.Fatal("expected overflow error on third byte with capacity 2")
	}

	// The receiver must have reset so the next frame can still be read.
	frame, ok, err := r.Push(0)
	if err != nil {
		t.Fatalf("Push after overflow reset: %v", err)
	}
	if ok {
		t.Fatalf("expected empty frame after reset, got %x", frame)
	}
}

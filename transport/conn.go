// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bufio"
	"fmt"
	"net"
	"sync"

	"github.com/taskrelay/taskrelay/lib/cobs"
)

// MaxFrameSize bounds a single COBS-encoded frame. A peer that sends
// a frame larger than this without a 0x00 delimiter causes ReadFrame
// to return an error instead of growing without bound.
const MaxFrameSize = 16 * 1024 * 1024

// Conn wraps a net.Conn with COBS framing: ReadFrame blocks for one
// complete decoded frame, WriteFrame COBS-encodes and writes one.
// Conn does not interpret frame contents — see lib/wire for the
// hub↔unit message schema layered on top.
type Conn struct {
	nc       net.Conn
	reader   *bufio.Reader
	receiver *cobs.Receiver

	writeMu sync.Mutex
	scratch []byte
}

// NewConn wraps nc for COBS-framed reads and writes.
func NewConn(nc net.Conn) *Conn {
	return &Conn{
		nc:       nc,
		reader:   bufio.NewReader(nc),
		receiver: cobs.NewReceiver(MaxFrameSize),
	}
}

// Close closes the underlying connection. Any ReadFrame or WriteFrame
// blocked on it returns an error.
func (c *Conn) Close() error {
	return c.nc.Close()
}

// RemoteAddr returns the underlying connection's remote address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.nc.RemoteAddr()
}

// ReadFrame blocks until one complete COBS-encoded frame has been
// read and decoded, or the connection fails. The returned slice is
// only valid until the next call to ReadFrame.
func (c *Conn) ReadFrame() ([]byte, error) {
	for {
		b, err := c.reader.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("transport: reading frame: %w", err)
		}

		encoded, complete, err := c.receiver.Push(b)
		if err != nil {
			return nil, fmt.Errorf("transport: frame assembly: %w", err)
		}
		if !complete {
			continue
		}

		target := make([]byte, len(encoded))
		decoded, err := cobs.DecodeFrame(encoded, target)
		if err != nil {
			return nil, fmt.Errorf("transport: decoding frame: %w", err)
		}
		return decoded, nil
	}
}

// WriteFrame COBS-encodes payload, appends the trailing 0x00
// delimiter, and writes the result in one call to the underlying
// connection. Concurrent calls to WriteFrame are serialized.
func (c *Conn) WriteFrame(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	required := len(payload) + len(payload)/254 + 2
	if cap(c.scratch) < required {
		c.scratch = make([]byte, required)
	}

	encoded, err := cobs.EncodeFrame(payload, c.scratch[:required])
	if err != nil {
		return fmt.Errorf("transport: encoding frame: %w", err)
	}
	if _, err := c.nc.Write(encoded); err != nil {
		return fmt.Errorf("transport: writing frame: %w", err)
	}
	return nil
}

// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"
)

func TestServeBroadcastsConnectAndDisconnect(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv, err := New("127.0.0.1:0", logger, func(ctx context.Context, c *Client) {
		c.Conn.ReadFrame() // blocks until the client disconnects
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sub := srv.Events().Subscribe(4)
	defer sub.Unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx)

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	select {
	case event := <-sub.Events():
		if event.Kind != ClientConnected {
			t.Fatalf("first event kind = %v, want ClientConnected", event.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("never observed ClientConnected")
	}

	conn.Close()

	select {
	case event := <-sub.Events():
		if event.Kind != ClientDisconnected {
			t.Fatalf("second event kind = %v, want ClientDisconnected", event.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("never observed ClientDisconnected")
	}
}

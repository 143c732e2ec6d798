// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

package testprotocol

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/taskrelay/taskrelay/lib/clock"
	"github.com/taskrelay/taskrelay/lib/wire"
	"github.com/taskrelay/taskrelay/server"
	"github.com/taskrelay/taskrelay/transport"
	"github.com/taskrelay/taskrelay/unit"
	"github.com/taskrelay/taskrelay/unit/folder"
)

// Harness runs a real taskrelay-unit dispatcher bound to a loopback
// TCP port and hands out Transactors to it, so scenario tests exercise
// the actual server accept loop, transport framing, and wire codec
// instead of calling dispatcher methods directly.
type Harness struct {
	Workdir string
	Addr    string

	server *server.Server
	cancel context.CancelFunc
}

// Start spins up a unit server in t.TempDir() and returns a Harness
// that must be stopped with Stop (usually via t.Cleanup).
func Start(t *testing.T) *Harness {
	t.Helper()
	workdir := t.TempDir()

	registry := folder.NewRegistry(workdir)
	if err := registry.Init(); err != nil {
		t.Fatalf("folder.Init: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dispatcher := unit.New(workdir, registry, clock.Real(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	dispatcher.RunBackground(ctx)
	handler := func(ctx context.Context, client *server.Client) {
		listener := transport.NewListener(client.Conn)
		dispatcher.Run(ctx, listener)
	}

	srv, err := server.New("127.0.0.1:0", logger, handler)
	if err != nil {
		cancel()
		t.Fatalf("server.New: %v", err)
	}
	go srv.Serve(ctx)

	h := &Harness{Workdir: workdir, Addr: srv.Addr().String(), server: srv, cancel: cancel}
	t.Cleanup(h.Stop)
	return h
}

// Stop tears down the server and its listener.
func (h *Harness) Stop() {
	h.cancel()
}

// Dial opens a fresh connection to the harness's unit.
func (h *Harness) Dial(t *testing.T) *transport.Transactor {
	t.Helper()
	nc, err := net.DialTimeout("tcp", h.Addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dialing %s: %v", h.Addr, err)
	}
	return transport.NewTransactor(transport.NewConn(nc))
}

// Call encodes req, transacts it against transactor, and decodes the
// reply, failing the test on any error.
func Call(t *testing.T, transactor *transport.Transactor, req *wire.HubToUnit) *wire.UnitToHub {
	t.Helper()
	encoded, err := wire.EncodeRequest(req)
	if err != nil {
		t.Fatalf("EncodeRequest: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	raw, err := transactor.Transact(ctx, encoded)
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}
	reply, err := wire.DecodeReply(raw)
	if err != nil {
		t.Fatalf("DecodeReply: %v", err)
	}
	return reply
}

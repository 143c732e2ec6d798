// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/taskrelay/taskrelay/lib/asyncqueue"
	"github.com/taskrelay/taskrelay/transport"
)

// EventKind tags a connection lifecycle Event.
type EventKind int

const (
	ClientConnected EventKind = iota
	ClientDisconnected
)

// Event is published to every subscription for each client connect
// or disconnect, with no replay of events published before
// subscribing.
type Event struct {
	Kind   EventKind
	Client *Client
}

// Client is one accepted connection: a connection id for logging and
// its COBS-framed transport.
type Client struct {
	ID         uuid.UUID
	Conn       *transport.Conn
	RemoteAddr string
}

// Handler processes one client connection for its entire lifetime. It
// returns when the connection should close, either because it
// returned an error from transport I/O or because ctx was cancelled.
type Handler func(ctx context.Context, client *Client)

// Server accepts TCP connections and runs handler on each, broadcasting
// connect/disconnect events to anyone subscribed via Events.
type Server struct {
	listener net.Listener
	logger   *slog.Logger
	handler  Handler
	events   *asyncqueue.Source[Event]

	activeConnections sync.WaitGroup
}

// New binds addr and returns a Server. Call Serve to start accepting.
func New(addr string, logger *slog.Logger, handler Handler) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("server: listening on %s: %w", addr, err)
	}
	return &Server{
		listener: listener,
		logger:   logger,
		handler:  handler,
		events:   asyncqueue.NewSource[Event](),
	}, nil
}

// Addr returns the listener's bound address, useful when addr was
// ":0" and the OS picked an ephemeral port.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Events returns the connection lifecycle broadcast source. Subscribe
// before calling Serve to guarantee observing every connect/disconnect
// from startup onward.
func (s *Server) Events() *asyncqueue.Source[Event] {
	return s.events
}

// Serve accepts connections until ctx is cancelled, running handler
// for each on its own goroutine. It blocks until every in-flight
// handler has returned.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	s.logger.Info("server listening", "addr", s.listener.Addr())

	for {
		nc, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		client := &Client{
			ID:         uuid.New(),
			Conn:       transport.NewConn(nc),
			RemoteAddr: nc.RemoteAddr().String(),
		}
		s.logger.Info("client connected", "client_id", client.ID, "addr", client.RemoteAddr)
		s.events.Publish(Event{Kind: ClientConnected, Client: client})

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			defer func() {
				client.Conn.Close()
				s.logger.Info("client disconnected", "client_id", client.ID)
				s.events.Publish(Event{Kind: ClientDisconnected, Client: client})
			}()
			s.handler(ctx, client)
		}()
	}

	s.activeConnections.Wait()
	return nil
}

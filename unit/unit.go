// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

package unit

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/taskrelay/taskrelay/lib/arena"
	"github.com/taskrelay/taskrelay/lib/clock"
	"github.com/taskrelay/taskrelay/lib/wire"
	"github.com/taskrelay/taskrelay/transport"
	"github.com/taskrelay/taskrelay/unit/folder"
	"github.com/taskrelay/taskrelay/unit/procengine"
	"github.com/taskrelay/taskrelay/unit/transfer"
)

// requestArenaSize bounds the scratch memory available to build one
// reply; only list_folder's name copies use it.
const requestArenaSize = 64 * 1024

// maxListTasks caps how many task ids a single list_tasks reply carries.
// The wire request has no limit field of its own (spec.md's list_tasks
// schema only takes an offset), so a unit running many processes still
// needs a cap here to avoid building an unbounded reply.
const maxListTasks = 256

// Dispatcher routes one connection's requests to the folder registry,
// transfer engine, and process engine, stamping every reply with
// ReqID and a truncated-to-millisecond timestamp.
type Dispatcher struct {
	workdir  string
	folders  *folder.Registry
	transfer *transfer.Engine
	procs    *procengine.Engine
	clock    clock.Clock
	logger   *slog.Logger
}

// New returns a Dispatcher rooted at workdir. Call folders.Init and
// RunBackground before Run to pick up any pre-existing folders and
// start the transfer/process asyncmap drain goroutines.
func New(workdir string, folders *folder.Registry, c clock.Clock, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		workdir:  workdir,
		folders:  folders,
		transfer: transfer.New(c),
		procs:    procengine.New(),
		clock:    c,
		logger:   logger,
	}
}

// RunBackground starts the transfer and process engines' asyncmap
// destruction-queue drain goroutines. Call it once, alongside Run, for
// the lifetime of ctx.
func (d *Dispatcher) RunBackground(ctx context.Context) {
	go d.transfer.Run(ctx)
	go d.procs.Run(ctx)
}

// Shutdown drains every in-flight transfer and kills every running
// process, in that order, so a restart or upgrade never leaves a
// half-written file or an orphaned child process behind.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	if err := d.transfer.Shutdown(ctx); err != nil {
		d.logger.Error("transfer shutdown failed", "error", err)
	}
	if err := d.procs.Shutdown(ctx); err != nil {
		d.logger.Error("process shutdown failed", "error", err)
	}
	return nil
}

// ReapStaleTransfers aborts any file transfer started more than maxAge
// ago that has not yet ended, whether or not Data calls are still
// arriving for it, reclaiming the file
// handle and partial file left behind by a hub that disappeared
// mid-transfer. Call periodically via scheduler.RunIdleTicks.
func (d *Dispatcher) ReapStaleTransfers(ctx context.Context, maxAge time.Duration) int {
	n := d.transfer.ReapStale(ctx, maxAge)
	if n > 0 {
		d.logger.Info("reaped stale file transfers", "count", n)
	}
	return n
}

// Run drains one request at a time from listener until ctx is
// cancelled or the connection errors out.
func (d *Dispatcher) Run(ctx context.Context, listener *transport.Listener) error {
	for {
		promise, err := listener.Incoming(ctx)
		if err != nil {
			return err
		}

		scratch := arena.New(requestArenaSize)
		if err := d.handle(ctx, promise, scratch); err != nil {
			d.logger.Error("request failed", "error", err)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, promise *transport.Promise, scratch *arena.Arena) error {
	req, err := wire.DecodeRequest(promise.Data())
	if err != nil {
		return fmt.Errorf("unit: decoding request: %w", err)
	}

	reply := d.dispatch(ctx, req, scratch)
	encoded, err := wire.EncodeReply(reply)
	if err != nil {
		return fmt.Errorf("unit: encoding reply: %w", err)
	}
	return promise.Fulfill(encoded)
}

func (d *Dispatcher) dispatch(ctx context.Context, req *wire.HubToUnit, scratch *arena.Arena) *wire.UnitToHub {
	reply := d.stampReply(req.ReqID)

	switch req.Kind {
	case wire.RequestInit:
		reply.Kind = wire.ReplyInit
		reply.Init = &wire.InitReply{MACAddr: initMACAddr, Version: initVersion}

	case wire.RequestFileTransferStart:
		reply.Kind = wire.ReplyFile
		reply.File = fileReply(d.startTransfer(ctx, req.FileTransferStart))

	case wire.RequestFileTransferData:
		reply.Kind = wire.ReplyFile
		reply.File = fileReply(d.transfer.Data(ctx, req.FileTransferData.Seq, req.FileTransferData.Offset, req.FileTransferData.Data))

	case wire.RequestFileTransferEnd:
		reply.Kind = wire.ReplyFile
		reply.File = fileReply(d.transfer.End(ctx, req.FileTransferEnd.Seq, req.FileTransferEnd.ExpectedHash))

	case wire.RequestFolderCreate:
		reply.Kind = wire.ReplyFolderCtl
		reply.FolderCtl = folderCtlReply(req.FolderCreate.Name, d.folders.Create(req.FolderCreate.Name))

	case wire.RequestFolderDelete:
		reply.Kind = wire.ReplyFolderCtl
		reply.FolderCtl = folderCtlReply(req.FolderDelete.Name, d.folders.Delete(ctx, req.FolderDelete.Name))

	case wire.RequestFolderClear:
		reply.Kind = wire.ReplyFolderCtl
		reply.FolderCtl = folderCtlReply(req.FolderClear.Name, d.folders.Clear(ctx, req.FolderClear.Name))

	case wire.RequestListFolder:
		reply.Kind = wire.ReplyListFolder
		reply.ListFolder = &wire.ListFolderReply{Names: page(d.folders.Names(), req.ListFolder.Offset, req.ListFolder.Limit, scratch)}

	case wire.RequestTaskStart:
		reply.Kind = wire.ReplyTask
		reply.Task = taskReply(d.startTask(ctx, req.TaskStart))

	case wire.RequestTaskProgress:
		reply.Kind = wire.ReplyTaskProgress
		reply.TaskProgress = d.taskProgress(ctx, req.TaskProgress.TaskID)

	case wire.RequestTaskCancel:
		reply.Kind = wire.ReplyTask
		reply.Task = taskReply(d.procs.Cancel(ctx, req.TaskCancel.TaskID))

	case wire.RequestListTasks:
		reply.Kind = wire.ReplyListTasks
		ids := d.procs.List(ctx, req.ListTasks.Offset, maxListTasks)
		if len(ids) == maxListTasks {
			d.logger.Warn("list_tasks reply truncated", "max", maxListTasks)
		}
		reply.ListTasks = &wire.ListTasksReply{TaskIDs: ids}
	}

	return &reply
}

// stampReply builds the common envelope every dispatch branch starts
// from, replacing the four copy-pasted prepare_reply call sites in
// original_source/src/unit/unit.hpp with one helper. The timestamp is
// truncated to whole milliseconds before being split back into
// seconds+nanoseconds (spec Open Question: sub-millisecond precision
// is not observable anywhere downstream, see DESIGN.md).
func (d *Dispatcher) stampReply(reqID uint64) wire.UnitToHub {
	now := d.clock.Now()
	millis := now.UnixMilli()
	return wire.UnitToHub{
		ReqID: reqID,
		Timestamp: wire.Timestamp{
			Seconds:     millis / 1000,
			Nanoseconds: (millis % 1000) * int64(1_000_000),
		},
	}
}

func (d *Dispatcher) startTransfer(ctx context.Context, req *wire.FileTransferStart) error {
	entry, err := d.folders.Lookup(req.Folder)
	if err != nil {
		return err
	}
	path := filepath.Join(entry.Path, req.Filename)
	slot, err := d.transfer.Start(ctx, req.Seq, path, req.Filesize)
	if err != nil {
		return err
	}
	entry.AddDependent(slot)
	return nil
}

func (d *Dispatcher) startTask(ctx context.Context, req *wire.TaskStartRequest) error {
	entry, err := d.folders.Lookup(req.Folder)
	if err != nil {
		return err
	}
	if err := d.procs.Start(ctx, req.TaskID, entry.Path, req.Args); err != nil {
		return err
	}
	process, err := d.procs.Lookup(req.TaskID)
	if err != nil {
		return err
	}
	entry.AddDependent(process)
	return nil
}

func (d *Dispatcher) taskProgress(ctx context.Context, taskID uint32) *wire.TaskProgressReply {
	event, err := d.procs.Progress(ctx, taskID)
	if err != nil {
		return &wire.TaskProgressReply{Kind: wire.ProcEventExit, ExitStatus: -1}
	}

	switch event.Kind {
	case procengine.Stdout:
		return &wire.TaskProgressReply{Kind: wire.ProcEventStdoutChunk, Chunk: event.Chunk}
	case procengine.Stderr:
		return &wire.TaskProgressReply{Kind: wire.ProcEventStderrChunk, Chunk: event.Chunk}
	default:
		return &wire.TaskProgressReply{Kind: wire.ProcEventExit, ExitStatus: event.ExitStatus}
	}
}

func fileReply(err error) *wire.FileReply {
	if err != nil {
		return &wire.FileReply{Success: false, Error: err.Error()}
	}
	return &wire.FileReply{Success: true}
}

func folderCtlReply(name string, err error) *wire.FolderCtlReply {
	if err != nil {
		return &wire.FolderCtlReply{Folder: name, Success: false, Error: err.Error()}
	}
	return &wire.FolderCtlReply{Folder: name, Success: true}
}

func taskReply(err error) *wire.TaskReply {
	if err != nil {
		return &wire.TaskReply{Success: false, Error: err.Error()}
	}
	return &wire.TaskReply{Success: true}
}

// page copies up to limit names starting at offset into arena-backed
// memory, matching unit/folder.Registry.Names' reverse key order.
func page(names []string, offset, limit uint32, scratch *arena.Arena) []string {
	if offset >= uint32(len(names)) {
		return nil
	}
	end := offset + limit
	if end > uint32(len(names)) || limit == 0 {
		end = uint32(len(names))
	}

	out := make([]string, 0, end-offset)
	for _, name := range names[offset:end] {
		buf, ok := scratch.Allocate(len(name), 1)
		if !ok {
			break
		}
		copy(buf, name)
		out = append(out, string(buf))
	}
	return out
}

// initMACAddr and initVersion are the literal values the init handshake
// reports, pinned exactly as spec.md's wire-level example dictates
// ("< 1 init mac_addr:DE:AD:BE:EF:00:01 version:0.0.0"). The original
// marks its own placeholder "XXX: fill" (original_source/src/unit/unit.hpp:76),
// but nothing in spec.md's dispatch table or example traffic calls for
// resolving a real NIC address or build version here — both of those
// live elsewhere (logging, the --version flag), not in this reply.
const (
	initMACAddr = "DE:AD:BE:EF:00:01"
	initVersion = "0.0.0"
)

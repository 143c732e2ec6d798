// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

package wire

// ReplyKind tags which field of UnitToHub is populated.
type ReplyKind int

const (
	ReplyInit ReplyKind = iota
	ReplyFile
	ReplyFolderCtl
	ReplyListFolder
	ReplyTask
	ReplyTaskProgress
	ReplyListTasks
)

// Timestamp is seconds plus nanoseconds from the unit's clock,
// truncated to millisecond precision per the reply-framing design
// decision recorded in DESIGN.md (Open Question: ts precision).
type Timestamp struct {
	Seconds     int64 `cbor:"seconds"`
	Nanoseconds int64 `cbor:"nanoseconds"`
}

// UnitToHub is every reply the unit can send. ReqID mirrors the
// request that produced it; Kind names which pointer field is
// populated.
type UnitToHub struct {
	ReqID     uint64    `cbor:"req_id"`
	Kind      ReplyKind `cbor:"kind"`
	Timestamp Timestamp `cbor:"ts"`

	Init         *InitReply         `cbor:"init,omitempty"`
	File         *FileReply         `cbor:"file,omitempty"`
	FolderCtl    *FolderCtlReply    `cbor:"folder_ctl,omitempty"`
	ListFolder   *ListFolderReply   `cbor:"list_folder,omitempty"`
	Task         *TaskReply         `cbor:"task,omitempty"`
	TaskProgress *TaskProgressReply `cbor:"task_progress,omitempty"`
	ListTasks    *ListTasksReply    `cbor:"list_tasks,omitempty"`
}

// InitReply answers the initial handshake with unit identity.
type InitReply struct {
	MACAddr string `cbor:"mac_addr"`
	Version string `cbor:"version"`
}

// FileReply answers a file_transfer.start/data/end request.
type FileReply struct {
	Success bool   `cbor:"success"`
	Error   string `cbor:"error,omitempty"`
}

// FolderCtlReply answers a folder_ctl.create/delete/clear request.
type FolderCtlReply struct {
	Folder  string `cbor:"folder"`
	Success bool   `cbor:"success"`
	Error   string `cbor:"error,omitempty"`
}

// ListFolderReply carries folder names in reverse key order.
type ListFolderReply struct {
	Names []string `cbor:"names"`
}

// TaskReply answers task.start/task.cancel requests.
type TaskReply struct {
	Success bool   `cbor:"success"`
	Error   string `cbor:"error,omitempty"`
}

// ProcEventKind tags which payload field of TaskProgressReply holds
// data — the wire projection of unit/procengine's Event.
type ProcEventKind int

const (
	ProcEventStdoutChunk ProcEventKind = iota
	ProcEventStderrChunk
	ProcEventExit
)

// TaskProgressReply answers task.progress with exactly one of a
// stdout chunk, a stderr chunk, or the terminal exit status.
type TaskProgressReply struct {
	Kind       ProcEventKind `cbor:"kind"`
	Chunk      []byte        `cbor:"chunk,omitempty"`
	ExitStatus int64         `cbor:"exit_status,omitempty"`
}

// ListTasksReply carries task ids in key order.
type ListTasksReply struct {
	TaskIDs []uint32 `cbor:"task_ids"`
}

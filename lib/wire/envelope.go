// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

package wire

// RequestKind tags which field of HubToUnit is populated. Go has no
// native oneof; a Kind discriminant plus pointer fields is the same
// tagged-union shape the teacher's agentdriver.Event uses.
type RequestKind int

const (
	RequestInit RequestKind = iota
	RequestFileTransferStart
	RequestFileTransferData
	RequestFileTransferEnd
	RequestFolderCreate
	RequestFolderDelete
	RequestFolderClear
	RequestListFolder
	RequestTaskStart
	RequestTaskProgress
	RequestTaskCancel
	RequestListTasks
)

func (k RequestKind) String() string {
	switch k {
	case RequestInit:
		return "init"
	case RequestFileTransferStart:
		return "file_transfer.start"
	case RequestFileTransferData:
		return "file_transfer.data"
	case RequestFileTransferEnd:
		return "file_transfer.end"
	case RequestFolderCreate:
		return "folder_ctl.create"
	case RequestFolderDelete:
		return "folder_ctl.delete"
	case RequestFolderClear:
		return "folder_ctl.clear"
	case RequestListFolder:
		return "list_folder"
	case RequestTaskStart:
		return "task.start"
	case RequestTaskProgress:
		return "task.progress"
	case RequestTaskCancel:
		return "task.cancel"
	case RequestListTasks:
		return "list_tasks"
	default:
		return "unknown"
	}
}

// HubToUnit is every request the hub can issue. Kind names which
// pointer field is populated; all others are nil.
type HubToUnit struct {
	ReqID uint64      `cbor:"req_id"`
	Kind  RequestKind `cbor:"kind"`

	FileTransferStart *FileTransferStart   `cbor:"file_transfer_start,omitempty"`
	FileTransferData  *FileTransferData    `cbor:"file_transfer_data,omitempty"`
	FileTransferEnd   *FileTransferEnd     `cbor:"file_transfer_end,omitempty"`
	FolderCreate      *FolderName          `cbor:"folder_create,omitempty"`
	FolderDelete      *FolderName          `cbor:"folder_delete,omitempty"`
	FolderClear       *FolderName          `cbor:"folder_clear,omitempty"`
	ListFolder        *ListFolderRequest   `cbor:"list_folder,omitempty"`
	TaskStart         *TaskStartRequest    `cbor:"task_start,omitempty"`
	TaskProgress      *TaskProgressRequest `cbor:"task_progress,omitempty"`
	TaskCancel        *TaskCancelRequest   `cbor:"task_cancel,omitempty"`
	ListTasks         *ListTasksRequest    `cbor:"list_tasks,omitempty"`
}

// FileTransferStart begins a file transfer keyed by Seq, writing
// Filename under the named Folder.
type FileTransferStart struct {
	Seq      uint32 `cbor:"seq"`
	Folder   string `cbor:"folder"`
	Filename string `cbor:"filename"`
	Filesize uint64 `cbor:"filesize"`
}

// FileTransferData appends one chunk to an in-progress transfer.
type FileTransferData struct {
	Seq    uint32 `cbor:"seq"`
	Offset uint64 `cbor:"offset"`
	Data   []byte `cbor:"data"`
}

// FileTransferEnd finalizes a transfer and supplies the FNV-1a hash
// the unit must verify the written bytes against.
type FileTransferEnd struct {
	Seq          uint32 `cbor:"seq"`
	ExpectedHash uint32 `cbor:"expected_hash"`
}

// FolderName names a folder for a create/delete/clear request.
type FolderName struct {
	Name string `cbor:"name"`
}

// ListFolderRequest asks for up to Limit folder names starting at
// Offset, in reverse key order.
type ListFolderRequest struct {
	Offset uint32 `cbor:"offset"`
	Limit  uint32 `cbor:"limit"`
}

// TaskStartRequest spawns a process in Folder with the given Args;
// see unit/procengine for the bash --login wrapping convention.
type TaskStartRequest struct {
	TaskID uint32   `cbor:"task_id"`
	Folder string   `cbor:"folder"`
	Args   []string `cbor:"args"`
}

// TaskProgressRequest awaits the next stdout/stderr/exit event for a
// running task.
type TaskProgressRequest struct {
	TaskID uint32 `cbor:"task_id"`
}

// TaskCancelRequest requests SIGTERM delivery and cleanup.
type TaskCancelRequest struct {
	TaskID uint32 `cbor:"task_id"`
}

// ListTasksRequest asks for task ids starting at Offset. Unlike
// list_folder, this request carries no limit field on the wire; the
// unit caps the reply internally (see unit.maxListTasks).
type ListTasksRequest struct {
	Offset uint32 `cbor:"offset"`
}

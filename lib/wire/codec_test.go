// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import "testing"

func TestRequestRoundtrip(t *testing.T) {
	req := &HubToUnit{
		ReqID: 42,
		Kind:  RequestFileTransferData,
		FileTransferData: &FileTransferData{
			Seq:    7,
			Offset: 4096,
			Data:   []byte("payload"),
		},
	}

	data, err := EncodeRequest(req)
	if err != nil {
		t.Fatalf("EncodeRequest: %v", err)
	}

	decoded, err := DecodeRequest(data)
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}

	if decoded.ReqID != req.ReqID || decoded.Kind != req.Kind {
		t.Fatalf("envelope mismatch: got %+v", decoded)
	}
	if decoded.FileTransferData == nil || decoded.FileTransferData.Seq != 7 {
		t.Fatalf("FileTransferData mismatch: got %+v", decoded.FileTransferData)
	}
	if string(decoded.FileTransferData.Data) != "payload" {
		t.Fatalf("Data mismatch: got %q", decoded.FileTransferData.Data)
	}
}

func TestReplyRoundtrip(t *testing.T) {
	reply := &UnitToHub{
		ReqID:     42,
		Kind:      ReplyTaskProgress,
		Timestamp: Timestamp{Seconds: 1000, Nanoseconds: 500_000_000},
		TaskProgress: &TaskProgressReply{
			Kind:  ProcEventStdoutChunk,
			Chunk: []byte("hello\n"),
		},
	}

	data, err := EncodeReply(reply)
	if err != nil {
		t.Fatalf("EncodeReply: %v", err)
	}

	decoded, err := DecodeReply(data)
	if err != nil {
		t.Fatalf("DecodeReply: %v", err)
	}

	if decoded.Timestamp != reply.Timestamp {
		t.Fatalf("Timestamp mismatch: got %+v, want %+v", decoded.Timestamp, reply.Timestamp)
	}
	if decoded.TaskProgress == nil || string(decoded.TaskProgress.Chunk) != "hello\n" {
		t.Fatalf("TaskProgress mismatch: got %+v", decoded.TaskProgress)
	}
}

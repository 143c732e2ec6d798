// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/taskrelay/taskrelay/lib/cli"
	"github.com/taskrelay/taskrelay/lib/wire"
)

// transferChunkSize is the size of each file_transfer.data frame the
// hub sends; it is independent of unit/transfer's own re-hash chunk
// size, which is an implementation detail of the receiving side.
const transferChunkSize = 4096

func transferCommand() *cli.Command {
	return &cli.Command{
		Name:    "transfer",
		Summary: "Send a file to a unit",
		Subcommands: []*cli.Command{
			transferSendCommand(),
		},
	}
}

func transferSendCommand() *cli.Command {
	return &cli.Command{
		Name:    "send",
		Usage:   "taskrelay-hub transfer send <addr> <local-file> <folder> <filename>",
		Summary: "Upload a local file into a folder on the unit",
		Run: func(args []string) error {
			if len(args) != 4 {
				return fmt.Errorf("usage: taskrelay-hub transfer send <addr> <local-file> <folder> <filename>")
			}
			return sendFile(args[0], args[1], args[2], args[3])
		},
	}
}

func sendFile(addr, localPath, folder, filename string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", localPath, err)
	}

	transactor, closeFn, err := dial(addr)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx := context.Background()
	const seq = 1
	var reqID uint64 = 1

	startReply, err := call(ctx, transactor, &wire.HubToUnit{
		ReqID: reqID,
		Kind:  wire.RequestFileTransferStart,
		FileTransferStart: &wire.FileTransferStart{
			Seq:      seq,
			Folder:   folder,
			Filename: filename,
			Filesize: uint64(info.Size()),
		},
	})
	if err != nil {
		return err
	}
	if startReply.File == nil || !startReply.File.Success {
		return fmt.Errorf("file_transfer.start rejected: %s", errorOf(startReply.File))
	}

	hasher := fnv.New32a()
	buf := make([]byte, transferChunkSize)
	var offset uint64
	for {
		n, readErr := file.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
			reqID++
			dataReply, err := call(ctx, transactor, &wire.HubToUnit{
				ReqID: reqID,
				Kind:  wire.RequestFileTransferData,
				FileTransferData: &wire.FileTransferData{
					Seq:    seq,
					Offset: offset,
					Data:   append([]byte(nil), buf[:n]...),
				},
			})
			if err != nil {
				return err
			}
			if dataReply.File == nil || !dataReply.File.Success {
				return fmt.Errorf("file_transfer.data rejected: %s", errorOf(dataReply.File))
			}
			offset += uint64(n)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("reading %s: %w", localPath, readErr)
		}
	}

	reqID++
	endReply, err := call(ctx, transactor, &wire.HubToUnit{
		ReqID: reqID,
		Kind:  wire.RequestFileTransferEnd,
		FileTransferEnd: &wire.FileTransferEnd{
			Seq:          seq,
			ExpectedHash: hasher.Sum32(),
		},
	})
	if err != nil {
		return err
	}
	if endReply.File == nil || !endReply.File.Success {
		return fmt.Errorf("file_transfer.end rejected: %s", errorOf(endReply.File))
	}

	fmt.Printf("sent %s (%s) to %s/%s\n", localPath, humanize.Bytes(uint64(info.Size())), folder, filename)
	return nil
}

func errorOf(reply *wire.FileReply) string {
	if reply == nil {
		return "no reply"
	}
	return reply.Error
}

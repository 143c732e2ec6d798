// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/taskrelay/taskrelay/lib/cli"
	"github.com/taskrelay/taskrelay/lib/wire"
)

func folderCommand() *cli.Command {
	return &cli.Command{
		Name:    "folder",
		Summary: "Manage folders on a unit",
		Subcommands: []*cli.Command{
			folderCreateCommand(),
			folderDeleteCommand(),
			folderClearCommand(),
			folderListCommand(),
		},
	}
}

func folderCreateCommand() *cli.Command {
	return &cli.Command{
		Name:    "create",
		Usage:   "taskrelay-hub folder create <addr> <name>",
		Summary: "Create a folder",
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("usage: taskrelay-hub folder create <addr> <name>")
			}
			transactor, closeFn, err := dial(args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			reply, err := call(context.Background(), transactor, &wire.HubToUnit{
				ReqID:        1,
				Kind:         wire.RequestFolderCreate,
				FolderCreate: &wire.FolderName{Name: args[1]},
			})
			if err != nil {
				return err
			}
			return printFolderCtlReply(reply)
		},
	}
}

func folderDeleteCommand() *cli.Command {
	return &cli.Command{
		Name:    "delete",
		Usage:   "taskrelay-hub folder delete <addr> <name>",
		Summary: "Delete a folder and shut down anything running in it",
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("usage: taskrelay-hub folder delete <addr> <name>")
			}
			transactor, closeFn, err := dial(args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			reply, err := call(context.Background(), transactor, &wire.HubToUnit{
				ReqID:        1,
				Kind:         wire.RequestFolderDelete,
				FolderDelete: &wire.FolderName{Name: args[1]},
			})
			if err != nil {
				return err
			}
			return printFolderCtlReply(reply)
		},
	}
}

func folderClearCommand() *cli.Command {
	return &cli.Command{
		Name:    "clear",
		Usage:   "taskrelay-hub folder clear <addr> <name>",
		Summary: "Empty a folder without unregistering it",
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("usage: taskrelay-hub folder clear <addr> <name>")
			}
			transactor, closeFn, err := dial(args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			reply, err := call(context.Background(), transactor, &wire.HubToUnit{
				ReqID:       1,
				Kind:        wire.RequestFolderClear,
				FolderClear: &wire.FolderName{Name: args[1]},
			})
			if err != nil {
				return err
			}
			return printFolderCtlReply(reply)
		},
	}
}

func folderListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Usage:   "taskrelay-hub folder list <addr> [offset] [limit]",
		Summary: "List folders in reverse name order",
		Run: func(args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("usage: taskrelay-hub folder list <addr> [offset] [limit]")
			}
			offset, limit := parseOffsetLimit(args[1:])

			transactor, closeFn, err := dial(args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			reply, err := call(context.Background(), transactor, &wire.HubToUnit{
				ReqID:      1,
				Kind:       wire.RequestListFolder,
				ListFolder: &wire.ListFolderRequest{Offset: offset, Limit: limit},
			})
			if err != nil {
				return err
			}
			if reply.ListFolder == nil {
				return fmt.Errorf("unit returned no list_folder payload")
			}
			printColumns(reply.ListFolder.Names)
			return nil
		},
	}
}

func printFolderCtlReply(reply *wire.UnitToHub) error {
	if reply.FolderCtl == nil {
		return fmt.Errorf("unit returned no folder_ctl payload")
	}
	if !reply.FolderCtl.Success {
		return fmt.Errorf("%s: %s", reply.FolderCtl.Folder, reply.FolderCtl.Error)
	}
	fmt.Printf("%s: ok\n", reply.FolderCtl.Folder)
	return nil
}

func parseOffsetLimit(args []string) (uint32, uint32) {
	var offset, limit uint64
	if len(args) > 0 {
		offset, _ = strconv.ParseUint(args[0], 10, 32)
	}
	if len(args) > 1 {
		limit, _ = strconv.ParseUint(args[1], 10, 32)
	} else {
		limit = 100
	}
	return uint32(offset), uint32(limit)
}

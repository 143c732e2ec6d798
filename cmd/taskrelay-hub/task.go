// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/taskrelay/taskrelay/lib/cli"
	"github.com/taskrelay/taskrelay/lib/wire"
)

// taskStyles holds the colorized renderers for a task's output
// stream, degrading to plain text automatically on non-TTY output
// because the underlying termenv profile detects that itself.
type taskStyles struct {
	stdout lipgloss.Style
	stderr lipgloss.Style
	exit   lipgloss.Style
}

func newTaskStyles() taskStyles {
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.EnvColorProfile()))
	return taskStyles{
		stdout: renderer.NewStyle(),
		stderr: renderer.NewStyle().Foreground(lipgloss.Color("203")),
		exit:   renderer.NewStyle().Foreground(lipgloss.Color("78")).Bold(true),
	}
}

func taskCommand() *cli.Command {
	return &cli.Command{
		Name:    "task",
		Summary: "Start and monitor tasks on a unit",
		Subcommands: []*cli.Command{
			taskStartCommand(),
			taskCancelCommand(),
			taskListCommand(),
		},
	}
}

func taskStartCommand() *cli.Command {
	return &cli.Command{
		Name:    "start",
		Usage:   "taskrelay-hub task start <addr> <task-id> <folder> -- <argv...>",
		Summary: "Start a task in a folder and stream its output until exit",
		Run: func(args []string) error {
			if len(args) < 3 {
				return fmt.Errorf("usage: taskrelay-hub task start <addr> <task-id> <folder> -- <argv...>")
			}
			addr := args[0]
			taskID, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid task id %q: %w", args[1], err)
			}
			folder := args[2]
			argv := args[3:]
			if len(argv) > 0 && argv[0] == "--" {
				argv = argv[1:]
			}
			if len(argv) == 0 {
				return fmt.Errorf("no command given")
			}

			transactor, closeFn, err := dial(addr)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx := context.Background()
			var reqID uint64 = 1

			startReply, err := call(ctx, transactor, &wire.HubToUnit{
				ReqID: reqID,
				Kind:  wire.RequestTaskStart,
				TaskStart: &wire.TaskStartRequest{
					TaskID: uint32(taskID),
					Folder: folder,
					Args:   argv,
				},
			})
			if err != nil {
				return err
			}
			if startReply.Task == nil || !startReply.Task.Success {
				return fmt.Errorf("task.start rejected: %s", errorOfTask(startReply.Task))
			}

			styles := newTaskStyles()
			for {
				reqID++
				progressReply, err := call(ctx, transactor, &wire.HubToUnit{
					ReqID: reqID,
					Kind:  wire.RequestTaskProgress,
					TaskProgress: &wire.TaskProgressRequest{
						TaskID: uint32(taskID),
					},
				})
				if err != nil {
					return err
				}
				progress := progressReply.TaskProgress
				if progress == nil {
					return fmt.Errorf("unit returned no task_progress payload")
				}

				switch progress.Kind {
				case wire.ProcEventStdoutChunk:
					fmt.Print(styles.stdout.Render(string(progress.Chunk)))
				case wire.ProcEventStderrChunk:
					fmt.Print(styles.stderr.Render(string(progress.Chunk)))
				case wire.ProcEventExit:
					fmt.Println(styles.exit.Render(fmt.Sprintf("[exit %d]", progress.ExitStatus)))
					return nil
				}
			}
		},
	}
}

func taskCancelCommand() *cli.Command {
	return &cli.Command{
		Name:    "cancel",
		Usage:   "taskrelay-hub task cancel <addr> <task-id>",
		Summary: "Send SIGTERM to a running task and clean it up",
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("usage: taskrelay-hub task cancel <addr> <task-id>")
			}
			taskID, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid task id %q: %w", args[1], err)
			}

			transactor, closeFn, err := dial(args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			reply, err := call(context.Background(), transactor, &wire.HubToUnit{
				ReqID: 1,
				Kind:  wire.RequestTaskCancel,
				TaskCancel: &wire.TaskCancelRequest{
					TaskID: uint32(taskID),
				},
			})
			if err != nil {
				return err
			}
			if reply.Task == nil || !reply.Task.Success {
				return fmt.Errorf("task.cancel failed: %s", errorOfTask(reply.Task))
			}
			fmt.Printf("task %d cancelled\n", taskID)
			return nil
		},
	}
}

func taskListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Usage:   "taskrelay-hub task list <addr> [offset]",
		Summary: "List running task ids",
		Run: func(args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("usage: taskrelay-hub task list <addr> [offset]")
			}
			offset, _ := parseOffsetLimit(args[1:])

			transactor, closeFn, err := dial(args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			reply, err := call(context.Background(), transactor, &wire.HubToUnit{
				ReqID:     1,
				Kind:      wire.RequestListTasks,
				ListTasks: &wire.ListTasksRequest{Offset: offset},
			})
			if err != nil {
				return err
			}
			if reply.ListTasks == nil {
				return fmt.Errorf("unit returned no list_tasks payload")
			}
			ids := make([]string, len(reply.ListTasks.TaskIDs))
			for i, id := range reply.ListTasks.TaskIDs {
				ids[i] = strconv.FormatUint(uint64(id), 10)
			}
			printColumns(ids)
			return nil
		},
	}
}

func errorOfTask(reply *wire.TaskReply) string {
	if reply == nil {
		return "no reply"
	}
	return reply.Error
}

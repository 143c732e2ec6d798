// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

// Taskrelay-hub is the operator-facing CLI that drives one or more
// taskrelay-unit daemons: creating folders, uploading files, and
// starting and monitoring tasks.
package main

import (
	"fmt"
	"os"

	"github.com/taskrelay/taskrelay/lib/cli"
	"github.com/taskrelay/taskrelay/lib/process"
	"github.com/taskrelay/taskrelay/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	return root().Execute(os.Args[1:])
}

func root() *cli.Command {
	return &cli.Command{
		Name: "taskrelay-hub",
		Description: `Taskrelay: operator CLI for driving taskrelay-unit daemons.

Create folders, upload files, and start and monitor tasks on a unit
over its TCP control connection.`,
		Subcommands: []*cli.Command{
			folderCommand(),
			transferCommand(),
			taskCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Println(version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Create a folder on a unit",
				Command:     "taskrelay-hub folder create 10.0.0.5:7790 task-1",
			},
			{
				Description: "Upload a file into it",
				Command:     "taskrelay-hub transfer send 10.0.0.5:7790 ./script.sh task-1 script.sh",
			},
			{
				Description: "Run it and stream output",
				Command:     "taskrelay-hub task start 10.0.0.5:7790 1 task-1 -- bash script.sh",
			},
		},
	}
}

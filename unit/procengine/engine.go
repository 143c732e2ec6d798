// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

package procengine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/taskrelay/taskrelay/lib/asyncmap"
	"github.com/taskrelay/taskrelay/lib/asyncqueue"
	"github.com/taskrelay/taskrelay/lib/scheduler"
)

// chunkSize bounds a single stdout/stderr read; it has no protocol
// significance, only peak memory per read.
const chunkSize = 4096

// EventKind tags one item observed from a running task.
type EventKind int

const (
	Stdout EventKind = iota
	Stderr
	Exit
)

// Event is one observation from a task: either a chunk of output or
// the terminal exit status.
type Event struct {
	Kind       EventKind
	Chunk      []byte
	ExitStatus int64
}

// Process is one running (or just-finished) task's record, stored by
// value in Engine's asyncmap. events and exited are themselves
// independently heap-allocated, so the goroutines Start spawns hold
// onto them directly instead of through the map.
type Process struct {
	taskID uint32
	cmd    *exec.Cmd
	events *asyncqueue.Queue[Event]
	exited *asyncqueue.Optional[int64]
}

// dependent cancels a task when its folder is shut down. It satisfies
// folder.Shutdowner structurally, without procengine importing folder.
type dependent struct {
	engine *Engine
	taskID uint32
}

func (d dependent) Shutdown(ctx context.Context) error {
	return d.engine.Cancel(ctx, d.taskID)
}

// Engine tracks every task this unit has started, keyed by task ID,
// in lib/asyncmap.Map — the same refcounted, key-ordered storage
// spec.md names for the process-record map.
type Engine struct {
	m *asyncmap.Map[uint32, Process]
}

// New returns an Engine with no running tasks. Run must be started in
// its own goroutine before Start is called.
func New() *Engine {
	e := &Engine{}
	e.m = asyncmap.New(lessTaskID, e.destroy)
	return e
}

func lessTaskID(a, b uint32) bool { return a < b }

// destroy is the asyncmap destruction callback: it signals the
// process group and waits for exit. Cancel and Shutdown (which a
// folder shutdown reaches through Cancel) have already done both
// before erasing, so this is only a backstop.
func (e *Engine) destroy(ctx context.Context, p *Process) error {
	killProcessGroup(p.cmd, syscall.SIGTERM)
	p.exited.Get(ctx)
	return nil
}

// Run drains the engine's destruction queue until ctx is cancelled.
// Meant to be started exactly once, alongside the Engine itself.
func (e *Engine) Run(ctx context.Context) {
	e.m.Run(ctx)
}

// Start wraps args as `bash --login -c 'exec "$@"' -- <args...>` and
// spawns it with cwd dir, in its own process group so Cancel can
// signal every descendant. Rejects a taskID already in use.
func (e *Engine) Start(ctx context.Context, taskID uint32, dir string, args []string) error {
	bashArgs := append([]string{"--login", "-c", `exec "$@"`, "--"}, args...)
	cmd := exec.Command("bash", bashArgs...)
	cmd.Dir = dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return scheduler.Wrap(scheduler.KindReactorError, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return scheduler.Wrap(scheduler.KindReactorError, err)
	}

	if err := cmd.Start(); err != nil {
		return scheduler.Wrap(scheduler.KindReactorError, err)
	}

	events := asyncqueue.NewQueue[Event]()
	exited := asyncqueue.NewOptional[int64]()

	ptr, ok := e.m.Emplace(taskID, Process{taskID: taskID, cmd: cmd, events: events, exited: exited})
	if !ok {
		killProcessGroup(cmd, syscall.SIGTERM)
		return scheduler.New(scheduler.KindInputError, fmt.Sprintf("procengine: task %d already running", taskID))
	}
	ptr.Release()

	var wg sync.WaitGroup
	wg.Add(2)
	go pumpOutput(&wg, stdout, Stdout, events)
	go pumpOutput(&wg, stderr, Stderr, events)

	go func() {
		wg.Wait()
		waitErr := cmd.Wait()
		status := int64(exitCode(waitErr))
		exited.Set(status)
		events.EnqueueAll(Event{Kind: Exit, ExitStatus: status})
	}()

	return nil
}

// Progress returns the next observation for taskID: an output chunk,
// or the terminal exit event. Once exit has been observed, Progress
// returns the exit event immediately on every subsequent call instead
// of blocking, so a late task.progress still gets an answer.
func (e *Engine) Progress(ctx context.Context, taskID uint32) (Event, error) {
	process, err := e.snapshot(taskID)
	if err != nil {
		return Event{}, err
	}

	if process.exited.Ready() {
		status, _ := process.exited.Get(ctx)
		return Event{Kind: Exit, ExitStatus: status}, nil
	}

	event, err := process.events.Dequeue(ctx)
	if err != nil {
		return Event{}, err
	}
	return event, nil
}

// Cancel sends SIGTERM to taskID's process group, waits for it to
// exit, and removes it from the engine.
func (e *Engine) Cancel(ctx context.Context, taskID uint32) error {
	process, err := e.snapshot(taskID)
	if err != nil {
		return err
	}

	if err := killProcessGroup(process.cmd, syscall.SIGTERM); err != nil {
		return scheduler.Wrap(scheduler.KindReactorError, err)
	}
	if _, err := process.exited.Get(ctx); err != nil {
		return err
	}

	e.m.Erase(taskID)
	return nil
}

// Shutdown signals every running process's process group and waits
// for each to exit, for use during the unit's own graceful shutdown so
// no child process outlives its parent daemon.
func (e *Engine) Shutdown(ctx context.Context) error {
	var processes []Process
	for _, taskID := range e.m.Keys() {
		if process, err := e.snapshot(taskID); err == nil {
			processes = append(processes, process)
		}
	}

	for _, process := range processes {
		killProcessGroup(process.cmd, syscall.SIGTERM)
	}
	for _, process := range processes {
		process.exited.Get(ctx)
	}

	return e.m.Shutdown(ctx)
}

// List returns up to limit task IDs starting at offset, in key order.
func (e *Engine) List(ctx context.Context, offset, limit uint32) []uint32 {
	keys := e.m.Keys()
	if offset >= uint32(len(keys)) {
		return nil
	}
	end := offset + limit
	if end > uint32(len(keys)) || limit == 0 {
		end = uint32(len(keys))
	}
	return keys[offset:end]
}

// Lookup returns a folder.Shutdowner that cancels taskID, so callers
// can register it as a dependent of the folder it runs in.
func (e *Engine) Lookup(taskID uint32) (dependent, error) {
	if _, err := e.snapshot(taskID); err != nil {
		return dependent{}, err
	}
	return dependent{engine: e, taskID: taskID}, nil
}

// snapshot copies the Process record for taskID out of the map,
// releasing the map's reference before returning so no caller ever
// holds a Ptr.Value() pointer past its Release.
func (e *Engine) snapshot(taskID uint32) (Process, error) {
	ptr, ok := e.m.Find(taskID)
	if !ok {
		return Process{}, scheduler.New(scheduler.KindInputError, fmt.Sprintf("procengine: task %d is not running", taskID))
	}
	process := *ptr.Value()
	ptr.Release()
	return process, nil
}

func pumpOutput(wg *sync.WaitGroup, r io.Reader, kind EventKind, events *asyncqueue.Queue[Event]) {
	defer wg.Done()
	reader := bufio.NewReaderSize(r, chunkSize)
	buf := make([]byte, chunkSize)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			events.Enqueue(Event{Kind: kind, Chunk: chunk})
		}
		if err != nil {
			return
		}
	}
}

// killProcessGroup sends sig to the negative PID (the whole process
// group), so descendants spawned by the wrapped bash login shell are
// signaled too, not just the shell itself.
func killProcessGroup(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd.Process == nil {
		return nil
	}
	err := unix.Kill(-cmd.Process.Pid, sig)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package proc invokes external tools as blocking subprocesses.
//
// Every pipeline stage and the emulator runner go through the same
// [Runner] so tool invocations are uniform: captured output, real exit
// code, wall-clock duration and cancellation that terminates the whole
// process tree.
package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"syscall"
	"time"
)

// Spec describes a single external tool invocation.
type Spec struct {
	// Path to the tool binary. Resolved via PATH if not absolute.
	Path string

	// Arguments, not including the binary name.
	Args []string

	// Additional environment entries in "KEY=value" form. They are
	// appended to the inherited environment.
	Env []string

	// Working directory. Inherited if empty.
	Dir string

	// Stdin is connected to the tool's standard input if set.
	Stdin io.Reader

	// Stdout and Stderr receive the tool's output streams if set. If
	// nil, output is captured and returned in [Result].
	Stdout io.Writer
	Stderr io.Writer
}

// Result is the outcome of a completed invocation.
type Result struct {
	// Captured output. Empty if the corresponding [Spec] writer was set.
	Stdout []byte
	Stderr []byte

	// Exit code of the process. Valid only if the process exited on its
	// own; see Signaled.
	ExitCode int

	// Signaled is true if the process was terminated by a signal instead
	// of exiting.
	Signaled bool

	Duration time.Duration
}

// Runner runs external tool invocations. It is implemented by [Exec] and
// by test fakes.
type Runner interface {
	Run(ctx context.Context, spec Spec) (*Result, error)
}

// Exec is the [Runner] backed by [os/exec].
//
// The process is put into its own process group. On context cancellation
// the whole group is killed, so tools that fork (emulators, compiler
// drivers) do not leave children behind.
type Exec struct{}

// Run implements [Runner].
//
// A non-zero exit code is not an error. An error is returned only if the
// process could not be started or waited for.
func (Exec) Run(ctx context.Context, spec Spec) (*Result, error) {
	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Stdin = spec.Stdin

	if len(spec.Env) > 0 {
		cmd.Env = append(cmd.Environ(), spec.Env...)
	}

	var stdout, stderr bytes.Buffer

	cmd.Stdout = spec.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = &stdout
	}

	cmd.Stderr = spec.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = &stderr
	}

	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// Negative PID addresses the process group.
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 10 * time.Second

	start := time.Now()

	err := cmd.Run()
	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	var exitErr *exec.ExitError

	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		result.Signaled = exitErr.ProcessState.Sys().(syscall.WaitStatus).Signaled()
	default:
		return nil, fmt.Errorf("run %s: %w", spec.Path, err)
	}

	result.ExitCode = cmd.ProcessState.ExitCode()

	return result, nil
}

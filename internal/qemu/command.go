// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package qemu boots kernel images under emulation and classifies the
// runs.
//
// In test mode the guest is expected to signal termination with an
// explicit exit code via a semihosting exit call, which becomes the
// emulator process exit code. A run that produces no exit signal within
// the budget, or that dies on a guest fault, is classified accordingly
// instead of hanging or being mistaken for a failure of the harness.
package qemu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ebecht/metalrun/internal/proc"
	"github.com/ebecht/metalrun/internal/verdict"
)

// Command is a single runnable emulator invocation.
type Command struct {
	executable string
	args       []string
	mode       Mode
	timeout    time.Duration

	// Runner invokes the emulator process. Defaults to [proc.Exec].
	Runner proc.Runner
}

// String implements [fmt.Stringer].
func (c *Command) String() string {
	return c.executable + " " + strings.Join(c.args, " ")
}

func (c *Command) runner() proc.Runner {
	if c.Runner == nil {
		return proc.Exec{}
	}

	return c.Runner
}

// Run boots the image interactively, connecting stdin to the guest
// serial console and streaming its output to stdout until the context
// is canceled.
//
// The guest is expected to run indefinitely. If the emulator terminates
// on its own, a [CommandError] wrapping [ErrEmulatorExited] is returned.
func (c *Command) Run(
	ctx context.Context,
	stdin io.Reader,
	stdout, stderr io.Writer,
) error {
	slog.Debug("Emulator command", slog.String("command", c.String()))

	result, err := c.runner().Run(ctx, proc.Spec{
		Path:   c.executable,
		Args:   c.args,
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
	})
	if err != nil {
		return err
	}

	// Termination through the user's interrupt is the expected way to
	// leave run mode.
	if ctx.Err() != nil {
		return nil
	}

	return &CommandError{
		Err:      ErrEmulatorExited,
		ExitCode: result.ExitCode,
	}
}

// Test boots the image in test mode and classifies the run.
//
// The returned verdict carries no unit name; the dispatcher owns that.
// An error is returned only for host-side failures, like a missing
// emulator binary. Guest behavior never produces an error here, it is
// always expressed as a verdict.
func (c *Command) Test(ctx context.Context) (verdict.Verdict, error) {
	if c.mode != ModeTest {
		return verdict.Verdict{}, ErrNotTestMode
	}

	slog.Debug("Emulator command", slog.String("command", c.String()))

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.runner().Run(runCtx, proc.Spec{
		Path: c.executable,
		Args: c.args,
	})
	if err != nil {
		return verdict.Verdict{}, fmt.Errorf("emulator: %w", err)
	}

	outcome, diagnostic := classify(result, runCtx.Err())

	return verdict.Verdict{
		Outcome:    outcome,
		Diagnostic: diagnostic,
		Duration:   result.Duration,
	}, nil
}

// classify derives the outcome of a completed test mode run.
//
// Precedence: exceeding the wall-clock budget beats everything, a guest
// fault dumped on the serial channel beats the exit code, since a panic
// handler may still reach the semihosting exit.
func classify(result *proc.Result, ctxErr error) (verdict.Outcome, string) {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return verdict.Timeout, "no exit signal within budget"
	}

	if marker, faultErr := faultMarker(result.Stdout); faultErr != nil {
		return verdict.Crash, marker
	}

	if result.Signaled {
		return verdict.Crash, "emulator terminated by signal"
	}

	if result.ExitCode == 0 {
		return verdict.Pass, ""
	}

	return verdict.Fail, strconv.Itoa(result.ExitCode)
}

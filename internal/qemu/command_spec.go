// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"fmt"
	"time"

	"github.com/ebecht/metalrun/internal/bsp"
)

// Mode selects how the emulator runs the boot image.
type Mode string

const (
	// ModeRun boots the image with the serial channel attached to the
	// host terminal. No exit is expected; the guest runs until the user
	// interrupts it.
	ModeRun Mode = "run"

	// ModeTest boots the image with semihosting enabled, so the guest
	// can signal an explicit exit code, and enforces a wall-clock
	// budget.
	ModeTest Mode = "test"

	// ModeDebug boots the image halted with a GDB server stub.
	ModeDebug Mode = "debug"
)

// DefaultTestTimeout bounds a test mode run if no budget is configured.
// An emulated kernel may deadlock or loop forever with no natural
// termination, so every test run needs some budget.
const DefaultTestTimeout = 2 * time.Minute

// CommandSpec defines the parameters for a [Command].
type CommandSpec struct {
	// Image is the boot image to run.
	Image string

	// Mode of the run. Defaults to [ModeRun].
	Mode Mode

	// Timeout is the wall-clock budget for [ModeTest]. Ignored in other
	// modes.
	Timeout time.Duration

	// Executable overrides the variant's emulator binary.
	Executable string

	// Machine overrides the variant's emulator machine type.
	Machine string

	// ExtraArgs are passed to the emulator verbatim. They must not
	// collide with the arguments the command builds itself.
	ExtraArgs []Argument
}

// NewCommand creates a [Command] for the given hardware variant spec.
//
// Variants without emulator support yield [bsp.ErrNoEmulator] before any
// process is prepared. This is a configuration level skip, not a
// failure.
func NewCommand(hw bsp.Spec, spec CommandSpec) (*Command, error) {
	if !hw.EmulatorSupported() {
		return nil, bsp.ErrNoEmulator
	}

	if spec.Executable == "" {
		spec.Executable = hw.EmulatorBinary
	}

	if spec.Machine == "" {
		spec.Machine = hw.EmulatorMachine
	}

	if spec.Mode == "" {
		spec.Mode = ModeRun
	}

	if spec.Timeout == 0 {
		spec.Timeout = DefaultTestTimeout
	}

	args, err := BuildArgumentStrings(spec.arguments())
	if err != nil {
		return nil, fmt.Errorf("build arguments: %w", err)
	}

	return &Command{
		executable: spec.Executable,
		args:       args,
		mode:       spec.Mode,
		timeout:    spec.Timeout,
	}, nil
}

func (s *CommandSpec) arguments() []Argument {
	args := []Argument{
		UniqueArg("M", s.Machine),
		UniqueArg("kernel", s.Image),
		UniqueArg("serial", "stdio"),
		// Disable video output.
		UniqueArg("display", "none"),
		// Disable the QEMU monitor. The single stdio channel belongs to
		// the guest serial console.
		UniqueArg("monitor", "none"),
	}

	switch s.Mode {
	case ModeTest:
		args = append(args, UniqueArg("semihosting"))
	case ModeDebug:
		// GDB server on the default port, guest halted at reset.
		args = append(args, UniqueArg("s"), UniqueArg("S"))
	case ModeRun:
	}

	return append(args, s.ExtraArgs...)
}

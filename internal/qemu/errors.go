// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import "errors"

var (
	// ErrGuestPanic is returned if the guest kernel panicked.
	ErrGuestPanic = errors.New("guest kernel panicked")

	// ErrGuestFault is returned if the guest took an unhandled CPU
	// exception.
	ErrGuestFault = errors.New("guest took an unhandled exception")

	// ErrEmulatorExited is returned in run mode if the emulator
	// terminated. A run mode guest is expected to run until the user
	// interrupts it.
	ErrEmulatorExited = errors.New("emulator exited unexpectedly")

	// ErrArgumentCollision is returned if two arguments marked unique
	// share a name.
	ErrArgumentCollision = errors.New("colliding args")

	// ErrNotTestMode is returned if a command built for another mode is
	// used for a test run. Only test mode commands carry the exit
	// signal wiring the classification relies on.
	ErrNotTestMode = errors.New("command was not built for test mode")
)

// CommandError wraps any error occurred during an emulator run.
type CommandError struct {
	Err      error
	ExitCode int
}

// Error implements the [error] interface.
func (e *CommandError) Error() string {
	return "emulator: " + e.Err.Error()
}

// Is implements the [errors.Is] interface.
func (*CommandError) Is(other error) bool {
	_, ok := other.(*CommandError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline

import "errors"

var (
	// ErrTableSectionMissing is returned if the executable has no
	// reserved translation table section.
	ErrTableSectionMissing = errors.New("translation table section not found")

	// ErrTableSectionTooSmall is returned if the reserved translation
	// table section is smaller than the variant requires. The linker
	// script and the table tool disagree in this case.
	ErrTableSectionTooSmall = errors.New("translation table section too small")

	// ErrImageSizeMismatch is returned if the exported image size does
	// not equal the sum of the loadable segment sizes of its input.
	ErrImageSizeMismatch = errors.New("image size does not match loadable segments")

	// ErrNoOutputReported is returned if the symbol tool did not report
	// a produced output file.
	ErrNoOutputReported = errors.New("symbol tool did not report an output file")
)

// ToolchainError indicates a failed compiler or stripper invocation. The
// tool's raw diagnostics are carried verbatim.
type ToolchainError struct {
	Tool     string
	ExitCode int
	Output   []byte
}

// Error implements the [error] interface.
func (e *ToolchainError) Error() string {
	msg := e.Tool + " failed"
	if len(e.Output) > 0 {
		msg += ": " + string(e.Output)
	}

	return msg
}

// Is implements the [errors.Is] interface.
func (*ToolchainError) Is(other error) bool {
	_, ok := other.(*ToolchainError)
	return ok
}

// PatchError indicates a failed translation table or symbol patch. Any
// partially patched artifact has been invalidated when this is returned.
type PatchError struct {
	Stage string
	Err   error
}

// Error implements the [error] interface.
func (e *PatchError) Error() string {
	return "patch " + e.Stage + ": " + e.Err.Error()
}

// Is implements the [errors.Is] interface.
func (*PatchError) Is(other error) bool {
	_, ok := other.(*PatchError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *PatchError) Unwrap() error {
	return e.Err
}

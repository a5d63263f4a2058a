// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bsp

import "errors"

// ErrNoEmulator is returned if an operation requires an emulator but the
// selected variant has no emulator support. It is an informational skip,
// not a failure.
var ErrNoEmulator = errors.New("no emulator support for this variant")

// ConfigError indicates an invalid or unsupported build configuration. It
// is always detected before any pipeline stage runs.
type ConfigError struct {
	msg string
	err error
}

// Error implements the [error] interface.
func (e *ConfigError) Error() string {
	if e.err == nil {
		return "config: " + e.msg
	}

	return "config: " + e.msg + ": " + e.err.Error()
}

// Is implements the [errors.Is] interface.
func (*ConfigError) Is(other error) bool {
	_, ok := other.(*ConfigError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *ConfigError) Unwrap() error {
	return e.err
}

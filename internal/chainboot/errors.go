// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package chainboot

import (
	"errors"
	"io/fs"
)

// Protocol errors.
var (
	// ErrBadAck is returned if the target does not acknowledge the
	// image size with "OK".
	ErrBadAck = errors.New("target did not acknowledge image size")

	// ErrImageTooLarge is returned for images whose size does not fit
	// the 32 bit size field of the push protocol.
	ErrImageTooLarge = errors.New("image size exceeds protocol limit")
)

// DeployError wraps any error that occurs while pushing an image to a
// target device.
type DeployError struct {
	Device string
	Err    error
}

func (e *DeployError) Error() string {
	msg := "deploy to " + e.Device + ": " + e.Err.Error()

	if errors.Is(e.Err, fs.ErrPermission) {
		msg += " (add your user to the device's group, or use sudo)"
	}

	return msg
}

// Is implements the interface required by [errors.Is].
func (e *DeployError) Is(other error) bool {
	_, ok := other.(*DeployError)
	return ok
}

func (e *DeployError) Unwrap() error {
	return e.Err
}

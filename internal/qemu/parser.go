// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"bufio"
	"bytes"
	"regexp"
)

var (
	panicRE = regexp.MustCompile(`^Kernel panic`)
	faultRE = regexp.MustCompile(`^CPU Exception`)
)

// faultMarker scans the guest serial output for a kernel panic or an
// unhandled exception dump.
//
// It returns the matched line and the matching sentinel error, or nil if
// the output shows no fault.
func faultMarker(serial []byte) (string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(serial))

	for scanner.Scan() {
		line := scanner.Bytes()

		switch {
		case panicRE.Match(line):
			return scanner.Text(), ErrGuestPanic
		case faultRE.Match(line):
			return scanner.Text(), ErrGuestFault
		}
	}

	return "", nil
}

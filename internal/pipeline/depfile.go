// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline

import (
	"strings"
)

// parseDepfile parses a make style dependency manifest as emitted by the
// cross-compiler: "target: input input ..." with backslash line
// continuations. Every listed input invalidates the compile cache when
// its content changes.
//
// Escaped spaces ("\ ") in paths are unescaped. Duplicate entries are
// kept; the caller treats inputs as a set.
func parseDepfile(data []byte) []string {
	joined := strings.ReplaceAll(string(data), "\\\n", " ")

	var inputs []string

	for _, line := range strings.Split(joined, "\n") {
		_, deps, found := strings.Cut(line, ":")
		if !found {
			continue
		}

		for _, field := range splitDepFields(deps) {
			if field != "" {
				inputs = append(inputs, field)
			}
		}
	}

	return inputs
}

// splitDepFields splits on unescaped whitespace.
func splitDepFields(s string) []string {
	var (
		fields  []string
		current strings.Builder
	)

	escaped := false

	for _, r := range s {
		switch {
		case escaped:
			current.WriteRune(r)

			escaped = false
		case r == '\\':
			escaped = true
		case r == ' ' || r == '\t':
			if current.Len() > 0 {
				fields = append(fields, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		fields = append(fields, current.String())
	}

	return fields
}

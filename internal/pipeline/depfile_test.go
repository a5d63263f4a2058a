// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDepfile(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name: "empty",
		},
		{
			name:     "no dependencies",
			input:    "kernel.elf:\n",
			expected: nil,
		},
		{
			name:     "single line",
			input:    "kernel.elf: src/main.rs src/boot.rs\n",
			expected: []string{"src/main.rs", "src/boot.rs"},
		},
		{
			name: "continuations",
			input: "kernel.elf: src/main.rs \\\n" +
				"  src/bsp/raspberrypi.rs \\\n" +
				"  src/memory/mmu.rs\n",
			expected: []string{
				"src/main.rs",
				"src/bsp/raspberrypi.rs",
				"src/memory/mmu.rs",
			},
		},
		{
			name:     "escaped spaces",
			input:    "kernel.elf: src/with\\ space.rs src/other.rs\n",
			expected: []string{"src/with space.rs", "src/other.rs"},
		},
		{
			name:     "lines without target are skipped",
			input:    "just some noise\nkernel.elf: src/main.rs\n",
			expected: []string{"src/main.rs"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseDepfile([]byte(tt.input)))
		})
	}
}

// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd_test

import (
	"testing"
	"testing/fstest"

	"github.com/ebecht/metalrun/internal/cmd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvArgs(t *testing.T) {
	t.Setenv("METALRUN_ARGS", " -variant=rpi4  -debug ")

	assert.Equal(t, []string{"-variant=rpi4", "-debug"}, cmd.EnvArgs())
}

func TestLocalConfigArgs(t *testing.T) {
	t.Setenv("MY_VARIANT", "rpi4")

	tests := []struct {
		name     string
		content  string
		expected []string
	}{
		{
			name:     "empty file",
			content:  "",
			expected: []string{},
		},
		{
			name:     "one arg per line",
			content:  "-variant=rpi3\n-debug-instr\n",
			expected: []string{"-variant=rpi3", "-debug-instr"},
		},
		{
			name:     "blank lines and whitespace",
			content:  "\n  -debug  \n\n",
			expected: []string{"-debug"},
		},
		{
			name:     "env expansion",
			content:  "-variant=${MY_VARIANT}\n",
			expected: []string{"-variant=rpi4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{
				".metalrun-args": &fstest.MapFile{
					Data: []byte(tt.content),
				},
			}

			args, err := cmd.LocalConfigArgs(fsys, ".metalrun-args")
			require.NoError(t, err)

			assert.Equal(t, tt.expected, args)
		})
	}
}

func TestLocalConfigArgsMissingFile(t *testing.T) {
	args, err := cmd.LocalConfigArgs(fstest.MapFS{}, ".metalrun-args")
	require.NoError(t, err)
	assert.Nil(t, args)
}

func TestMergedArgs(t *testing.T) {
	t.Setenv("METALRUN_ARGS", "-variant=rpi4")

	fsys := fstest.MapFS{
		".metalrun-args": &fstest.MapFile{
			Data: []byte("-debug\n"),
		},
	}

	args, err := cmd.MergedArgs(
		[]string{"-variant=rpi3"}, fsys, ".metalrun-args")
	require.NoError(t, err)

	// Command line last, so it wins with flag semantics.
	assert.Equal(t, []string{"-variant=rpi4", "-debug", "-variant=rpi3"}, args)
}

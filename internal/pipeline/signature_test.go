// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ebecht/metalrun/internal/bsp"
	"github.com/ebecht/metalrun/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSignature(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact")

	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	first, err := pipeline.FileSignature(path)
	require.NoError(t, err)

	// Same content, same signature, regardless of mtime.
	second, err := pipeline.FileSignature(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.NoError(t, os.WriteFile(path, []byte("changed"), 0o644))

	third, err := pipeline.FileSignature(path)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestFileSignatureMissingFile(t *testing.T) {
	_, err := pipeline.FileSignature(filepath.Join(t.TempDir(), "absent"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfigSignature(t *testing.T) {
	config := func(variant bsp.Variant, debug bool, features ...string) bsp.Config {
		cfg, err := bsp.NewConfig(variant, debug, features)
		require.NoError(t, err)

		return cfg
	}

	base := pipeline.ConfigSignature(config(bsp.RPi3, false, "a", "b"))

	assert.Equal(t, base,
		pipeline.ConfigSignature(config(bsp.RPi3, false, "b", "a")))

	assert.NotEqual(t, base,
		pipeline.ConfigSignature(config(bsp.RPi4, false, "a", "b")))
	assert.NotEqual(t, base,
		pipeline.ConfigSignature(config(bsp.RPi3, true, "a", "b")))
	assert.NotEqual(t, base,
		pipeline.ConfigSignature(config(bsp.RPi3, false, "a")))

	// Field boundaries are unambiguous.
	assert.NotEqual(t,
		pipeline.ConfigSignature(config(bsp.RPi3, false, "ab")),
		pipeline.ConfigSignature(config(bsp.RPi3, false, "a", "b")))
}

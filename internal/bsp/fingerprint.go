// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bsp

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FingerprintFile is the name of the per-build-directory file recording
// the config of the last successful build.
const FingerprintFile = "config.yaml"

// Resolve compares the config against the fingerprint of the last
// successful build in buildDir.
//
// It returns true if a full invalidation is required, which is the case
// if no fingerprint exists or the persisted config differs in any field.
// The new fingerprint is not written here. Callers must call
// [CommitFingerprint] only after the pipeline run that consumed the
// config succeeded.
func Resolve(cfg Config, buildDir string) (bool, error) {
	path := filepath.Join(buildDir, FingerprintFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return true, nil
		}

		return false, fmt.Errorf("read fingerprint: %w", err)
	}

	var previous Config

	err = yaml.Unmarshal(data, &previous)
	if err != nil {
		// An unreadable fingerprint is treated like an absent one. The
		// build is invalidated and the file rewritten on success.
		return true, nil
	}

	return !cfg.Equal(previous), nil
}

// CommitFingerprint persists the config as the fingerprint of the last
// successful build in buildDir.
func CommitFingerprint(cfg Config, buildDir string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal fingerprint: %w", err)
	}

	path := filepath.Join(buildDir, FingerprintFile)

	err = os.WriteFile(path, data, 0o644)
	if err != nil {
		return fmt.Errorf("write fingerprint: %w", err)
	}

	return nil
}

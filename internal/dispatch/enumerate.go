// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package dispatch

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Enumerate collects the test units for the selected kinds.
//
// The boot kind contributes a single smoke test against the regular
// kernel. The unit kind contributes the kernel library's test build.
// Integration units are enumerated from the source tree's tests
// directory, one unit per test source, optionally narrowed by a name
// filter which may be a glob pattern.
func Enumerate(
	sourceDir string,
	selection Selection,
	filter string,
) ([]Unit, error) {
	var units []Unit

	if selection.contains(KindBoot) {
		units = append(units, Unit{Name: "boot", Kind: KindBoot})
	}

	if selection.contains(KindUnit) {
		units = append(units, Unit{
			Name:     "libkernel",
			Kind:     KindUnit,
			Selector: "lib",
		})
	}

	if selection.contains(KindIntegration) {
		integration, err := enumerateIntegration(sourceDir, filter)
		if err != nil {
			return nil, err
		}

		units = append(units, integration...)
	}

	return units, nil
}

func enumerateIntegration(sourceDir, filter string) ([]Unit, error) {
	sources, err := filepath.Glob(filepath.Join(sourceDir, "tests", "*.rs"))
	if err != nil {
		return nil, fmt.Errorf("enumerate integration tests: %w", err)
	}

	units := make([]Unit, 0, len(sources))

	for _, source := range sources {
		name := strings.TrimSuffix(filepath.Base(source), ".rs")

		if filter != "" {
			match, err := path.Match(filter, name)
			if err != nil {
				return nil, fmt.Errorf("test filter %q: %w", filter, err)
			}

			if !match {
				continue
			}
		}

		units = append(units, Unit{
			Name:     name,
			Kind:     KindIntegration,
			Selector: name,
		})
	}

	sort.Slice(units, func(i, j int) bool {
		return units[i].Name < units[j].Name
	})

	return units, nil
}

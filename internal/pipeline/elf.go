// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline

import (
	"debug/elf"
	"fmt"
)

// sectionSize returns the size of the named section of the ELF file.
func sectionSize(path, name string) (uint64, error) {
	file, err := elf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open ELF %s: %w", path, err)
	}
	defer file.Close()

	section := file.Section(name)
	if section == nil {
		return 0, fmt.Errorf("%w: %s", ErrTableSectionMissing, name)
	}

	return section.Size, nil
}

// loadableSize returns the sum of the loadable segment file sizes of the
// ELF file. This is the exact byte size a stripped raw image must have.
func loadableSize(path string) (uint64, error) {
	file, err := elf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open ELF %s: %w", path, err)
	}
	defer file.Close()

	var total uint64

	for _, prog := range file.Progs {
		if prog.Type == elf.PT_LOAD {
			total += prog.Filesz
		}
	}

	return total, nil
}

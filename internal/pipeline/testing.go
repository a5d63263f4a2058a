// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"sort"
	"testing"

	"github.com/ebecht/metalrun/internal/proc"
	"github.com/stretchr/testify/require"
)

// TestELF describes a synthetic ELF file for tests.
//
// Sections are emitted as SHT_NOBITS with the declared size, so only
// headers are written. LoadSizes become PT_LOAD program headers with the
// given file sizes.
type TestELF struct {
	Sections  map[string]uint64
	LoadSizes []uint64

	// Extra bytes appended after all headers. Used to vary the file
	// content without changing its ELF shape.
	Trailer []byte
}

// WriteTestELF writes a minimal valid ELF64 file to path.
func WriteTestELF(tb testing.TB, path string, spec TestELF) {
	tb.Helper()

	const (
		ehSize = 64
		phSize = 56
		shSize = 64
	)

	names := make([]string, 0, len(spec.Sections))
	for name := range spec.Sections {
		names = append(names, name)
	}

	sort.Strings(names)

	// Build the section header string table.
	strtab := []byte{0}
	nameOffsets := make(map[string]uint32, len(names)+1)

	for _, name := range append(names, ".shstrtab") {
		nameOffsets[name] = uint32(len(strtab))
		strtab = append(strtab, name...)
		strtab = append(strtab, 0)
	}

	numPh := len(spec.LoadSizes)
	numSh := len(names) + 2 // null section and .shstrtab

	phOff := uint64(ehSize)
	strtabOff := phOff + uint64(numPh*phSize)
	shOff := strtabOff + uint64(len(strtab))

	var buf bytes.Buffer

	le := binary.LittleEndian
	write := func(value any) {
		require.NoError(tb, binary.Write(&buf, le, value))
	}

	// ELF header.
	buf.Write([]byte{0x7f, 'E', 'L', 'F', 2, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0})
	write(uint16(2))   // e_type ET_EXEC
	write(uint16(183)) // e_machine EM_AARCH64
	write(uint32(1))   // e_version
	write(uint64(0))   // e_entry
	write(phOff)       // e_phoff
	write(shOff)       // e_shoff
	write(uint32(0))   // e_flags
	write(uint16(ehSize))
	write(uint16(phSize))
	write(uint16(numPh))
	write(uint16(shSize))
	write(uint16(numSh))
	write(uint16(numSh - 1)) // e_shstrndx

	// Program headers.
	for _, size := range spec.LoadSizes {
		write(uint32(1)) // p_type PT_LOAD
		write(uint32(5)) // p_flags R+X
		write(uint64(0)) // p_offset
		write(uint64(0)) // p_vaddr
		write(uint64(0)) // p_paddr
		write(size)      // p_filesz
		write(size)      // p_memsz
		write(uint64(0)) // p_align
	}

	buf.Write(strtab)

	writeSection := func(nameOff uint32, typ uint32, off, size uint64) {
		write(nameOff)
		write(typ)
		write(uint64(0)) // sh_flags
		write(uint64(0)) // sh_addr
		write(off)
		write(size)
		write(uint32(0)) // sh_link
		write(uint32(0)) // sh_info
		write(uint64(0)) // sh_addralign
		write(uint64(0)) // sh_entsize
	}

	// Null section.
	writeSection(0, 0, 0, 0)

	for _, name := range names {
		// SHT_NOBITS occupies no file space but declares its size.
		writeSection(nameOffsets[name], 8, 0, spec.Sections[name])
	}

	writeSection(nameOffsets[".shstrtab"], 3, strtabOff, uint64(len(strtab)))

	buf.Write(spec.Trailer)

	require.NoError(tb, os.WriteFile(path, buf.Bytes(), 0o644))
}

// ScriptedRunner is a [proc.Runner] for tests. It records every
// invocation and delegates to the handler registered for the tool path.
type ScriptedRunner struct {
	Handlers map[string]func(spec proc.Spec) (*proc.Result, error)

	Calls []proc.Spec
}

// Run implements [proc.Runner].
func (r *ScriptedRunner) Run(
	_ context.Context,
	spec proc.Spec,
) (*proc.Result, error) {
	r.Calls = append(r.Calls, spec)

	handler, exists := r.Handlers[spec.Path]
	if !exists {
		return &proc.Result{ExitCode: 127}, nil
	}

	return handler(spec)
}

// CalledTools returns the tool paths of all recorded invocations in
// order.
func (r *ScriptedRunner) CalledTools() []string {
	tools := make([]string, len(r.Calls))
	for idx, call := range r.Calls {
		tools[idx] = call.Path
	}

	return tools
}

// ArgAfter returns the argument following the given flag, or "".
func ArgAfter(spec proc.Spec, flag string) string {
	for idx, arg := range spec.Args {
		if arg == flag && idx+1 < len(spec.Args) {
			return spec.Args[idx+1]
		}
	}

	return ""
}

// EnvValue returns the value of the given environment key in the spec.
func EnvValue(spec proc.Spec, key string) string {
	prefix := key + "="

	for _, entry := range spec.Env {
		if rest, found := bytes.CutPrefix([]byte(entry), []byte(prefix)); found {
			return string(rest)
		}
	}

	return ""
}

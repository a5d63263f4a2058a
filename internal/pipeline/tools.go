// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline

// Tools names the external tool binaries the pipeline invokes. Each is
// an external collaborator with a fixed contract; none of them is
// reimplemented here.
type Tools struct {
	// Compiler produces a raw kernel executable plus a make style
	// dependency manifest from a source root, target descriptor and
	// feature set.
	Compiler string

	// Tables patches precomputed translation tables into the reserved
	// section of an executable, in place. Silent on success.
	Tables string

	// Symbols extracts and re-embeds the symbol table. Driven by
	// environment parameters; prints the produced file as its last
	// output line since the output size depends on the symbol count.
	Symbols string

	// Objcopy strips an executable down to a raw binary image.
	Objcopy string
}

// DefaultTools returns the tool names used when nothing is overridden.
func DefaultTools() Tools {
	return Tools{
		Compiler: "kernel-cc",
		Tables:   "ttables-patch",
		Symbols:  "kernel-symbols",
		Objcopy:  "rust-objcopy",
	}
}

// withDefaults fills empty fields from [DefaultTools].
func (t Tools) withDefaults() Tools {
	defaults := DefaultTools()

	if t.Compiler == "" {
		t.Compiler = defaults.Compiler
	}

	if t.Tables == "" {
		t.Tables = defaults.Tables
	}

	if t.Symbols == "" {
		t.Symbols = defaults.Symbols
	}

	if t.Objcopy == "" {
		t.Objcopy = defaults.Objcopy
	}

	return t
}

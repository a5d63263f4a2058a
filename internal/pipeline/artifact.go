// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline

// Stage names, in pipeline order.
const (
	StageCompile = "compile"
	StageTables  = "ttables"
	StageSymbols = "symbols"
	StageImage   = "image"
)

// Fixed artifact file names. The symbol stage's output name is tool
// determined and therefore not listed here.
const (
	rawELFName    = "kernel.elf"
	tablesELFName = "kernel_ttables.elf"
	imageName     = "kernel.img"
)

// Artifact is a named build product.
//
// An Artifact is owned by its producing stage until it is handed to the
// next stage; no stage modifies an artifact it did not produce.
type Artifact struct {
	// Stage that produced the artifact.
	Stage string

	// Absolute path of the artifact file.
	Path string

	// Content signature of the artifact file.
	Signature Signature
}

// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bsp

// Variant identifies a supported hardware variant.
type Variant string

// Supported hardware variants.
const (
	RPi3 Variant = "rpi3"
	RPi4 Variant = "rpi4"
)

func (v *Variant) isKnown() bool {
	switch *v {
	case RPi3, RPi4:
		return true
	default:
		return false
	}
}

// String implements [fmt.Stringer].
func (v *Variant) String() string {
	return string(*v)
}

// MarshalText implements [encoding.TextMarshaler].
func (v Variant) MarshalText() ([]byte, error) {
	if !v.isKnown() {
		return nil, &ConfigError{msg: "unknown variant: " + string(v)}
	}

	return []byte(v), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler]. It makes [Variant]
// usable with [flag.FlagSet.TextVar].
func (v *Variant) UnmarshalText(text []byte) error {
	variant := Variant(text)
	if !variant.isKnown() {
		return &ConfigError{msg: "unknown variant: " + string(text)}
	}

	*v = variant

	return nil
}

// Spec carries the hardware specific build parameters of a [Variant].
//
// The values mirror what the kernel's linker scripts and board support
// code assume for the same variant. TableSection and TableSize describe
// the region the linker reserves for the precomputed translation tables.
type Spec struct {
	// Target descriptor passed to the cross-compiler.
	Target string

	// Name of the reserved ELF section for the translation tables.
	TableSection string

	// Number of bytes the linker script reserves for the tables.
	TableSize uint64

	// Address the chainboot bootloader loads the image to.
	LoadAddress uint64

	// QEMU system binary and machine type. Empty if the variant has no
	// emulator support.
	EmulatorBinary  string
	EmulatorMachine string
}

var variantSpecs = map[Variant]Spec{
	RPi3: {
		Target:          "aarch64-rpi3-none-elf",
		TableSection:    ".translation_tables",
		TableSize:       0x10000,
		LoadAddress:     0x80000,
		EmulatorBinary:  "qemu-system-aarch64",
		EmulatorMachine: "raspi3b",
	},
	RPi4: {
		Target:       "aarch64-rpi4-none-elf",
		TableSection: ".translation_tables",
		TableSize:    0x10000,
		LoadAddress:  0x80000,
		// No QEMU machine model exists for this board.
	},
}

// SpecFor returns the [Spec] for the given variant.
func SpecFor(variant Variant) (Spec, error) {
	spec, exists := variantSpecs[variant]
	if !exists {
		return Spec{}, &ConfigError{msg: "unknown variant: " + string(variant)}
	}

	return spec, nil
}

// EmulatorSupported reports whether the variant can be run under
// emulation. Callers must consult this before attempting run, test or
// debug operations.
func (s *Spec) EmulatorSupported() bool {
	return s.EmulatorBinary != "" && s.EmulatorMachine != ""
}

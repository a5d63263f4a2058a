// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package dispatch

import (
	"errors"
	"strings"
)

// ErrKindUnknown is returned for an unknown test kind selection.
var ErrKindUnknown = errors.New("unknown test kind")

// Kind is the level a test unit runs at.
type Kind string

// Test kinds.
const (
	KindUnit        Kind = "unit"
	KindIntegration Kind = "integration"
	KindBoot        Kind = "boot"
)

// Unit is a single runnable test unit.
type Unit struct {
	// Name identifies the unit in reports and in the isolated build
	// directory path.
	Name string

	Kind Kind

	// Selector names the test source the compiler builds for this
	// unit. Empty for the boot smoke test, which boots the regular
	// kernel.
	Selector string
}

// Selection is the set of test kinds to dispatch. It implements
// [encoding.TextUnmarshaler] so it can be used with flag.TextVar and as
// CLI argument: "unit", "integration", "boot" or "all".
type Selection []Kind

// UnmarshalText implements [encoding.TextUnmarshaler].
func (s *Selection) UnmarshalText(text []byte) error {
	switch Kind(text) {
	case KindUnit, KindIntegration, KindBoot:
		*s = Selection{Kind(text)}
	case "all":
		*s = Selection{KindBoot, KindUnit, KindIntegration}
	default:
		return ErrKindUnknown
	}

	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (s Selection) MarshalText() ([]byte, error) {
	kinds := make([]string, len(s))
	for idx, kind := range s {
		kinds[idx] = string(kind)
	}

	return []byte(strings.Join(kinds, ",")), nil
}

func (s Selection) contains(kind Kind) bool {
	for _, k := range s {
		if k == kind {
			return true
		}
	}

	return false
}

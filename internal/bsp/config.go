// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bsp

import (
	"slices"
	"strings"
)

// FeatureTestInstr is the reserved feature flag that enables test
// instrumentation in the kernel. The test dispatcher sets it for every
// test build.
const FeatureTestInstr = "test-instr"

// Config is the resolved build configuration for a single invocation.
//
// It is immutable once created by [NewConfig] and passed read-only
// through every pipeline stage. Two configs compare equal exactly if
// all their fields are equal; features are a set.
type Config struct {
	Variant   Variant  `yaml:"variant"`
	DebugInfo bool     `yaml:"debug"`
	Features  []string `yaml:"features,omitempty"`
}

// NewConfig validates the selections and returns a normalized [Config].
//
// Features are sorted and de-duplicated so that configs with the same
// feature set always compare equal.
func NewConfig(variant Variant, debugInfo bool, features []string) (Config, error) {
	if !variant.isKnown() {
		return Config{}, &ConfigError{msg: "unknown variant: " + string(variant)}
	}

	normalized := slices.Clone(features)
	slices.Sort(normalized)
	normalized = slices.Compact(normalized)

	for _, feature := range normalized {
		if strings.TrimSpace(feature) == "" {
			return Config{}, &ConfigError{msg: "empty feature flag"}
		}
	}

	return Config{
		Variant:   variant,
		DebugInfo: debugInfo,
		Features:  normalized,
	}, nil
}

// WithFeature returns a copy of the config with the given feature added.
func (c Config) WithFeature(feature string) Config {
	if slices.Contains(c.Features, feature) {
		return c
	}

	features := slices.Clone(c.Features)
	features = append(features, feature)
	slices.Sort(features)

	c.Features = features

	return c
}

// Equal compares two configs by value.
func (c Config) Equal(other Config) bool {
	return c.Variant == other.Variant &&
		c.DebugInfo == other.DebugInfo &&
		slices.Equal(c.Features, other.Features)
}

// DirName returns the build directory name for the config. Builds with
// different variants or debug settings never share a directory.
func (c Config) DirName() string {
	name := string(c.Variant)
	if c.DebugInfo {
		name += "-debug"
	}

	return name
}

// Spec returns the hardware [Spec] for the config's variant.
func (c Config) Spec() (Spec, error) {
	return SpecFor(c.Variant)
}

// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// StateFile is the name of the per-build-directory file recording what
// each stage produced and from which inputs.
const StateFile = "state.yaml"

// ArtifactState records one produced artifact in the build state.
type ArtifactState struct {
	// Path of the artifact file, relative to the build directory.
	Path string `yaml:"path"`

	// Content signature of the artifact at production time.
	Signature Signature `yaml:"signature"`

	// Signature of every declared input at production time, keyed by
	// input identity (file path or the config pseudo-input).
	Inputs map[string]Signature `yaml:"inputs"`
}

// State is the persisted build state of one build directory.
//
// It replaces timestamp based freshness: an artifact is fresh exactly if
// its own content and every recorded input content still match the
// signatures recorded when it was produced.
type State struct {
	Artifacts map[string]ArtifactState `yaml:"artifacts"`

	dir string
}

// LoadState reads the build state of the given build directory. A
// missing or unreadable state file yields an empty state, which marks
// every artifact stale.
func LoadState(buildDir string) *State {
	state := &State{
		Artifacts: map[string]ArtifactState{},
		dir:       buildDir,
	}

	data, err := os.ReadFile(filepath.Join(buildDir, StateFile))
	if err != nil {
		return state
	}

	if yaml.Unmarshal(data, state) != nil {
		state.Artifacts = map[string]ArtifactState{}
	}

	return state
}

// Reset drops all recorded artifacts. Used on full invalidation.
func (s *State) Reset() {
	s.Artifacts = map[string]ArtifactState{}
}

// Fresh returns the recorded artifact for the stage if it is still
// valid: the artifact file exists with its recorded signature and every
// recorded input still has its recorded signature.
//
// currentInputs provides the present signature per input identity.
// Inputs missing from currentInputs are resolved as files.
func (s *State) Fresh(
	stage string,
	currentInputs map[string]Signature,
) (*Artifact, bool) {
	recorded, exists := s.Artifacts[stage]
	if !exists {
		return nil, false
	}

	path := filepath.Join(s.dir, recorded.Path)

	signature, err := FileSignature(path)
	if err != nil || signature != recorded.Signature {
		return nil, false
	}

	for input, recordedSig := range recorded.Inputs {
		currentSig, known := currentInputs[input]
		if !known {
			currentSig, err = FileSignature(input)
			if err != nil {
				return nil, false
			}
		}

		if currentSig != recordedSig {
			return nil, false
		}
	}

	return &Artifact{
		Stage:     stage,
		Path:      path,
		Signature: recorded.Signature,
	}, true
}

// Drop removes the stage's record and persists the state, so a stage
// output that is about to be rewritten can never be mistaken for a
// valid cache hit if the rewrite fails midway.
func (s *State) Drop(stage string) error {
	delete(s.Artifacts, stage)
	return s.store()
}

// Record stores the produced artifact with its input signatures and
// persists the state.
func (s *State) Record(
	stage string,
	artifact *Artifact,
	inputs map[string]Signature,
) error {
	relPath, err := filepath.Rel(s.dir, artifact.Path)
	if err != nil {
		return fmt.Errorf("record %s: %w", stage, err)
	}

	s.Artifacts[stage] = ArtifactState{
		Path:      relPath,
		Signature: artifact.Signature,
		Inputs:    inputs,
	}

	return s.store()
}

func (s *State) store() error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	err = os.WriteFile(filepath.Join(s.dir, StateFile), data, 0o644)
	if err != nil {
		return fmt.Errorf("write state: %w", err)
	}

	return nil
}

// InputSignatures resolves the given file paths to their current
// signatures. Inputs that no longer exist are left out of the result,
// since a recorded input that disappeared must mark the artifact stale,
// not abort the build. Any other read failure is an error.
func InputSignatures(paths []string) (map[string]Signature, error) {
	signatures := make(map[string]Signature, len(paths))

	for _, path := range paths {
		signature, err := FileSignature(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}

			return nil, err
		}

		signatures[path] = signature
	}

	return signatures, nil
}

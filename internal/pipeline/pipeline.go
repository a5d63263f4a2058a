// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package pipeline builds the bootable kernel image through a sequence
// of artifact transformations: compile, translation table patch, symbol
// patch, image export.
//
// Each stage is cached. An artifact is rebuilt only if its own content
// or any declared input's content changed since it was produced, or if
// the build configuration changed, which invalidates everything.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ebecht/metalrun/internal/bsp"
	"github.com/ebecht/metalrun/internal/proc"
)

const (
	configInput   = "<config>"
	selectorInput = "<test-selector>"
)

// Pipeline builds all artifacts for one build configuration in one
// build directory.
//
// A Pipeline is not safe for concurrent use, and two Pipelines must not
// share a build directory. Concurrent builds use distinct directories,
// as the test dispatcher does.
type Pipeline struct {
	Config    bsp.Config
	SourceDir string

	// BuildDir is the directory all artifacts and the cache state live
	// in. It is created if absent.
	BuildDir string

	// TestSelector names a test source the compiler builds instead of
	// the regular kernel entry. Set by the test dispatcher.
	TestSelector string

	// Tools overrides external tool names. Empty fields get defaults.
	Tools Tools

	// Runner invokes the external tools. Defaults to [proc.Exec].
	Runner proc.Runner

	spec  bsp.Spec
	state *State
}

// Build runs all stages and returns the final boot image artifact.
//
// Stages run strictly sequentially; stage N's output is complete and
// validated before stage N+1 starts. The configuration fingerprint is
// persisted only after all stages succeeded.
func (p *Pipeline) Build(ctx context.Context) (*Artifact, error) {
	err := p.prepare()
	if err != nil {
		return nil, err
	}

	raw, err := p.compile(ctx)
	if err != nil {
		return nil, err
	}

	tables, err := p.patchTables(ctx, raw)
	if err != nil {
		return nil, err
	}

	symbols, err := p.patchSymbols(ctx, tables)
	if err != nil {
		return nil, err
	}

	image, err := p.export(ctx, symbols)
	if err != nil {
		return nil, err
	}

	err = bsp.CommitFingerprint(p.Config, p.BuildDir)
	if err != nil {
		return nil, err
	}

	return image, nil
}

func (p *Pipeline) prepare() error {
	spec, err := p.Config.Spec()
	if err != nil {
		return err
	}

	p.spec = spec
	p.Tools = p.Tools.withDefaults()

	if p.Runner == nil {
		p.Runner = proc.Exec{}
	}

	err = os.MkdirAll(p.BuildDir, 0o755)
	if err != nil {
		return fmt.Errorf("create build dir: %w", err)
	}

	fullInvalidation, err := bsp.Resolve(p.Config, p.BuildDir)
	if err != nil {
		return err
	}

	p.state = LoadState(p.BuildDir)

	if fullInvalidation {
		slog.Debug("Configuration changed, invalidating all artifacts",
			slog.String("dir", p.BuildDir))
		p.state.Reset()
	}

	return nil
}

// compile invokes the cross-compiler, producing the raw executable and
// its dependency manifest.
func (p *Pipeline) compile(ctx context.Context) (*Artifact, error) {
	currentInputs := map[string]Signature{
		configInput:   ConfigSignature(p.Config),
		selectorInput: Signature(p.TestSelector),
	}

	if artifact, ok := p.state.Fresh(StageCompile, currentInputs); ok {
		slog.Debug("Cache hit", slog.String("stage", StageCompile))
		return artifact, nil
	}

	finalPath := filepath.Join(p.BuildDir, rawELFName)
	depPath := filepath.Join(p.BuildDir, "kernel.d")
	scratch := scratchPath(finalPath)

	defer discardScratch(scratch)

	err := p.state.Drop(StageCompile)
	if err != nil {
		return nil, err
	}

	args := []string{
		"--source", p.SourceDir,
		"--target", p.spec.Target,
		"--output", scratch,
		"--depfile", depPath,
	}

	if p.Config.DebugInfo {
		args = append(args, "--debug-info")
	}

	if p.TestSelector != "" {
		args = append(args, "--test", p.TestSelector)
	}

	for _, feature := range p.Config.Features {
		args = append(args, "--feature", feature)
	}

	result, err := p.Runner.Run(ctx, proc.Spec{
		Path: p.Tools.Compiler,
		Args: args,
	})
	if err != nil {
		return nil, err
	}

	if result.ExitCode != 0 {
		return nil, &ToolchainError{
			Tool:     p.Tools.Compiler,
			ExitCode: result.ExitCode,
			Output:   result.Stderr,
		}
	}

	depData, err := os.ReadFile(depPath)
	if err != nil {
		return nil, fmt.Errorf("read dependency manifest: %w", err)
	}

	inputs, err := InputSignatures(parseDepfile(depData))
	if err != nil {
		return nil, err
	}

	inputs[configInput] = ConfigSignature(p.Config)
	inputs[selectorInput] = Signature(p.TestSelector)

	artifact, err := p.commit(StageCompile, scratch, finalPath, inputs)
	if err != nil {
		return nil, err
	}

	slog.Debug("Compiled raw executable",
		slog.String("path", artifact.Path),
		slog.Int("inputs", len(inputs)))

	return artifact, nil
}

// patchTables produces a copy of the raw executable with the reserved
// translation table section populated by the external table tool.
func (p *Pipeline) patchTables(
	ctx context.Context,
	raw *Artifact,
) (*Artifact, error) {
	currentInputs := map[string]Signature{raw.Path: raw.Signature}

	if artifact, ok := p.state.Fresh(StageTables, currentInputs); ok {
		slog.Debug("Cache hit", slog.String("stage", StageTables))
		return artifact, nil
	}

	finalPath := filepath.Join(p.BuildDir, tablesELFName)
	scratch := scratchPath(finalPath)

	defer discardScratch(scratch)

	err := p.state.Drop(StageTables)
	if err != nil {
		return nil, err
	}

	// The tool patches in place, so it works on a copy and the raw
	// artifact is never modified.
	err = copyFile(raw.Path, scratch)
	if err != nil {
		return nil, &PatchError{Stage: StageTables, Err: err}
	}

	// The linker script and the table tool must agree on the reserved
	// region. The section header is the only size source both share, so
	// validate it here instead of assuming it.
	size, err := sectionSize(scratch, p.spec.TableSection)
	if err != nil {
		return nil, &PatchError{Stage: StageTables, Err: err}
	}

	if size < p.spec.TableSize {
		return nil, &PatchError{
			Stage: StageTables,
			Err: fmt.Errorf("%w: %s has %d bytes, variant needs %d",
				ErrTableSectionTooSmall, p.spec.TableSection, size,
				p.spec.TableSize),
		}
	}

	result, err := p.Runner.Run(ctx, proc.Spec{
		Path: p.Tools.Tables,
		Args: []string{string(p.Config.Variant), scratch},
	})
	if err != nil {
		return nil, err
	}

	if result.ExitCode != 0 {
		return nil, &PatchError{
			Stage: StageTables,
			Err: fmt.Errorf("%s exited %d: %s",
				p.Tools.Tables, result.ExitCode, result.Stderr),
		}
	}

	return p.commit(StageTables, scratch, finalPath, currentInputs)
}

// patchSymbols runs the symbol tool. The tool decides the output file's
// actual identity since the embedded table's size depends on the symbol
// count; the stage records whatever path the tool reports.
func (p *Pipeline) patchSymbols(
	ctx context.Context,
	tables *Artifact,
) (*Artifact, error) {
	currentInputs := map[string]Signature{tables.Path: tables.Signature}

	if artifact, ok := p.state.Fresh(StageSymbols, currentInputs); ok {
		slog.Debug("Cache hit", slog.String("stage", StageSymbols))
		return artifact, nil
	}

	requested := filepath.Join(p.BuildDir, "kernel_symbols.elf")
	scratch := scratchPath(requested)

	defer discardScratch(scratch)

	err := p.state.Drop(StageSymbols)
	if err != nil {
		return nil, err
	}

	result, err := p.Runner.Run(ctx, proc.Spec{
		Path: p.Tools.Symbols,
		Env: []string{
			"SYMBOLS_INPUT=" + tables.Path,
			"SYMBOLS_OUTPUT=" + scratch,
		},
	})
	if err != nil {
		return nil, err
	}

	if result.ExitCode != 0 {
		return nil, &PatchError{
			Stage: StageSymbols,
			Err: fmt.Errorf("%s exited %d: %s",
				p.Tools.Symbols, result.ExitCode, result.Stderr),
		}
	}

	produced := reportedOutput(result.Stdout, scratch)

	_, err = os.Stat(produced)
	if err != nil {
		return nil, &PatchError{
			Stage: StageSymbols,
			Err:   fmt.Errorf("%w: %s", ErrNoOutputReported, produced),
		}
	}

	finalPath := produced
	if produced == scratch {
		finalPath = requested
	}

	return p.commit(StageSymbols, produced, finalPath, currentInputs)
}

// export strips the symbol patched executable down to the raw boot
// image and verifies the size invariant.
func (p *Pipeline) export(
	ctx context.Context,
	symbols *Artifact,
) (*Artifact, error) {
	currentInputs := map[string]Signature{symbols.Path: symbols.Signature}

	if artifact, ok := p.state.Fresh(StageImage, currentInputs); ok {
		slog.Debug("Cache hit", slog.String("stage", StageImage))
		return artifact, nil
	}

	finalPath := filepath.Join(p.BuildDir, imageName)
	scratch := scratchPath(finalPath)

	defer discardScratch(scratch)

	err := p.state.Drop(StageImage)
	if err != nil {
		return nil, err
	}

	result, err := p.Runner.Run(ctx, proc.Spec{
		Path: p.Tools.Objcopy,
		Args: []string{"--strip-all", "-O", "binary", symbols.Path, scratch},
	})
	if err != nil {
		return nil, err
	}

	if result.ExitCode != 0 {
		return nil, &ToolchainError{
			Tool:     p.Tools.Objcopy,
			ExitCode: result.ExitCode,
			Output:   result.Stderr,
		}
	}

	expected, err := loadableSize(symbols.Path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(scratch)
	if err != nil {
		return nil, fmt.Errorf("stat image: %w", err)
	}

	if uint64(info.Size()) != expected {
		return nil, fmt.Errorf("%w: image %d bytes, loadable segments %d",
			ErrImageSizeMismatch, info.Size(), expected)
	}

	return p.commit(StageImage, scratch, finalPath, currentInputs)
}

// commit atomically moves the produced file to its final name and
// records it in the build state.
func (p *Pipeline) commit(
	stage, producedPath, finalPath string,
	inputs map[string]Signature,
) (*Artifact, error) {
	if producedPath != finalPath {
		err := commitScratch(producedPath, finalPath)
		if err != nil {
			return nil, err
		}
	}

	signature, err := FileSignature(finalPath)
	if err != nil {
		return nil, err
	}

	artifact := &Artifact{
		Stage:     stage,
		Path:      finalPath,
		Signature: signature,
	}

	err = p.state.Record(stage, artifact, inputs)
	if err != nil {
		return nil, err
	}

	return artifact, nil
}

// reportedOutput returns the output path the tool printed as its last
// non-empty stdout line, or fallback if it printed nothing.
func reportedOutput(stdout []byte, fallback string) string {
	lines := strings.Split(strings.TrimSpace(string(stdout)), "\n")

	for idx := len(lines) - 1; idx >= 0; idx-- {
		line := strings.TrimSpace(lines[idx])
		if line != "" {
			return line
		}
	}

	return fallback
}

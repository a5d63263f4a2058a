// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ebecht/metalrun/internal/bsp"
	"github.com/ebecht/metalrun/internal/pipeline"
	"github.com/ebecht/metalrun/internal/proc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loadableBytes = 100

var allTools = []string{"cc", "tt", "sym", "objcopy"}

// newTestPipeline sets up a pipeline against a scripted toolchain that
// produces consistent synthetic artifacts.
func newTestPipeline(
	t *testing.T,
	cfg bsp.Config,
) (*pipeline.Pipeline, *pipeline.ScriptedRunner, string) {
	t.Helper()

	sourceDir := t.TempDir()
	buildDir := t.TempDir()

	sourceFile := filepath.Join(sourceDir, "main.rs")
	require.NoError(t, os.WriteFile(sourceFile, []byte("kernel_init"), 0o644))

	runner := &pipeline.ScriptedRunner{
		Handlers: map[string]func(proc.Spec) (*proc.Result, error){
			"cc": func(spec proc.Spec) (*proc.Result, error) {
				source, err := os.ReadFile(sourceFile)
				if err != nil {
					return nil, err
				}

				// Output depends on source content, so source edits
				// change the artifact signature.
				pipeline.WriteTestELF(t, pipeline.ArgAfter(spec, "--output"),
					pipeline.TestELF{
						Sections:  map[string]uint64{".translation_tables": 0x10000},
						LoadSizes: []uint64{loadableBytes},
						Trailer:   source,
					})

				depfile := "kernel.elf: " + sourceFile + "\n"
				err = os.WriteFile(
					pipeline.ArgAfter(spec, "--depfile"), []byte(depfile), 0o644)

				return &proc.Result{}, err
			},
			"tt": func(spec proc.Spec) (*proc.Result, error) {
				// Patches in place, silent on success.
				return &proc.Result{}, nil
			},
			"sym": func(spec proc.Spec) (*proc.Result, error) {
				input := pipeline.EnvValue(spec, "SYMBOLS_INPUT")
				output := pipeline.EnvValue(spec, "SYMBOLS_OUTPUT")

				data, err := os.ReadFile(input)
				if err != nil {
					return nil, err
				}

				return &proc.Result{}, os.WriteFile(output, data, 0o644)
			},
			"objcopy": func(spec proc.Spec) (*proc.Result, error) {
				output := spec.Args[len(spec.Args)-1]
				image := make([]byte, loadableBytes)

				return &proc.Result{}, os.WriteFile(output, image, 0o644)
			},
		},
	}

	p := &pipeline.Pipeline{
		Config:    cfg,
		SourceDir: sourceDir,
		BuildDir:  buildDir,
		Runner:    runner,
		Tools: pipeline.Tools{
			Compiler: "cc",
			Tables:   "tt",
			Symbols:  "sym",
			Objcopy:  "objcopy",
		},
	}

	return p, runner, sourceFile
}

func testConfig(t *testing.T, features ...string) bsp.Config {
	t.Helper()

	cfg, err := bsp.NewConfig(bsp.RPi3, false, features)
	require.NoError(t, err)

	return cfg
}

func TestBuildFullPipeline(t *testing.T) {
	p, runner, _ := newTestPipeline(t, testConfig(t))

	image, err := p.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, allTools, runner.CalledTools())
	assert.Equal(t, pipeline.StageImage, image.Stage)
	assert.Equal(t, filepath.Join(p.BuildDir, "kernel.img"), image.Path)

	info, err := os.Stat(image.Path)
	require.NoError(t, err)
	assert.EqualValues(t, loadableBytes, info.Size())

	// The fingerprint is persisted after success.
	assert.FileExists(t, filepath.Join(p.BuildDir, bsp.FingerprintFile))
}

func TestBuildCacheStability(t *testing.T) {
	p, runner, _ := newTestPipeline(t, testConfig(t))

	_, err := p.Build(context.Background())
	require.NoError(t, err)

	runner.Calls = nil

	// Unchanged sources and config: zero external tool invocations.
	image, err := p.Build(context.Background())
	require.NoError(t, err)

	assert.Empty(t, runner.Calls)
	assert.Equal(t, filepath.Join(p.BuildDir, "kernel.img"), image.Path)
}

func TestBuildConfigChangeInvalidation(t *testing.T) {
	p, runner, _ := newTestPipeline(t, testConfig(t))

	_, err := p.Build(context.Background())
	require.NoError(t, err)

	runner.Calls = nil

	// A changed feature set forces every stage, file freshness is
	// irrelevant.
	p.Config = testConfig(t, "uart-echo")

	_, err = p.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, allTools, runner.CalledTools())
}

func TestBuildPartialInvalidation(t *testing.T) {
	p, runner, sourceFile := newTestPipeline(t, testConfig(t))

	_, err := p.Build(context.Background())
	require.NoError(t, err)

	runner.Calls = nil

	require.NoError(t, os.WriteFile(sourceFile, []byte("changed"), 0o644))

	_, err = p.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, allTools, runner.CalledTools())
}

func TestBuildDownstreamCacheOnIdenticalRecompile(t *testing.T) {
	p, runner, sourceFile := newTestPipeline(t, testConfig(t))

	_, err := p.Build(context.Background())
	require.NoError(t, err)

	source, err := os.ReadFile(sourceFile)
	require.NoError(t, err)

	// Delete the raw executable; only the compile stage is stale. The
	// recompilation is deterministic, so its byte identical output keeps
	// all downstream stages cached.
	require.NoError(t, os.Remove(filepath.Join(p.BuildDir, "kernel.elf")))
	require.NoError(t, os.WriteFile(sourceFile, source, 0o644))

	runner.Calls = nil

	_, err = p.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"cc"}, runner.CalledTools())
}

func TestBuildCompileFailure(t *testing.T) {
	p, runner, _ := newTestPipeline(t, testConfig(t))

	diagnostic := "error[E0599]: no method named `boot`"
	runner.Handlers["cc"] = func(proc.Spec) (*proc.Result, error) {
		return &proc.Result{
			ExitCode: 101,
			Stderr:   []byte(diagnostic),
		}, nil
	}

	_, err := p.Build(context.Background())
	require.ErrorIs(t, err, &pipeline.ToolchainError{})
	assert.ErrorContains(t, err, diagnostic)

	// No downstream stage ran.
	assert.Equal(t, []string{"cc"}, runner.CalledTools())

	// No fingerprint was committed.
	assert.NoFileExists(t, filepath.Join(p.BuildDir, bsp.FingerprintFile))
}

func TestBuildFailedStageIsNotACacheHit(t *testing.T) {
	p, runner, _ := newTestPipeline(t, testConfig(t))

	_, err := p.Build(context.Background())
	require.NoError(t, err)

	// Invalidate the table stage and make its tool fail once.
	require.NoError(t,
		os.Remove(filepath.Join(p.BuildDir, "kernel_ttables.elf")))

	goodHandler := runner.Handlers["tt"]
	runner.Handlers["tt"] = func(proc.Spec) (*proc.Result, error) {
		return &proc.Result{ExitCode: 1, Stderr: []byte("patch failed")}, nil
	}

	_, err = p.Build(context.Background())
	require.ErrorIs(t, err, &pipeline.PatchError{})

	// The next build must re-run the stage, not serve the failed output.
	runner.Handlers["tt"] = goodHandler
	runner.Calls = nil

	_, err = p.Build(context.Background())
	require.NoError(t, err)

	assert.Contains(t, runner.CalledTools(), "tt")
}

func TestBuildTableSectionTooSmall(t *testing.T) {
	p, runner, _ := newTestPipeline(t, testConfig(t))

	runner.Handlers["cc"] = func(spec proc.Spec) (*proc.Result, error) {
		pipeline.WriteTestELF(t, pipeline.ArgAfter(spec, "--output"),
			pipeline.TestELF{
				Sections:  map[string]uint64{".translation_tables": 0x100},
				LoadSizes: []uint64{loadableBytes},
			})

		depfile := []byte("kernel.elf:\n")
		err := os.WriteFile(
			pipeline.ArgAfter(spec, "--depfile"), depfile, 0o644)

		return &proc.Result{}, err
	}

	_, err := p.Build(context.Background())
	require.ErrorIs(t, err, pipeline.ErrTableSectionTooSmall)
	require.ErrorIs(t, err, &pipeline.PatchError{})

	// The table tool was never invoked on the undersized executable.
	assert.Equal(t, []string{"cc"}, runner.CalledTools())
}

func TestBuildMissingTableSection(t *testing.T) {
	p, runner, _ := newTestPipeline(t, testConfig(t))

	runner.Handlers["cc"] = func(spec proc.Spec) (*proc.Result, error) {
		pipeline.WriteTestELF(t, pipeline.ArgAfter(spec, "--output"),
			pipeline.TestELF{LoadSizes: []uint64{loadableBytes}})

		depfile := []byte("kernel.elf:\n")
		err := os.WriteFile(
			pipeline.ArgAfter(spec, "--depfile"), depfile, 0o644)

		return &proc.Result{}, err
	}

	_, err := p.Build(context.Background())
	require.ErrorIs(t, err, pipeline.ErrTableSectionMissing)
}

func TestBuildSymbolToolReportsOwnOutput(t *testing.T) {
	p, runner, _ := newTestPipeline(t, testConfig(t))

	reported := filepath.Join(p.BuildDir, "kernel_symbols_2032kb.elf")
	runner.Handlers["sym"] = func(spec proc.Spec) (*proc.Result, error) {
		data, err := os.ReadFile(pipeline.EnvValue(spec, "SYMBOLS_INPUT"))
		if err != nil {
			return nil, err
		}

		err = os.WriteFile(reported, data, 0o644)

		return &proc.Result{
			Stdout: []byte("Generating symbols\n" + reported + "\n"),
		}, err
	}

	image, err := p.Build(context.Background())
	require.NoError(t, err)
	require.NotNil(t, image)

	// The reported identity was used, not the requested one.
	assert.FileExists(t, reported)
	assert.NoFileExists(t, filepath.Join(p.BuildDir, "kernel_symbols.elf"))
}

func TestBuildImageSizeInvariantViolation(t *testing.T) {
	p, runner, _ := newTestPipeline(t, testConfig(t))

	runner.Handlers["objcopy"] = func(spec proc.Spec) (*proc.Result, error) {
		output := spec.Args[len(spec.Args)-1]
		// One byte short of the loadable segment sum.
		return &proc.Result{},
			os.WriteFile(output, make([]byte, loadableBytes-1), 0o644)
	}

	_, err := p.Build(context.Background())
	require.ErrorIs(t, err, pipeline.ErrImageSizeMismatch)

	// No partial image appears under the final name.
	assert.NoFileExists(t, filepath.Join(p.BuildDir, "kernel.img"))
}

func TestBuildUnknownVariant(t *testing.T) {
	p, runner, _ := newTestPipeline(t, testConfig(t))
	p.Config.Variant = bsp.Variant("unknown")

	_, err := p.Build(context.Background())
	require.ErrorIs(t, err, &bsp.ConfigError{})

	// Fails before any stage runs.
	assert.Empty(t, runner.Calls)
}

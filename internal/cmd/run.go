// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ebecht/metalrun/internal/bsp"
	"github.com/ebecht/metalrun/internal/chainboot"
	"github.com/ebecht/metalrun/internal/dispatch"
	"github.com/ebecht/metalrun/internal/pipeline"
	"github.com/ebecht/metalrun/internal/qemu"
)

const localConfigFile = ".metalrun-args"

// exitCodeSkip signals that the command could not run on the selected
// variant but nothing failed, in the tradition of automake test skips.
const exitCodeSkip = 77

// IO provides input and output details for the command.
type IO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func newFlags(args []string, cfg IO) (*flags, error) {
	// The subcommand, and for "test" the selection, stay in front.
	// Arguments from environment and local config file are flags and
	// are merged in after them.
	head := 0
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		head = 1

		if args[0] == commandTest && len(args) > 1 &&
			!strings.HasPrefix(args[1], "-") {
			head = 2
		}
	}

	merged, err := MergedArgs(args[head:], os.DirFS("."), localConfigFile)
	if err != nil {
		return nil, err
	}

	merged = append(append([]string{}, args[:head]...), merged...)

	flags, err := parseArgs(merged, cfg.Stderr)
	if err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}

	return flags, nil
}

func buildImage(
	ctx context.Context,
	flags *flags,
	config bsp.Config,
) (*pipeline.Artifact, error) {
	p := &pipeline.Pipeline{
		Config:    config,
		SourceDir: flags.sourceDir,
		BuildDir:  filepath.Join(flags.outDir, config.DirName()),
	}

	image, err := p.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}

	slog.Info("Built boot image", slog.String("path", image.Path))

	return image, nil
}

func runEmulator(
	ctx context.Context,
	flags *flags,
	config bsp.Config,
	mode qemu.Mode,
	cfg IO,
) error {
	hw, err := config.Spec()
	if err != nil {
		return err
	}

	// Checked before the build, so an unsupported variant never
	// launches a toolchain process and a broken build cannot mask the
	// skip.
	if !hw.EmulatorSupported() {
		return fmt.Errorf("variant %s: %w", &config.Variant, bsp.ErrNoEmulator)
	}

	image, err := buildImage(ctx, flags, config)
	if err != nil {
		return err
	}

	cmd, err := qemu.NewCommand(hw, qemu.CommandSpec{
		Image: image.Path,
		Mode:  mode,
	})
	if err != nil {
		return fmt.Errorf("emulator command: %w", err)
	}

	slog.Debug("Emulator command", slog.String("command", cmd.String()))

	if mode == qemu.ModeDebug {
		slog.Warn("GDB server stub listening, guest halted at reset",
			slog.String("addr", "localhost:1234"))
	}

	err = cmd.Run(ctx, cfg.Stdin, cfg.Stdout, cfg.Stderr)
	if err != nil {
		return fmt.Errorf("emulator: %w", err)
	}

	return nil
}

func runTests(
	ctx context.Context,
	flags *flags,
	config bsp.Config,
	cfg IO,
) error {
	hw, err := config.Spec()
	if err != nil {
		return err
	}

	// Checked once up front so an unsupported variant is a skip, not a
	// pile of failing verdicts.
	if !hw.EmulatorSupported() {
		return fmt.Errorf("variant %s: %w", &config.Variant, bsp.ErrNoEmulator)
	}

	units, err := dispatch.Enumerate(flags.sourceDir, flags.selection, flags.filter)
	if err != nil {
		return fmt.Errorf("enumerate test units: %w", err)
	}

	dispatcher := &dispatch.Dispatcher{
		Units: units,
		Runner: &dispatch.PipelineRunner{
			Config:    config,
			SourceDir: flags.sourceDir,
			OutDir:    flags.outDir,
			Timeout:   flags.timeout,
		},
		Concurrency: runtime.NumCPU(),
	}

	report := dispatcher.Run(ctx)

	err = report.Write(cfg.Stdout)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if report.Failed() {
		return ErrTestsFailed
	}

	return nil
}

func run(ctx context.Context, flags *flags, cfg IO) error {
	config, err := flags.config()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	switch flags.command {
	case commandBuild:
		image, err := buildImage(ctx, flags, config)
		if err != nil {
			return err
		}

		fmt.Fprintln(cfg.Stdout, image.Path)

		return nil
	case commandRun:
		return runEmulator(ctx, flags, config, qemu.ModeRun, cfg)
	case commandDebug:
		return runEmulator(ctx, flags, config, qemu.ModeDebug, cfg)
	case commandTest:
		return runTests(ctx, flags, config, cfg)
	case commandDeploySerial:
		image, err := buildImage(ctx, flags, config)
		if err != nil {
			return err
		}

		slog.Warn("Waiting for target, reset the board now",
			slog.String("device", flags.device))

		return chainboot.PushFile(ctx, flags.device, image.Path)
	case commandDeployJTAG:
		slog.Warn("Waiting for target, reset the board now",
			slog.String("device", flags.device))

		return chainboot.PushJTAG(
			ctx, flags.device, flags.sourceDir, flags.variant)
	default:
		// parseArgs rejects unknown commands already.
		return fmt.Errorf("%w: %s", ErrUnknownCommand, flags.command)
	}
}

func handleParseArgsError(err error) int {
	// [ErrHelp] is returned when help is requested. So exit without
	// error in this case.
	if errors.Is(err, ErrHelp) {
		return 0
	}

	// parseArgs already prints errors, so we just exit without an
	// error.
	if !errors.Is(err, &ParseArgsError{}) {
		slog.Error(err.Error())
	}

	return -1
}

func handleRunError(err error) int {
	if errors.Is(err, bsp.ErrNoEmulator) {
		slog.Warn("Skipping, variant has no emulator support")
		return exitCodeSkip
	}

	if errors.Is(err, ErrTestsFailed) {
		// The verdicts are the report, nothing to add here.
		return 1
	}

	exitCode := -1

	var toolErr *pipeline.ToolchainError
	if errors.As(err, &toolErr) && toolErr.ExitCode != 0 {
		exitCode = toolErr.ExitCode
	}

	var emulatorErr *qemu.CommandError
	if errors.As(err, &emulatorErr) && emulatorErr.ExitCode != 0 {
		exitCode = emulatorErr.ExitCode
	}

	slog.Error(err.Error())

	return exitCode
}

// Run is the main entry point for the CLI command.
func Run(ctx context.Context, args []string, cfg IO) int {
	flags, err := newFlags(args, cfg)
	if err != nil {
		return handleParseArgsError(err)
	}

	setupLogging(cfg.Stderr, flags.debug, flags.verbose)

	err = run(ctx, flags, cfg)
	if err != nil {
		return handleRunError(err)
	}

	return 0
}

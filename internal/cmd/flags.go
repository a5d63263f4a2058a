// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ebecht/metalrun/internal/bsp"
	"github.com/ebecht/metalrun/internal/dispatch"
	"github.com/ebecht/metalrun/internal/qemu"
)

const usageMessage = `Usage of 'metalrun':
    metalrun <command> [flags...]

Commands:
    build          build the boot image for the selected variant
    run            build and boot the image in the emulator
    test           build and run test units: unit, integration, boot, all
    debug          boot the image with a GDB server stub, halted at reset
    deploy-serial  push the boot image to a target via serial chainboot
    deploy-jtag    push the JTAG bootstrap image to a target

All flags can also be provided via environment variable METALRUN_ARGS:
    METALRUN_ARGS="-variant=rpi4 -debug" metalrun build

All flags can also be provided via file ./.metalrun-args, with one
argument per line.
`

// Subcommands.
const (
	commandBuild        = "build"
	commandRun          = "run"
	commandTest         = "test"
	commandDebug        = "debug"
	commandDeploySerial = "deploy-serial"
	commandDeployJTAG   = "deploy-jtag"
)

// ErrUnknownCommand is returned for an unknown subcommand.
var ErrUnknownCommand = errors.New("unknown command")

// featureList collects repeatable -feature flags.
type featureList []string

func (l *featureList) String() string {
	return strings.Join(*l, ",")
}

func (l *featureList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

type flags struct {
	flagSet *flag.FlagSet

	command   string
	selection dispatch.Selection

	variant    bsp.Variant
	sourceDir  string
	outDir     string
	device     string
	debugInstr bool
	features   featureList
	filter     string
	timeout    time.Duration

	debug   bool
	verbose bool
}

func newFlagSet(f *flags, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("metalrun", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usageMessage)
		fmt.Fprintln(fs.Output(), "\nFlags:")
		fs.PrintDefaults()
	}

	fs.TextVar(
		&f.variant,
		"variant",
		&f.variant,
		"hardware variant to build for: rpi3, rpi4",
	)

	fs.StringVar(
		&f.sourceDir,
		"source",
		f.sourceDir,
		"kernel source directory",
	)

	fs.StringVar(
		&f.outDir,
		"out",
		f.outDir,
		"output directory for build artifacts",
	)

	fs.StringVar(
		&f.device,
		"device",
		f.device,
		"serial device of the target for deploy commands",
	)

	fs.BoolVar(
		&f.debugInstr,
		"debug-instr",
		f.debugInstr,
		"compile the kernel with debug info",
	)

	fs.Var(
		&f.features,
		"feature",
		"build feature to enable. Flag may be used more than once.",
	)

	fs.StringVar(
		&f.filter,
		"filter",
		f.filter,
		"glob pattern selecting integration test units by name",
	)

	fs.DurationVar(
		&f.timeout,
		"timeout",
		f.timeout,
		"wall clock budget for a single emulated test run",
	)

	fs.BoolVar(
		&f.debug,
		"debug",
		f.debug,
		"enable debug output",
	)

	fs.BoolVar(
		&f.verbose,
		"verbose",
		f.verbose,
		"enable verbose output",
	)

	return fs
}

// parseArgs parses the subcommand and flags from args. args must not
// include the program name.
func parseArgs(args []string, output io.Writer) (*flags, error) {
	f := &flags{
		selection: dispatch.Selection{
			dispatch.KindBoot, dispatch.KindUnit, dispatch.KindIntegration,
		},
		variant:   bsp.RPi3,
		sourceDir: ".",
		outDir:    "build",
		timeout:   qemu.DefaultTestTimeout,
	}

	f.flagSet = newFlagSet(f, output)

	if len(args) == 0 || args[0] == "-h" || args[0] == "-help" {
		f.flagSet.Usage()
		return nil, &ParseArgsError{msg: "help requested", err: ErrHelp}
	}

	f.command = args[0]
	args = args[1:]

	switch f.command {
	case commandBuild, commandRun, commandDebug,
		commandDeploySerial, commandDeployJTAG:
	case commandTest:
		// The test selection is the positional argument right after the
		// subcommand, before any flags.
		if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
			err := f.selection.UnmarshalText([]byte(args[0]))
			if err != nil {
				return nil, f.fail("test selection "+args[0], err)
			}

			args = args[1:]
		}
	default:
		return nil, f.fail(f.command, ErrUnknownCommand)
	}

	err := f.flagSet.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, &ParseArgsError{msg: "help requested", err: ErrHelp}
		}

		return nil, &ParseArgsError{msg: "flag parse", err: err}
	}

	if f.needsDevice() && f.device == "" {
		return nil, f.fail("no serial device given (use -device)", nil)
	}

	return f, nil
}

// fail fails like flag does. It prints the error first and then usage.
func (f *flags) fail(msg string, err error) error {
	err = &ParseArgsError{msg: msg, err: err}
	fmt.Fprintln(f.flagSet.Output(), err.Error())

	f.flagSet.Usage()

	return err
}

func (f *flags) needsDevice() bool {
	return f.command == commandDeploySerial || f.command == commandDeployJTAG
}

// config builds the validated build configuration the flags describe.
func (f *flags) config() (bsp.Config, error) {
	return bsp.NewConfig(f.variant, f.debugInstr, f.features)
}

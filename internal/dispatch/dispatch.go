// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package dispatch enumerates test units and runs each through the
// build pipeline and the emulator, aggregating the verdicts.
//
// Units are independent and may run concurrently. Each uses an isolated
// build directory keyed by variant, debug flag and unit name, so
// emulator runs and artifact writes never collide. One unit's failure
// never stops the remaining units; the report carries every verdict.
package dispatch

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ebecht/metalrun/internal/bsp"
	"github.com/ebecht/metalrun/internal/pipeline"
	"github.com/ebecht/metalrun/internal/proc"
	"github.com/ebecht/metalrun/internal/qemu"
	"github.com/ebecht/metalrun/internal/verdict"
)

// UnitRunner builds and runs a single test unit.
type UnitRunner interface {
	RunUnit(ctx context.Context, unit Unit) verdict.Verdict
}

// Dispatcher runs a set of test units and aggregates their verdicts.
type Dispatcher struct {
	Units  []Unit
	Runner UnitRunner

	// Concurrency bounds the number of units in flight. Zero means
	// sequential execution.
	Concurrency int
}

// Run executes all units and returns the aggregated report.
//
// Execution continues past failing units. The report lists verdicts in
// unit name order regardless of completion order.
func (d *Dispatcher) Run(ctx context.Context) *verdict.Report {
	limit := d.Concurrency
	if limit < 1 {
		limit = 1
	}

	var (
		mu       sync.Mutex
		verdicts []verdict.Verdict
	)

	group := errgroup.Group{}
	group.SetLimit(limit)

	for _, unit := range d.Units {
		unit := unit
		group.Go(func() error {
			v := d.Runner.RunUnit(ctx, unit)

			slog.Debug("Test unit finished",
				slog.String("unit", unit.Name),
				slog.String("outcome", string(v.Outcome)))

			mu.Lock()
			verdicts = append(verdicts, v)
			mu.Unlock()

			return nil
		})
	}

	// Unit failures are verdicts, not errors, so the group never fails.
	_ = group.Wait()

	sort.Slice(verdicts, func(i, j int) bool {
		return verdicts[i].Unit < verdicts[j].Unit
	})

	return &verdict.Report{Verdicts: verdicts}
}

// PipelineRunner is the [UnitRunner] that builds each unit with test
// instrumentation through the regular pipeline and classifies its
// emulator run.
type PipelineRunner struct {
	Config    bsp.Config
	SourceDir string

	// OutDir is the root the per-unit build directories are created
	// under.
	OutDir string

	Tools   pipeline.Tools
	Timeout time.Duration

	// Runner invokes external tools. Defaults to [proc.Exec].
	Runner proc.Runner
}

// RunUnit implements [UnitRunner].
//
// Build failures are isolated into a failing verdict carrying the
// build error as diagnostic; they do not abort the dispatch.
func (r *PipelineRunner) RunUnit(
	ctx context.Context,
	unit Unit,
) verdict.Verdict {
	v := verdict.Verdict{Unit: unit.Name}

	p := &pipeline.Pipeline{
		Config:       r.Config.WithFeature(bsp.FeatureTestInstr),
		SourceDir:    r.SourceDir,
		BuildDir:     r.unitBuildDir(unit),
		TestSelector: unit.Selector,
		Tools:        r.Tools,
		Runner:       r.Runner,
	}

	image, err := p.Build(ctx)
	if err != nil {
		v.Outcome = verdict.Fail
		v.Diagnostic = err.Error()

		return v
	}

	hw, err := r.Config.Spec()
	if err != nil {
		v.Outcome = verdict.Fail
		v.Diagnostic = err.Error()

		return v
	}

	cmd, err := qemu.NewCommand(hw, qemu.CommandSpec{
		Image:   image.Path,
		Mode:    qemu.ModeTest,
		Timeout: r.Timeout,
	})
	if err != nil {
		v.Outcome = verdict.Fail
		v.Diagnostic = err.Error()

		return v
	}

	if r.Runner != nil {
		cmd.Runner = r.Runner
	}

	result, err := cmd.Test(ctx)
	if err != nil {
		v.Outcome = verdict.Fail
		v.Diagnostic = err.Error()

		return v
	}

	result.Unit = unit.Name

	return result
}

// unitBuildDir returns the isolated build directory of the unit, keyed
// by variant, debug flag and unit name.
func (r *PipelineRunner) unitBuildDir(unit Unit) string {
	cfg := r.Config.WithFeature(bsp.FeatureTestInstr)
	return filepath.Join(r.OutDir, "test", cfg.DirName(), unit.Name)
}

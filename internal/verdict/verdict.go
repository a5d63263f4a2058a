// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package verdict models the pass/fail outcome of emulator test runs.
package verdict

import (
	"fmt"
	"io"
	"time"
)

// Outcome classifies a single emulator test run.
type Outcome string

const (
	// Pass means the guest signaled the explicit success exit code.
	Pass Outcome = "pass"

	// Fail means the guest signaled an explicit non-success exit code.
	Fail Outcome = "fail"

	// Timeout means the guest did not signal any exit within the
	// wall-clock budget.
	Timeout Outcome = "timeout"

	// Crash means the guest terminated abnormally before signaling an
	// exit, for example through a hardware fault or kernel panic.
	Crash Outcome = "crash"
)

// Verdict is the classified result of one test unit's emulator run.
type Verdict struct {
	Unit       string
	Outcome    Outcome
	Diagnostic string
	Duration   time.Duration
}

// OK reports whether the verdict is a pass.
func (v Verdict) OK() bool {
	return v.Outcome == Pass
}

// String implements [fmt.Stringer].
func (v Verdict) String() string {
	s := fmt.Sprintf("%-12s %s (%s)", v.Outcome, v.Unit, v.Duration.Round(time.Millisecond))
	if v.Diagnostic != "" {
		s += ": " + v.Diagnostic
	}

	return s
}

// Report aggregates the verdicts of a dispatch run.
//
// A single non-pass verdict makes the whole report fail, but the report
// always carries every verdict, not just the first failing one.
type Report struct {
	Verdicts []Verdict
}

// Add appends a verdict to the report.
func (r *Report) Add(v Verdict) {
	r.Verdicts = append(r.Verdicts, v)
}

// Failed reports whether any verdict is not a pass.
func (r *Report) Failed() bool {
	for _, v := range r.Verdicts {
		if !v.OK() {
			return true
		}
	}

	return false
}

// Write prints all verdicts and a summary line to w.
func (r *Report) Write(w io.Writer) error {
	var failed int

	for _, v := range r.Verdicts {
		if !v.OK() {
			failed++
		}

		_, err := fmt.Fprintln(w, v.String())
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	_, err := fmt.Fprintf(w, "%d run, %d failed\n", len(r.Verdicts), failed)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}

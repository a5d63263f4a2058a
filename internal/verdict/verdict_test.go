// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package verdict_test

import (
	"strings"
	"testing"

	"github.com/ebecht/metalrun/internal/verdict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportFailed(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []verdict.Outcome
		failed   bool
	}{
		{
			name: "empty",
		},
		{
			name:     "all pass",
			outcomes: []verdict.Outcome{verdict.Pass, verdict.Pass},
		},
		{
			name:     "one fail",
			outcomes: []verdict.Outcome{verdict.Pass, verdict.Fail, verdict.Pass},
			failed:   true,
		},
		{
			name:     "timeout fails",
			outcomes: []verdict.Outcome{verdict.Timeout},
			failed:   true,
		},
		{
			name:     "crash fails",
			outcomes: []verdict.Outcome{verdict.Crash},
			failed:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var report verdict.Report

			for _, outcome := range tt.outcomes {
				report.Add(verdict.Verdict{Unit: "u", Outcome: outcome})
			}

			assert.Equal(t, tt.failed, report.Failed())
		})
	}
}

func TestReportWriteIncludesAllVerdicts(t *testing.T) {
	var report verdict.Report

	report.Add(verdict.Verdict{Unit: "boot", Outcome: verdict.Pass})
	report.Add(verdict.Verdict{
		Unit:       "irq",
		Outcome:    verdict.Fail,
		Diagnostic: "1",
	})
	report.Add(verdict.Verdict{Unit: "mmu", Outcome: verdict.Pass})

	var buf strings.Builder

	require.NoError(t, report.Write(&buf))

	output := buf.String()
	assert.Contains(t, output, "boot")
	assert.Contains(t, output, "irq")
	assert.Contains(t, output, "mmu")
	assert.Contains(t, output, "3 run, 1 failed")
}

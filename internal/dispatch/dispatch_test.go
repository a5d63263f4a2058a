// SPDX-FileCopyrightText: 2026 Erik Becht <code@ebecht.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package dispatch_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ebecht/metalrun/internal/dispatch"
	"github.com/ebecht/metalrun/internal/verdict"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubRunner struct {
	outcomes map[string]verdict.Outcome

	mu      sync.Mutex
	started []string
}

func (r *stubRunner) RunUnit(
	_ context.Context,
	unit dispatch.Unit,
) verdict.Verdict {
	r.mu.Lock()
	r.started = append(r.started, unit.Name)
	r.mu.Unlock()

	return verdict.Verdict{
		Unit:    unit.Name,
		Outcome: r.outcomes[unit.Name],
	}
}

func TestDispatcherAggregatesAllVerdicts(t *testing.T) {
	runner := &stubRunner{
		outcomes: map[string]verdict.Outcome{
			"boot":  verdict.Pass,
			"irq":   verdict.Fail,
			"timer": verdict.Pass,
		},
	}

	d := dispatch.Dispatcher{
		Units: []dispatch.Unit{
			{Name: "timer", Kind: dispatch.KindIntegration},
			{Name: "boot", Kind: dispatch.KindBoot},
			{Name: "irq", Kind: dispatch.KindIntegration},
		},
		Runner:      runner,
		Concurrency: 2,
	}

	report := d.Run(context.Background())

	// One failing unit fails the aggregate, but every unit ran and is
	// reported, in name order.
	assert.True(t, report.Failed())
	assert.Len(t, report.Verdicts, 3)
	assert.Equal(t, "boot", report.Verdicts[0].Unit)
	assert.Equal(t, "irq", report.Verdicts[1].Unit)
	assert.Equal(t, "timer", report.Verdicts[2].Unit)

	assert.ElementsMatch(t, []string{"boot", "irq", "timer"}, runner.started)
}

func TestDispatcherAllPass(t *testing.T) {
	runner := &stubRunner{
		outcomes: map[string]verdict.Outcome{
			"a": verdict.Pass,
			"b": verdict.Pass,
		},
	}

	d := dispatch.Dispatcher{
		Units: []dispatch.Unit{
			{Name: "a", Kind: dispatch.KindUnit},
			{Name: "b", Kind: dispatch.KindUnit},
		},
		Runner: runner,
	}

	report := d.Run(context.Background())

	assert.False(t, report.Failed())
	assert.Len(t, report.Verdicts, 2)
}

type slowRunner struct {
	delay time.Duration
}

func (r *slowRunner) RunUnit(
	ctx context.Context,
	unit dispatch.Unit,
) verdict.Verdict {
	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
	}

	return verdict.Verdict{Unit: unit.Name, Outcome: verdict.Pass}
}

func TestDispatcherRunsConcurrently(t *testing.T) {
	const delay = 50 * time.Millisecond

	d := dispatch.Dispatcher{
		Units: []dispatch.Unit{
			{Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "d"},
		},
		Runner:      &slowRunner{delay: delay},
		Concurrency: 4,
	}

	start := time.Now()
	report := d.Run(context.Background())

	assert.Len(t, report.Verdicts, 4)
	assert.Less(t, time.Since(start), 4*delay)
}

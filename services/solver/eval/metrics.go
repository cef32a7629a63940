// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package eval

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// solverMetrics holds the solver's OpenTelemetry instruments.
//
// Instruments are created lazily on the first submission. Creation failures
// degrade observability, never evaluation: failed instruments stay nil and
// every recording site nil-checks.
type solverMetrics struct {
	once sync.Once

	solveDuration    metric.Float64Histogram
	solvesStarted    metric.Int64Counter
	solvesCompleted  metric.Int64Counter
	solvesCancelled  metric.Int64Counter
	activeWorkers    metric.Int64UpDownCounter
	rejectedCircuits metric.Int64Counter
}

// init creates the instruments once.
func (m *solverMetrics) init(logger *slog.Logger) {
	m.once.Do(func() {
		var initErrors []string

		var err error
		m.solveDuration, err = meter.Float64Histogram("circuit_solve_duration_seconds",
			metric.WithDescription("Wall time from submission to settled value"),
			metric.WithUnit("s"),
		)
		if err != nil {
			initErrors = append(initErrors, "solve_duration: "+err.Error())
		}

		m.solvesStarted, err = meter.Int64Counter("circuit_solves_started_total",
			metric.WithDescription("Number of circuit computations started"),
		)
		if err != nil {
			initErrors = append(initErrors, "solves_started: "+err.Error())
		}

		m.solvesCompleted, err = meter.Int64Counter("circuit_solves_completed_total",
			metric.WithDescription("Number of computations that published a value"),
		)
		if err != nil {
			initErrors = append(initErrors, "solves_completed: "+err.Error())
		}

		m.solvesCancelled, err = meter.Int64Counter("circuit_solves_cancelled_total",
			metric.WithDescription("Number of computations broken by cancellation"),
		)
		if err != nil {
			initErrors = append(initErrors, "solves_cancelled: "+err.Error())
		}

		m.activeWorkers, err = meter.Int64UpDownCounter("circuit_active_workers",
			metric.WithDescription("Number of node workers currently running"),
		)
		if err != nil {
			initErrors = append(initErrors, "active_workers: "+err.Error())
		}

		m.rejectedCircuits, err = meter.Int64Counter("circuit_solves_rejected_total",
			metric.WithDescription("Number of submissions rejected after Stop"),
		)
		if err != nil {
			initErrors = append(initErrors, "rejected_circuits: "+err.Error())
		}

		if len(initErrors) > 0 {
			logger.Error("failed to initialize some solver metrics (observability degraded)",
				slog.Int("failed_count", len(initErrors)),
				slog.Any("errors", initErrors),
			)
		}
	})
}

func (m *solverMetrics) workerStarted(ctx context.Context) {
	if m.activeWorkers != nil {
		m.activeWorkers.Add(ctx, 1)
	}
}

func (m *solverMetrics) workerFinished(ctx context.Context) {
	if m.activeWorkers != nil {
		m.activeWorkers.Add(ctx, -1)
	}
}

func (m *solverMetrics) solveStarted(ctx context.Context) {
	if m.solvesStarted != nil {
		m.solvesStarted.Add(ctx, 1)
	}
}

func (m *solverMetrics) solveSettled(ctx context.Context, cancelled bool, d time.Duration) {
	if m.solveDuration != nil {
		m.solveDuration.Record(ctx, d.Seconds())
	}
	if cancelled {
		if m.solvesCancelled != nil {
			m.solvesCancelled.Add(ctx, 1)
		}
		return
	}
	if m.solvesCompleted != nil {
		m.solvesCompleted.Add(ctx, 1)
	}
}

func (m *solverMetrics) solveRejected(ctx context.Context) {
	if m.rejectedCircuits != nil {
		m.rejectedCircuits.Add(ctx, 1)
	}
}

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
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/AleutianAI/circuits/services/solver/circuit"
	"github.com/AleutianAI/circuits/services/solver/telemetry"
)

var (
	tracer = otel.Tracer("circuits.eval")
	meter  = otel.Meter("circuits.eval")
)

// Solver evaluates boolean circuits concurrently with short-circuit
// cancellation.
//
// Description:
//
//	Each submitted circuit gets a root worker that fans out one worker per
//	node, collecting child results in completion order and cancelling
//	subtrees the moment an operator's value is decided. Solve hands back a
//	Value future immediately; Stop cancels every in-flight computation,
//	waits for them to unwind, and permanently refuses new submissions.
//
// Thread Safety:
//
//	Safe for concurrent use. Solve and Stop are serialized by the solver
//	mutex, so a Solve that returned a live Value is always observed by a
//	later Stop.
type Solver struct {
	logger *slog.Logger

	// sem caps concurrently running root computations; nil means unlimited.
	sem *semaphore.Weighted

	metrics solverMetrics

	mu        sync.Mutex
	accepting bool
	roots     []*rootComputation
}

// rootComputation tracks one live root: its latch, the cancel handle for its
// context tree, and the goroutine's completion channel.
type rootComputation struct {
	id     string
	value  *circuitValue
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSolver creates a Solver from the given configuration.
//
// Inputs:
//
//	cfg - Solver configuration. The zero value is valid (unlimited
//	      concurrency, slog.Default()).
//
// Outputs:
//
//	*Solver - The configured solver, accepting submissions.
//	error - Non-nil if the configuration is invalid.
func NewSolver(cfg Config) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.ApplyDefaults()

	s := &Solver{
		logger:    cfg.Logger,
		accepting: true,
	}
	if cfg.MaxConcurrentSolves > 0 {
		s.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrentSolves))
	}
	return s, nil
}

// Solve submits a circuit for evaluation.
//
// Description:
//
//	Registers a root computation and spawns it, returning its Value without
//	waiting. The Value may be awaited any number of times from any number
//	of goroutines. A nil circuit, or any submission after Stop, yields a
//	Value that is already cancelled.
//
// Inputs:
//
//	c - The circuit to evaluate. Should come from circuit.New, which
//	    guarantees structural validity.
//
// Outputs:
//
//	Value - Future for the circuit's result. Never nil.
//
// Thread Safety: Safe for concurrent use.
func (s *Solver) Solve(c *circuit.Circuit) Value {
	s.metrics.init(s.logger)

	if c == nil {
		s.logger.Error("nil circuit submitted")
		return newBrokenValue()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.accepting {
		s.logger.Debug("submission rejected, solver is stopped")
		s.metrics.solveRejected(context.Background())
		return newBrokenValue()
	}

	ctx, cancel := context.WithCancel(context.Background())
	rc := &rootComputation{
		id:     uuid.NewString()[:12],
		value:  newCircuitValue(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.roots = append(s.roots, rc)

	// A slot that is free at submission is claimed here, before Solve
	// returns; a submission beyond the cap queues for one in runRoot.
	slotHeld := s.sem != nil && s.sem.TryAcquire(1)

	go s.runRoot(ctx, rc, c, slotHeld)

	return rc.value
}

// Stop cancels every outstanding computation and refuses further submissions.
//
// Description:
//
//	Flips the solver out of accepting mode (irreversibly), signals every
//	root computation, and joins each one. Cancellation cascades through the
//	per-child contexts into the worker trees; every Value still pending when
//	Stop was called settles, as cancelled unless its root had already
//	decided and publishes its result instead. Returns only after every root has
//	terminated. Repeated calls are no-ops.
//
// Thread Safety: Safe for concurrent use; serialized with Solve, so no
// submission can slip past a Stop unobserved.
func (s *Solver) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.accepting {
		return
	}
	s.accepting = false

	s.logger.Info("solver stopping", slog.Int("root_computations", len(s.roots)))

	for _, rc := range s.roots {
		rc.cancel()
	}
	for _, rc := range s.roots {
		<-rc.done
	}

	s.logger.Info("solver stopped")
}

// runRoot drives one root computation to a settled Value.
//
// The latch settles on every path out of this function: publish on decision,
// brk on cancellation. No path leaves it pending.
func (s *Solver) runRoot(ctx context.Context, rc *rootComputation, c *circuit.Circuit, slotHeld bool) {
	defer close(rc.done)

	ctx, span := tracer.Start(ctx, "eval.Solve",
		trace.WithAttributes(
			attribute.String("circuit.computation_id", rc.id),
			attribute.Int("circuit.node_count", c.Size()),
			attribute.String("circuit.root_type", c.Root().Type().String()),
		),
	)
	defer span.End()

	start := time.Now()
	s.metrics.solveStarted(ctx)

	s.logger.Info("computation started",
		slog.String("computation_id", rc.id),
		slog.Int("nodes", c.Size()),
	)

	if s.sem != nil && !slotHeld {
		telemetry.AddSpanEvent(span, "queued_for_slot")
		if err := s.sem.Acquire(ctx, 1); err != nil {
			// Stopped while queued for a slot; the circuit never ran.
			rc.value.brk()
			telemetry.RecordError(span, ErrComputationCancelled,
				attribute.String("phase", "queued"))
			s.metrics.solveSettled(ctx, true, time.Since(start))
			s.logger.Info("computation cancelled while queued",
				slog.String("computation_id", rc.id),
			)
			return
		}
		slotHeld = true
	}
	if slotHeld {
		defer s.sem.Release(1)
	}

	root := &worker{node: c.Root(), metrics: &s.metrics}
	result, err := root.eval(ctx)
	duration := time.Since(start)

	if err != nil {
		rc.value.brk()
		telemetry.RecordError(span, err)
		s.metrics.solveSettled(ctx, true, duration)
		s.logger.Info("computation cancelled",
			slog.String("computation_id", rc.id),
			slog.Duration("duration", duration),
		)
		return
	}

	if perr := rc.value.publish(result); perr != nil {
		// Double publish cannot arise from any legal call sequence.
		telemetry.RecordError(span, perr)
		s.logger.Error("result discarded",
			slog.String("computation_id", rc.id),
			slog.String("error", perr.Error()),
		)
		return
	}

	telemetry.SetSpanOK(span)
	s.metrics.solveSettled(ctx, false, duration)
	s.logger.Info("computation completed",
		slog.String("computation_id", rc.id),
		slog.Bool("result", result),
		slog.Duration("duration", duration),
	)
}

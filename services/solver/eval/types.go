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
	"errors"
	"log/slog"

	"github.com/AleutianAI/circuits/services/solver/circuit"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrComputationCancelled is returned by Value.Get when the computation
	// did not produce a value: the solver was stopped, or the submission was
	// rejected because the solver no longer accepts circuits.
	ErrComputationCancelled = errors.New("circuit computation cancelled")

	// ErrValueAlreadySet reports an attempt to publish a second result into
	// the same value. It indicates a broken evaluator, never a legal call
	// sequence.
	ErrValueAlreadySet = errors.New("circuit value already set")

	// ErrInvalidConfig is returned when a solver configuration is invalid.
	ErrInvalidConfig = errors.New("invalid solver configuration")

	// ErrNilCircuit names a nil circuit submission. Solve does not return
	// it: a nil circuit yields a Value whose Get reports
	// ErrComputationCancelled.
	ErrNilCircuit = errors.New("circuit must not be nil")
)

// -----------------------------------------------------------------------------
// Interfaces
// -----------------------------------------------------------------------------

// Value is the future handed out by Solve for one circuit computation.
//
// Thread Safety: Safe for concurrent use; any number of goroutines may Get
// concurrently and repeatedly.
type Value interface {
	// Get blocks until the computation settles, then returns its result.
	//
	// Outputs:
	//   - bool: The circuit's value when the computation completed.
	//   - error: ErrComputationCancelled if the computation was cancelled,
	//     or the ctx error if the caller's own context ended first.
	//
	// A settled Value returns the same outcome on every call.
	Get(ctx context.Context) (bool, error)
}

// CircuitSolver accepts circuits for concurrent evaluation.
//
// Thread Safety: Safe for concurrent use.
type CircuitSolver interface {
	// Solve submits a circuit and returns a Value for its eventual result.
	//
	// After Stop, Solve returns a Value that is already cancelled.
	Solve(c *circuit.Circuit) Value

	// Stop cancels every in-flight computation and refuses new submissions.
	//
	// Stop blocks until every computation has terminated. It is idempotent.
	Stop()
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config configures a Solver.
type Config struct {
	// MaxConcurrentSolves caps how many root computations run at once.
	// Submissions beyond the cap queue until a slot frees; queued
	// computations are still cancelled by Stop without ever running.
	// Zero means unlimited. Must be >= 0.
	//
	// The cap applies to whole circuits only. Workers inside a circuit are
	// never throttled: a throttled child would deadlock its waiting parent.
	MaxConcurrentSolves int

	// Logger receives solver lifecycle logs. Nil means slog.Default().
	Logger *slog.Logger
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.MaxConcurrentSolves < 0 {
		return errors.New("MaxConcurrentSolves must be >= 0")
	}
	return nil
}

// ApplyDefaults fills in zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// -----------------------------------------------------------------------------
// Internal message types
// -----------------------------------------------------------------------------

// childResult is one child's contribution to its parent: which argument it
// evaluated and what the value was. Delivery order is completion order, not
// argument order.
//
// failed marks a child whose subtree failed on its own (a misbehaving leaf
// source) rather than being cancelled by this parent; it propagates the
// failure upward so the parent unwinds instead of waiting for a value that
// will never come. Children cancelled by their parent send nothing.
type childResult struct {
	index  int
	value  bool
	failed bool
}

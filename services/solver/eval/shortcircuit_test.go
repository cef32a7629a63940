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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/circuits/services/solver/circuit"
)

// Short-circuit tests. Every circuit here contains a leaf delayed by
// slowDelay; deciding well under that bound proves the slow leaf was
// cancelled, and the counting sources prove its read never completed.
//
// Once Get returns, the whole worker tree has been joined, so the counters
// are stable when the assertions run.

func TestShortCircuit_AndStopsOnFalse(t *testing.T) {
	slow := &countingSource{delay: slowDelay, value: true}
	eager := &countingSource{delay: time.Second, value: true}

	s := newTestSolver(t, Config{})
	start := time.Now()
	got, err := solve(t, s, circuit.And(
		circuit.Leaf(eager),
		circuit.Value(false),
		circuit.Leaf(slow),
	))

	require.NoError(t, err)
	assert.False(t, got)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Zero(t, slow.completed.Load(), "slow leaf read should have been cancelled")
}

func TestShortCircuit_OrStopsOnTrue(t *testing.T) {
	slow := &countingSource{delay: slowDelay, value: false}

	s := newTestSolver(t, Config{})
	start := time.Now()
	got, err := solve(t, s, circuit.Or(
		circuit.Value(false),
		circuit.Value(true),
		circuit.Leaf(slow),
	))

	require.NoError(t, err)
	assert.True(t, got)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Zero(t, slow.completed.Load())
}

func TestShortCircuit_IfPrunesDiscardedBranch(t *testing.T) {
	pruned := &countingSource{delay: slowDelay, value: true}

	s := newTestSolver(t, Config{})
	start := time.Now()
	got, err := solve(t, s, circuit.If(
		circuit.Value(true),
		circuit.Value(false),
		circuit.Leaf(pruned),
	))

	require.NoError(t, err)
	assert.False(t, got)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Zero(t, pruned.completed.Load(), "else branch should have been cancelled")
}

func TestShortCircuit_IfAgreeingBranchesDropCondition(t *testing.T) {
	cond := &countingSource{delay: slowDelay, value: false}

	s := newTestSolver(t, Config{})
	start := time.Now()
	got, err := solve(t, s, circuit.If(
		circuit.Leaf(cond),
		circuit.Value(true),
		circuit.Value(true),
	))

	require.NoError(t, err)
	assert.True(t, got)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Zero(t, cond.completed.Load(), "condition should have been cancelled")
}

func TestShortCircuit_IfWaitsForChosenBranch(t *testing.T) {
	// Branches disagree, so the rule must wait for the condition and then
	// for the chosen branch even though the other arrived first.
	s := newTestSolver(t, Config{})
	got, err := solve(t, s, circuit.If(
		circuit.DelayedValue(20*time.Millisecond, false),
		circuit.Value(false),
		circuit.DelayedValue(40*time.Millisecond, true),
	))

	require.NoError(t, err)
	assert.True(t, got)
}

func TestShortCircuit_GTDecidesEarly(t *testing.T) {
	slow := &countingSource{delay: slowDelay, value: true}

	s := newTestSolver(t, Config{})
	start := time.Now()
	got, err := solve(t, s, circuit.GT(2,
		circuit.Value(true),
		circuit.Value(true),
		circuit.Value(true),
		circuit.Leaf(slow),
	))

	require.NoError(t, err)
	assert.True(t, got)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Zero(t, slow.completed.Load())
}

func TestShortCircuit_GTUnattainableSkipsChildren(t *testing.T) {
	slow := &countingSource{delay: slowDelay, value: true}

	s := newTestSolver(t, Config{})
	start := time.Now()
	got, err := solve(t, s, circuit.GT(2,
		circuit.Leaf(slow),
		circuit.Leaf(&countingSource{delay: slowDelay, value: true}),
	))

	require.NoError(t, err)
	assert.False(t, got, "GT(2) over 2 children is unattainable")
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Zero(t, slow.completed.Load())
}

func TestShortCircuit_LTDecidesOnThreshold(t *testing.T) {
	slow := &countingSource{delay: slowDelay, value: false}

	s := newTestSolver(t, Config{})
	start := time.Now()
	got, err := solve(t, s, circuit.LT(2,
		circuit.Value(true),
		circuit.Value(true),
		circuit.Leaf(slow),
	))

	require.NoError(t, err)
	assert.False(t, got, "two trues already violate LT(2)")
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Zero(t, slow.completed.Load())
}

func TestShortCircuit_LTTrivialThresholdSkipsChildren(t *testing.T) {
	slow := &countingSource{delay: slowDelay, value: true}

	s := newTestSolver(t, Config{})
	start := time.Now()
	got, err := solve(t, s, circuit.LT(3,
		circuit.Leaf(slow),
		circuit.Leaf(&countingSource{delay: slowDelay, value: true}),
	))

	require.NoError(t, err)
	assert.True(t, got, "LT(3) over 2 children always holds")
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Zero(t, slow.completed.Load())
}

func TestShortCircuit_NestedPruning(t *testing.T) {
	// The outer OR decides on its fast arm; every leaf of the slow arm must
	// be cancelled, including ones nested several levels down.
	deepSlow := &countingSource{delay: slowDelay, value: true}

	slowArm := circuit.And(
		circuit.DelayedValue(slowDelay, true),
		circuit.Not(circuit.Leaf(deepSlow)),
	)
	fastArm := circuit.And(circuit.Value(true), circuit.Value(true))

	s := newTestSolver(t, Config{})
	start := time.Now()
	got, err := solve(t, s, circuit.Or(slowArm, fastArm))

	require.NoError(t, err)
	assert.True(t, got)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Zero(t, deepSlow.completed.Load())
}

func TestShortCircuit_CompletedReadsBounded(t *testing.T) {
	// The instrumented form of the short-circuit property: when a
	// short-circuit is possible, strictly fewer than arity reads complete.
	leaves := make([]*countingSource, 4)
	args := make([]*circuit.Node, 4)
	for i := range leaves {
		// One immediate false, three slow trues.
		if i == 0 {
			leaves[i] = &countingSource{value: false}
		} else {
			leaves[i] = &countingSource{delay: slowDelay, value: true}
		}
		args[i] = circuit.Leaf(leaves[i])
	}

	s := newTestSolver(t, Config{})
	got, err := solve(t, s, circuit.And(args...))
	require.NoError(t, err)
	assert.False(t, got)

	completed := int32(0)
	for _, l := range leaves {
		completed += l.completed.Load()
	}
	assert.LessOrEqual(t, completed, int32(len(leaves)-1))
}

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
	"sync"
)

// valueState is the observable state of a circuitValue.
type valueState int

const (
	// valuePending means no result has been delivered yet.
	valuePending valueState = iota

	// valueReady means the computation published a boolean.
	valueReady

	// valueBroken means the computation was cancelled before publishing.
	valueBroken
)

// String returns the string representation of the value state.
func (s valueState) String() string {
	switch s {
	case valuePending:
		return "pending"
	case valueReady:
		return "ready"
	case valueBroken:
		return "broken"
	default:
		return "unknown"
	}
}

// circuitValue is a write-once latch coupling one root computation to its
// external waiters.
//
// Description:
//
//	The latch starts pending and makes exactly one transition, to ready or
//	to broken. The settled channel is closed on that transition, releasing
//	every concurrent and future Get. publish and break may race (a Stop
//	arriving while the root is publishing); the transition is made under the
//	mutex, so one caller wins and the other observes a settled latch.
//
// Thread Safety: Safe for concurrent use.
type circuitValue struct {
	mu      sync.Mutex
	state   valueState
	result  bool
	settled chan struct{}
}

// newCircuitValue returns a latch in the pending state.
func newCircuitValue() *circuitValue {
	return &circuitValue{settled: make(chan struct{})}
}

// newBrokenValue returns a latch that is already broken, for submissions
// rejected after Stop.
func newBrokenValue() *circuitValue {
	v := newCircuitValue()
	v.brk()
	return v
}

// Get blocks until the latch settles, then reports the outcome.
//
// Outputs:
//   - bool: The published result when the state is ready.
//   - error: ErrComputationCancelled when the state is broken, or ctx.Err()
//     if the caller's context ended before the latch settled.
func (v *circuitValue) Get(ctx context.Context) (bool, error) {
	select {
	case <-v.settled:
	case <-ctx.Done():
		return false, ctx.Err()
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == valueBroken {
		return false, ErrComputationCancelled
	}
	return v.result, nil
}

// publish moves the latch from pending to ready(result).
//
// Outputs:
//   - error: ErrValueAlreadySet if a result was already published. Losing
//     the race against brk is not an error; the publish is a no-op then.
func (v *circuitValue) publish(result bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch v.state {
	case valueReady:
		return ErrValueAlreadySet
	case valueBroken:
		// Lost the race against a concurrent stop; both outcomes are valid
		// terminal states for a cancelled computation.
		return nil
	}

	v.state = valueReady
	v.result = result
	close(v.settled)
	return nil
}

// brk moves the latch from pending to broken. Idempotent; a no-op on a latch
// that already settled either way.
func (v *circuitValue) brk() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state != valuePending {
		return
	}
	v.state = valueBroken
	close(v.settled)
}

// snapshot returns the current state without blocking.
func (v *circuitValue) snapshot() valueState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

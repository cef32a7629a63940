// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package circuit

import (
	"context"
	"time"
)

// LeafSource produces the boolean value of a leaf node.
//
// Description:
//
//	Read may block for an arbitrary amount of time (a slow sensor, a network
//	round trip, a channel that is never fed). Implementations must honor
//	context cancellation: when ctx ends, Read returns promptly with ctx.Err().
//
// Thread Safety:
//
//	A LeafSource may be read concurrently if the same source backs several
//	leaves. All provided implementations are safe for concurrent use.
type LeafSource interface {
	// Read returns the leaf's value, blocking until it is available or the
	// context ends.
	Read(ctx context.Context) (bool, error)
}

// constSource returns a fixed value without blocking.
type constSource bool

// Read returns the constant value.
func (s constSource) Read(_ context.Context) (bool, error) {
	return bool(s), nil
}

// Const returns a LeafSource that yields v immediately.
func Const(v bool) LeafSource {
	return constSource(v)
}

// delayedSource returns a fixed value after a delay.
//
// The delay is cancellable; a cancelled Read returns without waiting out the
// remaining time.
type delayedSource struct {
	delay time.Duration
	value bool
}

// Read waits for the configured delay, then returns the value.
func (s *delayedSource) Read(ctx context.Context) (bool, error) {
	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return s.value, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Delayed returns a LeafSource that yields v after d has elapsed.
func Delayed(d time.Duration, v bool) LeafSource {
	return &delayedSource{delay: d, value: v}
}

// chanSource reads one value from a channel.
type chanSource struct {
	ch <-chan bool
}

// Read blocks until a value arrives on the channel or the context ends.
func (s *chanSource) Read(ctx context.Context) (bool, error) {
	select {
	case v := <-s.ch:
		return v, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// FromChan returns a LeafSource that reads a single value from ch.
//
// Each Read consumes one element, so a source shared between leaves must be
// fed once per leaf.
func FromChan(ch <-chan bool) LeafSource {
	return &chanSource{ch: ch}
}

// FuncSource adapts a plain function to the LeafSource interface.
type FuncSource func(ctx context.Context) (bool, error)

// Read invokes the wrapped function.
func (f FuncSource) Read(ctx context.Context) (bool, error) {
	return f(ctx)
}

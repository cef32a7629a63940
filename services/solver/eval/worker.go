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

	"github.com/AleutianAI/circuits/services/solver/circuit"
)

// worker evaluates one circuit node.
//
// Description:
//
//	A worker owns its node, its argument index within the parent, and the
//	channel it reports into. Operator workers additionally own the workers
//	they spawn for their arguments and the channel those report into; both
//	are dropped when the worker exits. Children publish upward through the
//	channel only; they hold no reference to the parent, so ownership stays
//	acyclic.
//
//	Cancellation travels the other way, leaf-ward, through the per-child
//	contexts: the leaf read and the result receive select on the worker's
//	context. The child join does not; it follows a cancel of every child and
//	waits for them to unwind (see reapChildren).
type worker struct {
	node    *circuit.Node
	index   int
	out     chan<- childResult
	metrics *solverMetrics
}

// childWorker pairs a spawned worker with the handles its parent needs to
// reap it: the cancel function for its private context and the goroutine's
// completion channel.
type childWorker struct {
	w      *worker
	cancel context.CancelFunc
	done   chan struct{}
}

// spawnChild starts a worker for one argument of an operator node.
//
// The child runs under its own cancellable context derived from the parent's,
// so the parent can cancel it individually (IF branch pruning) while an
// inbound cancel still reaches every descendant.
func spawnChild(ctx context.Context, node *circuit.Node, index int, out chan<- childResult, m *solverMetrics) *childWorker {
	childCtx, cancel := context.WithCancel(ctx)
	cw := &childWorker{
		w:      &worker{node: node, index: index, out: out, metrics: m},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go cw.run(childCtx)
	return cw
}

// run evaluates the child's subtree and delivers the result to the parent.
//
// A cancelled child delivers nothing. A child that failed on its own (its
// context still live) delivers a failure marker instead, so the parent is
// not left waiting for a value that will never come. Either send never
// blocks: the parent's channel has one slot per argument, and each child
// sends at most once.
func (c *childWorker) run(ctx context.Context) {
	defer close(c.done)

	value, err := c.w.eval(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.w.out <- childResult{index: c.w.index, failed: true}
		}
		return
	}
	c.w.out <- childResult{index: c.w.index, value: value}
}

// eval computes the value of the worker's subtree.
//
// Description:
//
//	Leaves read their source. Operator nodes spawn one child worker per
//	argument, then drive the operator rule over the shared result channel
//	until the value is decided. On every exit path (decision, cancellation,
//	failed leaf read) all spawned children are cancelled and joined before
//	eval returns, so no worker outlives its parent.
//
// Outputs:
//   - bool: The subtree's value.
//   - error: ErrComputationCancelled if the worker was cancelled before
//     deciding. No other errors are produced.
func (w *worker) eval(ctx context.Context) (bool, error) {
	if w.metrics != nil {
		w.metrics.workerStarted(ctx)
		defer w.metrics.workerFinished(ctx)
	}

	if err := ctx.Err(); err != nil {
		return false, ErrComputationCancelled
	}

	if w.node.Type() == circuit.TypeLeaf {
		value, err := w.node.Source().Read(ctx)
		if err != nil {
			// Leaf failures are indistinguishable from cancellation upward.
			return false, ErrComputationCancelled
		}
		return value, nil
	}

	args := w.node.Args()
	n := len(args)

	// One slot per argument: a deciding child can always complete its send,
	// so a child cancelled after deciding never blocks holding a message.
	results := make(chan childResult, n)

	children := make([]*childWorker, n)
	for i, arg := range args {
		children[i] = spawnChild(ctx, arg, i, results, w.metrics)
	}
	defer reapChildren(children)

	return w.applyRule(ctx, results, children)
}

// applyRule dispatches to the operator rule for the worker's node.
func (w *worker) applyRule(ctx context.Context, results <-chan childResult, children []*childWorker) (bool, error) {
	n := len(children)

	switch w.node.Type() {
	case circuit.TypeNot:
		return ruleNot(ctx, results)
	case circuit.TypeAnd:
		return ruleAnd(ctx, results, n)
	case circuit.TypeOr:
		return ruleOr(ctx, results, n)
	case circuit.TypeIf:
		return ruleIf(ctx, results, children)
	case circuit.TypeGT:
		return ruleGT(ctx, results, n, w.node.Threshold())
	case circuit.TypeLT:
		return ruleLT(ctx, results, n, w.node.Threshold())
	default:
		// Unreachable: circuit.New rejects unknown node types.
		return false, ErrComputationCancelled
	}
}

// reapChildren cancels every child, then joins each one.
//
// Signal first, join second, as two passes: a single signal-and-join loop
// would leave later children running while earlier ones are reaped. The join
// is unconditional: a reaping parent is itself either decided or cancelled,
// and its children's contexts are already cancelled, so each join terminates.
func reapChildren(children []*childWorker) {
	for _, c := range children {
		c.cancel()
	}
	for _, c := range children {
		<-c.done
	}
}

// recvResult takes the next child message, failing fast if the worker has
// been cancelled or a child reported failure.
func recvResult(ctx context.Context, results <-chan childResult) (childResult, error) {
	// An already-delivered cancel wins over a ready message.
	if err := ctx.Err(); err != nil {
		return childResult{}, ErrComputationCancelled
	}

	select {
	case r := <-results:
		if r.failed {
			return childResult{}, ErrComputationCancelled
		}
		return r, nil
	case <-ctx.Done():
		return childResult{}, ErrComputationCancelled
	}
}

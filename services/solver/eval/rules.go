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

import "context"

// Operator rules.
//
// Each rule consumes child messages in completion order and returns the
// operator's value the moment it is determined; the caller (worker.eval)
// cancels and joins the remaining children afterwards. AND, OR, GT and LT
// depend only on the multiset of delivered values. IF is the one rule that
// cares which argument a value came from.

// ruleNot takes the single child's value and negates it.
func ruleNot(ctx context.Context, results <-chan childResult) (bool, error) {
	r, err := recvResult(ctx, results)
	if err != nil {
		return false, err
	}
	return !r.value, nil
}

// ruleAnd is false on the first false child, true once all n reported true.
func ruleAnd(ctx context.Context, results <-chan childResult, n int) (bool, error) {
	for i := 0; i < n; i++ {
		r, err := recvResult(ctx, results)
		if err != nil {
			return false, err
		}
		if !r.value {
			return false, nil
		}
	}
	return true, nil
}

// ruleOr is true on the first true child, false once all n reported false.
func ruleOr(ctx context.Context, results <-chan childResult, n int) (bool, error) {
	for i := 0; i < n; i++ {
		r, err := recvResult(ctx, results)
		if err != nil {
			return false, err
		}
		if r.value {
			return true, nil
		}
	}
	return false, nil
}

// ruleGT decides "strictly more than threshold of the n children are true".
//
// After each message, with t trues seen and r children outstanding: t > k
// decides true, t+r <= k decides false. One of the two always holds by the
// time the last message arrives.
func ruleGT(ctx context.Context, results <-chan childResult, n, threshold int) (bool, error) {
	if threshold >= n {
		// Unattainable regardless of child values.
		return false, nil
	}

	trues := 0
	for i := 0; i < n; i++ {
		r, err := recvResult(ctx, results)
		if err != nil {
			return false, err
		}
		if r.value {
			trues++
		}
		remaining := n - i - 1
		if trues > threshold {
			return true, nil
		}
		if trues+remaining <= threshold {
			return false, nil
		}
	}
	return false, nil
}

// ruleLT decides "strictly fewer than threshold of the n children are true".
//
// Dual of ruleGT: t >= k decides false, t+r < k decides true.
func ruleLT(ctx context.Context, results <-chan childResult, n, threshold int) (bool, error) {
	if threshold > n {
		// Satisfied regardless of child values.
		return true, nil
	}

	trues := 0
	for i := 0; i < n; i++ {
		r, err := recvResult(ctx, results)
		if err != nil {
			return false, err
		}
		if r.value {
			trues++
		}
		remaining := n - i - 1
		if trues >= threshold {
			return false, nil
		}
		if trues+remaining < threshold {
			return true, nil
		}
	}
	return false, nil
}

// IF argument indices.
const (
	ifCond = 0
	ifThen = 1
	ifElse = 2
)

// ruleIf decides a three-argument conditional from whichever messages arrive
// first.
//
// Once the condition is known, the discarded branch is cancelled immediately
// and the rule waits for the chosen branch (which may already have arrived).
// If both branches arrive first and agree, their common value is the answer
// and the still-pending condition is cancelled.
func ruleIf(ctx context.Context, results <-chan childResult, children []*childWorker) (bool, error) {
	var values, known [3]bool

	for received := 0; received < len(children); received++ {
		r, err := recvResult(ctx, results)
		if err != nil {
			return false, err
		}
		values[r.index] = r.value
		known[r.index] = true

		if known[ifCond] {
			chosen, discarded := ifThen, ifElse
			if !values[ifCond] {
				chosen, discarded = ifElse, ifThen
			}
			children[discarded].cancel()

			for !known[chosen] {
				// Drain; only the chosen branch's message matters now.
				r, err := recvResult(ctx, results)
				if err != nil {
					return false, err
				}
				values[r.index] = r.value
				known[r.index] = true
			}
			return values[chosen], nil
		}

		if known[ifThen] && known[ifElse] && values[ifThen] == values[ifElse] {
			// The branches agree, so the condition is irrelevant.
			children[ifCond].cancel()
			return values[ifThen], nil
		}
	}

	// Unreachable: by the third message either the condition is known or
	// both branches are.
	return false, ErrComputationCancelled
}

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

import "time"

// Node is a single node of a boolean circuit.
//
// Description:
//
//	A Node is immutable after construction and may be shared read-only
//	between circuits and between concurrent evaluations. Leaf nodes carry a
//	LeafSource; operator nodes carry an ordered argument list; threshold
//	nodes (GT, LT) additionally carry their threshold.
//
// Thread Safety:
//
//	Safe for concurrent use; all fields are written once at construction.
type Node struct {
	typ       NodeType
	args      []*Node
	threshold int
	source    LeafSource
}

// Type returns the node's operator kind.
func (n *Node) Type() NodeType {
	return n.typ
}

// Args returns the node's ordered argument list.
//
// The returned slice is the node's own backing array; callers must not
// modify it.
func (n *Node) Args() []*Node {
	return n.args
}

// Arity returns the number of arguments.
func (n *Node) Arity() int {
	return len(n.args)
}

// Threshold returns the threshold of a GT or LT node, 0 otherwise.
func (n *Node) Threshold() int {
	return n.threshold
}

// Source returns the LeafSource of a leaf node, nil otherwise.
func (n *Node) Source() LeafSource {
	return n.source
}

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------
//
// Constructors are cheap and never fail; structural validation happens once,
// in New, when the finished tree is turned into a Circuit.

// Leaf returns a leaf node backed by the given source.
func Leaf(source LeafSource) *Node {
	return &Node{typ: TypeLeaf, source: source}
}

// Value returns a leaf node with a constant value.
func Value(v bool) *Node {
	return Leaf(Const(v))
}

// DelayedValue returns a leaf node that yields v after d.
func DelayedValue(d time.Duration, v bool) *Node {
	return Leaf(Delayed(d, v))
}

// Not returns a NOT node over the given argument.
func Not(arg *Node) *Node {
	return &Node{typ: TypeNot, args: []*Node{arg}}
}

// And returns an AND node over the given arguments.
func And(args ...*Node) *Node {
	return &Node{typ: TypeAnd, args: args}
}

// Or returns an OR node over the given arguments.
func Or(args ...*Node) *Node {
	return &Node{typ: TypeOr, args: args}
}

// If returns an IF node: cond selects between then (true) and els (false).
func If(cond, then, els *Node) *Node {
	return &Node{typ: TypeIf, args: []*Node{cond, then, els}}
}

// GT returns a threshold node that is true iff strictly more than threshold
// arguments are true.
func GT(threshold int, args ...*Node) *Node {
	return &Node{typ: TypeGT, threshold: threshold, args: args}
}

// LT returns a threshold node that is true iff strictly fewer than threshold
// arguments are true.
func LT(threshold int, args ...*Node) *Node {
	return &Node{typ: TypeLT, threshold: threshold, args: args}
}

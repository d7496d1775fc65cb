// Copyright 2024 The EURE Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cst

// Visitor implements double-dispatch traversal over a Tree. For every
// node kind the walker reaches, it calls VisitNonTerminal/VisitTerminal
// first; a visitor that wants the default structural recursion (visit
// every child in order) calls back into VisitNonTerminalSuper /
// VisitTerminalSuper from its own override, the same way generated
// visit_N/visit_N_super pairs compose in the tree layer this package is
// modeled on.
type Visitor interface {
	VisitNonTerminal(w *Walker, id NodeId, kind NonTerminalKind) error
	VisitNonTerminalSuper(w *Walker, id NodeId, kind NonTerminalKind) error
	VisitTerminal(w *Walker, id NodeId, kind TerminalKind) error
	VisitTerminalSuper(w *Walker, id NodeId, kind TerminalKind) error
}

// Walker drives a Visitor over a Tree. Constructed once per traversal;
// Visit/VisitChildren re-enter through the stored Visitor so overridden
// methods apply at every depth, not just the root call.
type Walker struct {
	Tree  *Tree
	Input string
	v     Visitor
}

// NewWalker returns a Walker that drives v over t.
func NewWalker(t *Tree, input string, v Visitor) *Walker {
	return &Walker{Tree: t, Input: input, v: v}
}

// Visit dispatches id to the visitor's VisitNonTerminal or VisitTerminal
// depending on its stored kind.
func (w *Walker) Visit(id NodeId) error {
	data, ok := w.Tree.NodeData(id)
	if !ok {
		return &ViewConstructionError{Kind: NodeIdNotFound, Node: id}
	}
	if data.IsTerminal {
		return w.v.VisitTerminal(w, id, data.Terminal)
	}
	return w.v.VisitNonTerminal(w, id, data.NonTerminal)
}

// VisitChildren visits every child of node in order. Used by a
// visitor's "_super" method to implement default structural recursion.
func (w *Walker) VisitChildren(node NodeId) error {
	for _, child := range w.Tree.Children(node) {
		if err := w.Visit(child); err != nil {
			return err
		}
	}
	return nil
}

// VisitNonTerminalSuper calls the current Visitor's default
// "_super" behavior for a non-terminal directly, for a custom
// VisitNonTerminal override (outside this package) that wants to fall
// back to default recursion without importing BaseVisitor's method set.
func (w *Walker) VisitNonTerminalSuper(id NodeId, kind NonTerminalKind) error {
	return w.v.VisitNonTerminalSuper(w, id, kind)
}

// VisitTerminalSuper is VisitNonTerminalSuper's terminal counterpart.
func (w *Walker) VisitTerminalSuper(id NodeId, kind TerminalKind) error {
	return w.v.VisitTerminalSuper(w, id, kind)
}

// BaseVisitor provides the default "_super" behavior — visit every
// child, recursing through the owning Walker's current Visitor — and a
// pass-through VisitNonTerminal/VisitTerminal that simply calls Super.
// Embed it in a concrete visitor and override only the methods that need
// custom behavior.
type BaseVisitor struct{}

func (BaseVisitor) VisitNonTerminal(w *Walker, id NodeId, kind NonTerminalKind) error {
	return w.v.VisitNonTerminalSuper(w, id, kind)
}

func (BaseVisitor) VisitNonTerminalSuper(w *Walker, id NodeId, _ NonTerminalKind) error {
	return w.VisitChildren(id)
}

func (BaseVisitor) VisitTerminal(w *Walker, id NodeId, kind TerminalKind) error {
	return w.v.VisitTerminalSuper(w, id, kind)
}

func (BaseVisitor) VisitTerminalSuper(w *Walker, _ NodeId, _ TerminalKind) error {
	return nil
}

// RecoverableError is returned by a Visitor method to signal tolerant
// parsing should record the error and continue rather than abort the
// whole traversal. ThenConstructError wraps a *ViewConstructionError
// this way; RecoverError is the Walker-level helper that catches it.
type RecoverableError struct {
	Node NodeId
	Err  error
}

func (e *RecoverableError) Error() string { return e.Err.Error() }
func (e *RecoverableError) Unwrap() error { return e.Err }

// ThenConstructError lifts err (if non-nil) into a *RecoverableError
// rooted at node, for a visitor method that wants a failed child
// construction to be recoverable rather than fatal.
func ThenConstructError(node NodeId, err error) error {
	if err == nil {
		return nil
	}
	return &RecoverableError{Node: node, Err: err}
}

// RecoverError runs fn; if it returns a *RecoverableError, the error is
// appended to errs and traversal continues (nil is returned so the
// caller's own traversal doesn't abort). Any other error propagates.
func RecoverError(errs *[]error, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	if re, ok := err.(*RecoverableError); ok {
		*errs = append(*errs, re)
		return nil
	}
	return err
}

// NodeVisitor is the raw, kind-agnostic traversal API: a single
// function invoked pre-order (and optionally post-order) for every
// node, with no per-kind double dispatch. Used for ad-hoc walks (source
// reconstruction, diagnostics collection) that don't need the
// overridable visit_N/visit_N_super shape.
type NodeVisitor struct {
	Tree  *Tree
	Input string
}

// NewNodeVisitor returns a NodeVisitor over t.
func NewNodeVisitor(t *Tree, input string) *NodeVisitor {
	return &NodeVisitor{Tree: t, Input: input}
}

// Walk calls enter for id and every descendant in pre-order, and leave
// (if non-nil) in post-order. Stops and returns the first error either
// callback produces.
func (nv *NodeVisitor) Walk(id NodeId, enter func(NodeId, NodeData) error, leave func(NodeId, NodeData) error) error {
	data, ok := nv.Tree.NodeData(id)
	if !ok {
		return &ViewConstructionError{Kind: NodeIdNotFound, Node: id}
	}
	if enter != nil {
		if err := enter(id, data); err != nil {
			return err
		}
	}
	for _, child := range nv.Tree.Children(id) {
		if err := nv.Walk(child, enter, leave); err != nil {
			return err
		}
	}
	if leave != nil {
		if err := leave(id, data); err != nil {
			return err
		}
	}
	return nil
}

// BuiltinTerminalVisitor collects builtin trivia nodes (whitespace,
// newlines, line/block comments) encountered anywhere in a tree,
// without otherwise affecting traversal. Comments gathered this way
// feed CLI diagnostics and doc-comment association; whitespace/newlines
// are collected only for lossless source reconstruction.
type BuiltinTerminalVisitor struct {
	BaseVisitor
	Comments   []NodeId
	Whitespace []NodeId
}

func (v *BuiltinTerminalVisitor) VisitTerminal(w *Walker, id NodeId, kind TerminalKind) error {
	switch {
	case kind.IsBuiltinLineComment(), kind.IsBuiltinBlockComment():
		v.Comments = append(v.Comments, id)
	case kind.IsBuiltinWhitespace(), kind.IsBuiltinNewLine():
		v.Whitespace = append(v.Whitespace, id)
	}
	return w.v.VisitTerminalSuper(w, id, kind)
}

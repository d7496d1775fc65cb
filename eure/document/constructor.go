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

package document

import "eure.sh/eure/token"

// Segment pairs a PathSegment with the source position it was written at,
// the unit DocumentConstructor operations push and bind in terms of.
type Segment struct {
	Path   PathSegment
	Origin token.Pos // token.NoPos if untracked
}

// NewSegment returns a Segment with no origin.
func NewSegment(p PathSegment) Segment { return Segment{Path: p, Origin: token.NoPos} }

// WithOrigin returns a Segment carrying the given source position.
func WithOrigin(p PathSegment, pos token.Pos) Segment { return Segment{Path: p, Origin: pos} }

// PushToken is an opaque handle returned by PushBindingPath, validating
// that a later PopToToken pops back to exactly the depth it was issued at.
type PushToken struct {
	depthBefore int
}

type deferredSegment struct {
	seg Segment
}

type stackItem struct {
	nodeId    NodeId
	pathRange int
}

// DocumentConstructor is the streaming builder used by the value visitor
// (and any external ingester, such as a TOML importer) to build a Document
// one path push / value bind at a time, without knowing the full shape of
// a container up front.
type DocumentConstructor struct {
	doc      *Document
	path     Path
	stack    []stackItem
	deferred *deferredSegment
	origins  *Origins
	// extensionOnly marks nodes that exist solely to host an extension —
	// a later bind to one of these is permitted and clears the mark.
	extensionOnly map[NodeId]bool
}

// NewConstructor returns a constructor positioned at a fresh document's
// root, which starts as Null until the first push or bind determines its
// container type.
func NewConstructor() *DocumentConstructor {
	doc := New()
	return &DocumentConstructor{
		doc:           doc,
		stack:         []stackItem{{nodeId: doc.RootId(), pathRange: 0}},
		origins:       NewOrigins(),
		extensionOnly: make(map[NodeId]bool),
	}
}

// CurrentNodeId returns the node the constructor is currently positioned
// at.
func (c *DocumentConstructor) CurrentNodeId() NodeId {
	return c.stack[len(c.stack)-1].nodeId
}

// CurrentNode returns the node the constructor is currently positioned at.
func (c *DocumentConstructor) CurrentNode() *Node {
	return c.doc.Node(c.CurrentNodeId())
}

// CurrentPath returns the path from the root to the current position.
func (c *DocumentConstructor) CurrentPath() Path {
	top := c.stack[len(c.stack)-1]
	return c.path[:top.pathRange]
}

// StackDepth returns the current frame-stack depth (1 at the root).
func (c *DocumentConstructor) StackDepth() int { return len(c.stack) }

// Document returns the document under construction.
func (c *DocumentConstructor) Document() *Document { return c.doc }

// Origins returns the origin table accumulated so far.
func (c *DocumentConstructor) Origins() *Origins { return c.origins }

// Finish returns the built document and its origin table. It fails if a
// deferred segment was never consumed by a bind.
func (c *DocumentConstructor) Finish() (*Document, *Origins, error) {
	if c.deferred != nil {
		return nil, nil, &InsertError{Kind: UnconsumedDeferredPath, Path: append(Path{}, c.path...)}
	}
	return c.doc, c.origins, nil
}

// inferContainerFrom picks the container NodeValue a deferred segment's
// node should become, based on the *next* segment that follows it.
func inferContainerFrom(seg PathSegment) NodeValue {
	switch seg.(type) {
	case SegIdent, SegValue:
		return newMap()
	case SegExtension:
		// Extensions attach to the parent's Extensions map, not its
		// content; the parent stays Null until explicitly bound.
		return Null{}
	case SegArrayIndex:
		return &Array{}
	case SegTupleIndex:
		return &Tuple{}
	}
	return Null{}
}

// consumeDeferredWithNext materializes a pending deferred segment, as a
// container whose shape is inferred from the segment that follows it.
func (c *DocumentConstructor) consumeDeferredWithNext(next PathSegment) error {
	if c.deferred == nil {
		return nil
	}
	deferred := *c.deferred
	c.deferred = nil
	container := inferContainerFrom(next)
	id, err := c.createAndPushChild(deferred.seg, container)
	if err != nil {
		return err
	}
	if _, isExt := next.(SegExtension); isExt {
		c.extensionOnly[id] = true
	}
	return nil
}

// consumeDeferredWithValue materializes a pending deferred segment with an
// explicit value (used when a bind or consumeDeferredAsMap supplies the
// content directly rather than inferring it from a following segment).
func (c *DocumentConstructor) consumeDeferredWithValue(value NodeValue) error {
	if c.deferred == nil {
		return nil
	}
	deferred := *c.deferred
	c.deferred = nil
	_, err := c.createAndPushChild(deferred.seg, value)
	return err
}

// createAndPushChild creates a child of the current node under seg with
// the given content, then pushes it onto the stack as the new position.
func (c *DocumentConstructor) createAndPushChild(seg Segment, content NodeValue) (NodeId, error) {
	parentId := c.CurrentNodeId()
	basePath := append(Path{}, c.CurrentPath()...)

	// A Null parent becomes the container type this segment needs.
	parent := c.doc.Node(parentId)
	if _, isNull := parent.Content.(Null); isNull {
		parent.Content = inferContainerFrom(seg.Path)
	}

	var childId NodeId
	var err error
	switch s := seg.Path.(type) {
	case SegIdent:
		childId, err = c.doc.AddMapChild(parentId, KeyString(s.Name.String()), basePath)
	case SegValue:
		childId, err = c.doc.AddMapChild(parentId, s.Key, basePath)
	case SegExtension:
		childId, err = c.doc.AddExtension(parentId, s.Name, basePath)
	case SegTupleIndex:
		childId, err = c.doc.AddTupleElement(parentId, s.Index, basePath)
	case SegArrayIndex:
		var idx *int
		if s.Index != nil {
			v := int(*s.Index)
			idx = &v
		}
		childId, err = c.doc.AddArrayElement(parentId, idx, basePath)
	}
	if err != nil {
		return 0, err
	}
	c.doc.Node(childId).Content = content
	if seg.Origin.IsValid() {
		c.origins.Record(childId, seg.Origin)
	}
	c.pushFrame(childId, seg.Path)
	return childId, nil
}

// pushFrame truncates the path to the current frame's range, appends seg,
// and pushes a new frame pointing at nodeId.
func (c *DocumentConstructor) pushFrame(nodeId NodeId, seg PathSegment) {
	currentRange := c.stack[len(c.stack)-1].pathRange
	c.path = append(c.path[:currentRange], seg)
	c.stack = append(c.stack, stackItem{nodeId: nodeId, pathRange: len(c.path)})
}

// tryGetChild looks up an existing child for seg under the current node,
// without creating anything. SegArrayIndex{Index: nil} never matches: a
// push always creates a new element.
func (c *DocumentConstructor) tryGetChild(seg PathSegment) (NodeId, bool) {
	node := c.CurrentNode()
	switch s := seg.(type) {
	case SegIdent:
		if m := node.AsMap(); m != nil {
			return m.Get(KeyString(s.Name.String()))
		}
	case SegValue:
		if m := node.AsMap(); m != nil {
			return m.Get(s.Key)
		}
	case SegExtension:
		return node.GetExtension(s.Name)
	case SegTupleIndex:
		if t := node.AsTuple(); t != nil {
			return t.Get(s.Index)
		}
	case SegArrayIndex:
		if s.Index != nil {
			if a := node.AsArray(); a != nil {
				return a.Get(int(*s.Index))
			}
		}
	}
	return 0, false
}

// moveToExisting pushes an existing node onto the stack as the new
// position, recording origin if present.
func (c *DocumentConstructor) moveToExisting(nodeId NodeId, seg Segment) {
	if seg.Origin.IsValid() {
		c.origins.Record(nodeId, seg.Origin)
	}
	c.pushFrame(nodeId, seg.Path)
}

// PushPath navigates the given segments, reusing existing children where
// they exist. Only the final segment is ever deferred (creation decided by
// whatever operation follows); intermediate segments with no existing
// child are deferred one at a time, consumed by the next segment in the
// same call.
func (c *DocumentConstructor) PushPath(segments []Segment) error {
	for i, seg := range segments {
		if err := c.consumeDeferredWithNext(seg.Path); err != nil {
			return err
		}
		if existing, ok := c.tryGetChild(seg.Path); ok {
			c.moveToExisting(existing, seg)
		} else {
			c.deferred = &deferredSegment{seg: seg}
		}
	}
	return nil
}

// PushBindingPath is like PushPath, but the final segment is always
// deferred until a Bind* call supplies its value — except when it already
// exists as an extension-only node, which may be rebound in place.
func (c *DocumentConstructor) PushBindingPath(segments []Segment) (PushToken, error) {
	depthBefore := len(c.stack)
	if len(segments) == 0 {
		return PushToken{depthBefore: depthBefore}, nil
	}

	init, last := segments[:len(segments)-1], segments[len(segments)-1]
	if err := c.PushPath(init); err != nil {
		return PushToken{}, err
	}

	if err := c.consumeDeferredWithNext(last.Path); err != nil {
		return PushToken{}, err
	}

	if existing, ok := c.tryGetChild(last.Path); ok {
		if !c.extensionOnly[existing] {
			return PushToken{}, &InsertError{
				Kind: BindingTargetHasValue,
				Path: append(Path{}, c.CurrentPath()...),
			}
		}
		c.moveToExisting(existing, last)
	} else {
		c.deferred = &deferredSegment{seg: last}
	}
	return PushToken{depthBefore: depthBefore}, nil
}

// Pop unwinds one frame from the stack. Fails CannotPopRoot at the root.
func (c *DocumentConstructor) Pop() error {
	if len(c.stack) <= 1 {
		return &InsertError{Kind: CannotPopRoot}
	}
	c.stack = c.stack[:len(c.stack)-1]
	return nil
}

// PopToDepth unwinds frames until the stack has exactly targetDepth
// entries.
func (c *DocumentConstructor) PopToDepth(targetDepth int) error {
	for len(c.stack) > targetDepth {
		if err := c.Pop(); err != nil {
			return err
		}
	}
	return nil
}

// PopToToken unwinds back to the depth recorded in tok, validating that
// the stack hasn't already been popped past it.
func (c *DocumentConstructor) PopToToken(tok PushToken) error {
	current := len(c.stack)
	if current < tok.depthBefore {
		return &InsertError{Kind: DepthMismatch, DepthExpected: tok.depthBefore, DepthActual: current}
	}
	return c.PopToDepth(tok.depthBefore)
}

// ConsumeDeferredAsMap forces any pending deferred segment to materialize
// as an empty Map, used by sections whose body holds multiple bindings
// that must all land inside the same node.
func (c *DocumentConstructor) ConsumeDeferredAsMap() error {
	if c.deferred == nil {
		return nil
	}
	return c.consumeDeferredWithValue(newMap())
}

// BindPrimitive binds a primitive value at the current position.
func (c *DocumentConstructor) BindPrimitive(value NodeValue, origin token.Pos) (NodeId, error) {
	return c.bindValue(value, origin)
}

// BindEmptyMap binds an empty map at the current position.
func (c *DocumentConstructor) BindEmptyMap(origin token.Pos) (NodeId, error) {
	return c.bindValue(newMap(), origin)
}

// BindEmptyArray binds an empty array at the current position.
func (c *DocumentConstructor) BindEmptyArray(origin token.Pos) (NodeId, error) {
	return c.bindValue(&Array{}, origin)
}

// BindEmptyTuple binds an empty tuple at the current position.
func (c *DocumentConstructor) BindEmptyTuple(origin token.Pos) (NodeId, error) {
	return c.bindValue(&Tuple{}, origin)
}

// bindValue consumes a pending deferred segment (creating its node with
// value), or, with nothing deferred, writes the current node's content —
// valid only at the root or on an extension-only node being rebound.
func (c *DocumentConstructor) bindValue(value NodeValue, origin token.Pos) (NodeId, error) {
	if c.deferred != nil {
		deferred := *c.deferred
		c.deferred = nil
		id, err := c.createAndPushChild(deferred.seg, value)
		if err != nil {
			return 0, err
		}
		if origin.IsValid() {
			c.origins.Record(id, origin)
		}
		return id, nil
	}

	nodeId := c.CurrentNodeId()
	isExtensionOnly := c.extensionOnly[nodeId]
	delete(c.extensionOnly, nodeId)

	node := c.doc.Node(nodeId)
	_, isNull := node.Content.(Null)
	canBind := isExtensionOnly || (nodeId == c.doc.RootId() && isNull)
	if !canBind {
		return 0, &InsertError{Kind: BindingTargetHasValue, Path: append(Path{}, c.CurrentPath()...)}
	}

	node.Content = value
	if origin.IsValid() {
		c.origins.Record(nodeId, origin)
	}
	return nodeId, nil
}

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

package parse

import (
	"eure.sh/eure/document"
	"eure.sh/eure/literal"
)

// UnionTagMode controls how a union parser resolves ambiguity between
// matching variants. TagExtension is the only mode today: a $variant
// extension on the node, when present, selects the variant by name and
// bypasses priority/ambiguity resolution entirely.
type UnionTagMode int

const (
	TagExtension UnionTagMode = iota
)

// ParserScope names what a flatten chain's child parsers are allowed to
// do: Record children parse fields from the same map, Extension children
// parse entries from the node's extension table.
type ParserScope int

const (
	ScopeRecord ParserScope = iota
	ScopeExtension
)

// flattenContext is shared by every parser in a flatten chain. Field
// accesses recorded by any child are visible to the root's
// DenyUnknownFields check; only the root validates.
type flattenContext struct {
	scope    ParserScope
	accessed *accessedSet
}

// accessedSet tracks field names consulted through a RecordParser so
// DenyUnknownFields can tell accessed fields from forgotten ones.
type accessedSet struct {
	names map[string]bool
}

func newAccessedSet() *accessedSet {
	return &accessedSet{names: make(map[string]bool)}
}

func (s *accessedSet) add(name string) {
	s.names[name] = true
}

func (s *accessedSet) has(name string) bool {
	return s.names[name]
}

func (s *accessedSet) clone() *accessedSet {
	c := newAccessedSet()
	for k := range s.names {
		c.names[k] = true
	}
	return c
}

// ParseContext pairs a document and a node with the bookkeeping
// (accessed-field set, flatten scope, union tag mode) needed to parse
// that node's value.
type ParseContext struct {
	doc          *document.Document
	nodeId       document.NodeId
	accessed     *accessedSet
	flattenCtx   *flattenContext
	unionTagMode UnionTagMode
}

// NewContext returns a root context over doc at nodeId.
func NewContext(doc *document.Document, nodeId document.NodeId) *ParseContext {
	return &ParseContext{doc: doc, nodeId: nodeId, accessed: newAccessedSet()}
}

// withUnionTagMode returns a context over a different node that inherits
// mode, reusing neither the accessed set nor the flatten scope: every
// field's sub-context starts a fresh accounting scope of its own.
func withUnionTagMode(doc *document.Document, nodeId document.NodeId, mode UnionTagMode) *ParseContext {
	return &ParseContext{doc: doc, nodeId: nodeId, accessed: newAccessedSet(), unionTagMode: mode}
}

// Doc returns the document being parsed.
func (c *ParseContext) Doc() *document.Document { return c.doc }

// NodeId returns the node this context parses.
func (c *ParseContext) NodeId() document.NodeId { return c.nodeId }

// Node returns the node this context parses.
func (c *ParseContext) Node() *document.Node { return c.doc.Node(c.nodeId) }

// UnionTagMode returns the tag resolution mode inherited from the parent
// context, if any.
func (c *ParseContext) UnionTagMode() UnionTagMode { return c.unionTagMode }

func (c *ParseContext) flatten(scope ParserScope) *ParseContext {
	shared := c.accessed
	if c.flattenCtx != nil {
		shared = c.flattenCtx.accessed
	}
	return &ParseContext{
		doc:          c.doc,
		nodeId:       c.nodeId,
		accessed:     newAccessedSet(),
		unionTagMode: c.unionTagMode,
		flattenCtx:   &flattenContext{scope: scope, accessed: shared},
	}
}

// Parser is a typed parse function: the Serde-like hook a user type
// implements to participate in Field, ParseUnion, and the rest of this
// package.
type Parser[T any] func(ctx *ParseContext) (T, error)

// Parse runs parser against ctx.
func Parse[T any](ctx *ParseContext, parser Parser[T]) (T, error) {
	return parser(ctx)
}

// ParseRecord opens ctx's node as a record (a map with string keys).
func (c *ParseContext) ParseRecord() (*RecordParser, error) {
	return newRecordParser(c)
}

// ParseUnion opens ctx's node as a union, using its $variant extension
// (if present) to resolve which variant to try.
func ParseUnion[T any](ctx *ParseContext) *UnionParser[T] {
	return newUnionParser[T](ctx, extractVariantPath(ctx))
}

// ParseUnionWithPath opens ctx's node as a union using an explicit
// variant path instead of reading $variant, for nested unions continuing
// a path an outer union already split.
func ParseUnionWithPath[T any](ctx *ParseContext, path *VariantPath) *UnionParser[T] {
	return newUnionParser[T](ctx, path)
}

func extractVariantPath(ctx *ParseContext) *VariantPath {
	extId, ok := ctx.Node().GetExtension(variantExtensionName)
	if !ok {
		return nil
	}
	extCtx := withUnionTagMode(ctx.doc, extId, ctx.unionTagMode)
	s, err := ParseText(extCtx)
	if err != nil {
		return nil
	}
	p := VariantPathFromString(s)
	return &p
}

// Ext opens name's extension on ctx's node, returning a sub-context over
// it. ok is false if name is not a valid identifier or the extension is
// absent.
func (c *ParseContext) Ext(name string) (ctx *ParseContext, ok bool) {
	ident, err := literal.ParseIdentifier(name)
	if err != nil {
		return nil, false
	}
	extId, found := c.Node().GetExtension(ident)
	if !found {
		return nil, false
	}
	return withUnionTagMode(c.doc, extId, c.unionTagMode), true
}

// ParseExt parses name's extension on ctx's node with parser.
func ParseExt[T any](ctx *ParseContext, name string, parser Parser[T]) (T, error) {
	var zero T
	sub, ok := ctx.Ext(name)
	if !ok {
		return zero, missingField(ctx.nodeId, name)
	}
	return parser(sub)
}

// ParseExtOptional parses name's extension on ctx's node with parser,
// returning the zero value and ok=false if the extension is absent.
func ParseExtOptional[T any](ctx *ParseContext, name string, parser Parser[T]) (value T, ok bool, err error) {
	sub, present := ctx.Ext(name)
	if !present {
		var zero T
		return zero, false, nil
	}
	v, err := parser(sub)
	return v, err == nil, err
}

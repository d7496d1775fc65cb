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

import "eure.sh/eure/document"

// RecordParser parses a record (a map with string keys) field by field,
// tracking which fields were accessed so DenyUnknownFields can complain
// about ones that were not.
//
// # Flatten
//
// A RecordParser obtained from Flatten shares its parent's accessed-field
// set: field accesses are visible to the parent, and its own
// DenyUnknownFields is a no-op, since only the root validates.
type RecordParser struct {
	ctx *ParseContext
	m   *document.Map
}

func newRecordParser(ctx *ParseContext) (*RecordParser, error) {
	if ctx.flattenCtx != nil && ctx.flattenCtx.scope == ScopeExtension {
		return nil, &Error{NodeId: ctx.nodeId, Kind: RecordInExtensionScope}
	}
	switch v := ctx.Node().Content.(type) {
	case *document.Map:
		return &RecordParser{ctx: ctx, m: v}, nil
	case document.Hole:
		return nil, &Error{NodeId: ctx.nodeId, Kind: UnexpectedHole}
	default:
		return nil, typeMismatch(ctx.nodeId, "map", document.KindName(v))
	}
}

// NodeId returns the node this parser is reading fields from.
func (r *RecordParser) NodeId() document.NodeId { return r.ctx.nodeId }

func (r *RecordParser) markAccessed(name string) {
	r.accessedSet().add(name)
}

func (r *RecordParser) accessedSet() *accessedSet {
	if r.ctx.flattenCtx != nil {
		return r.ctx.flattenCtx.accessed
	}
	return r.ctx.accessed
}

// Context returns a sub-context over name's value without parsing it,
// for callers that need the NodeId or want to defer parsing.
func (r *RecordParser) Context(name string) (*ParseContext, error) {
	r.markAccessed(name)
	id, ok := r.m.Get(document.KeyString(name))
	if !ok {
		return nil, missingField(r.ctx.nodeId, name)
	}
	return withUnionTagMode(r.ctx.doc, id, r.ctx.unionTagMode), nil
}

// ContextOptional is the optional-field counterpart of Context.
func (r *RecordParser) ContextOptional(name string) (ctx *ParseContext, ok bool) {
	r.markAccessed(name)
	id, found := r.m.Get(document.KeyString(name))
	if !found {
		return nil, false
	}
	return withUnionTagMode(r.ctx.doc, id, r.ctx.unionTagMode), true
}

// FieldRecord opens a required field as a nested record.
func (r *RecordParser) FieldRecord(name string) (*RecordParser, error) {
	ctx, err := r.Context(name)
	if err != nil {
		return nil, err
	}
	return newRecordParser(ctx)
}

// FieldRecordOptional opens an optional field as a nested record.
func (r *RecordParser) FieldRecordOptional(name string) (*RecordParser, error) {
	ctx, ok := r.ContextOptional(name)
	if !ok {
		return nil, nil
	}
	return newRecordParser(ctx)
}

// Flatten returns a context for child parsers continuing this record in
// the same field namespace: their field accesses feed back into this
// parser's accessed set, and their own DenyUnknownFields is a no-op.
func (r *RecordParser) Flatten() *ParseContext {
	return r.ctx.flatten(ScopeRecord)
}

// UnknownField names a field DenyUnknownFields would reject together
// with a context over its value, for callers implementing their own
// unknown-field policy (e.g. a Schema policy that validates against
// open/closed declarations).
type UnknownField struct {
	Name string
	Ctx  *ParseContext
}

// InvalidKeyField names a non-string map key together with a context
// over its value.
type InvalidKeyField struct {
	Key document.ObjectKey
	Ctx *ParseContext
}

// DenyUnknownFields fails if the record has any field that was never
// accessed through Context/ContextOptional/Field, or any non-string key.
// In a flatten chain this is a no-op for every parser but the root.
func (r *RecordParser) DenyUnknownFields() error {
	if r.ctx.flattenCtx != nil && r.ctx.flattenCtx.scope == ScopeRecord {
		return nil
	}
	accessed := r.accessedSet()
	for _, e := range r.m.Entries() {
		switch k := e.Key.(type) {
		case document.KeyString:
			if !accessed.has(string(k)) {
				return unknownField(r.ctx.nodeId, string(k))
			}
		default:
			return invalidKeyType(r.ctx.nodeId, e.Key)
		}
	}
	return nil
}

// AllowUnknownFields fails only on non-string keys, leaving
// never-accessed string fields unreported.
func (r *RecordParser) AllowUnknownFields() error {
	for _, e := range r.m.Entries() {
		if _, ok := e.Key.(document.KeyString); !ok {
			return invalidKeyType(r.ctx.nodeId, e.Key)
		}
	}
	return nil
}

// UnknownFields returns the record's unaccessed string-keyed fields plus
// any non-string-keyed entries, reported separately.
func (r *RecordParser) UnknownFields() (fields []UnknownField, invalid []InvalidKeyField) {
	accessed := r.accessedSet()
	for _, e := range r.m.Entries() {
		ctx := withUnionTagMode(r.ctx.doc, e.Value, r.ctx.unionTagMode)
		switch k := e.Key.(type) {
		case document.KeyString:
			if !accessed.has(string(k)) {
				fields = append(fields, UnknownField{Name: string(k), Ctx: ctx})
			}
		default:
			invalid = append(invalid, InvalidKeyField{Key: e.Key, Ctx: ctx})
		}
	}
	return fields, invalid
}

// UnknownEntry names any map entry UnknownEntries reports: an
// unaccessed string key or any non-string key.
type UnknownEntry struct {
	Key document.ObjectKey
	Ctx *ParseContext
}

// UnknownEntries returns every entry UnknownFields would, merged into a
// single ObjectKey-addressed list. Useful for flatten-map validation,
// where both string and non-string keys must be checked against a map
// value schema.
func (r *RecordParser) UnknownEntries() []UnknownEntry {
	accessed := r.accessedSet()
	var out []UnknownEntry
	for _, e := range r.m.Entries() {
		if k, ok := e.Key.(document.KeyString); ok && accessed.has(string(k)) {
			continue
		}
		out = append(out, UnknownEntry{Key: e.Key, Ctx: withUnionTagMode(r.ctx.doc, e.Value, r.ctx.unionTagMode)})
	}
	return out
}

// Field parses a required field with parser.
func Field[T any](r *RecordParser, name string, parser Parser[T]) (T, error) {
	var zero T
	ctx, err := r.Context(name)
	if err != nil {
		return zero, err
	}
	return parser(ctx)
}

// FieldOptional parses an optional field with parser. ok is false if the
// field is absent, in which case value is the zero value and err is nil.
func FieldOptional[T any](r *RecordParser, name string, parser Parser[T]) (value T, ok bool, err error) {
	ctx, present := r.ContextOptional(name)
	if !present {
		var zero T
		return zero, false, nil
	}
	v, err := parser(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}
	return v, true, nil
}

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

// Package jsonschema converts a schema.SchemaDocument into a JSON Schema
// 2020-12 document, per spec §4.8's conversion table. Every concrete
// sub-schema produced is a *openapi3.Schema/SchemaRef — kin-openapi's
// well-tested JSON-Schema-shaped struct, reused here as a data container
// rather than for its OpenAPI-document purpose, so Convert never has to
// hand-roll its own struct-tag bookkeeping for `oneOf`, `properties`,
// `additionalProperties`, and the rest.
package jsonschema

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/getkin/kin-openapi/openapi3"

	"eure.sh/eure/document"
	"eure.sh/eure/errors"
	"eure.sh/eure/schema"
	"eure.sh/eure/token"
)

// Diagnostic kinds named after spec §4.8's conversion-error list.
const (
	KindBigIntOutOfRange            errors.Kind = "BigIntOutOfRange"
	KindInvalidFloatValue           errors.Kind = "InvalidFloatValue"
	KindTupleConstraintsNotSupported errors.Kind = "TupleConstraintsNotSupported"
	KindCircularReference           errors.Kind = "CircularReference"
	KindUnknownType                 errors.Kind = "UnknownType"
	KindHoleInSchema                errors.Kind = "HoleInSchema"
)

// jsonSchemaFormats is §4.8's closed list of `language` tags that become a
// JSON-Schema `format`; any other language tag is dropped rather than
// invented as a nonstandard format name.
var jsonSchemaFormats = map[string]bool{
	"date-time": true, "date": true, "time": true, "duration": true,
	"email": true, "hostname": true, "ipv4": true, "ipv6": true,
	"uri": true, "uri-reference": true, "uuid": true, "regex": true,
	"json-pointer": true, "relative-json-pointer": true,
}

// maxSafeInt is the largest magnitude integer float64 can represent without
// loss, used to decide when a BigInt bound is too large for a JSON-Schema
// `minimum`/`maximum` (itself a JSON number, i.e. effectively a float64).
const maxSafeInt = 1 << 53

// converter walks a SchemaDocument once per Convert call, building an
// openapi3.SchemaRef per visited SchemaNodeId and collecting named `$defs`
// on demand as References are encountered. It tolerates per-node failures:
// a failing node degrades to an always-matching schema ({}), and its error
// joins errs, so the rest of the document still converts.
type converter struct {
	sd   *schema.SchemaDocument
	defs map[string]*openapi3.SchemaRef
	building map[string]bool
	stack map[schema.SchemaNodeId]bool
	errs errors.List
}

// Convert renders sd as a JSON Schema 2020-12 document: `$schema`, the root
// schema's own keywords at the top level, and a `$defs` object holding
// every named type Convert needed to satisfy a Reference (lazily — a
// declared-but-unreferenced `$types` entry is not emitted).
func Convert(sd *schema.SchemaDocument) ([]byte, errors.List) {
	c := &converter{
		sd:       sd,
		defs:     make(map[string]*openapi3.SchemaRef),
		building: make(map[string]bool),
		stack:    make(map[schema.SchemaNodeId]bool),
	}
	root := c.convert(sd.Root())

	rootBytes, err := json.Marshal(root)
	if err != nil {
		c.errs.Add(errors.New(KindCircularReference, token.NoPos, nil, "marshaling root schema: %s", err))
		return nil, c.errs
	}
	var out map[string]interface{}
	if err := json.Unmarshal(rootBytes, &out); err != nil {
		out = map[string]interface{}{}
	}
	out["$schema"] = "https://json-schema.org/draft/2020-12/schema"
	if len(c.defs) > 0 {
		defsBytes, err := json.Marshal(c.defs)
		if err == nil {
			var defsOut map[string]interface{}
			if json.Unmarshal(defsBytes, &defsOut) == nil {
				out["$defs"] = defsOut
			}
		}
	}
	finalBytes, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		c.errs.Add(errors.New(KindCircularReference, token.NoPos, nil, "marshaling final document: %s", err))
		return nil, c.errs
	}
	return finalBytes, c.errs
}

func anySchema() *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("", &openapi3.Schema{})
}

func (c *converter) fail(kind errors.Kind, format string, args ...interface{}) *openapi3.SchemaRef {
	c.errs.Add(errors.New(kind, token.NoPos, nil, format, args...))
	return anySchema()
}

// convert dispatches on sn's content, per §4.8's conversion table.
func (c *converter) convert(id schema.SchemaNodeId) *openapi3.SchemaRef {
	if c.stack[id] {
		return c.fail(KindCircularReference, "schema node %d is part of a reference cycle", id)
	}
	c.stack[id] = true
	defer delete(c.stack, id)

	sn := c.sd.Node(id)
	switch content := sn.Content.(type) {
	case schema.Any:
		return anySchema()
	case schema.TextSchema:
		return c.convertText(content)
	case schema.IntSchema:
		return c.convertInt(content)
	case schema.FloatSchema:
		return c.convertFloat(content)
	case schema.BooleanSchema:
		return openapi3.NewSchemaRef("", openapi3.NewBoolSchema())
	case schema.NullSchema:
		s := openapi3.NewSchema()
		s.Type = "null"
		return openapi3.NewSchemaRef("", s)
	case schema.ArraySchema:
		return c.convertArray(content)
	case schema.MapSchema:
		return c.convertMap(content)
	case schema.RecordSchema:
		return c.convertRecord(content)
	case schema.TupleSchema:
		return c.fail(KindTupleConstraintsNotSupported, "tuple schemas cannot be converted to JSON Schema")
	case schema.UnionSchema:
		return c.convertUnion(content)
	case schema.ReferenceSchema:
		return c.convertReference(content)
	case schema.LiteralSchema:
		return c.convertLiteral(content)
	default:
		return c.fail(KindUnknownType, "unsupported schema content %T", content)
	}
}

func (c *converter) convertText(t schema.TextSchema) *openapi3.SchemaRef {
	s := openapi3.NewStringSchema()
	if t.HasLanguage && jsonSchemaFormats[t.Language] {
		s.Format = t.Language
	}
	if t.HasPattern {
		s.Pattern = t.Pattern
	}
	if t.MinLength != nil {
		s.MinLength = uint64(*t.MinLength)
	}
	if t.MaxLength != nil {
		maxLen := uint64(*t.MaxLength)
		s.MaxLength = &maxLen
	}
	return openapi3.NewSchemaRef("", s)
}

func (c *converter) convertInt(in schema.IntSchema) *openapi3.SchemaRef {
	s := openapi3.NewIntegerSchema()
	if in.Min != nil {
		f, ok := bigIntToFloat(in.Min)
		if !ok {
			return c.fail(KindBigIntOutOfRange, "minimum bound %s does not fit a JSON Schema number", in.Min)
		}
		s.Min = &f
		s.ExclusiveMin = in.MinExclusive
	}
	if in.Max != nil {
		f, ok := bigIntToFloat(in.Max)
		if !ok {
			return c.fail(KindBigIntOutOfRange, "maximum bound %s does not fit a JSON Schema number", in.Max)
		}
		s.Max = &f
		s.ExclusiveMax = in.MaxExclusive
	}
	if in.MultipleOf != nil {
		f, ok := bigIntToFloat(in.MultipleOf)
		if ok {
			s.MultipleOf = &f
		}
	}
	return openapi3.NewSchemaRef("", s)
}

func bigIntToFloat(v *big.Int) (float64, bool) {
	if !v.IsInt64() {
		return 0, false
	}
	i := v.Int64()
	if i > maxSafeInt || i < -maxSafeInt {
		return 0, false
	}
	return float64(i), true
}

func (c *converter) convertFloat(fl schema.FloatSchema) *openapi3.SchemaRef {
	s := openapi3.NewFloat64Schema()
	if fl.Min != nil {
		f, err := fl.Min.Float64()
		if err != nil {
			return c.fail(KindInvalidFloatValue, "minimum bound %s is not a finite number", fl.Min)
		}
		s.Min = &f
		s.ExclusiveMin = fl.MinExclusive
	}
	if fl.Max != nil {
		f, err := fl.Max.Float64()
		if err != nil {
			return c.fail(KindInvalidFloatValue, "maximum bound %s is not a finite number", fl.Max)
		}
		s.Max = &f
		s.ExclusiveMax = fl.MaxExclusive
	}
	return openapi3.NewSchemaRef("", s)
}

func (c *converter) convertArray(arr schema.ArraySchema) *openapi3.SchemaRef {
	s := openapi3.NewArraySchema()
	s.Items = c.convert(arr.Elem)
	if arr.MinItems != nil {
		s.MinItems = uint64(*arr.MinItems)
	}
	if arr.MaxItems != nil {
		maxItems := uint64(*arr.MaxItems)
		s.MaxItems = &maxItems
	}
	s.UniqueItems = arr.UniqueItems
	return openapi3.NewSchemaRef("", s)
}

func (c *converter) convertMap(m schema.MapSchema) *openapi3.SchemaRef {
	s := openapi3.NewObjectSchema()
	s.AdditionalProperties = openapi3.AdditionalProperties{Schema: c.convert(m.Value)}
	return openapi3.NewSchemaRef("", s)
}

func (c *converter) convertRecord(r schema.RecordSchema) *openapi3.SchemaRef {
	s := openapi3.NewObjectSchema()
	s.Properties = make(openapi3.Schemas, len(r.Order))
	for _, name := range r.Order {
		field := r.Fields[name]
		s.Properties[name] = c.convert(field.Schema)
		if !field.Optional {
			s.Required = append(s.Required, name)
		}
	}
	switch u := r.Unknown.(type) {
	case schema.PolicyDeny:
		allowed := false
		s.AdditionalProperties = openapi3.AdditionalProperties{Has: &allowed}
	case schema.PolicyAllow:
		allowed := true
		s.AdditionalProperties = openapi3.AdditionalProperties{Has: &allowed}
	case schema.PolicySchema:
		s.AdditionalProperties = openapi3.AdditionalProperties{Schema: c.convert(u.Node)}
	}
	return openapi3.NewSchemaRef("", s)
}

func singleKeyObject(key string, value *openapi3.SchemaRef) *openapi3.SchemaRef {
	s := openapi3.NewObjectSchema()
	s.Properties = openapi3.Schemas{key: value}
	s.Required = []string{key}
	allowed := false
	s.AdditionalProperties = openapi3.AdditionalProperties{Has: &allowed}
	return openapi3.NewSchemaRef("", s)
}

func constObject(key, tag string) *openapi3.SchemaRef {
	tagSchema := openapi3.NewStringSchema()
	tagSchema.Enum = []interface{}{tag}
	s := openapi3.NewObjectSchema()
	s.Properties = openapi3.Schemas{key: openapi3.NewSchemaRef("", tagSchema)}
	s.Required = []string{key}
	return openapi3.NewSchemaRef("", s)
}

func (c *converter) convertUnion(u schema.UnionSchema) *openapi3.SchemaRef {
	oneOf := make([]*openapi3.SchemaRef, 0, len(u.Order))
	for _, name := range u.Order {
		variant := c.convert(u.Variants[name])
		switch repr := u.Repr.(type) {
		case schema.ReprExternal:
			oneOf = append(oneOf, singleKeyObject(name, variant))
		case schema.ReprInternal:
			combined := openapi3.NewSchema()
			combined.AllOf = []*openapi3.SchemaRef{constObject(repr.Tag, name), variant}
			oneOf = append(oneOf, openapi3.NewSchemaRef("", combined))
		case schema.ReprAdjacent:
			tagSchema := openapi3.NewStringSchema()
			tagSchema.Enum = []interface{}{name}
			s := openapi3.NewObjectSchema()
			s.Properties = openapi3.Schemas{
				repr.Tag:     openapi3.NewSchemaRef("", tagSchema),
				repr.Content: variant,
			}
			s.Required = []string{repr.Tag, repr.Content}
			oneOf = append(oneOf, openapi3.NewSchemaRef("", s))
		default: // ReprUntagged
			oneOf = append(oneOf, variant)
		}
	}
	s := openapi3.NewSchema()
	s.OneOf = oneOf
	return openapi3.NewSchemaRef("", s)
}

// convertReference resolves a Reference to its `$types` entry, building
// (and memoizing in c.defs) its JSON Schema the first time it's needed, and
// returns a `$ref` pointer to it.
func (c *converter) convertReference(r schema.ReferenceSchema) *openapi3.SchemaRef {
	if _, ok := c.defs[r.Name]; !ok {
		target, ok := c.sd.Resolve(r.Name)
		if !ok {
			return c.fail(KindUnknownType, "reference to unknown type %q", r.Name)
		}
		if c.building[r.Name] {
			return c.fail(KindCircularReference, "type %q is part of a reference cycle", r.Name)
		}
		c.building[r.Name] = true
		c.defs[r.Name] = c.convert(target)
		delete(c.building, r.Name)
	}
	return openapi3.NewSchemaRef(fmt.Sprintf("#/$defs/%s", r.Name), nil)
}

// convertLiteral renders a LiteralSchema as a single-value `enum`, the
// widely supported JSON-Schema idiom for "matches exactly this value"
// (narrower `const` support varies across toolchains the spec targets).
func (c *converter) convertLiteral(lit schema.LiteralSchema) *openapi3.SchemaRef {
	if lit.Value == nil {
		return anySchema()
	}
	if hasHole(lit.Value, lit.Value.RootId()) {
		return c.fail(KindHoleInSchema, "literal schema value contains an unfilled hole")
	}
	val, err := toJSONValue(lit.Value, lit.Value.RootId())
	if err != nil {
		return c.fail(KindHoleInSchema, "%s", err)
	}
	s := openapi3.NewSchema()
	s.Enum = []interface{}{val}
	return openapi3.NewSchemaRef("", s)
}

func hasHole(doc *document.Document, id document.NodeId) bool {
	n := doc.Node(id)
	switch c := n.Content.(type) {
	case document.Hole:
		return true
	case *document.Map:
		for _, e := range c.Entries() {
			if hasHole(doc, e.Value) {
				return true
			}
		}
	case *document.Array:
		for _, id := range c.Elems() {
			if hasHole(doc, id) {
				return true
			}
		}
	case *document.Tuple:
		for _, id := range c.Elems() {
			if hasHole(doc, id) {
				return true
			}
		}
	}
	return false
}

// toJSONValue renders a document subtree as a plain Go value suitable for
// json.Marshal, for embedding in an `enum` literal.
func toJSONValue(doc *document.Document, id document.NodeId) (interface{}, error) {
	n := doc.Node(id)
	switch v := n.Content.(type) {
	case document.Null:
		return nil, nil
	case document.Bool:
		return bool(v), nil
	case document.Integer:
		return int64(v), nil
	case document.BigInt:
		return v.V.String(), nil
	case document.F32:
		return float32(v), nil
	case document.F64:
		f, err := v.V.Float64()
		if err != nil {
			return nil, fmt.Errorf("non-finite float in literal schema: %s", v.V)
		}
		return f, nil
	case document.Text:
		return v.Content, nil
	case document.PathRef:
		return nil, fmt.Errorf("path values cannot be embedded in a JSON Schema literal")
	case *document.Array:
		out := make([]interface{}, 0, v.Len())
		for _, elemId := range v.Elems() {
			ev, err := toJSONValue(doc, elemId)
			if err != nil {
				return nil, err
			}
			out = append(out, ev)
		}
		return out, nil
	case *document.Tuple:
		out := make([]interface{}, 0, v.Len())
		for _, elemId := range v.Elems() {
			ev, err := toJSONValue(doc, elemId)
			if err != nil {
				return nil, err
			}
			out = append(out, ev)
		}
		return out, nil
	case *document.Map:
		out := make(map[string]interface{}, v.Len())
		for _, e := range v.Entries() {
			ks, ok := e.Key.(document.KeyString)
			if !ok {
				return nil, fmt.Errorf("non-string map key cannot be embedded in a JSON Schema literal")
			}
			ev, err := toJSONValue(doc, e.Value)
			if err != nil {
				return nil, err
			}
			out[string(ks)] = ev
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported literal value content %T", v)
	}
}

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

// Package validate walks a document.Document against a schema.SchemaDocument
// and reports an ordered list of diagnostics, per spec §4.9. Union dispatch
// follows the same priority/ambiguity rules as eure/document/parse's
// UnionParser (§4.7.3), applied here over schema-described variants instead
// of typed Go decoding.
package validate

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"eure.sh/eure/document"
	"eure.sh/eure/errors"
	"eure.sh/eure/literal"
	"eure.sh/eure/schema"
	"eure.sh/eure/token"
)

// Diagnostic kinds, named after crates/eure-schema/src/value_validator.rs's
// ValidationErrorKind variants.
const (
	KindTypeMismatch      errors.Kind = "TypeMismatch"
	KindUnknownType       errors.Kind = "UnknownType"
	KindRequiredField     errors.Kind = "RequiredFieldMissing"
	KindUnexpectedField   errors.Kind = "UnexpectedField"
	KindStringLength      errors.Kind = "StringLengthViolation"
	KindStringPattern     errors.Kind = "StringPatternViolation"
	KindNumberRange       errors.Kind = "NumberRangeViolation"
	KindArrayLength       errors.Kind = "ArrayLengthViolation"
	KindArrayUnique       errors.Kind = "ArrayUniqueViolation"
	KindMissingVariantTag errors.Kind = "MissingVariantTag"
	KindUnknownVariant    errors.Kind = "UnknownVariant"
	KindAmbiguousUnion    errors.Kind = "AmbiguousUnion"
	KindHoleExists        errors.Kind = "HoleExists"
	KindPreferSection     errors.Kind = "PreferSection"
	KindPreferArraySyntax errors.Kind = "PreferArraySyntax"
)

// Diagnostic is one validation finding: the underlying errors.Error (kind,
// position, path) plus the severity spec §4.9 requires alongside it.
type Diagnostic struct {
	Err      errors.Error
	Severity errors.Severity
}

// validator threads the two documents and the path-so-far through a single
// recursive walk, accumulating diagnostics rather than stopping at the
// first one (tolerant validation, matching the parser's own philosophy).
type validator struct {
	doc  *document.Document
	sd   *schema.SchemaDocument
	diag []Diagnostic
}

// Validate walks doc's root against sd's root and returns every diagnostic
// found, in traversal order.
func Validate(doc *document.Document, sd *schema.SchemaDocument) []Diagnostic {
	v := &validator{doc: doc, sd: sd}
	v.validateNode(doc.RootId(), sd.Root(), nil)
	return v.diag
}

func (v *validator) errorf(path []string, kind errors.Kind, format string, args ...interface{}) {
	v.diag = append(v.diag, Diagnostic{Err: errors.New(kind, token.NoPos, path, format, args...), Severity: errors.Error_})
}

func (v *validator) warnf(path []string, kind errors.Kind, format string, args ...interface{}) {
	v.diag = append(v.diag, Diagnostic{Err: errors.New(kind, token.NoPos, path, format, args...), Severity: errors.Warning})
}

// validateNode dispatches on the schema content at schemaId against the
// document content at nodeId. A Hole is always reported regardless of the
// expected type, per §4.9.
func (v *validator) validateNode(nodeId document.NodeId, schemaId schema.SchemaNodeId, path []string) {
	n := v.doc.Node(nodeId)
	if _, isHole := n.Content.(document.Hole); isHole {
		v.errorf(path, KindHoleExists, "hole exists")
		return
	}

	sn := v.sd.Node(schemaId)
	switch c := sn.Content.(type) {
	case schema.Any:
		return
	case schema.TextSchema:
		v.validateText(n, c, path)
	case schema.IntSchema:
		v.validateInt(n, c, path)
	case schema.FloatSchema:
		v.validateFloat(n, c, path)
	case schema.BooleanSchema:
		if _, ok := n.Content.(document.Bool); !ok {
			v.mismatch(path, "boolean", n)
		}
	case schema.NullSchema:
		if _, ok := n.Content.(document.Null); !ok {
			v.mismatch(path, "null", n)
		}
	case schema.ArraySchema:
		v.validateArray(n, c, path)
	case schema.MapSchema:
		v.validateMap(n, c, path)
	case schema.RecordSchema:
		v.validateRecord(n, c, path)
	case schema.TupleSchema:
		v.validateTuple(n, c, path)
	case schema.UnionSchema:
		v.validateUnion(nodeId, c, path)
	case schema.ReferenceSchema:
		target, ok := v.sd.Resolve(c.Name)
		if !ok {
			v.errorf(path, KindUnknownType, "unknown type %q", c.Name)
			return
		}
		v.validateNode(nodeId, target, path)
	case schema.LiteralSchema:
		if c.Value != nil && !document.NodesEqual(c.Value, c.Value.RootId(), v.doc, nodeId) {
			v.errorf(path, KindTypeMismatch, "value does not match literal schema")
		}
	default:
		v.errorf(path, KindTypeMismatch, "unsupported schema content %T", c)
	}
}

func (v *validator) mismatch(path []string, expected string, n *document.Node) {
	v.errorf(path, KindTypeMismatch, "type mismatch: expected %s, but got %s", expected, valueTypeName(n.Content))
}

func valueTypeName(val document.NodeValue) string {
	switch val.(type) {
	case document.Null:
		return "null"
	case document.Bool:
		return "boolean"
	case document.Integer, document.BigInt:
		return "integer"
	case document.F32, document.F64:
		return "float"
	case document.Text:
		return "text"
	case document.PathRef:
		return "path"
	case *document.Array:
		return "array"
	case *document.Tuple:
		return "tuple"
	case *document.Map:
		return "map"
	case document.Hole:
		return "hole"
	default:
		return fmt.Sprintf("%T", val)
	}
}

func (v *validator) validateText(n *document.Node, ts schema.TextSchema, path []string) {
	t, ok := n.Content.(document.Text)
	if !ok {
		v.mismatch(path, "text", n)
		return
	}
	if ts.HasPattern {
		re, err := regexp.Compile(ts.Pattern)
		if err != nil {
			v.errorf(path, KindStringPattern, "invalid pattern %q: %s", ts.Pattern, err)
			return
		}
		if !re.MatchString(t.Content) {
			v.errorf(path, KindStringPattern, "value %q does not match pattern %q", t.Content, ts.Pattern)
		}
	}
	length := len([]rune(t.Content))
	if ts.MinLength != nil && length < *ts.MinLength {
		v.errorf(path, KindStringLength, "string length %d below minimum %d", length, *ts.MinLength)
	}
	if ts.MaxLength != nil && length > *ts.MaxLength {
		v.errorf(path, KindStringLength, "string length %d above maximum %d", length, *ts.MaxLength)
	}
}

func (v *validator) validateInt(n *document.Node, is schema.IntSchema, path []string) {
	var val *big.Int
	switch c := n.Content.(type) {
	case document.Integer:
		val = big.NewInt(int64(c))
	case document.BigInt:
		val = c.V
	default:
		v.mismatch(path, "integer", n)
		return
	}
	if is.Min != nil {
		cmp := val.Cmp(is.Min)
		if cmp < 0 || (is.MinExclusive && cmp == 0) {
			v.errorf(path, KindNumberRange, "value %s below minimum %s", val, is.Min)
		}
	}
	if is.Max != nil {
		cmp := val.Cmp(is.Max)
		if cmp > 0 || (is.MaxExclusive && cmp == 0) {
			v.errorf(path, KindNumberRange, "value %s above maximum %s", val, is.Max)
		}
	}
}

func (v *validator) validateFloat(n *document.Node, fs schema.FloatSchema, path []string) {
	var val *apd.Decimal
	switch c := n.Content.(type) {
	case document.F64:
		val = c.V
	case document.F32:
		d, _, err := apd.NewFromString(strconv.FormatFloat(float64(c), 'g', -1, 32))
		if err != nil {
			v.mismatch(path, "float", n)
			return
		}
		val = d
	case document.Integer:
		d, _, err := apd.NewFromString(strconv.FormatInt(int64(c), 10))
		if err != nil {
			v.mismatch(path, "float", n)
			return
		}
		val = d
	default:
		v.mismatch(path, "float", n)
		return
	}
	if fs.Min != nil {
		cmp, err := val.Cmp(fs.Min)
		if err == nil && (cmp < 0 || (fs.MinExclusive && cmp == 0)) {
			v.errorf(path, KindNumberRange, "value %s below minimum %s", val, fs.Min)
		}
	}
	if fs.Max != nil {
		cmp, err := val.Cmp(fs.Max)
		if err == nil && (cmp > 0 || (fs.MaxExclusive && cmp == 0)) {
			v.errorf(path, KindNumberRange, "value %s above maximum %s", val, fs.Max)
		}
	}
}

func (v *validator) validateArray(n *document.Node, as schema.ArraySchema, path []string) {
	arr := n.AsArray()
	if arr == nil {
		v.mismatch(path, "array", n)
		return
	}
	length := arr.Len()
	if as.MinItems != nil && length < *as.MinItems {
		v.errorf(path, KindArrayLength, "array length %d below minimum %d", length, *as.MinItems)
	}
	if as.MaxItems != nil && length > *as.MaxItems {
		v.errorf(path, KindArrayLength, "array length %d above maximum %d", length, *as.MaxItems)
	}
	if as.UniqueItems {
		v.checkUnique(arr.Elems(), path)
	}
	for i, elemId := range arr.Elems() {
		v.validateNode(elemId, as.Elem, append(append([]string{}, path...), strconv.Itoa(i)))
	}
}

func (v *validator) checkUnique(elems []document.NodeId, path []string) {
	seen := make([]document.NodeId, 0, len(elems))
	for _, id := range elems {
		for _, s := range seen {
			if document.NodesEqual(v.doc, s, v.doc, id) {
				v.errorf(path, KindArrayUnique, "duplicate array element")
				break
			}
		}
		seen = append(seen, id)
	}
}

func (v *validator) validateMap(n *document.Node, ms schema.MapSchema, path []string) {
	m := n.AsMap()
	if m == nil {
		v.mismatch(path, "map", n)
		return
	}
	for _, e := range m.Entries() {
		keyName := keyToString(e.Key)
		v.validateNode(e.Value, ms.Value, append(append([]string{}, path...), keyName))
	}
}

func (v *validator) validateTuple(n *document.Node, ts schema.TupleSchema, path []string) {
	tup := n.AsTuple()
	if tup == nil {
		v.mismatch(path, "tuple", n)
		return
	}
	for i, elemSchema := range ts.Elems {
		elemId, ok := tup.Get(uint8(i))
		if !ok {
			v.errorf(path, KindTypeMismatch, "tuple missing element %d", i)
			continue
		}
		v.validateNode(elemId, elemSchema, append(append([]string{}, path...), strconv.Itoa(i)))
	}
}

func (v *validator) validateRecord(n *document.Node, rs schema.RecordSchema, path []string) {
	m := n.AsMap()
	if m == nil {
		v.mismatch(path, "record", n)
		return
	}
	seen := make(map[string]bool, len(rs.Fields))
	for _, e := range m.Entries() {
		name, ok := e.Key.(document.KeyString)
		if !ok {
			continue
		}
		seen[string(name)] = true
		fieldPath := append(append([]string{}, path...), string(name))
		field, ok := rs.Fields[string(name)]
		if !ok {
			switch u := rs.Unknown.(type) {
			case schema.PolicyAllow:
				// tolerated
			case schema.PolicySchema:
				v.validateNode(e.Value, u.Node, fieldPath)
			default:
				v.errorf(path, KindUnexpectedField, "unexpected field %q", name)
			}
			continue
		}
		v.validateNode(e.Value, field.Schema, fieldPath)
		v.checkFieldPreference(v.doc.Node(e.Value), field, path, string(name))
	}
	for _, name := range rs.Order {
		if seen[name] {
			continue
		}
		if !rs.Fields[name].Optional {
			v.errorf(path, KindRequiredField, "missing required field %q", name)
		}
	}
}

// checkFieldPreference emits a Warning-severity diagnostic when a
// $prefer.section/$prefer.array directive names a binding style this
// document's Document layer cannot itself distinguish (the arena only
// records the final container shape, not whether source wrote a section
// header or an inline map). As a best effort, a record-shaped field is
// checked against $prefer.section and an array-shaped field against
// $prefer.array; anything the arena can't tell apart is left unflagged.
func (v *validator) checkFieldPreference(fieldNode *document.Node, field schema.RecordFieldSchema, parentPath []string, name string) {
	sn := v.sd.Node(field.Schema)
	switch field.BindingStyle {
	case "section":
		if _, ok := fieldNode.Content.(*document.Map); sn.Metadata.HasPreferSection && sn.Metadata.PreferSection && !ok {
			v.warnf(append(append([]string{}, parentPath...), name), KindPreferSection, "field %q should use section syntax", name)
		}
	case "array":
		if _, ok := fieldNode.Content.(*document.Array); sn.Metadata.HasPreferArray && sn.Metadata.PreferArray && !ok {
			v.warnf(append(append([]string{}, parentPath...), name), KindPreferArraySyntax, "field %q should use array syntax", name)
		}
	}
}

// validateUnion implements oneOf dispatch matching
// eure/document/parse.UnionParser's priority/ambiguity algorithm: a
// `$variant` extension selects a variant directly and skips
// priority/ambiguity resolution; otherwise variants named in us.Priority
// are tried in order and the first clean match short-circuits; otherwise
// every remaining variant is tried and a unique clean match wins.
func (v *validator) validateUnion(nodeId document.NodeId, us schema.UnionSchema, path []string) {
	n := v.doc.Node(nodeId)

	if variantId, ok := n.GetExtension(literal.MustIdentifier("variant")); ok {
		if vt, ok := v.doc.Node(variantId).Content.(document.Text); ok {
			variantName := strings.SplitN(vt.Content, ".", 2)[0]
			schemaId, ok := us.Variants[variantName]
			if !ok {
				v.errorf(path, KindUnknownVariant, "unknown variant %q", variantName)
				return
			}
			v.validateNode(nodeId, schemaId, path)
			return
		}
	}
	if _, isInternalOrAdjacent := us.Repr.(schema.ReprInternal); isInternalOrAdjacent {
		v.errorf(path, KindMissingVariantTag, "union requires a $variant tag")
		return
	}
	if _, isAdjacent := us.Repr.(schema.ReprAdjacent); isAdjacent {
		v.errorf(path, KindMissingVariantTag, "union requires a $variant tag")
		return
	}

	priority := make(map[string]bool, len(us.Priority))
	for _, name := range us.Priority {
		priority[name] = true
	}

	for _, name := range us.Priority {
		schemaId, ok := us.Variants[name]
		if !ok {
			continue
		}
		probe := &validator{doc: v.doc, sd: v.sd}
		probe.validateNode(nodeId, schemaId, path)
		if len(probe.diag) == 0 {
			return
		}
	}

	var matched []string
	var firstErr []Diagnostic
	for _, name := range us.Order {
		if priority[name] {
			continue
		}
		schemaId := us.Variants[name]
		probe := &validator{doc: v.doc, sd: v.sd}
		probe.validateNode(nodeId, schemaId, path)
		if len(probe.diag) == 0 {
			matched = append(matched, name)
		} else if firstErr == nil {
			firstErr = probe.diag
		}
	}
	switch len(matched) {
	case 1:
		schemaId := us.Variants[matched[0]]
		v.validateNode(nodeId, schemaId, path)
	case 0:
		if firstErr != nil {
			v.diag = append(v.diag, firstErr...)
			return
		}
		v.errorf(path, KindUnknownVariant, "no matching variant")
	default:
		v.errorf(path, KindAmbiguousUnion, "ambiguous union: %s all match", strings.Join(matched, ", "))
	}
}

func keyToString(key document.ObjectKey) string {
	switch k := key.(type) {
	case document.KeyString:
		return string(k)
	case document.KeyBool:
		return strconv.FormatBool(bool(k))
	case document.KeyNumber:
		if k.V != nil {
			return k.V.String()
		}
		return "?"
	default:
		return fmt.Sprintf("%v", k)
	}
}

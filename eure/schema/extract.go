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

package schema

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"eure.sh/eure/document"
	"eure.sh/eure/errors"
	"eure.sh/eure/literal"
	"eure.sh/eure/token"
)

// Directive names recognized on a document Node's Extensions map, per
// spec §4.8.
const (
	dirType      = "type"
	dirTypes     = "types"
	dirOptional  = "optional"
	dirArray     = "array"
	dirUnion     = "union"
	dirVariants  = "variants"
	dirLength    = "length"
	dirRange     = "range"
	dirPattern   = "pattern"
	dirRename    = "rename"
	dirRenameAll = "rename-all"
	dirPrefer    = "prefer"
	dirSerde     = "serde"
)

// builder accumulates a SchemaDocument while walking a value document for
// directives. It is grounded on crates/eure-schema/src/value_schema.rs's
// SchemaBuilder, adapted from that file's flat KeyCmpValue::Extension
// matching to this Go document package's Node.Extensions map, and from its
// nested-struct FieldSchema/Type model to the arena-based SchemaNodeId
// model spec §3.3 calls for.
type builder struct {
	doc  *SchemaDocument
	errs errors.List
}

// ExtractSchema walks src looking for the schema directives listed in
// §4.8 and returns the SchemaDocument they describe. A document containing
// no directives at all still produces a valid schema (a map root becomes a
// Record, with Any wherever no directive narrows a value) — directive
// absence is not itself an error.
func ExtractSchema(src *document.Document) (*SchemaDocument, errors.List) {
	b := &builder{doc: NewSchemaDocument()}
	root := src.Root()

	if m := root.AsMap(); m != nil {
		b.extractTypesNamespace(src, root)
		rootId := b.buildRecordFromMap(src, m, true)
		b.doc.Node(rootId).Metadata = b.metadataOf(src, root)
		b.doc.SetRoot(rootId)
	} else {
		id, err := b.buildValueSchema(src, root)
		if err != nil {
			b.errs.Add(err)
		} else {
			b.doc.SetRoot(id)
		}
	}

	return b.doc, b.errs
}

// extractTypesNamespace pre-registers every `$types.<Name>` definition so
// forward references (a field using a type before its definition appears
// later in source) resolve.
func (b *builder) extractTypesNamespace(src *document.Document, root *document.Node) {
	typesId, ok := root.GetExtension(literal.MustIdentifier(dirTypes))
	if !ok {
		return
	}
	typesMap := src.Node(typesId).AsMap()
	if typesMap == nil {
		return
	}
	for _, e := range typesMap.Entries() {
		name, ok := e.Key.(document.KeyString)
		if !ok {
			continue
		}
		childNode := src.Node(e.Value)
		id, err := b.buildValueSchema(src, childNode)
		if err != nil {
			b.errs.Add(err)
			continue
		}
		b.doc.Types[string(name)] = id
	}
}

// buildRecordFromMap builds a RecordSchema from every string-keyed field
// of m, skipping the reserved `$types` namespace (already consumed by
// extractTypesNamespace) when atRoot, since it's metadata rather than a
// data field.
func (b *builder) buildRecordFromMap(src *document.Document, m *document.Map, atRoot bool) SchemaNodeId {
	rec := RecordSchema{Fields: make(map[string]RecordFieldSchema), Unknown: PolicyDeny{}}
	for _, e := range m.Entries() {
		name, ok := e.Key.(document.KeyString)
		if !ok {
			continue
		}
		if atRoot && (string(name) == dirTypes) {
			continue
		}
		child := src.Node(e.Value)
		fieldId, err := b.buildValueSchema(src, child)
		if err != nil {
			b.errs.Add(err)
			continue
		}
		fieldMeta := b.doc.Node(fieldId).Metadata
		field := RecordFieldSchema{Schema: fieldId}
		if opt, ok := child.GetExtension(literal.MustIdentifier(dirOptional)); ok {
			if bv, ok := src.Node(opt).Content.(document.Bool); ok {
				field.Optional = bool(bv)
			}
		}
		switch {
		case fieldMeta.HasPreferSection && fieldMeta.PreferSection:
			field.BindingStyle = "section"
		case fieldMeta.HasPreferArray && fieldMeta.PreferArray:
			field.BindingStyle = "array"
		}
		rec.Fields[string(name)] = field
		rec.Order = append(rec.Order, string(name))
	}
	return b.doc.addNode(SchemaNode{Content: rec, Metadata: b.metadataOf(src, nil)})
}

// buildValueSchema extracts the schema directives attached to n's
// Extensions (and, absent any, n's own Map/Path shape) into one
// SchemaNode.
func (b *builder) buildValueSchema(src *document.Document, n *document.Node) (SchemaNodeId, error) {
	meta := b.metadataOf(src, n)

	if typeId, ok := n.GetExtension(literal.MustIdentifier(dirType)); ok {
		content, err := b.typeFromValue(src, src.Node(typeId))
		if err != nil {
			return 0, err
		}
		return b.finishDirectiveNode(src, n, content, meta)
	}
	if arrId, ok := n.GetExtension(literal.MustIdentifier(dirArray)); ok {
		elemContent, err := b.typeFromValue(src, src.Node(arrId))
		if err != nil {
			return 0, err
		}
		elem := b.doc.addNode(SchemaNode{Content: elemContent})
		arr := ArraySchema{Elem: elem}
		b.applyLength(src, n, &arr)
		return b.finishDirectiveNode(src, n, arr, meta)
	}
	if unionId, ok := n.GetExtension(literal.MustIdentifier(dirUnion)); ok {
		content, err := b.unionFromArray(src, src.Node(unionId))
		if err != nil {
			return 0, err
		}
		return b.finishDirectiveNode(src, n, content, meta)
	}
	if varId, ok := n.GetExtension(literal.MustIdentifier(dirVariants)); ok {
		content, err := b.variantsFromMap(src, src.Node(varId))
		if err != nil {
			return 0, err
		}
		return b.finishDirectiveNode(src, n, content, meta)
	}

	// No explicit $type/$array/$union/$variants directive on n itself:
	// infer shape from the node's own content.
	switch {
	case n.AsMap() != nil:
		id := b.buildRecordFromMap(src, n.AsMap(), false)
		b.doc.Node(id).Metadata = meta
		return id, nil
	default:
		if path, ok := n.Content.(document.PathRef); ok {
			content, err := b.typeFromPath(document.Path(path.Segments))
			if err != nil {
				return 0, err
			}
			return b.finishDirectiveNode(src, n, content, meta)
		}
		return b.doc.addNode(SchemaNode{Content: Any{}, Metadata: meta}), nil
	}
}

// finishDirectiveNode applies the shared constraint directives ($length,
// $range, $pattern) on top of an already-determined content shape, then
// allocates the node.
func (b *builder) finishDirectiveNode(src *document.Document, n *document.Node, content SchemaNodeContent, meta Metadata) (SchemaNodeId, error) {
	switch c := content.(type) {
	case ArraySchema:
		b.applyLength(src, n, &c)
		content = c
	case IntSchema:
		b.applyRange(src, n, &c)
		content = c
	case FloatSchema:
		b.applyFloatRange(src, n, &c)
		content = c
	case TextSchema:
		b.applyPattern(src, n, &c)
		b.applyTextLength(src, n, &c)
		content = c
	}
	return b.doc.addNode(SchemaNode{Content: content, Metadata: meta}), nil
}

func (b *builder) applyPattern(src *document.Document, n *document.Node, text *TextSchema) {
	patId, ok := n.GetExtension(literal.MustIdentifier(dirPattern))
	if !ok {
		return
	}
	if t, ok := src.Node(patId).Content.(document.Text); ok {
		text.Pattern, text.HasPattern = t.Content, true
	}
}

func (b *builder) applyTextLength(src *document.Document, n *document.Node, text *TextSchema) {
	lenId, ok := n.GetExtension(literal.MustIdentifier(dirLength))
	if !ok {
		return
	}
	lenArr := src.Node(lenId).AsArray()
	if lenArr == nil || lenArr.Len() != 2 {
		return
	}
	if v, ok := asInt(src, lenArr.Elems()[0]); ok {
		text.MinLength = &v
	}
	if v, ok := asInt(src, lenArr.Elems()[1]); ok {
		text.MaxLength = &v
	}
}

func (b *builder) applyLength(src *document.Document, n *document.Node, arr *ArraySchema) {
	lenId, ok := n.GetExtension(literal.MustIdentifier(dirLength))
	if !ok {
		return
	}
	lenArr := src.Node(lenId).AsArray()
	if lenArr == nil || lenArr.Len() != 2 {
		return
	}
	if v, ok := asInt(src, lenArr.Elems()[0]); ok {
		arr.MinItems = &v
	}
	if v, ok := asInt(src, lenArr.Elems()[1]); ok {
		arr.MaxItems = &v
	}
}

func (b *builder) applyRange(src *document.Document, n *document.Node, in *IntSchema) {
	rngId, ok := n.GetExtension(literal.MustIdentifier(dirRange))
	if !ok {
		return
	}
	rngArr := src.Node(rngId).AsArray()
	if rngArr == nil || rngArr.Len() != 2 {
		return
	}
	if v, ok := asBigInt(src, rngArr.Elems()[0]); ok {
		in.Min = v
	}
	if v, ok := asBigInt(src, rngArr.Elems()[1]); ok {
		in.Max = v
	}
}

func (b *builder) applyFloatRange(src *document.Document, n *document.Node, fl *FloatSchema) {
	rngId, ok := n.GetExtension(literal.MustIdentifier(dirRange))
	if !ok {
		return
	}
	rngArr := src.Node(rngId).AsArray()
	if rngArr == nil || rngArr.Len() != 2 {
		return
	}
	if v, ok := asDecimal(src, rngArr.Elems()[0]); ok {
		fl.Min = v
	}
	if v, ok := asDecimal(src, rngArr.Elems()[1]); ok {
		fl.Max = v
	}
}

func asInt(src *document.Document, id document.NodeId) (int, bool) {
	switch v := src.Node(id).Content.(type) {
	case document.Integer:
		return int(v), true
	case document.BigInt:
		return int(v.V.Int64()), true
	}
	return 0, false
}

func asBigInt(src *document.Document, id document.NodeId) (*big.Int, bool) {
	switch v := src.Node(id).Content.(type) {
	case document.Integer:
		return big.NewInt(int64(v)), true
	case document.BigInt:
		return v.V, true
	}
	return nil, false
}

func asDecimal(src *document.Document, id document.NodeId) (*apd.Decimal, bool) {
	switch v := src.Node(id).Content.(type) {
	case document.Integer:
		d, _, err := apd.NewFromString(strconv.FormatInt(int64(v), 10))
		return d, err == nil
	case document.F64:
		return v.V, true
	}
	return nil, false
}

// typeFromValue reads a `$type`/`$array` directive's value: a bare path
// (`.string`, `.types.Name`) naming the target type.
func (b *builder) typeFromValue(src *document.Document, n *document.Node) (SchemaNodeContent, error) {
	path, ok := n.Content.(document.PathRef)
	if !ok {
		return nil, errors.New("InvalidField", token.NoPos, nil, "$type/$array value must be a path")
	}
	return b.typeFromPath(document.Path(path.Segments))
}

// typeFromPath maps a dotted path to a builtin primitive SchemaNodeContent
// or, failing that, a Reference to a `$types`-declared name. `.types.Name`
// and a bare `.Name` both resolve to Reference{Name}; anything else falls
// back to Reference with the full dotted spelling, deferring the
// no-such-type failure to validation/JSON-Schema conversion time rather
// than extraction time, matching the original's permissive path handling.
func (b *builder) typeFromPath(path document.Path) (SchemaNodeContent, error) {
	names := make([]string, 0, len(path))
	for _, seg := range path {
		if id, ok := seg.(document.SegIdent); ok {
			names = append(names, id.Name.String())
		}
	}
	if len(names) == 0 {
		return nil, errors.New("InvalidTypePath", token.NoPos, nil, "empty type path")
	}
	if len(names) >= 2 && names[0] == dirTypes {
		return ReferenceSchema{Name: strings.Join(names[1:], ".")}, nil
	}
	if len(names) == 1 {
		switch names[0] {
		case "string", "text":
			return TextSchema{}, nil
		case "integer", "int":
			return IntSchema{}, nil
		case "float", "number":
			return FloatSchema{}, nil
		case "boolean", "bool":
			return BooleanSchema{}, nil
		case "null":
			return NullSchema{}, nil
		case "any":
			return Any{}, nil
		}
	}
	return ReferenceSchema{Name: strings.Join(names, ".")}, nil
}

// unionFromArray builds an untagged UnionSchema from a `$union` array of
// type paths (external/internal/adjacent tagging is only available via
// `$variant` on instance data, not expressible as a bare union of types).
func (b *builder) unionFromArray(src *document.Document, n *document.Node) (SchemaNodeContent, error) {
	arr := n.AsArray()
	if arr == nil {
		return nil, errors.New("InvalidVariant", token.NoPos, nil, "$union value must be an array")
	}
	u := UnionSchema{Variants: make(map[string]SchemaNodeId), Repr: ReprUntagged{}}
	for i, elemId := range arr.Elems() {
		elem := src.Node(elemId)
		content, err := b.typeFromValue(src, elem)
		if err != nil {
			return nil, err
		}
		name := strconv.Itoa(i)
		id := b.doc.addNode(SchemaNode{Content: content})
		u.Variants[name] = id
		u.Order = append(u.Order, name)
	}
	return u, nil
}

// variantsFromMap builds an externally-tagged UnionSchema from a
// `$variants` map of variant-name → object-schema.
func (b *builder) variantsFromMap(src *document.Document, n *document.Node) (SchemaNodeContent, error) {
	m := n.AsMap()
	if m == nil {
		return nil, errors.New("InvalidVariant", token.NoPos, nil, "$variants value must be a map")
	}
	u := UnionSchema{Variants: make(map[string]SchemaNodeId), Repr: ReprExternal{}}
	for _, e := range m.Entries() {
		name, ok := e.Key.(document.KeyString)
		if !ok {
			continue
		}
		variantNode := src.Node(e.Value)
		var id SchemaNodeId
		if vm := variantNode.AsMap(); vm != nil {
			id = b.buildRecordFromMap(src, vm, false)
		} else {
			fid, err := b.buildValueSchema(src, variantNode)
			if err != nil {
				return nil, err
			}
			id = fid
		}
		u.Variants[string(name)] = id
		u.Order = append(u.Order, string(name))
	}
	return u, nil
}

// metadataOf reads $rename, $serde.rename-all, and $prefer.* off n's
// extensions (n may be nil for the synthetic document root).
func (b *builder) metadataOf(src *document.Document, n *document.Node) Metadata {
	var meta Metadata
	if n == nil {
		return meta
	}
	if rn, ok := n.GetExtension(literal.MustIdentifier(dirRename)); ok {
		if t, ok := src.Node(rn).Content.(document.Text); ok {
			meta.Rename = t.Content
		}
	}
	if sd, ok := n.GetExtension(literal.MustIdentifier(dirSerde)); ok {
		if sdMap := src.Node(sd).AsMap(); sdMap != nil {
			if rn, ok := sdMap.Get(document.KeyString("rename")); ok {
				if t, ok := src.Node(rn).Content.(document.Text); ok {
					meta.Rename = t.Content
				}
			}
			if ra, ok := sdMap.Get(document.KeyString("rename-all")); ok {
				if t, ok := src.Node(ra).Content.(document.Text); ok {
					meta.RenameAll = parseRenameRule(t.Content)
				}
			}
		}
	}
	if pr, ok := n.GetExtension(literal.MustIdentifier(dirPrefer)); ok {
		if prMap := src.Node(pr).AsMap(); prMap != nil {
			if v, ok := prMap.Get(document.KeyString("section")); ok {
				if bv, ok := src.Node(v).Content.(document.Bool); ok {
					meta.HasPreferSection, meta.PreferSection = true, bool(bv)
				}
			}
			if v, ok := prMap.Get(document.KeyString("array")); ok {
				if bv, ok := src.Node(v).Content.(document.Bool); ok {
					meta.HasPreferArray, meta.PreferArray = true, bool(bv)
				}
			}
		}
	}
	return meta
}

func parseRenameRule(s string) RenameRule {
	switch s {
	case "camelCase":
		return RenameCamelCase
	case "snake_case":
		return RenameSnakeCase
	case "kebab-case":
		return RenameKebabCase
	case "PascalCase":
		return RenamePascalCase
	case "UPPERCASE":
		return RenameUppercase
	case "lowercase":
		return RenameLowercase
	default:
		return RenameNone
	}
}

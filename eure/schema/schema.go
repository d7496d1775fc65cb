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

// Package schema implements the schema layer's data model: a separate
// SchemaDocument arena addressed by SchemaNodeId, typed SchemaNodeContent
// variants (Text/Integer/Float/Array/Map/Record/Tuple/Union/Reference/
// Literal), and the directive-extraction pass that builds one from an
// ordinary document.Document.
package schema

import (
	"math/big"

	"github.com/cockroachdb/apd/v3"

	"eure.sh/eure/document"
)

// SchemaNodeId is an arena index into a SchemaDocument.
type SchemaNodeId int

// SchemaDocument is the arena described in spec §3.3: a flat vector of
// SchemaNodes, a designated root, and a name table for `$types`-declared
// references.
type SchemaDocument struct {
	nodes []SchemaNode
	root  SchemaNodeId
	Types map[string]SchemaNodeId
}

// SchemaNode pairs a node's typed content with the metadata directives
// (`$rename`, `$rename-all`, `$serde.*`, `$prefer.*`, a description) that
// apply at that position.
type SchemaNode struct {
	Content  SchemaNodeContent
	Metadata Metadata
}

// RenameRule is one of serde's field-casing conventions, read from
// `$serde.rename-all`.
type RenameRule int

const (
	RenameNone RenameRule = iota
	RenameCamelCase
	RenameSnakeCase
	RenameKebabCase
	RenamePascalCase
	RenameUppercase
	RenameLowercase
)

// Metadata carries the schema directives that don't themselves change a
// node's shape, only how it's presented or validated around the edges.
type Metadata struct {
	Description string

	Rename    string
	RenameAll RenameRule

	HasPreferSection bool
	PreferSection    bool
	HasPreferArray   bool
	PreferArray      bool
}

// NewSchemaDocument returns an empty SchemaDocument whose root is an Any
// node, ready for a builder (see extract.go) to populate.
func NewSchemaDocument() *SchemaDocument {
	d := &SchemaDocument{Types: make(map[string]SchemaNodeId)}
	d.root = d.addNode(SchemaNode{Content: Any{}})
	return d
}

// Node returns the SchemaNode at id.
func (d *SchemaDocument) Node(id SchemaNodeId) *SchemaNode { return &d.nodes[id] }

// Root returns the SchemaNodeId of the document's root node.
func (d *SchemaDocument) Root() SchemaNodeId { return d.root }

// SetRoot designates id as the document's root node.
func (d *SchemaDocument) SetRoot(id SchemaNodeId) { d.root = id }

// NumNodes reports the number of nodes in the arena.
func (d *SchemaDocument) NumNodes() int { return len(d.nodes) }

// Resolve follows a Reference node to the type it names, returning the
// referenced SchemaNodeId and true, or false if the name isn't registered.
func (d *SchemaDocument) Resolve(name string) (SchemaNodeId, bool) {
	id, ok := d.Types[name]
	return id, ok
}

func (d *SchemaDocument) addNode(n SchemaNode) SchemaNodeId {
	id := SchemaNodeId(len(d.nodes))
	d.nodes = append(d.nodes, n)
	return id
}

// SchemaNodeContent is the sum type held by a SchemaNode: spec §3.3's
// `Any | Text | Integer | Float | Boolean | Null | Array | Map | Record |
// Tuple | Union | Reference | Literal`.
type SchemaNodeContent interface {
	schemaNodeContent()
}

// Any matches any value; it's also the default content of a freshly
// created node before a directive narrows it.
type Any struct{}

func (Any) schemaNodeContent() {}

// TextSchema constrains a Text value, optionally to a JSON-Schema `format`
// name carried as its language tag (see §4.8's format-name list), a regex
// pattern, and/or a length range.
type TextSchema struct {
	Language    string
	HasLanguage bool
	Pattern     string
	HasPattern  bool
	MinLength   *int
	MaxLength   *int
}

func (TextSchema) schemaNodeContent() {}

// IntSchema constrains an Integer/BigInt value's bounds and step.
type IntSchema struct {
	Min, Max     *big.Int
	MinExclusive bool
	MaxExclusive bool
	MultipleOf   *big.Int
}

func (IntSchema) schemaNodeContent() {}

// FloatSchema constrains an F32/F64 value's bounds, in exact decimal
// arithmetic (apd) rather than float64, matching how document.F64 itself
// avoids lossy rounding.
type FloatSchema struct {
	Min, Max     *apd.Decimal
	MinExclusive bool
	MaxExclusive bool
}

func (FloatSchema) schemaNodeContent() {}

// BooleanSchema matches a Bool value. It carries no constraints.
type BooleanSchema struct{}

func (BooleanSchema) schemaNodeContent() {}

// NullSchema matches the Null value.
type NullSchema struct{}

func (NullSchema) schemaNodeContent() {}

// ArraySchema constrains an Array value: element type plus length/
// uniqueness bounds from `$length`.
type ArraySchema struct {
	Elem        SchemaNodeId
	MinItems    *int
	MaxItems    *int
	UniqueItems bool
}

func (ArraySchema) schemaNodeContent() {}

// MapSchema constrains a Map value whose keys are not fixed record field
// names — every value must match Value.
type MapSchema struct {
	Value SchemaNodeId
}

func (MapSchema) schemaNodeContent() {}

// RecordFieldSchema is one field of a RecordSchema: its type, whether it
// may be absent, and the binding-style hint surfaced by `$prefer.section`/
// `$prefer.array` (empty when the field has no preference).
type RecordFieldSchema struct {
	Schema       SchemaNodeId
	Optional     bool
	BindingStyle string
}

// UnknownFieldsPolicy governs what a RecordSchema does with a record field
// not named in Fields: Deny, Allow, or validate against a Schema.
type UnknownFieldsPolicy interface {
	unknownFieldsPolicy()
}

type PolicyDeny struct{}

func (PolicyDeny) unknownFieldsPolicy() {}

type PolicyAllow struct{}

func (PolicyAllow) unknownFieldsPolicy() {}

type PolicySchema struct {
	Node SchemaNodeId
}

func (PolicySchema) unknownFieldsPolicy() {}

// RecordSchema constrains a Map value with fixed field names. Order
// preserves declaration order for stable JSON-Schema `properties` output.
type RecordSchema struct {
	Fields  map[string]RecordFieldSchema
	Order   []string
	Unknown UnknownFieldsPolicy
}

func (RecordSchema) schemaNodeContent() {}

// TupleSchema constrains a Tuple value's fixed-position elements.
type TupleSchema struct {
	Elems []SchemaNodeId
}

func (TupleSchema) schemaNodeContent() {}

// UnionRepr is how a tagged union is laid out in the document/JSON-Schema,
// per spec §4.8's four representations.
type UnionRepr interface {
	unionRepr()
}

// ReprExternal wraps the variant's value under a single-key object named
// after the variant.
type ReprExternal struct{}

func (ReprExternal) unionRepr() {}

// ReprInternal stores the variant tag inside the variant's own object
// under Tag.
type ReprInternal struct {
	Tag string
}

func (ReprInternal) unionRepr() {}

// ReprAdjacent stores the tag and the variant's value as sibling fields
// Tag/Content.
type ReprAdjacent struct {
	Tag     string
	Content string
}

func (ReprAdjacent) unionRepr() {}

// ReprUntagged tries each variant in turn with no tag field at all.
type ReprUntagged struct{}

func (ReprUntagged) unionRepr() {}

// UnionSchema is a closed set of named variants plus the representation
// used to distinguish them and the priority order oneOf dispatch tries
// first (see §4.7.3 and §4.9).
type UnionSchema struct {
	Variants map[string]SchemaNodeId
	Order    []string
	Repr     UnionRepr
	Priority []string
}

func (UnionSchema) schemaNodeContent() {}

// ReferenceSchema is an unresolved link to a `$types`-declared name,
// resolved via SchemaDocument.Resolve.
type ReferenceSchema struct {
	Name string
}

func (ReferenceSchema) schemaNodeContent() {}

// LiteralSchema matches only a single exact document value (used for
// const-like schema directives); structural equality from the document
// package decides a match.
type LiteralSchema struct {
	Value *document.Document
}

func (LiteralSchema) schemaNodeContent() {}

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

package parse_test

import (
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/go-quicktest/qt"

	"eure.sh/eure/document"
	"eure.sh/eure/document/parse"
	"eure.sh/eure/literal"
)

func ident(t *testing.T, s string) literal.Identifier {
	t.Helper()
	id, err := literal.ParseIdentifier(s)
	qt.Assert(t, qt.IsNil(err))
	return id
}

func mustDecimal(t *testing.T, s string) *apd.Decimal {
	t.Helper()
	d, _, err := apd.NewFromString(s)
	qt.Assert(t, qt.IsNil(err))
	return d
}

func createTestDoc(t *testing.T) *document.Document {
	doc := document.New()
	root := doc.RootId()

	nameId, err := doc.AddMapChild(root, document.KeyString("name"), nil)
	qt.Assert(t, qt.IsNil(err))
	doc.Node(nameId).Content = document.Text{Content: "Alice"}

	ageId, err := doc.AddMapChild(root, document.KeyString("age"), nil)
	qt.Assert(t, qt.IsNil(err))
	doc.Node(ageId).Content = document.Integer(30)

	return doc
}

func TestRecordField(t *testing.T) {
	doc := createTestDoc(t)
	ctx := parse.NewContext(doc, doc.RootId())
	rec, err := ctx.ParseRecord()
	qt.Assert(t, qt.IsNil(err))

	name, err := parse.Field(rec, "name", parse.ParseText)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(name, "Alice"))
}

func TestRecordFieldMissing(t *testing.T) {
	doc := createTestDoc(t)
	ctx := parse.NewContext(doc, doc.RootId())
	rec, err := ctx.ParseRecord()
	qt.Assert(t, qt.IsNil(err))

	_, err = parse.Field(rec, "nonexistent", parse.ParseText)
	qt.Assert(t, qt.IsNotNil(err))
	perr := err.(*parse.Error)
	qt.Assert(t, qt.Equals(perr.Kind, parse.MissingField))
}

func TestRecordFieldOptional(t *testing.T) {
	doc := createTestDoc(t)
	ctx := parse.NewContext(doc, doc.RootId())
	rec, err := ctx.ParseRecord()
	qt.Assert(t, qt.IsNil(err))

	name, ok, err := parse.FieldOptional(rec, "name", parse.ParseText)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(name, "Alice"))

	_, ok, err = parse.FieldOptional(rec, "nonexistent", parse.ParseText)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsFalse(ok))
}

func TestRecordDenyUnknownFields(t *testing.T) {
	doc := createTestDoc(t)
	ctx := parse.NewContext(doc, doc.RootId())
	rec, err := ctx.ParseRecord()
	qt.Assert(t, qt.IsNil(err))

	_, err = parse.Field(rec, "name", parse.ParseText)
	qt.Assert(t, qt.IsNil(err))

	err = rec.DenyUnknownFields()
	qt.Assert(t, qt.IsNotNil(err))
	perr := err.(*parse.Error)
	qt.Assert(t, qt.Equals(perr.Kind, parse.UnknownField))
}

func TestRecordDenyUnknownFieldsAllAccessed(t *testing.T) {
	doc := createTestDoc(t)
	ctx := parse.NewContext(doc, doc.RootId())
	rec, err := ctx.ParseRecord()
	qt.Assert(t, qt.IsNil(err))

	_, err = parse.Field(rec, "name", parse.ParseText)
	qt.Assert(t, qt.IsNil(err))
	_, err = parse.Field(rec, "age", parse.ParseInt64)
	qt.Assert(t, qt.IsNil(err))

	qt.Assert(t, qt.IsNil(rec.DenyUnknownFields()))
}

func TestRecordAllowUnknownFields(t *testing.T) {
	doc := createTestDoc(t)
	ctx := parse.NewContext(doc, doc.RootId())
	rec, err := ctx.ParseRecord()
	qt.Assert(t, qt.IsNil(err))

	_, err = parse.Field(rec, "name", parse.ParseText)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsNil(rec.AllowUnknownFields()))
}

func TestRecordUnknownFields(t *testing.T) {
	doc := createTestDoc(t)
	ctx := parse.NewContext(doc, doc.RootId())
	rec, err := ctx.ParseRecord()
	qt.Assert(t, qt.IsNil(err))

	_, err = parse.Field(rec, "name", parse.ParseText)
	qt.Assert(t, qt.IsNil(err))

	unknown, invalid := rec.UnknownFields()
	qt.Assert(t, qt.HasLen(unknown, 1))
	qt.Assert(t, qt.HasLen(invalid, 0))
	qt.Assert(t, qt.Equals(unknown[0].Name, "age"))
}

func TestRecordNonStringKeyDenyErrors(t *testing.T) {
	doc := document.New()
	root := doc.RootId()
	keyId, err := doc.AddMapChild(root, document.KeyNumber{V: mustDecimal(t, "0")}, nil)
	qt.Assert(t, qt.IsNil(err))
	doc.Node(keyId).Content = document.Text{Content: "value"}

	ctx := parse.NewContext(doc, root)
	rec, err := ctx.ParseRecord()
	qt.Assert(t, qt.IsNil(err))

	err = rec.DenyUnknownFields()
	qt.Assert(t, qt.IsNotNil(err))
	perr := err.(*parse.Error)
	qt.Assert(t, qt.Equals(perr.Kind, parse.InvalidKeyType))
}

func TestRecordNonStringKeyUnknownEntries(t *testing.T) {
	doc := document.New()
	root := doc.RootId()
	keyId, err := doc.AddMapChild(root, document.KeyNumber{V: mustDecimal(t, "42")}, nil)
	qt.Assert(t, qt.IsNil(err))
	doc.Node(keyId).Content = document.Text{Content: "test"}

	ctx := parse.NewContext(doc, root)
	rec, err := ctx.ParseRecord()
	qt.Assert(t, qt.IsNil(err))

	entries := rec.UnknownEntries()
	qt.Assert(t, qt.HasLen(entries, 1))
	_, ok := entries[0].Key.(document.KeyNumber)
	qt.Assert(t, qt.IsTrue(ok))

	value, err := parse.Parse(entries[0].Ctx, parse.ParseText)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(value, "test"))
}

func TestParseExt(t *testing.T) {
	doc := document.New()
	root := doc.RootId()
	extId, err := doc.AddExtension(root, ident(t, "optional"), nil)
	qt.Assert(t, qt.IsNil(err))
	doc.Node(extId).Content = document.Bool(true)

	ctx := parse.NewContext(doc, root)
	optional, err := parse.ParseExt(ctx, "optional", parse.ParseBool)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(optional))
}

func TestParseExtOptionalMissing(t *testing.T) {
	doc := document.New()
	ctx := parse.NewContext(doc, doc.RootId())
	_, ok, err := parse.ParseExtOptional(ctx, "optional", parse.ParseBool)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsFalse(ok))
}

type threeLevelFlatten struct {
	a, b, c, d, e int64
}

func parseThreeLevelFlatten(ctx *parse.ParseContext) (threeLevelFlatten, error) {
	rec1, err := ctx.ParseRecord()
	if err != nil {
		return threeLevelFlatten{}, err
	}
	a, err := parse.Field(rec1, "a", parse.ParseInt64)
	if err != nil {
		return threeLevelFlatten{}, err
	}
	ctx2 := rec1.Flatten()

	rec2, err := ctx2.ParseRecord()
	if err != nil {
		return threeLevelFlatten{}, err
	}
	b, err := parse.Field(rec2, "b", parse.ParseInt64)
	if err != nil {
		return threeLevelFlatten{}, err
	}
	c, err := parse.Field(rec2, "c", parse.ParseInt64)
	if err != nil {
		return threeLevelFlatten{}, err
	}
	ctx3 := rec2.Flatten()

	rec3, err := ctx3.ParseRecord()
	if err != nil {
		return threeLevelFlatten{}, err
	}
	d, err := parse.Field(rec3, "d", parse.ParseInt64)
	if err != nil {
		return threeLevelFlatten{}, err
	}
	e, err := parse.Field(rec3, "e", parse.ParseInt64)
	if err != nil {
		return threeLevelFlatten{}, err
	}
	if err := rec3.DenyUnknownFields(); err != nil {
		return threeLevelFlatten{}, err
	}
	if err := rec2.DenyUnknownFields(); err != nil {
		return threeLevelFlatten{}, err
	}
	if err := rec1.DenyUnknownFields(); err != nil {
		return threeLevelFlatten{}, err
	}
	return threeLevelFlatten{a, b, c, d, e}, nil
}

func docWithFields(t *testing.T, fields map[string]int64, order []string) *document.Document {
	doc := document.New()
	root := doc.RootId()
	for _, name := range order {
		id, err := doc.AddMapChild(root, document.KeyString(name), nil)
		qt.Assert(t, qt.IsNil(err))
		doc.Node(id).Content = document.Integer(fields[name])
	}
	return doc
}

func TestNestedFlattenPreservesConsumedFields(t *testing.T) {
	doc := docWithFields(t, map[string]int64{"a": 1, "b": 2, "c": 3, "d": 4, "e": 5}, []string{"a", "b", "c", "d", "e"})
	ctx := parse.NewContext(doc, doc.RootId())
	result, err := parseThreeLevelFlatten(ctx)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(result, threeLevelFlatten{1, 2, 3, 4, 5}))
}

func TestNestedFlattenCatchesUnaccessedField(t *testing.T) {
	doc := docWithFields(t, map[string]int64{"a": 1, "b": 2, "c": 3, "d": 4, "e": 5, "f": 6}, []string{"a", "b", "c", "d", "e", "f"})
	ctx := parse.NewContext(doc, doc.RootId())
	_, err := parseThreeLevelFlatten(ctx)
	qt.Assert(t, qt.IsNotNil(err))
	perr := err.(*parse.Error)
	qt.Assert(t, qt.Equals(perr.Kind, parse.UnknownField))
	qt.Assert(t, qt.Equals(perr.Field, "f"))
}

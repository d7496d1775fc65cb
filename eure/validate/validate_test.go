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

package validate_test

import (
	"testing"

	"github.com/go-quicktest/qt"

	"eure.sh/eure/document"
	"eure.sh/eure/errors"
	"eure.sh/eure/parser"
	"eure.sh/eure/schema"
	"eure.sh/eure/validate"
	"eure.sh/eure/valuevisitor"
)

func mustSchema(t *testing.T, src string) *schema.SchemaDocument {
	t.Helper()
	tree, _, perrs := parser.ParseFile("schema.eure", []byte(src))
	if len(perrs) != 0 {
		t.Fatalf("unexpected parse errors for %q: %v", src, perrs)
	}
	doc, _, verrs := valuevisitor.BuildDocument(tree, src)
	if len(verrs) != 0 {
		t.Fatalf("unexpected visitor errors for %q: %v", src, verrs)
	}
	sd, serrs := schema.ExtractSchema(doc)
	if len(serrs) != 0 {
		t.Fatalf("unexpected schema errors for %q: %v", src, serrs)
	}
	return sd
}

func mustDoc(t *testing.T, src string) *document.Document {
	t.Helper()
	tree, _, perrs := parser.ParseFile("data.eure", []byte(src))
	if len(perrs) != 0 {
		t.Fatalf("unexpected parse errors for %q: %v", src, perrs)
	}
	doc, _, verrs := valuevisitor.BuildDocument(tree, src)
	if len(verrs) != 0 {
		t.Fatalf("unexpected visitor errors for %q: %v", src, verrs)
	}
	return doc
}

func runValidate(t *testing.T, schemaSrc, dataSrc string) []validate.Diagnostic {
	t.Helper()
	sd := mustSchema(t, schemaSrc)
	doc := mustDoc(t, dataSrc)
	return validate.Validate(doc, sd)
}

func kindOf(t *testing.T, d validate.Diagnostic) errors.Kind {
	t.Helper()
	k, ok := errors.KindOf(d.Err)
	if !ok {
		t.Fatalf("diagnostic %v has no Kind", d.Err)
	}
	return k
}

func TestValidateSimpleFieldOk(t *testing.T) {
	diags := runValidate(t,
		"name.$type = .string\nage.$type = .integer",
		"name = \"Ann\"\nage = 30")
	qt.Assert(t, qt.HasLen(diags, 0))
}

func TestValidateTypeMismatch(t *testing.T) {
	diags := runValidate(t,
		"age.$type = .integer",
		"age = \"thirty\"")
	qt.Assert(t, qt.HasLen(diags, 1))
	qt.Assert(t, qt.Equals(kindOf(t, diags[0]), validate.KindTypeMismatch))
}

func TestValidateMissingRequiredField(t *testing.T) {
	diags := runValidate(t,
		"name.$type = .string\nage.$type = .integer",
		"name = \"Ann\"")
	qt.Assert(t, qt.HasLen(diags, 1))
	qt.Assert(t, qt.Equals(kindOf(t, diags[0]), validate.KindRequiredField))
}

func TestValidateOptionalFieldMayBeAbsent(t *testing.T) {
	diags := runValidate(t,
		"name.$type = .string\nnickname.$type = .string\nnickname.$optional = true",
		"name = \"Ann\"")
	qt.Assert(t, qt.HasLen(diags, 0))
}

func TestValidateUnexpectedField(t *testing.T) {
	diags := runValidate(t,
		"name.$type = .string",
		"name = \"Ann\"\nextra = 1")
	qt.Assert(t, qt.HasLen(diags, 1))
	qt.Assert(t, qt.Equals(kindOf(t, diags[0]), validate.KindUnexpectedField))
}

func TestValidateStringLength(t *testing.T) {
	diags := runValidate(t,
		"code.$type = .string\ncode.$length = [2, 4]",
		"code = \"toolong\"")
	qt.Assert(t, qt.HasLen(diags, 1))
	qt.Assert(t, qt.Equals(kindOf(t, diags[0]), validate.KindStringLength))
}

func TestValidateNumberRange(t *testing.T) {
	diags := runValidate(t,
		"age.$type = .integer\nage.$range = [0, 120]",
		"age = 200")
	qt.Assert(t, qt.HasLen(diags, 1))
	qt.Assert(t, qt.Equals(kindOf(t, diags[0]), validate.KindNumberRange))
}

func TestValidateArrayLength(t *testing.T) {
	diags := runValidate(t,
		"tags.$array = .string\ntags.$length = [1, 2]",
		"tags = [\"a\", \"b\", \"c\"]")
	qt.Assert(t, qt.HasLen(diags, 1))
	qt.Assert(t, qt.Equals(kindOf(t, diags[0]), validate.KindArrayLength))
}

func TestValidateHoleAlwaysFails(t *testing.T) {
	diags := runValidate(t,
		"name.$type = .string",
		"name = !")
	qt.Assert(t, qt.HasLen(diags, 1))
	qt.Assert(t, qt.Equals(kindOf(t, diags[0]), validate.KindHoleExists))
}

func TestValidateVariantsDispatch(t *testing.T) {
	diags := runValidate(t,
		"@ shape.$variants.circle {\n  radius.$type = .float\n}\n@ shape.$variants.square {\n  side.$type = .float\n}",
		"@ shape {\n  $variant = \"circle\"\n  radius = 1.5\n}")
	qt.Assert(t, qt.HasLen(diags, 0))
}

func TestValidateUnknownVariant(t *testing.T) {
	diags := runValidate(t,
		"@ shape.$variants.circle {\n  radius.$type = .float\n}",
		"@ shape {\n  $variant = \"triangle\"\n  radius = 1.5\n}")
	qt.Assert(t, qt.HasLen(diags, 1))
	qt.Assert(t, qt.Equals(kindOf(t, diags[0]), validate.KindUnknownVariant))
}

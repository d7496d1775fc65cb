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

package valuevisitor_test

import (
	"testing"

	"github.com/go-quicktest/qt"

	"eure.sh/eure/document"
	"eure.sh/eure/literal"
	"eure.sh/eure/parser"
	"eure.sh/eure/valuevisitor"
)

func mustBuild(t *testing.T, src string) *document.Document {
	t.Helper()
	tree, _, perrs := parser.ParseFile("test.eure", []byte(src))
	if len(perrs) != 0 {
		t.Fatalf("unexpected parse errors for %q: %v", src, perrs)
	}
	doc, _, verrs := valuevisitor.BuildDocument(tree, src)
	if len(verrs) != 0 {
		t.Fatalf("unexpected visitor errors for %q: %v", src, verrs)
	}
	return doc
}

func TestBuildSimpleBinding(t *testing.T) {
	doc := mustBuild(t, "foo = 1")
	root := doc.Root()
	m := root.AsMap()
	qt.Assert(t, qt.IsNotNil(m))
	id, ok := m.Get(document.KeyString("foo"))
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(doc.Node(id).Content, document.NodeValue(document.Integer(1))))
}

func TestBuildNestedSection(t *testing.T) {
	doc := mustBuild(t, "@ a.b {\n  c = 1\n  d = 2\n}")
	root := doc.Root()
	aId, ok := root.AsMap().Get(document.KeyString("a"))
	qt.Assert(t, qt.IsTrue(ok))
	bId, ok := doc.Node(aId).AsMap().Get(document.KeyString("b"))
	qt.Assert(t, qt.IsTrue(ok))
	bMap := doc.Node(bId).AsMap()
	qt.Assert(t, qt.IsNotNil(bMap))
	qt.Assert(t, qt.Equals(bMap.Len(), 2))
}

func TestBuildArrayOfSections(t *testing.T) {
	doc := mustBuild(t, "@ employees[] {\n  name = \"a\"\n}\n@ employees[] {\n  name = \"b\"\n}")
	root := doc.Root()
	empId, ok := root.AsMap().Get(document.KeyString("employees"))
	qt.Assert(t, qt.IsTrue(ok))
	arr := doc.Node(empId).AsArray()
	qt.Assert(t, qt.IsNotNil(arr))
	qt.Assert(t, qt.Equals(arr.Len(), 2))

	e0, ok := arr.Get(0)
	qt.Assert(t, qt.IsTrue(ok))
	nameId, ok := doc.Node(e0).AsMap().Get(document.KeyString("name"))
	qt.Assert(t, qt.IsTrue(ok))
	name, ok := doc.Node(nameId).Content.(document.Text)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(name.Content, "a"))
}

func TestBuildInlineArrayAndObject(t *testing.T) {
	doc := mustBuild(t, "a = [1, 2, 3]\nb = { x: 1, y: 2 }")
	root := doc.Root()

	aId, ok := root.AsMap().Get(document.KeyString("a"))
	qt.Assert(t, qt.IsTrue(ok))
	arr := doc.Node(aId).AsArray()
	qt.Assert(t, qt.IsNotNil(arr))
	qt.Assert(t, qt.Equals(arr.Len(), 3))

	bId, ok := root.AsMap().Get(document.KeyString("b"))
	qt.Assert(t, qt.IsTrue(ok))
	objMap := doc.Node(bId).AsMap()
	qt.Assert(t, qt.IsNotNil(objMap))
	qt.Assert(t, qt.Equals(objMap.Len(), 2))
}

func TestBuildEmptyContainers(t *testing.T) {
	doc := mustBuild(t, "a = []\nb = {}\nc = ()")
	root := doc.Root()

	aId, _ := root.AsMap().Get(document.KeyString("a"))
	qt.Assert(t, qt.Equals(doc.Node(aId).AsArray().Len(), 0))

	bId, _ := root.AsMap().Get(document.KeyString("b"))
	qt.Assert(t, qt.Equals(doc.Node(bId).AsMap().Len(), 0))

	cId, _ := root.AsMap().Get(document.KeyString("c"))
	qt.Assert(t, qt.Equals(doc.Node(cId).AsTuple().Len(), 0))
}

func TestBuildHoleAndPath(t *testing.T) {
	doc := mustBuild(t, "a = !\nb = !todo\nc = .x.y")
	root := doc.Root()

	aId, _ := root.AsMap().Get(document.KeyString("a"))
	qt.Assert(t, qt.Equals(doc.Node(aId).Content, document.NodeValue(document.Hole{})))

	bId, _ := root.AsMap().Get(document.KeyString("b"))
	qt.Assert(t, qt.Equals(doc.Node(bId).Content, document.NodeValue(document.Hole{Label: "todo"})))

	cId, _ := root.AsMap().Get(document.KeyString("c"))
	pathVal, ok := doc.Node(cId).Content.(document.PathRef)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.HasLen(pathVal.Segments, 2))
}

func TestBuildCodeLiterals(t *testing.T) {
	doc := mustBuild(t, "a = `x + y`\nb = go`fmt.Println(1)`")
	root := doc.Root()

	aId, _ := root.AsMap().Get(document.KeyString("a"))
	aText, ok := doc.Node(aId).Content.(document.Text)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(aText.Content, "x + y"))
	qt.Assert(t, qt.Equals(aText.Kind, document.TextCodeInline))

	bId, _ := root.AsMap().Get(document.KeyString("b"))
	bText, ok := doc.Node(bId).Content.(document.Text)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(bText.Content, "fmt.Println(1)"))
	qt.Assert(t, qt.Equals(bText.Lang, "go"))
}

func TestBuildExtensionSegment(t *testing.T) {
	doc := mustBuild(t, "foo.$variant = \"ok\"")
	root := doc.Root()
	fooId, ok := root.AsMap().Get(document.KeyString("foo"))
	qt.Assert(t, qt.IsTrue(ok))
	extId, ok := doc.Node(fooId).GetExtension(literal.MustIdentifier("variant"))
	qt.Assert(t, qt.IsTrue(ok))
	text, ok := doc.Node(extId).Content.(document.Text)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(text.Content, "ok"))
}

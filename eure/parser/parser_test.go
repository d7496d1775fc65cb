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

package parser_test

import (
	"testing"

	"github.com/go-quicktest/qt"

	"eure.sh/eure/cst"
	"eure.sh/eure/parser"
)

func mustDocument(t *testing.T, src string) (*cst.Tree, cst.NodeId) {
	t.Helper()
	tree, root, errs := parser.ParseFile("test.eure", []byte(src))
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors for %q: %v", src, errs)
	}
	rootHandle, err := cst.NewNonTerminalHandle(tree, root, cst.NonTerminalRoot)
	qt.Assert(t, qt.IsNil(err))
	children := tree.Children(rootHandle.Id)
	qt.Assert(t, qt.HasLen(children, 1))
	return tree, children[0]
}

func TestParseSimpleBinding(t *testing.T) {
	tree, docId := mustDocument(t, "foo = 1")
	docHandle, err := cst.NewNonTerminalHandle(tree, docId, cst.NonTerminalDocument)
	qt.Assert(t, qt.IsNil(err))
	var dv cst.DocumentView
	qt.Assert(t, qt.IsNil(dv.FromHandle(tree, "foo = 1", docHandle)))
	qt.Assert(t, qt.HasLen(dv.Items, 1))

	bindingData, ok := tree.NodeData(dv.Items[0])
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(bindingData.NonTerminal, cst.NonTerminalBinding))
}

func TestParseSectionWithBody(t *testing.T) {
	src := "@ a.b {\n  c = 1\n}"
	tree, docId := mustDocument(t, src)
	docHandle, err := cst.NewNonTerminalHandle(tree, docId, cst.NonTerminalDocument)
	qt.Assert(t, qt.IsNil(err))
	var dv cst.DocumentView
	qt.Assert(t, qt.IsNil(dv.FromHandle(tree, src, docHandle)))
	qt.Assert(t, qt.HasLen(dv.Items, 1))

	sectionData, ok := tree.NodeData(dv.Items[0])
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(sectionData.NonTerminal, cst.NonTerminalSection))
}

func TestParseArrayAndObject(t *testing.T) {
	_, docId := mustDocument(t, "a = [1, 2, 3]\nb = { x: 1, y: 2 }")
	if docId == 0 {
		t.Fatalf("expected a document node")
	}
}

func TestParseHoleAndPath(t *testing.T) {
	_, docId := mustDocument(t, "a = !\nb = !todo\nc = .x.y")
	if docId == 0 {
		t.Fatalf("expected a document node")
	}
}

func TestParseCodeLiterals(t *testing.T) {
	src := "a = `x + y`\nb = go`fmt.Println(1)`"
	_, docId := mustDocument(t, src)
	if docId == 0 {
		t.Fatalf("expected a document node")
	}
}

func TestParseShapeErrorRecovers(t *testing.T) {
	tree, root, errs := parser.ParseFile("test.eure", []byte("foo ? 1\nbar = 2"))
	qt.Assert(t, qt.IsTrue(len(errs) > 0))
	rootHandle, err := cst.NewNonTerminalHandle(tree, root, cst.NonTerminalRoot)
	qt.Assert(t, qt.IsNil(err))
	children := tree.Children(rootHandle.Id)
	qt.Assert(t, qt.HasLen(children, 1))
}

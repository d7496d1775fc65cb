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

package query_test

import (
	"testing"

	"github.com/go-quicktest/qt"

	"eure.sh/eure/query"
)

func textFile(uri, src string) query.TextFile {
	return query.TextFile{URI: uri, Version: 1, Content: []byte(src)}
}

func TestParseCstMemoizes(t *testing.T) {
	e := query.NewEngine()
	f := textFile("a.eure", "x = 1")

	tree1, errs, err := query.ParseCst(e, "", f)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(errs, 0))
	qt.Assert(t, qt.IsNotNil(tree1))

	tree2, _, err := query.ParseCst(e, "", f)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(tree1, tree2))
}

func TestParseCstRepeatsOnNewVersion(t *testing.T) {
	e := query.NewEngine()
	f1 := query.TextFile{URI: "a.eure", Version: 1, Content: []byte("x = 1")}
	f2 := query.TextFile{URI: "a.eure", Version: 2, Content: []byte("x = 2")}

	tree1, _, err := query.ParseCst(e, "", f1)
	qt.Assert(t, qt.IsNil(err))
	tree2, _, err := query.ParseCst(e, "", f2)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Not(qt.Equals(tree1, tree2)))
}

func TestParseDocumentBuildsFromCst(t *testing.T) {
	e := query.NewEngine()
	f := textFile("a.eure", "x = 1\ny = \"hi\"")

	doc, errs, err := query.ParseDocument(e, "", f)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(errs, 0))
	qt.Assert(t, qt.IsNotNil(doc))
}

func TestGetSemanticTokensInSourceOrder(t *testing.T) {
	e := query.NewEngine()
	f := textFile("a.eure", "x = 1")

	toks, errs, err := query.GetSemanticTokens(e, "", f)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(errs, 0))
	qt.Assert(t, qt.IsTrue(len(toks) >= 2))
	for i := 1; i < len(toks); i++ {
		prev, cur := toks[i-1], toks[i]
		qt.Assert(t, qt.IsTrue(cur.Line > prev.Line || (cur.Line == prev.Line && cur.StartChar >= prev.StartChar)))
	}
}

func TestGetFileDiagnosticsWithoutSchema(t *testing.T) {
	e := query.NewEngine()
	f := textFile("a.eure", "x = 1")

	diags, errs, err := query.GetFileDiagnostics(e, "", f, "")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(errs, 0))
	qt.Assert(t, qt.HasLen(diags, 0))
}

func TestGetFileDiagnosticsSuspendsOnMissingSchema(t *testing.T) {
	e := query.NewEngine()
	f := textFile("a.eure", "age = 30")

	_, _, err := query.GetFileDiagnostics(e, "", f, "schema.eure")
	qt.Assert(t, qt.IsNotNil(err))
	suspended, ok := err.(*query.Suspended)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(suspended.Pending, "schema.eure"))
}

func TestGetFileDiagnosticsResumesAfterResolve(t *testing.T) {
	e := query.NewEngine()
	data := textFile("a.eure", "age = \"thirty\"")
	schemaFile := textFile("schema.eure", "age.$type = .integer")

	_, _, err := query.GetFileDiagnostics(e, "", data, "schema.eure")
	qt.Assert(t, qt.IsNotNil(err))

	e.ResolveAsset(schemaFile)

	diags, errs, err := query.GetFileDiagnostics(e, "", data, "schema.eure")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(errs, 0))
	qt.Assert(t, qt.HasLen(diags, 1))
}

func TestCancelStopsQuery(t *testing.T) {
	e := query.NewEngine()
	id := e.RequestID()
	e.Cancel(id)

	_, _, err := query.ParseCst(e, id, textFile("a.eure", "x = 1"))
	qt.Assert(t, qt.Equals(err, query.Canceled))
}

func TestCollectDiagnosticTargetsDedupesAndAddsSchemas(t *testing.T) {
	a := textFile("a.eure", "x = 1")
	b := textFile("b.eure", "y = 2")
	schemaForA := textFile("a.schema.eure", "x.$type = .integer")

	targets := query.CollectDiagnosticTargets([]query.TextFile{a, b}, func(f query.TextFile) (query.TextFile, bool) {
		if f.URI == "a.eure" {
			return schemaForA, true
		}
		return query.TextFile{}, false
	})

	qt.Assert(t, qt.HasLen(targets, 3))
	uris := make(map[string]bool, len(targets))
	for _, t := range targets {
		uris[t.URI] = true
	}
	qt.Assert(t, qt.IsTrue(uris["a.eure"] && uris["b.eure"] && uris["a.schema.eure"]))
}

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

// Package valuevisitor drives a document.DocumentConstructor from a parsed
// cst.Tree, turning the lossless concrete syntax tree into a semantic
// Document. It walks the tree through eure/cst's generated View types
// rather than the double-dispatch Visitor framework: the grammar here has
// no error-recovery-sensitive traversal order to preserve, so a direct walk
// is simpler and just as complete.
package valuevisitor

import (
	"strings"

	"github.com/cockroachdb/apd/v3"

	"eure.sh/eure/cst"
	"eure.sh/eure/document"
	"eure.sh/eure/errors"
	"eure.sh/eure/literal"
	"eure.sh/eure/token"
)

// visitor holds the state threaded through one tree walk: the tree and its
// source text (views resolve terminal text lazily from byte spans), the
// constructor being driven, and the diagnostics accumulated so far.
//
// Source positions are not threaded through to document.Segment/bindValue
// calls: ParseFile doesn't expose the *token.File needed to turn a CST span
// into a token.Pos, so every origin recorded here is token.NoPos. Precise
// origins can be wired in later by having the parser return its token.File
// alongside the tree.
type visitor struct {
	tree  *cst.Tree
	input string
	ctor  *document.DocumentConstructor
	errs  errors.List
}

// BuildDocument walks tree (as produced by eure/parser.ParseFile) and
// returns the Document it describes, the origin table recorded along the
// way, and any diagnostics encountered. Diagnostics don't abort the walk:
// each production that fails to resolve is skipped and its sibling
// productions are still visited, matching the parser's own tolerant
// recovery philosophy.
func BuildDocument(tree *cst.Tree, input string) (*document.Document, *document.Origins, errors.List) {
	v := &visitor{tree: tree, input: input, ctor: document.NewConstructor()}

	docId, ok := v.findDocument()
	if ok {
		docHandle, err := cst.NewNonTerminalHandle(tree, docId, cst.NonTerminalDocument)
		if err != nil {
			v.errs.Add(wrapErr(err))
		} else {
			var dv cst.DocumentView
			if err := dv.FromHandle(tree, input, docHandle); err != nil {
				v.errs.Add(wrapErr(err))
			} else {
				for _, item := range dv.Items {
					v.visitItem(item)
				}
			}
		}
	} else {
		v.errs.Add(errors.New("MissingDocument", token.NoPos, nil, "root has no Document child"))
	}

	doc, origins, err := v.ctor.Finish()
	if err != nil {
		v.errs.Add(wrapErr(err))
	}
	return doc, origins, v.errs
}

// findDocument locates the single Document non-terminal child of the
// tree's root.
func (v *visitor) findDocument() (cst.NodeId, bool) {
	for _, child := range v.tree.Children(v.tree.Root()) {
		data, ok := v.tree.NodeData(child)
		if ok && !data.IsTerminal && data.NonTerminal == cst.NonTerminalDocument {
			return child, true
		}
	}
	return 0, false
}

// visitItem dispatches a Document/SectionBody item to its Binding or
// Section handler.
func (v *visitor) visitItem(id cst.NodeId) {
	data, ok := v.tree.NodeData(id)
	if !ok {
		v.errs.Add(errors.New("NodeIdNotFound", token.NoPos, nil, "item node not found"))
		return
	}
	switch data.NonTerminal {
	case cst.NonTerminalBinding:
		v.visitBinding(id)
	case cst.NonTerminalSection:
		v.visitSection(id)
	default:
		v.errs.Add(errors.New("UnexpectedNode", token.NoPos, nil, "expected a binding or section, found %s", data.Kind()))
	}
}

func (v *visitor) visitBinding(id cst.NodeId) {
	handle, err := cst.NewNonTerminalHandle(v.tree, id, cst.NonTerminalBinding)
	if err != nil {
		v.errs.Add(wrapErr(err))
		return
	}
	var bv cst.BindingView
	if err := bv.FromHandle(v.tree, v.input, handle); err != nil {
		v.errs.Add(wrapErr(err))
		return
	}

	segs, err := v.buildKeySegments(bv.Key)
	if err != nil {
		v.errs.Add(wrapErr(err))
		return
	}
	tok, err := v.ctor.PushBindingPath(segs)
	if err != nil {
		v.errs.Add(wrapErr(err))
		return
	}
	v.visitValue(bv.Value)
	if err := v.ctor.PopToToken(tok); err != nil {
		v.errs.Add(wrapErr(err))
	}
}

func (v *visitor) visitSection(id cst.NodeId) {
	handle, err := cst.NewNonTerminalHandle(v.tree, id, cst.NonTerminalSection)
	if err != nil {
		v.errs.Add(wrapErr(err))
		return
	}
	var sv cst.SectionView
	if err := sv.FromHandle(v.tree, v.input, handle); err != nil {
		v.errs.Add(wrapErr(err))
		return
	}

	segs, err := v.buildPathSegments(sv.Path)
	if err != nil {
		v.errs.Add(wrapErr(err))
		return
	}
	tok, err := v.ctor.PushBindingPath(segs)
	if err != nil {
		v.errs.Add(wrapErr(err))
		return
	}

	bodyData, ok := v.tree.NodeData(sv.Body)
	switch {
	case !ok:
		v.errs.Add(errors.New("NodeIdNotFound", token.NoPos, nil, "section body node not found"))
	case !bodyData.IsTerminal && bodyData.NonTerminal == cst.NonTerminalSectionBody:
		v.visitSectionBody(sv.Body)
	default:
		v.visitValue(sv.Body)
	}

	if err := v.ctor.PopToToken(tok); err != nil {
		v.errs.Add(wrapErr(err))
	}
}

// visitSectionBody forces the section's just-pushed segment to materialize
// as a Map (empty or not) and visits each Binding/Section inside it.
func (v *visitor) visitSectionBody(id cst.NodeId) {
	if err := v.ctor.ConsumeDeferredAsMap(); err != nil {
		v.errs.Add(wrapErr(err))
		return
	}
	handle, err := cst.NewNonTerminalHandle(v.tree, id, cst.NonTerminalSectionBody)
	if err != nil {
		v.errs.Add(wrapErr(err))
		return
	}
	var sbv cst.SectionBodyView
	if err := sbv.FromHandle(v.tree, v.input, handle); err != nil {
		v.errs.Add(wrapErr(err))
		return
	}
	for _, item := range sbv.Items {
		v.visitItem(item)
	}
}

// visitValue resolves the Value production's single child and dispatches
// on its shape.
func (v *visitor) visitValue(id cst.NodeId) {
	handle, err := cst.NewNonTerminalHandle(v.tree, id, cst.NonTerminalValue)
	if err != nil {
		v.errs.Add(wrapErr(err))
		return
	}
	var vv cst.ValueView
	if err := vv.FromHandle(v.tree, v.input, handle); err != nil {
		v.errs.Add(wrapErr(err))
		return
	}
	v.visitInner(vv.Inner)
}

func (v *visitor) visitInner(id cst.NodeId) {
	data, ok := v.tree.NodeData(id)
	if !ok {
		v.errs.Add(errors.New("NodeIdNotFound", token.NoPos, nil, "value node not found"))
		return
	}
	if data.IsTerminal {
		v.visitTerminalValue(id, data.Terminal)
		return
	}
	switch data.NonTerminal {
	case cst.NonTerminalArray:
		v.visitArray(id)
	case cst.NonTerminalTuple:
		v.visitTuple(id)
	case cst.NonTerminalObject:
		v.visitObject(id)
	case cst.NonTerminalPath:
		v.visitPathValue(id)
	case cst.NonTerminalCodeInline:
		v.visitCodeInline(id)
	case cst.NonTerminalCodeBlock:
		v.visitCodeBlock(id)
	case cst.NonTerminalHole:
		v.visitHole(id)
	default:
		v.errs.Add(errors.New("UnexpectedNode", token.NoPos, nil, "unexpected value shape %s", data.NonTerminal))
	}
}

func (v *visitor) visitTerminalValue(id cst.NodeId, kind cst.TerminalKind) {
	handle, err := cst.NewTerminalHandle(v.tree, v.input, id, kind)
	if err != nil {
		v.errs.Add(wrapErr(err))
		return
	}
	switch kind {
	case cst.TerminalNull:
		v.bind(document.Null{})
	case cst.TerminalTrue:
		v.bind(document.Bool(true))
	case cst.TerminalFalse:
		v.bind(document.Bool(false))
	case cst.TerminalInteger:
		v.bindInteger(handle.Text)
	case cst.TerminalFloat:
		v.bindFloat(handle.Text)
	case cst.TerminalInf:
		v.bind(document.F64{V: &apd.Decimal{Form: apd.Infinite}})
	case cst.TerminalNan:
		v.bind(document.F64{V: &apd.Decimal{Form: apd.NaN}})
	case cst.TerminalStringLiteral:
		s, err := literal.Unquote(handle.Text)
		if err != nil {
			v.errs.Add(errors.New("InvalidLiteral", token.NoPos, nil, "%s", err))
			return
		}
		v.bind(document.NewText(s, document.TextQuoted, ""))
	case cst.TerminalText:
		// eure/scanner never produces a bare TerminalText token today (no
		// unquoted text-block delimiter distinct from StringLiteral is
		// implemented), but the grammar lists it as a Value alternative;
		// handle it the same as plain text so the path isn't silently
		// dropped if the scanner grows one.
		v.bind(document.NewText(handle.Text, document.TextPlain, ""))
	default:
		v.errs.Add(errors.New("UnexpectedNode", token.NoPos, nil, "unexpected terminal value kind %s", kind))
	}
}

func (v *visitor) bind(value document.NodeValue) {
	if _, err := v.ctor.BindPrimitive(value, token.NoPos); err != nil {
		v.errs.Add(wrapErr(err))
	}
}

func (v *visitor) bindInteger(lit string) {
	n, err := literal.ParseInteger(lit)
	if err != nil {
		v.errs.Add(errors.New("InvalidLiteral", token.NoPos, nil, "%s", err))
		return
	}
	if i, ok := literal.FitsInt64(n); ok {
		v.bind(document.Integer(i))
		return
	}
	v.bind(document.BigInt{V: n})
}

func (v *visitor) bindFloat(lit string) {
	d, _, err := apd.NewFromString(literal.CleanFloat(lit))
	if err != nil {
		v.errs.Add(errors.New("InvalidLiteral", token.NoPos, nil, "%s", err))
		return
	}
	v.bind(document.F64{V: d})
}

// visitArray binds an empty array directly, or else pushes each element in
// turn at a fresh array-index segment, popping back to the array's own
// depth between elements so the container ends up positioned as the
// visited value itself (matching the convention every visit* method
// follows: leave the stack at the node just bound).
func (v *visitor) visitArray(id cst.NodeId) {
	handle, err := cst.NewNonTerminalHandle(v.tree, id, cst.NonTerminalArray)
	if err != nil {
		v.errs.Add(wrapErr(err))
		return
	}
	var av cst.ArrayView
	if err := av.FromHandle(v.tree, v.input, handle); err != nil {
		v.errs.Add(wrapErr(err))
		return
	}
	values, ok := v.arrayElementValues(av.Elements)
	if !ok || len(values) == 0 {
		if _, err := v.ctor.BindEmptyArray(token.NoPos); err != nil {
			v.errs.Add(wrapErr(err))
		}
		return
	}

	containerDepth := 0
	for i, elem := range values {
		if i > 0 {
			if err := v.ctor.PopToDepth(containerDepth); err != nil {
				v.errs.Add(wrapErr(err))
				return
			}
		}
		seg := []document.Segment{document.NewSegment(document.SegArrayIndex{Index: nil})}
		if err := v.ctor.PushPath(seg); err != nil {
			v.errs.Add(wrapErr(err))
			return
		}
		if i == 0 {
			containerDepth = v.ctor.StackDepth() - 1
		}
		v.visitValue(elem)
	}
	if err := v.ctor.PopToDepth(containerDepth); err != nil {
		v.errs.Add(wrapErr(err))
	}
}

func (v *visitor) arrayElementValues(elementsId cst.NodeId) ([]cst.NodeId, bool) {
	if elementsId == 0 {
		return nil, false
	}
	handle, err := cst.NewNonTerminalHandle(v.tree, elementsId, cst.NonTerminalArrayElements)
	if err != nil {
		v.errs.Add(wrapErr(err))
		return nil, false
	}
	var ev cst.ArrayElementsView
	if err := ev.FromHandle(v.tree, v.input, handle); err != nil {
		v.errs.Add(wrapErr(err))
		return nil, false
	}
	return ev.Values, true
}

// visitTuple mirrors visitArray, addressing elements by their fixed
// position instead of always-push.
func (v *visitor) visitTuple(id cst.NodeId) {
	handle, err := cst.NewNonTerminalHandle(v.tree, id, cst.NonTerminalTuple)
	if err != nil {
		v.errs.Add(wrapErr(err))
		return
	}
	var tv cst.TupleView
	if err := tv.FromHandle(v.tree, v.input, handle); err != nil {
		v.errs.Add(wrapErr(err))
		return
	}
	values, ok := v.tupleElementValues(tv.Elements)
	if !ok || len(values) == 0 {
		if _, err := v.ctor.BindEmptyTuple(token.NoPos); err != nil {
			v.errs.Add(wrapErr(err))
		}
		return
	}

	containerDepth := 0
	for i, elem := range values {
		if i > 0 {
			if err := v.ctor.PopToDepth(containerDepth); err != nil {
				v.errs.Add(wrapErr(err))
				return
			}
		}
		seg := []document.Segment{document.NewSegment(document.SegTupleIndex{Index: uint8(i)})}
		if err := v.ctor.PushPath(seg); err != nil {
			v.errs.Add(wrapErr(err))
			return
		}
		if i == 0 {
			containerDepth = v.ctor.StackDepth() - 1
		}
		v.visitValue(elem)
	}
	if err := v.ctor.PopToDepth(containerDepth); err != nil {
		v.errs.Add(wrapErr(err))
	}
}

func (v *visitor) tupleElementValues(elementsId cst.NodeId) ([]cst.NodeId, bool) {
	if elementsId == 0 {
		return nil, false
	}
	handle, err := cst.NewNonTerminalHandle(v.tree, elementsId, cst.NonTerminalTupleElements)
	if err != nil {
		v.errs.Add(wrapErr(err))
		return nil, false
	}
	var tv cst.TupleElementsView
	if err := tv.FromHandle(v.tree, v.input, handle); err != nil {
		v.errs.Add(wrapErr(err))
		return nil, false
	}
	return tv.Values, true
}

// visitObject binds an empty map directly, or else materializes the map
// and visits each member binding inside it. Each member binding already
// pops back to the map's own depth, so no extra bookkeeping is needed
// between members the way arrays/tuples require.
func (v *visitor) visitObject(id cst.NodeId) {
	handle, err := cst.NewNonTerminalHandle(v.tree, id, cst.NonTerminalObject)
	if err != nil {
		v.errs.Add(wrapErr(err))
		return
	}
	var ov cst.ObjectView
	if err := ov.FromHandle(v.tree, v.input, handle); err != nil {
		v.errs.Add(wrapErr(err))
		return
	}
	bindings, ok := v.objectMemberBindings(ov.Members)
	if !ok || len(bindings) == 0 {
		if _, err := v.ctor.BindEmptyMap(token.NoPos); err != nil {
			v.errs.Add(wrapErr(err))
		}
		return
	}
	if err := v.ctor.ConsumeDeferredAsMap(); err != nil {
		v.errs.Add(wrapErr(err))
		return
	}
	for _, b := range bindings {
		v.visitBinding(b)
	}
}

func (v *visitor) objectMemberBindings(membersId cst.NodeId) ([]cst.NodeId, bool) {
	if membersId == 0 {
		return nil, false
	}
	handle, err := cst.NewNonTerminalHandle(v.tree, membersId, cst.NonTerminalObjectMembers)
	if err != nil {
		v.errs.Add(wrapErr(err))
		return nil, false
	}
	var mv cst.ObjectMembersView
	if err := mv.FromHandle(v.tree, v.input, handle); err != nil {
		v.errs.Add(wrapErr(err))
		return nil, false
	}
	return mv.Bindings, true
}

// visitPathValue binds a bare path (`.a.b.c` used where a value is
// expected) as a document.PathRef.
func (v *visitor) visitPathValue(id cst.NodeId) {
	segs, err := v.buildPathSegments(id)
	if err != nil {
		v.errs.Add(wrapErr(err))
		return
	}
	path := make(document.Path, len(segs))
	for i, s := range segs {
		path[i] = s.Path
	}
	v.bind(document.PathRef{Segments: path})
}

func (v *visitor) visitHole(id cst.NodeId) {
	handle, err := cst.NewNonTerminalHandle(v.tree, id, cst.NonTerminalHole)
	if err != nil {
		v.errs.Add(wrapErr(err))
		return
	}
	var hv cst.HoleView
	if err := hv.FromHandle(v.tree, v.input, handle); err != nil {
		v.errs.Add(wrapErr(err))
		return
	}
	label := ""
	if hv.HasLabel {
		labelHandle, err := cst.NewTerminalHandle(v.tree, v.input, hv.Label, cst.TerminalHoleLabel)
		if err != nil {
			v.errs.Add(wrapErr(err))
		} else {
			label = labelHandle.Text
		}
	}
	v.bind(document.Hole{Label: label})
}

func (v *visitor) visitCodeInline(id cst.NodeId) {
	handle, err := cst.NewNonTerminalHandle(v.tree, id, cst.NonTerminalCodeInline)
	if err != nil {
		v.errs.Add(wrapErr(err))
		return
	}
	var cv cst.CodeInlineView
	if err := cv.FromHandle(v.tree, v.input, handle); err != nil {
		v.errs.Add(wrapErr(err))
		return
	}
	v.bindCode(cv.HasLang, cv.Lang, cv.Code, document.TextCodeInline)
}

func (v *visitor) visitCodeBlock(id cst.NodeId) {
	handle, err := cst.NewNonTerminalHandle(v.tree, id, cst.NonTerminalCodeBlock)
	if err != nil {
		v.errs.Add(wrapErr(err))
		return
	}
	var cv cst.CodeBlockView
	if err := cv.FromHandle(v.tree, v.input, handle); err != nil {
		v.errs.Add(wrapErr(err))
		return
	}
	v.bindCode(cv.HasLang, cv.Lang, cv.Code, document.TextCodeBlock)
}

func (v *visitor) bindCode(hasLang bool, langId, codeId cst.NodeId, kind document.TextKind) {
	lang := ""
	if hasLang {
		langHandle, err := cst.NewTerminalHandle(v.tree, v.input, langId, cst.TerminalCodeLang)
		if err != nil {
			v.errs.Add(wrapErr(err))
		} else {
			lang = langHandle.Text
		}
	}
	codeHandle, err := cst.NewTerminalHandle(v.tree, v.input, codeId, cst.TerminalCode)
	if err != nil {
		v.errs.Add(wrapErr(err))
		return
	}
	content := stripCodeDelimiters(codeHandle.Text, kind)
	v.bind(document.NewText(content, kind, lang))
}

// stripCodeDelimiters removes the surrounding backtick fence from a scanned
// Code literal: a single backtick on each side for inline code, a
// triple-backtick fence (plus the newline immediately following the
// opening fence) for a code block.
func stripCodeDelimiters(lit string, kind document.TextKind) string {
	if kind == document.TextCodeBlock {
		s := strings.TrimPrefix(lit, "```")
		s = strings.TrimSuffix(s, "```")
		return strings.TrimPrefix(s, "\n")
	}
	s := strings.TrimPrefix(lit, "`")
	return strings.TrimSuffix(s, "`")
}

// buildKeySegments resolves a Key node's children into DocumentConstructor
// segments.
func (v *visitor) buildKeySegments(keyId cst.NodeId) ([]document.Segment, error) {
	handle, err := cst.NewNonTerminalHandle(v.tree, keyId, cst.NonTerminalKey)
	if err != nil {
		return nil, err
	}
	var kv cst.KeyView
	if err := kv.FromHandle(v.tree, v.input, handle); err != nil {
		return nil, err
	}
	return v.buildSegments(kv.Segments)
}

// buildPathSegments resolves a Path node's children the same way, for
// section headers and bare path values.
func (v *visitor) buildPathSegments(pathId cst.NodeId) ([]document.Segment, error) {
	handle, err := cst.NewNonTerminalHandle(v.tree, pathId, cst.NonTerminalPath)
	if err != nil {
		return nil, err
	}
	var pv cst.PathView
	if err := pv.FromHandle(v.tree, v.input, handle); err != nil {
		return nil, err
	}
	return v.buildSegments(pv.Segments)
}

func (v *visitor) buildSegments(ids []cst.NodeId) ([]document.Segment, error) {
	segs := make([]document.Segment, 0, len(ids))
	for _, id := range ids {
		seg, err := v.buildSegment(id)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

// buildSegment resolves one KeySegment/KeyArrayIndex child. Neither has a
// generated View (nodes.go gives Key/Path a flat Segments list, not a typed
// accessor per segment), so this inspects their raw children directly.
func (v *visitor) buildSegment(id cst.NodeId) (document.Segment, error) {
	data, ok := v.tree.NodeData(id)
	if !ok {
		return document.Segment{}, &cst.ViewConstructionError{Kind: cst.NodeIdNotFound, Node: id}
	}
	switch data.NonTerminal {
	case cst.NonTerminalKeySegment:
		return v.buildKeySegment(id)
	case cst.NonTerminalKeyArrayIndex:
		return v.buildArrayIndexSegment(id)
	default:
		return document.Segment{}, &cst.ViewConstructionError{Kind: cst.UnexpectedNode, Node: id, Data: data}
	}
}

func (v *visitor) buildKeySegment(id cst.NodeId) (document.Segment, error) {
	var terms []cst.NodeId
	for _, child := range v.tree.Children(id) {
		data, ok := v.tree.NodeData(child)
		if !ok {
			return document.Segment{}, &cst.ViewConstructionError{Kind: cst.NodeIdNotFound, Node: child}
		}
		if data.IsTerminal && data.Terminal.IsBuiltinTerminal() {
			continue
		}
		terms = append(terms, child)
	}
	if len(terms) == 0 {
		return document.Segment{}, &cst.ViewConstructionError{Kind: cst.UnexpectedEmptyChildren, Node: id}
	}

	first, ok := v.tree.NodeData(terms[0])
	if !ok {
		return document.Segment{}, &cst.ViewConstructionError{Kind: cst.NodeIdNotFound, Node: terms[0]}
	}

	switch first.Terminal {
	case cst.TerminalDollar, cst.TerminalDollarDollar:
		if len(terms) < 2 {
			return document.Segment{}, &cst.ViewConstructionError{Kind: cst.UnexpectedEndOfChildren, Node: id, Expected: cst.Term(cst.TerminalIdent)}
		}
		nameHandle, err := cst.NewTerminalHandle(v.tree, v.input, terms[1], cst.TerminalIdent)
		if err != nil {
			return document.Segment{}, err
		}
		ident, err := literal.ParseIdentifier(nameHandle.Text)
		if err != nil {
			return document.Segment{}, err
		}
		// `$$name` meta-extensions and `$name` extensions share the same
		// SegExtension path segment; document.go's Extensions map doesn't
		// distinguish the two namespaces.
		return document.NewSegment(document.SegExtension{Name: ident}), nil

	case cst.TerminalIdent:
		handle, err := cst.NewTerminalHandle(v.tree, v.input, terms[0], cst.TerminalIdent)
		if err != nil {
			return document.Segment{}, err
		}
		ident, err := literal.ParseIdentifier(handle.Text)
		if err != nil {
			return document.Segment{}, err
		}
		return document.NewSegment(document.SegIdent{Name: ident}), nil

	case cst.TerminalStringLiteral:
		handle, err := cst.NewTerminalHandle(v.tree, v.input, terms[0], cst.TerminalStringLiteral)
		if err != nil {
			return document.Segment{}, err
		}
		s, err := literal.Unquote(handle.Text)
		if err != nil {
			return document.Segment{}, err
		}
		return document.NewSegment(document.SegValue{Key: document.KeyString(literal.NormalizeText(s))}), nil

	case cst.TerminalInteger:
		handle, err := cst.NewTerminalHandle(v.tree, v.input, terms[0], cst.TerminalInteger)
		if err != nil {
			return document.Segment{}, err
		}
		n, err := literal.ParseInteger(handle.Text)
		if err != nil {
			return document.Segment{}, err
		}
		dec, _, err := apd.NewFromString(n.String())
		if err != nil {
			return document.Segment{}, err
		}
		return document.NewSegment(document.SegValue{Key: document.KeyNumber{V: dec}}), nil

	default:
		return document.Segment{}, &cst.ViewConstructionError{Kind: cst.UnexpectedNode, Node: terms[0], Data: first}
	}
}

// buildArrayIndexSegment resolves `[n]` / `[]`: an optional Integer between
// the brackets. An index above 255 does not fit the segment's uint8 and is
// rejected as ArrayIndexInvalid rather than wrapped.
func (v *visitor) buildArrayIndexSegment(id cst.NodeId) (document.Segment, error) {
	var intId cst.NodeId
	hasIndex := false
	for _, child := range v.tree.Children(id) {
		data, ok := v.tree.NodeData(child)
		if !ok {
			return document.Segment{}, &cst.ViewConstructionError{Kind: cst.NodeIdNotFound, Node: child}
		}
		if data.IsTerminal && data.Terminal == cst.TerminalInteger {
			intId, hasIndex = child, true
		}
	}
	if !hasIndex {
		return document.NewSegment(document.SegArrayIndex{Index: nil}), nil
	}
	handle, err := cst.NewTerminalHandle(v.tree, v.input, intId, cst.TerminalInteger)
	if err != nil {
		return document.Segment{}, err
	}
	n, err := literal.ParseInteger(handle.Text)
	if err != nil {
		return document.Segment{}, err
	}
	if !n.IsUint64() || n.Uint64() > 255 {
		return document.Segment{}, errors.New("ArrayIndexInvalid", token.NoPos, nil, "array index %s exceeds 255", n)
	}
	idx := uint8(n.Uint64())
	return document.NewSegment(document.SegArrayIndex{Index: &idx}), nil
}

// wrapErr lifts any error from the cst/document layers into an
// errors.Error, preserving its taxonomy Kind when one is available.
func wrapErr(err error) errors.Error {
	if e, ok := err.(errors.Error); ok {
		return e
	}
	kind := errors.Kind("ValueVisitorError")
	switch actual := err.(type) {
	case *cst.ViewConstructionError:
		kind = errors.Kind(actual.Kind.String())
	case *document.InsertError:
		kind = errors.Kind(actual.Kind.String())
	}
	return errors.New(kind, token.NoPos, nil, "%s", err)
}

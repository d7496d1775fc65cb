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

package cst

// Whitespace, NewLine, LineComment and BlockComment are the builtin
// trivia terminal wrappers: thin handles over their node id and
// resolved text, with no further structure to reconstruct.

type Whitespace struct{ TerminalNodeHandle }
type NewLine struct{ TerminalNodeHandle }
type LineComment struct{ TerminalNodeHandle }
type BlockComment struct{ TerminalNodeHandle }

func newTrivia(t *Tree, input string, id NodeId, kind TerminalKind) (TerminalNodeHandle, error) {
	return NewTerminalHandle(t, input, id, kind)
}

// NewWhitespace builds a Whitespace handle over id.
func NewWhitespace(t *Tree, input string, id NodeId) (Whitespace, error) {
	h, err := newTrivia(t, input, id, TerminalWhitespace)
	return Whitespace{h}, err
}

// NewNewLine builds a NewLine handle over id.
func NewNewLine(t *Tree, input string, id NodeId) (NewLine, error) {
	h, err := newTrivia(t, input, id, TerminalNewLine)
	return NewLine{h}, err
}

// NewLineComment builds a LineComment handle over id.
func NewLineComment(t *Tree, input string, id NodeId) (LineComment, error) {
	h, err := newTrivia(t, input, id, TerminalLineComment)
	return LineComment{h}, err
}

// NewBlockComment builds a BlockComment handle over id.
func NewBlockComment(t *Tree, input string, id NodeId) (BlockComment, error) {
	h, err := newTrivia(t, input, id, TerminalBlockComment)
	return BlockComment{h}, err
}

// DocumentView reconstructs the top-level Document production: a
// sequence of bindings and sections, in source order, terminated by
// EOF. It is a repeated OneOf(Binding, Section) rather than a fixed
// SequenceView because either may repeat any number of times.
type DocumentView struct {
	NonTerminalNodeHandle
	Items []NodeId // each a Binding or Section non-terminal
}

// FromHandle reconstructs DocumentView's Items by walking the node's
// children, skipping builtin trivia and classifying each remaining
// child as Binding or Section.
func (v *DocumentView) FromHandle(t *Tree, input string, handle NonTerminalNodeHandle) error {
	v.NonTerminalNodeHandle = handle
	v.Items = nil
	for _, child := range t.Children(handle.Id) {
		data, ok := t.NodeData(child)
		if !ok {
			return &ViewConstructionError{Kind: NodeIdNotFound, Node: child}
		}
		if data.IsTerminal && data.Terminal.IsBuiltinTerminal() {
			continue
		}
		if data.IsTerminal || (data.NonTerminal != NonTerminalBinding && data.NonTerminal != NonTerminalSection) {
			return &ViewConstructionError{Kind: UnexpectedNode, Node: child, Data: data}
		}
		v.Items = append(v.Items, child)
	}
	return nil
}

// BindingView reconstructs `key = value` / `key: "text"`: a Key
// followed by an Equals or Colon terminal, followed by a Value.
type BindingView struct {
	NonTerminalNodeHandle
	Key   NodeId
	Value NodeId
}

func (v *BindingView) FromHandle(t *Tree, input string, handle NonTerminalNodeHandle) error {
	v.NonTerminalNodeHandle = handle
	key, ok, err := OptionView(t, handle.Id, NonTerm(NonTerminalKey))
	if err != nil {
		return wrap(handle.Id, err)
	}
	if !ok {
		return &ViewConstructionError{Kind: UnexpectedEndOfChildren, Node: handle.Id, Expected: NonTerm(NonTerminalKey)}
	}
	v.Key = key

	vid, ok, err := OptionView(t, handle.Id, NonTerm(NonTerminalValue))
	if err != nil {
		return wrap(handle.Id, err)
	}
	if !ok {
		return &ViewConstructionError{Kind: UnexpectedEndOfChildren, Node: handle.Id, Expected: NonTerm(NonTerminalValue)}
	}
	v.Value = vid
	return nil
}

// SectionView reconstructs `@ path { ... }` / `@ path = value`: an At
// terminal, a Path, and either a SectionBody or an inlined Value.
type SectionView struct {
	NonTerminalNodeHandle
	Path NodeId
	Body NodeId // SectionBody or Value
}

func (v *SectionView) FromHandle(t *Tree, input string, handle NonTerminalNodeHandle) error {
	v.NonTerminalNodeHandle = handle
	path, ok, err := OptionView(t, handle.Id, NonTerm(NonTerminalPath))
	if err != nil {
		return wrap(handle.Id, err)
	}
	if !ok {
		return &ViewConstructionError{Kind: UnexpectedEndOfChildren, Node: handle.Id, Expected: NonTerm(NonTerminalPath)}
	}
	v.Path = path

	idx, body, err := OneOfView(t, handle.Id, []NodeKind{NonTerm(NonTerminalSectionBody), NonTerm(NonTerminalValue)})
	if err != nil {
		return wrap(handle.Id, err)
	}
	_ = idx
	v.Body = body
	return nil
}

// SectionBodyView reconstructs the `{ ... }` block of a section: a
// repeated sequence of Bindings and nested Sections.
type SectionBodyView struct {
	NonTerminalNodeHandle
	Items []NodeId
}

func (v *SectionBodyView) FromHandle(t *Tree, input string, handle NonTerminalNodeHandle) error {
	v.NonTerminalNodeHandle = handle
	v.Items = nil
	for _, child := range t.Children(handle.Id) {
		data, ok := t.NodeData(child)
		if !ok {
			return &ViewConstructionError{Kind: NodeIdNotFound, Node: child}
		}
		if data.IsTerminal {
			if data.Terminal.IsBuiltinTerminal() || data.Terminal == TerminalLBrace || data.Terminal == TerminalRBrace {
				continue
			}
			return &ViewConstructionError{Kind: UnexpectedNode, Node: child, Data: data}
		}
		if data.NonTerminal != NonTerminalBinding && data.NonTerminal != NonTerminalSection {
			return &ViewConstructionError{Kind: UnexpectedNode, Node: child, Data: data}
		}
		v.Items = append(v.Items, child)
	}
	return nil
}

// KeyView reconstructs a dotted key path: one or more KeySegment /
// KeyArrayIndex productions separated by Dot terminals.
type KeyView struct {
	NonTerminalNodeHandle
	Segments []NodeId
}

func (v *KeyView) FromHandle(t *Tree, input string, handle NonTerminalNodeHandle) error {
	v.NonTerminalNodeHandle = handle
	v.Segments = nil
	for _, child := range t.Children(handle.Id) {
		data, ok := t.NodeData(child)
		if !ok {
			return &ViewConstructionError{Kind: NodeIdNotFound, Node: child}
		}
		if data.IsTerminal {
			if data.Terminal.IsBuiltinTerminal() || data.Terminal == TerminalDot {
				continue
			}
			return &ViewConstructionError{Kind: UnexpectedNode, Node: child, Data: data}
		}
		if data.NonTerminal != NonTerminalKeySegment && data.NonTerminal != NonTerminalKeyArrayIndex {
			return &ViewConstructionError{Kind: UnexpectedNode, Node: child, Data: data}
		}
		v.Segments = append(v.Segments, child)
	}
	if len(v.Segments) == 0 {
		return &ViewConstructionError{Kind: UnexpectedEmptyChildren, Node: handle.Id}
	}
	return nil
}

// ArrayView reconstructs `[ ... ]`: a bracketed ArrayElements list.
type ArrayView struct {
	NonTerminalNodeHandle
	Elements NodeId
}

func (v *ArrayView) FromHandle(t *Tree, input string, handle NonTerminalNodeHandle) error {
	v.NonTerminalNodeHandle = handle
	elems, ok, err := OptionView(t, handle.Id, NonTerm(NonTerminalArrayElements))
	if err != nil {
		return wrap(handle.Id, err)
	}
	if ok {
		v.Elements = elems
	}
	return nil
}

// ArrayElementsView reconstructs a comma-separated element list, each
// element a Value.
type ArrayElementsView struct {
	NonTerminalNodeHandle
	Values []NodeId
}

func (v *ArrayElementsView) FromHandle(t *Tree, input string, handle NonTerminalNodeHandle) error {
	v.NonTerminalNodeHandle = handle
	vals, err := RepeatedView(t, handle.Id, NonTerm(NonTerminalValue))
	if err != nil {
		return wrap(handle.Id, err)
	}
	v.Values = vals
	return nil
}

// TupleView and TupleElementsView mirror Array/ArrayElements for `( ... )`.
type TupleView struct {
	NonTerminalNodeHandle
	Elements NodeId
}

func (v *TupleView) FromHandle(t *Tree, input string, handle NonTerminalNodeHandle) error {
	v.NonTerminalNodeHandle = handle
	elems, ok, err := OptionView(t, handle.Id, NonTerm(NonTerminalTupleElements))
	if err != nil {
		return wrap(handle.Id, err)
	}
	if ok {
		v.Elements = elems
	}
	return nil
}

type TupleElementsView struct {
	NonTerminalNodeHandle
	Values []NodeId
}

func (v *TupleElementsView) FromHandle(t *Tree, input string, handle NonTerminalNodeHandle) error {
	v.NonTerminalNodeHandle = handle
	vals, err := RepeatedView(t, handle.Id, NonTerm(NonTerminalValue))
	if err != nil {
		return wrap(handle.Id, err)
	}
	v.Values = vals
	return nil
}

// ObjectView and ObjectMembersView reconstruct `{ ... }` inline objects,
// each member a Binding.
type ObjectView struct {
	NonTerminalNodeHandle
	Members NodeId
}

func (v *ObjectView) FromHandle(t *Tree, input string, handle NonTerminalNodeHandle) error {
	v.NonTerminalNodeHandle = handle
	members, ok, err := OptionView(t, handle.Id, NonTerm(NonTerminalObjectMembers))
	if err != nil {
		return wrap(handle.Id, err)
	}
	if ok {
		v.Members = members
	}
	return nil
}

type ObjectMembersView struct {
	NonTerminalNodeHandle
	Bindings []NodeId
}

func (v *ObjectMembersView) FromHandle(t *Tree, input string, handle NonTerminalNodeHandle) error {
	v.NonTerminalNodeHandle = handle
	bindings, err := RepeatedView(t, handle.Id, NonTerm(NonTerminalBinding))
	if err != nil {
		return wrap(handle.Id, err)
	}
	v.Bindings = bindings
	return nil
}

// HoleView reconstructs `!` / `!label`: a Bang terminal with an
// optional HoleLabel terminal.
type HoleView struct {
	NonTerminalNodeHandle
	Label NodeId
	HasLabel bool
}

func (v *HoleView) FromHandle(t *Tree, input string, handle NonTerminalNodeHandle) error {
	v.NonTerminalNodeHandle = handle
	label, ok, err := OptionView(t, handle.Id, Term(TerminalHoleLabel))
	if err != nil {
		return wrap(handle.Id, err)
	}
	v.HasLabel = ok
	v.Label = label
	return nil
}

// CodeInlineView and CodeBlockView reconstruct inline and fenced code
// literals: an optional CodeLang tag followed by Code content.
type CodeInlineView struct {
	NonTerminalNodeHandle
	Lang NodeId
	HasLang bool
	Code NodeId
}

func (v *CodeInlineView) FromHandle(t *Tree, input string, handle NonTerminalNodeHandle) error {
	v.NonTerminalNodeHandle = handle
	lang, ok, err := OptionView(t, handle.Id, Term(TerminalCodeLang))
	if err != nil {
		return wrap(handle.Id, err)
	}
	v.HasLang = ok
	v.Lang = lang

	code, ok, err := OptionView(t, handle.Id, Term(TerminalCode))
	if err != nil {
		return wrap(handle.Id, err)
	}
	if !ok {
		return &ViewConstructionError{Kind: UnexpectedEndOfChildren, Node: handle.Id, Expected: Term(TerminalCode)}
	}
	v.Code = code
	return nil
}

type CodeBlockView struct {
	NonTerminalNodeHandle
	Lang NodeId
	HasLang bool
	Code NodeId
}

func (v *CodeBlockView) FromHandle(t *Tree, input string, handle NonTerminalNodeHandle) error {
	lang, ok, err := OptionView(t, handle.Id, Term(TerminalCodeLang))
	if err != nil {
		return wrap(handle.Id, err)
	}
	v.NonTerminalNodeHandle = handle
	v.HasLang = ok
	v.Lang = lang

	code, ok, err := OptionView(t, handle.Id, Term(TerminalCode))
	if err != nil {
		return wrap(handle.Id, err)
	}
	if !ok {
		return &ViewConstructionError{Kind: UnexpectedEndOfChildren, Node: handle.Id, Expected: Term(TerminalCode)}
	}
	v.Code = code
	return nil
}

// ValueView reconstructs the Value production: exactly one child,
// which may be a primitive terminal or any of the composite
// non-terminal value shapes. RecursiveView because Array/Tuple/Object
// all nest Value again.
type ValueView struct {
	NonTerminalNodeHandle
	Inner NodeId
}

func (ValueView) isRecursiveView() {}

var valueAlternatives = []NodeKind{
	Term(TerminalNull),
	Term(TerminalTrue),
	Term(TerminalFalse),
	Term(TerminalInteger),
	Term(TerminalFloat),
	Term(TerminalInf),
	Term(TerminalNan),
	Term(TerminalStringLiteral),
	Term(TerminalText),
	NonTerm(NonTerminalArray),
	NonTerm(NonTerminalTuple),
	NonTerm(NonTerminalObject),
	NonTerm(NonTerminalPath),
	NonTerm(NonTerminalCodeInline),
	NonTerm(NonTerminalCodeBlock),
	NonTerm(NonTerminalHole),
}

func (v *ValueView) FromHandle(t *Tree, input string, handle NonTerminalNodeHandle) error {
	v.NonTerminalNodeHandle = handle
	_, inner, err := OneOfView(t, handle.Id, valueAlternatives)
	if err != nil {
		return wrap(handle.Id, err)
	}
	v.Inner = inner
	return nil
}

// PathView reconstructs a bare path value: one or more KeySegment /
// KeyArrayIndex productions, same shape as Key but used where a path is
// a value rather than a binding target.
type PathView struct {
	NonTerminalNodeHandle
	Segments []NodeId
}

func (v *PathView) FromHandle(t *Tree, input string, handle NonTerminalNodeHandle) error {
	v.NonTerminalNodeHandle = handle
	v.Segments = nil
	for _, child := range t.Children(handle.Id) {
		data, ok := t.NodeData(child)
		if !ok {
			return &ViewConstructionError{Kind: NodeIdNotFound, Node: child}
		}
		if data.IsTerminal {
			if data.Terminal.IsBuiltinTerminal() || data.Terminal == TerminalDot {
				continue
			}
			return &ViewConstructionError{Kind: UnexpectedNode, Node: child, Data: data}
		}
		if data.NonTerminal != NonTerminalKeySegment && data.NonTerminal != NonTerminalKeyArrayIndex {
			return &ViewConstructionError{Kind: UnexpectedNode, Node: child, Data: data}
		}
		v.Segments = append(v.Segments, child)
	}
	return nil
}

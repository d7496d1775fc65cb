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

// Package cst implements the lossless concrete syntax tree: an append-only
// node arena (Tree), the generated-style Handle/View surface grammar
// productions are read through, and the double-dispatch Visitor framework
// that walks it with a tolerant-parsing recovery path.
package cst

// TerminalKind enumerates every lexical token kind the scanner produces,
// including the built-in trivia kinds (whitespace, newlines, comments)
// collect_nodes threads around expected children automatically.
type TerminalKind int

const (
	TerminalUnknown TerminalKind = iota

	// Built-in trivia, recognized by the tree layer itself.
	TerminalWhitespace
	TerminalNewLine
	TerminalLineComment
	TerminalBlockComment

	// Punctuation and operators.
	TerminalAt          // @
	TerminalEquals      // =
	TerminalColon       // :
	TerminalDot         // .
	TerminalComma       // ,
	TerminalLBrace      // {
	TerminalRBrace      // }
	TerminalLBracket    // [
	TerminalRBracket    // ]
	TerminalLParen      // (
	TerminalRParen      // )
	TerminalDollar      // $
	TerminalDollarDollar // $$
	TerminalBang        // !

	// Keywords / literal-valued terminals.
	TerminalIdent
	TerminalTrue
	TerminalFalse
	TerminalNull
	TerminalInteger
	TerminalFloat
	TerminalInf
	TerminalNan
	TerminalStringLiteral
	TerminalText       // unquoted text-block content
	TerminalCode       // inline/fenced code content
	TerminalCodeLang   // the "lang" tag preceding a code literal
	TerminalHoleLabel  // the identifier following '!' in a labeled hole

	TerminalEOF
)

// IsBuiltinWhitespace reports whether k is collect_nodes-recognized
// whitespace (blank/tab runs, as opposed to the newline terminal).
func (k TerminalKind) IsBuiltinWhitespace() bool { return k == TerminalWhitespace }

// IsBuiltinNewLine reports whether k is the newline terminal.
func (k TerminalKind) IsBuiltinNewLine() bool { return k == TerminalNewLine }

// IsBuiltinLineComment reports whether k is a "// ..." comment terminal.
func (k TerminalKind) IsBuiltinLineComment() bool { return k == TerminalLineComment }

// IsBuiltinBlockComment reports whether k is a "/* ... */" comment
// terminal.
func (k TerminalKind) IsBuiltinBlockComment() bool { return k == TerminalBlockComment }

// IsBuiltinTerminal reports whether k is any of the four trivia kinds
// collect_nodes and the visitor framework treat specially.
func (k TerminalKind) IsBuiltinTerminal() bool {
	return k.IsBuiltinWhitespace() || k.IsBuiltinNewLine() || k.IsBuiltinLineComment() || k.IsBuiltinBlockComment()
}

// AutoWSOff reports whether k's own grammar rule denies automatic
// whitespace/newline skipping around it, so encountering trivia where k
// was expected is itself an UnexpectedNode error rather than silently
// ignored. Text and code content are whitespace-significant; so is the
// newline terminal when a rule expects it literally.
func (k TerminalKind) AutoWSOff() bool {
	switch k {
	case TerminalWhitespace, TerminalNewLine, TerminalText, TerminalCode:
		return true
	default:
		return false
	}
}

func (k TerminalKind) String() string {
	switch k {
	case TerminalWhitespace:
		return "Whitespace"
	case TerminalNewLine:
		return "NewLine"
	case TerminalLineComment:
		return "LineComment"
	case TerminalBlockComment:
		return "BlockComment"
	case TerminalAt:
		return "At"
	case TerminalEquals:
		return "Equals"
	case TerminalColon:
		return "Colon"
	case TerminalDot:
		return "Dot"
	case TerminalComma:
		return "Comma"
	case TerminalLBrace:
		return "LBrace"
	case TerminalRBrace:
		return "RBrace"
	case TerminalLBracket:
		return "LBracket"
	case TerminalRBracket:
		return "RBracket"
	case TerminalLParen:
		return "LParen"
	case TerminalRParen:
		return "RParen"
	case TerminalDollar:
		return "Dollar"
	case TerminalDollarDollar:
		return "DollarDollar"
	case TerminalBang:
		return "Bang"
	case TerminalIdent:
		return "Ident"
	case TerminalTrue:
		return "True"
	case TerminalFalse:
		return "False"
	case TerminalNull:
		return "Null"
	case TerminalInteger:
		return "Integer"
	case TerminalFloat:
		return "Float"
	case TerminalInf:
		return "Inf"
	case TerminalNan:
		return "Nan"
	case TerminalStringLiteral:
		return "StringLiteral"
	case TerminalText:
		return "Text"
	case TerminalCode:
		return "Code"
	case TerminalCodeLang:
		return "CodeLang"
	case TerminalHoleLabel:
		return "HoleLabel"
	case TerminalEOF:
		return "EOF"
	default:
		return "Unknown"
	}
}

// NonTerminalKind enumerates every grammar production the parser builds
// non-terminal nodes for.
type NonTerminalKind int

const (
	NonTerminalRoot NonTerminalKind = iota
	NonTerminalDocument
	NonTerminalBinding
	NonTerminalSection
	NonTerminalSectionBody
	NonTerminalKey
	NonTerminalKeySegment
	NonTerminalKeyArrayIndex
	NonTerminalValue
	NonTerminalArray
	NonTerminalArrayElements
	NonTerminalTuple
	NonTerminalTupleElements
	NonTerminalObject
	NonTerminalObjectMembers
	NonTerminalPath
	NonTerminalCodeInline
	NonTerminalCodeBlock
	NonTerminalHole
)

func (k NonTerminalKind) String() string {
	switch k {
	case NonTerminalRoot:
		return "Root"
	case NonTerminalDocument:
		return "Document"
	case NonTerminalBinding:
		return "Binding"
	case NonTerminalSection:
		return "Section"
	case NonTerminalSectionBody:
		return "SectionBody"
	case NonTerminalKey:
		return "Key"
	case NonTerminalKeySegment:
		return "KeySegment"
	case NonTerminalKeyArrayIndex:
		return "KeyArrayIndex"
	case NonTerminalValue:
		return "Value"
	case NonTerminalArray:
		return "Array"
	case NonTerminalArrayElements:
		return "ArrayElements"
	case NonTerminalTuple:
		return "Tuple"
	case NonTerminalTupleElements:
		return "TupleElements"
	case NonTerminalObject:
		return "Object"
	case NonTerminalObjectMembers:
		return "ObjectMembers"
	case NonTerminalPath:
		return "Path"
	case NonTerminalCodeInline:
		return "CodeInline"
	case NonTerminalCodeBlock:
		return "CodeBlock"
	case NonTerminalHole:
		return "Hole"
	default:
		return "Unknown"
	}
}

// NodeKind is either a terminal or non-terminal kind, used wherever the
// tree layer needs to talk about "the kind of a child" without knowing
// which side of that distinction it falls on (collect_nodes' expected
// list, ViewConstructionError's expected_kind).
type NodeKind struct {
	Terminal    TerminalKind
	NonTerminal NonTerminalKind
	isTerminal  bool
}

// Term wraps a TerminalKind as a NodeKind.
func Term(k TerminalKind) NodeKind { return NodeKind{Terminal: k, isTerminal: true} }

// NonTerm wraps a NonTerminalKind as a NodeKind.
func NonTerm(k NonTerminalKind) NodeKind { return NodeKind{NonTerminal: k} }

// IsTerminal reports whether k wraps a terminal kind.
func (k NodeKind) IsTerminal() bool { return k.isTerminal }

func (k NodeKind) String() string {
	if k.isTerminal {
		return k.Terminal.String()
	}
	return k.NonTerminal.String()
}

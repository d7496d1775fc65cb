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

// Package parser implements a recursive-descent parser that builds a
// cst.Tree from EURE source text. It consumes eure/scanner's token
// stream directly, threading whitespace/newline/comment trivia into
// whichever production is active when they're encountered so the
// resulting tree stays lossless, and recovers from shape errors by
// synchronizing to the next binding or section rather than aborting the
// whole parse.
package parser

import (
	"strings"

	"eure.sh/eure/cst"
	"eure.sh/eure/errors"
	"eure.sh/eure/scanner"
	"eure.sh/eure/token"
)

// parser holds state for one parse of a single file.
type parser struct {
	file *token.File
	sc   scanner.Scanner
	errs errors.List
	tree *cst.Tree

	pos token.Pos
	tok cst.TerminalKind
	lit string

	pendingTrivia []cst.NodeId
}

// ParseFile parses src as a complete EURE document and returns the
// resulting tree's root node id alongside any diagnostics collected
// during the parse. Parsing never aborts early: shape errors are
// recorded and the parser resynchronizes at the next top-level item.
func ParseFile(filename string, src []byte) (*cst.Tree, cst.NodeId, errors.List) {
	p := &parser{}
	p.file = token.NewFileSet().AddFile(filename, string(src))
	p.sc.Init(p.file, src, func(pos token.Pos, msg string) {
		p.errs.Add(errors.New("ScanError", pos, nil, "%s", msg))
	})
	p.tree = cst.New(cst.NonTerminalNode(cst.NonTerminalRoot, cst.NonTerminalData{}))
	p.advance()

	doc := p.tree.AddNodeWithParent(cst.NonTerminalNode(cst.NonTerminalDocument, cst.NonTerminalData{}), p.tree.Root())
	p.parseItems(doc)
	p.flushTrivia(doc)

	return p.tree, p.tree.Root(), p.errs
}

// advance scans forward, buffering any trivia tokens encountered into
// pendingTrivia (as freshly allocated, as-yet-unparented terminal nodes)
// until it reaches the next substantive token, which becomes p.tok.
func (p *parser) advance() {
	for {
		pos, kind, lit := p.sc.Scan()
		if kind.IsBuiltinTerminal() {
			span := cst.InputSpan{Start: pos.Offset(), End: pos.Offset() + len(lit)}
			id := p.tree.AddNode(cst.TerminalNode(kind, cst.InputTerminalData(span)))
			p.pendingTrivia = append(p.pendingTrivia, id)
			continue
		}
		p.pos, p.tok, p.lit = pos, kind, lit
		return
	}
}

// flushTrivia attaches every buffered trivia node to parent, in order,
// and clears the buffer.
func (p *parser) flushTrivia(parent cst.NodeId) {
	for _, id := range p.pendingTrivia {
		p.tree.AddChild(parent, id)
	}
	p.pendingTrivia = nil
}

// consume flushes pending trivia into parent, turns the current token
// into a terminal node attached to parent, advances past it, and returns
// the new node's id.
func (p *parser) consume(parent cst.NodeId) cst.NodeId {
	p.flushTrivia(parent)
	span := cst.InputSpan{Start: p.pos.Offset(), End: p.pos.Offset() + len(p.lit)}
	id := p.tree.AddNodeWithParent(cst.TerminalNode(p.tok, cst.InputTerminalData(span)), parent)
	p.advance()
	return id
}

// consumeAs is like consume but overrides the terminal kind recorded for
// the node (used for the CodeLang tag, which the scanner reports as a
// plain Ident since it is lexically indistinguishable from one).
func (p *parser) consumeAs(parent cst.NodeId, kind cst.TerminalKind) cst.NodeId {
	p.flushTrivia(parent)
	span := cst.InputSpan{Start: p.pos.Offset(), End: p.pos.Offset() + len(p.lit)}
	id := p.tree.AddNodeWithParent(cst.TerminalNode(kind, cst.InputTerminalData(span)), parent)
	p.advance()
	return id
}

// expect consumes the current token if it matches kind, else records a
// shape error rooted at the current position and returns an invalid id
// without advancing, leaving synchronization to the caller.
func (p *parser) expect(parent cst.NodeId, kind cst.TerminalKind) (cst.NodeId, bool) {
	if p.tok != kind {
		p.errorf("expected %s, found %s", kind, p.tok)
		return 0, false
	}
	return p.consume(parent), true
}

func (p *parser) errorf(format string, args ...interface{}) {
	p.errs.Add(errors.New("UnexpectedNode", p.pos, nil, format, args...))
}

// sync skips tokens until the next plausible start of a binding or
// section (an At/Ident/StringLiteral/Integer/Dollar/DollarDollar token,
// wherever it stands on its line) or EOF, so one bad production doesn't
// cascade into unrelated downstream errors.
func (p *parser) sync(parent cst.NodeId) {
	for p.tok != cst.TerminalEOF {
		switch p.tok {
		case cst.TerminalAt, cst.TerminalIdent, cst.TerminalStringLiteral, cst.TerminalInteger, cst.TerminalDollar, cst.TerminalDollarDollar:
			return
		}
		p.tree.RemoveNode(p.consume(parent))
	}
}

// parseItems parses a repetition of Binding/Section productions into
// parent (Document or SectionBody), stopping at end or a closing brace.
func (p *parser) parseItems(parent cst.NodeId) {
	for p.tok != cst.TerminalEOF && p.tok != cst.TerminalRBrace {
		before := p.pos
		switch p.tok {
		case cst.TerminalAt:
			p.parseSection(parent)
		case cst.TerminalIdent, cst.TerminalStringLiteral, cst.TerminalInteger, cst.TerminalDollar, cst.TerminalDollarDollar, cst.TerminalLBracket:
			p.parseBinding(parent)
		default:
			p.errorf("expected a binding or section, found %s", p.tok)
			p.sync(parent)
		}
		if p.pos == before {
			// no progress was made; force advancement to avoid looping forever.
			p.tree.RemoveNode(p.consume(parent))
		}
	}
}

// parseBinding parses `key = value` or `key: value`.
func (p *parser) parseBinding(parent cst.NodeId) {
	node := p.tree.AddNode(cst.NonTerminalNode(cst.NonTerminalBinding, cst.NonTerminalData{}))
	p.parseKey(node)
	switch p.tok {
	case cst.TerminalColon, cst.TerminalEquals:
		p.consume(node)
	default:
		p.errorf("expected '=' or ':', found %s", p.tok)
	}
	p.parseValue(node)
	p.tree.AddChild(parent, node)
}

// parseSection parses `@ path { ... }` or `@ path = value`.
func (p *parser) parseSection(parent cst.NodeId) {
	node := p.tree.AddNode(cst.NonTerminalNode(cst.NonTerminalSection, cst.NonTerminalData{}))
	p.consume(node) // '@'
	p.parseKeyPath(node, cst.NonTerminalPath)
	switch p.tok {
	case cst.TerminalLBrace:
		body := p.tree.AddNode(cst.NonTerminalNode(cst.NonTerminalSectionBody, cst.NonTerminalData{}))
		p.consume(body) // '{'
		p.parseItems(body)
		if p.tok == cst.TerminalRBrace {
			p.consume(body)
		} else {
			p.errorf("expected '}', found %s", p.tok)
		}
		p.tree.AddChild(node, body)
	case cst.TerminalEquals:
		p.consume(node)
		p.parseValue(node)
	default:
		p.errorf("expected '{' or '=', found %s", p.tok)
	}
	p.tree.AddChild(parent, node)
}

// parseKey parses a dotted key path as a Key non-terminal (binding
// target).
func (p *parser) parseKey(parent cst.NodeId) {
	p.parseKeyPath(parent, cst.NonTerminalKey)
}

// parseKeyPath parses one or more KeySegment/KeyArrayIndex productions
// separated by '.', wrapped in a non-terminal of kind (Key for a binding
// target, Path for a bare path value or section header). An array index
// may also follow the previous segment directly, with no '.' and no
// trivia in between (`employees[]`, `a[0].b`).
func (p *parser) parseKeyPath(parent cst.NodeId, kind cst.NonTerminalKind) {
	node := p.tree.AddNode(cst.NonTerminalNode(kind, cst.NonTerminalData{}))
	if kind == cst.NonTerminalPath && p.tok == cst.TerminalDot {
		p.consume(node) // leading '.' for a bare path value
	}
	p.parseKeySegment(node)
	for p.tok == cst.TerminalDot || (p.tok == cst.TerminalLBracket && len(p.pendingTrivia) == 0) {
		if p.tok == cst.TerminalDot {
			p.consume(node)
		}
		p.parseKeySegment(node)
	}
	p.tree.AddChild(parent, node)
}

// parseKeySegment parses one key segment: an identifier, quoted string,
// integer, `$name` extension, `$$name` meta-extension, or `[n]`/`[]`
// array index.
func (p *parser) parseKeySegment(parent cst.NodeId) {
	if p.tok == cst.TerminalLBracket {
		node := p.tree.AddNode(cst.NonTerminalNode(cst.NonTerminalKeyArrayIndex, cst.NonTerminalData{}))
		p.consume(node) // '['
		if p.tok == cst.TerminalInteger {
			p.consume(node)
		}
		if p.tok == cst.TerminalRBracket {
			p.consume(node)
		} else {
			p.errorf("expected ']', found %s", p.tok)
		}
		p.tree.AddChild(parent, node)
		return
	}
	node := p.tree.AddNode(cst.NonTerminalNode(cst.NonTerminalKeySegment, cst.NonTerminalData{}))
	switch p.tok {
	case cst.TerminalDollar, cst.TerminalDollarDollar:
		p.consume(node)
		if p.tok == cst.TerminalIdent {
			p.consume(node)
		} else {
			p.errorf("expected an identifier after '$', found %s", p.tok)
		}
	case cst.TerminalIdent, cst.TerminalStringLiteral, cst.TerminalInteger:
		p.consume(node)
	default:
		p.errorf("expected a key segment, found %s", p.tok)
		p.consume(node)
	}
	p.tree.AddChild(parent, node)
}

// parseValue parses any Value production and wraps it in a Value
// non-terminal attached to parent.
func (p *parser) parseValue(parent cst.NodeId) {
	node := p.tree.AddNode(cst.NonTerminalNode(cst.NonTerminalValue, cst.NonTerminalData{}))
	switch p.tok {
	case cst.TerminalNull, cst.TerminalTrue, cst.TerminalFalse,
		cst.TerminalInteger, cst.TerminalFloat, cst.TerminalInf, cst.TerminalNan,
		cst.TerminalStringLiteral, cst.TerminalText:
		p.consume(node)
	case cst.TerminalCode:
		p.parseCodeLiteral(node)
	case cst.TerminalIdent:
		langId := p.consumeAs(node, cst.TerminalCodeLang)
		if p.tok == cst.TerminalCode {
			p.parseCodeLiteralWithLangNode(node, langId)
		} else {
			p.errorf("expected inline or fenced code after language tag, found %s", p.tok)
		}
	case cst.TerminalLBracket:
		p.parseArray(node)
	case cst.TerminalLParen:
		p.parseTuple(node)
	case cst.TerminalLBrace:
		p.parseObject(node)
	case cst.TerminalDot:
		p.parseKeyPath(node, cst.NonTerminalPath)
	case cst.TerminalBang, cst.TerminalHoleLabel:
		p.parseHole(node)
	default:
		p.errorf("expected a value, found %s", p.tok)
		p.consume(node)
	}
	p.tree.AddChild(parent, node)
}

// parseCodeLiteral parses a code literal with no preceding language tag.
func (p *parser) parseCodeLiteral(parent cst.NodeId) {
	kind := cst.NonTerminalCodeInline
	if strings.HasPrefix(p.lit, "```") {
		kind = cst.NonTerminalCodeBlock
	}
	node := p.tree.AddNode(cst.NonTerminalNode(kind, cst.NonTerminalData{}))
	p.consume(node)
	p.tree.AddChild(parent, node)
}

// parseCodeLiteralWithLangNode finishes parsing a code literal whose
// language-tag terminal (langId) was already consumed by the caller.
func (p *parser) parseCodeLiteralWithLangNode(parent cst.NodeId, langId cst.NodeId) {
	kind := cst.NonTerminalCodeInline
	if strings.HasPrefix(p.lit, "```") {
		kind = cst.NonTerminalCodeBlock
	}
	node := p.tree.AddNode(cst.NonTerminalNode(kind, cst.NonTerminalData{}))
	p.tree.AddChild(node, langId)
	p.consume(node)
	p.tree.AddChild(parent, node)
}

// parseArray parses `[ v, v, ... ]`.
func (p *parser) parseArray(parent cst.NodeId) {
	node := p.tree.AddNode(cst.NonTerminalNode(cst.NonTerminalArray, cst.NonTerminalData{}))
	p.consume(node) // '['
	if p.tok != cst.TerminalRBracket {
		elems := p.tree.AddNode(cst.NonTerminalNode(cst.NonTerminalArrayElements, cst.NonTerminalData{}))
		p.parseValue(elems)
		for p.tok == cst.TerminalComma {
			p.consume(elems)
			if p.tok == cst.TerminalRBracket {
				break
			}
			p.parseValue(elems)
		}
		p.tree.AddChild(node, elems)
	}
	if p.tok == cst.TerminalRBracket {
		p.consume(node)
	} else {
		p.errorf("expected ']', found %s", p.tok)
	}
	p.tree.AddChild(parent, node)
}

// parseTuple parses `( v, v, ... )`.
func (p *parser) parseTuple(parent cst.NodeId) {
	node := p.tree.AddNode(cst.NonTerminalNode(cst.NonTerminalTuple, cst.NonTerminalData{}))
	p.consume(node) // '('
	if p.tok != cst.TerminalRParen {
		elems := p.tree.AddNode(cst.NonTerminalNode(cst.NonTerminalTupleElements, cst.NonTerminalData{}))
		p.parseValue(elems)
		for p.tok == cst.TerminalComma {
			p.consume(elems)
			if p.tok == cst.TerminalRParen {
				break
			}
			p.parseValue(elems)
		}
		p.tree.AddChild(node, elems)
	}
	if p.tok == cst.TerminalRParen {
		p.consume(node)
	} else {
		p.errorf("expected ')', found %s", p.tok)
	}
	p.tree.AddChild(parent, node)
}

// parseObject parses `{ key: value, ... }`, an inline record of
// bindings distinct from a section's block body.
func (p *parser) parseObject(parent cst.NodeId) {
	node := p.tree.AddNode(cst.NonTerminalNode(cst.NonTerminalObject, cst.NonTerminalData{}))
	p.consume(node) // '{'
	if p.tok != cst.TerminalRBrace {
		members := p.tree.AddNode(cst.NonTerminalNode(cst.NonTerminalObjectMembers, cst.NonTerminalData{}))
		p.parseBinding(members)
		for p.tok == cst.TerminalComma {
			p.consume(members)
			if p.tok == cst.TerminalRBrace {
				break
			}
			p.parseBinding(members)
		}
		p.tree.AddChild(node, members)
	}
	if p.tok == cst.TerminalRBrace {
		p.consume(node)
	} else {
		p.errorf("expected '}', found %s", p.tok)
	}
	p.tree.AddChild(parent, node)
}

// parseHole parses `!` or `!label`. The scanner reports the former as a
// plain Bang and the latter as a single HoleLabel token positioned at the
// '!' whose literal is the label alone; that token is recorded as a Bang
// terminal for the '!' followed by a HoleLabel terminal spanning the label.
func (p *parser) parseHole(parent cst.NodeId) {
	node := p.tree.AddNode(cst.NonTerminalNode(cst.NonTerminalHole, cst.NonTerminalData{}))
	if p.tok == cst.TerminalHoleLabel {
		p.flushTrivia(node)
		off := p.pos.Offset()
		p.tree.AddNodeWithParent(cst.TerminalNode(cst.TerminalBang, cst.InputTerminalData(cst.InputSpan{Start: off, End: off + 1})), node)
		p.tree.AddNodeWithParent(cst.TerminalNode(cst.TerminalHoleLabel, cst.InputTerminalData(cst.InputSpan{Start: off + 1, End: off + 1 + len(p.lit)})), node)
		p.advance()
	} else {
		p.consume(node)
	}
	p.tree.AddChild(parent, node)
}

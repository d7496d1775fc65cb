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

// Package errors defines the shared error type used across the CST,
// document, schema, and validator layers. The pivotal type is the Error
// interface; Position, Path, and Print give front-ends what they need to
// render "severity: message at path (file:line:col)" diagnostics.
package errors

import (
	"fmt"
	"sort"
	"strings"

	"eure.sh/eure/token"
)

// Error is the common error interface for EURE diagnostics.
type Error interface {
	error
	// Position returns the primary source position of the error.
	Position() token.Pos
	// Path returns the document path where the error occurred, or nil.
	Path() []string
}

// Kind identifies the taxonomy entry an error belongs to (see spec §7).
type Kind string

// kindErr is the common concrete implementation backing every exported
// error constructor below.
type kindErr struct {
	kind Kind
	pos  token.Pos
	path []string
	msg  string
}

func (e *kindErr) Error() string {
	var b strings.Builder
	b.WriteString(e.msg)
	if len(e.path) > 0 {
		fmt.Fprintf(&b, " at %s", strings.Join(e.path, "."))
	}
	if e.pos.IsValid() {
		fmt.Fprintf(&b, " (%s)", e.pos.Position())
	}
	return b.String()
}

func (e *kindErr) Position() token.Pos { return e.pos }
func (e *kindErr) Path() []string      { return e.path }
func (e *kindErr) Kind() Kind          { return e.kind }

// New creates an Error of the given kind at pos with a formatted message.
func New(kind Kind, pos token.Pos, path []string, format string, args ...interface{}) Error {
	return &kindErr{kind: kind, pos: pos, path: path, msg: fmt.Sprintf(format, args...)}
}

// WithPath returns a copy of err with its path replaced, if err was created
// via New (or Errors.WithPath on a list).
func WithPath(err Error, path []string) Error {
	if e, ok := err.(*kindErr); ok {
		cp := *e
		cp.path = path
		return &cp
	}
	return err
}

// KindOf extracts the Kind of an error created by New, if any.
func KindOf(err error) (Kind, bool) {
	if e, ok := err.(*kindErr); ok {
		return e.kind, true
	}
	return "", false
}

// Severity classifies a diagnostic.
type Severity int

const (
	Error_ Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// List is an ordered collection of diagnostics, as produced by the
// validator (which collects every diagnostic rather than short-circuiting)
// and by tolerant parsing (which keeps going after a recovered error).
type List []Error

func (l List) Error() string {
	var b strings.Builder
	for i, e := range l {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(e.Error())
	}
	return b.String()
}

// Add appends err to the list.
func (l *List) Add(err Error) {
	*l = append(*l, err)
}

// Sanitize sorts a list by start position for stable, reproducible output
// (diagnostics are emitted in traversal order, then sorted by start span,
// per spec §5).
func Sanitize(l List) List {
	out := make(List, len(l))
	copy(out, l)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Position(), out[j].Position()
		if !pi.IsValid() || !pj.IsValid() {
			return false
		}
		return pi.Offset() < pj.Offset()
	})
	return out
}

// Print renders a list of errors, one per line, in the CLI surface's
// "severity: message at path (file:line:col)" form.
func Print(w interface{ WriteString(string) (int, error) }, l List, severities map[Error]Severity) {
	for _, e := range l {
		sev := Error_
		if severities != nil {
			sev = severities[e]
		}
		w.WriteString(fmt.Sprintf("%s: %s\n", sev, e.Error()))
	}
}

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

// Package parse implements the typed-value layer on top of [eure.sh/eure/document]:
// RecordParser walks a map node field by field with unknown-field tracking,
// UnionParser implements oneOf dispatch with priority short-circuiting and
// $variant-tagged matching, and the Parser[T] function type is the Serde-like
// entry point user types implement to participate in both.
package parse

import (
	"fmt"
	"strings"

	"eure.sh/eure/document"
)

// ErrorKind classifies a parse failure.
type ErrorKind int

const (
	// MissingField means a required field was absent from a record.
	MissingField ErrorKind = iota
	// UnknownField means DenyUnknownFields found a field no parser accessed.
	UnknownField
	// TypeMismatch means the node's content kind did not match what the
	// parser expected (e.g. a record parser applied to an array node).
	TypeMismatch
	// UnexpectedHole means the node still holds an unfilled template hole.
	UnexpectedHole
	// InvalidKeyType means a record's map contained a non-string key.
	InvalidKeyType
	// RecordInExtensionScope means ParseRecord was called from a context
	// whose flatten chain is scoped to extensions, not fields.
	RecordInExtensionScope
	// UnknownVariant means a $variant extension named a variant that was
	// never registered with the union parser.
	UnknownVariant
	// NoMatchingVariant means no registered variant accepted the node and
	// no $variant extension selected one explicitly.
	NoMatchingVariant
	// AmbiguousUnion means more than one non-priority variant matched and
	// no $variant extension was present to break the tie.
	AmbiguousUnion
)

func (k ErrorKind) String() string {
	switch k {
	case MissingField:
		return "missing field"
	case UnknownField:
		return "unknown field"
	case TypeMismatch:
		return "type mismatch"
	case UnexpectedHole:
		return "unexpected hole"
	case InvalidKeyType:
		return "invalid key type"
	case RecordInExtensionScope:
		return "record parser used in extension scope"
	case UnknownVariant:
		return "unknown variant"
	case NoMatchingVariant:
		return "no matching variant"
	case AmbiguousUnion:
		return "ambiguous union"
	default:
		return "parse error"
	}
}

// Error is returned by every operation in this package. NodeId identifies
// where in the document the failure occurred; the remaining fields are
// populated according to Kind.
type Error struct {
	NodeId document.NodeId
	Kind   ErrorKind

	Field      string             // MissingField, UnknownField
	Expected   string             // TypeMismatch
	Actual     string             // TypeMismatch
	Key        document.ObjectKey // InvalidKeyType
	Variant    string             // UnknownVariant
	Candidates []string           // AmbiguousUnion
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", e.Kind)
	switch e.Kind {
	case MissingField, UnknownField:
		fmt.Fprintf(&b, " %q", e.Field)
	case TypeMismatch:
		fmt.Fprintf(&b, ": expected %s, found %s", e.Expected, e.Actual)
	case UnknownVariant:
		fmt.Fprintf(&b, " %q", e.Variant)
	case AmbiguousUnion:
		fmt.Fprintf(&b, ": %s", strings.Join(e.Candidates, ", "))
	}
	return b.String()
}

func missingField(nodeId document.NodeId, name string) *Error {
	return &Error{NodeId: nodeId, Kind: MissingField, Field: name}
}

func unknownField(nodeId document.NodeId, name string) *Error {
	return &Error{NodeId: nodeId, Kind: UnknownField, Field: name}
}

func invalidKeyType(nodeId document.NodeId, key document.ObjectKey) *Error {
	return &Error{NodeId: nodeId, Kind: InvalidKeyType, Key: key}
}

func typeMismatch(nodeId document.NodeId, expected, actual string) *Error {
	return &Error{NodeId: nodeId, Kind: TypeMismatch, Expected: expected, Actual: actual}
}

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

package parse

import (
	"fmt"
	"strings"
	"unicode"
)

// VariantPath is a dot-separated path of variant names for nested unions,
// e.g. "ok.some.left" for Result<Option<Either<T, U>>>.
type VariantPath struct {
	segments []string
}

// NewVariantPath returns a single-segment path.
func NewVariantPath(segment string) VariantPath {
	return VariantPath{segments: []string{segment}}
}

// VariantPathFromString parses s as a dot-separated path, falling back to
// a single-segment path with s verbatim if s does not look like one
// (matching how a bare $variant value such as "foo-bar" is still taken
// as a one-segment name rather than rejected outright).
func VariantPathFromString(s string) VariantPath {
	p, err := ParseVariantPath(s)
	if err != nil {
		return NewVariantPath(s)
	}
	return p
}

// ParseVariantPath parses s as a dot-separated path of identifiers.
func ParseVariantPath(s string) (VariantPath, error) {
	if s == "" {
		return VariantPath{}, fmt.Errorf("variant path is empty")
	}
	segments := strings.Split(s, ".")
	for _, seg := range segments {
		if seg == "" {
			return VariantPath{}, fmt.Errorf("variant path contains empty segment")
		}
		first := []rune(seg)[0]
		if !unicode.IsLetter(first) && first != '_' {
			return VariantPath{}, fmt.Errorf("invalid variant path segment: %s", seg)
		}
	}
	return VariantPath{segments: segments}, nil
}

// Len returns the number of segments.
func (p VariantPath) Len() int { return len(p.segments) }

// First returns the first segment, if any.
func (p VariantPath) First() (string, bool) {
	if len(p.segments) == 0 {
		return "", false
	}
	return p.segments[0], true
}

// SplitFirst splits off the first segment. rest is nil if p has only one
// segment; ok is false if p is empty.
func (p VariantPath) SplitFirst() (first string, rest *VariantPath, ok bool) {
	if len(p.segments) == 0 {
		return "", nil, false
	}
	if len(p.segments) == 1 {
		return p.segments[0], nil, true
	}
	r := VariantPath{segments: p.segments[1:]}
	return p.segments[0], &r, true
}

// Push appends a segment.
func (p *VariantPath) Push(segment string) {
	p.segments = append(p.segments, segment)
}

// Prepend returns a new path with segment inserted at the front.
func (p VariantPath) Prepend(segment string) VariantPath {
	segments := make([]string, 0, len(p.segments)+1)
	segments = append(segments, segment)
	segments = append(segments, p.segments...)
	return VariantPath{segments: segments}
}

// Segments returns the path's segments.
func (p VariantPath) Segments() []string { return p.segments }

func (p VariantPath) String() string {
	return strings.Join(p.segments, ".")
}

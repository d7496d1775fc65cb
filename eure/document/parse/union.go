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

import "eure.sh/eure/literal"

// variantExtensionName is the "$variant" extension a union-typed node
// may carry to select its variant directly instead of relying on
// priority/ambiguity resolution.
var variantExtensionName = literal.MustIdentifier("variant")

type namedResult[T any] struct {
	name  string
	value T
}

type namedFailure struct {
	name string
	err  *Error
}

// UnionParser implements oneOf dispatch over a node: exactly one
// registered variant must match, ties among non-priority variants are
// reported as AmbiguousUnion, and a $variant extension (if present)
// selects a variant by name and skips priority/ambiguity resolution
// entirely.
type UnionParser[T any] struct {
	ctx         *ParseContext
	variantPath *VariantPath

	variantResult   *T
	variantErr      error
	variantResolved bool

	priorityResult *T

	otherResults  []namedResult[T]
	otherFailures []namedFailure
}

func newUnionParser[T any](ctx *ParseContext, variantPath *VariantPath) *UnionParser[T] {
	return &UnionParser[T]{ctx: ctx, variantPath: variantPath}
}

// Variant registers a priority variant. Priority variants are tried in
// registration order; the first one to match short-circuits parsing.
func (u *UnionParser[T]) Variant(name string, parser Parser[T]) *UnionParser[T] {
	if u.variantPath != nil {
		if first, rest, ok := u.variantPath.SplitFirst(); ok && first == name && rest == nil && !u.variantResolved {
			v, err := parser(u.ctx)
			u.variantResult, u.variantErr, u.variantResolved = &v, err, true
		}
		return u
	}
	if u.priorityResult == nil {
		if v, err := parser(u.ctx); err == nil {
			u.priorityResult = &v
		}
	}
	return u
}

// Nested registers a priority variant whose value is itself a union,
// receiving any variant-path segments remaining after this one.
func (u *UnionParser[T]) Nested(name string, parser func(ctx *ParseContext, rest *VariantPath) (T, error)) *UnionParser[T] {
	if u.variantPath != nil {
		if first, rest, ok := u.variantPath.SplitFirst(); ok && first == name && !u.variantResolved {
			v, err := parser(u.ctx, rest)
			u.variantResult, u.variantErr, u.variantResolved = &v, err, true
		}
		return u
	}
	if u.priorityResult == nil {
		if v, err := parser(u.ctx, nil); err == nil {
			u.priorityResult = &v
		}
	}
	return u
}

// Other registers a non-priority variant. Non-priority variants are only
// tried when no priority variant matched; every one is tried so multiple
// matches can be reported as AmbiguousUnion.
func (u *UnionParser[T]) Other(name string, parser Parser[T]) *UnionParser[T] {
	if u.variantPath != nil {
		if first, rest, ok := u.variantPath.SplitFirst(); ok && first == name && rest == nil && !u.variantResolved {
			v, err := parser(u.ctx)
			u.variantResult, u.variantErr, u.variantResolved = &v, err, true
		}
		return u
	}
	if u.priorityResult != nil {
		return u
	}
	if v, err := parser(u.ctx); err == nil {
		u.otherResults = append(u.otherResults, namedResult[T]{name: name, value: v})
	} else if perr, ok := err.(*Error); ok {
		u.otherFailures = append(u.otherFailures, namedFailure{name: name, err: perr})
	} else {
		u.otherFailures = append(u.otherFailures, namedFailure{name: name, err: &Error{NodeId: u.ctx.nodeId, Kind: TypeMismatch}})
	}
	return u
}

// OtherNested is the Nested counterpart of Other.
func (u *UnionParser[T]) OtherNested(name string, parser func(ctx *ParseContext, rest *VariantPath) (T, error)) *UnionParser[T] {
	if u.variantPath != nil {
		if first, rest, ok := u.variantPath.SplitFirst(); ok && first == name && !u.variantResolved {
			v, err := parser(u.ctx, rest)
			u.variantResult, u.variantErr, u.variantResolved = &v, err, true
		}
		return u
	}
	if u.priorityResult != nil {
		return u
	}
	if v, err := parser(u.ctx, nil); err == nil {
		u.otherResults = append(u.otherResults, namedResult[T]{name: name, value: v})
	} else if perr, ok := err.(*Error); ok {
		u.otherFailures = append(u.otherFailures, namedFailure{name: name, err: perr})
	}
	return u
}

// Parse resolves the union: the $variant-selected result if a $variant
// extension was present, else the short-circuited priority match, else
// the unique non-priority match, else AmbiguousUnion when several
// non-priority variants matched; when none matched, the error of the
// first failed non-priority variant, or NoMatchingVariant if there was
// none.
func (u *UnionParser[T]) Parse() (T, error) {
	var zero T
	if u.variantPath != nil {
		if u.variantResolved {
			if u.variantErr != nil {
				return zero, u.variantErr
			}
			return *u.variantResult, nil
		}
		return zero, &Error{NodeId: u.ctx.nodeId, Kind: UnknownVariant, Variant: u.variantPath.String()}
	}

	if u.priorityResult != nil {
		return *u.priorityResult, nil
	}

	switch len(u.otherResults) {
	case 0:
		if len(u.otherFailures) > 0 {
			return zero, u.otherFailures[0].err
		}
		return zero, &Error{NodeId: u.ctx.nodeId, Kind: NoMatchingVariant}
	case 1:
		return u.otherResults[0].value, nil
	default:
		names := make([]string, len(u.otherResults))
		for i, r := range u.otherResults {
			names[i] = r.name
		}
		return zero, &Error{NodeId: u.ctx.nodeId, Kind: AmbiguousUnion, Candidates: names}
	}
}

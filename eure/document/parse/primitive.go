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
	"math/big"

	"github.com/cockroachdb/apd/v3"

	"eure.sh/eure/document"
)

// ParseText parses a Text node into a plain Go string, regardless of
// TextKind (quoted, code block, or inline code share the same Content).
func ParseText(ctx *ParseContext) (string, error) {
	switch v := ctx.Node().Content.(type) {
	case document.Text:
		return v.Content, nil
	default:
		return "", typeMismatch(ctx.nodeId, "text", document.KindName(v))
	}
}

// ParseBool parses a Bool node.
func ParseBool(ctx *ParseContext) (bool, error) {
	switch v := ctx.Node().Content.(type) {
	case document.Bool:
		return bool(v), nil
	default:
		return false, typeMismatch(ctx.nodeId, "bool", document.KindName(v))
	}
}

// ParseInt64 parses an Integer node into an int64.
func ParseInt64(ctx *ParseContext) (int64, error) {
	switch v := ctx.Node().Content.(type) {
	case document.Integer:
		return int64(v), nil
	case document.BigInt:
		if v.V.IsInt64() {
			return v.V.Int64(), nil
		}
		return 0, typeMismatch(ctx.nodeId, "int64", "big integer out of range")
	default:
		return 0, typeMismatch(ctx.nodeId, "integer", document.KindName(v))
	}
}

// ParseBigInt parses an Integer or BigInt node into a *big.Int.
func ParseBigInt(ctx *ParseContext) (*big.Int, error) {
	switch v := ctx.Node().Content.(type) {
	case document.Integer:
		return big.NewInt(int64(v)), nil
	case document.BigInt:
		return v.V, nil
	default:
		return nil, typeMismatch(ctx.nodeId, "integer", document.KindName(v))
	}
}

// ParseF64 parses an F64 node into an *apd.Decimal.
func ParseF64(ctx *ParseContext) (*apd.Decimal, error) {
	switch v := ctx.Node().Content.(type) {
	case document.F64:
		return v.V, nil
	default:
		return nil, typeMismatch(ctx.nodeId, "f64", document.KindName(v))
	}
}

// ParseF32 parses an F32 node into a float32.
func ParseF32(ctx *ParseContext) (float32, error) {
	switch v := ctx.Node().Content.(type) {
	case document.F32:
		return float32(v), nil
	default:
		return 0, typeMismatch(ctx.nodeId, "f32", document.KindName(v))
	}
}

// ParseNull requires ctx's node to hold Null, returning a TypeMismatch
// error otherwise. It is primarily useful as a field validator for
// Option-like wrapper types.
func ParseNull(ctx *ParseContext) (struct{}, error) {
	switch v := ctx.Node().Content.(type) {
	case document.Null:
		return struct{}{}, nil
	default:
		return struct{}{}, typeMismatch(ctx.nodeId, "null", document.KindName(v))
	}
}

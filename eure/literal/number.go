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

package literal

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseInteger parses an EURE integer literal (decimal, or `0x`/`0b`/`0o`
// prefixed, with `_` digit-group separators) into a big.Int. The caller
// decides whether the result fits an int64 or must be kept as a BigInt.
func ParseInteger(lit string) (*big.Int, error) {
	s := strings.ReplaceAll(lit, "_", "")
	base := 10
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		base, s = 16, s[2:]
	case strings.HasPrefix(s, "0b") || strings.HasPrefix(s, "0B"):
		base, s = 2, s[2:]
	case strings.HasPrefix(s, "0o") || strings.HasPrefix(s, "0O"):
		base, s = 8, s[2:]
	}
	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, fmt.Errorf("invalid integer literal %q", lit)
	}
	return v, nil
}

// FitsInt64 reports whether v fits in an int64, returning the value if so.
func FitsInt64(v *big.Int) (int64, bool) {
	if !v.IsInt64() {
		return 0, false
	}
	return v.Int64(), true
}

// CleanFloat strips `_` digit-group separators from a float literal so it
// can be handed to a decimal parser.
func CleanFloat(lit string) string {
	return strings.ReplaceAll(lit, "_", "")
}

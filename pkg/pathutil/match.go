// Copyright 2025 walteh LLC
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

package pathutil

import (
	"github.com/bmatcuk/doublestar/v4"
)

// 🔍 MatchGlob reports whether s matches a doublestar glob pattern.
// Invalid patterns never match.
func MatchGlob(pattern, s string) bool {
	matched, err := doublestar.Match(pattern, s)
	if err != nil {
		return false
	}
	return matched
}

// 🎯 MatchPattern matches a value against a pattern. String patterns are
// glob matches against string values. Object patterns are recursive subset
// matches: every key in the pattern must exist in the value and match.
// Any other pattern type matches by deep equality.
func MatchPattern(pattern, value any) bool {
	switch p := pattern.(type) {
	case string:
		s, ok := value.(string)
		if !ok {
			return false
		}
		return MatchGlob(p, s)
	case map[string]any:
		v, ok := value.(map[string]any)
		if !ok {
			return false
		}
		for k, pv := range p {
			vv, ok := v[k]
			if !ok || !MatchPattern(pv, vv) {
				return false
			}
		}
		return true
	default:
		return DeepEqual(pattern, value)
	}
}

// ⚖️ DeepEqual compares two document values structurally. Numeric values
// compare by magnitude across int/int64/float64 so that documents decoded
// from JSON and YAML compare equal regardless of decoder number typing.
func DeepEqual(a, b any) bool {
	if an, aok := asFloat(a); aok {
		bn, bok := asFloat(b)
		return bok && an == bn
	}
	switch at := a.(type) {
	case map[string]any:
		bt, ok := b.(map[string]any)
		if !ok || len(at) != len(bt) {
			return false
		}
		for k, av := range at {
			bv, ok := bt[k]
			if !ok || !DeepEqual(av, bv) {
				return false
			}
		}
		return true
	case []any:
		bt, ok := b.([]any)
		if !ok || len(at) != len(bt) {
			return false
		}
		for i, av := range at {
			if !DeepEqual(av, bt[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

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

package flow

import (
	"regexp"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// CheckPattern validates a from/to pattern without executing anything;
// configuration linting uses it.
func CheckPattern(pattern string) error {
	if pattern == "" {
		return errors.New("empty pattern")
	}
	_, err := compileStemPattern(pattern)
	return err
}

// stemPattern matches slash-separated paths against a glob pattern with
// `{name}` stem-capture placeholders. Stems capture across directory
// separators so nested source names survive the round trip.
type stemPattern struct {
	raw   string
	re    *regexp.Regexp
	stems []string
}

var stemRef = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

func compileStemPattern(pattern string) (*stemPattern, error) {
	var sb strings.Builder
	sb.WriteString("^")
	var stems []string

	i := 0
	for i < len(pattern) {
		switch {
		case strings.HasPrefix(pattern[i:], "**/"):
			sb.WriteString(`(?:.*/)?`)
			i += 3
		case strings.HasPrefix(pattern[i:], "**"):
			sb.WriteString(`.*`)
			i += 2
		case pattern[i] == '*':
			sb.WriteString(`[^/]*`)
			i++
		case pattern[i] == '?':
			sb.WriteString(`[^/]`)
			i++
		case pattern[i] == '{':
			loc := stemRef.FindStringSubmatchIndex(pattern[i:])
			if loc == nil || loc[0] != 0 {
				return nil, errors.Errorf("malformed stem placeholder in pattern %q", pattern)
			}
			name := pattern[i+loc[2] : i+loc[3]]
			stems = append(stems, name)
			sb.WriteString(`(.+?)`)
			i += loc[1]
		default:
			sb.WriteString(regexp.QuoteMeta(string(pattern[i])))
			i++
		}
	}
	sb.WriteString("$")

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, errors.Errorf("compiling pattern %q: %w", pattern, err)
	}
	return &stemPattern{raw: pattern, re: re, stems: stems}, nil
}

// match tests a slash-separated relative path and returns the stem
// bindings on success.
func (p *stemPattern) match(path string) (map[string]string, bool) {
	m := p.re.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}
	bindings := make(map[string]string, len(p.stems))
	for i, name := range p.stems {
		bindings[name] = m[i+1]
	}
	return bindings, true
}

// substituteStems renders a to-pattern by replacing `{name}` placeholders
// with their captured bindings. Unbound placeholders are an error: a flow
// cannot write to a path it cannot name.
func substituteStems(pattern string, bindings map[string]string) (string, error) {
	var missing string
	out := stemRef.ReplaceAllStringFunc(pattern, func(ref string) string {
		name := ref[1 : len(ref)-1]
		if v, ok := bindings[name]; ok {
			return v
		}
		missing = name
		return ref
	})
	if missing != "" {
		return "", errors.Errorf("pattern %q references unbound stem {%s}", pattern, missing)
	}
	return out, nil
}

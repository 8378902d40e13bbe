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

// Package pathutil provides dot-path access into parsed documents,
// wildcard path expansion, deep equality and pattern matching.
package pathutil

import (
	"sort"
	"strings"
)

// 🔍 Get returns the value at a dot-path inside doc, and whether it exists.
func Get(doc map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	var current any = doc
	for _, seg := range segments {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// 📝 Set assigns a value at a dot-path, creating intermediate objects as needed.
// Existing non-object values along the path are replaced by objects.
func Set(doc map[string]any, path string, value any) {
	segments := strings.Split(path, ".")
	current := doc
	for _, seg := range segments[:len(segments)-1] {
		next, ok := current[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[seg] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = value
}

// 🗑️ Delete removes the value at a dot-path. Deleting a path that does not
// exist is a no-op.
func Delete(doc map[string]any, path string) {
	segments := strings.Split(path, ".")
	current := doc
	for _, seg := range segments[:len(segments)-1] {
		next, ok := current[seg].(map[string]any)
		if !ok {
			return
		}
		current = next
	}
	delete(current, segments[len(segments)-1])
}

// 🌟 Expand resolves a dot-path containing at most one `*` segment against
// the actual shape of doc, returning every concrete path that exists. Paths
// are never fabricated: a path with no matching branch expands to nothing.
// A path without a wildcard expands to itself iff it exists.
func Expand(doc map[string]any, path string) []string {
	segments := strings.Split(path, ".")
	star := -1
	for i, seg := range segments {
		if seg == "*" {
			star = i
			break
		}
	}
	if star == -1 {
		if _, ok := Get(doc, path); ok {
			return []string{path}
		}
		return nil
	}

	prefix := segments[:star]
	suffix := segments[star+1:]

	var parent any = doc
	for _, seg := range prefix {
		m, ok := parent.(map[string]any)
		if !ok {
			return nil
		}
		parent, ok = m[seg]
		if !ok {
			return nil
		}
	}
	m, ok := parent.(map[string]any)
	if !ok {
		return nil
	}

	keys := sortedKeys(m)
	var out []string
	for _, k := range keys {
		concrete := append(append(append([]string{}, prefix...), k), suffix...)
		p := strings.Join(concrete, ".")
		if _, ok := Get(doc, p); ok {
			out = append(out, p)
		}
	}
	return out
}

// 🍃 LeafPaths returns every leaf dot-path in doc in stable (sorted) order.
// A leaf is any value that is not a non-empty object.
func LeafPaths(doc map[string]any) []string {
	var out []string
	var walk func(prefix string, v any)
	walk = func(prefix string, v any) {
		m, ok := v.(map[string]any)
		if !ok || len(m) == 0 {
			out = append(out, prefix)
			return
		}
		for _, k := range sortedKeys(m) {
			p := k
			if prefix != "" {
				p = prefix + "." + k
			}
			walk(p, m[k])
		}
	}
	for _, k := range sortedKeys(doc) {
		walk(k, doc[k])
	}
	return out
}

// 📋 Clone returns a deep copy of a document value.
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Clone(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Clone(e)
		}
		return out
	default:
		return v
	}
}

// CloneDoc is Clone specialized to a document root.
func CloneDoc(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	return Clone(doc).(map[string]any)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

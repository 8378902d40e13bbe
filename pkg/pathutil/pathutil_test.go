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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSetDelete(t *testing.T) {
	doc := map[string]any{
		"mcp": map[string]any{
			"github": map[string]any{"command": "gh-mcp"},
		},
	}

	v, ok := Get(doc, "mcp.github.command")
	require.True(t, ok)
	assert.Equal(t, "gh-mcp", v)

	_, ok = Get(doc, "mcp.gitlab.command")
	assert.False(t, ok)

	Set(doc, "mcp.github.args", []any{"--stdio"})
	v, ok = Get(doc, "mcp.github.args")
	require.True(t, ok)
	assert.Equal(t, []any{"--stdio"}, v)

	// setting through a scalar replaces it with an object
	Set(doc, "mcp.github.command.nested", true)
	v, ok = Get(doc, "mcp.github.command.nested")
	require.True(t, ok)
	assert.Equal(t, true, v)

	Delete(doc, "mcp.github.args")
	_, ok = Get(doc, "mcp.github.args")
	assert.False(t, ok)

	// deleting a missing path is a no-op
	Delete(doc, "mcp.missing.path")
}

func TestExpand(t *testing.T) {
	doc := map[string]any{
		"mcp": map[string]any{
			"github": map[string]any{"command": "gh"},
			"jira":   map[string]any{"command": "jira"},
			"weird":  "scalar",
		},
	}

	tests := []struct {
		name string
		path string
		want []string
	}{
		{
			name: "wildcard_over_real_branches",
			path: "mcp.*.command",
			want: []string{"mcp.github.command", "mcp.jira.command"},
		},
		{
			name: "wildcard_terminal",
			path: "mcp.*",
			want: []string{"mcp.github", "mcp.jira", "mcp.weird"},
		},
		{
			name: "no_wildcard_existing",
			path: "mcp.github",
			want: []string{"mcp.github"},
		},
		{
			name: "no_wildcard_missing",
			path: "tools.github",
			want: nil,
		},
		{
			name: "wildcard_no_parent",
			path: "tools.*.command",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Expand(doc, tt.path))
		})
	}
}

func TestLeafPaths(t *testing.T) {
	doc := map[string]any{
		"b": map[string]any{"y": 1, "x": 2},
		"a": "top",
		"c": map[string]any{},
	}
	assert.Equal(t, []string{"a", "b.x", "b.y", "c"}, LeafPaths(doc))
}

func TestCloneIsDeep(t *testing.T) {
	doc := map[string]any{
		"nested": map[string]any{"list": []any{1, 2}},
	}
	cp := CloneDoc(doc)
	Set(cp, "nested.extra", true)
	cp["nested"].(map[string]any)["list"].([]any)[0] = 99

	_, ok := Get(doc, "nested.extra")
	assert.False(t, ok, "mutating the clone must not touch the original")
	assert.Equal(t, 1, doc["nested"].(map[string]any)["list"].([]any)[0])
}

func TestDeepEqualNumeric(t *testing.T) {
	assert.True(t, DeepEqual(1, float64(1)), "json and yaml decoders type numbers differently")
	assert.True(t, DeepEqual(int64(3), 3))
	assert.False(t, DeepEqual(1, float64(1.5)))
	assert.True(t, DeepEqual(
		map[string]any{"a": []any{1, map[string]any{"b": 2}}},
		map[string]any{"a": []any{float64(1), map[string]any{"b": float64(2)}}},
	))
	assert.False(t, DeepEqual(map[string]any{"a": 1}, map[string]any{"a": 1, "b": 2}))
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		name    string
		pattern any
		value   any
		want    bool
	}{
		{"glob_match", "mcp-*", "mcp-github", true},
		{"glob_miss", "mcp-*", "hooks", false},
		{"glob_non_string", "mcp-*", 42, false},
		{"object_subset", map[string]any{"type": "stdio"}, map[string]any{"type": "stdio", "command": "gh"}, true},
		{"object_subset_miss", map[string]any{"type": "sse"}, map[string]any{"type": "stdio"}, false},
		{"exact_number", 3, float64(3), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchPattern(tt.pattern, tt.value))
		})
	}
}

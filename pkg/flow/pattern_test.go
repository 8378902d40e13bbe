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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStemPatternMatch(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		path     string
		want     bool
		bindings map[string]string
	}{
		{
			name:     "simple_stem",
			pattern:  "agents/{name}.md",
			path:     "agents/helper.md",
			want:     true,
			bindings: map[string]string{"name": "helper"},
		},
		{
			name:     "stem_captures_across_directories",
			pattern:  "agents/{name}.md",
			path:     "agents/review/security.md",
			want:     true,
			bindings: map[string]string{"name": "review/security"},
		},
		{
			name:    "doublestar_prefix",
			pattern: "**/rules/{name}.md",
			path:    "deep/nested/rules/style.md",
			want:    true,
			bindings: map[string]string{
				"name": "style",
			},
		},
		{
			name:     "doublestar_matches_zero_dirs",
			pattern:  "**/rules/{name}.md",
			path:     "rules/style.md",
			want:     true,
			bindings: map[string]string{"name": "style"},
		},
		{
			name:    "single_star_stops_at_slash",
			pattern: "hooks/*.json",
			path:    "hooks/sub/a.json",
			want:    false,
		},
		{
			name:     "dotted_platform_root",
			pattern:  ".claude/agents/{name}.md",
			path:     ".claude/agents/helper.md",
			want:     true,
			bindings: map[string]string{"name": "helper"},
		},
		{
			name:    "mismatch",
			pattern: "agents/{name}.md",
			path:    "commands/build.md",
			want:    false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := compileStemPattern(tt.pattern)
			require.NoError(t, err)
			bindings, ok := p.match(tt.path)
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, tt.bindings, bindings)
			}
		})
	}
}

func TestSubstituteStems(t *testing.T) {
	out, err := substituteStems(".claude/agents/{name}.md", map[string]string{"name": "helper"})
	require.NoError(t, err)
	assert.Equal(t, ".claude/agents/helper.md", out)

	_, err = substituteStems("out/{missing}.md", map[string]string{"name": "x"})
	require.Error(t, err, "unbound stems must fail, not silently pass through")
}

func TestCheckPattern(t *testing.T) {
	assert.NoError(t, CheckPattern("agents/{name}.md"))
	assert.NoError(t, CheckPattern("**/*.json"))
	assert.Error(t, CheckPattern(""))
	assert.Error(t, CheckPattern("agents/{bad name}.md"))
}

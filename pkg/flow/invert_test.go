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
	"github.com/walteh/flowrc/pkg/mappipe"
	"github.com/walteh/flowrc/pkg/transform"
)

func TestInvertSwapsPaths(t *testing.T) {
	f := Flow{From: "agents/{name}.md", To: ".claude/agents/{name}.md"}
	inv := Invert(f, "claude", nil)
	assert.Equal(t, f.To, inv.From)
	assert.Equal(t, f.From, inv.To)
	assert.True(t, inv.Inverted())
	assert.Equal(t, "claude", inv.SourcePlatform)
}

func TestInvertDropsLossyOperations(t *testing.T) {
	f := Flow{
		From: "a",
		To:   "b",
		Map: mappipe.Operations{
			mappipe.Set{Fields: []mappipe.Field{{Path: "added", Value: 1}}},
			mappipe.Rename{Mappings: []mappipe.RenameEntry{{From: "old", To: "new"}}},
			mappipe.Unset{Paths: []string{"secret"}},
			mappipe.Copy{From: "x", To: "y"},
		},
		Embed:   "wrapper",
		Section: "sec",
	}
	inv := Invert(f, "claude", nil)

	require.Len(t, inv.Map, 2, "$set and $unset are lossy and dropped")
	// reverse order: the last-applied forward op is undone first
	cp, ok := inv.Map[0].(mappipe.Copy)
	require.True(t, ok)
	assert.Equal(t, mappipe.Copy{From: "y", To: "x"}, cp)
	rn, ok := inv.Map[1].(mappipe.Rename)
	require.True(t, ok)
	assert.Equal(t, []mappipe.RenameEntry{{From: "new", To: "old"}}, rn.Mappings)

	assert.Empty(t, inv.Embed, "placement hints are forward-only")
	assert.Empty(t, inv.Section)
}

func TestInvertDropsCopyValueTransform(t *testing.T) {
	f := Flow{
		From: "a",
		To:   "b",
		Map: mappipe.Operations{
			mappipe.Copy{
				From: "model",
				To:   "provider",
				Transform: &mappipe.Switch{
					Cases: []mappipe.Case{{Pattern: "claude-*", Value: "anthropic"}},
				},
			},
		},
	}
	inv := Invert(f, "claude", nil)

	require.Len(t, inv.Map, 1)
	cp, ok := inv.Map[0].(mappipe.Copy)
	require.True(t, ok)
	assert.Equal(t, "provider", cp.From)
	assert.Equal(t, "model", cp.To)
	// the case mapping is not value-invertible; the reverse copy carries
	// the raw value back
	assert.Nil(t, cp.Transform)
}

func TestInvertPipe(t *testing.T) {
	reg := transform.Builtin()
	f := Flow{
		From: "a",
		To:   "b",
		Pipe: []string{"frontmatter-split", "strip-empty", "yaml-parse"},
	}
	inv := Invert(f, "claude", reg)
	// one-way filters vanish, bidirectional pairs flip and reverse
	assert.Equal(t, []string{"yaml-stringify", "frontmatter-join"}, inv.Pipe)
}

func TestInvertIsInvolutionOnReversibleSubset(t *testing.T) {
	reg := transform.Builtin()
	f := Flow{
		From:  "agents/{name}.md",
		To:    ".claude/agents/{name}.md",
		Merge: MergeReplace,
		Map: mappipe.Operations{
			mappipe.Rename{Mappings: []mappipe.RenameEntry{{From: "a", To: "b"}, {From: "c", To: "d"}}},
			mappipe.Copy{From: "x", To: "y"},
		},
		Pipe: []string{"frontmatter-split"},
	}

	back := Invert(Invert(f, "claude", reg), "claude", reg)
	assert.Equal(t, f.From, back.From)
	assert.Equal(t, f.To, back.To)
	assert.Equal(t, f.Map, back.Map)
	assert.Equal(t, f.Pipe, back.Pipe)
	assert.Equal(t, f.Merge, back.Merge)
}

func TestConditionEvaluate(t *testing.T) {
	resolver := func(vars map[string]any) mappipe.Resolver {
		return func(ref string) (any, bool) {
			v, ok := vars[ref]
			return v, ok
		}
	}

	tests := []struct {
		name string
		cond *Condition
		vars map[string]any
		want bool
	}{
		{"nil_condition_always_runs", nil, nil, true},
		{"equals_match", &Condition{Variable: "$$platform", Equals: "claude"}, map[string]any{"$$platform": "claude"}, true},
		{"equals_miss", &Condition{Variable: "$$platform", Equals: "claude"}, map[string]any{"$$platform": "cursor"}, false},
		{"matches_glob", &Condition{Variable: "$$platform", Matches: "c*"}, map[string]any{"$$platform": "cursor"}, true},
		{"unknown_variable_is_false", &Condition{Variable: "$$nope", Equals: "x"}, nil, false},
		{"not_inverts", &Condition{Variable: "$$platform", Equals: "claude", Not: true}, map[string]any{"$$platform": "claude"}, false},
		{"not_unknown_is_true", &Condition{Variable: "$$nope", Not: true}, nil, true},
		{"bare_presence_truthy", &Condition{Variable: "$$flag"}, map[string]any{"$$flag": "yes"}, true},
		{"bare_presence_falsy", &Condition{Variable: "$$flag"}, map[string]any{"$$flag": false}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.Evaluate(resolver(tt.vars)))
		})
	}
}

func TestContextResolver(t *testing.T) {
	c := &Context{
		Platform:    "claude",
		PackageName: "base",
		Variables:   map[string]any{"team": "infra", "$$source": "cursor"},
	}

	r := c.Resolver(map[string]any{RefFilename: "helper.md"})

	v, ok := r(RefPlatform)
	require.True(t, ok)
	assert.Equal(t, "claude", v)

	v, ok = r(RefPackage)
	require.True(t, ok)
	assert.Equal(t, "base", v)

	v, ok = r(RefFilename)
	require.True(t, ok)
	assert.Equal(t, "helper.md", v)

	// user variables resolve with or without the $$ prefix
	v, ok = r("$$team")
	require.True(t, ok)
	assert.Equal(t, "infra", v)

	v, ok = r(RefSource)
	require.True(t, ok)
	assert.Equal(t, "cursor", v)

	_, ok = r("$$unknown")
	assert.False(t, ok)
}

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

package mappipe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/flowrc/pkg/pathutil"
	"github.com/walteh/flowrc/pkg/transform"
)

func testResolver(vars map[string]any) Resolver {
	return func(ref string) (any, bool) {
		v, ok := vars[ref]
		return v, ok
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	ctx := context.Background()
	doc := map[string]any{"name": "original"}
	ops := []Operation{Set{Fields: []Field{{Path: "name", Value: "changed"}}}}

	out, err := Apply(ctx, ops, doc, Env{})
	require.NoError(t, err)
	assert.Equal(t, "changed", out["name"])
	assert.Equal(t, "original", doc["name"], "input document must stay untouched")
}

func TestApplySet(t *testing.T) {
	ctx := context.Background()
	ops := []Operation{Set{Fields: []Field{
		{Path: "model", Value: "$$platform"},
		{Path: "nested.flag", Value: true},
		{Path: "unknown", Value: "$$missing"},
	}}}
	env := Env{Resolve: testResolver(map[string]any{"$$platform": "claude"})}

	out, err := Apply(ctx, ops, map[string]any{}, env)
	require.NoError(t, err)
	assert.Equal(t, "claude", out["model"])
	v, _ := pathutil.Get(out, "nested.flag")
	assert.Equal(t, true, v)
	// unresolvable references pass through as literals
	assert.Equal(t, "$$missing", out["unknown"])
}

func TestApplyRenameWildcard(t *testing.T) {
	ctx := context.Background()
	doc := map[string]any{
		"mcp": map[string]any{
			"github": map[string]any{"command": "gh"},
			"jira":   map[string]any{"command": "jira"},
		},
		"other": "kept",
	}
	ops := []Operation{Rename{Mappings: []RenameEntry{{From: "mcp.*", To: "mcpServers.*"}}}}

	out, err := Apply(ctx, ops, doc, Env{})
	require.NoError(t, err)

	// every sibling moves, not just the first match
	v, ok := pathutil.Get(out, "mcpServers.github.command")
	require.True(t, ok)
	assert.Equal(t, "gh", v)
	_, ok = pathutil.Get(out, "mcpServers.jira")
	assert.True(t, ok)
	_, ok = pathutil.Get(out, "mcp.github")
	assert.False(t, ok)
	// the drained source parent disappears with its children
	_, ok = out["mcp"]
	assert.False(t, ok, "a fully renamed-away branch must not linger as an empty object")
	assert.Equal(t, "kept", out["other"])
}

func TestApplyRenameKeepsPartiallyDrainedParent(t *testing.T) {
	ctx := context.Background()
	doc := map[string]any{
		"mcp": map[string]any{
			"github": map[string]any{"command": "gh"},
			"config": "inline",
		},
	}
	ops := []Operation{Rename{Mappings: []RenameEntry{{From: "mcp.github", To: "mcpServers.github"}}}}

	out, err := Apply(ctx, ops, doc, Env{})
	require.NoError(t, err)
	v, _ := pathutil.Get(out, "mcp.config")
	assert.Equal(t, "inline", v, "siblings left behind keep their parent")
	_, ok := pathutil.Get(out, "mcpServers.github.command")
	assert.True(t, ok)
}

func TestApplyRenamePreservesPreexistingEmptyObjects(t *testing.T) {
	ctx := context.Background()
	doc := map[string]any{
		"mcp":   map[string]any{},
		"hooks": map[string]any{"pre": "lint"},
	}
	ops := []Operation{Rename{Mappings: []RenameEntry{{From: "mcp.*", To: "mcpServers.*"}}}}

	out, err := Apply(ctx, ops, doc, Env{})
	require.NoError(t, err)
	_, ok := out["mcp"]
	assert.True(t, ok, "an empty object that was already empty is not ours to remove")
}

func TestApplyRenameMissingSource(t *testing.T) {
	ctx := context.Background()
	doc := map[string]any{"a": 1}
	ops := []Operation{Rename{Mappings: []RenameEntry{{From: "missing", To: "created"}}}}

	out, err := Apply(ctx, ops, doc, Env{})
	require.NoError(t, err)
	_, ok := out["created"]
	assert.False(t, ok, "renaming an absent path must not fabricate the target")
}

func TestApplyUnset(t *testing.T) {
	ctx := context.Background()
	doc := map[string]any{
		"keep": 1,
		"tools": map[string]any{
			"a": map[string]any{"secret": "x", "name": "a"},
			"b": map[string]any{"secret": "y"},
		},
	}
	ops := []Operation{Unset{Paths: []string{"tools.*.secret", "absent"}}}

	out, err := Apply(ctx, ops, doc, Env{})
	require.NoError(t, err)
	_, ok := pathutil.Get(out, "tools.a.secret")
	assert.False(t, ok)
	_, ok = pathutil.Get(out, "tools.b.secret")
	assert.False(t, ok)
	v, _ := pathutil.Get(out, "tools.a.name")
	assert.Equal(t, "a", v)
}

func TestApplySwitch(t *testing.T) {
	ctx := context.Background()
	sw := Switch{
		Field: "model",
		Cases: []Case{
			{Pattern: "claude-*", Value: "sonnet"},
			{Pattern: "*", Value: "first-wildcard-wins"},
		},
		Default:    "fallback",
		HasDefault: true,
	}

	out, err := Apply(ctx, []Operation{sw}, map[string]any{"model": "claude-3"}, Env{})
	require.NoError(t, err)
	assert.Equal(t, "sonnet", out["model"])

	out, err = Apply(ctx, []Operation{sw}, map[string]any{"model": "gpt-4"}, Env{})
	require.NoError(t, err)
	assert.Equal(t, "first-wildcard-wins", out["model"])

	// absent field: untouched, default does not fire
	out, err = Apply(ctx, []Operation{sw}, map[string]any{"other": 1}, Env{})
	require.NoError(t, err)
	_, ok := out["model"]
	assert.False(t, ok)
}

func TestApplySwitchDefault(t *testing.T) {
	ctx := context.Background()
	sw := Switch{
		Field:      "mode",
		Cases:      []Case{{Pattern: "strict", Value: "strict"}},
		Default:    "permissive",
		HasDefault: true,
	}
	out, err := Apply(ctx, []Operation{sw}, map[string]any{"mode": "whatever"}, Env{})
	require.NoError(t, err)
	assert.Equal(t, "permissive", out["mode"])
}

func TestApplyCopyWithTransform(t *testing.T) {
	ctx := context.Background()
	op := Copy{
		From: "model",
		To:   "provider",
		Transform: &Switch{
			Cases: []Case{
				{Pattern: "claude-*", Value: "anthropic"},
				{Pattern: "gpt-*", Value: "openai"},
			},
		},
	}
	out, err := Apply(ctx, []Operation{op}, map[string]any{"model": "claude-3"}, Env{})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", out["provider"])
	assert.Equal(t, "claude-3", out["model"], "source field survives a copy")

	// unmatched transform keeps the copied value
	out, err = Apply(ctx, []Operation{op}, map[string]any{"model": "llama"}, Env{})
	require.NoError(t, err)
	assert.Equal(t, "llama", out["provider"])

	// absent source copies nothing
	out, err = Apply(ctx, []Operation{op}, map[string]any{}, Env{})
	require.NoError(t, err)
	_, ok := out["provider"]
	assert.False(t, ok)
}

func TestApplyPipe(t *testing.T) {
	ctx := context.Background()
	reg := transform.Builtin()
	ops := []Operation{Pipe{Names: []string{"json-parse"}}}

	out, err := Apply(ctx, ops, map[string]any{transform.BodyKey: `{"a": 1}`}, Env{Registry: reg})
	require.NoError(t, err)
	assert.Equal(t, float64(1), out["a"])

	_, err = Apply(ctx, ops, map[string]any{transform.BodyKey: `{}`}, Env{})
	require.Error(t, err, "$pipe without a registry must fail")

	_, err = Apply(ctx, []Operation{Pipe{Names: []string{"nope"}}}, map[string]any{}, Env{Registry: reg})
	require.Error(t, err)
}

func TestOperationsComposeInOrder(t *testing.T) {
	ctx := context.Background()
	ops := []Operation{
		Set{Fields: []Field{{Path: "a", Value: 1}}},
		Rename{Mappings: []RenameEntry{{From: "a", To: "b"}}},
		Set{Fields: []Field{{Path: "a", Value: 2}}},
	}
	out, err := Apply(ctx, ops, map[string]any{}, Env{})
	require.NoError(t, err)
	assert.Equal(t, 1, out["b"])
	assert.Equal(t, 2, out["a"])
}

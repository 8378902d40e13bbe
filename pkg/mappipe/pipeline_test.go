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
)

func TestPipelineEmptyResultDeletesField(t *testing.T) {
	ctx := context.Background()
	op := Pipeline{
		Field: "tools",
		Operations: []Step{
			Filter{Value: true, HasValue: true},
			ObjectToArray{Extract: "keys"},
			Reduce{Type: "join", Separator: ", "},
		},
	}
	doc := map[string]any{
		"tools": map[string]any{"read": false, "write": false},
		"other": 1,
	}
	out, err := Apply(ctx, []Operation{op}, doc, Env{})
	require.NoError(t, err)
	_, ok := out["tools"]
	assert.False(t, ok, "empty string results delete the field")
	assert.Equal(t, 1, out["other"])
}

func TestPipelineAbsentFieldSkipped(t *testing.T) {
	ctx := context.Background()
	op := Pipeline{Field: "missing", Operations: []Step{ObjectToArray{Extract: "keys"}}}
	out, err := Apply(ctx, []Operation{op}, map[string]any{"a": 1}, Env{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1}, out)
}

func TestPipelineFilterAndJoin(t *testing.T) {
	ctx := context.Background()
	op := Pipeline{
		Field: "tools",
		Operations: []Step{
			Filter{Value: true, HasValue: true},
			ObjectToArray{Extract: "keys"},
			Reduce{Type: "join", Separator: ", "},
		},
	}
	doc := map[string]any{
		"tools": map[string]any{"read": true, "write": true, "bash": false},
	}
	out, err := Apply(ctx, []Operation{op}, doc, Env{})
	require.NoError(t, err)
	assert.Equal(t, "read, write", out["tools"])
}

func TestPipelineSplitAndArrayToObject(t *testing.T) {
	ctx := context.Background()
	op := Pipeline{
		Field: "tools",
		Operations: []Step{
			Reduce{Type: "split", Separator: ","},
			ArrayToObject{Value: true},
		},
	}
	doc := map[string]any{"tools": "read, write"}
	out, err := Apply(ctx, []Operation{op}, doc, Env{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"read": true, "write": true}, out["tools"])
}

func TestPipelineMapReplace(t *testing.T) {
	ctx := context.Background()
	op := Pipeline{
		Field: "tools",
		Operations: []Step{MapStep{Replace: map[string]string{
			"askuserquestion": "question",
			"switchmode":      "mode-switch",
		}}},
	}
	doc := map[string]any{"tools": []any{"askuserquestion", "switchmode", "readfile"}}
	out, err := Apply(ctx, []Operation{op}, doc, Env{})
	require.NoError(t, err)
	assert.Equal(t, []any{"question", "mode-switch", "readfile"}, out["tools"])
}

func TestPipelineMapEach(t *testing.T) {
	ctx := context.Background()
	doc := map[string]any{"names": []any{"alpha", "beta"}}
	op := Pipeline{Field: "names", Operations: []Step{MapStep{Each: "capitalize"}}}
	out, err := Apply(ctx, []Operation{op}, doc, Env{})
	require.NoError(t, err)
	assert.Equal(t, []any{"Alpha", "Beta"}, out["names"])

	op = Pipeline{Field: "names", Operations: []Step{MapStep{Each: "uppercase"}}}
	out, err = Apply(ctx, []Operation{op}, doc, Env{})
	require.NoError(t, err)
	assert.Equal(t, []any{"ALPHA", "BETA"}, out["names"])
}

func TestPipelineWildcardField(t *testing.T) {
	ctx := context.Background()
	op := Pipeline{
		Field:      "servers.*.tags",
		Operations: []Step{Reduce{Type: "join", Separator: "+"}},
	}
	doc := map[string]any{
		"servers": map[string]any{
			"a": map[string]any{"tags": []any{"x", "y"}},
			"b": map[string]any{"tags": []any{"z"}},
			"c": map[string]any{"name": "no tags"},
		},
	}
	out, err := Apply(ctx, []Operation{op}, doc, Env{})
	require.NoError(t, err)
	v, _ := pathutil.Get(out, "servers.a.tags")
	assert.Equal(t, "x+y", v)
	v, _ = pathutil.Get(out, "servers.b.tags")
	assert.Equal(t, "z", v)
	_, ok := pathutil.Get(out, "servers.c.tags")
	assert.False(t, ok, "missing branches are skipped, never fabricated")
}

func TestStepReplaceRegex(t *testing.T) {
	ctx := context.Background()
	op := Pipeline{
		Field: "body",
		Operations: []Step{Replace{
			Pattern: `\{\{(\w+)\}\}`,
			With:    "<$1>",
		}},
	}
	doc := map[string]any{"body": "run {{cmd}} with {{args}}"}
	out, err := Apply(ctx, []Operation{op}, doc, Env{})
	require.NoError(t, err)
	assert.Equal(t, "run <cmd> with <args>", out["body"])
}

func TestStepReplaceFlags(t *testing.T) {
	ctx := context.Background()
	op := Pipeline{
		Field:      "body",
		Operations: []Step{Replace{Pattern: "hello", With: "hi", Flags: "gi"}},
	}
	doc := map[string]any{"body": "Hello world, HELLO again"}
	out, err := Apply(ctx, []Operation{op}, doc, Env{})
	require.NoError(t, err)
	assert.Equal(t, "hi world, hi again", out["body"])

	bad := Pipeline{Field: "body", Operations: []Step{Replace{Pattern: "x", Flags: "q"}}}
	_, err = Apply(ctx, []Operation{bad}, doc, Env{})
	require.Error(t, err, "unsupported flags are rejected")
}

func TestStepPartition(t *testing.T) {
	ctx := context.Background()
	op := Pipeline{
		Field: "hooks",
		Operations: []Step{Partition{
			By: "key",
			Buckets: []Bucket{
				{Key: "pre", Pattern: "^pre-"},
				{Key: "post", Pattern: "^post-"},
			},
		}},
	}
	doc := map[string]any{
		"hooks": map[string]any{
			"pre-commit":  "a",
			"post-commit": "b",
			"pre-push":    "c",
			"unrelated":   "d",
		},
	}
	out, err := Apply(ctx, []Operation{op}, doc, Env{})
	require.NoError(t, err)
	hooks := out["hooks"].(map[string]any)
	assert.Equal(t, map[string]any{"pre-commit": "a", "pre-push": "c"}, hooks["pre"])
	assert.Equal(t, map[string]any{"post-commit": "b"}, hooks["post"])
	assert.Len(t, hooks, 2, "entries matching no bucket are dropped")
}

func TestStepExtract(t *testing.T) {
	ctx := context.Background()

	run := func(step Extract, value string) (any, error) {
		op := Pipeline{Field: "v", Operations: []Step{step}}
		out, err := Apply(ctx, []Operation{op}, map[string]any{"v": value}, Env{})
		if err != nil {
			return nil, err
		}
		return out["v"], nil
	}

	got, err := run(Extract{Pattern: `claude-(\w+)-`, Group: 1}, "claude-sonnet-4")
	require.NoError(t, err)
	assert.Equal(t, "sonnet", got)

	// explicit default on no match
	got, err = run(Extract{Pattern: `^gpt-(\d+)`, Group: 1, Default: "unknown", HasDefault: true}, "claude-3")
	require.NoError(t, err)
	assert.Equal(t, "unknown", got)

	// the sentinel keeps the input unchanged
	got, err = run(Extract{Pattern: `^gpt-(\d+)`, Group: 1, Default: OriginalSentinel, HasDefault: true}, "claude-3")
	require.NoError(t, err)
	assert.Equal(t, "claude-3", got)
}

func TestStepMapValues(t *testing.T) {
	ctx := context.Background()
	op := Pipeline{
		Field: "servers",
		Operations: []Step{MapValues{Operations: []Step{
			Filter{Key: "command", HasKey: true},
		}}},
	}
	doc := map[string]any{
		"servers": map[string]any{
			"gh": map[string]any{"command": "gh-mcp", "secret": "x"},
		},
	}
	out, err := Apply(ctx, []Operation{op}, doc, Env{})
	require.NoError(t, err)
	v, _ := pathutil.Get(out, "servers.gh")
	assert.Equal(t, map[string]any{"command": "gh-mcp"}, v)
}

func TestStepMergeFields(t *testing.T) {
	ctx := context.Background()
	doc := map[string]any{
		"cfg": map[string]any{
			"base":  map[string]any{"a": 1},
			"extra": map[string]any{"b": 2},
			"keep":  "scalar",
		},
	}

	op := Pipeline{
		Field:      "cfg",
		Operations: []Step{MergeFields{From: []string{"extra"}, To: "base"}},
	}
	out, err := Apply(ctx, []Operation{op}, doc, Env{})
	require.NoError(t, err)
	cfg := out["cfg"].(map[string]any)
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, cfg["base"])
	_, ok := cfg["extra"]
	assert.False(t, ok, "sources are removed by default")
	assert.Equal(t, "scalar", cfg["keep"])

	// remove: false keeps the sources
	keep := false
	op = Pipeline{
		Field:      "cfg",
		Operations: []Step{MergeFields{From: []string{"extra"}, To: "base", Remove: &keep}},
	}
	out, err = Apply(ctx, []Operation{op}, doc, Env{})
	require.NoError(t, err)
	cfg = out["cfg"].(map[string]any)
	assert.Equal(t, map[string]any{"b": 2}, cfg["extra"])
}

func TestStepObjectToArrayModes(t *testing.T) {
	ctx := context.Background()
	doc := map[string]any{"obj": map[string]any{"b": 2, "a": 1}}

	run := func(mode string) any {
		op := Pipeline{Field: "obj", Operations: []Step{ObjectToArray{Extract: mode}}}
		out, err := Apply(ctx, []Operation{op}, doc, Env{})
		require.NoError(t, err)
		return out["obj"]
	}

	assert.Equal(t, []any{"a", "b"}, run("keys"), "keys come out sorted")
	assert.Equal(t, []any{1, 2}, run("values"))
	assert.Equal(t, []any{
		map[string]any{"key": "a", "value": 1},
		map[string]any{"key": "b", "value": 2},
	}, run("entries"))
}

func TestStepReduceSumCount(t *testing.T) {
	ctx := context.Background()

	op := Pipeline{Field: "n", Operations: []Step{Reduce{Type: "sum"}}}
	out, err := Apply(ctx, []Operation{op}, map[string]any{"n": []any{1, 2, 3}}, Env{})
	require.NoError(t, err)
	assert.Equal(t, 6, out["n"])

	out, err = Apply(ctx, []Operation{op}, map[string]any{"n": []any{1, 2.5}}, Env{})
	require.NoError(t, err)
	assert.Equal(t, 3.5, out["n"])

	op = Pipeline{Field: "n", Operations: []Step{Reduce{Type: "count"}}}
	out, err = Apply(ctx, []Operation{op}, map[string]any{"n": []any{"a", "b"}}, Env{})
	require.NoError(t, err)
	assert.Equal(t, 2, out["n"])
}

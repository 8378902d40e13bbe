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

package convert

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/flowrc/pkg/config"
	"github.com/walteh/flowrc/pkg/flow"
	"github.com/walteh/flowrc/pkg/format"
	"github.com/walteh/flowrc/pkg/transform"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func cursorFlowSet() *config.FlowSet {
	return &config.FlowSet{
		Platforms: []config.PlatformConfig{{
			ID:   "cursor",
			Root: ".cursor",
			Import: []flow.Flow{
				{From: ".cursor/rules/{name}.mdc", To: "rules/{name}.md"},
				{From: ".cursor/mcp.json", To: "mcp/servers.json"},
			},
		}},
	}
}

func TestToUniversal(t *testing.T) {
	ctx := testContext(t)
	pkg := t.TempDir()
	writeTree(t, pkg, map[string]string{
		".cursor/rules/style.mdc": "Prefer tabs.\n",
		".cursor/mcp.json":        `{"gh": {"command": "gh-mcp"}}`,
		"README.md":               "docs\n",
	})

	conv := New(flow.NewExecutor(transform.Builtin()))
	convctx := format.NewContext(format.FormatIdentity{
		Type:       format.TypePlatformSpecific,
		Platform:   "cursor",
		DetectedAt: time.Now().UTC(),
		Confidence: 0.9,
	}, "claude")

	res, err := conv.ToUniversal(ctx, pkg, "base", "cursor", "claude", cursorFlowSet(), convctx)
	require.NoError(t, err)
	assert.True(t, res.Converted)
	require.Len(t, res.Stages, 1)
	assert.Equal(t, StagePlatformToUniversal, res.Stages[0].Stage)
	assert.Equal(t, 2, res.Stages[0].FilesWritten)

	// converted layout replaces the platform one
	assert.FileExists(t, filepath.Join(pkg, "rules", "style.md"))
	assert.FileExists(t, filepath.Join(pkg, "mcp", "servers.json"))
	assert.NoFileExists(t, filepath.Join(pkg, ".cursor", "rules", "style.mdc"))
	assert.NoFileExists(t, filepath.Join(pkg, ".cursor", "mcp.json"))

	// unmatched files carry over unchanged
	assert.FileExists(t, filepath.Join(pkg, "README.md"))

	// the audit record gains exactly one transition
	require.NotNil(t, res.Context)
	require.Len(t, res.Context.History, 1)
	assert.Equal(t, format.FormatState{Type: format.TypeUniversal}, res.Context.CurrentFormat)
	require.NoError(t, res.Context.Validate())
	// the input context is untouched
	assert.Empty(t, convctx.History)

	// a second pass finds no platform files and leaves the tree alone
	res2, err := conv.ToUniversal(ctx, pkg, "base", "cursor", "claude", cursorFlowSet(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res2.Stages[0].FilesWritten)
	assert.FileExists(t, filepath.Join(pkg, "rules", "style.md"))
}

func TestToUniversalMissingImportFlows(t *testing.T) {
	ctx := testContext(t)
	conv := New(flow.NewExecutor(transform.Builtin()))

	_, err := conv.ToUniversal(ctx, t.TempDir(), "base", "windsurf", "claude", cursorFlowSet(), nil)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StagePlatformToUniversal, stageErr.Stage)
}

func TestToUniversalRequiresSourcePlatform(t *testing.T) {
	ctx := testContext(t)
	conv := New(flow.NewExecutor(transform.Builtin()))
	_, err := conv.ToUniversal(ctx, t.TempDir(), "base", "", "claude", cursorFlowSet(), nil)
	require.Error(t, err)
}

func TestToUniversalFailedStageKeepsPackageIntact(t *testing.T) {
	ctx := testContext(t)
	pkg := t.TempDir()
	writeTree(t, pkg, map[string]string{
		".cursor/mcp.json": "{broken",
	})

	conv := New(flow.NewExecutor(transform.Builtin()))
	res, err := conv.ToUniversal(ctx, pkg, "base", "cursor", "claude", cursorFlowSet(), nil)
	require.Error(t, err)
	assert.False(t, res.Converted)
	require.Len(t, res.Stages, 1)
	assert.Error(t, res.Stages[0].Err)

	// the staged roots absorb the failure; the package is untouched
	assert.FileExists(t, filepath.Join(pkg, ".cursor", "mcp.json"))
	assert.NoFileExists(t, filepath.Join(pkg, "mcp", "servers.json"))
}

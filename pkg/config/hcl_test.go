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

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/flowrc/pkg/flow"
	"github.com/walteh/flowrc/pkg/mappipe"
)

const hclFlows = `
platform "claude" {
  root = ".claude"

  export {
    from = "agents/{name}.md"
    to   = ".claude/agents/{name}.md"
    pipe = ["frontmatter-split", "frontmatter-join"]
  }

  export {
    from  = "mcp/servers.json"
    to    = ".claude/mcp.json"
    embed = "mcpServers"
    map   = <<-EOT
      - $rename:
          model: claudeModel
    EOT
  }

  import {
    from = ".claude/agents/{name}.md"
    to   = "agents/{name}.md"
  }
}

platform "codex" {
  root = ".codex"

  export {
    from    = "rules/{name}.md"
    to      = "AGENTS.md"
    merge   = "composite"
    section = "rules"

    when {
      var    = "$$platform"
      equals = "codex"
    }
  }
}

global {
  export {
    from = "hooks/{name}.json"
    to   = "hooks/{name}.json"
  }
}
`

func TestHCLParser(t *testing.T) {
	ctx := testContext(t)
	p := &HCLParser{}

	assert.True(t, p.CanParse("flows.hcl"))
	assert.False(t, p.CanParse("flows.yaml"))

	fs, err := p.Parse(ctx, []byte(hclFlows))
	require.NoError(t, err)
	require.NoError(t, fs.Validate())
	require.Len(t, fs.Platforms, 2)

	claude, ok := fs.Platform("claude")
	require.True(t, ok)
	require.Len(t, claude.Export, 2)
	assert.Equal(t, []string{"frontmatter-split", "frontmatter-join"}, claude.Export[0].Pipe)

	// the map pipeline rides in as a YAML heredoc
	require.Len(t, claude.Export[1].Map, 1)
	rn, isRename := claude.Export[1].Map[0].(mappipe.Rename)
	require.True(t, isRename)
	assert.Equal(t, []mappipe.RenameEntry{{From: "model", To: "claudeModel"}}, rn.Mappings)
	assert.Equal(t, "mcpServers", claude.Export[1].Embed)

	codex, ok := fs.Platform("codex")
	require.True(t, ok)
	assert.Equal(t, flow.MergeComposite, codex.Export[0].Merge)
	assert.Equal(t, "rules", codex.Export[0].Section)
	require.NotNil(t, codex.Export[0].When)
	assert.Equal(t, "$$platform", codex.Export[0].When.Variable)
	assert.Equal(t, "codex", codex.Export[0].When.Equals)

	require.Len(t, fs.Global.Export, 1)
}

func TestHCLParserErrors(t *testing.T) {
	ctx := testContext(t)
	p := &HCLParser{}

	_, err := p.Parse(ctx, []byte(`platform "x" {`))
	require.Error(t, err)

	// a malformed heredoc pipeline fails at decode, not at execution
	_, err = p.Parse(ctx, []byte(`
platform "claude" {
  root = ".claude"
  export {
    from = "a"
    to   = "b"
    map  = "- $bogus: 1"
  }
}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "map pipeline")
}

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

package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectPlatformSpecific(t *testing.T) {
	d := NewDetector()
	paths := []string{
		".claude/agents/helper.md",
		".claude/commands/build.md",
		".claude/settings.json",
		"README.md",
	}
	f := d.Detect(paths)
	assert.Equal(t, TypePlatformSpecific, f.Type)
	assert.Equal(t, "claude", f.Platform)
	assert.InDelta(t, 0.75, f.Confidence, 1e-9)
}

func TestDetectUniversal(t *testing.T) {
	d := NewDetector()
	paths := []string{
		"agents/helper.md",
		"commands/build.md",
		"commands/test.md",
		"mcp/servers.json",
		"rules/style.md",
		"hooks/pre.json",
		"agents/review.md",
		"commands/deploy.md",
		".claude/settings.json",
		".claude/mcp.json",
	}
	f := d.Detect(paths)
	assert.Equal(t, TypeUniversal, f.Type)
	assert.InDelta(t, 0.8, f.Confidence, 1e-9, "8 of 10 paths under universal roots")
	assert.Equal(t, 2, f.Analysis.PlatformCounts["claude"])
}

func TestDetectEmptyPackage(t *testing.T) {
	f := NewDetector().Detect(nil)
	assert.Equal(t, TypeUniversal, f.Type)
	assert.Equal(t, 0.0, f.Confidence)
}

func TestDetectAmbiguousDefaultsUniversal(t *testing.T) {
	d := NewDetector()
	// half platform, half other: neither ratio crosses 0.7
	f := d.Detect([]string{
		".cursor/rules.md",
		".cursor/mcp.json",
		"docs/a.md",
		"docs/b.md",
	})
	assert.Equal(t, TypeUniversal, f.Type)
	assert.InDelta(t, 0.3, f.Confidence, 1e-9, "confidence floor applies when no universal paths exist")
}

func TestDetectSuffixClassification(t *testing.T) {
	d := NewDetector()
	f := d.Detect([]string{
		"agents/helper.cursor.md",
		"agents/review.cursor.md",
		"agents/deploy.cursor.md",
	})
	assert.Equal(t, TypePlatformSpecific, f.Type)
	assert.Equal(t, "cursor", f.Platform)
}

func TestDominantPlatformTieBreaksLexically(t *testing.T) {
	id, count := dominantPlatform(map[string]int{"codex": 2, "claude": 2})
	assert.Equal(t, "claude", id, "ties break lexically, never by map order")
	assert.Equal(t, 2, count)
}

func TestDetectSplitPlatformsStaysUniversal(t *testing.T) {
	d := NewDetector()
	// no single platform dominates even though every path is platform-rooted
	f := d.Detect([]string{
		".codex/a.md",
		".codex/b.md",
		".claude/a.md",
		".claude/b.md",
	})
	require.Equal(t, TypeUniversal, f.Type)
	assert.InDelta(t, 0.3, f.Confidence, 1e-9)
	assert.Equal(t, 2, f.Analysis.PlatformCounts["claude"])
	assert.Equal(t, 2, f.Analysis.PlatformCounts["codex"])
}

func TestNeedsConversion(t *testing.T) {
	universal := Format{Type: TypeUniversal}
	assert.False(t, NeedsConversion(universal, "claude"))

	cursor := Format{Type: TypePlatformSpecific, Platform: "cursor"}
	assert.True(t, NeedsConversion(cursor, "claude"))
	assert.False(t, NeedsConversion(cursor, "cursor"), "same-platform packages install directly")
}

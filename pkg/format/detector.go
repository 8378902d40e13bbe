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

// Package format classifies package layouts as universal or
// platform-specific and records the audit trail of format conversions a
// package undergoes.
package format

import (
	"sort"
	"strings"
)

// Type distinguishes the canonical schema from a tool-specific one.
type Type string

const (
	TypeUniversal        Type = "universal"
	TypePlatformSpecific Type = "platform-specific"
)

// 🧭 Platform describes one target tool's on-disk conventions.
type Platform struct {
	// ID is the platform identifier ("claude", "cursor", ...)
	ID string
	// Root is the platform's reserved top-level directory (".claude")
	Root string
}

// 📦 Format is the immutable result of one detection pass. It is never
// mutated, only replaced by a fresh pass.
type Format struct {
	Type       Type
	Platform   string
	Confidence float64
	Analysis   Analysis

	// IsNative overrides content transformation: the structure is
	// universal-shaped but the content is already platform-native, so
	// only path remapping applies.
	IsNative       bool
	NativePlatform string
}

// 📊 Analysis holds the raw path classification counts behind a Format.
type Analysis struct {
	Total          int
	Universal      int
	Other          int
	PlatformCounts map[string]int
}

// 🔍 Detector classifies file-path lists against a platform registry and
// a set of canonical universal root directories.
type Detector struct {
	Platforms      []Platform
	UniversalRoots []string
}

// confidenceFloor is the conservative non-zero confidence assigned to
// ambiguous signals.
const confidenceFloor = 0.3

// dominanceThreshold is the ratio either direction must exceed to win
// outright.
const dominanceThreshold = 0.7

// 🏭 NewDetector returns a detector configured with the default platform
// registry and universal roots.
func NewDetector() *Detector {
	return &Detector{
		Platforms: []Platform{
			{ID: "claude", Root: ".claude"},
			{ID: "codex", Root: ".codex"},
			{ID: "cursor", Root: ".cursor"},
			{ID: "windsurf", Root: ".windsurf"},
		},
		UniversalRoots: []string{"agents", "commands", "hooks", "mcp", "rules"},
	}
}

// 🎯 Detect classifies a package's file-path list. Each path is
// classified independently; the aggregate ratios decide:
//
//   - a platform ratio above 0.7 wins as platform-specific with that
//     ratio as confidence
//   - a universal ratio above 0.7 wins as universal likewise
//   - otherwise the package defaults to universal with confidence
//     max(universalRatio, 0.3)
//
// Ties between platforms break lexically by platform id, never by map
// iteration order.
func (d *Detector) Detect(paths []string) Format {
	analysis := Analysis{PlatformCounts: map[string]int{}}
	for _, p := range paths {
		analysis.Total++
		switch platform, kind := d.classify(p); kind {
		case TypeUniversal:
			analysis.Universal++
		case TypePlatformSpecific:
			analysis.PlatformCounts[platform]++
		default:
			analysis.Other++
		}
	}

	if analysis.Total == 0 {
		return Format{Type: TypeUniversal, Confidence: 0, Analysis: analysis}
	}

	universalRatio := float64(analysis.Universal) / float64(analysis.Total)
	dominant, count := dominantPlatform(analysis.PlatformCounts)
	platformRatio := float64(count) / float64(analysis.Total)

	switch {
	case platformRatio > dominanceThreshold:
		return Format{
			Type:       TypePlatformSpecific,
			Platform:   dominant,
			Confidence: platformRatio,
			Analysis:   analysis,
		}
	case universalRatio > dominanceThreshold:
		return Format{Type: TypeUniversal, Confidence: universalRatio, Analysis: analysis}
	default:
		confidence := universalRatio
		if confidence < confidenceFloor {
			confidence = confidenceFloor
		}
		return Format{Type: TypeUniversal, Confidence: confidence, Analysis: analysis}
	}
}

// classify buckets a single path: platform-specific when it lives under a
// platform's reserved root or carries a *.{platform}.* filename suffix,
// universal when under a canonical root, other otherwise.
func (d *Detector) classify(path string) (string, Type) {
	path = strings.TrimPrefix(strings.ReplaceAll(path, "\\", "/"), "./")
	first, _, _ := strings.Cut(path, "/")

	for _, p := range d.Platforms {
		if first == p.Root {
			return p.ID, TypePlatformSpecific
		}
	}
	base := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		base = path[idx+1:]
	}
	for _, p := range d.Platforms {
		if strings.Contains(base, "."+p.ID+".") {
			return p.ID, TypePlatformSpecific
		}
	}
	for _, root := range d.UniversalRoots {
		if first == root {
			return "", TypeUniversal
		}
	}
	return "", ""
}

func dominantPlatform(counts map[string]int) (string, int) {
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	best, bestCount := "", 0
	for _, id := range ids {
		if counts[id] > bestCount {
			best, bestCount = id, counts[id]
		}
	}
	return best, bestCount
}

// 🔄 NeedsConversion reports whether a detected format requires a
// conversion stage before installing to the target platform. Universal
// packages never do; platform-specific packages do exactly when their
// platform differs from the target.
func NeedsConversion(f Format, target string) bool {
	if f.Type != TypePlatformSpecific {
		return false
	}
	return f.Platform != target
}

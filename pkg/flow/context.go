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
	"fmt"
	"strings"

	"github.com/walteh/flowrc/pkg/mappipe"
	"github.com/walteh/flowrc/pkg/pathutil"
)

// ↔️ Direction distinguishes installing into a workspace from saving
// workspace edits back to the package source.
type Direction string

const (
	DirectionInstall Direction = "install"
	DirectionSave    Direction = "save"
)

// Well-known $$-prefixed context references. Everything else resolves
// through the user-declared variable overlay.
const (
	RefPlatform       = "$$platform"
	RefSource         = "$$source"
	RefSourcePlatform = "$$sourcePlatform"
	RefPackage        = "$$package"
	RefFilename       = "$$filename"
	RefFilepath       = "$$filepath"
	RefName           = "$$name"
)

// 🌐 Context carries everything a flow needs to execute against one
// package. The executor reads files under PackageRoot and writes under
// WorkspaceRoot regardless of Direction; callers swap the roots for
// save-side execution.
type Context struct {
	WorkspaceRoot string
	PackageRoot   string
	Platform      string
	PackageName   string
	Direction     Direction

	// Variables is the user-declared overlay plus source-provenance
	// bindings ($$source, $$sourcePlatform). Keys may be stored with or
	// without the $$ prefix.
	Variables map[string]any

	DryRun bool

	// WriteGate, when set, is consulted with the resolved target path
	// before each write. Returning false skips the write while the rest
	// of the result (discovery, transformation, target) is still
	// produced. The installer uses this to apply cross-package conflict
	// winners.
	WriteGate func(target string) bool
}

// 🔑 Resolver returns a mappipe.Resolver covering the well-known context
// references, the user overlay, and an optional per-file overlay (stem
// bindings, $$filename, $$filepath). All $$-resolution in the engine goes
// through here.
func (c *Context) Resolver(fileOverlay map[string]any) mappipe.Resolver {
	return func(ref string) (any, bool) {
		if fileOverlay != nil {
			if v, ok := fileOverlay[ref]; ok {
				return v, true
			}
			if v, ok := fileOverlay[strings.TrimPrefix(ref, "$$")]; ok {
				return v, true
			}
		}
		switch ref {
		case RefPlatform:
			return c.Platform, true
		case RefPackage:
			return c.PackageName, true
		}
		if c.Variables != nil {
			if v, ok := c.Variables[ref]; ok {
				return v, true
			}
			if v, ok := c.Variables[strings.TrimPrefix(ref, "$$")]; ok {
				return v, true
			}
		}
		return nil, false
	}
}

// ✅ Evaluate resolves the condition's variable and tests it. An unknown
// variable evaluates to false (a gated flow never runs on missing
// context).
func (cond *Condition) Evaluate(resolve mappipe.Resolver) bool {
	if cond == nil {
		return true
	}
	value, ok := resolve(cond.Variable)
	if !ok {
		return cond.Not
	}
	result := true
	switch {
	case cond.Matches != "":
		result = pathutil.MatchGlob(cond.Matches, fmt.Sprint(value))
	case cond.Equals != nil:
		result = pathutil.DeepEqual(cond.Equals, value)
	default:
		// bare `when: {var: x}` tests presence and truthiness
		result = value != nil && value != false && value != ""
	}
	if cond.Not {
		return !result
	}
	return result
}

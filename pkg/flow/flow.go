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

// Package flow defines declarative file-mapping flows and executes them:
// source discovery, map-pipeline transformation, named pipe transforms,
// merge strategies and flow inversion for save-back operations.
package flow

import (
	"github.com/walteh/flowrc/pkg/mappipe"
)

// 🔀 MergeStrategy is the policy for combining a flow's output with
// existing destination content.
type MergeStrategy string

const (
	// MergeReplace overwrites the destination file
	MergeReplace MergeStrategy = "replace"
	// MergeShallow merges parsed object trees one level deep
	MergeShallow MergeStrategy = "shallow"
	// MergeDeep merges parsed object trees recursively
	MergeDeep MergeStrategy = "deep"
	// MergeComposite appends to a sectioned shared text document
	MergeComposite MergeStrategy = "composite"
)

// 🎯 Flow is one declarative rule mapping a source path pattern to a
// destination path pattern. From and To use glob syntax plus `{name}`
// stem-capture placeholders shared between the two. A Flow is immutable
// once constructed.
type Flow struct {
	From    string             `yaml:"from" json:"from"`
	To      string             `yaml:"to" json:"to"`
	Map     mappipe.Operations `yaml:"map,omitempty" json:"map,omitempty"`
	Pipe    []string           `yaml:"pipe,omitempty" json:"pipe,omitempty"`
	Merge   MergeStrategy      `yaml:"merge,omitempty" json:"merge,omitempty"`
	When    *Condition         `yaml:"when,omitempty" json:"when,omitempty"`
	Embed   string             `yaml:"embed,omitempty" json:"embed,omitempty"`
	Section string             `yaml:"section,omitempty" json:"section,omitempty"`

	// InvertedFrom traces an inverted flow back to its origin flow's
	// from-pattern for diagnostics. Empty on forward flows.
	InvertedFrom string `yaml:"-" json:"-"`

	// SourcePlatform is set on inverted flows to the platform the
	// original forward flow exported to.
	SourcePlatform string `yaml:"-" json:"-"`
}

// Inverted reports whether this flow was derived by Invert.
func (f Flow) Inverted() bool {
	return f.InvertedFrom != ""
}

// MergeOrDefault returns the configured merge strategy, defaulting to
// replace.
func (f Flow) MergeOrDefault() MergeStrategy {
	if f.Merge == "" {
		return MergeReplace
	}
	return f.Merge
}

// 🚦 Condition gates a flow on a context variable. Equals compares by
// equality after resolution; Matches is a glob over the string form.
type Condition struct {
	Variable string `yaml:"var" json:"var"`
	Equals   any    `yaml:"equals,omitempty" json:"equals,omitempty"`
	Matches  string `yaml:"matches,omitempty" json:"matches,omitempty"`
	Not      bool   `yaml:"not,omitempty" json:"not,omitempty"`
}

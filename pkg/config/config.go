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

// Package config loads and validates flow-set configuration: the
// per-platform import/export flow definitions driving conversion and
// installation.
package config

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/walteh/flowrc/pkg/flow"
	"github.com/walteh/flowrc/pkg/mappipe"
	"gitlab.com/tozd/go/errors"
)

// 🔌 Parser is the interface for flow-set parsers
type Parser interface {
	// 📝 Parse parses the flow set from bytes
	Parse(ctx context.Context, data []byte) (*FlowSet, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 🧭 PlatformConfig declares one target tool: its reserved root
// directory and the flows converting between its schema and the
// universal one.
type PlatformConfig struct {
	ID   string `json:"id" yaml:"id"`
	Root string `json:"root" yaml:"root"`

	// Import flows convert platform-specific files to universal form
	Import []flow.Flow `json:"import,omitempty" yaml:"import,omitempty"`

	// Export flows convert universal files to this platform's form
	Export []flow.Flow `json:"export,omitempty" yaml:"export,omitempty"`
}

// 🌍 GlobalFlows apply to every platform in addition to its own flows.
type GlobalFlows struct {
	Import []flow.Flow `json:"import,omitempty" yaml:"import,omitempty"`
	Export []flow.Flow `json:"export,omitempty" yaml:"export,omitempty"`
}

// 📚 FlowSet is the complete flow configuration.
type FlowSet struct {
	Platforms []PlatformConfig `json:"platforms" yaml:"platforms"`
	Global    GlobalFlows      `json:"global,omitempty" yaml:"global,omitempty"`
}

// 🎯 Load loads the flow set from a file
func Load(ctx context.Context, path string) (*FlowSet, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading flow configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading flow configuration: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	fs, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing flow configuration: %w", err)
	}

	if err := fs.Validate(); err != nil {
		return nil, errors.Errorf("validating flow configuration: %w", err)
	}

	return fs, nil
}

// 🔍 Platform returns the configuration for a platform id.
func (fs *FlowSet) Platform(id string) (*PlatformConfig, bool) {
	for i := range fs.Platforms {
		if fs.Platforms[i].ID == id {
			return &fs.Platforms[i], true
		}
	}
	return nil, false
}

// ImportFlows returns the union of a platform's import flows and the
// global import flows, in declaration order (platform first).
func (fs *FlowSet) ImportFlows(platformID string) []flow.Flow {
	var out []flow.Flow
	if p, ok := fs.Platform(platformID); ok {
		out = append(out, p.Import...)
	}
	out = append(out, fs.Global.Import...)
	return out
}

// ExportFlows returns the union of a platform's export flows and the
// global export flows, in declaration order (platform first).
func (fs *FlowSet) ExportFlows(platformID string) []flow.Flow {
	var out []flow.Flow
	if p, ok := fs.Platform(platformID); ok {
		out = append(out, p.Export...)
	}
	out = append(out, fs.Global.Export...)
	return out
}

// ✅ Validate lints every flow: patterns must compile and every map
// operation must pass the structural validation pass.
func (fs *FlowSet) Validate() error {
	if len(fs.Platforms) == 0 {
		return errors.Errorf("at least one platform is required")
	}
	seen := map[string]bool{}
	for _, p := range fs.Platforms {
		if p.ID == "" {
			return errors.Errorf("platform id is required")
		}
		if seen[p.ID] {
			return errors.Errorf("duplicate platform %q", p.ID)
		}
		seen[p.ID] = true
		for i, f := range p.Import {
			if err := validateFlow(f); err != nil {
				return errors.Errorf("platform %s import flow %d: %w", p.ID, i, err)
			}
		}
		for i, f := range p.Export {
			if err := validateFlow(f); err != nil {
				return errors.Errorf("platform %s export flow %d: %w", p.ID, i, err)
			}
		}
	}
	for i, f := range fs.Global.Import {
		if err := validateFlow(f); err != nil {
			return errors.Errorf("global import flow %d: %w", i, err)
		}
	}
	for i, f := range fs.Global.Export {
		if err := validateFlow(f); err != nil {
			return errors.Errorf("global export flow %d: %w", i, err)
		}
	}
	return nil
}

func validateFlow(f flow.Flow) error {
	if err := flow.CheckPattern(f.From); err != nil {
		return errors.Errorf("from: %w", err)
	}
	if err := flow.CheckPattern(f.To); err != nil {
		return errors.Errorf("to: %w", err)
	}
	switch f.Merge {
	case "", flow.MergeReplace, flow.MergeShallow, flow.MergeDeep, flow.MergeComposite:
	default:
		return errors.Errorf("unknown merge strategy %q", f.Merge)
	}
	if vr := mappipe.ValidateAll(f.Map); !vr.Valid {
		return errors.Errorf("map pipeline invalid: %s", joinErrors(vr.Errors))
	}
	return nil
}

func joinErrors(errs []string) string {
	out := ""
	for i, e := range errs {
		if i > 0 {
			out += "; "
		}
		out += e
	}
	return out
}

// 📝 String returns a short description of the flow set
func (fs *FlowSet) String() string {
	return fmt.Sprintf("%d platforms, %d global flows",
		len(fs.Platforms), len(fs.Global.Import)+len(fs.Global.Export))
}

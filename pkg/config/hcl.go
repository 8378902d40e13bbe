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
	"context"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/walteh/flowrc/pkg/flow"
	"github.com/walteh/flowrc/pkg/mappipe"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

func init() {
	Register(&HCLParser{})
}

func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".hcl")
}

// HCL carries the map pipeline as an embedded YAML heredoc: HCL has no
// natural syntax for the tagged operation lists.
type hclFlowSet struct {
	Platforms []hclPlatform `hcl:"platform,block"`
	Global    *hclGlobal    `hcl:"global,block"`
}

type hclPlatform struct {
	ID     string    `hcl:"id,label"`
	Root   string    `hcl:"root"`
	Import []hclFlow `hcl:"import,block"`
	Export []hclFlow `hcl:"export,block"`
}

type hclGlobal struct {
	Import []hclFlow `hcl:"import,block"`
	Export []hclFlow `hcl:"export,block"`
}

type hclFlow struct {
	From    string   `hcl:"from"`
	To      string   `hcl:"to"`
	Merge   string   `hcl:"merge,optional"`
	Pipe    []string `hcl:"pipe,optional"`
	Map     string   `hcl:"map,optional"`
	Embed   string   `hcl:"embed,optional"`
	Section string   `hcl:"section,optional"`
	When    *hclWhen `hcl:"when,block"`
}

type hclWhen struct {
	Var     string `hcl:"var"`
	Equals  string `hcl:"equals,optional"`
	Matches string `hcl:"matches,optional"`
	Not     bool   `hcl:"not,optional"`
}

func (p *HCLParser) Parse(ctx context.Context, data []byte) (*FlowSet, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "flows.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
	}

	var raw hclFlowSet
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &raw)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	fs := &FlowSet{}
	for _, pl := range raw.Platforms {
		pc := PlatformConfig{ID: pl.ID, Root: pl.Root}
		for _, hf := range pl.Import {
			f, err := hf.toFlow()
			if err != nil {
				return nil, errors.Errorf("platform %s import: %w", pl.ID, err)
			}
			pc.Import = append(pc.Import, f)
		}
		for _, hf := range pl.Export {
			f, err := hf.toFlow()
			if err != nil {
				return nil, errors.Errorf("platform %s export: %w", pl.ID, err)
			}
			pc.Export = append(pc.Export, f)
		}
		fs.Platforms = append(fs.Platforms, pc)
	}
	if raw.Global != nil {
		for _, hf := range raw.Global.Import {
			f, err := hf.toFlow()
			if err != nil {
				return nil, errors.Errorf("global import: %w", err)
			}
			fs.Global.Import = append(fs.Global.Import, f)
		}
		for _, hf := range raw.Global.Export {
			f, err := hf.toFlow()
			if err != nil {
				return nil, errors.Errorf("global export: %w", err)
			}
			fs.Global.Export = append(fs.Global.Export, f)
		}
	}
	return fs, nil
}

func (hf hclFlow) toFlow() (flow.Flow, error) {
	f := flow.Flow{
		From:    hf.From,
		To:      hf.To,
		Pipe:    hf.Pipe,
		Merge:   flow.MergeStrategy(hf.Merge),
		Embed:   hf.Embed,
		Section: hf.Section,
	}
	if hf.Map != "" {
		var ops mappipe.Operations
		if err := yaml.Unmarshal([]byte(hf.Map), &ops); err != nil {
			return flow.Flow{}, errors.Errorf("parsing map pipeline: %w", err)
		}
		f.Map = ops
	}
	if hf.When != nil {
		cond := &flow.Condition{
			Variable: hf.When.Var,
			Matches:  hf.When.Matches,
			Not:      hf.When.Not,
		}
		if hf.When.Equals != "" {
			cond.Equals = hf.When.Equals
		}
		f.When = cond
	}
	return f, nil
}

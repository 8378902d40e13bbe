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

	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// 🔧 JSONParser implements the Parser interface for JSON files.
// JSON is decoded through the YAML decoder: YAML 1.2 is a superset of
// JSON, and the tagged map-pipeline operations only carry a yaml.Node
// decode hook.
type JSONParser struct{}

func init() {
	Register(&JSONParser{})
}

// 🔍 CanParse checks if this parser can handle the given file
func (p *JSONParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".json")
}

// 📝 Parse parses the flow set from JSON bytes
func (p *JSONParser) Parse(ctx context.Context, data []byte) (*FlowSet, error) {
	var fs FlowSet
	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&fs); err != nil {
		return nil, errors.Errorf("parsing JSON: %w", err)
	}
	return &fs, nil
}

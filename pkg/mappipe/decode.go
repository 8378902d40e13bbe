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
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// 📜 Operations decodes a YAML (or JSON) list of tagged operations into
// the concrete variant types. Each list element must be a single-key
// mapping whose key is the operation tag.
type Operations []Operation

func (ops *Operations) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return errors.Errorf("map pipeline must be a list, got %s", kindName(node.Kind))
	}
	out := make(Operations, 0, len(node.Content))
	for i, item := range node.Content {
		op, err := decodeOperation(item)
		if err != nil {
			return errors.Errorf("operation %d: %w", i, err)
		}
		out = append(out, op)
	}
	*ops = out
	return nil
}

// 📜 Steps decodes a YAML list of tagged pipeline steps.
type Steps []Step

func (st *Steps) UnmarshalYAML(node *yaml.Node) error {
	steps, err := decodeSteps(node)
	if err != nil {
		return err
	}
	*st = steps
	return nil
}

func decodeOperation(node *yaml.Node) (Operation, error) {
	tag, body, err := singleKey(node)
	if err != nil {
		return nil, err
	}
	switch tag {
	case "$set":
		return decodeSet(body)
	case "$rename":
		return decodeRename(body)
	case "$unset":
		return decodeUnset(body)
	case "$switch":
		sw, err := decodeSwitch(body)
		if err != nil {
			return nil, err
		}
		return *sw, nil
	case "$pipeline":
		return decodePipeline(body)
	case "$copy":
		return decodeCopy(body)
	case "$pipe":
		return decodePipe(body)
	default:
		return nil, errors.Errorf("unknown operation %q", tag)
	}
}

func decodeSet(body *yaml.Node) (Set, error) {
	if body.Kind != yaml.MappingNode {
		return Set{}, errors.Errorf("$set: expected mapping of path to value")
	}
	op := Set{}
	for i := 0; i < len(body.Content); i += 2 {
		var value any
		if err := body.Content[i+1].Decode(&value); err != nil {
			return Set{}, errors.Errorf("$set %q: %w", body.Content[i].Value, err)
		}
		op.Fields = append(op.Fields, Field{Path: body.Content[i].Value, Value: value})
	}
	return op, nil
}

func decodeRename(body *yaml.Node) (Rename, error) {
	if body.Kind != yaml.MappingNode {
		return Rename{}, errors.Errorf("$rename: expected mapping of old path to new path")
	}
	op := Rename{}
	for i := 0; i < len(body.Content); i += 2 {
		op.Mappings = append(op.Mappings, RenameEntry{
			From: body.Content[i].Value,
			To:   body.Content[i+1].Value,
		})
	}
	return op, nil
}

func decodeUnset(body *yaml.Node) (Unset, error) {
	switch body.Kind {
	case yaml.ScalarNode:
		return Unset{Paths: []string{body.Value}}, nil
	case yaml.SequenceNode:
		var paths []string
		if err := body.Decode(&paths); err != nil {
			return Unset{}, errors.Errorf("$unset: %w", err)
		}
		return Unset{Paths: paths}, nil
	default:
		return Unset{}, errors.Errorf("$unset: expected path or list of paths")
	}
}

func decodeSwitch(body *yaml.Node) (*Switch, error) {
	if body.Kind != yaml.MappingNode {
		return nil, errors.Errorf("$switch: expected mapping")
	}
	op := &Switch{}
	for i := 0; i < len(body.Content); i += 2 {
		key, val := body.Content[i].Value, body.Content[i+1]
		switch key {
		case "field":
			op.Field = val.Value
		case "cases":
			if val.Kind != yaml.SequenceNode {
				return nil, errors.Errorf("$switch: cases must be a list")
			}
			for _, c := range val.Content {
				var raw struct {
					Pattern any `yaml:"pattern"`
					Value   any `yaml:"value"`
				}
				if err := c.Decode(&raw); err != nil {
					return nil, errors.Errorf("$switch case: %w", err)
				}
				op.Cases = append(op.Cases, Case{Pattern: raw.Pattern, Value: raw.Value})
			}
		case "default":
			if err := val.Decode(&op.Default); err != nil {
				return nil, errors.Errorf("$switch default: %w", err)
			}
			op.HasDefault = true
		default:
			return nil, errors.Errorf("$switch: unknown key %q", key)
		}
	}
	return op, nil
}

func decodePipeline(body *yaml.Node) (Pipeline, error) {
	if body.Kind != yaml.MappingNode {
		return Pipeline{}, errors.Errorf("$pipeline: expected mapping")
	}
	op := Pipeline{}
	for i := 0; i < len(body.Content); i += 2 {
		key, val := body.Content[i].Value, body.Content[i+1]
		switch key {
		case "field":
			op.Field = val.Value
		case "operations":
			steps, err := decodeSteps(val)
			if err != nil {
				return Pipeline{}, errors.Errorf("$pipeline: %w", err)
			}
			op.Operations = steps
		default:
			return Pipeline{}, errors.Errorf("$pipeline: unknown key %q", key)
		}
	}
	return op, nil
}

func decodeCopy(body *yaml.Node) (Copy, error) {
	if body.Kind != yaml.MappingNode {
		return Copy{}, errors.Errorf("$copy: expected mapping")
	}
	op := Copy{}
	for i := 0; i < len(body.Content); i += 2 {
		key, val := body.Content[i].Value, body.Content[i+1]
		switch key {
		case "from":
			op.From = val.Value
		case "to":
			op.To = val.Value
		case "transform":
			sw, err := decodeSwitch(val)
			if err != nil {
				return Copy{}, errors.Errorf("$copy transform: %w", err)
			}
			op.Transform = sw
		default:
			return Copy{}, errors.Errorf("$copy: unknown key %q", key)
		}
	}
	return op, nil
}

func decodePipe(body *yaml.Node) (Pipe, error) {
	switch body.Kind {
	case yaml.ScalarNode:
		return Pipe{Names: []string{body.Value}}, nil
	case yaml.SequenceNode:
		var names []string
		if err := body.Decode(&names); err != nil {
			return Pipe{}, errors.Errorf("$pipe: %w", err)
		}
		return Pipe{Names: names}, nil
	default:
		return Pipe{}, errors.Errorf("$pipe: expected name or list of names")
	}
}

func decodeSteps(node *yaml.Node) ([]Step, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, errors.Errorf("steps must be a list, got %s", kindName(node.Kind))
	}
	out := make([]Step, 0, len(node.Content))
	for i, item := range node.Content {
		step, err := decodeStep(item)
		if err != nil {
			return nil, errors.Errorf("step %d: %w", i, err)
		}
		out = append(out, step)
	}
	return out, nil
}

func decodeStep(node *yaml.Node) (Step, error) {
	tag, body, err := singleKey(node)
	if err != nil {
		return nil, err
	}
	switch tag {
	case "$filter":
		return decodeFilter(body)
	case "$objectToArray":
		return decodeObjectToArray(body)
	case "$arrayToObject":
		var raw struct {
			Value any `yaml:"value"`
		}
		if err := body.Decode(&raw); err != nil {
			return nil, errors.Errorf("$arrayToObject: %w", err)
		}
		return ArrayToObject{Value: raw.Value}, nil
	case "$map":
		var raw struct {
			Each    string            `yaml:"each"`
			Replace map[string]string `yaml:"replace"`
		}
		if err := body.Decode(&raw); err != nil {
			return nil, errors.Errorf("$map: %w", err)
		}
		return MapStep{Each: raw.Each, Replace: raw.Replace}, nil
	case "$reduce":
		var raw struct {
			Type      string `yaml:"type"`
			Separator string `yaml:"separator"`
		}
		if err := body.Decode(&raw); err != nil {
			return nil, errors.Errorf("$reduce: %w", err)
		}
		return Reduce{Type: raw.Type, Separator: raw.Separator}, nil
	case "$replace":
		var raw struct {
			Pattern string `yaml:"pattern"`
			With    string `yaml:"with"`
			Flags   string `yaml:"flags"`
		}
		if err := body.Decode(&raw); err != nil {
			return nil, errors.Errorf("$replace: %w", err)
		}
		return Replace{Pattern: raw.Pattern, With: raw.With, Flags: raw.Flags}, nil
	case "$partition":
		return decodePartition(body)
	case "$extract":
		return decodeExtract(body)
	case "$mapValues":
		if body.Kind != yaml.MappingNode {
			return nil, errors.Errorf("$mapValues: expected mapping")
		}
		op := MapValues{}
		for i := 0; i < len(body.Content); i += 2 {
			if body.Content[i].Value != "operations" {
				return nil, errors.Errorf("$mapValues: unknown key %q", body.Content[i].Value)
			}
			steps, err := decodeSteps(body.Content[i+1])
			if err != nil {
				return nil, errors.Errorf("$mapValues: %w", err)
			}
			op.Operations = steps
		}
		return op, nil
	case "$mergeFields":
		var raw struct {
			From   []string `yaml:"from"`
			To     string   `yaml:"to"`
			Remove *bool    `yaml:"remove"`
		}
		if err := body.Decode(&raw); err != nil {
			return nil, errors.Errorf("$mergeFields: %w", err)
		}
		return MergeFields{From: raw.From, To: raw.To, Remove: raw.Remove}, nil
	default:
		return nil, errors.Errorf("unknown pipeline step %q", tag)
	}
}

func decodeFilter(body *yaml.Node) (Filter, error) {
	if body.Kind != yaml.MappingNode {
		return Filter{}, errors.Errorf("$filter: expected mapping")
	}
	op := Filter{}
	for i := 0; i < len(body.Content); i += 2 {
		if body.Content[i].Value != "match" {
			return Filter{}, errors.Errorf("$filter: unknown key %q", body.Content[i].Value)
		}
		match := body.Content[i+1]
		if match.Kind != yaml.MappingNode {
			return Filter{}, errors.Errorf("$filter: match must be a mapping")
		}
		for j := 0; j < len(match.Content); j += 2 {
			key, val := match.Content[j].Value, match.Content[j+1]
			switch key {
			case "value":
				if err := val.Decode(&op.Value); err != nil {
					return Filter{}, errors.Errorf("$filter match.value: %w", err)
				}
				op.HasValue = true
			case "key":
				if err := val.Decode(&op.Key); err != nil {
					return Filter{}, errors.Errorf("$filter match.key: %w", err)
				}
				op.HasKey = true
			default:
				return Filter{}, errors.Errorf("$filter: unknown match key %q", key)
			}
		}
	}
	return op, nil
}

func decodeObjectToArray(body *yaml.Node) (ObjectToArray, error) {
	// `$objectToArray: true` is shorthand for extracting entries
	if body.Kind == yaml.ScalarNode {
		return ObjectToArray{Extract: "entries"}, nil
	}
	var raw struct {
		Extract string `yaml:"extract"`
	}
	if err := body.Decode(&raw); err != nil {
		return ObjectToArray{}, errors.Errorf("$objectToArray: %w", err)
	}
	if raw.Extract == "" {
		raw.Extract = "entries"
	}
	return ObjectToArray{Extract: raw.Extract}, nil
}

func decodePartition(body *yaml.Node) (Partition, error) {
	if body.Kind != yaml.MappingNode {
		return Partition{}, errors.Errorf("$partition: expected mapping")
	}
	op := Partition{By: "value"}
	for i := 0; i < len(body.Content); i += 2 {
		key, val := body.Content[i].Value, body.Content[i+1]
		switch key {
		case "by":
			op.By = val.Value
		case "patterns":
			if val.Kind != yaml.MappingNode {
				return Partition{}, errors.Errorf("$partition: patterns must be a mapping")
			}
			for j := 0; j < len(val.Content); j += 2 {
				op.Buckets = append(op.Buckets, Bucket{
					Key:     val.Content[j].Value,
					Pattern: val.Content[j+1].Value,
				})
			}
		default:
			return Partition{}, errors.Errorf("$partition: unknown key %q", key)
		}
	}
	return op, nil
}

func decodeExtract(body *yaml.Node) (Extract, error) {
	if body.Kind != yaml.MappingNode {
		return Extract{}, errors.Errorf("$extract: expected mapping")
	}
	op := Extract{}
	for i := 0; i < len(body.Content); i += 2 {
		key, val := body.Content[i].Value, body.Content[i+1]
		switch key {
		case "pattern":
			op.Pattern = val.Value
		case "group":
			if err := val.Decode(&op.Group); err != nil {
				return Extract{}, errors.Errorf("$extract group: %w", err)
			}
		case "default":
			op.Default = val.Value
			op.HasDefault = true
		default:
			return Extract{}, errors.Errorf("$extract: unknown key %q", key)
		}
	}
	return op, nil
}

func singleKey(node *yaml.Node) (string, *yaml.Node, error) {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return "", nil, errors.Errorf("expected a single-key mapping tagged with the operation name")
	}
	return node.Content[0].Value, node.Content[1], nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}

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
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/walteh/flowrc/pkg/transform"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// DecodeDocument parses file content into a document by extension.
// JSON and YAML files become structured documents; everything else
// travels as an opaque `body` pseudo-document until a pipe transform
// restructures it.
func DecodeDocument(path string, data []byte) (map[string]any, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, errors.Errorf("parsing JSON document %s: %w", path, err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
		return doc, nil
	case ".yaml", ".yml":
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errors.Errorf("parsing YAML document %s: %w", path, err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
		return doc, nil
	default:
		return map[string]any{transform.BodyKey: string(data)}, nil
	}
}

// EncodeDocument serializes a document for its destination path. A
// body-only document written to a non-structured extension round-trips
// as raw text.
func EncodeDocument(path string, doc map[string]any) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, errors.Errorf("serializing JSON document %s: %w", path, err)
		}
		return append(data, '\n'), nil
	case ".yaml", ".yml":
		data, err := yaml.Marshal(doc)
		if err != nil {
			return nil, errors.Errorf("serializing YAML document %s: %w", path, err)
		}
		return data, nil
	default:
		if body, ok := doc[transform.BodyKey].(string); ok && len(doc) == 1 {
			return []byte(body), nil
		}
		// a structured document headed to a text file still needs a
		// serialization; YAML is the canonical one
		data, err := yaml.Marshal(doc)
		if err != nil {
			return nil, errors.Errorf("serializing document %s: %w", path, err)
		}
		return data, nil
	}
}

// BodyOnly reports whether a document is a pure opaque-text document.
func BodyOnly(doc map[string]any) (string, bool) {
	body, ok := doc[transform.BodyKey].(string)
	if !ok || len(doc) != 1 {
		return "", false
	}
	return body, true
}

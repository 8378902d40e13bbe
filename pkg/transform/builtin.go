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

package transform

import (
	"context"
	"encoding/json"
	"strings"

	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// BodyKey is the pseudo-field under which opaque text content travels
// through the pipeline.
const BodyKey = "body"

// FrontmatterKey holds the parsed frontmatter once split from the body.
const FrontmatterKey = "frontmatter"

const frontmatterFence = "---"

// 🏭 Builtin returns a registry pre-populated with the bidirectional
// format converters and one-way filters that ship with flowrc.
func Builtin() *MapRegistry {
	r := NewRegistry()
	r.RegisterPair("frontmatter-split", frontmatterSplit, "frontmatter-join", frontmatterJoin)
	r.RegisterPair("yaml-parse", yamlParse, "yaml-stringify", yamlStringify)
	r.RegisterPair("json-parse", jsonParse, "json-stringify", jsonStringify)
	r.Register("strip-empty", stripEmpty)
	return r
}

// frontmatterSplit turns a markdown body with YAML frontmatter into
// {frontmatter: {...}, body: "..."}. A body without a frontmatter fence
// passes through unchanged.
func frontmatterSplit(ctx context.Context, doc map[string]any) (map[string]any, error) {
	body, ok := doc[BodyKey].(string)
	if !ok {
		return doc, nil
	}
	rest, matter, found := cutFrontmatter(body)
	if !found {
		return doc, nil
	}

	var fm map[string]any
	if err := yaml.Unmarshal([]byte(matter), &fm); err != nil {
		return nil, errors.Errorf("parsing frontmatter: %w", err)
	}

	out := make(map[string]any, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	out[FrontmatterKey] = fm
	out[BodyKey] = rest
	return out, nil
}

// frontmatterJoin re-serializes {frontmatter, body} into a fenced
// markdown document. A document without frontmatter passes through.
func frontmatterJoin(ctx context.Context, doc map[string]any) (map[string]any, error) {
	fm, ok := doc[FrontmatterKey].(map[string]any)
	if !ok {
		return doc, nil
	}
	body, _ := doc[BodyKey].(string)

	data, err := yaml.Marshal(fm)
	if err != nil {
		return nil, errors.Errorf("serializing frontmatter: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(frontmatterFence + "\n")
	sb.Write(data)
	sb.WriteString(frontmatterFence + "\n")
	if body != "" {
		sb.WriteString("\n")
		sb.WriteString(body)
	}

	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == FrontmatterKey {
			continue
		}
		out[k] = v
	}
	out[BodyKey] = sb.String()
	return out, nil
}

func cutFrontmatter(body string) (rest, matter string, found bool) {
	if !strings.HasPrefix(body, frontmatterFence+"\n") {
		return body, "", false
	}
	remainder := body[len(frontmatterFence)+1:]
	idx := strings.Index(remainder, "\n"+frontmatterFence)
	if idx < 0 {
		return body, "", false
	}
	matter = remainder[:idx+1]
	rest = remainder[idx+1+len(frontmatterFence):]
	rest = strings.TrimPrefix(rest, "\n")
	rest = strings.TrimPrefix(rest, "\n")
	return rest, matter, true
}

func yamlParse(ctx context.Context, doc map[string]any) (map[string]any, error) {
	body, ok := doc[BodyKey].(string)
	if !ok {
		return doc, nil
	}
	var parsed map[string]any
	if err := yaml.Unmarshal([]byte(body), &parsed); err != nil {
		return nil, errors.Errorf("parsing YAML body: %w", err)
	}
	if parsed == nil {
		parsed = map[string]any{}
	}
	return parsed, nil
}

func yamlStringify(ctx context.Context, doc map[string]any) (map[string]any, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, errors.Errorf("serializing YAML body: %w", err)
	}
	return map[string]any{BodyKey: string(data)}, nil
}

func jsonParse(ctx context.Context, doc map[string]any) (map[string]any, error) {
	body, ok := doc[BodyKey].(string)
	if !ok {
		return doc, nil
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return nil, errors.Errorf("parsing JSON body: %w", err)
	}
	if parsed == nil {
		parsed = map[string]any{}
	}
	return parsed, nil
}

func jsonStringify(ctx context.Context, doc map[string]any) (map[string]any, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Errorf("serializing JSON body: %w", err)
	}
	return map[string]any{BodyKey: string(data) + "\n"}, nil
}

// stripEmpty is a one-way filter removing empty-valued top-level fields.
func stripEmpty(ctx context.Context, doc map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		switch t := v.(type) {
		case string:
			if t == "" {
				continue
			}
		case []any:
			if len(t) == 0 {
				continue
			}
		case map[string]any:
			if len(t) == 0 {
				continue
			}
		case nil:
			continue
		}
		out[k] = v
	}
	return out, nil
}

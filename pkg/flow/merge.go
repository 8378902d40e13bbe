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

	"github.com/walteh/flowrc/pkg/pathutil"
)

// shallowMerge overwrites whole top-level keys of dst with src.
func shallowMerge(dst, src map[string]any) map[string]any {
	out := pathutil.CloneDoc(dst)
	if out == nil {
		out = map[string]any{}
	}
	for k, v := range src {
		out[k] = pathutil.Clone(v)
	}
	return out
}

// deepMerge merges src into dst recursively; non-object values from src
// win at every depth.
func deepMerge(dst, src map[string]any) map[string]any {
	out := pathutil.CloneDoc(dst)
	if out == nil {
		out = map[string]any{}
	}
	for k, v := range src {
		if sv, ok := v.(map[string]any); ok {
			if dv, ok := out[k].(map[string]any); ok {
				out[k] = deepMerge(dv, sv)
				continue
			}
		}
		out[k] = pathutil.Clone(v)
	}
	return out
}

// sectionOpen/sectionClose delimit one package's contribution inside a
// composite (shared, append-only sectioned) text document.
func sectionOpen(name string) string  { return fmt.Sprintf("<!-- flowrc:section:%s -->", name) }
func sectionClose(name string) string { return fmt.Sprintf("<!-- /flowrc:section:%s -->", name) }

// compositeMerge replaces the named section of a shared text document,
// or appends it when absent. Content outside the section is never
// touched.
func compositeMerge(existing, section, content string) string {
	open := sectionOpen(section)
	close := sectionClose(section)
	block := open + "\n" + strings.TrimRight(content, "\n") + "\n" + close + "\n"

	start := strings.Index(existing, open)
	if start >= 0 {
		end := strings.Index(existing[start:], close)
		if end >= 0 {
			tail := existing[start+end+len(close):]
			tail = strings.TrimPrefix(tail, "\n")
			return existing[:start] + block + tail
		}
	}
	if existing == "" {
		return block
	}
	if !strings.HasSuffix(existing, "\n") {
		existing += "\n"
	}
	return existing + "\n" + block
}

// compositeRemove deletes the named section, leaving the rest intact.
func compositeRemove(existing, section string) string {
	open := sectionOpen(section)
	close := sectionClose(section)
	start := strings.Index(existing, open)
	if start < 0 {
		return existing
	}
	end := strings.Index(existing[start:], close)
	if end < 0 {
		return existing
	}
	tail := existing[start+end+len(close):]
	tail = strings.TrimPrefix(tail, "\n")
	head := strings.TrimRight(existing[:start], "\n")
	if head == "" {
		return tail
	}
	if tail == "" {
		return head + "\n"
	}
	return head + "\n\n" + tail
}

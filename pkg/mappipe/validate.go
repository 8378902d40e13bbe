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
	"fmt"
	"regexp"
	"strings"
)

// ✅ ValidationResult is the outcome of the pure validation pass. It is
// used by flow-authoring tooling (the lint command), never on the hot
// execution path, and performs no side effects.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

func (r *ValidationResult) addf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// 🔍 Validate structurally checks a single operation.
func Validate(op Operation) ValidationResult {
	r := ValidationResult{}
	switch o := op.(type) {
	case Set:
		if len(o.Fields) == 0 {
			r.addf("$set: at least one field is required")
		}
		for _, f := range o.Fields {
			validatePath(&r, "$set", f.Path)
		}
	case Rename:
		if len(o.Mappings) == 0 {
			r.addf("$rename: at least one mapping is required")
		}
		for _, m := range o.Mappings {
			validatePath(&r, "$rename", m.From)
			validatePath(&r, "$rename", m.To)
			if countWildcards(m.From) != countWildcards(m.To) {
				r.addf("$rename: %q and %q must use the same number of wildcards", m.From, m.To)
			}
		}
	case Unset:
		if len(o.Paths) == 0 {
			r.addf("$unset: at least one path is required")
		}
		for _, p := range o.Paths {
			validatePath(&r, "$unset", p)
		}
	case Switch:
		validateSwitch(&r, "$switch", o)
	case Pipeline:
		if o.Field == "" {
			r.addf("$pipeline: field is required")
		}
		if len(o.Operations) == 0 {
			r.addf("$pipeline: at least one step is required")
		}
		for _, step := range o.Operations {
			vr := ValidateStep(step)
			r.Errors = append(r.Errors, vr.Errors...)
		}
	case Copy:
		if o.From == "" {
			r.addf("$copy: from is required")
		}
		if o.To == "" {
			r.addf("$copy: to is required")
		}
		if o.Transform != nil {
			validateSwitch(&r, "$copy transform", *o.Transform)
		}
	case Pipe:
		if len(o.Names) == 0 {
			r.addf("$pipe: at least one transform name is required")
		}
		for _, name := range o.Names {
			if name == "" {
				r.addf("$pipe: transform names must be non-empty")
			}
		}
	default:
		r.addf("unknown operation variant %T", op)
	}
	r.Valid = len(r.Errors) == 0
	return r
}

// 🔍 ValidateStep structurally checks a single pipeline step.
func ValidateStep(step Step) ValidationResult {
	r := ValidationResult{}
	switch s := step.(type) {
	case Filter:
		if !s.HasValue && !s.HasKey {
			r.addf("$filter: match requires value and/or key")
		}
	case ObjectToArray:
		switch s.Extract {
		case "keys", "values", "entries":
		default:
			r.addf("$objectToArray: extract must be keys, values or entries, got %q", s.Extract)
		}
	case ArrayToObject:
		if s.Value == nil {
			r.addf("$arrayToObject: value is required")
		}
	case MapStep:
		// each and replace are mutually exclusive by design
		if s.Each != "" && s.Replace != nil {
			r.addf("$map: each and replace are mutually exclusive")
		}
		if s.Each == "" && s.Replace == nil {
			r.addf("$map: one of each or replace is required")
		}
		if s.Each != "" && s.Each != "capitalize" && s.Each != "uppercase" && s.Each != "lowercase" {
			r.addf("$map: unknown each mode %q", s.Each)
		}
	case Reduce:
		switch s.Type {
		case "join", "split", "sum", "count":
		default:
			r.addf("$reduce: unknown type %q", s.Type)
		}
	case Replace:
		if s.Pattern == "" {
			r.addf("$replace: pattern is required")
		} else if _, err := compilePattern(s.Pattern, s.Flags); err != nil {
			r.addf("$replace: %v", err)
		}
	case Partition:
		if s.By != "value" && s.By != "key" {
			r.addf("$partition: by must be value or key, got %q", s.By)
		}
		if len(s.Buckets) == 0 {
			r.addf("$partition: at least one pattern bucket is required")
		}
		for _, b := range s.Buckets {
			if _, err := regexp.Compile(b.Pattern); err != nil {
				r.addf("$partition bucket %q: %v", b.Key, err)
			}
		}
	case Extract:
		if s.Pattern == "" {
			r.addf("$extract: pattern is required")
		} else if _, err := regexp.Compile(s.Pattern); err != nil {
			r.addf("$extract: %v", err)
		}
		if s.Group < 0 {
			r.addf("$extract: group must be non-negative")
		}
	case MapValues:
		if len(s.Operations) == 0 {
			r.addf("$mapValues: at least one step is required")
		}
		for _, sub := range s.Operations {
			vr := ValidateStep(sub)
			r.Errors = append(r.Errors, vr.Errors...)
		}
	case MergeFields:
		if len(s.From) == 0 {
			r.addf("$mergeFields: from is required")
		}
		if s.To == "" {
			r.addf("$mergeFields: to is required")
		}
	default:
		r.addf("unknown step variant %T", step)
	}
	r.Valid = len(r.Errors) == 0
	return r
}

// 🔍 ValidateAll validates an operation list, prefixing errors with the
// operation index.
func ValidateAll(ops []Operation) ValidationResult {
	r := ValidationResult{Valid: true}
	for i, op := range ops {
		vr := Validate(op)
		if !vr.Valid {
			r.Valid = false
			for _, e := range vr.Errors {
				r.Errors = append(r.Errors, fmt.Sprintf("operation %d: %s", i, e))
			}
		}
	}
	return r
}

func validateSwitch(r *ValidationResult, tag string, o Switch) {
	if o.Field == "" && tag == "$switch" {
		r.addf("%s: field is required", tag)
	}
	if len(o.Cases) == 0 && !o.HasDefault {
		r.addf("%s: at least one case or a default is required", tag)
	}
	for i, c := range o.Cases {
		if c.Pattern == nil {
			r.addf("%s: case %d has no pattern", tag, i)
		}
	}
}

func validatePath(r *ValidationResult, tag, path string) {
	if path == "" {
		r.addf("%s: empty path", tag)
		return
	}
	if strings.HasPrefix(path, ".") || strings.HasSuffix(path, ".") || strings.Contains(path, "..") {
		r.addf("%s: malformed path %q", tag, path)
	}
	if countWildcards(path) > 1 {
		r.addf("%s: at most one wildcard segment is supported, got %q", tag, path)
	}
}

func countWildcards(path string) int {
	n := 0
	for _, seg := range strings.Split(path, ".") {
		if seg == "*" {
			n++
		}
	}
	return n
}

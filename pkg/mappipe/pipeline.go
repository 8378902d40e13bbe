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
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/walteh/flowrc/pkg/pathutil"
	"gitlab.com/tozd/go/errors"
)

func applyPipeline(ctx context.Context, op Pipeline, doc map[string]any, env Env) (map[string]any, error) {
	// wildcard fields run the pipeline once per existing concrete path;
	// absent paths are skipped outright, never fabricated
	concrete := pathutil.Expand(doc, op.Field)
	if len(concrete) == 0 {
		logSkip(ctx, "$pipeline", op.Field)
		return doc, nil
	}
	for _, field := range concrete {
		value, ok := pathutil.Get(doc, field)
		if !ok {
			continue
		}
		result, err := runSteps(op.Operations, pathutil.Clone(value), env)
		if err != nil {
			return nil, errors.Errorf("field %q: %w", field, err)
		}
		if isEmptyResult(result) {
			// empty configuration is "no configuration", not a literal
			// empty value
			pathutil.Delete(doc, field)
			continue
		}
		pathutil.Set(doc, field, result)
	}
	return doc, nil
}

func isEmptyResult(v any) bool {
	switch t := v.(type) {
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	default:
		return false
	}
}

func runSteps(steps []Step, value any, env Env) (any, error) {
	for _, step := range steps {
		var err error
		value, err = runStep(step, value, env)
		if err != nil {
			return nil, errors.Errorf("%s: %w", step.Name(), err)
		}
	}
	return value, nil
}

func runStep(step Step, value any, env Env) (any, error) {
	switch s := step.(type) {
	case Filter:
		return stepFilter(s, value), nil
	case ObjectToArray:
		return stepObjectToArray(s, value)
	case ArrayToObject:
		return stepArrayToObject(s, value, env), nil
	case MapStep:
		return stepMap(s, value)
	case Reduce:
		return stepReduce(s, value)
	case Replace:
		return stepReplace(s, value)
	case Partition:
		return stepPartition(s, value)
	case Extract:
		return stepExtract(s, value)
	case MapValues:
		return stepMapValues(s, value, env)
	case MergeFields:
		return stepMergeFields(s, value), nil
	default:
		return nil, errors.Errorf("unhandled step variant %T", step)
	}
}

func stepFilter(s Filter, value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := map[string]any{}
		for k, e := range v {
			if s.HasValue && !pathutil.DeepEqual(s.Value, e) {
				continue
			}
			if s.HasKey && !pathutil.DeepEqual(s.Key, any(k)) {
				continue
			}
			out[k] = e
		}
		return out
	case []any:
		var out []any
		for _, e := range v {
			if s.HasValue && !pathutil.DeepEqual(s.Value, e) {
				continue
			}
			out = append(out, e)
		}
		if out == nil {
			out = []any{}
		}
		return out
	default:
		return value
	}
}

func stepObjectToArray(s ObjectToArray, value any) (any, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return value, nil
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]any, 0, len(obj))
	switch s.Extract {
	case "keys":
		for _, k := range keys {
			out = append(out, k)
		}
	case "values":
		for _, k := range keys {
			out = append(out, obj[k])
		}
	case "entries":
		for _, k := range keys {
			out = append(out, map[string]any{"key": k, "value": obj[k]})
		}
	default:
		return nil, errors.Errorf("unknown extract mode %q", s.Extract)
	}
	return out, nil
}

func stepArrayToObject(s ArrayToObject, value any, env Env) any {
	arr, ok := value.([]any)
	if !ok {
		return value
	}
	out := map[string]any{}
	for _, e := range arr {
		key, ok := e.(string)
		if !ok {
			continue
		}
		out[key] = resolveValue(pathutil.Clone(s.Value), env)
	}
	return out
}

func stepMap(s MapStep, value any) (any, error) {
	arr, ok := value.([]any)
	if !ok {
		return value, nil
	}
	out := make([]any, len(arr))
	for i, e := range arr {
		str, ok := e.(string)
		if !ok {
			out[i] = e
			continue
		}
		switch {
		case s.Replace != nil:
			if replaced, ok := s.Replace[str]; ok {
				out[i] = replaced
			} else {
				out[i] = str
			}
		case s.Each == "capitalize":
			out[i] = capitalize(str)
		case s.Each == "uppercase":
			out[i] = strings.ToUpper(str)
		case s.Each == "lowercase":
			out[i] = strings.ToLower(str)
		default:
			return nil, errors.Errorf("unknown each mode %q", s.Each)
		}
	}
	return out, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func stepReduce(s Reduce, value any) (any, error) {
	sep := s.Separator
	if sep == "" {
		sep = ","
	}
	switch s.Type {
	case "join":
		arr, ok := value.([]any)
		if !ok {
			return value, nil
		}
		parts := make([]string, 0, len(arr))
		for _, e := range arr {
			if str, ok := e.(string); ok {
				parts = append(parts, str)
			}
		}
		return strings.Join(parts, sep), nil
	case "split":
		str, ok := value.(string)
		if !ok {
			return value, nil
		}
		if str == "" {
			return []any{}, nil
		}
		parts := strings.Split(str, sep)
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = strings.TrimSpace(p)
		}
		return out, nil
	case "sum":
		arr, ok := value.([]any)
		if !ok {
			return value, nil
		}
		total := 0.0
		allInt := true
		for _, e := range arr {
			switch n := e.(type) {
			case int:
				total += float64(n)
			case int64:
				total += float64(n)
			case float64:
				total += n
				allInt = false
			}
		}
		if allInt {
			return int(total), nil
		}
		return total, nil
	case "count":
		if arr, ok := value.([]any); ok {
			return len(arr), nil
		}
		return value, nil
	default:
		return nil, errors.Errorf("unknown reduce type %q", s.Type)
	}
}

func stepReplace(s Replace, value any) (any, error) {
	re, err := compilePattern(s.Pattern, s.Flags)
	if err != nil {
		return nil, err
	}
	switch v := value.(type) {
	case string:
		return re.ReplaceAllString(v, s.With), nil
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			if str, ok := e.(string); ok {
				out[i] = re.ReplaceAllString(str, s.With)
			} else {
				out[i] = e
			}
		}
		return out, nil
	default:
		return value, nil
	}
}

func compilePattern(pattern, flags string) (*regexp.Regexp, error) {
	prefix := ""
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's':
			prefix += string(f)
		case 'g':
			// Go replaces all occurrences already
		default:
			return nil, errors.Errorf("unsupported regex flag %q", string(f))
		}
	}
	if prefix != "" {
		pattern = "(?" + prefix + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Errorf("compiling pattern: %w", err)
	}
	return re, nil
}

func stepPartition(s Partition, value any) (any, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return value, nil
	}
	regexps := make([]*regexp.Regexp, len(s.Buckets))
	for i, b := range s.Buckets {
		re, err := regexp.Compile(b.Pattern)
		if err != nil {
			return nil, errors.Errorf("bucket %q: %w", b.Key, err)
		}
		regexps[i] = re
	}

	out := map[string]any{}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		subject := k
		if s.By == "value" {
			str, ok := obj[k].(string)
			if !ok {
				continue
			}
			subject = str
		}
		// first matching bucket wins; entries matching none are dropped
		for i, re := range regexps {
			if re.MatchString(subject) {
				bucket, _ := out[s.Buckets[i].Key].(map[string]any)
				if bucket == nil {
					bucket = map[string]any{}
					out[s.Buckets[i].Key] = bucket
				}
				bucket[k] = obj[k]
				break
			}
		}
	}
	return out, nil
}

func stepExtract(s Extract, value any) (any, error) {
	str, ok := value.(string)
	if !ok {
		return value, nil
	}
	re, err := regexp.Compile(s.Pattern)
	if err != nil {
		return nil, errors.Errorf("compiling pattern: %w", err)
	}
	match := re.FindStringSubmatch(str)
	if match == nil || s.Group >= len(match) {
		if !s.HasDefault || s.Default == OriginalSentinel {
			return str, nil
		}
		return s.Default, nil
	}
	return match[s.Group], nil
}

func stepMapValues(s MapValues, value any, env Env) (any, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return value, nil
	}
	out := make(map[string]any, len(obj))
	for k, e := range obj {
		result, err := runSteps(s.Operations, pathutil.Clone(e), env)
		if err != nil {
			return nil, errors.Errorf("value %q: %w", k, err)
		}
		out[k] = result
	}
	return out, nil
}

func stepMergeFields(s MergeFields, value any) any {
	obj, ok := value.(map[string]any)
	if !ok {
		return value
	}
	merged, _ := obj[s.To].(map[string]any)
	if merged == nil {
		merged = map[string]any{}
	} else {
		merged = pathutil.Clone(merged).(map[string]any)
	}
	remove := s.Remove == nil || *s.Remove
	for _, from := range s.From {
		src, ok := obj[from].(map[string]any)
		if !ok {
			continue
		}
		for k, e := range src {
			merged[k] = e
		}
	}
	out := make(map[string]any, len(obj))
	for k, e := range obj {
		if remove && k != s.To && contains(s.From, k) {
			continue
		}
		out[k] = e
	}
	out[s.To] = merged
	return out
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}

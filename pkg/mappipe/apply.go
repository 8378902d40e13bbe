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
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/flowrc/pkg/pathutil"
	"github.com/walteh/flowrc/pkg/transform"
	"gitlab.com/tozd/go/errors"
)

// 🔑 Resolver resolves a `$$`-prefixed context reference to its value.
// The second return is false when the reference is unknown.
type Resolver func(ref string) (any, bool)

// 🌐 Env carries the collaborators an operation may need while executing.
type Env struct {
	// Resolve handles $$-references inside operation values. May be nil.
	Resolve Resolver

	// Registry supplies named transforms for $pipe operations. May be nil
	// when the pipeline contains no $pipe.
	Registry transform.Registry
}

// 🏃 Apply runs a document through an ordered operation list. The input
// document is never mutated; the returned document is a fresh value.
func Apply(ctx context.Context, ops []Operation, doc map[string]any, env Env) (map[string]any, error) {
	out := pathutil.CloneDoc(doc)
	if out == nil {
		out = map[string]any{}
	}
	for i, op := range ops {
		var err error
		out, err = applyOne(ctx, op, out, env)
		if err != nil {
			return nil, errors.Errorf("applying %s (operation %d): %w", op.Name(), i, err)
		}
	}
	return out, nil
}

func applyOne(ctx context.Context, op Operation, doc map[string]any, env Env) (map[string]any, error) {
	switch o := op.(type) {
	case Set:
		return applySet(o, doc, env), nil
	case Rename:
		return applyRename(o, doc)
	case Unset:
		return applyUnset(o, doc), nil
	case Switch:
		return applySwitch(o, doc, env), nil
	case Pipeline:
		return applyPipeline(ctx, o, doc, env)
	case Copy:
		return applyCopy(o, doc, env), nil
	case Pipe:
		return applyPipe(ctx, o, doc, env)
	default:
		return nil, errors.Errorf("unhandled operation variant %T", op)
	}
}

func applySet(op Set, doc map[string]any, env Env) map[string]any {
	for _, f := range op.Fields {
		pathutil.Set(doc, f.Path, resolveValue(f.Value, env))
	}
	return doc
}

func applyRename(op Rename, doc map[string]any) (map[string]any, error) {
	for _, m := range op.Mappings {
		// expand against the real document shape; non-existent branches
		// produce no matches and therefore no new keys
		for _, concrete := range pathutil.Expand(doc, m.From) {
			target, err := substituteWildcard(m.From, m.To, concrete)
			if err != nil {
				return nil, err
			}
			value, _ := pathutil.Get(doc, concrete)
			pathutil.Delete(doc, concrete)
			pathutil.Set(doc, target, value)
			pruneEmptyBranches(doc, concrete)
		}
	}
	return doc, nil
}

// pruneEmptyBranches removes map branches left empty after their children
// were renamed away. Only ancestors of the moved path are considered, so
// empty objects already present in the input survive.
func pruneEmptyBranches(doc map[string]any, path string) {
	segs := strings.Split(path, ".")
	for i := len(segs) - 1; i > 0; i-- {
		parent := strings.Join(segs[:i], ".")
		v, ok := pathutil.Get(doc, parent)
		m, isMap := v.(map[string]any)
		if !ok || !isMap || len(m) > 0 {
			return
		}
		pathutil.Delete(doc, parent)
	}
}

// substituteWildcard maps a concrete expansion of the from-pattern onto
// the to-pattern, carrying the segment captured by `*` across.
func substituteWildcard(from, to, concrete string) (string, error) {
	fromSegs := strings.Split(from, ".")
	concSegs := strings.Split(concrete, ".")
	captured := ""
	for i, seg := range fromSegs {
		if seg == "*" {
			if i >= len(concSegs) {
				return "", errors.Errorf("wildcard expansion mismatch: %q vs %q", from, concrete)
			}
			captured = concSegs[i]
			break
		}
	}
	if captured == "" {
		return to, nil
	}
	toSegs := strings.Split(to, ".")
	for i, seg := range toSegs {
		if seg == "*" {
			toSegs[i] = captured
		}
	}
	return strings.Join(toSegs, "."), nil
}

func applyUnset(op Unset, doc map[string]any) map[string]any {
	for _, p := range op.Paths {
		for _, concrete := range pathutil.Expand(doc, p) {
			pathutil.Delete(doc, concrete)
		}
	}
	return doc
}

func applySwitch(op Switch, doc map[string]any, env Env) map[string]any {
	value, ok := pathutil.Get(doc, op.Field)
	if !ok {
		// absent field: never fabricated
		return doc
	}
	if result, matched := switchValue(op, value, env); matched {
		pathutil.Set(doc, op.Field, result)
	}
	return doc
}

// switchValue applies first-match-wins case logic to a value. The second
// return is false when no case and no default applied.
func switchValue(op Switch, value any, env Env) (any, bool) {
	for _, c := range op.Cases {
		if pathutil.MatchPattern(c.Pattern, value) {
			return resolveValue(c.Value, env), true
		}
	}
	if op.HasDefault {
		return resolveValue(op.Default, env), true
	}
	return nil, false
}

func applyCopy(op Copy, doc map[string]any, env Env) map[string]any {
	value, ok := pathutil.Get(doc, op.From)
	if !ok {
		return doc
	}
	value = pathutil.Clone(value)
	if op.Transform != nil {
		if transformed, matched := switchValue(*op.Transform, value, env); matched {
			value = transformed
		}
	}
	pathutil.Set(doc, op.To, value)
	return doc
}

func applyPipe(ctx context.Context, op Pipe, doc map[string]any, env Env) (map[string]any, error) {
	if env.Registry == nil {
		return nil, errors.Errorf("$pipe requires a transform registry")
	}
	for _, name := range op.Names {
		next, err := env.Registry.Execute(ctx, name, doc)
		if err != nil {
			return nil, err
		}
		doc = next
	}
	return doc, nil
}

// resolveValue resolves $$-references in a value, recursing through
// objects and arrays. Unknown references pass through as literals.
func resolveValue(v any, env Env) any {
	switch t := v.(type) {
	case string:
		if strings.HasPrefix(t, "$$") && env.Resolve != nil {
			if resolved, ok := env.Resolve(t); ok {
				return resolved
			}
		}
		return t
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = resolveValue(e, env)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = resolveValue(e, env)
		}
		return out
	default:
		return v
	}
}

func logSkip(ctx context.Context, op string, field string) {
	zerolog.Ctx(ctx).Trace().Str("operation", op).Str("field", field).Msg("field absent, skipping")
}

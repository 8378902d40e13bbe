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
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/walteh/flowrc/pkg/mappipe"
	"github.com/walteh/flowrc/pkg/pathutil"
	"github.com/walteh/flowrc/pkg/transform"
	"gitlab.com/tozd/go/errors"
)

// 📄 Result is the per-file outcome of executing a flow.
type Result struct {
	Success     bool
	Source      string // source path relative to the package root
	Target      string // destination path relative to the workspace root
	Transformed bool

	// Written is false when the write was skipped (dry run or write
	// gate) even though the file processed successfully.
	Written bool

	// Gated is true when the write gate refused the target: another
	// package owns it, so this result contributed nothing on disk.
	Gated bool

	// Keys lists the leaf key-paths this flow contributed to the target
	// under deep/shallow merges, so a later uninstall can remove exactly
	// those without disturbing keys merged in by other packages.
	Keys []string

	Err error
}

// 📊 ExecResult aggregates one flow execution.
type ExecResult struct {
	// Skipped is set when the flow's when-condition evaluated false and
	// no file was touched.
	Skipped bool

	Results []Result
}

// Succeeded counts successful per-file results.
func (r *ExecResult) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Success {
			n++
		}
	}
	return n
}

// 🏃 Executor runs flows against a package. The transform registry is the
// injected seam for named pipe transforms.
type Executor struct {
	Registry transform.Registry
}

// NewExecutor creates an executor backed by the given registry.
func NewExecutor(reg transform.Registry) *Executor {
	return &Executor{Registry: reg}
}

// 🎯 Execute discovers all source files matching the flow's from-pattern
// under the package root, transforms each through the map pipeline and
// pipe transforms, and writes to the resolved destination under the
// flow's merge strategy. One file's failure never aborts sibling files.
func (e *Executor) Execute(ctx context.Context, f Flow, fctx *Context) (*ExecResult, error) {
	logger := zerolog.Ctx(ctx)

	// the when-gate is evaluated before any discovery: a gated-off flow
	// touches nothing
	if !f.When.Evaluate(fctx.Resolver(nil)) {
		logger.Debug().Str("from", f.From).Msg("flow gated off by condition, skipping")
		return &ExecResult{Skipped: true}, nil
	}

	pattern, err := compileStemPattern(f.From)
	if err != nil {
		return nil, errors.Errorf("compiling from-pattern: %w", err)
	}

	matches, err := discover(fctx.PackageRoot, pattern)
	if err != nil {
		return nil, errors.Errorf("discovering sources for %q: %w", f.From, err)
	}
	logger.Debug().Str("from", f.From).Int("matches", len(matches)).Msg("discovered flow sources")

	result := &ExecResult{}
	for _, m := range matches {
		res := e.processFile(ctx, f, fctx, m)
		if res.Err != nil {
			logger.Warn().Str("source", res.Source).Err(res.Err).Msg("flow file failed")
		}
		result.Results = append(result.Results, res)
	}
	return result, nil
}

type discovered struct {
	rel      string
	bindings map[string]string
}

// discover walks the package root recursively. Dotfiles and
// dot-directories are matched like any other path: platform roots such
// as .claude/ are the common case, not the exception.
func discover(root string, pattern *stemPattern) ([]discovered, error) {
	var out []discovered
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if bindings, ok := pattern.match(rel); ok {
			out = append(out, discovered{rel: rel, bindings: bindings})
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

func (e *Executor) processFile(ctx context.Context, f Flow, fctx *Context, m discovered) Result {
	res := Result{Source: m.rel}

	target, err := substituteStems(f.To, m.bindings)
	if err != nil {
		res.Err = err
		return res
	}
	res.Target = target

	data, err := os.ReadFile(filepath.Join(fctx.PackageRoot, filepath.FromSlash(m.rel)))
	if err != nil {
		res.Err = errors.Errorf("reading source: %w", err)
		return res
	}

	doc, err := DecodeDocument(m.rel, data)
	if err != nil {
		res.Err = err
		return res
	}
	original := pathutil.CloneDoc(doc)

	overlay := map[string]any{
		RefFilename: filepath.Base(m.rel),
		RefFilepath: m.rel,
	}
	for stem, value := range m.bindings {
		overlay["$$"+stem] = value
	}
	env := mappipe.Env{Resolve: fctx.Resolver(overlay), Registry: e.Registry}

	if len(f.Map) > 0 {
		doc, err = mappipe.Apply(ctx, f.Map, doc, env)
		if err != nil {
			res.Err = err
			return res
		}
	}

	if len(f.Pipe) > 0 && e.Registry == nil {
		res.Err = errors.Errorf("flow declares pipe transforms but no registry is configured")
		return res
	}
	for _, name := range f.Pipe {
		doc, err = e.Registry.Execute(ctx, name, doc)
		if err != nil {
			res.Err = err
			return res
		}
	}

	if f.Embed != "" {
		doc = map[string]any{f.Embed: doc}
	}

	res.Transformed = !pathutil.DeepEqual(original, doc)

	if fctx.WriteGate != nil && !fctx.WriteGate(target) {
		zerolog.Ctx(ctx).Debug().Str("target", target).Msg("write gated off, higher-priority writer owns target")
		res.Success = true
		res.Gated = true
		return res
	}

	keys, err := e.write(ctx, f, fctx, target, doc)
	if err != nil {
		res.Err = err
		return res
	}
	res.Keys = keys
	res.Written = !fctx.DryRun
	res.Success = true
	return res
}

// write applies the flow's merge strategy at the destination. It returns
// the contributed leaf key-paths for deep/shallow merges.
func (e *Executor) write(ctx context.Context, f Flow, fctx *Context, target string, doc map[string]any) ([]string, error) {
	dest := filepath.Join(fctx.WorkspaceRoot, filepath.FromSlash(target))

	var keys []string
	var out []byte
	switch f.MergeOrDefault() {
	case MergeReplace:
		data, err := EncodeDocument(target, doc)
		if err != nil {
			return nil, err
		}
		out = data

	case MergeShallow, MergeDeep:
		existing := map[string]any{}
		if data, err := os.ReadFile(dest); err == nil {
			existing, err = DecodeDocument(target, data)
			if err != nil {
				return nil, errors.Errorf("parsing existing destination: %w", err)
			}
		}
		merged := existing
		if f.MergeOrDefault() == MergeShallow {
			merged = shallowMerge(existing, doc)
		} else {
			merged = deepMerge(existing, doc)
		}
		keys = pathutil.LeafPaths(doc)
		data, err := EncodeDocument(target, merged)
		if err != nil {
			return nil, err
		}
		out = data

	case MergeComposite:
		section := f.Section
		if section == "" {
			section = fctx.PackageName
		}
		content, ok := BodyOnly(doc)
		if !ok {
			data, err := EncodeDocument(target, doc)
			if err != nil {
				return nil, err
			}
			content = string(data)
		}
		existing := ""
		if data, err := os.ReadFile(dest); err == nil {
			existing = string(data)
		}
		out = []byte(compositeMerge(existing, section, content))

	default:
		return nil, errors.Errorf("unknown merge strategy %q", f.Merge)
	}

	if fctx.DryRun {
		zerolog.Ctx(ctx).Debug().Str("target", target).Msg("dry run, skipping write")
		return keys, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, errors.Errorf("creating destination directory: %w", err)
	}
	if err := os.WriteFile(dest, out, 0o644); err != nil {
		return nil, errors.Errorf("writing destination: %w", err)
	}
	return keys, nil
}

// 🗑️ RemoveContributed selectively deletes the keys a flow contributed
// to a merged destination, leaving keys merged in by other packages
// untouched. Composite targets drop the package's section instead.
func RemoveContributed(ctx context.Context, f Flow, fctx *Context, target string, keys []string) error {
	dest := filepath.Join(fctx.WorkspaceRoot, filepath.FromSlash(target))
	data, err := os.ReadFile(dest)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Errorf("reading destination: %w", err)
	}

	if f.MergeOrDefault() == MergeComposite {
		section := f.Section
		if section == "" {
			section = fctx.PackageName
		}
		return os.WriteFile(dest, []byte(compositeRemove(string(data), section)), 0o644)
	}

	doc, err := DecodeDocument(target, data)
	if err != nil {
		return err
	}
	for _, k := range keys {
		pathutil.Delete(doc, k)
	}
	pruneEmpty(doc)
	out, err := EncodeDocument(target, doc)
	if err != nil {
		return err
	}
	return os.WriteFile(dest, out, 0o644)
}

// pruneEmpty drops object branches left empty by selective key removal.
func pruneEmpty(doc map[string]any) {
	for k, v := range doc {
		if m, ok := v.(map[string]any); ok {
			pruneEmpty(m)
			if len(m) == 0 {
				delete(doc, k)
			}
		}
	}
}

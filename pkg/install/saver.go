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

package install

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/flowrc/pkg/config"
	"github.com/walteh/flowrc/pkg/conflict"
	"github.com/walteh/flowrc/pkg/flow"
	"gitlab.com/tozd/go/errors"
)

// ⚙️ SaveOptions configures one save-back pass.
type SaveOptions struct {
	WorkspaceRoot string
	PackageRoot   string
	PackageName   string

	// Platforms limits which platforms' workspace files are scanned;
	// empty means every configured platform
	Platforms []string

	Strategy conflict.Strategy
	Prompter conflict.Prompter
	DryRun   bool
}

// 📊 SaveResult reports one save-back pass.
type SaveResult struct {
	Analyses    []conflict.Analysis
	Resolutions []conflict.Resolution

	FilesWritten int
	Skipped      int
}

// 💾 Saver runs export flows backwards: workspace files are collected
// through each flow's inverse into universal form, reconciled against
// the package source, and the surviving edits written back.
type Saver struct {
	FlowSet  *config.FlowSet
	Executor *flow.Executor
}

func NewSaver(fs *config.FlowSet, executor *flow.Executor) *Saver {
	return &Saver{FlowSet: fs, Executor: executor}
}

// 🎯 Save inverts each platform's export flows and executes them with
// the roots swapped: the workspace is read as the source and a staging
// directory receives the normalized universal files. Candidates carry
// the staging content but the workspace file's mtime, so recency
// ranking reflects when the user actually edited.
func (s *Saver) Save(ctx context.Context, opts SaveOptions) (*SaveResult, error) {
	logger := zerolog.Ctx(ctx)

	platforms := opts.Platforms
	if len(platforms) == 0 {
		for _, p := range s.FlowSet.Platforms {
			platforms = append(platforms, p.ID)
		}
	}
	strategy := opts.Strategy
	if strategy == "" {
		strategy = conflict.StrategyWriteNewest
	}

	collectRoot, err := os.MkdirTemp("", "flowrc-save-*")
	if err != nil {
		return nil, errors.Errorf("creating collect root: %w", err)
	}
	defer os.RemoveAll(collectRoot)

	var refs []conflict.Ref
	seen := map[string]bool{}
	for _, platform := range platforms {
		platformRoot := filepath.Join(collectRoot, platform)
		fctx := &flow.Context{
			WorkspaceRoot: platformRoot,
			PackageRoot:   opts.WorkspaceRoot,
			Platform:      platform,
			PackageName:   opts.PackageName,
			Direction:     flow.DirectionSave,
		}

		for _, f := range s.FlowSet.ExportFlows(platform) {
			inv := flow.Invert(f, platform, s.Executor.Registry)
			execResult, err := s.Executor.Execute(ctx, inv, fctx)
			if err != nil {
				return nil, errors.Errorf("collecting %s edits: %w", platform, err)
			}
			if execResult.Skipped {
				continue
			}
			for _, r := range execResult.Results {
				if r.Err != nil {
					logger.Warn().Str("source", r.Source).Err(r.Err).Msg("skipping uncollectable workspace file")
					continue
				}
				key := platform + "\x00" + r.Target
				if seen[key] {
					continue
				}
				seen[key] = true
				refs = append(refs, conflict.Ref{
					Source:       conflict.SourceWorkspace,
					FullPath:     filepath.Join(platformRoot, filepath.FromSlash(r.Target)),
					StatPath:     filepath.Join(opts.WorkspaceRoot, filepath.FromSlash(r.Source)),
					DisplayPath:  r.Source,
					RegistryPath: r.Target,
					Platform:     platform,
				})
			}
		}
	}

	workspace, err := conflict.Collect(ctx, refs)
	if err != nil {
		return nil, errors.Errorf("collecting candidates: %w", err)
	}

	byPath := map[string][]conflict.Candidate{}
	var order []string
	for _, c := range workspace {
		if _, ok := byPath[c.RegistryPath]; !ok {
			order = append(order, c.RegistryPath)
		}
		byPath[c.RegistryPath] = append(byPath[c.RegistryPath], c)
	}
	sort.Strings(order)

	resolver := &conflict.Resolver{Prompter: opts.Prompter}
	result := &SaveResult{}
	for _, sourcePath := range order {
		local, err := localCandidate(ctx, opts.PackageRoot, sourcePath)
		if err != nil {
			return nil, err
		}
		analysis := conflict.Analyze(sourcePath, local, byPath[sourcePath])
		result.Analyses = append(result.Analyses, analysis)

		resolution, err := resolver.Resolve(ctx, analysis, strategy)
		if err != nil {
			return nil, err
		}
		result.Resolutions = append(result.Resolutions, resolution)
		result.Skipped += len(resolution.Skipped)

		if err := s.apply(ctx, opts, resolution, result); err != nil {
			return nil, err
		}
	}

	logger.Info().
		Int("paths", len(result.Analyses)).
		Int("written", result.FilesWritten).
		Int("skipped", result.Skipped).
		Msg("save pass complete")
	return result, nil
}

func (s *Saver) apply(ctx context.Context, opts SaveOptions, res conflict.Resolution, out *SaveResult) error {
	logger := zerolog.Ctx(ctx)

	if res.Adopted != nil {
		dest := filepath.Join(opts.PackageRoot, filepath.FromSlash(res.SourcePath))
		if opts.DryRun {
			logger.Info().Str("source", res.SourcePath).Msg("dry run, would adopt workspace edit")
		} else {
			if err := writeFile(dest, res.Adopted.Content); err != nil {
				return errors.Errorf("adopting %s: %w", res.SourcePath, err)
			}
			out.FilesWritten++
		}
	}

	for _, c := range res.PlatformSpecific {
		dest := filepath.Join(opts.PackageRoot, filepath.FromSlash(platformVariantPath(res.SourcePath, c.Platform)))
		if opts.DryRun {
			logger.Info().Str("source", res.SourcePath).Str("platform", c.Platform).Msg("dry run, would save platform variant")
			continue
		}
		if err := writeFile(dest, c.Content); err != nil {
			return errors.Errorf("saving platform variant of %s: %w", res.SourcePath, err)
		}
		out.FilesWritten++
	}
	return nil
}

func localCandidate(ctx context.Context, packageRoot, sourcePath string) (*conflict.Candidate, error) {
	refs := []conflict.Ref{{
		Source:       conflict.SourceLocal,
		FullPath:     filepath.Join(packageRoot, filepath.FromSlash(sourcePath)),
		DisplayPath:  sourcePath,
		RegistryPath: sourcePath,
	}}
	candidates, err := conflict.Collect(ctx, refs)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	return &candidates[0], nil
}

// platformVariantPath derives the platform-suffixed sibling name a
// deliberate divergence is stored under: agents/helper.md saved for
// claude becomes agents/helper.claude.md.
func platformVariantPath(sourcePath, platform string) string {
	ext := filepath.Ext(sourcePath)
	base := strings.TrimSuffix(sourcePath, ext)
	return base + "." + platform + ext
}

func writeFile(dest string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, content, 0o644)
}

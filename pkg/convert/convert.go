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

// Package convert orchestrates format-conversion stages: rewriting a
// platform-specific package into universal form through its import flows
// inside isolated temporary roots.
package convert

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/flowrc/pkg/config"
	"github.com/walteh/flowrc/pkg/flow"
	"github.com/walteh/flowrc/pkg/format"
	"gitlab.com/tozd/go/errors"
)

// StagePlatformToUniversal is the single stage this converter builds.
const StagePlatformToUniversal = "platform-to-universal"

// ❌ StageError reports a failed conversion stage. A failed stage
// abandons all remaining stages for the package.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("conversion stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// 📊 StageResult is the per-stage breakdown inside a Result.
type StageResult struct {
	Stage          string
	FilesProcessed int
	FilesWritten   int
	Err            error
}

// 📦 Result reports one package's conversion.
type Result struct {
	Converted bool
	Stages    []StageResult

	// Context is the extended audit record after a successful
	// conversion; on failure it is the input context unchanged.
	Context *format.ConversionContext
}

// 🏭 Converter runs conversion stages for one package at a time.
type Converter struct {
	Executor *flow.Executor
}

func New(executor *flow.Executor) *Converter {
	return &Converter{Executor: executor}
}

// 🎯 ToUniversal converts a platform-specific package in place to
// universal form. The stage executes the union of the source platform's
// import flows and the global import flows against the package's real
// on-disk layout: the platform path prefix is deliberately NOT stripped
// first. Stripping it would make every flow pattern miss the actual
// layout, turning the stage into a silent permanent no-op and the
// repeated install into an infinite reconversion loop.
//
// targetPlatform is the real installation target: conditional flows see
// it as $$platform, while $$source and $$sourcePlatform keep naming the
// original source platform so export-stage conditionals can still
// recognize provenance after normalization.
func (c *Converter) ToUniversal(ctx context.Context, pkgRoot, pkgName, sourcePlatform, targetPlatform string, flowSet *config.FlowSet, convctx *format.ConversionContext) (*Result, error) {
	logger := zerolog.Ctx(ctx)
	result := &Result{Context: convctx}

	if sourcePlatform == "" {
		return nil, errors.Errorf("source platform is required")
	}

	flows := flowSet.ImportFlows(sourcePlatform)
	if len(flows) == 0 {
		return nil, &StageError{Stage: StagePlatformToUniversal, Err: errors.Errorf("no import flows configured for platform %q", sourcePlatform)}
	}

	stage := StageResult{Stage: StagePlatformToUniversal}
	err := c.runStage(ctx, &stage, pkgRoot, pkgName, sourcePlatform, targetPlatform, flows)
	result.Stages = append(result.Stages, stage)
	if err != nil {
		stageErr := &StageError{Stage: stage.Stage, Err: err}
		result.Stages[len(result.Stages)-1].Err = stageErr
		return result, stageErr
	}

	if convctx != nil {
		result.Context = convctx.WithTransition(
			format.FormatState{Type: format.TypeUniversal},
			targetPlatform,
			time.Now().UTC(),
		)
	}
	result.Converted = true
	logger.Info().
		Str("package", pkgName).
		Str("source_platform", sourcePlatform).
		Int("files", stage.FilesWritten).
		Msg("converted package to universal format")
	return result, nil
}

// runStage materializes the package into an isolated temp input root and
// a separate output root, runs the flows, then syncs the output back.
// Both roots are released on every exit path.
func (c *Converter) runStage(ctx context.Context, stage *StageResult, pkgRoot, pkgName, sourcePlatform, targetPlatform string, flows []flow.Flow) error {
	inRoot, err := os.MkdirTemp("", "flowrc-convert-in-*")
	if err != nil {
		return errors.Errorf("creating input root: %w", err)
	}
	defer os.RemoveAll(inRoot)

	outRoot, err := os.MkdirTemp("", "flowrc-convert-out-*")
	if err != nil {
		return errors.Errorf("creating output root: %w", err)
	}
	defer os.RemoveAll(outRoot)

	if err := copyTree(pkgRoot, inRoot); err != nil {
		return errors.Errorf("materializing package: %w", err)
	}
	// unmatched files carry over unchanged; consumed sources are removed
	// below once their flow succeeds
	if err := copyTree(pkgRoot, outRoot); err != nil {
		return errors.Errorf("seeding output root: %w", err)
	}

	fctx := &flow.Context{
		WorkspaceRoot: outRoot,
		PackageRoot:   inRoot,
		Platform:      targetPlatform,
		PackageName:   pkgName,
		Direction:     flow.DirectionInstall,
		Variables: map[string]any{
			flow.RefSource:         sourcePlatform,
			flow.RefSourcePlatform: sourcePlatform,
		},
	}

	// flows run sequentially in declaration order; first-match-wins
	// semantics depend on it
	for _, f := range flows {
		execResult, err := c.Executor.Execute(ctx, f, fctx)
		if err != nil {
			return err
		}
		if execResult.Skipped {
			continue
		}
		for _, res := range execResult.Results {
			stage.FilesProcessed++
			if res.Err != nil {
				return errors.Errorf("converting %s: %w", res.Source, res.Err)
			}
			stage.FilesWritten++
			if res.Source != res.Target {
				_ = os.Remove(filepath.Join(outRoot, filepath.FromSlash(res.Source)))
			}
		}
	}

	if err := replaceTree(pkgRoot, outRoot); err != nil {
		return errors.Errorf("committing converted file set: %w", err)
	}
	return nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}

// replaceTree swaps dst's content for src's.
func replaceTree(dst, src string) error {
	entries, err := os.ReadDir(dst)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dst, e.Name())); err != nil {
			return err
		}
	}
	return copyTree(src, dst)
}

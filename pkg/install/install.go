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

// Package install orchestrates the two outer workflows: installing
// configuration packages into a workspace and saving workspace edits
// back to their package sources.
package install

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/flowrc/pkg/config"
	"github.com/walteh/flowrc/pkg/conflict"
	"github.com/walteh/flowrc/pkg/convert"
	"github.com/walteh/flowrc/pkg/flow"
	"github.com/walteh/flowrc/pkg/format"
	"gitlab.com/tozd/go/errors"
)

// 📦 Package names one configuration package to install.
type Package struct {
	Name string
	// Root is the package's source directory
	Root string
	// Priority decides install-time target conflicts; higher wins
	Priority int
}

// ⚙️ Options configures one installation pass.
type Options struct {
	WorkspaceRoot string
	Platform      string

	// Variables is the user-declared context overlay visible to flow
	// conditions and $$-references
	Variables map[string]any

	DryRun bool
}

// 📊 PackageResult reports one package's installation.
type PackageResult struct {
	Package        string
	Converted      bool
	FilesProcessed int
	FilesWritten   int

	// TargetPaths lists the workspace-relative paths this package
	// actually contributed to. Uninstall walks exactly these.
	TargetPaths []string

	// GatedPaths lists claims lost to a higher-priority package. They
	// are reported for visibility but never touched on uninstall: the
	// file on disk belongs to the winner.
	GatedPaths []string

	// FileMapping maps "package/source" to the workspace target it
	// produced, for save-back provenance
	FileMapping map[string]string

	// ContributedKeys maps a merged target to the leaf key-paths this
	// package contributed, for selective uninstall
	ContributedKeys map[string][]string

	// CompositeSections maps a composite-merged target to the section
	// name this package owns in it
	CompositeSections map[string]string

	// Context is the package's conversion audit record
	Context *format.ConversionContext

	Errors []error
}

// 📋 Result aggregates an installation pass across all packages.
type Result struct {
	Packages  []PackageResult
	Conflicts []conflict.TargetConflict
}

// 🏗️ Installer wires format detection, conversion and flow execution
// into the install workflow.
type Installer struct {
	FlowSet   *config.FlowSet
	Executor  *flow.Executor
	Detector  *format.Detector
	Converter *convert.Converter
}

func NewInstaller(fs *config.FlowSet, executor *flow.Executor) *Installer {
	return &Installer{
		FlowSet:   fs,
		Executor:  executor,
		Detector:  format.NewDetector(),
		Converter: convert.New(executor),
	}
}

// 🎯 Install processes packages sequentially in the given order. All
// packages' priorities are known up front, so writes can commit eagerly:
// a later higher-priority package simply overwrites, and a later
// lower-priority package is gated off by the tracker. One package's
// failure never aborts its siblings.
func (i *Installer) Install(ctx context.Context, packages []Package, opts Options) (*Result, error) {
	logger := zerolog.Ctx(ctx)

	if _, ok := i.FlowSet.Platform(opts.Platform); !ok {
		return nil, errors.Errorf("unknown target platform %q", opts.Platform)
	}

	tracker := conflict.NewTargetTracker()
	result := &Result{}

	for _, pkg := range packages {
		res := i.installOne(ctx, pkg, opts, tracker)
		if len(res.Errors) > 0 {
			logger.Warn().Str("package", pkg.Name).Int("errors", len(res.Errors)).Msg("package installed with errors")
		}
		result.Packages = append(result.Packages, res)
	}

	result.Conflicts = tracker.Conflicts()
	logger.Info().
		Int("packages", len(result.Packages)).
		Int("conflicts", len(result.Conflicts)).
		Msg("installation pass complete")
	return result, nil
}

func (i *Installer) installOne(ctx context.Context, pkg Package, opts Options, tracker *conflict.TargetTracker) PackageResult {
	logger := zerolog.Ctx(ctx)
	res := PackageResult{
		Package:           pkg.Name,
		FileMapping:       map[string]string{},
		ContributedKeys:   map[string][]string{},
		CompositeSections: map[string]string{},
	}

	paths, err := listFiles(pkg.Root)
	if err != nil {
		res.Errors = append(res.Errors, errors.Errorf("listing package %s: %w", pkg.Name, err))
		return res
	}

	detected := i.Detector.Detect(paths)
	res.Context = format.NewContext(format.FormatIdentity{
		Type:       detected.Type,
		Platform:   detected.Platform,
		DetectedAt: time.Now().UTC(),
		Confidence: detected.Confidence,
	}, opts.Platform)
	logger.Debug().
		Str("package", pkg.Name).
		Str("format", string(detected.Type)).
		Str("platform", detected.Platform).
		Float64("confidence", detected.Confidence).
		Msg("detected package format")

	// conversion happens against a staging copy so the user's package
	// source is never rewritten by an install
	effectiveRoot := pkg.Root
	if format.NeedsConversion(detected, opts.Platform) {
		staging, cleanup, err := stagePackage(pkg.Root)
		if err != nil {
			res.Errors = append(res.Errors, err)
			return res
		}
		defer cleanup()

		conv, err := i.Converter.ToUniversal(ctx, staging, pkg.Name, detected.Platform, opts.Platform, i.FlowSet, res.Context)
		if err != nil {
			res.Errors = append(res.Errors, err)
			return res
		}
		res.Converted = true
		res.Context = conv.Context
		effectiveRoot = staging
	}

	writer := conflict.Writer{PackageName: pkg.Name, Priority: pkg.Priority}
	fctx := &flow.Context{
		WorkspaceRoot: opts.WorkspaceRoot,
		PackageRoot:   effectiveRoot,
		Platform:      opts.Platform,
		PackageName:   pkg.Name,
		Direction:     flow.DirectionInstall,
		Variables:     sourceVariables(opts.Variables, detected),
		DryRun:        opts.DryRun,
		WriteGate: func(target string) bool {
			tracker.Record(target, writer)
			winner, _ := tracker.Winner(target)
			return winner == writer
		},
	}

	for _, f := range i.FlowSet.ExportFlows(opts.Platform) {
		execResult, err := i.Executor.Execute(ctx, f, fctx)
		if err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		if execResult.Skipped {
			continue
		}
		for _, r := range execResult.Results {
			res.FilesProcessed++
			if r.Err != nil {
				res.Errors = append(res.Errors, errors.Errorf("%s: %w", r.Source, r.Err))
				continue
			}
			if r.Gated {
				res.GatedPaths = append(res.GatedPaths, r.Target)
				continue
			}
			res.TargetPaths = append(res.TargetPaths, r.Target)
			res.FileMapping[pkg.Name+"/"+r.Source] = r.Target
			if len(r.Keys) > 0 {
				res.ContributedKeys[r.Target] = append(res.ContributedKeys[r.Target], r.Keys...)
			}
			if f.MergeOrDefault() == flow.MergeComposite {
				section := f.Section
				if section == "" {
					section = pkg.Name
				}
				res.CompositeSections[r.Target] = section
			}
			if r.Written {
				res.FilesWritten++
			}
		}
	}
	return res
}

// sourceVariables layers source-provenance bindings over the user
// overlay so export-flow conditionals can recognize where a converted
// package came from.
func sourceVariables(base map[string]any, detected format.Format) map[string]any {
	vars := map[string]any{}
	for k, v := range base {
		vars[k] = v
	}
	if detected.Type == format.TypePlatformSpecific {
		vars[flow.RefSource] = detected.Platform
		vars[flow.RefSourcePlatform] = detected.Platform
	}
	return vars
}

func listFiles(root string) ([]string, error) {
	var out []string
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
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func stagePackage(root string) (string, func(), error) {
	staging, err := os.MkdirTemp("", "flowrc-install-*")
	if err != nil {
		return "", nil, errors.Errorf("creating staging root: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(staging) }
	if err := copyTree(root, staging); err != nil {
		cleanup()
		return "", nil, errors.Errorf("staging package: %w", err)
	}
	return staging, cleanup, nil
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

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

	"github.com/rs/zerolog"
	"github.com/walteh/flowrc/pkg/flow"
	"gitlab.com/tozd/go/errors"
)

// 🗑️ Uninstall reverses one package's installation using the result of
// the install pass. Targets with contributed keys are selectively
// stripped so keys merged in by other packages survive; wholly-owned
// targets are deleted outright. Claims gated off at install time are
// never visited: the file on disk belongs to the winning package.
func (i *Installer) Uninstall(ctx context.Context, res PackageResult, opts Options) error {
	logger := zerolog.Ctx(ctx)
	fctx := &flow.Context{
		WorkspaceRoot: opts.WorkspaceRoot,
		Platform:      opts.Platform,
		PackageName:   res.Package,
		Direction:     flow.DirectionInstall,
		DryRun:        opts.DryRun,
	}

	for _, target := range res.TargetPaths {
		keys := res.ContributedKeys[target]
		if opts.DryRun {
			logger.Info().Str("target", target).Int("keys", len(keys)).Msg("dry run, would remove")
			continue
		}
		if section, ok := res.CompositeSections[target]; ok {
			f := flow.Flow{Merge: flow.MergeComposite, Section: section}
			if err := flow.RemoveContributed(ctx, f, fctx, target, nil); err != nil {
				return errors.Errorf("removing section from %s: %w", target, err)
			}
			continue
		}
		if len(keys) > 0 {
			f := flow.Flow{Merge: flow.MergeDeep}
			if err := flow.RemoveContributed(ctx, f, fctx, target, keys); err != nil {
				return errors.Errorf("removing contributed keys from %s: %w", target, err)
			}
			continue
		}
		dest := filepath.Join(opts.WorkspaceRoot, filepath.FromSlash(target))
		if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
			return errors.Errorf("removing %s: %w", target, err)
		}
	}
	logger.Info().Str("package", res.Package).Int("targets", len(res.TargetPaths)).Msg("package uninstalled")
	return nil
}

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

package commands

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/flowrc/cmd/flowrc/opts"
	"github.com/walteh/flowrc/pkg/conflict"
	"github.com/walteh/flowrc/pkg/install"
	"gitlab.com/tozd/go/errors"
)

// NewSaveCmd creates a new save command
func NewSaveCmd(newOpts func(ctx context.Context) (*opts.RootOpts, error)) *cobra.Command {
	var (
		workspace string
		pkgDir    string
		platforms []string
		strategy  string
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save workspace edits back to a package source",
		Long: `Save runs each platform's export flows in reverse: workspace files are
collected through the inverse flows into universal form, compared
against the package source, and differing edits are written back.
Multiple platforms editing the same file are reconciled by strategy.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctx = zerolog.Ctx(ctx).With().Str("command", "save").Logger().WithContext(ctx)

			ro, err := newOpts(ctx)
			if err != nil {
				return err
			}

			saver := install.NewSaver(ro.FlowSet, ro.Executor)
			result, err := saver.Save(ctx, install.SaveOptions{
				WorkspaceRoot: workspace,
				PackageRoot:   pkgDir,
				PackageName:   filepath.Base(filepath.Clean(pkgDir)),
				Platforms:     platforms,
				Strategy:      conflict.Strategy(strategy),
				Prompter:      &conflict.PtermPrompter{},
				DryRun:        dryRun,
			})
			if err != nil {
				return errors.Errorf("saving workspace edits: %w", err)
			}

			ro.UserLogger.Successf("saved %d files, skipped %d variants", result.FilesWritten, result.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVarP(&workspace, "workspace", "w", ".", "workspace root directory")
	cmd.Flags().StringVar(&pkgDir, "package", "", "package source directory")
	cmd.Flags().StringSliceVar(&platforms, "platforms", nil, "platforms to scan (default all configured)")
	cmd.Flags().StringVar(&strategy, "strategy", string(conflict.StrategyWriteNewest), "conflict strategy: skip, write-single, write-newest, force-newest, interactive")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report without writing")
	_ = cmd.MarkFlagRequired("package")

	return cmd
}

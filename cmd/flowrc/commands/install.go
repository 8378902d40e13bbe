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
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/flowrc/cmd/flowrc/opts"
	"github.com/walteh/flowrc/pkg/conflict"
	"github.com/walteh/flowrc/pkg/install"
	"gitlab.com/tozd/go/errors"
)

// NewInstallCmd creates a new install command
func NewInstallCmd(newOpts func(ctx context.Context) (*opts.RootOpts, error)) *cobra.Command {
	var (
		platform  string
		workspace string
		dryRun    bool
		vars      []string
	)

	cmd := &cobra.Command{
		Use:   "install [package dirs...]",
		Short: "Install configuration packages into the workspace",
		Long: `Install converts each package to universal form if needed, runs the
target platform's export flows, and writes the results into the
workspace. Earlier packages take priority when two packages claim the
same target path.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctx = zerolog.Ctx(ctx).With().Str("command", "install").Logger().WithContext(ctx)

			ro, err := newOpts(ctx)
			if err != nil {
				return err
			}

			variables, err := parseVars(vars)
			if err != nil {
				return err
			}

			// earlier arguments outrank later ones
			var packages []install.Package
			for i, dir := range args {
				packages = append(packages, install.Package{
					Name:     filepath.Base(filepath.Clean(dir)),
					Root:     dir,
					Priority: len(args) - i,
				})
			}

			installer := install.NewInstaller(ro.FlowSet, ro.Executor)
			result, err := installer.Install(ctx, packages, install.Options{
				WorkspaceRoot: workspace,
				Platform:      platform,
				Variables:     variables,
				DryRun:        dryRun,
			})
			if err != nil {
				return errors.Errorf("installing packages: %w", err)
			}

			ro.UserLogger.Header(fmt.Sprintf("installing %d packages to %s", len(packages), platform))
			failed := 0
			for _, pkg := range result.Packages {
				ro.UserLogger.Infof("%s: %d files processed, %d written", pkg.Package, pkg.FilesProcessed, pkg.FilesWritten)
				for _, e := range pkg.Errors {
					ro.UserLogger.Errorf("%s: %v", pkg.Package, e)
					failed++
				}
			}
			if len(result.Conflicts) > 0 {
				ro.UserLogger.Warningf("%d target conflicts", len(result.Conflicts))
				fmt.Fprint(cmd.OutOrStdout(), conflict.RenderConflicts(result.Conflicts))
			}
			if failed > 0 {
				return errors.Errorf("%d files failed", failed)
			}
			ro.UserLogger.Success("installation complete")
			return nil
		},
	}

	cmd.Flags().StringVarP(&platform, "platform", "p", "", "target platform id")
	cmd.Flags().StringVarP(&workspace, "workspace", "w", ".", "workspace root directory")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report without writing")
	cmd.Flags().StringArrayVar(&vars, "var", nil, "context variable key=value")
	_ = cmd.MarkFlagRequired("platform")

	return cmd
}

func parseVars(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := map[string]any{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, errors.Errorf("invalid --var %q, want key=value", pair)
		}
		out[key] = value
	}
	return out, nil
}

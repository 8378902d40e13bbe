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
	"io/fs"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/walteh/flowrc/pkg/format"
	"gitlab.com/tozd/go/errors"
)

// NewStatusCmd creates a new status command
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [package dir]",
		Short: "Detect and report a package's format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := args[0]
			var paths []string
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
				paths = append(paths, filepath.ToSlash(rel))
				return nil
			})
			if err != nil {
				return errors.Errorf("listing package: %w", err)
			}

			detected := format.NewDetector().Detect(paths)

			rows := pterm.TableData{
				{"format", string(detected.Type)},
				{"confidence", pterm.Sprintf("%.2f", detected.Confidence)},
				{"files", pterm.Sprintf("%d", detected.Analysis.Total)},
				{"universal", pterm.Sprintf("%d", detected.Analysis.Universal)},
			}
			if detected.Platform != "" {
				rows = append(rows, []string{"platform", detected.Platform})
			}
			return pterm.DefaultTable.WithData(rows).Render()
		},
	}
	return cmd
}

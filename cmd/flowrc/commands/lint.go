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
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/flowrc/pkg/config"
	"gitlab.com/tozd/go/errors"
)

// NewLintCmd creates a new lint command
func NewLintCmd(configPath func() string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Validate the flow configuration",
		Long: `Lint loads the flow configuration and checks every flow: path patterns
must compile, merge strategies must be known, and every map-pipeline
operation must pass structural validation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctx = zerolog.Ctx(ctx).With().Str("command", "lint").Logger().WithContext(ctx)

			flowSet, err := config.Load(ctx, configPath())
			if err != nil {
				return errors.Errorf("linting flow configuration: %w", err)
			}

			pterm.Success.Printf("configuration valid: %s\n", flowSet.String())
			return nil
		},
	}
	return cmd
}

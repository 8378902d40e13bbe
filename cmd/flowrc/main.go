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

package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/flowrc/cmd/flowrc/commands"
	"github.com/walteh/flowrc/cmd/flowrc/opts"
	"github.com/walteh/flowrc/pkg/config"
	"github.com/walteh/flowrc/pkg/flow"
	"github.com/walteh/flowrc/pkg/log"
	"github.com/walteh/flowrc/pkg/transform"
	"gitlab.com/tozd/go/errors"
)

var (
	// Flags
	configFile string
	debug      bool
)

// newRootOpts creates a new RootOpts with initialized dependencies
func newRootOpts(ctx context.Context) (*opts.RootOpts, error) {
	userLogger := log.New(os.Stdout, zerolog.InfoLevel)

	flowSet, err := config.Load(ctx, configFile)
	if err != nil {
		return nil, errors.Errorf("loading flow configuration: %w", err)
	}

	return &opts.RootOpts{
		FlowSet:    flowSet,
		Executor:   flow.NewExecutor(transform.Builtin()),
		UserLogger: userLogger,
	}, nil
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", ".flowrc.yaml", "flow configuration file path")
	cmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
}

// setupLogging configures zerolog based on flags
func setupLogging() {
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log
}

func main() {
	root := &cobra.Command{
		Use:   "flowrc",
		Short: "Sync AI assistant configuration across platforms",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
		SilenceUsage: true,
	}
	addRootFlags(root)

	ctx := context.Background()

	root.AddCommand(
		commands.NewInstallCmd(func(ctx context.Context) (*opts.RootOpts, error) { return newRootOpts(ctx) }),
		commands.NewSaveCmd(func(ctx context.Context) (*opts.RootOpts, error) { return newRootOpts(ctx) }),
		commands.NewStatusCmd(),
		commands.NewLintCmd(func() string { return configFile }),
	)

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

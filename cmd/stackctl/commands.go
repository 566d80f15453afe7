// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/stackctl/cmd/stackctl/internal/dispatch"
	"github.com/AleutianAI/stackctl/pkg/ux"
)

// cliOptions holds the persistent flag values of one invocation.
type cliOptions struct {
	configPath  string
	projectDir  string
	logLevel    string
	personality string
	dryRun      bool
	yes         bool
}

// newRootCmd builds the command tree. exitCode receives the status the
// process should exit with; cobra's own error return is reserved for
// usage errors.
func newRootCmd(app *cliApp) *cobra.Command {
	opts := &app.opts
	registry := dispatch.NewRegistry()

	rootCmd := &cobra.Command{
		Use:   "stackctl <command>",
		Short: "Run lifecycle commands against the pipeline stack",
		Long: `stackctl maps a single command token onto the container runtime:

  deploy             build images and start the stack
  logs, logs-<svc>   follow logs of the stack or one service
  restart-scheduler  rebuild the scheduler and worker only
  shell-collector    shell in the collector
  shell-db           SQL shell on the store (STORE_USER, STORE_DB)
  migrate            apply the latest schema revision
  ps, stop, clean    status, stop, stop and delete volumes

Run "stackctl commands" for the full table.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return completeTokens(registry, toComplete), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app.exitCode = app.runDispatch(cmd.Context(), args[0])
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (.yaml, .yml or .toml); also $STACKCTL_CONFIG")
	flags.StringVar(&opts.projectDir, "project-dir", "", "directory holding the compose file")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&opts.personality, "personality", "", "output style: full, standard, minimal, machine")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "print runtime command lines instead of running them")
	flags.BoolVarP(&opts.yes, "yes", "y", false, "skip the confirmation for destructive commands")

	rootCmd.AddCommand(newCommandsCmd(app, registry))
	rootCmd.AddCommand(newConfigCmd(app))
	return rootCmd
}

func newCommandsCmd(app *cliApp, registry *dispatch.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List the command vocabulary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.initPersonality("")
			ux.Title("Stack commands")
			ux.CommandTable(commandRows(registry))
			return nil
		},
	}
}

func newConfigCmd(app *cliApp) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return errors.New(`"config" requires a subcommand: show`)
		},
	}

	var format string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration after defaults and flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.exitCode = app.runConfigShow(format)
			return nil
		},
	}
	showCmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml or toml")

	configCmd.AddCommand(showCmd)
	return configCmd
}

// commandRows renders the registry for ux.CommandTable.
func commandRows(registry *dispatch.Registry) []ux.CommandRow {
	entries := registry.Entries()
	rows := make([]ux.CommandRow, 0, len(entries))
	for _, e := range entries {
		calls := make([]string, 0, e.Action.Len())
		for _, c := range e.Action.Calls() {
			calls = append(calls, c.String())
		}
		rows = append(rows, ux.CommandRow{
			Name:        e.Name,
			Calls:       strings.Join(calls, "; "),
			Summary:     e.Summary,
			Destructive: e.Action.Destructive(),
		})
	}
	return rows
}

// completeTokens offers the static tokens, then logs-<service> for the
// stack's own services once the prefix is typed.
func completeTokens(registry *dispatch.Registry, prefix string) []string {
	candidates := append(registry.Names(), dispatch.LogsPrefix)
	if strings.HasPrefix(prefix, dispatch.LogsPrefix) {
		candidates = nil
		for _, svc := range dispatch.StackServices() {
			candidates = append(candidates, dispatch.LogsPrefix+svc)
		}
	}

	var out []string
	for _, name := range candidates {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	return out
}

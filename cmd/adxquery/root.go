// Copyright 2024 Adxquery. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"github.com/spf13/cobra"

	"github.com/adxquery/adxquery/internal/config"
	"github.com/adxquery/adxquery/internal/logging"
)

var (
	cfgFile      string
	snapshotPath string
	logLevel     string
	appConfig    *config.Config
	appLogging   *logging.Helper
)

var rootCmd = &cobra.Command{
	Use:   "adxquery",
	Short: "Query ADExplorer directory snapshots with LDAP-style filters",
	Long: `adxquery decodes ADExplorer .dat directory snapshots and runs
LDAP-style filter queries against them without needing a live directory
connection.

Use "adxquery [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if snapshotPath != "" {
			cfg.Snapshot = snapshotPath
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		appConfig = cfg

		if cfg.LogLevel == "debug" {
			appLogging = logging.NewDevelopment()
		} else {
			appLogging = logging.NewNop()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a config file (YAML/TOML/JSON, overlaid with ADXQUERY_* env vars)")
	rootCmd.PersistentFlags().StringVarP(&snapshotPath, "snapshot", "s", "", "path to the ADExplorer .dat snapshot file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "logging verbosity (info|debug)")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(interactiveCmd)
}

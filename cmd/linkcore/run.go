package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/starfinanz/realm-core/pkg/linkcore"
)

// runResult wraps the cascade notification with a correlation ID unique
// to this invocation, so output from separate runs against the same
// fixture can be told apart in logs or captured output.
type runResult struct {
	RunID        string                       `json:"run_id"`
	Notification linkcore.CascadeNotification `json:"notification"`
}

var (
	runConfigFile string
	runBackend    string
	runSQLitePath string
)

var runCmd = &cobra.Command{
	Use:   "run <fixture.json>",
	Short: "Build a Group from a fixture, perform one mutation, print the cascade notification",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configFile := runConfigFile
		if configFile == "" {
			if dir, err := resolveConfigDir(); err == nil {
				candidate := filepath.Join(dir, "config.yaml")
				if _, err := os.Stat(candidate); err == nil {
					configFile = candidate
				}
			}
		}

		cfg, err := loadConfig(configFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "run:", err)
			os.Exit(exitUserError)
		}
		if runBackend != "" {
			cfg.Backend = linkcore.Backend(runBackend)
		}
		if runSQLitePath != "" {
			cfg.SQLitePath = runSQLitePath
		} else if cfg.Backend == linkcore.BackendSQLite && cfg.SQLitePath == "" {
			dataDir, err := resolveDataDir(cfg.DataDir)
			if err != nil {
				fmt.Fprintln(os.Stderr, "run:", err)
				os.Exit(exitSysError)
			}
			if err := os.MkdirAll(dataDir, 0o755); err != nil {
				fmt.Fprintln(os.Stderr, "run:", err)
				os.Exit(exitSysError)
			}
			cfg.SQLitePath = filepath.Join(dataDir, "linkcore.db")
		}
		if err := cfg.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, "run:", err)
			os.Exit(exitUserError)
		}

		f, err := loadFixture(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, "run:", err)
			os.Exit(exitUserError)
		}

		_, tables, closeFn, err := buildGroup(cfg, f)
		if err != nil {
			fmt.Fprintln(os.Stderr, "run:", err)
			os.Exit(exitSysError)
		}
		notification, err := applyOp(tables, f.Op)
		if err != nil {
			fmt.Fprintln(os.Stderr, "run:", err)
			os.Exit(exitUserError)
		}

		runID, err := uuid.NewV7()
		if err != nil {
			fmt.Fprintln(os.Stderr, "run: generate run id:", err)
			os.Exit(exitSysError)
		}
		out, err := json.MarshalIndent(runResult{RunID: runID.String(), Notification: notification}, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, "run: marshal notification:", err)
			os.Exit(exitSysError)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))

		if err := closeFn(); err != nil {
			fmt.Fprintln(os.Stderr, "run: close store:", err)
			os.Exit(exitSysError)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runConfigFile, "config", "", "config file (yaml/json/toml, read via viper)")
	runCmd.Flags().StringVar(&runBackend, "backend", "", "override backend: memory or sqlite")
	runCmd.Flags().StringVar(&runSQLitePath, "sqlite-path", "", "override sqlite database path")
}

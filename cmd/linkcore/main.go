// Package main provides the linkcore CLI: a diagnostic tool that loads a
// JSON fixture describing tables, columns, and links, builds a Group
// against it, performs one requested mutation, and prints the resulting
// cascade notification. It is not a schema/query CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/starfinanz/realm-core/internal/paths"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Global flag values, resolved by resolveConfigDir/resolveDataDir
// following the same flag > env > default precedence the paths package
// implements.
var (
	flagConfigDir string
	flagDataDir   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitSysError)
	}
}

var rootCmd = &cobra.Command{
	Use:     "linkcore",
	Short:   "linkcore is a diagnostic tool for the linked-row core",
	Version: version,
}

const version = "0.1.0"

// resolveConfigDir returns the configuration directory following
// flag > LINKCORE_CONFIG_DIR env > platform default.
func resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(flagConfigDir)
}

// resolveDataDir returns the data directory following
// flag > configDataDir (the loaded Config's DataDir, if any) >
// LINKCORE_DATA_DIR env > $(CWD)/.linkcore-db.
func resolveDataDir(configDataDir string) (string, error) {
	return paths.ResolveDataDir(flagDataDir, configDataDir)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("linkcore v" + version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: platform config dir)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory for the sqlite demo backend (default: $(CWD)/.linkcore-db)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
}

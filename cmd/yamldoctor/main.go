// Package main provides the yamldoctor CLI.
//
// yamldoctor repairs YAML that fails to parse (tabs, smart quotes, trailing
// commas, misaligned blocks, JSON pasted where YAML was expected) and checks
// Frigate NVR camera configurations, fixing out-of-range values in place.
//
// # Basic Usage
//
//	yamldoctor validate frigate.yml
//	yamldoctor repair --write frigate.yml
//	cat broken.yml | yamldoctor repair --no-format
//	yamldoctor watch frigate.yml
//
// # Environment Variables
//
//   - YAMLDOCTOR_CONFIG: Path to the tool configuration file
//     (default: ./.yamldoctor.yaml, then ~/.config/yamldoctor/config.yaml)
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build information, set with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	configPath string
	logLevel   string
	logFormat  string
)

// errIssuesRemain makes the process exit 1 without printing anything more;
// the handler has already reported the issues.
var errIssuesRemain = errors.New("issues remain")

func main() {
	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errIssuesRemain) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "yamldoctor",
		Short: "Repair broken YAML and check Frigate camera configs",
		Long: `yamldoctor repairs YAML documents that fail to parse and validates
Frigate NVR configurations: cameras, zones, PTZ autotracking, recording and
snapshot retention. Out-of-range values are clamped or reset, and every change
is listed.

Input is a file path, or standard input when the path is "-" or omitted.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to the yamldoctor config file (or set YAMLDOCTOR_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")

	rootCmd.AddCommand(
		buildValidateCmd(),
		buildFormatCmd(),
		buildConvertCmd(),
		buildRepairCmd(),
		buildWatchCmd(),
		buildSchemaCmd(),
		buildSampleCmd(),
	)
	return rootCmd
}

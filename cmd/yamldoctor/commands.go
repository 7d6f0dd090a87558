package main

import (
	"time"

	"github.com/spf13/cobra"
)

// =============================================================================
// Validate / Format / Convert
// =============================================================================

func buildValidateCmd() *cobra.Command {
	var (
		output  string
		noRules bool
	)
	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Check syntax and camera rules",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args, output, noRules)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&noRules, "no-rules", false, "Only check syntax")
	return cmd
}

func buildFormatCmd() *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "format [file]",
		Short: "Re-print a valid document with two-space indentation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFormat(cmd, args, write)
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Write the result back to the file")
	return cmd
}

func buildConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert [file]",
		Short: "Convert a JSON or JSON5 document to YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args)
		},
	}
}

// =============================================================================
// Repair
// =============================================================================

type repairFlags struct {
	noFormat bool
	noRules  bool
	write    bool
	output   string
}

func buildRepairCmd() *cobra.Command {
	var flags repairFlags
	cmd := &cobra.Command{
		Use:   "repair [file]",
		Short: "Repair syntax and fix camera rule violations",
		Long: `Repair runs a fixed sequence of text transforms until the document parses,
then fixes camera rule violations. The repaired document goes to stdout, or
back to the file with --write (a timestamped .bak copy is kept unless
repair.backup is false). The fix log and remaining issues go to stderr.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepair(cmd, args, flags)
		},
	}
	cmd.Flags().BoolVar(&flags.noFormat, "no-format", false, "Keep the original layout and comments where possible")
	cmd.Flags().BoolVar(&flags.noRules, "no-rules", false, "Only repair syntax")
	cmd.Flags().BoolVarP(&flags.write, "write", "w", false, "Write the result back to the file")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "text", "Report format: text or json")
	return cmd
}

// =============================================================================
// Watch
// =============================================================================

func buildWatchCmd() *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch <file>...",
		Short: "Re-validate files whenever they change",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args, debounce)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "Quiet period before re-validating (default from config, 300ms)")
	return cmd
}

// =============================================================================
// Schema / Sample
// =============================================================================

func buildSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the yamldoctor config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(cmd)
		},
	}
}

func buildSampleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sample",
		Short: "Print a broken sample document to try repair on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSample(cmd)
		},
	}
}

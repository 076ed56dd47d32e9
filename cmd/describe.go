package cmd

import (
	"fmt"

	"github.com/segmentio/encoding/json"
	"github.com/spf13/cobra"

	"github.com/giantswarm/load-testing/internal/report"
	"github.com/giantswarm/load-testing/internal/runner"
)

func newDescribeCmd() *cobra.Command {
	var flags suiteFlags

	cmd := &cobra.Command{
		Use:   "describe <test-suite>",
		Short: "Print a suite's configuration and compiled thresholds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			suite, err := flags.load(cmd.Context(), cmd, args[0])
			if err != nil {
				return err
			}
			compiled, err := runner.CompileSuite(suite)
			if err != nil {
				return err
			}
			return report.WriteConfiguration(cmd.OutOrStdout(), suite, compiled)
		},
	}

	flags.register(cmd)

	return cmd
}

func newCompileCmd() *cobra.Command {
	var flags suiteFlags

	cmd := &cobra.Command{
		Use:   "compile <test-suite>",
		Short: "Print the compiled threshold map as JSON",
		Long: `Compile a suite's thresholds and print them as a JSON object mapping each
threshold key to its list of expressions, the shape k6 expects in options.thresholds.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			suite, err := flags.load(cmd.Context(), cmd, args[0])
			if err != nil {
				return err
			}
			compiled, err := runner.CompileSuite(suite)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(compiled, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal thresholds: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	flags.register(cmd)

	return cmd
}

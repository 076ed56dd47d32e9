package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/giantswarm/load-testing/internal/testcase"
)

func newListCmd() *cobra.Command {
	var flags suiteFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available test suites",
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := testcase.List(flags.suitesDir)
			if err != nil {
				return fmt.Errorf("failed to list test suites: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintln(out, "No test suites found.")
				return nil
			}

			fmt.Fprintf(out, "Available test suites:\n\n")
			for _, name := range names {
				suite, err := flags.load(cmd.Context(), cmd, name)
				if err != nil {
					fmt.Fprintf(out, "  - %s (error loading: %v)\n", name, err)
					continue
				}
				fmt.Fprintf(out, "  - %s\n", suite.Name)
				fmt.Fprintf(out, "    Description: %s\n", suite.Description)
				fmt.Fprintf(out, "    Version: %s\n", suite.Version)
				fmt.Fprintf(out, "    Test cases: %d (%v)\n", suite.Registry.Len(), suite.Registry.Names())
				fmt.Fprintf(out, "    Common checks: %d\n", len(suite.CommonChecks))
				fmt.Fprintf(out, "    Defaults: %d VUs for %s, %s selection\n\n",
					suite.Options.Concurrency, suite.Options.Duration, suite.Options.Selector)
			}

			return nil
		},
	}

	flags.register(cmd)

	return cmd
}

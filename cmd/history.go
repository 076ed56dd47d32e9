package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/giantswarm/load-testing/internal/history"
)

func newHistoryCmd() *cobra.Command {
	var (
		historyDB string
		suite     string
		key       string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs or the trend of one threshold key",
		Long: `Show runs recorded with --history-db. With --key, show the observed value
of one threshold key (e.g. 'http_req_duration{test_case:home}') across the
runs of a suite together with its mean and standard deviation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if key != "" && suite == "" {
				return fmt.Errorf("--suite is required with --key")
			}

			store, err := history.Open(historyDB)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if key == "" {
				runs, err := store.ListRuns(ctx, suite, limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded.")
					return nil
				}
				table := tablewriter.NewWriter(out)
				table.SetHeader([]string{"Run", "Suite", "Started", "Duration", "Iterations", "Failed", "Result"})
				table.SetAutoFormatHeaders(false)
				for _, r := range runs {
					table.Append([]string{
						r.ID,
						r.Suite,
						r.StartedAt.Local().Format(time.DateTime),
						fmt.Sprintf("%.1fs", r.DurationSeconds),
						strconv.FormatInt(r.Iterations, 10),
						strconv.Itoa(r.Failures),
						passFail(r.Passed),
					})
				}
				table.Render()
				return nil
			}

			points, err := store.KeyHistory(ctx, suite, key, limit)
			if err != nil {
				return err
			}
			mean, stddev, count, err := store.Stats(ctx, suite, key)
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(out)
			table.SetHeader([]string{"Run", "Started", "Observed", "Result"})
			table.SetAutoFormatHeaders(false)
			for _, p := range points {
				observed := strconv.FormatFloat(p.Observed, 'f', 4, 64)
				if p.NoData {
					observed = "no data"
				}
				table.Append([]string{p.RunID, p.StartedAt.Local().Format(time.DateTime), observed, passFail(p.Passed)})
			}
			table.Render()
			_, err = fmt.Fprintf(out, "\n%s over %d runs with data: mean %.4f, stddev %.4f\n", key, count, mean, stddev)
			return err
		},
	}

	cmd.Flags().StringVar(&historyDB, "history-db", "load-testing.db", "SQLite database written by 'run --history-db'")
	cmd.Flags().StringVar(&suite, "suite", "", "Restrict to one suite")
	cmd.Flags().StringVar(&key, "key", "", "Threshold key to show the trend of")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs")

	return cmd
}

func passFail(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}

package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"callscribe/internal/domain"
	"callscribe/internal/service"
)

func newRunsCmd() *cobra.Command {
	var (
		limit  int
		userID int64
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent extraction runs from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(journalReadOnly)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := commandContext(cmd)
			limit = service.ClampLimit(limit)
			var runs []domain.RunRecord
			if userID != 0 {
				runs, err = a.svc.RunsByUser(ctx, userID, limit)
			} else {
				runs, err = a.svc.RecentRuns(ctx, limit)
			}
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			if asJSON {
				if runs == nil {
					runs = []domain.RunRecord{}
				}
				return printJSON(runs)
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tSOURCE\tSTATUS\tATTEMPTS\tDURATION\tURL\tERROR")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
					r.StartedAt.Local().Format(time.DateTime), r.Source, r.Status, r.Attempts,
					r.Duration().Round(time.Second), r.URL, r.Error)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", service.DefaultRunLimit, "number of runs to show")
	cmd.Flags().Int64Var(&userID, "user", 0, "only show runs requested by this Telegram user")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print runs as JSON")
	return cmd
}

package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions [id]",
	Short: "List stored sessions or show one with its trace",
	Long:  `Reads sessions stored in DATABASE_URL. Without an id prints the most recent ones.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		out := cmd.OutOrStdout()
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

		if len(args) == 1 {
			rec, trace, err := a.svc.Session(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "session %s (%s) %s after %d steps, agreement %v\n\n",
				rec.ID, rec.Scenario, rec.Status, rec.Steps, rec.Agreement)
			fmt.Fprintln(tw, "STEP\tT\tNEGOTIATOR\tACTION\tOUTCOME")
			for _, e := range trace {
				fmt.Fprintf(tw, "%d\t%.3f\t%s\t%s\t%v\n", e.Step, e.RelativeTime, e.Negotiator, e.Action, e.Outcome)
			}
			return tw.Flush()
		}

		recs, err := a.svc.Recent(cmd.Context(), sessionsLimit)
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "ID\tSCENARIO\tSTATUS\tSTEPS\tWELFARE\tCREATED")
		for _, r := range recs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.4f\t%s\n",
				r.ID, r.Scenario, r.Status, r.Steps, r.Welfare, r.CreatedAt.Format(time.RFC3339))
		}
		return tw.Flush()
	},
}

func init() {
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "how many sessions to list")
}

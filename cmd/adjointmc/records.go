package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lukaszgryglicki/adjointmc/internal/store"
)

func newRecordsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "records [run-id]",
		Short: "List saved runs, or the records of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(c.cfg.Output.DB)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			if len(args) == 0 {
				runs, err := st.Runs(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(tw, "RUN\tSTARTED\tEVENTS/TYPE\tPRIMARIES\tWORKERS\tRECORDS")
				for _, r := range runs {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%v\t%d\t%d\n",
						r.ID, r.StartedAt.Format(time.RFC3339), r.EventsPerType, r.Primaries, r.Workers, r.Records)
				}
				return tw.Flush()
			}

			recs, err := st.LoadRecords(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(tw, "THREAD\tID\tPARTICLE\tPDG\tINDEX\tEKIN\tEKIN/NUC\tWEIGHT\tCOSTH\tX\tY\tZ")
			for _, r := range recs {
				fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%d\t%.6g\t%.6g\t%.6g\t%.4f\t%.3f\t%.3f\t%.3f\n",
					r.Thread, r.ID, r.FwdName, r.FwdPDG, r.FwdIndex, r.Ekin, r.EkinPerNucleon,
					r.Weight, r.CosTheta, r.Position.X, r.Position.Y, r.Position.Z)
			}
			return tw.Flush()
		},
	}
}

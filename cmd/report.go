package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shiplet/ast-search/internal/report"
)

func newReportCmd(o *options) *cobra.Command {
	var (
		filter  report.Filter
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "List matches recorded by earlier searches run with --db",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.resolve(cmd)
			if err != nil {
				return err
			}
			if cfg.Database == "" {
				return errors.New("no database: pass --db or set database in the config file")
			}
			store, err := report.Open(cfg.Database)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			recs, err := store.Hits(cmd.Context(), filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				if recs == nil {
					recs = []report.Record{}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(recs)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tLOCATION\tTARGET\tNAME\tEXPRESSION\tANCHOR")
			for _, r := range recs {
				loc := r.Source
				if r.Line > 0 {
					loc = fmt.Sprintf("%s:%d:%d", r.Source, r.Line, r.Column)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", r.RunID, loc, r.Target, r.Name, r.Expression, r.AnchorType)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&o.database, "db", "", "SQLite database written by search --db")
	cmd.Flags().StringVar(&filter.Source, "source", "", "only matches in this file")
	cmd.Flags().Int64Var(&filter.RunID, "run", 0, "only matches from this run")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print records as JSON")
	return cmd
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/prepforge/prepforge/internal/model"
	"github.com/prepforge/prepforge/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent analysis runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		mode, _ := cmd.Flags().GetString("mode")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		recs, err := st.ListAnalyses(ctx, store.Filter{
			Mode:   model.Mode(mode),
			Status: model.AnalysisStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "list analyses")
		}

		if asJSON {
			out, err := json.MarshalIndent(recs, "", "  ")
			if err != nil {
				return eris.Wrap(err, "marshal analyses")
			}
			fmt.Println(string(out))
			return nil
		}

		if len(recs) == 0 {
			fmt.Fprintln(os.Stderr, "No analyses found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tMODE\tSTATUS\tVERIFICATION\tCACHED\tLATENCY\tCOST\tCREATED")
		for _, rec := range recs {
			verification := string(rec.VerificationStatus)
			if verification == "" {
				verification = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%dms\t$%.4f\t%s\n",
				rec.ID,
				rec.Mode,
				rec.Status,
				verification,
				rec.Cached,
				rec.LatencyMS,
				rec.CostUSD,
				rec.CreatedAt.Format(time.RFC3339),
			)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().String("mode", "", "filter by mode")
	historyCmd.Flags().String("status", "", "filter by status: succeeded, failed")
	historyCmd.Flags().Int("limit", 50, "max rows to list")
	historyCmd.Flags().Bool("json", false, "print as JSON")
	rootCmd.AddCommand(historyCmd)
}

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/eringen/medlog/analytics"
)

func newStatsCommand(opts *rootOptions) *cobra.Command {
	var (
		user   string
		months string
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the analytics report for a user",
		Long: `Print the analytics report for a user.

--range accepts 3, 6, 12, 24 or 60 months. Anything else falls back to 6.
Without --range the configured default_range_months is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := userFlag(user)
			if err != nil {
				return err
			}
			cfg, repo, closeRepo, err := opts.openRepository()
			if err != nil {
				return err
			}
			defer closeRepo()

			vs, err := repo.ListVisits(cmd.Context(), userID)
			if err != nil {
				return err
			}
			r := analytics.Range(cfg.DefaultRangeMonths)
			if months != "" {
				r = analytics.ParseRange(months)
			}
			rep := analytics.Compute(vs, r, opts.now())

			out := cmd.OutOrStdout()
			if opts.Format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			writeReport(out, rep)
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "email of the user to report on")
	cmd.Flags().StringVarP(&months, "range", "r", "", "time range in months (default from config)")
	return cmd
}

func writeReport(w io.Writer, rep *analytics.Report) {
	s := rep.Summary
	fmt.Fprintf(w, "Range:          last %d months (since %s)\n", rep.RangeMonths, rep.Cutoff)
	fmt.Fprintf(w, "Total visits:   %d\n", s.TotalVisits)
	if s.TotalVisits == 0 {
		fmt.Fprintln(w, "No data available for the selected time period.")
		return
	}
	fmt.Fprintf(w, "Avg. symptoms:  %.1f per visit\n", s.AvgSymptomsPerVisit)
	fmt.Fprintf(w, "Avg. severity:  %.1f/10\n", s.AvgSeverity)
	fmt.Fprintf(w, "Most common:    %s\n", s.MostCommonCategory)

	fmt.Fprintln(w, "\nVisits per month:")
	for _, m := range rep.Monthly {
		fmt.Fprintf(w, "  %-10s %d\n", m.Label, m.Visits)
	}
	fmt.Fprintln(w, "\nCategories:")
	for _, c := range rep.Categories {
		fmt.Fprintf(w, "  %-25s %d\n", c.Name, c.Count)
	}
	if len(rep.TopSymptoms) > 0 {
		fmt.Fprintln(w, "\nTop symptoms:")
		for _, sym := range rep.TopSymptoms {
			fmt.Fprintf(w, "  %-25s %d (avg. %.1f)\n", sym.Name, sym.Count, sym.AverageSeverity)
		}
	}

	fmt.Fprintln(w)
	for _, in := range []analytics.Insight{rep.Insights.VisitPatterns, rep.Insights.CommonIssues, rep.Insights.SymptomAnalysis} {
		fmt.Fprintf(w, "%s: %s\n", in.Title, in.Text)
	}
	fmt.Fprintln(w, rep.Insights.Disclaimer)
}

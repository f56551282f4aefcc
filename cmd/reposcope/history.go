package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/reposcope/reposcope/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query the analysis archive",
	Long: `List archived commit patterns from the local history database.

Examples:
  # Last 20 patterns across the fleet
  reposcope history

  # Last 50 patterns for one repository
  reposcope history --repo my-service --limit 50

  # Archived anti-patterns instead
  reposcope history --anti-patterns`,
	Run: func(cmd *cobra.Command, args []string) {
		repo, _ := cmd.Flags().GetString("repo")
		limit, _ := cmd.Flags().GetInt("limit")
		showAPs, _ := cmd.Flags().GetBool("anti-patterns")

		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		store, err := history.Open(cfg.HistoryDBPath())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: opening archive: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		ctx := context.Background()
		gray := color.New(color.FgHiBlack).SprintFunc()

		if showAPs {
			aps, err := store.RecentAntiPatterns(ctx, limit)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if len(aps) == 0 {
				fmt.Println(gray("No archived anti-patterns."))
				return
			}
			for _, ap := range aps {
				fmt.Printf("%-26s %-8s %s %s\n",
					ap.PatternName, ap.Severity, ap.Description,
					gray(humanize.Time(ap.FirstDetected)))
			}
			return
		}

		patterns, err := store.RecentPatterns(ctx, repo, limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(patterns) == 0 {
			fmt.Println(gray("No archived commit patterns."))
			return
		}
		for _, p := range patterns {
			fmt.Printf("%-24s %-13s %-8s %s %s\n",
				p.Repository, p.PatternType, p.CommitSHA[:min(8, len(p.CommitSHA))],
				firstLine(p.Message), gray(humanize.Time(p.Timestamp)))
		}
	},
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

func init() {
	historyCmd.Flags().String("repo", "", "filter by repository name")
	historyCmd.Flags().Int("limit", 20, "maximum records to show")
	historyCmd.Flags().Bool("anti-patterns", false, "show archived anti-patterns")
	rootCmd.AddCommand(historyCmd)
}

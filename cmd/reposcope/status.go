package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/reposcope/reposcope/internal/dashboard"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest analytics dashboard",
	Long:  `Display the most recent dashboard snapshot: fleet health, detection counts, top recommendations and commit trends.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		snapshot, err := dashboard.Read(cfg.DashboardPath())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: no dashboard available (run 'reposcope analyze' first): %v\n", err)
			os.Exit(1)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s\n", cyan("=== Reposcope Dashboard ==="))
		fmt.Printf("%s\n\n", gray(fmt.Sprintf("updated %s", humanize.Time(snapshot.Timestamp))))

		s := snapshot.AnalysisSummary
		fmt.Printf("%s\n", yellow("Analysis Summary:"))
		fmt.Printf("  commit patterns: %d\n", s.TotalCommitPatterns)
		fmt.Printf("  anti-patterns:   %d\n", s.AntiPatternsDetected)
		fmt.Printf("  insights:        %d\n", s.LearningInsights)
		fmt.Printf("  playbooks:       %d\n", s.PlaybooksGenerated)
		fmt.Println()

		fmt.Printf("%s\n", yellow("Repository Health:"))
		names := make([]string, 0, len(snapshot.RepoHealth))
		for name := range snapshot.RepoHealth {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			score := snapshot.RepoHealth[name]
			fmt.Printf("  %s %-30s %5.1f\n", healthDot(score), name, score)
		}
		fmt.Println()

		if len(snapshot.Recommendations) > 0 {
			fmt.Printf("%s\n", yellow("Top Recommendations:"))
			for _, rec := range snapshot.Recommendations {
				fmt.Printf("  [%s] %s\n", rec.Priority, rec.Description)
			}
			fmt.Println()
		}

		fmt.Printf("%s %s (avg %.1f commits/day)\n",
			yellow("Commit Trend:"), snapshot.Trends.TrendDirection, snapshot.Trends.AvgDailyCommits)
	},
}

// healthDot colors a status dot by health score band.
func healthDot(score float64) string {
	switch {
	case score >= 80:
		return color.New(color.FgGreen).Sprint("●")
	case score >= 50:
		return color.New(color.FgYellow).Sprint("●")
	default:
		return color.New(color.FgRed).Sprint("●")
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

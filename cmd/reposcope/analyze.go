package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a single full analysis pass",
	Long: `Run every analysis stage once, in dependency order, then exit. The
results land in the same artifacts and history archive the daemon
maintains, so 'reposcope status' works immediately afterwards.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		e, err := newEngine(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer e.Stop()

		if err := e.RunOnce(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: analysis failed: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		base := e.Base()
		fmt.Printf("%s analysis complete\n", green("✓"))
		fmt.Printf("  commit patterns: %d\n", base.PatternCount())
		fmt.Printf("  anti-patterns:   %d\n", len(base.AntiPatterns()))
		fmt.Printf("  insights:        %d\n", len(base.Insights()))
		fmt.Printf("  playbooks:       %d\n", len(base.Playbooks()))
		fmt.Printf("  dashboard:       %s\n", cfg.DashboardPath())
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

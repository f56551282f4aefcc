package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the analysis engine as a daemon",
	Long: `Start all analysis stages on their configured intervals and run until
interrupted. Each stage runs independently; a failing stage backs off
and retries without affecting the others.`,
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

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		fmt.Printf("%s\n", cyan("=== Reposcope Engine ==="))
		fmt.Printf("Watching %d repositories, data in %s\n", len(cfg.Fleet), cfg.DataDir)
		fmt.Println("Press Ctrl+C to stop.")

		e.Start(ctx)
		<-ctx.Done()

		fmt.Println("\nShutting down...")
		e.Stop()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

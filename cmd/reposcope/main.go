package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/reposcope/reposcope/internal/config"
	"github.com/reposcope/reposcope/internal/engine"
	"github.com/reposcope/reposcope/internal/forge"
)

var rootCmd = &cobra.Command{
	Use:   "reposcope",
	Short: "Continuous repository intelligence engine",
	Long: `Reposcope continuously mines commit, branch and file activity across a
fleet of repositories, turning raw development events into commit
patterns, anti-pattern detections, learning insights and remediation
playbooks, summarized on an analytics dashboard.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initViper)

	rootCmd.PersistentFlags().String("config", "", "config file (default reposcope.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
}

func initViper() {
	viper.SetEnvPrefix("REPOSCOPE")
	viper.AutomaticEnv()

	if verbose, _ := rootCmd.PersistentFlags().GetBool("verbose"); verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
}

// configPath resolves the config file location: flag, then REPOSCOPE_CONFIG,
// then the default filename in the working directory.
func configPath() string {
	if path, _ := rootCmd.PersistentFlags().GetString("config"); path != "" {
		return path
	}
	if path := viper.GetString("config"); path != "" {
		return path
	}
	return "reposcope.yaml"
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// newEngine builds a fully wired engine from the loaded config.
func newEngine(cfg *config.Config) (*engine.Engine, error) {
	logger := logrus.NewEntry(logrus.StandardLogger())

	source, err := forge.NewGiteaSource(forge.GiteaConfig{
		URL:               cfg.Forge.URL,
		Owner:             cfg.Forge.Owner,
		Token:             cfg.Forge.Token,
		RequestsPerSecond: cfg.Forge.RequestsPerSecond,
		Logger:            logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to forge: %w", err)
	}

	return engine.New(cfg, source, logger)
}

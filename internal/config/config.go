// Package config loads and validates the engine configuration.
//
// Configuration errors are the only fatal error class in the system: they
// surface at startup, before any stage is scheduled. Everything after
// startup is logged and retried, never fatal.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/reposcope/reposcope/internal/types"
)

// Config is the full engine configuration loaded from YAML.
type Config struct {
	// Forge is the data-source endpoint configuration.
	Forge ForgeConfig `yaml:"forge"`

	// Fleet lists the repositories under analysis.
	Fleet []RepoConfig `yaml:"fleet"`

	// Intervals control stage cadence.
	Intervals IntervalConfig `yaml:"intervals"`

	// LookbackDays bounds how far back commit analysis reaches.
	LookbackDays int `yaml:"lookback_days"`

	// MaxPatternsInMemory caps the knowledge base pattern collection;
	// oldest records are trimmed past this.
	MaxPatternsInMemory int `yaml:"max_patterns_in_memory"`

	// ExclusionPatterns skip matching repositories entirely. Matching is
	// deliberately loose: the wildcard is stripped and the remaining
	// fragment is matched as a case-insensitive substring.
	ExclusionPatterns []string `yaml:"exclusion_patterns"`

	// CriticalRepos get full repository weight in impact scoring.
	CriticalRepos []string `yaml:"critical_repos"`

	// BranchAgeDays is the threshold for long-lived branch detection.
	BranchAgeDays int `yaml:"branch_age_days"`

	// DataDir holds the JSON cache artifacts and the history database.
	DataDir string `yaml:"data_dir"`
}

// ForgeConfig points the engine at its forge API.
type ForgeConfig struct {
	URL   string `yaml:"url"`
	Owner string `yaml:"owner"`
	// Token is resolved from TokenEnv when empty, so credentials can stay
	// out of the config file.
	Token    string `yaml:"token,omitempty"`
	TokenEnv string `yaml:"token_env,omitempty"`
	// RequestsPerSecond throttles API calls. Zero means the default (5).
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`
}

// RepoConfig declares one fleet repository and its dependency edges.
type RepoConfig struct {
	Name         string             `yaml:"name"`
	Category     types.RepoCategory `yaml:"category,omitempty"`
	Dependencies []string           `yaml:"dependencies,omitempty"`
}

// IntervalConfig holds per-stage cadence in seconds, mirroring the stage
// names used by the scheduler. A failed cycle sleeps for roughly double the
// configured interval before retrying.
type IntervalConfig struct {
	CommitAnalysisSeconds       int `yaml:"commit_analysis_seconds"`
	AntiPatternDetectionSeconds int `yaml:"anti_pattern_detection_seconds"`
	InsightExtractionSeconds    int `yaml:"insight_extraction_seconds"`
	PlaybookGenerationSeconds   int `yaml:"playbook_generation_seconds"`
	DashboardUpdateSeconds      int `yaml:"dashboard_update_seconds"`
}

// Default returns the production defaults.
func Default() *Config {
	return &Config{
		Intervals: IntervalConfig{
			CommitAnalysisSeconds:       3600,
			AntiPatternDetectionSeconds: 7200,
			InsightExtractionSeconds:    3600,
			PlaybookGenerationSeconds:   7200,
			DashboardUpdateSeconds:      300,
		},
		LookbackDays:        30,
		MaxPatternsInMemory: 1000,
		BranchAgeDays:       30,
		DataDir:             "./data",
	}
}

// Load reads a YAML config file, applies defaults for unset fields and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.Intervals.CommitAnalysisSeconds == 0 {
		c.Intervals.CommitAnalysisSeconds = d.Intervals.CommitAnalysisSeconds
	}
	if c.Intervals.AntiPatternDetectionSeconds == 0 {
		c.Intervals.AntiPatternDetectionSeconds = d.Intervals.AntiPatternDetectionSeconds
	}
	if c.Intervals.InsightExtractionSeconds == 0 {
		c.Intervals.InsightExtractionSeconds = d.Intervals.InsightExtractionSeconds
	}
	if c.Intervals.PlaybookGenerationSeconds == 0 {
		c.Intervals.PlaybookGenerationSeconds = d.Intervals.PlaybookGenerationSeconds
	}
	if c.Intervals.DashboardUpdateSeconds == 0 {
		c.Intervals.DashboardUpdateSeconds = d.Intervals.DashboardUpdateSeconds
	}
	if c.LookbackDays == 0 {
		c.LookbackDays = d.LookbackDays
	}
	if c.MaxPatternsInMemory == 0 {
		c.MaxPatternsInMemory = d.MaxPatternsInMemory
	}
	if c.BranchAgeDays == 0 {
		c.BranchAgeDays = d.BranchAgeDays
	}
	if c.DataDir == "" {
		c.DataDir = d.DataDir
	}
	if c.Forge.Token == "" && c.Forge.TokenEnv != "" {
		c.Forge.Token = os.Getenv(c.Forge.TokenEnv)
	}
	for i := range c.Fleet {
		if c.Fleet[i].Category == "" {
			c.Fleet[i].Category = types.RepoOther
		}
	}
}

// Validate enforces the startup contract: non-negative intervals,
// well-formed exclusion patterns, a usable data directory and a coherent
// fleet declaration.
func (c *Config) Validate() error {
	intervals := map[string]int{
		"commit_analysis_seconds":        c.Intervals.CommitAnalysisSeconds,
		"anti_pattern_detection_seconds": c.Intervals.AntiPatternDetectionSeconds,
		"insight_extraction_seconds":     c.Intervals.InsightExtractionSeconds,
		"playbook_generation_seconds":    c.Intervals.PlaybookGenerationSeconds,
		"dashboard_update_seconds":       c.Intervals.DashboardUpdateSeconds,
	}
	for name, v := range intervals {
		if v < 0 {
			return fmt.Errorf("interval %s must be non-negative (got %d)", name, v)
		}
	}

	if c.LookbackDays < 0 {
		return fmt.Errorf("lookback_days must be non-negative (got %d)", c.LookbackDays)
	}
	if c.MaxPatternsInMemory < 0 {
		return fmt.Errorf("max_patterns_in_memory must be non-negative (got %d)", c.MaxPatternsInMemory)
	}
	if c.BranchAgeDays < 0 {
		return fmt.Errorf("branch_age_days must be non-negative (got %d)", c.BranchAgeDays)
	}

	for _, pattern := range c.ExclusionPatterns {
		if strings.TrimSpace(strings.ReplaceAll(pattern, "*", "")) == "" {
			return fmt.Errorf("exclusion pattern %q matches everything", pattern)
		}
	}

	seen := make(map[string]bool)
	for _, repo := range c.Fleet {
		if repo.Name == "" {
			return fmt.Errorf("fleet entry with empty name")
		}
		if seen[repo.Name] {
			return fmt.Errorf("duplicate fleet repository: %s", repo.Name)
		}
		seen[repo.Name] = true
		if !repo.Category.IsValid() {
			return fmt.Errorf("repository %s: invalid category %q", repo.Name, repo.Category)
		}
	}

	if c.DataDir != "" {
		if err := os.MkdirAll(c.DataDir, 0755); err != nil {
			return fmt.Errorf("data_dir %s is not usable: %w", c.DataDir, err)
		}
	}

	return nil
}

// StageIntervals converts the configured seconds into durations keyed the
// way the scheduler names its stages.
func (c *Config) StageIntervals() map[string]time.Duration {
	return map[string]time.Duration{
		"commit_analysis":        time.Duration(c.Intervals.CommitAnalysisSeconds) * time.Second,
		"anti_pattern_detection": time.Duration(c.Intervals.AntiPatternDetectionSeconds) * time.Second,
		"insight_extraction":     time.Duration(c.Intervals.InsightExtractionSeconds) * time.Second,
		"playbook_generation":    time.Duration(c.Intervals.PlaybookGenerationSeconds) * time.Second,
		"dashboard_update":       time.Duration(c.Intervals.DashboardUpdateSeconds) * time.Second,
	}
}

// RepoNames returns the declared fleet repository names in order.
func (c *Config) RepoNames() []string {
	names := make([]string, 0, len(c.Fleet))
	for _, r := range c.Fleet {
		names = append(names, r.Name)
	}
	return names
}

// PatternsCachePath is the commit-patterns JSON artifact location.
func (c *Config) PatternsCachePath() string {
	return filepath.Join(c.DataDir, "commit_patterns.json")
}

// DashboardPath is the analytics dashboard JSON artifact location.
func (c *Config) DashboardPath() string {
	return filepath.Join(c.DataDir, "analytics_dashboard.json")
}

// HistoryDBPath is the sqlite archive location.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

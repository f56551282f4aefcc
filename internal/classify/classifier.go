// Package classify turns raw forge commits into typed, scored commit
// pattern records.
package classify

import (
	"context"
	"math"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/reposcope/reposcope/internal/forge"
	"github.com/reposcope/reposcope/internal/types"
)

// prefixEntry pairs a message prefix with the pattern type it maps to.
// The slice order is the classification priority: first match wins.
type prefixEntry struct {
	prefix      string
	patternType types.PatternType
}

var prefixTable = []prefixEntry{
	{"feat", types.PatternFeature},
	{"fix", types.PatternBugfix},
	{"refactor", types.PatternRefactor},
	{"docs", types.PatternDocumentation},
	{"test", types.PatternTest},
}

// criticalExtensions are the file extensions that count as critical for
// impact scoring: code, script and config files.
var criticalExtensions = map[string]bool{
	".go":   true,
	".py":   true,
	".ps1":  true,
	".json": true,
}

const (
	criticalRepoWeight = 100.0
	normalRepoWeight   = 50.0
)

// Classifier converts commits into CommitPattern records.
type Classifier struct {
	criticalRepos     map[string]bool
	exclusionPatterns []string
	logger            *logrus.Entry
}

// New creates a classifier. criticalRepos is the impact allow-list;
// exclusionPatterns use the documented loose matching (see Excluded).
func New(criticalRepos, exclusionPatterns []string, logger *logrus.Entry) *Classifier {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	critical := make(map[string]bool, len(criticalRepos))
	for _, r := range criticalRepos {
		critical[strings.ToLower(r)] = true
	}

	return &Classifier{
		criticalRepos:     critical,
		exclusionPatterns: exclusionPatterns,
		logger:            logger.WithField("stage", "classify"),
	}
}

// Excluded reports whether a repository is skipped for all analysis.
//
// Matching is intentionally loose: the wildcard is stripped and the
// remaining fragment is matched as a case-insensitive substring anywhere in
// the repository name. So "geri-cms-*" excludes "geri-cms-legacy" but also
// "not-geri-cms-related". Tightening this to real glob matching would
// silently change which repositories every stage sees.
func (c *Classifier) Excluded(repo string) bool {
	lower := strings.ToLower(repo)
	for _, pattern := range c.exclusionPatterns {
		fragment := strings.ToLower(strings.ReplaceAll(pattern, "*", ""))
		if fragment != "" && strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

// ClassifyType maps a commit message to a pattern type by case-insensitive
// prefix match in fixed priority order. No match yields PatternOther.
func ClassifyType(message string) types.PatternType {
	lower := strings.ToLower(message)
	for _, entry := range prefixTable {
		if strings.HasPrefix(lower, entry.prefix) {
			return entry.patternType
		}
	}
	return types.PatternOther
}

// ComplexityScore computes the bounded complexity heuristic:
// min(100, files*10 + lines/10). Files dominate over raw line churn.
func ComplexityScore(filesChanged, linesChanged int) float64 {
	score := float64(filesChanged)*10 + float64(linesChanged)/10
	return math.Min(score, 100.0)
}

// ImpactScore computes the bounded impact heuristic from repository weight,
// critical-file count and change breadth.
func (c *Classifier) ImpactScore(repo string, files []string) float64 {
	weight := normalRepoWeight
	if c.criticalRepos[strings.ToLower(repo)] {
		weight = criticalRepoWeight
	}

	critical := 0
	for _, f := range files {
		if criticalExtensions[strings.ToLower(filepath.Ext(f))] {
			critical++
		}
	}

	score := weight*0.3 + float64(critical)*10 + float64(len(files))*5
	return math.Min(score, 100.0)
}

// Classify converts one commit into a pattern record. Commits with no SHA
// are malformed payloads and yield nil.
func (c *Classifier) Classify(repo string, commit forge.Commit) *types.CommitPattern {
	if commit.SHA == "" {
		return nil
	}

	return &types.CommitPattern{
		PatternID:       types.NewID(),
		Repository:      repo,
		CommitSHA:       commit.SHA,
		Author:          commit.Author,
		Timestamp:       commit.Timestamp,
		Message:         commit.Message,
		FilesChanged:    commit.Files,
		LinesAdded:      commit.Additions,
		LinesDeleted:    commit.Deletions,
		PatternType:     ClassifyType(commit.Message),
		ComplexityScore: ComplexityScore(len(commit.Files), commit.Additions+commit.Deletions),
		ImpactScore:     c.ImpactScore(repo, commit.Files),
	}
}

// AnalyzeRepository fetches and classifies one repository's recent commits.
// Malformed commits are skipped with a log entry; the returned error covers
// only repository-scoped fetch failures.
func (c *Classifier) AnalyzeRepository(ctx context.Context, source forge.Source, repo string, lookbackDays int) ([]types.CommitPattern, error) {
	commits, err := source.Commits(ctx, repo, lookbackDays)
	if err != nil {
		return nil, err
	}

	patterns := make([]types.CommitPattern, 0, len(commits))
	for _, commit := range commits {
		pattern := c.Classify(repo, commit)
		if pattern == nil {
			c.logger.WithField("repo", repo).Warn("skipping malformed commit")
			continue
		}
		patterns = append(patterns, *pattern)
	}

	c.logger.WithFields(logrus.Fields{
		"repo":    repo,
		"commits": len(commits),
	}).Debug("analyzed repository commits")

	return patterns, nil
}

// AnalyzeFleet classifies every non-excluded repository. A single
// repository's failure is logged and does not stop the rest of the cycle.
func (c *Classifier) AnalyzeFleet(ctx context.Context, source forge.Source, repos []string, lookbackDays int) []types.CommitPattern {
	var all []types.CommitPattern
	for _, repo := range repos {
		if c.Excluded(repo) {
			continue
		}
		patterns, err := c.AnalyzeRepository(ctx, source, repo, lookbackDays)
		if err != nil {
			c.logger.WithField("repo", repo).WithError(err).Error("repository commit analysis failed")
			continue
		}
		all = append(all, patterns...)
	}
	return all
}

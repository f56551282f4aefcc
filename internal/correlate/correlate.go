// Package correlate detects coordinated multi-repository activity by
// bucketing commit patterns into fixed 4-hour time windows.
package correlate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reposcope/reposcope/internal/types"
)

const (
	// minPatterns is the floor below which correlation is statistically
	// meaningless and the stage is a no-op.
	minPatterns = 10

	// windowHours is the correlation window width. Windows are aligned to
	// the day by flooring the hour to the nearest multiple of 4.
	windowHours = 4

	// minActiveRepos is how many distinct repositories must commit inside
	// one window for it to count as high cross-repo activity.
	minActiveRepos = 3

	// minThemeLength and minThemeCount filter theme tokens; maxThemes caps
	// the result in first-seen order.
	minThemeLength = 3
	minThemeCount  = 2
	maxThemes      = 10

	// evidenceSample is how many commit messages an insight carries.
	evidenceSample = 5

	correlationConfidence    = 0.7
	correlationApplicability = 0.8
)

var wordPattern = regexp.MustCompile(`\b\w+\b`)

// Analyzer groups commit patterns and emits insights for coordinated
// activity. Purely observational otherwise: aggregates are logged, never
// stored.
type Analyzer struct {
	logger *logrus.Entry
}

// New creates a correlation analyzer.
func New(logger *logrus.Entry) *Analyzer {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Analyzer{logger: logger.WithField("stage", "correlate")}
}

// WindowKey floors a timestamp to its 4-hour-aligned window start.
func WindowKey(t time.Time) time.Time {
	truncated := t.Truncate(time.Hour)
	return truncated.Add(-time.Duration(truncated.Hour()%windowHours) * time.Hour)
}

// CommonThemes tokenizes commit messages into lowercase words and returns
// tokens longer than minThemeLength appearing at least minThemeCount times,
// in first-seen order, capped at maxThemes. Encounter order, not frequency
// rank, breaks ties.
func CommonThemes(messages []string) []string {
	counts := make(map[string]int)
	var order []string

	for _, message := range messages {
		for _, word := range wordPattern.FindAllString(strings.ToLower(message), -1) {
			if counts[word] == 0 {
				order = append(order, word)
			}
			counts[word]++
		}
	}

	var themes []string
	for _, word := range order {
		if len(word) > minThemeLength && counts[word] >= minThemeCount {
			themes = append(themes, word)
			if len(themes) == maxThemes {
				break
			}
		}
	}
	return themes
}

// Analyze runs one correlation pass over the accumulated patterns and
// returns insights for windows with coordinated activity. Below the
// minimum pattern count it is a no-op.
func (a *Analyzer) Analyze(patterns []types.CommitPattern) []types.LearningInsight {
	if len(patterns) < minPatterns {
		return nil
	}

	a.logTypeTrends(patterns)

	windows := make(map[time.Time][]types.CommitPattern)
	for _, p := range patterns {
		key := WindowKey(p.Timestamp)
		windows[key] = append(windows[key], p)
	}

	// Deterministic window order for stable output.
	keys := make([]time.Time, 0, len(windows))
	for k := range windows {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	var insights []types.LearningInsight
	qualifying := 0
	for _, key := range keys {
		group := windows[key]
		repos := distinctRepos(group)
		if len(repos) < minActiveRepos {
			continue
		}
		qualifying++

		if insight := a.correlateWindow(key, group, repos); insight != nil {
			insights = append(insights, *insight)
		}
	}

	a.logger.WithField("windows", qualifying).Info("identified high cross-repo activity periods")
	return insights
}

// correlateWindow extracts common themes for one qualifying window and
// emits a success-pattern insight when at least two themes are shared.
func (a *Analyzer) correlateWindow(window time.Time, group []types.CommitPattern, repos []string) *types.LearningInsight {
	messages := make([]string, len(group))
	for i, p := range group {
		messages[i] = p.Message
	}

	themes := CommonThemes(messages)
	if len(themes) < 2 {
		return nil
	}

	evidence := messages
	if len(evidence) > evidenceSample {
		evidence = evidence[:evidenceSample]
	}

	return &types.LearningInsight{
		InsightID:          types.NewID(),
		InsightType:        types.InsightSuccessPattern,
		Repositories:       repos,
		Evidence:           append([]string(nil), evidence...),
		ConfidenceScore:    correlationConfidence,
		ApplicabilityScore: correlationApplicability,
		InsightText:        fmt.Sprintf("Coordinated development activity detected: %s", strings.Join(themes, ", ")),
		ActionableSteps: []string{
			"Consider formalizing coordinated development process",
			"Create shared development timeline",
			"Establish cross-repo code review process",
		},
		GeneratedAt: time.Now(),
	}
}

// logTypeTrends logs per-repository aggregates for each pattern type. This
// is observational only; nothing downstream consumes it.
func (a *Analyzer) logTypeTrends(patterns []types.CommitPattern) {
	byType := make(map[types.PatternType][]types.CommitPattern)
	for _, p := range patterns {
		byType[p.PatternType] = append(byType[p.PatternType], p)
	}

	for patternType, group := range byType {
		if len(group) < 3 {
			continue
		}
		byRepo := make(map[string][]types.CommitPattern)
		for _, p := range group {
			byRepo[p.Repository] = append(byRepo[p.Repository], p)
		}
		for repo, repoPatterns := range byRepo {
			var complexity, impact float64
			for _, p := range repoPatterns {
				complexity += p.ComplexityScore
				impact += p.ImpactScore
			}
			n := float64(len(repoPatterns))
			a.logger.WithFields(logrus.Fields{
				"repo":           repo,
				"pattern_type":   patternType,
				"frequency":      len(repoPatterns),
				"avg_complexity": complexity / n,
				"avg_impact":     impact / n,
			}).Debug("pattern type trend")
		}
	}
}

func distinctRepos(patterns []types.CommitPattern) []string {
	seen := make(map[string]bool)
	var repos []string
	for _, p := range patterns {
		if !seen[p.Repository] {
			seen[p.Repository] = true
			repos = append(repos, p.Repository)
		}
	}
	return repos
}

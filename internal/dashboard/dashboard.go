// Package dashboard snapshots the knowledge base into a consistent summary
// artifact: counts and distributions, per-repository health scores, top
// recommendations and commit trends.
//
// The aggregator is a pure read stage. It may observe a partially-updated
// knowledge base; because records are immutable once appended, the snapshot
// is always a consistent subset, never a torn write.
package dashboard

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reposcope/reposcope/internal/knowledge"
	"github.com/reposcope/reposcope/internal/types"
)

const (
	maxAntiPatternRecommendations = 5
	maxInsightRecommendations     = 3
	insightApplicabilityThreshold = 0.7
	trendDays                     = 7
)

// severityPenalties are the per-anti-pattern health deductions.
var severityPenalties = map[types.Severity]float64{
	types.SeverityCritical: 20,
	types.SeverityHigh:     10,
	types.SeverityMedium:   5,
	types.SeverityLow:      2,
}

// Snapshot is the analytics dashboard artifact schema.
type Snapshot struct {
	Timestamp       time.Time          `json:"timestamp"`
	AnalysisSummary AnalysisSummary    `json:"analysis_summary"`
	RepoHealth      map[string]float64 `json:"repository_health"`
	Recommendations []Recommendation   `json:"recommendations"`
	Trends          TrendAnalysis      `json:"trends"`
}

// AnalysisSummary holds collection counts and distributions.
type AnalysisSummary struct {
	TotalCommitPatterns  int                         `json:"total_commit_patterns"`
	PatternDistribution  map[types.PatternType]int   `json:"pattern_distribution"`
	AntiPatternsDetected int                         `json:"anti_patterns_detected"`
	AntiPatternSeverity  map[types.Severity]int      `json:"anti_pattern_severity"`
	LearningInsights     int                         `json:"learning_insights"`
	InsightDistribution  map[types.InsightType]int   `json:"insight_distribution"`
	PlaybooksGenerated   int                         `json:"playbooks_generated"`
}

// Recommendation is one prioritized improvement suggestion.
type Recommendation struct {
	Type          string   `json:"type"`
	Priority      string   `json:"priority"`
	Description   string   `json:"description"`
	AffectedRepos []string `json:"affected_repos,omitempty"`
	Steps         []string `json:"actionable_steps,omitempty"`
}

// TrendAnalysis summarizes commit activity direction.
type TrendAnalysis struct {
	DailyCommits    map[string]int `json:"daily_commits"`
	TrendDirection  string         `json:"trend_direction"`
	AvgDailyCommits float64        `json:"avg_daily_commits"`
}

// Aggregator builds dashboard snapshots from the knowledge base.
type Aggregator struct {
	logger *logrus.Entry
	now    func() time.Time
}

// New creates a dashboard aggregator.
func New(logger *logrus.Entry) *Aggregator {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Aggregator{
		logger: logger.WithField("stage", "dashboard"),
		now:    time.Now,
	}
}

// Build snapshots the knowledge base for the given fleet.
func (a *Aggregator) Build(base *knowledge.Base, repos []string) Snapshot {
	patterns := base.Patterns()
	antiPatterns := base.AntiPatterns()
	insights := base.Insights()
	playbooks := base.Playbooks()

	patternDist := make(map[types.PatternType]int)
	for _, p := range patterns {
		patternDist[p.PatternType]++
	}
	severityDist := make(map[types.Severity]int)
	for _, ap := range antiPatterns {
		severityDist[ap.Severity]++
	}
	insightDist := make(map[types.InsightType]int)
	for _, i := range insights {
		insightDist[i.InsightType]++
	}

	return Snapshot{
		Timestamp: a.now(),
		AnalysisSummary: AnalysisSummary{
			TotalCommitPatterns:  len(patterns),
			PatternDistribution:  patternDist,
			AntiPatternsDetected: len(antiPatterns),
			AntiPatternSeverity:  severityDist,
			LearningInsights:     len(insights),
			InsightDistribution:  insightDist,
			PlaybooksGenerated:   len(playbooks),
		},
		RepoHealth:      HealthScores(repos, antiPatterns),
		Recommendations: TopRecommendations(antiPatterns, insights),
		Trends:          a.commitTrends(patterns),
	}
}

// HealthScores computes per-repository health: 100 minus severity-weighted
// penalties for every associated anti-pattern, floored at 0.
func HealthScores(repos []string, antiPatterns []types.AntiPattern) map[string]float64 {
	scores := make(map[string]float64, len(repos))
	for _, repo := range repos {
		score := 100.0
		for _, ap := range antiPatterns {
			for _, affected := range ap.AffectedRepositories {
				if affected == repo {
					score -= severityPenalties[ap.Severity]
					break
				}
			}
		}
		if score < 0 {
			score = 0
		}
		scores[repo] = score
	}
	return scores
}

// TopRecommendations compiles the 5 highest-severity anti-pattern
// remediations plus up to 3 highly applicable insights.
func TopRecommendations(antiPatterns []types.AntiPattern, insights []types.LearningInsight) []Recommendation {
	var recommendations []Recommendation

	urgent := make([]types.AntiPattern, 0, len(antiPatterns))
	for _, ap := range antiPatterns {
		if ap.Severity == types.SeverityCritical || ap.Severity == types.SeverityHigh {
			urgent = append(urgent, ap)
		}
	}
	sort.SliceStable(urgent, func(i, j int) bool {
		return urgent[i].Severity.Rank() > urgent[j].Severity.Rank()
	})
	if len(urgent) > maxAntiPatternRecommendations {
		urgent = urgent[:maxAntiPatternRecommendations]
	}
	for _, ap := range urgent {
		priority := "medium"
		if ap.Severity == types.SeverityCritical {
			priority = "high"
		}
		recommendations = append(recommendations, Recommendation{
			Type:          "anti_pattern_remediation",
			Priority:      priority,
			Description:   ap.RemediationSuggestion,
			AffectedRepos: ap.AffectedRepositories,
		})
	}

	added := 0
	for _, insight := range insights {
		if insight.ApplicabilityScore <= insightApplicabilityThreshold {
			continue
		}
		steps := insight.ActionableSteps
		if len(steps) > 2 {
			steps = steps[:2]
		}
		recommendations = append(recommendations, Recommendation{
			Type:        "improvement_opportunity",
			Priority:    "medium",
			Description: insight.InsightText,
			Steps:       append([]string(nil), steps...),
		})
		added++
		if added == maxInsightRecommendations {
			break
		}
	}

	return recommendations
}

// commitTrends computes daily commit counts over the last 7 observed days.
// Direction compares the first and last of those days with a strict
// greater-than, so ties report decreasing; fewer than 2 observed days is
// stable.
func (a *Aggregator) commitTrends(patterns []types.CommitPattern) TrendAnalysis {
	daily := make(map[string]int)
	for _, p := range patterns {
		daily[p.Timestamp.Format("2006-01-02")]++
	}

	days := make([]string, 0, len(daily))
	for day := range daily {
		days = append(days, day)
	}
	sort.Strings(days)
	if len(days) > trendDays {
		days = days[len(days)-trendDays:]
	}

	direction := "stable"
	if len(days) >= 2 {
		if daily[days[len(days)-1]] > daily[days[0]] {
			direction = "increasing"
		} else {
			direction = "decreasing"
		}
	}

	var avg float64
	if len(daily) > 0 {
		total := 0
		for _, count := range daily {
			total += count
		}
		avg = float64(total) / float64(len(daily))
	}

	return TrendAnalysis{
		DailyCommits:    daily,
		TrendDirection:  direction,
		AvgDailyCommits: avg,
	}
}

// Write serializes a snapshot to the dashboard artifact path, overwriting
// wholesale via an atomic rename.
func (a *Aggregator) Write(snapshot Snapshot, path string) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing dashboard: %w", err)
	}
	if err := knowledge.WriteArtifact(path, data); err != nil {
		return err
	}
	a.logger.WithField("path", path).Info("analytics dashboard updated")
	return nil
}

// Read loads a snapshot from the artifact path.
func Read(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dashboard artifact: %w", err)
	}
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parsing dashboard artifact: %w", err)
	}
	return &snapshot, nil
}

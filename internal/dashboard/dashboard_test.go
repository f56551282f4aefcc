package dashboard

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reposcope/reposcope/internal/knowledge"
	"github.com/reposcope/reposcope/internal/types"
)

func antiPattern(severity types.Severity, repos ...string) types.AntiPattern {
	return types.AntiPattern{
		PatternID:             types.NewID(),
		PatternName:           "Test Pattern",
		Severity:              severity,
		AffectedRepositories:  repos,
		RemediationSuggestion: "remediate " + string(severity),
		FirstDetected:         time.Now(),
	}
}

func TestHealthScorePenalties(t *testing.T) {
	aps := []types.AntiPattern{
		antiPattern(types.SeverityCritical, "core"),
		antiPattern(types.SeverityMedium, "core"),
		antiPattern(types.SeverityMedium, "core", "edge"),
		antiPattern(types.SeverityLow, "edge"),
	}

	scores := HealthScores([]string{"core", "edge", "quiet"}, aps)

	// core: 100 - 20 - 5 - 5
	assert.Equal(t, 70.0, scores["core"])
	// edge: 100 - 5 - 2
	assert.Equal(t, 93.0, scores["edge"])
	assert.Equal(t, 100.0, scores["quiet"])
}

func TestHealthScoreFlooredAtZero(t *testing.T) {
	var aps []types.AntiPattern
	for i := 0; i < 6; i++ {
		aps = append(aps, antiPattern(types.SeverityCritical, "doomed"))
	}
	scores := HealthScores([]string{"doomed"}, aps)
	assert.Equal(t, 0.0, scores["doomed"])
}

func TestHealthScoreCountsRepoOncePerAntiPattern(t *testing.T) {
	// A repo listed twice in one anti-pattern is penalized once for it.
	ap := antiPattern(types.SeverityHigh, "core", "core")
	scores := HealthScores([]string{"core"}, []types.AntiPattern{ap})
	assert.Equal(t, 90.0, scores["core"])
}

func TestTopRecommendationsOrderAndCaps(t *testing.T) {
	var aps []types.AntiPattern
	for i := 0; i < 4; i++ {
		aps = append(aps, antiPattern(types.SeverityHigh, "h"))
	}
	for i := 0; i < 3; i++ {
		aps = append(aps, antiPattern(types.SeverityCritical, "c"))
	}
	aps = append(aps, antiPattern(types.SeverityMedium, "m"))
	aps = append(aps, antiPattern(types.SeverityLow, "l"))

	insights := []types.LearningInsight{
		{InsightID: "i1", InsightText: "useful", ApplicabilityScore: 0.8, ActionableSteps: []string{"a", "b", "c"}},
		{InsightID: "i2", InsightText: "borderline", ApplicabilityScore: 0.7},
		{InsightID: "i3", InsightText: "useful too", ApplicabilityScore: 0.9},
	}

	recs := TopRecommendations(aps, insights)
	require.Len(t, recs, 7)

	// Critical remediations first, then high, capped at 5 anti-patterns.
	for i := 0; i < 3; i++ {
		assert.Equal(t, "anti_pattern_remediation", recs[i].Type)
		assert.Equal(t, "high", recs[i].Priority)
	}
	for i := 3; i < 5; i++ {
		assert.Equal(t, "anti_pattern_remediation", recs[i].Type)
		assert.Equal(t, "medium", recs[i].Priority)
	}

	// Applicability 0.7 is not strictly greater than the threshold.
	assert.Equal(t, "improvement_opportunity", recs[5].Type)
	assert.Equal(t, "useful", recs[5].Description)
	assert.Len(t, recs[5].Steps, 2)
	assert.Equal(t, "useful too", recs[6].Description)
}

func TestTopRecommendationsIgnoresMediumAndLow(t *testing.T) {
	aps := []types.AntiPattern{
		antiPattern(types.SeverityMedium, "m"),
		antiPattern(types.SeverityLow, "l"),
	}
	recs := TopRecommendations(aps, nil)
	assert.Empty(t, recs)
}

func trendPatterns(t *testing.T, counts map[string]int) []types.CommitPattern {
	t.Helper()
	var patterns []types.CommitPattern
	for day, n := range counts {
		ts, err := time.Parse("2006-01-02", day)
		require.NoError(t, err)
		for i := 0; i < n; i++ {
			patterns = append(patterns, types.CommitPattern{
				PatternID:  types.NewID(),
				Repository: "repo",
				CommitSHA:  "sha",
				Timestamp:  ts.Add(time.Duration(i) * time.Minute),
			})
		}
	}
	return patterns
}

func TestCommitTrendDirection(t *testing.T) {
	a := New(nil)

	trends := a.commitTrends(trendPatterns(t, map[string]int{
		"2026-08-01": 2,
		"2026-08-02": 4,
		"2026-08-03": 6,
	}))
	assert.Equal(t, "increasing", trends.TrendDirection)
	assert.InDelta(t, 4.0, trends.AvgDailyCommits, 0.0001)

	trends = a.commitTrends(trendPatterns(t, map[string]int{
		"2026-08-01": 5,
		"2026-08-02": 5,
	}))
	// Ties report decreasing.
	assert.Equal(t, "decreasing", trends.TrendDirection)

	trends = a.commitTrends(trendPatterns(t, map[string]int{"2026-08-01": 9}))
	assert.Equal(t, "stable", trends.TrendDirection)

	trends = a.commitTrends(nil)
	assert.Equal(t, "stable", trends.TrendDirection)
	assert.Equal(t, 0.0, trends.AvgDailyCommits)
}

func TestCommitTrendUsesLastSevenObservedDays(t *testing.T) {
	a := New(nil)

	counts := map[string]int{
		// Day outside the 7-day window carries a huge count; direction must
		// be judged from the window's first day, not this one.
		"2026-08-01": 50,
		"2026-08-10": 1,
		"2026-08-11": 2,
		"2026-08-12": 2,
		"2026-08-13": 2,
		"2026-08-14": 2,
		"2026-08-15": 2,
		"2026-08-16": 3,
	}
	trends := a.commitTrends(trendPatterns(t, counts))
	assert.Equal(t, "increasing", trends.TrendDirection)
	// All observed days still feed the map and the average.
	assert.Len(t, trends.DailyCommits, 8)
}

func TestBuildAndWriteRoundTrip(t *testing.T) {
	base := knowledge.NewBase(0)
	base.AppendPatterns(
		types.CommitPattern{PatternID: "p1", Repository: "core", CommitSHA: "a", PatternType: types.PatternFeature, Timestamp: time.Now()},
		types.CommitPattern{PatternID: "p2", Repository: "core", CommitSHA: "b", PatternType: types.PatternBugfix, Timestamp: time.Now()},
	)
	base.AppendAntiPatterns(antiPattern(types.SeverityCritical, "core"))
	base.AppendInsights(types.LearningInsight{
		InsightID:          "i1",
		InsightType:        types.InsightBestPractice,
		InsightText:        "keep doing this",
		ApplicabilityScore: 0.9,
	})
	base.ReplacePlaybook(types.PlaybookEntry{PlaybookID: "pb1", Category: types.CategoryGeneral})

	a := New(nil)
	snapshot := a.Build(base, []string{"core", "edge"})

	assert.Equal(t, 2, snapshot.AnalysisSummary.TotalCommitPatterns)
	assert.Equal(t, 1, snapshot.AnalysisSummary.PatternDistribution[types.PatternFeature])
	assert.Equal(t, 1, snapshot.AnalysisSummary.AntiPatternsDetected)
	assert.Equal(t, 1, snapshot.AnalysisSummary.AntiPatternSeverity[types.SeverityCritical])
	assert.Equal(t, 1, snapshot.AnalysisSummary.PlaybooksGenerated)
	assert.Equal(t, 80.0, snapshot.RepoHealth["core"])
	assert.Equal(t, 100.0, snapshot.RepoHealth["edge"])
	require.Len(t, snapshot.Recommendations, 2)

	path := filepath.Join(t.TempDir(), "dashboard.json")
	require.NoError(t, a.Write(snapshot, path))

	loaded, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, snapshot.AnalysisSummary, loaded.AnalysisSummary)
	assert.Equal(t, snapshot.RepoHealth, loaded.RepoHealth)
}

package insight

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reposcope/reposcope/internal/types"
)

func pat(repo string, pt types.PatternType, complexity float64) types.CommitPattern {
	return types.CommitPattern{
		PatternID:       types.NewID(),
		Repository:      repo,
		CommitSHA:       "sha",
		Message:         string(pt) + " work",
		Timestamp:       time.Now(),
		PatternType:     pt,
		ComplexityScore: complexity,
	}
}

func countByType(insights []types.LearningInsight, t types.InsightType) int {
	n := 0
	for _, i := range insights {
		if i.InsightType == t {
			n++
		}
	}
	return n
}

func TestSuccessPatternsCappedAtTen(t *testing.T) {
	e := New(nil)

	var patterns []types.CommitPattern
	for i := 0; i < 15; i++ {
		patterns = append(patterns, pat(fmt.Sprintf("repo-%d", i%3), types.PatternFeature, 20))
	}
	insights := e.successPatterns(patterns)
	assert.Len(t, insights, 10)
	for _, insight := range insights {
		assert.Equal(t, types.InsightBestPractice, insight.InsightType)
		assert.Equal(t, 0.8, insight.ConfidenceScore)
		assert.Equal(t, 0.7, insight.ApplicabilityScore)
	}
}

func TestSuccessPatternsSkipFeaturesWithFixes(t *testing.T) {
	e := New(nil)
	e.CountSubsequentFixes = func(p types.CommitPattern) int {
		if p.Repository == "flaky" {
			return 3
		}
		return 0
	}

	insights := e.successPatterns([]types.CommitPattern{
		pat("solid", types.PatternFeature, 10),
		pat("flaky", types.PatternFeature, 10),
	})
	require.Len(t, insights, 1)
	assert.Equal(t, []string{"solid"}, insights[0].Repositories)
}

func TestFailurePatternsThresholdAndCap(t *testing.T) {
	e := New(nil)

	var patterns []types.CommitPattern
	patterns = append(patterns, pat("ok", types.PatternBugfix, 70))    // at threshold: excluded
	patterns = append(patterns, pat("ok2", types.PatternFeature, 95))  // wrong type
	for i := 0; i < 8; i++ {
		patterns = append(patterns, pat("hot", types.PatternBugfix, 85))
	}

	insights := e.failurePatterns(patterns)
	assert.Len(t, insights, 5)
	for _, insight := range insights {
		assert.Equal(t, types.InsightFailurePattern, insight.InsightType)
		assert.Equal(t, 0.7, insight.ConfidenceScore)
		assert.Equal(t, 0.8, insight.ApplicabilityScore)
	}
}

func TestImprovementRecommendationsLowActivity(t *testing.T) {
	e := New(nil)

	var patterns []types.CommitPattern
	for i := 0; i < 6; i++ {
		patterns = append(patterns, pat("busy", types.PatternOther, 10))
	}
	patterns = append(patterns, pat("quiet", types.PatternOther, 10))
	patterns = append(patterns, pat("quiet", types.PatternOther, 10))

	insights := e.improvementRecommendations(patterns)
	require.Len(t, insights, 1)
	assert.Equal(t, []string{"quiet"}, insights[0].Repositories)
	assert.Contains(t, insights[0].Evidence[0], "Only 2 commits")
}

func TestExtractCombinesDerivations(t *testing.T) {
	e := New(nil)

	patterns := []types.CommitPattern{
		pat("alpha", types.PatternFeature, 20),
		pat("alpha", types.PatternBugfix, 90),
	}
	insights := e.Extract(patterns)

	assert.Equal(t, 1, countByType(insights, types.InsightFailurePattern))
	// One success insight plus one low-activity recommendation.
	assert.Equal(t, 2, countByType(insights, types.InsightBestPractice))
}

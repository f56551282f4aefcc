// Package insight derives learning insights from accumulated commit
// patterns and anti-patterns.
package insight

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reposcope/reposcope/internal/types"
)

const (
	// maxSuccessInsights and maxFailureInsights cap the first two
	// derivations so one noisy cycle cannot flood the knowledge base.
	maxSuccessInsights = 10
	maxFailureInsights = 5

	// failureComplexityThreshold marks a bugfix as evidence of an
	// architectural problem.
	failureComplexityThreshold = 70

	// lowActivityThreshold is the commit-pattern count below which a
	// repository draws an improvement recommendation.
	lowActivityThreshold = 5
)

// FixCounter counts fixes that followed a feature commit. The default
// always returns zero; a history-walking implementation can be plugged in
// without touching the extraction logic.
type FixCounter func(pattern types.CommitPattern) int

// Extractor derives insights from the knowledge base collections.
type Extractor struct {
	// CountSubsequentFixes is the success-pattern hook.
	CountSubsequentFixes FixCounter

	logger *logrus.Entry
}

// New creates an extractor with the default (always zero) fix counter.
func New(logger *logrus.Entry) *Extractor {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Extractor{
		CountSubsequentFixes: func(types.CommitPattern) int { return 0 },
		logger:               logger.WithField("stage", "insight"),
	}
}

// Extract runs all three derivations over the given patterns and returns
// the combined insights.
func (e *Extractor) Extract(patterns []types.CommitPattern) []types.LearningInsight {
	var all []types.LearningInsight
	all = append(all, e.successPatterns(patterns)...)
	all = append(all, e.failurePatterns(patterns)...)
	all = append(all, e.improvementRecommendations(patterns)...)

	e.logger.WithField("insights", len(all)).Info("extracted learning insights")
	return all
}

// successPatterns emits a best-practice insight for each feature commit
// with no subsequent fixes, capped at maxSuccessInsights.
func (e *Extractor) successPatterns(patterns []types.CommitPattern) []types.LearningInsight {
	var insights []types.LearningInsight
	for _, p := range patterns {
		if p.PatternType != types.PatternFeature {
			continue
		}
		if e.CountSubsequentFixes(p) != 0 {
			continue
		}
		insights = append(insights, types.LearningInsight{
			InsightID:          types.NewID(),
			InsightType:        types.InsightBestPractice,
			Repositories:       []string{p.Repository},
			Evidence:           []string{p.Message},
			ConfidenceScore:    0.8,
			ApplicabilityScore: 0.7,
			InsightText:        fmt.Sprintf("Successful feature implementation pattern in %s", p.Repository),
			ActionableSteps: []string{
				fmt.Sprintf("Follow similar approach for %s features", p.Repository),
				"Document this implementation pattern",
				"Consider reusing architecture in other repos",
			},
			GeneratedAt: time.Now(),
		})
		if len(insights) == maxSuccessInsights {
			break
		}
	}
	return insights
}

// failurePatterns emits a failure insight for each high-complexity bugfix,
// capped at maxFailureInsights.
func (e *Extractor) failurePatterns(patterns []types.CommitPattern) []types.LearningInsight {
	var insights []types.LearningInsight
	for _, p := range patterns {
		if p.PatternType != types.PatternBugfix || p.ComplexityScore <= failureComplexityThreshold {
			continue
		}
		insights = append(insights, types.LearningInsight{
			InsightID:          types.NewID(),
			InsightType:        types.InsightFailurePattern,
			Repositories:       []string{p.Repository},
			Evidence:           []string{p.Message},
			ConfidenceScore:    0.7,
			ApplicabilityScore: 0.8,
			InsightText:        "Complex bugfix pattern indicates potential architectural issue",
			ActionableSteps: []string{
				"Review root cause of complex fixes",
				"Consider refactoring affected areas",
				"Implement additional testing",
			},
			GeneratedAt: time.Now(),
		})
		if len(insights) == maxFailureInsights {
			break
		}
	}
	return insights
}

// improvementRecommendations flags repositories with little accumulated
// activity. Uncapped: low-activity repositories are rare by construction.
func (e *Extractor) improvementRecommendations(patterns []types.CommitPattern) []types.LearningInsight {
	frequency := make(map[string]int)
	var order []string
	for _, p := range patterns {
		if frequency[p.Repository] == 0 {
			order = append(order, p.Repository)
		}
		frequency[p.Repository]++
	}

	var insights []types.LearningInsight
	for _, repo := range order {
		count := frequency[repo]
		if count >= lowActivityThreshold {
			continue
		}
		insights = append(insights, types.LearningInsight{
			InsightID:          types.NewID(),
			InsightType:        types.InsightBestPractice,
			Repositories:       []string{repo},
			Evidence:           []string{fmt.Sprintf("Only %d commits in analysis period", count)},
			ConfidenceScore:    0.6,
			ApplicabilityScore: 0.5,
			InsightText:        fmt.Sprintf("Low development activity in %s - consider review", repo),
			ActionableSteps: []string{
				fmt.Sprintf("Review %s roadmap and priorities", repo),
				"Consider consolidating with other repositories",
				"Evaluate if repository is still needed",
			},
			GeneratedAt: time.Now(),
		})
	}
	return insights
}

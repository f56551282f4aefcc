// Package playbook aggregates learning insights into actionable,
// de-duplicated remediation playbooks.
package playbook

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reposcope/reposcope/internal/types"
)

const (
	// minInsightsPerPlaybook is the eligibility floor for a category.
	minInsightsPerPlaybook = 3

	// maxSteps truncates the de-duplicated step union.
	maxSteps = 10

	stepEffort = "medium"
)

// Categorize maps an insight to a playbook category by keyword presence in
// its narrative text, checked in fixed priority order; first match wins.
//
// Kept as an isolated pure function so it can be replaced by a structured
// tag on LearningInsight without touching the synthesis logic.
func Categorize(insight types.LearningInsight) types.PlaybookCategory {
	text := strings.ToLower(insight.InsightText)
	switch {
	case strings.Contains(text, "architecture"):
		return types.CategoryArchitecture
	case strings.Contains(text, "process") || strings.Contains(text, "workflow"):
		return types.CategoryProcess
	case strings.Contains(text, "quality") || strings.Contains(text, "test"):
		return types.CategoryQuality
	case strings.Contains(text, "performance"):
		return types.CategoryPerformance
	default:
		return types.CategoryGeneral
	}
}

// Synthesizer turns grouped insights into playbooks.
type Synthesizer struct {
	logger *logrus.Entry
}

// New creates a synthesizer.
func New(logger *logrus.Entry) *Synthesizer {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Synthesizer{logger: logger.WithField("stage", "playbook")}
}

// Synthesize groups insights by category and builds one playbook per
// category holding at least minInsightsPerPlaybook insights.
func (s *Synthesizer) Synthesize(insights []types.LearningInsight) []types.PlaybookEntry {
	byCategory := make(map[types.PlaybookCategory][]types.LearningInsight)
	for _, insight := range insights {
		category := Categorize(insight)
		byCategory[category] = append(byCategory[category], insight)
	}

	var playbooks []types.PlaybookEntry
	for category, group := range byCategory {
		if len(group) < minInsightsPerPlaybook {
			continue
		}
		playbooks = append(playbooks, s.fromInsights(category, group))
	}

	s.logger.WithField("playbooks", len(playbooks)).Info("generated playbooks")
	return playbooks
}

// fromInsights builds one playbook from a category's insights: step union
// with set-semantics de-duplication (feeding the same insight twice must
// not double-count a step), truncated to maxSteps and renumbered.
func (s *Synthesizer) fromInsights(category types.PlaybookCategory, group []types.LearningInsight) types.PlaybookEntry {
	seen := make(map[string]bool)
	var unique []string
	for _, insight := range group {
		for _, step := range insight.ActionableSteps {
			if seen[step] {
				continue
			}
			seen[step] = true
			unique = append(unique, step)
		}
	}
	if len(unique) > maxSteps {
		unique = unique[:maxSteps]
	}

	steps := make([]types.PlaybookStep, len(unique))
	for i, description := range unique {
		steps[i] = types.PlaybookStep{
			StepNumber:      i + 1,
			Description:     description,
			EstimatedEffort: stepEffort,
			Prerequisites:   []string{},
		}
	}

	var confidence, applicability float64
	related := make([]string, len(group))
	for i, insight := range group {
		confidence += insight.ConfidenceScore
		applicability += insight.ApplicabilityScore
		related[i] = insight.InsightID
	}
	n := float64(len(group))
	effectiveness := (confidence/n + applicability/n) / 2

	title := strings.ToUpper(string(category)[:1]) + string(category)[1:]
	return types.PlaybookEntry{
		PlaybookID:          types.NewID(),
		Title:               fmt.Sprintf("%s Best Practices", title),
		Category:            category,
		Description:         fmt.Sprintf("Automated playbook generated from %d learning insights", len(group)),
		Steps:               steps,
		Prerequisites:       []string{"Access to fleet repositories", "Understanding of project structure"},
		SuccessCriteria:     []string{"Improved code quality metrics", "Reduced anti-pattern occurrences"},
		RelatedInsights:     related,
		EffectivenessRating: effectiveness,
		LastUpdated:         time.Now(),
	}
}

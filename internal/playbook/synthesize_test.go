package playbook

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reposcope/reposcope/internal/types"
)

func insight(text string, steps ...string) types.LearningInsight {
	return types.LearningInsight{
		InsightID:          types.NewID(),
		InsightType:        types.InsightBestPractice,
		InsightText:        text,
		ActionableSteps:    steps,
		ConfidenceScore:    0.8,
		ApplicabilityScore: 0.6,
	}
}

func TestCategorizePriorityOrder(t *testing.T) {
	tests := []struct {
		text string
		want types.PlaybookCategory
	}{
		{"review the architecture of the module", types.CategoryArchitecture},
		// architecture wins over later keywords when both appear
		{"architecture and process concerns", types.CategoryArchitecture},
		{"improve the release process", types.CategoryProcess},
		{"streamline the workflow", types.CategoryProcess},
		{"raise quality bar", types.CategoryQuality},
		{"add more test coverage", types.CategoryQuality},
		{"performance regression on startup", types.CategoryPerformance},
		{"something else entirely", types.CategoryGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(insight(tt.text)))
		})
	}
}

func TestSynthesizeRequiresThreeInsights(t *testing.T) {
	s := New(nil)

	playbooks := s.Synthesize([]types.LearningInsight{
		insight("improve process now", "step a"),
		insight("process is slow", "step b"),
	})
	assert.Empty(t, playbooks)

	playbooks = s.Synthesize([]types.LearningInsight{
		insight("improve process now", "step a"),
		insight("process is slow", "step b"),
		insight("workflow bottleneck", "step c"),
	})
	require.Len(t, playbooks, 1)
	assert.Equal(t, types.CategoryProcess, playbooks[0].Category)
}

func TestStepDeduplicationIsIdempotent(t *testing.T) {
	s := New(nil)

	shared := insight("process tune-up", "review the backlog", "automate the release")
	// The same insight fed twice must not double-count its steps.
	playbooks := s.Synthesize([]types.LearningInsight{
		shared,
		shared,
		insight("workflow cleanup", "review the backlog"),
	})
	require.Len(t, playbooks, 1)

	descriptions := make(map[string]int)
	for _, step := range playbooks[0].Steps {
		descriptions[step.Description]++
	}
	assert.Equal(t, 1, descriptions["review the backlog"])
	assert.Equal(t, 1, descriptions["automate the release"])
	assert.Len(t, playbooks[0].Steps, 2)
}

func TestStepsTruncatedAndNumbered(t *testing.T) {
	s := New(nil)

	var group []types.LearningInsight
	for i := 0; i < 3; i++ {
		var steps []string
		for j := 0; j < 6; j++ {
			steps = append(steps, fmt.Sprintf("insight %d step %d", i, j))
		}
		group = append(group, insight("process item", steps...))
	}

	playbooks := s.Synthesize(group)
	require.Len(t, playbooks, 1)
	steps := playbooks[0].Steps
	require.Len(t, steps, 10)
	for i, step := range steps {
		assert.Equal(t, i+1, step.StepNumber)
		assert.Equal(t, "medium", step.EstimatedEffort)
		assert.Empty(t, step.Prerequisites)
	}
}

func TestEffectivenessRating(t *testing.T) {
	s := New(nil)

	group := []types.LearningInsight{
		{InsightID: "a", InsightText: "process", ConfidenceScore: 0.6, ApplicabilityScore: 0.4, ActionableSteps: []string{"s1"}},
		{InsightID: "b", InsightText: "process", ConfidenceScore: 0.8, ApplicabilityScore: 0.6, ActionableSteps: []string{"s2"}},
		{InsightID: "c", InsightText: "process", ConfidenceScore: 1.0, ApplicabilityScore: 0.8, ActionableSteps: []string{"s3"}},
	}
	playbooks := s.Synthesize(group)
	require.Len(t, playbooks, 1)

	// mean confidence 0.8, mean applicability 0.6 -> 0.7
	assert.InDelta(t, 0.7, playbooks[0].EffectivenessRating, 0.0001)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, playbooks[0].RelatedInsights)
}

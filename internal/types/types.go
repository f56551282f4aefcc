package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CommitPattern is the classified record of a single commit. Records are
// immutable once constructed; the knowledge base only appends and trims them.
type CommitPattern struct {
	PatternID       string      `json:"pattern_id"`
	Repository      string      `json:"repository"`
	CommitSHA       string      `json:"commit_sha"`
	Author          string      `json:"author"`
	Timestamp       time.Time   `json:"timestamp"`
	Message         string      `json:"message"`
	FilesChanged    []string    `json:"files_changed"`
	LinesAdded      int         `json:"lines_added"`
	LinesDeleted    int         `json:"lines_deleted"`
	PatternType     PatternType `json:"pattern_type"`
	ComplexityScore float64     `json:"complexity_score"`
	ImpactScore     float64     `json:"impact_score"`
}

// Validate checks score bounds and required fields.
func (p *CommitPattern) Validate() error {
	if p.Repository == "" {
		return fmt.Errorf("repository is required")
	}
	if p.CommitSHA == "" {
		return fmt.Errorf("commit_sha is required")
	}
	if p.ComplexityScore < 0 || p.ComplexityScore > 100 {
		return fmt.Errorf("complexity_score out of range: %f", p.ComplexityScore)
	}
	if p.ImpactScore < 0 || p.ImpactScore > 100 {
		return fmt.Errorf("impact_score out of range: %f", p.ImpactScore)
	}
	if !p.PatternType.IsValid() {
		return fmt.Errorf("invalid pattern type: %s", p.PatternType)
	}
	return nil
}

// PatternType categorizes the intent of a commit.
type PatternType string

const (
	PatternFeature       PatternType = "feature"
	PatternBugfix        PatternType = "bugfix"
	PatternRefactor      PatternType = "refactor"
	PatternDocumentation PatternType = "documentation"
	PatternTest          PatternType = "test"
	PatternOther         PatternType = "other"
)

// IsValid checks if the pattern type value is valid
func (t PatternType) IsValid() bool {
	switch t {
	case PatternFeature, PatternBugfix, PatternRefactor, PatternDocumentation, PatternTest, PatternOther:
		return true
	}
	return false
}

// Severity classifies how harmful an anti-pattern is. The ordering is total
// so detections can be prioritized for remediation.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsValid checks if the severity value is valid
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Rank returns the sort weight of a severity; higher means more severe.
// Unknown severities rank below low so malformed records sink to the bottom.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// AntiPattern is one detected harmful practice. Each detector produces its
// own records; no two detectors mutate the same record.
type AntiPattern struct {
	PatternID             string    `json:"pattern_id"`
	PatternName           string    `json:"pattern_name"`
	Severity              Severity  `json:"severity"`
	AffectedRepositories  []string  `json:"affected_repositories"`
	AffectedFiles         []string  `json:"affected_files"`
	Description           string    `json:"description"`
	RemediationSuggestion string    `json:"remediation_suggestion"`
	AutoFixable           bool      `json:"auto_fixable"`
	DetectionConfidence   float64   `json:"detection_confidence"`
	FirstDetected         time.Time `json:"first_detected"`
	Occurrences           int       `json:"occurrences"`
}

// InsightType categorizes a learning insight.
type InsightType string

const (
	InsightBestPractice   InsightType = "best_practice"
	InsightSuccessPattern InsightType = "success_pattern"
	InsightFailurePattern InsightType = "failure_pattern"
)

// IsValid checks if the insight type value is valid
func (t InsightType) IsValid() bool {
	switch t {
	case InsightBestPractice, InsightSuccessPattern, InsightFailurePattern:
		return true
	}
	return false
}

// LearningInsight is a derived observation about how the fleet develops.
// Never mutated after creation.
type LearningInsight struct {
	InsightID          string      `json:"insight_id"`
	InsightType        InsightType `json:"insight_type"`
	Repositories       []string    `json:"repositories"`
	Evidence           []string    `json:"evidence"`
	ConfidenceScore    float64     `json:"confidence_score"`
	ApplicabilityScore float64     `json:"applicability_score"`
	InsightText        string      `json:"insight_text"`
	ActionableSteps    []string    `json:"actionable_steps"`
	GeneratedAt        time.Time   `json:"generated_at"`
}

// PlaybookCategory groups playbooks by the concern they address.
type PlaybookCategory string

const (
	CategoryArchitecture PlaybookCategory = "architecture"
	CategoryProcess      PlaybookCategory = "process"
	CategoryQuality      PlaybookCategory = "quality"
	CategoryPerformance  PlaybookCategory = "performance"
	CategoryGeneral      PlaybookCategory = "general"
)

// PlaybookStep is one ordered, structured action inside a playbook.
type PlaybookStep struct {
	StepNumber      int      `json:"step_number"`
	Description     string   `json:"description"`
	EstimatedEffort string   `json:"estimated_effort"`
	Prerequisites   []string `json:"prerequisites"`
}

// PlaybookEntry is a synthesized remediation playbook. Playbooks are
// regenerated periodically; a new entry supersedes older entries for the
// same category rather than being edited in place.
type PlaybookEntry struct {
	PlaybookID          string           `json:"playbook_id"`
	Title               string           `json:"title"`
	Category            PlaybookCategory `json:"category"`
	Description         string           `json:"description"`
	Steps               []PlaybookStep   `json:"steps"`
	Prerequisites       []string         `json:"prerequisites"`
	SuccessCriteria     []string         `json:"success_criteria"`
	RelatedInsights     []string         `json:"related_insights"`
	EffectivenessRating float64          `json:"effectiveness_rating"`
	LastUpdated         time.Time        `json:"last_updated"`
}

// RepoCategory classifies a repository's role in the fleet.
type RepoCategory string

const (
	RepoStructural RepoCategory = "structural"
	RepoCore       RepoCategory = "core"
	RepoExtension  RepoCategory = "extension"
	RepoOther      RepoCategory = "other"
)

// IsValid checks if the repository category value is valid
func (c RepoCategory) IsValid() bool {
	switch c {
	case RepoStructural, RepoCore, RepoExtension, RepoOther:
		return true
	}
	return false
}

// RepositoryNode is one repository in the fleet dependency graph.
type RepositoryNode struct {
	ID           string       `json:"id"`
	Category     RepoCategory `json:"category"`
	Dependencies []string     `json:"dependencies"`
}

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}

// Package detect finds anti-patterns across the fleet. Each detector is an
// independent, pluggable unit producing the shared AntiPattern record type;
// trivial scanners keep their contracts so real analyzers can be substituted
// without touching the orchestrator.
package detect

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reposcope/reposcope/internal/forge"
	"github.com/reposcope/reposcope/internal/types"
)

// Detector examines the fleet and reports anti-patterns. Implementations
// must isolate per-repository failures: one repository's error never aborts
// detection for the rest.
type Detector interface {
	// Name returns the unique identifier for this detector.
	Name() string

	// Detect scans the given repositories and returns discovered
	// anti-patterns. The repository list is already exclusion-filtered.
	Detect(ctx context.Context, source forge.Source, repos []string) ([]types.AntiPattern, error)
}

const (
	// godObjectLineThreshold is where a file becomes a God Object.
	godObjectLineThreshold = 1000

	// godObjectHighThreshold escalates severity from medium to high.
	godObjectHighThreshold = 2000

	godObjectConfidence  = 0.8
	deadCodeConfidence   = 0.6
	longBranchConfidence = 0.9
)

// ArchitecturalDetector flags oversized source files as God Objects.
type ArchitecturalDetector struct {
	logger *logrus.Entry
}

// NewArchitecturalDetector creates the architectural anti-pattern detector.
func NewArchitecturalDetector(logger *logrus.Entry) *ArchitecturalDetector {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &ArchitecturalDetector{logger: logger.WithField("detector", "architectural")}
}

// Name implements Detector.
func (d *ArchitecturalDetector) Name() string { return "architectural" }

// Detect implements Detector.
func (d *ArchitecturalDetector) Detect(ctx context.Context, source forge.Source, repos []string) ([]types.AntiPattern, error) {
	var found []types.AntiPattern

	for _, repo := range repos {
		files, err := source.Files(ctx, repo)
		if err != nil {
			d.logger.WithField("repo", repo).WithError(err).Error("large-file scan failed")
			continue
		}

		for _, file := range files {
			if file.Lines <= godObjectLineThreshold {
				continue
			}
			severity := types.SeverityMedium
			if file.Lines >= godObjectHighThreshold {
				severity = types.SeverityHigh
			}
			found = append(found, types.AntiPattern{
				PatternID:             types.NewID(),
				PatternName:           "God Object",
				Severity:              severity,
				AffectedRepositories:  []string{repo},
				AffectedFiles:         []string{file.Path},
				Description:           fmt.Sprintf("Large file detected: %d lines in %s", file.Lines, file.Path),
				RemediationSuggestion: "Consider breaking into smaller, focused modules",
				AutoFixable:           false,
				DetectionConfidence:   godObjectConfidence,
				FirstDetected:         time.Now(),
				Occurrences:           1,
			})
		}
	}
	return found, nil
}

// FileScanner reports suspect file paths for one repository. The contract
// survives even while the default implementations return nothing, because
// downstream consumers key on AntiPattern.PatternName.
type FileScanner func(ctx context.Context, source forge.Source, repo string) ([]string, error)

// DevelopmentDetector runs the dead-code and cross-repository duplicate
// scans. Both default to pass-through stubs.
type DevelopmentDetector struct {
	// DeadCode scans one repository for unused code.
	DeadCode FileScanner
	// Duplicates scans one repository for code duplicated elsewhere in
	// the fleet.
	Duplicates FileScanner

	logger *logrus.Entry
}

// NewDevelopmentDetector creates the development anti-pattern detector with
// stub scanners.
func NewDevelopmentDetector(logger *logrus.Entry) *DevelopmentDetector {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	noop := func(context.Context, forge.Source, string) ([]string, error) { return nil, nil }
	return &DevelopmentDetector{
		DeadCode:   noop,
		Duplicates: noop,
		logger:     logger.WithField("detector", "development"),
	}
}

// Name implements Detector.
func (d *DevelopmentDetector) Name() string { return "development" }

// Detect implements Detector.
func (d *DevelopmentDetector) Detect(ctx context.Context, source forge.Source, repos []string) ([]types.AntiPattern, error) {
	var found []types.AntiPattern

	for _, repo := range repos {
		deadFiles, err := d.DeadCode(ctx, source, repo)
		if err != nil {
			d.logger.WithField("repo", repo).WithError(err).Error("dead-code scan failed")
		}
		for _, path := range deadFiles {
			found = append(found, types.AntiPattern{
				PatternID:             types.NewID(),
				PatternName:           "Dead Code",
				Severity:              types.SeverityLow,
				AffectedRepositories:  []string{repo},
				AffectedFiles:         []string{path},
				Description:           fmt.Sprintf("Potentially unused code detected in %s", path),
				RemediationSuggestion: "Review and remove if confirmed unused",
				AutoFixable:           true,
				DetectionConfidence:   deadCodeConfidence,
				FirstDetected:         time.Now(),
				Occurrences:           1,
			})
		}

		dupFiles, err := d.Duplicates(ctx, source, repo)
		if err != nil {
			d.logger.WithField("repo", repo).WithError(err).Error("duplicate-code scan failed")
		}
		for _, path := range dupFiles {
			found = append(found, types.AntiPattern{
				PatternID:             types.NewID(),
				PatternName:           "Duplicate Code",
				Severity:              types.SeverityLow,
				AffectedRepositories:  []string{repo},
				AffectedFiles:         []string{path},
				Description:           fmt.Sprintf("Code in %s appears duplicated across repositories", path),
				RemediationSuggestion: "Extract shared code into a common module",
				AutoFixable:           false,
				DetectionConfidence:   deadCodeConfidence,
				FirstDetected:         time.Now(),
				Occurrences:           1,
			})
		}
	}
	return found, nil
}

// ProcessDetector flags long-lived feature branches. Process anti-patterns
// are not file-scoped, so affected files stay empty.
type ProcessDetector struct {
	// MaxBranchAge is how old a non-default branch head may be before the
	// branch counts as long-lived.
	MaxBranchAge time.Duration

	logger *logrus.Entry
	now    func() time.Time
}

// NewProcessDetector creates the process anti-pattern detector.
func NewProcessDetector(maxAge time.Duration, logger *logrus.Entry) *ProcessDetector {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &ProcessDetector{
		MaxBranchAge: maxAge,
		logger:       logger.WithField("detector", "process"),
		now:          time.Now,
	}
}

// Name implements Detector.
func (d *ProcessDetector) Name() string { return "process" }

// Detect implements Detector.
func (d *ProcessDetector) Detect(ctx context.Context, source forge.Source, repos []string) ([]types.AntiPattern, error) {
	var found []types.AntiPattern

	for _, repo := range repos {
		branches, err := source.Branches(ctx, repo)
		if err != nil {
			d.logger.WithField("repo", repo).WithError(err).Error("branch scan failed")
			continue
		}

		for _, branch := range branches {
			if branch.Default || branch.HeadCommitAt.IsZero() {
				continue
			}
			age := d.now().Sub(branch.HeadCommitAt)
			if age <= d.MaxBranchAge {
				continue
			}
			days := int(age.Hours() / 24)
			found = append(found, types.AntiPattern{
				PatternID:             types.NewID(),
				PatternName:           "Long-Lived Feature Branch",
				Severity:              types.SeverityMedium,
				AffectedRepositories:  []string{repo},
				AffectedFiles:         []string{},
				Description:           fmt.Sprintf("Branch '%s' active for %d days", branch.Name, days),
				RemediationSuggestion: "Consider merging or breaking into smaller changes",
				AutoFixable:           false,
				DetectionConfidence:   longBranchConfidence,
				FirstDetected:         time.Now(),
				Occurrences:           1,
			})
		}
	}
	return found, nil
}

// RunAll executes every detector, isolating failures between detectors as
// well as between repositories.
func RunAll(ctx context.Context, detectors []Detector, source forge.Source, repos []string, logger *logrus.Entry) []types.AntiPattern {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	var all []types.AntiPattern
	for _, detector := range detectors {
		found, err := detector.Detect(ctx, source, repos)
		if err != nil {
			logger.WithField("detector", detector.Name()).WithError(err).Error("detector failed")
			continue
		}
		all = append(all, found...)
	}
	return all
}

// Package engine wires the analysis stages to the shared knowledge base and
// schedules them as independent periodic loops.
//
// Stages never block each other: each runs on its own goroutine with its own
// cadence, communicating only through the knowledge base. A failed cycle is
// logged and retried after roughly double the configured interval; nothing
// after startup is fatal.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/reposcope/reposcope/internal/classify"
	"github.com/reposcope/reposcope/internal/config"
	"github.com/reposcope/reposcope/internal/correlate"
	"github.com/reposcope/reposcope/internal/dashboard"
	"github.com/reposcope/reposcope/internal/detect"
	"github.com/reposcope/reposcope/internal/forge"
	"github.com/reposcope/reposcope/internal/graph"
	"github.com/reposcope/reposcope/internal/history"
	"github.com/reposcope/reposcope/internal/insight"
	"github.com/reposcope/reposcope/internal/knowledge"
	"github.com/reposcope/reposcope/internal/playbook"
	"github.com/reposcope/reposcope/internal/types"
)

// fetchConcurrency bounds parallel per-repo forge fetches during commit
// analysis so the rate limiter is the only real throttle.
const fetchConcurrency = 4

// stopTimeout bounds how long Stop waits for in-flight cycles.
const stopTimeout = 10 * time.Second

// Stage is one independent periodic analysis loop.
type Stage struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Engine owns the knowledge base and runs the analysis stages over it.
type Engine struct {
	cfg    *config.Config
	source forge.Source
	logger *logrus.Entry

	base    *knowledge.Base
	fleet   *graph.Graph
	archive *history.Store

	classifier  *classify.Classifier
	correlator  *correlate.Analyzer
	detectors   []detect.Detector
	extractor   *insight.Extractor
	synthesizer *playbook.Synthesizer
	aggregator  *dashboard.Aggregator

	stopCh chan struct{}
	wg     sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

// New builds an engine from validated configuration. It opens the history
// archive and warm-starts the pattern collection from the previous run's
// cache artifact; a corrupt cache is logged and skipped, never fatal.
func New(cfg *config.Config, source forge.Source, logger *logrus.Entry) (*Engine, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	logger = logger.WithField("component", "engine")

	archive, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		return nil, fmt.Errorf("opening history archive: %w", err)
	}

	base := knowledge.NewBase(cfg.MaxPatternsInMemory)
	if err := base.LoadPatternCache(cfg.PatternsCachePath()); err != nil {
		logger.WithError(err).Warn("pattern cache unusable, starting cold")
	} else if n := base.PatternCount(); n > 0 {
		logger.WithField("patterns", n).Info("warm-started from pattern cache")
	}

	e := &Engine{
		cfg:        cfg,
		source:     source,
		logger:     logger,
		base:       base,
		fleet:      graph.Build(cfg.Fleet, logger),
		archive:    archive,
		classifier: classify.New(cfg.CriticalRepos, cfg.ExclusionPatterns, logger),
		correlator: correlate.New(logger),
		detectors: []detect.Detector{
			detect.NewArchitecturalDetector(logger),
			detect.NewDevelopmentDetector(logger),
			detect.NewProcessDetector(time.Duration(cfg.BranchAgeDays)*24*time.Hour, logger),
		},
		extractor:   insight.New(logger),
		synthesizer: playbook.New(logger),
		aggregator:  dashboard.New(logger),
		stopCh:      make(chan struct{}),
	}
	return e, nil
}

// Base exposes the knowledge base for read-only inspection.
func (e *Engine) Base() *knowledge.Base { return e.base }

// Fleet exposes the repository dependency graph.
func (e *Engine) Fleet() *graph.Graph { return e.fleet }

// Stages returns the five analysis loops with their configured cadence.
func (e *Engine) Stages() []Stage {
	intervals := e.cfg.StageIntervals()
	return []Stage{
		{Name: "commit_analysis", Interval: intervals["commit_analysis"], Run: e.commitAnalysis},
		{Name: "anti_pattern_detection", Interval: intervals["anti_pattern_detection"], Run: e.antiPatternDetection},
		{Name: "insight_extraction", Interval: intervals["insight_extraction"], Run: e.insightExtraction},
		{Name: "playbook_generation", Interval: intervals["playbook_generation"], Run: e.playbookGeneration},
		{Name: "dashboard_update", Interval: intervals["dashboard_update"], Run: e.dashboardUpdate},
	}
}

// Start launches every stage loop. Each stage runs once immediately, then on
// its own ticker. Safe to call once; subsequent calls are no-ops.
func (e *Engine) Start(ctx context.Context) {
	e.startOnce.Do(func() {
		stages := e.Stages()
		e.logger.WithField("stages", len(stages)).Info("starting analysis engine")
		for _, stage := range stages {
			e.wg.Add(1)
			go e.runStage(ctx, stage)
		}
	})
}

// Stop signals all stage loops to exit and waits for in-flight cycles, up to
// stopTimeout. The history archive is closed after the loops drain.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)

		done := make(chan struct{})
		go func() {
			e.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			e.logger.Info("analysis engine stopped")
		case <-time.After(stopTimeout):
			e.logger.Warn("timeout waiting for stage loops to stop")
		}

		if err := e.archive.Close(); err != nil {
			e.logger.WithError(err).Warn("closing history archive")
		}
	})
}

// RunOnce executes a single full analysis pass: every stage, in dependency
// order, on the calling goroutine. Used by the one-shot CLI path.
func (e *Engine) RunOnce(ctx context.Context) error {
	for _, stage := range e.Stages() {
		if err := stage.Run(ctx); err != nil {
			return fmt.Errorf("stage %s: %w", stage.Name, err)
		}
	}
	return nil
}

// runStage is the supervised loop for one stage: run a cycle, then sleep for
// the interval, or double it after a failure.
func (e *Engine) runStage(ctx context.Context, stage Stage) {
	defer e.wg.Done()
	logger := e.logger.WithField("stage", stage.Name)

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		wait := stage.Interval
		if err := e.runCycle(ctx, stage); err != nil {
			wait = 2 * stage.Interval
			logger.WithError(err).WithField("retry_in", wait).Warn("stage cycle failed")
		}

		timer.Reset(wait)
		select {
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		case <-timer.C:
		}
	}
}

// runCycle executes one stage cycle, converting a panic into an error so a
// single bad cycle cannot take down the scheduler.
func (e *Engine) runCycle(ctx context.Context, stage Stage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in stage %s: %v", stage.Name, r)
		}
	}()
	return stage.Run(ctx)
}

// activeRepos returns the fleet names that are not excluded.
func (e *Engine) activeRepos() []string {
	var repos []string
	for _, name := range e.cfg.RepoNames() {
		if e.classifier.Excluded(name) {
			continue
		}
		repos = append(repos, name)
	}
	return repos
}

// commitAnalysis fetches and classifies recent commits for every active
// repository, correlates the accumulated patterns and persists the results.
// Per-repo fetch failures are logged and skipped; they never abort the cycle.
func (e *Engine) commitAnalysis(ctx context.Context) error {
	repos := e.activeRepos()

	var mu sync.Mutex
	var fresh []types.CommitPattern

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for _, repo := range repos {
		repo := repo
		g.Go(func() error {
			if meta, err := e.source.Metadata(gctx, repo); err == nil {
				e.logger.WithFields(logrus.Fields{
					"repo":  repo,
					"size":  meta.Size,
					"stars": meta.Stars,
				}).Debug("repository metadata")
			}

			patterns, err := e.classifier.AnalyzeRepository(gctx, e.source, repo, e.cfg.LookbackDays)
			if err != nil {
				e.logger.WithError(err).WithField("repo", repo).Warn("commit analysis failed for repository")
				return nil
			}
			mu.Lock()
			fresh = append(fresh, patterns...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	e.base.AppendPatterns(fresh...)
	e.logger.WithFields(logrus.Fields{
		"repos":    len(repos),
		"patterns": len(fresh),
		"retained": e.base.PatternCount(),
	}).Info("commit analysis cycle complete")

	// Surface the blast radius of active repositories so operators can see
	// which downstream repos may be affected by this cycle's changes.
	seen := make(map[string]bool)
	for _, p := range fresh {
		if seen[p.Repository] {
			continue
		}
		seen[p.Repository] = true
		if dependents := e.fleet.Dependents(p.Repository); len(dependents) > 0 {
			e.logger.WithFields(logrus.Fields{
				"repo":       p.Repository,
				"dependents": dependents,
			}).Debug("activity in repository with downstream dependents")
		}
	}

	if insights := e.correlator.Analyze(e.base.Patterns()); len(insights) > 0 {
		e.base.AppendInsights(insights...)
	}

	if err := e.base.SavePatternCache(e.cfg.PatternsCachePath()); err != nil {
		e.logger.WithError(err).Warn("failed to save pattern cache")
	}
	if err := e.archive.ArchivePatterns(ctx, fresh); err != nil {
		e.logger.WithError(err).Warn("failed to archive commit patterns")
	}
	return nil
}

// antiPatternDetection runs every detector over the active fleet.
func (e *Engine) antiPatternDetection(ctx context.Context) error {
	repos := e.activeRepos()
	found := detect.RunAll(ctx, e.detectors, e.source, repos, e.logger)
	e.base.AppendAntiPatterns(found...)

	if err := e.archive.ArchiveAntiPatterns(ctx, found); err != nil {
		e.logger.WithError(err).Warn("failed to archive anti-patterns")
	}
	e.logger.WithField("anti_patterns", len(found)).Info("anti-pattern detection cycle complete")
	return nil
}

// insightExtraction derives learning insights from the retained patterns.
func (e *Engine) insightExtraction(ctx context.Context) error {
	insights := e.extractor.Extract(e.base.Patterns())
	e.base.AppendInsights(insights...)
	return nil
}

// playbookGeneration synthesizes playbooks from all accumulated insights,
// superseding the previous playbook of each regenerated category.
func (e *Engine) playbookGeneration(ctx context.Context) error {
	for _, pb := range e.synthesizer.Synthesize(e.base.Insights()) {
		e.base.ReplacePlaybook(pb)
	}
	return nil
}

// dashboardUpdate rebuilds and atomically replaces the dashboard artifact.
func (e *Engine) dashboardUpdate(ctx context.Context) error {
	snapshot := e.aggregator.Build(e.base, e.cfg.RepoNames())
	return e.aggregator.Write(snapshot, e.cfg.DashboardPath())
}

// Package knowledge holds the engine's shared state: append-only
// collections of commit patterns, anti-patterns, insights and playbooks.
//
// Records are immutable once appended, so a reader's snapshot is always a
// consistent subset even while other stages are mid-cycle. The mutex guards
// only the container structure; retention trimming (oldest-first) is the
// single permitted removal and is performed here, by the owning collection.
package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/reposcope/reposcope/internal/types"
)

// DefaultMaxPatterns caps the commit-pattern collection when no cap is given.
const DefaultMaxPatterns = 1000

// cachedPatternCount is how many recent patterns the JSON cache artifact keeps.
const cachedPatternCount = 100

// Base is the shared knowledge base passed by handle into every stage.
type Base struct {
	mu sync.RWMutex

	patterns     []types.CommitPattern
	antiPatterns []types.AntiPattern
	insights     []types.LearningInsight
	playbooks    []types.PlaybookEntry

	maxPatterns int
}

// NewBase creates a knowledge base with the given pattern retention cap.
// A non-positive cap falls back to DefaultMaxPatterns.
func NewBase(maxPatterns int) *Base {
	if maxPatterns <= 0 {
		maxPatterns = DefaultMaxPatterns
	}
	return &Base{maxPatterns: maxPatterns}
}

// AppendPatterns appends classified commit patterns, trimming the oldest
// entries once the retention cap is exceeded.
func (b *Base) AppendPatterns(patterns ...types.CommitPattern) {
	if len(patterns) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.patterns = append(b.patterns, patterns...)
	if excess := len(b.patterns) - b.maxPatterns; excess > 0 {
		b.patterns = append([]types.CommitPattern(nil), b.patterns[excess:]...)
	}
}

// AppendAntiPatterns appends detected anti-patterns.
func (b *Base) AppendAntiPatterns(aps ...types.AntiPattern) {
	if len(aps) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.antiPatterns = append(b.antiPatterns, aps...)
}

// AppendInsights appends learning insights.
func (b *Base) AppendInsights(insights ...types.LearningInsight) {
	if len(insights) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.insights = append(b.insights, insights...)
}

// ReplacePlaybook appends a playbook, superseding any previous playbooks of
// the same category. Old entries are dropped, not edited.
func (b *Base) ReplacePlaybook(entry types.PlaybookEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.playbooks[:0]
	for _, p := range b.playbooks {
		if p.Category != entry.Category {
			kept = append(kept, p)
		}
	}
	b.playbooks = append(kept, entry)
}

// Patterns returns a snapshot copy of the commit-pattern collection.
func (b *Base) Patterns() []types.CommitPattern {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]types.CommitPattern(nil), b.patterns...)
}

// AntiPatterns returns a snapshot copy of the anti-pattern collection.
func (b *Base) AntiPatterns() []types.AntiPattern {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]types.AntiPattern(nil), b.antiPatterns...)
}

// Insights returns a snapshot copy of the insight collection.
func (b *Base) Insights() []types.LearningInsight {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]types.LearningInsight(nil), b.insights...)
}

// Playbooks returns a snapshot copy of the current playbooks.
func (b *Base) Playbooks() []types.PlaybookEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]types.PlaybookEntry(nil), b.playbooks...)
}

// PatternCount returns the number of retained commit patterns.
func (b *Base) PatternCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.patterns)
}

// patternCache is the on-disk commit-patterns artifact schema.
type patternCache struct {
	CommitPatterns []types.CommitPattern `json:"commit_patterns"`
	LastUpdated    string                `json:"last_updated"`
}

// SavePatternCache overwrites the commit-patterns JSON artifact with the
// most recent retained patterns. The write is atomic (tmp + rename) so a
// reader never observes a torn artifact.
func (b *Base) SavePatternCache(path string) error {
	patterns := b.Patterns()
	if len(patterns) > cachedPatternCount {
		patterns = patterns[len(patterns)-cachedPatternCount:]
	}

	cache := patternCache{
		CommitPatterns: patterns,
		LastUpdated:    time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing pattern cache: %w", err)
	}

	return writeFileAtomic(path, data)
}

// LoadPatternCache seeds the pattern collection from a previous run's
// artifact. A missing file is not an error; a corrupt one is, so the caller
// can decide whether to start cold.
func (b *Base) LoadPatternCache(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading pattern cache: %w", err)
	}

	var cache patternCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return fmt.Errorf("parsing pattern cache: %w", err)
	}

	b.AppendPatterns(cache.CommitPatterns...)
	return nil
}

// writeFileAtomic writes data via a temp file and rename.
func writeFileAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("committing artifact: %w", err)
	}
	return nil
}

// WriteArtifact exposes the atomic write for other artifact producers.
func WriteArtifact(path string, data []byte) error {
	return writeFileAtomic(path, data)
}

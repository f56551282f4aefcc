package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reposcope/reposcope/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func archivedPattern(id, repo string, at time.Time) types.CommitPattern {
	return types.CommitPattern{
		PatternID:       id,
		Repository:      repo,
		CommitSHA:       "sha-" + id,
		Author:          "dev",
		Timestamp:       at,
		Message:         "feat: add thing",
		FilesChanged:    []string{"main.go", "util.go"},
		LinesAdded:      12,
		LinesDeleted:    3,
		PatternType:     types.PatternFeature,
		ComplexityScore: 21.5,
		ImpactScore:     60,
	}
}

func TestArchiveAndQueryPatterns(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.ArchivePatterns(ctx, []types.CommitPattern{
		archivedPattern("p1", "core", base),
		archivedPattern("p2", "core", base.Add(time.Hour)),
		archivedPattern("p3", "edge", base.Add(2*time.Hour)),
	}))

	patterns, err := store.RecentPatterns(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, patterns, 3)
	// Newest committed first.
	assert.Equal(t, "p3", patterns[0].PatternID)
	assert.Equal(t, []string{"main.go", "util.go"}, patterns[0].FilesChanged)
	assert.Equal(t, types.PatternFeature, patterns[0].PatternType)

	core, err := store.RecentPatterns(ctx, "core", 10)
	require.NoError(t, err)
	require.Len(t, core, 2)
	assert.Equal(t, "p2", core[0].PatternID)

	count, err := store.PatternCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestArchivePatternsIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	p := archivedPattern("p1", "core", time.Now().UTC())
	require.NoError(t, store.ArchivePatterns(ctx, []types.CommitPattern{p}))
	require.NoError(t, store.ArchivePatterns(ctx, []types.CommitPattern{p}))

	count, err := store.PatternCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestArchiveAndQueryAntiPatterns(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.ArchiveAntiPatterns(ctx, []types.AntiPattern{
		{
			PatternID:             "ap1",
			PatternName:           "God Object",
			Severity:              types.SeverityHigh,
			AffectedRepositories:  []string{"core"},
			AffectedFiles:         []string{"core/big.go"},
			Description:           "File core/big.go has 2400 lines",
			RemediationSuggestion: "Break down large files into smaller modules",
			DetectionConfidence:   0.8,
			FirstDetected:         base,
			Occurrences:           1,
		},
		{
			PatternID:            "ap2",
			PatternName:          "Long-Lived Feature Branch",
			Severity:             types.SeverityMedium,
			AffectedRepositories: []string{"edge"},
			AffectedFiles:        []string{},
			DetectionConfidence:  0.9,
			FirstDetected:        base.Add(time.Hour),
			Occurrences:          1,
		},
	}))

	aps, err := store.RecentAntiPatterns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, aps, 2)
	assert.Equal(t, "ap2", aps[0].PatternID)
	assert.Equal(t, types.SeverityMedium, aps[0].Severity)
	assert.Equal(t, []string{"edge"}, aps[0].AffectedRepositories)
	assert.Equal(t, []string{"core/big.go"}, aps[1].AffectedFiles)
}

func TestEmptyArchiveQueries(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	patterns, err := store.RecentPatterns(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, patterns)

	aps, err := store.RecentAntiPatterns(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, aps)
}

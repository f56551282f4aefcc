package knowledge

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reposcope/reposcope/internal/types"
)

func pattern(repo, sha string) types.CommitPattern {
	return types.CommitPattern{
		PatternID:   types.NewID(),
		Repository:  repo,
		CommitSHA:   sha,
		Timestamp:   time.Now(),
		PatternType: types.PatternOther,
	}
}

func TestAppendPatternsTrimsOldestFirst(t *testing.T) {
	base := NewBase(3)
	for i := 0; i < 5; i++ {
		base.AppendPatterns(pattern("repo", fmt.Sprintf("sha-%d", i)))
	}

	got := base.Patterns()
	require.Len(t, got, 3)
	assert.Equal(t, "sha-2", got[0].CommitSHA)
	assert.Equal(t, "sha-4", got[2].CommitSHA)
}

func TestSnapshotsAreCopies(t *testing.T) {
	base := NewBase(0)
	base.AppendPatterns(pattern("repo", "sha-1"))

	snap := base.Patterns()
	snap[0].Repository = "mutated"

	assert.Equal(t, "repo", base.Patterns()[0].Repository)
}

func TestReplacePlaybookSupersedesCategory(t *testing.T) {
	base := NewBase(0)
	base.ReplacePlaybook(types.PlaybookEntry{PlaybookID: "a", Category: types.CategoryQuality})
	base.ReplacePlaybook(types.PlaybookEntry{PlaybookID: "b", Category: types.CategoryProcess})
	base.ReplacePlaybook(types.PlaybookEntry{PlaybookID: "c", Category: types.CategoryQuality})

	playbooks := base.Playbooks()
	require.Len(t, playbooks, 2)

	byCategory := make(map[types.PlaybookCategory]string)
	for _, p := range playbooks {
		byCategory[p.Category] = p.PlaybookID
	}
	assert.Equal(t, "c", byCategory[types.CategoryQuality])
	assert.Equal(t, "b", byCategory[types.CategoryProcess])
}

func TestPatternCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commit_patterns.json")

	base := NewBase(0)
	base.AppendPatterns(pattern("wazaa", "abc"), pattern("fluence", "def"))
	require.NoError(t, base.SavePatternCache(path))

	restored := NewBase(0)
	require.NoError(t, restored.LoadPatternCache(path))
	got := restored.Patterns()
	require.Len(t, got, 2)
	assert.Equal(t, "abc", got[0].CommitSHA)
}

func TestLoadPatternCacheMissingFileIsNotAnError(t *testing.T) {
	base := NewBase(0)
	require.NoError(t, base.LoadPatternCache(filepath.Join(t.TempDir(), "absent.json")))
	assert.Zero(t, base.PatternCount())
}

func TestSavePatternCacheKeepsMostRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commit_patterns.json")

	base := NewBase(0)
	for i := 0; i < cachedPatternCount+20; i++ {
		base.AppendPatterns(pattern("repo", fmt.Sprintf("sha-%d", i)))
	}
	require.NoError(t, base.SavePatternCache(path))

	restored := NewBase(0)
	require.NoError(t, restored.LoadPatternCache(path))
	got := restored.Patterns()
	require.Len(t, got, cachedPatternCount)
	assert.Equal(t, "sha-20", got[0].CommitSHA)
}

func TestConcurrentAppendAndRead(t *testing.T) {
	base := NewBase(100)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				base.AppendPatterns(pattern("repo", fmt.Sprintf("w%d-%d", n, j)))
				_ = base.Patterns()
				_ = base.PatternCount()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, base.PatternCount())
}

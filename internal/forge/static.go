package forge

import (
	"context"
	"fmt"
	"sync"
)

// StaticSource is an in-memory Source backed by fixture data. It drives
// tests and the offline demo mode; repositories without fixtures return
// empty results, and names registered as failing return errors so failure
// isolation can be exercised.
type StaticSource struct {
	mu       sync.RWMutex
	metadata map[string]*Metadata
	commits  map[string][]Commit
	branches map[string][]Branch
	files    map[string][]FileInfo
	failing  map[string]bool
}

// NewStaticSource creates an empty fixture source.
func NewStaticSource() *StaticSource {
	return &StaticSource{
		metadata: make(map[string]*Metadata),
		commits:  make(map[string][]Commit),
		branches: make(map[string][]Branch),
		files:    make(map[string][]FileInfo),
		failing:  make(map[string]bool),
	}
}

// AddCommits registers fixture commits for a repository.
func (s *StaticSource) AddCommits(repo string, commits ...Commit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits[repo] = append(s.commits[repo], commits...)
}

// AddBranches registers fixture branches for a repository.
func (s *StaticSource) AddBranches(repo string, branches ...Branch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.branches[repo] = append(s.branches[repo], branches...)
}

// AddFiles registers fixture files for a repository.
func (s *StaticSource) AddFiles(repo string, files ...FileInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[repo] = append(s.files[repo], files...)
}

// SetMetadata registers fixture metadata for a repository.
func (s *StaticSource) SetMetadata(repo string, meta Metadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata[repo] = &meta
}

// FailRepo makes every call for the named repository return an error.
func (s *StaticSource) FailRepo(repo string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[repo] = true
}

func (s *StaticSource) checkFailure(repo string) error {
	if s.failing[repo] {
		return fmt.Errorf("forge unavailable for %s", repo)
	}
	return nil
}

// Metadata implements Source.
func (s *StaticSource) Metadata(_ context.Context, repo string) (*Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkFailure(repo); err != nil {
		return nil, err
	}
	if m, ok := s.metadata[repo]; ok {
		meta := *m
		return &meta, nil
	}
	return &Metadata{DefaultBranch: "main"}, nil
}

// Commits implements Source. The fixture ignores the lookback window; tests
// control recency through the fixture timestamps themselves.
func (s *StaticSource) Commits(_ context.Context, repo string, _ int) ([]Commit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkFailure(repo); err != nil {
		return nil, err
	}
	return append([]Commit(nil), s.commits[repo]...), nil
}

// Branches implements Source.
func (s *StaticSource) Branches(_ context.Context, repo string) ([]Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkFailure(repo); err != nil {
		return nil, err
	}
	return append([]Branch(nil), s.branches[repo]...), nil
}

// Files implements Source.
func (s *StaticSource) Files(_ context.Context, repo string) ([]FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkFailure(repo); err != nil {
		return nil, err
	}
	return append([]FileInfo(nil), s.files[repo]...), nil
}

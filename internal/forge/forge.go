// Package forge abstracts the hosted code-forge API the engine mines.
//
// Every method is scoped to a single repository: an error from one
// repository never aborts analysis of the rest of the fleet. Callers are
// expected to log and continue.
package forge

import (
	"context"
	"time"
)

// Commit is one raw commit as reported by the forge.
type Commit struct {
	SHA       string
	Author    string
	Message   string
	Timestamp time.Time
	Files     []string
	Additions int
	Deletions int
}

// Branch is one branch head as reported by the forge.
type Branch struct {
	Name string
	// HeadCommitAt is the timestamp of the branch's most recent commit,
	// used as the branch-age proxy (forges expose no creation time).
	HeadCommitAt time.Time
	Default      bool
}

// Metadata is summary repository metadata.
type Metadata struct {
	Size          int
	Stars         int
	DefaultBranch string
}

// FileInfo describes one source file and its length in lines.
type FileInfo struct {
	Path  string
	Lines int
}

// Source is the data-source collaborator contract. Implementations must be
// safe for concurrent use: multiple stages fetch independently.
type Source interface {
	// Metadata fetches repository summary metadata.
	Metadata(ctx context.Context, repo string) (*Metadata, error)

	// Commits returns commits from the last `days` days, newest first.
	Commits(ctx context.Context, repo string, days int) ([]Commit, error)

	// Branches lists the repository's branch heads.
	Branches(ctx context.Context, repo string) ([]Branch, error)

	// Files lists source files with their line counts. Implementations may
	// restrict the listing to files large enough to matter for
	// architectural analysis.
	Files(ctx context.Context, repo string) ([]FileInfo, error)
}

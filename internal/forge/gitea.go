package forge

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"code.gitea.io/sdk/gitea"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// commitPageSize is the page size used when walking commit history.
	commitPageSize = 50

	// largeFileMinBytes is the blob size below which a file cannot
	// plausibly exceed the God Object line threshold, so its content is
	// never fetched.
	largeFileMinBytes = 16 * 1024

	// maxLineCountFetches bounds content downloads per repository scan.
	maxLineCountFetches = 50
)

// sourceExtensions are the blob extensions considered source files when
// scanning for oversized files.
var sourceExtensions = map[string]bool{
	".go": true, ".py": true, ".ps1": true, ".js": true,
	".ts": true, ".java": true, ".rb": true, ".rs": true,
}

// GiteaSource implements Source against a Gitea forge.
type GiteaSource struct {
	client  *gitea.Client
	owner   string
	limiter *rate.Limiter
	logger  *logrus.Entry
}

// GiteaConfig configures a GiteaSource.
type GiteaConfig struct {
	URL   string
	Owner string
	Token string
	// RequestsPerSecond throttles forge API calls. Zero means 5.
	RequestsPerSecond float64
	Logger            *logrus.Entry
}

// NewGiteaSource creates a forge source talking to a Gitea instance.
func NewGiteaSource(cfg GiteaConfig) (*GiteaSource, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("forge URL is required")
	}
	if cfg.Owner == "" {
		return nil, fmt.Errorf("forge owner is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}

	client, err := gitea.NewClient(cfg.URL, gitea.SetToken(cfg.Token))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gitea client: %w", err)
	}

	return &GiteaSource{
		client:  client,
		owner:   cfg.Owner,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  cfg.Logger.WithField("component", "forge"),
	}, nil
}

// Metadata implements Source.
func (g *GiteaSource) Metadata(ctx context.Context, repo string) (*Metadata, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	r, _, err := g.client.GetRepo(g.owner, repo)
	if err != nil {
		return nil, fmt.Errorf("fetching metadata for %s: %w", repo, err)
	}

	return &Metadata{
		Size:          r.Size,
		Stars:         r.Stars,
		DefaultBranch: r.DefaultBranch,
	}, nil
}

// Commits implements Source. It pages through history until the lookback
// cutoff and skips commits with malformed payloads rather than failing the
// whole fetch.
func (g *GiteaSource) Commits(ctx context.Context, repo string, days int) ([]Commit, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	var out []Commit

	for page := 1; ; page++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		commits, _, err := g.client.ListRepoCommits(g.owner, repo, gitea.ListCommitOptions{
			ListOptions: gitea.ListOptions{Page: page, PageSize: commitPageSize},
		})
		if err != nil {
			return nil, fmt.Errorf("listing commits for %s: %w", repo, err)
		}
		if len(commits) == 0 {
			break
		}

		reachedCutoff := false
		for _, c := range commits {
			if c == nil || c.RepoCommit == nil {
				g.logger.WithField("repo", repo).Warn("skipping malformed commit payload")
				continue
			}
			if c.Created.Before(cutoff) {
				reachedCutoff = true
				break
			}

			commit := Commit{
				SHA:       c.SHA,
				Message:   c.RepoCommit.Message,
				Timestamp: c.Created,
			}
			if c.RepoCommit.Author != nil {
				commit.Author = c.RepoCommit.Author.Name
			}
			for _, f := range c.Files {
				if f != nil {
					commit.Files = append(commit.Files, f.Filename)
				}
			}
			if c.Stats != nil {
				commit.Additions = c.Stats.Additions
				commit.Deletions = c.Stats.Deletions
			}
			out = append(out, commit)
		}

		if reachedCutoff || len(commits) < commitPageSize {
			break
		}
	}

	return out, nil
}

// Branches implements Source.
func (g *GiteaSource) Branches(ctx context.Context, repo string) ([]Branch, error) {
	meta, err := g.Metadata(ctx, repo)
	if err != nil {
		return nil, err
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	branches, _, err := g.client.ListRepoBranches(g.owner, repo, gitea.ListRepoBranchesOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing branches for %s: %w", repo, err)
	}

	out := make([]Branch, 0, len(branches))
	for _, b := range branches {
		if b == nil || b.Commit == nil {
			continue
		}
		out = append(out, Branch{
			Name:         b.Name,
			HeadCommitAt: b.Commit.Timestamp,
			Default:      b.Name == meta.DefaultBranch,
		})
	}
	return out, nil
}

// Files implements Source. It walks the default branch tree and counts
// lines only for blobs big enough to plausibly be oversized, bounding both
// the API calls and the content downloads.
func (g *GiteaSource) Files(ctx context.Context, repo string) ([]FileInfo, error) {
	meta, err := g.Metadata(ctx, repo)
	if err != nil {
		return nil, err
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	tree, _, err := g.client.GetTrees(g.owner, repo, meta.DefaultBranch, true)
	if err != nil {
		return nil, fmt.Errorf("listing tree for %s: %w", repo, err)
	}

	var out []FileInfo
	fetches := 0
	for _, entry := range tree.Entries {
		if entry.Type != "blob" || !sourceExtensions[strings.ToLower(path.Ext(entry.Path))] {
			continue
		}
		if entry.Size < largeFileMinBytes {
			continue
		}
		if fetches >= maxLineCountFetches {
			g.logger.WithField("repo", repo).Warn("large-file scan truncated at fetch cap")
			break
		}

		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		content, _, err := g.client.GetFile(g.owner, repo, meta.DefaultBranch, entry.Path)
		fetches++
		if err != nil {
			// One unreadable blob should not sink the scan.
			g.logger.WithFields(logrus.Fields{
				"repo": repo,
				"path": entry.Path,
			}).WithError(err).Warn("skipping unreadable file")
			continue
		}

		out = append(out, FileInfo{
			Path:  entry.Path,
			Lines: countLines(content),
		})
	}
	return out, nil
}

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := bytes.Count(content, []byte("\n"))
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}

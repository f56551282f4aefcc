// Package history persists analysis results to a local SQLite archive so
// they survive restarts and can be queried from the CLI.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/reposcope/reposcope/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS commit_patterns (
	pattern_id       TEXT PRIMARY KEY,
	repository       TEXT NOT NULL,
	commit_sha       TEXT NOT NULL,
	author           TEXT,
	committed_at     TIMESTAMP NOT NULL,
	message          TEXT,
	files_changed    TEXT,
	lines_added      INTEGER NOT NULL DEFAULT 0,
	lines_deleted    INTEGER NOT NULL DEFAULT 0,
	pattern_type     TEXT NOT NULL,
	complexity_score REAL NOT NULL,
	impact_score     REAL NOT NULL,
	archived_at      TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_commit_patterns_repo ON commit_patterns(repository);
CREATE INDEX IF NOT EXISTS idx_commit_patterns_time ON commit_patterns(committed_at);

CREATE TABLE IF NOT EXISTS anti_patterns (
	pattern_id            TEXT PRIMARY KEY,
	pattern_name          TEXT NOT NULL,
	severity              TEXT NOT NULL,
	affected_repositories TEXT,
	affected_files        TEXT,
	description           TEXT,
	remediation           TEXT,
	auto_fixable          INTEGER NOT NULL DEFAULT 0,
	confidence            REAL NOT NULL,
	first_detected        TIMESTAMP NOT NULL,
	occurrences           INTEGER NOT NULL DEFAULT 1,
	archived_at           TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_anti_patterns_severity ON anti_patterns(severity);
`

// Store is the SQLite-backed analysis archive.
type Store struct {
	db *sql.DB
}

// Open creates or opens the archive database at path, initializing the
// schema. WAL mode keeps the daemon's writes from blocking CLI reads.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ArchivePatterns inserts commit patterns, ignoring records already archived
// under the same pattern ID so re-running a cycle is idempotent.
func (s *Store) ArchivePatterns(ctx context.Context, patterns []types.CommitPattern) error {
	if len(patterns) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO commit_patterns
		(pattern_id, repository, commit_sha, author, committed_at, message,
		 files_changed, lines_added, lines_deleted, pattern_type,
		 complexity_score, impact_score, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, p := range patterns {
		files, err := json.Marshal(p.FilesChanged)
		if err != nil {
			return fmt.Errorf("failed to encode files for %s: %w", p.PatternID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			p.PatternID, p.Repository, p.CommitSHA, p.Author, p.Timestamp,
			p.Message, string(files), p.LinesAdded, p.LinesDeleted,
			string(p.PatternType), p.ComplexityScore, p.ImpactScore, now,
		); err != nil {
			return fmt.Errorf("failed to archive pattern %s: %w", p.PatternID, err)
		}
	}

	return tx.Commit()
}

// ArchiveAntiPatterns inserts detected anti-patterns, ignoring duplicates.
func (s *Store) ArchiveAntiPatterns(ctx context.Context, aps []types.AntiPattern) error {
	if len(aps) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO anti_patterns
		(pattern_id, pattern_name, severity, affected_repositories,
		 affected_files, description, remediation, auto_fixable, confidence,
		 first_detected, occurrences, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, ap := range aps {
		repos, err := json.Marshal(ap.AffectedRepositories)
		if err != nil {
			return fmt.Errorf("failed to encode repositories for %s: %w", ap.PatternID, err)
		}
		files, err := json.Marshal(ap.AffectedFiles)
		if err != nil {
			return fmt.Errorf("failed to encode files for %s: %w", ap.PatternID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			ap.PatternID, ap.PatternName, string(ap.Severity), string(repos),
			string(files), ap.Description, ap.RemediationSuggestion,
			ap.AutoFixable, ap.DetectionConfidence, ap.FirstDetected,
			ap.Occurrences, now,
		); err != nil {
			return fmt.Errorf("failed to archive anti-pattern %s: %w", ap.PatternID, err)
		}
	}

	return tx.Commit()
}

// RecentPatterns returns the most recently committed archived patterns,
// optionally filtered by repository. A non-positive limit defaults to 20.
func (s *Store) RecentPatterns(ctx context.Context, repository string, limit int) ([]types.CommitPattern, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT pattern_id, repository, commit_sha, author, committed_at,
		       message, files_changed, lines_added, lines_deleted,
		       pattern_type, complexity_score, impact_score
		FROM commit_patterns
	`
	args := []interface{}{}
	if repository != "" {
		query += " WHERE repository = ?"
		args = append(args, repository)
	}
	query += " ORDER BY committed_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer rows.Close()

	var patterns []types.CommitPattern
	for rows.Next() {
		var p types.CommitPattern
		var files string
		var patternType string
		if err := rows.Scan(
			&p.PatternID, &p.Repository, &p.CommitSHA, &p.Author, &p.Timestamp,
			&p.Message, &files, &p.LinesAdded, &p.LinesDeleted,
			&patternType, &p.ComplexityScore, &p.ImpactScore,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		p.PatternType = types.PatternType(patternType)
		if files != "" {
			if err := json.Unmarshal([]byte(files), &p.FilesChanged); err != nil {
				return nil, fmt.Errorf("failed to decode files for %s: %w", p.PatternID, err)
			}
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

// RecentAntiPatterns returns archived anti-patterns ordered by detection
// time, newest first. A non-positive limit defaults to 20.
func (s *Store) RecentAntiPatterns(ctx context.Context, limit int) ([]types.AntiPattern, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT pattern_id, pattern_name, severity, affected_repositories,
		       affected_files, description, remediation, auto_fixable,
		       confidence, first_detected, occurrences
		FROM anti_patterns
		ORDER BY first_detected DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query anti-patterns: %w", err)
	}
	defer rows.Close()

	var aps []types.AntiPattern
	for rows.Next() {
		var ap types.AntiPattern
		var severity, repos, files string
		if err := rows.Scan(
			&ap.PatternID, &ap.PatternName, &severity, &repos, &files,
			&ap.Description, &ap.RemediationSuggestion, &ap.AutoFixable,
			&ap.DetectionConfidence, &ap.FirstDetected, &ap.Occurrences,
		); err != nil {
			return nil, fmt.Errorf("failed to scan anti-pattern: %w", err)
		}
		ap.Severity = types.Severity(severity)
		if repos != "" {
			if err := json.Unmarshal([]byte(repos), &ap.AffectedRepositories); err != nil {
				return nil, fmt.Errorf("failed to decode repositories for %s: %w", ap.PatternID, err)
			}
		}
		if files != "" {
			if err := json.Unmarshal([]byte(files), &ap.AffectedFiles); err != nil {
				return nil, fmt.Errorf("failed to decode files for %s: %w", ap.PatternID, err)
			}
		}
		aps = append(aps, ap)
	}
	return aps, rows.Err()
}

// PatternCount returns the number of archived commit patterns.
func (s *Store) PatternCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM commit_patterns").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count patterns: %w", err)
	}
	return count, nil
}

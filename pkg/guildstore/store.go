// Package guildstore persists the guild roster in SQLite. The roster is the
// input to every pipeline run: an ordered list of guild identifiers.
package guildstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // SQLite driver
)

// Store is a SQLite-backed guild roster. It uses WAL mode with a single
// writer connection, which is plenty for roster-sized workloads.
type Store struct {
	db        *sql.DB
	mu        sync.RWMutex
	closeOnce sync.Once
	logger    zerolog.Logger

	addStmt    *sql.Stmt
	removeStmt *sql.Stmt
	listStmt   *sql.Stmt
	countStmt  *sql.Stmt
}

// GuildRow is one roster entry.
type GuildRow struct {
	Region  string
	Realm   string
	Name    string
	AddedAt time.Time
}

// Open creates or opens a roster database at the given path. Use ":memory:"
// for an ephemeral store in tests.
func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}

	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &Store{
		db:     db,
		logger: log.With().Str("component", "guildstore").Logger(),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS guilds (
		region TEXT NOT NULL,
		realm TEXT NOT NULL,
		name TEXT NOT NULL,
		added_at INTEGER NOT NULL,
		PRIMARY KEY (region, realm, name)
	);

	CREATE INDEX IF NOT EXISTS idx_guilds_added_at ON guilds(added_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) prepareStatements() error {
	var err error

	s.addStmt, err = s.db.Prepare(`
		INSERT INTO guilds (region, realm, name, added_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (region, realm, name) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare add statement: %w", err)
	}

	s.removeStmt, err = s.db.Prepare(`
		DELETE FROM guilds
		WHERE region = ? AND realm = ? AND name = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare remove statement: %w", err)
	}

	s.listStmt, err = s.db.Prepare(`
		SELECT region, realm, name, added_at
		FROM guilds
		ORDER BY added_at, region, realm, name
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	s.countStmt, err = s.db.Prepare(`SELECT COUNT(*) FROM guilds`)
	if err != nil {
		return fmt.Errorf("failed to prepare count statement: %w", err)
	}

	return nil
}

// normalize folds identifiers the same way the cache key does, so the
// roster cannot hold "Tarren Mill" and "tarren-mill" as separate guilds.
func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}

// Add inserts a guild into the roster. Returns true if the guild was new,
// false if it was already present.
func (s *Store) Add(ctx context.Context, region, realm, name string) (bool, error) {
	region, realm, name = normalize(region), normalize(realm), normalize(name)
	if region == "" || realm == "" || name == "" {
		return false, fmt.Errorf("region, realm and name are all required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.addStmt.ExecContext(ctx, region, realm, name, time.Now().Unix())
	if err != nil {
		return false, fmt.Errorf("failed to add guild: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if inserted > 0 {
		s.logger.Info().
			Str("region", region).
			Str("realm", realm).
			Str("guild", name).
			Msg("Guild added to roster")
	}
	return inserted > 0, nil
}

// Remove deletes a guild from the roster. Returns true if a row was removed.
func (s *Store) Remove(ctx context.Context, region, realm, name string) (bool, error) {
	region, realm, name = normalize(region), normalize(realm), normalize(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.removeStmt.ExecContext(ctx, region, realm, name)
	if err != nil {
		return false, fmt.Errorf("failed to remove guild: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if removed > 0 {
		s.logger.Info().
			Str("region", region).
			Str("realm", realm).
			Str("guild", name).
			Msg("Guild removed from roster")
	}
	return removed > 0, nil
}

// List returns the full roster in insertion order.
func (s *Store) List(ctx context.Context) ([]GuildRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.listStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list guilds: %w", err)
	}
	defer rows.Close()

	var guilds []GuildRow
	for rows.Next() {
		var row GuildRow
		var addedAt int64
		if err := rows.Scan(&row.Region, &row.Realm, &row.Name, &addedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row.AddedAt = time.Unix(addedAt, 0)
		guilds = append(guilds, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return guilds, nil
}

// Count returns the roster size.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.countStmt.QueryRowContext(ctx).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count guilds: %w", err)
	}
	return count, nil
}

// Close releases the database. Close is idempotent.
func (s *Store) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.addStmt, s.removeStmt, s.listStmt, s.countStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		if s.db != nil {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}

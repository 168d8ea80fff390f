package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/roster/pkg/metrics"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS rosters (
	id         TEXT PRIMARY KEY,
	records    TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteStore persists rosters in a SQLite file. Records are stored as a
// JSON array, so numbers come back as float64.
type SQLiteStore struct {
	db  *sql.DB
	cfg settings
}

// NewSQLiteStore opens (and creates if needed) the database at path.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &SQLiteStore{db: db, cfg: newSettings(opts)}
	metrics.UpdateRostersTotal(s.Count(ctx))
	return s, nil
}

func (s *SQLiteStore) Put(ctx context.Context, id string, records []Record) (Roster, error) {
	if strings.TrimSpace(id) == "" {
		metrics.RecordErrorByComponent("repository", "invalid_roster")
		return Roster{}, fmt.Errorf("%w: blank id", ErrInvalidRoster)
	}
	if records == nil {
		records = []Record{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return Roster{}, fmt.Errorf("%w: encode records: %w", ErrInvalidRoster, err)
	}
	now := s.cfg.now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rosters (id, records, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET records = excluded.records, updated_at = excluded.updated_at`,
		id, string(payload), now.UnixNano())
	if err != nil {
		metrics.RecordErrorByComponent("repository", "write")
		return Roster{}, fmt.Errorf("save roster %s: %w", id, err)
	}
	metrics.UpdateRostersTotal(s.Count(ctx))

	var stored []Record
	if err := json.Unmarshal(payload, &stored); err != nil {
		return Roster{}, fmt.Errorf("decode roster %s: %w", id, err)
	}
	return Roster{ID: id, Records: stored, UpdatedAt: now}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Roster, error) {
	var (
		payload string
		updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT records, updated_at FROM rosters WHERE id = ?`, id).Scan(&payload, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Roster{}, ErrNotFound
	}
	if err != nil {
		return Roster{}, fmt.Errorf("load roster %s: %w", id, err)
	}

	var records []Record
	if err := json.Unmarshal([]byte(payload), &records); err != nil {
		return Roster{}, fmt.Errorf("decode roster %s: %w", id, err)
	}
	if records == nil {
		records = []Record{}
	}
	return Roster{ID: id, Records: records, UpdatedAt: time.Unix(0, updated).UTC()}, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rosters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete roster %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete roster %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	metrics.UpdateRostersTotal(s.Count(ctx))
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM rosters ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list rosters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan roster id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rosters: %w", err)
	}
	return ids, nil
}

// Count returns 0 when the query fails.
func (s *SQLiteStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rosters`).Scan(&n); err != nil {
		return 0
	}
	return n
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

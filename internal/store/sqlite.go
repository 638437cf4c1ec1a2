package store

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

	_ "modernc.org/sqlite"

	"github.com/amishk599/jobsieve/internal/model"
)

// SQLiteStore persists fingerprinted job records across runs, so postings seen
// by an earlier run collide with later ones instead of being emitted again.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// seen_jobs table exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	createTable := `CREATE TABLE IF NOT EXISTS seen_jobs (
		fingerprint     TEXT PRIMARY KEY,
		source          TEXT NOT NULL,
		relevance_score REAL,
		record          TEXT NOT NULL,
		first_seen      INTEGER NOT NULL,
		updated_at      INTEGER NOT NULL
	)`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating seen_jobs table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS seen_jobs_first_seen ON seen_jobs (first_seen)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating seen_jobs index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get returns the record stored under fingerprint.
func (s *SQLiteStore) Get(ctx context.Context, fingerprint string) (model.JobRecord, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT record FROM seen_jobs WHERE fingerprint = ?", fingerprint).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.JobRecord{}, false, nil
	}
	if err != nil {
		return model.JobRecord{}, false, fmt.Errorf("looking up %s: %w", fingerprint, err)
	}

	var rec model.JobRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return model.JobRecord{}, false, fmt.Errorf("decoding record %s: %w", fingerprint, err)
	}
	return rec, true, nil
}

// Put inserts rec or replaces the stored record with the same fingerprint.
// The original first_seen time is kept on replace.
func (s *SQLiteStore) Put(ctx context.Context, rec model.JobRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record %s: %w", rec.Fingerprint, err)
	}

	firstSeen := rec.FirstSeen
	if firstSeen.IsZero() {
		firstSeen = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO seen_jobs (fingerprint, source, relevance_score, record, first_seen, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			relevance_score = excluded.relevance_score,
			record = excluded.record,
			updated_at = excluded.updated_at`,
		rec.Fingerprint, rec.Source, rec.RelevanceScore, string(data), firstSeen.Unix(), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("saving record %s: %w", rec.Fingerprint, err)
	}
	return nil
}

// Query selects stored records for read-only consumers.
type Query struct {
	MinScore float64 // zero includes unclassified records
	Source   string
	Limit    int
}

// List returns stored records, newest first.
func (s *SQLiteStore) List(ctx context.Context, q Query) ([]model.JobRecord, error) {
	var (
		where []string
		args  []any
	)
	if q.MinScore > 0 {
		where = append(where, "relevance_score >= ?")
		args = append(args, q.MinScore)
	}
	if q.Source != "" {
		where = append(where, "source = ?")
		args = append(args, q.Source)
	}

	query := "SELECT record FROM seen_jobs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY first_seen DESC, fingerprint"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var records []model.JobRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		var rec model.JobRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("decoding record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Cleanup deletes records first seen longer ago than olderThan and returns
// how many were removed.
func (s *SQLiteStore) Cleanup(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).Unix()
	res, err := s.db.Exec("DELETE FROM seen_jobs WHERE first_seen < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleaning up seen jobs older than %v: %w", olderThan, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM seen_jobs").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting seen jobs: %w", err)
	}
	return count, nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

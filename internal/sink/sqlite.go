package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amishk599/jobsieve/internal/model"
)

// SQLiteSink stores written records in a jobs table. A fingerprint already in
// the table is left untouched.
type SQLiteSink struct {
	db *sql.DB
}

var _ model.Sink = (*SQLiteSink)(nil)

func NewSQLiteSink(dbPath string) (*SQLiteSink, error) {
	if err := ensureDir(dbPath); err != nil {
		return nil, fmt.Errorf("sqlite sink: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite sink: %w", err)
	}
	db.SetMaxOpenConns(1)

	createTable := `CREATE TABLE IF NOT EXISTS jobs (
		fingerprint     TEXT PRIMARY KEY,
		title           TEXT NOT NULL,
		company         TEXT NOT NULL,
		location        TEXT NOT NULL,
		url             TEXT NOT NULL,
		posted_at       TEXT,
		source          TEXT NOT NULL,
		tags            TEXT NOT NULL,
		relevance_score REAL,
		category        TEXT,
		salary          TEXT,
		work_mode       TEXT,
		first_seen      INTEGER NOT NULL
	)`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating jobs table: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) Name() string { return "sqlite" }

func (s *SQLiteSink) Write(ctx context.Context, records []model.JobRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite sink: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO jobs
		(fingerprint, title, company, location, url, posted_at, source, tags, relevance_score, category, salary, work_mode, first_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite sink: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			r.Fingerprint, r.Title, r.Company, r.Location, r.URL, r.PostedAt, r.Source,
			strings.Join(r.Tags, ", "), r.RelevanceScore, r.Category, r.Salary, r.WorkMode,
			firstSeenUnix(r.FirstSeen),
		)
		if err != nil {
			return fmt.Errorf("sqlite sink insert %s: %w", r.Fingerprint, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite sink commit: %w", err)
	}
	return nil
}

// Count returns the number of stored rows.
func (s *SQLiteSink) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite sink count: %w", err)
	}
	return n, nil
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func firstSeenUnix(t time.Time) int64 {
	if t.IsZero() {
		return time.Now().Unix()
	}
	return t.Unix()
}

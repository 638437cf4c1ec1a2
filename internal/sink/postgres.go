package sink

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/amishk599/jobsieve/internal/model"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// PostgresSink upserts records into a jobs table keyed by fingerprint. The
// schema is managed by embedded migrations applied on open.
type PostgresSink struct {
	pool *pgxpool.Pool
}

var _ model.Sink = (*PostgresSink)(nil)

// NewPostgresSink connects to dsn and migrates the schema to the latest version.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	if dsn == "" {
		return nil, errors.New("postgres sink: dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres sink: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres sink ping: %w", err)
	}
	if _, err := runMigrations(pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresSink{pool: pool}, nil
}

// runMigrations applies all pending migrations and returns the schema version.
func runMigrations(pool *pgxpool.Pool) (uint, error) {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return 0, fmt.Errorf("failed to create migrate driver: %w", err)
	}
	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("failed to create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "pgx5", driver)
	if err != nil {
		return 0, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to run migrations: %w", err)
	}
	version, _, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, nil
}

func (s *PostgresSink) Name() string { return "postgres" }

const upsertJob = `
INSERT INTO jobs (
	fingerprint, title, company, location, url, posted_at, source, tags,
	relevance_score, category, dimensions, description, salary, sponsorship, work_mode, first_seen
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
ON CONFLICT (fingerprint) DO UPDATE SET
	tags            = EXCLUDED.tags,
	relevance_score = EXCLUDED.relevance_score,
	category        = EXCLUDED.category,
	dimensions      = EXCLUDED.dimensions,
	updated_at      = now()
`

func (s *PostgresSink) Write(ctx context.Context, records []model.JobRecord) error {
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(upsertJob,
			r.Fingerprint, r.Title, r.Company, r.Location, r.URL, r.PostedAt, r.Source, nonNil(r.Tags),
			r.RelevanceScore, r.Category, nonNil(r.Dimensions), r.Description, r.Salary, r.Sponsorship, r.WorkMode,
			r.FirstSeen,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	for _, r := range records {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("postgres sink upsert %s: %w", r.Fingerprint, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("postgres sink: %w", err)
	}
	return nil
}

// Count returns the number of stored rows.
func (s *PostgresSink) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres sink count: %w", err)
	}
	return n, nil
}

func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

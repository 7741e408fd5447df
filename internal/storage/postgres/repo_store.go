// Package postgres provides the Postgres-backed RepoStore implementation.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/github-stars-crawler/internal/crawler"
)

//go:embed schema.sql
var schemaSQL string

// StoreConfig controls the Postgres connection pool.
type StoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// pgxPool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// in tests.
type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// RepoStore writes repositories, star snapshots, and run records to Postgres.
type RepoStore struct {
	pool pgxPool
}

// NewRepoStore connects a pool using the provided config.
func NewRepoStore(ctx context.Context, cfg StoreConfig) (*RepoStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &RepoStore{pool: pool}, nil
}

// NewRepoStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewRepoStoreWithPool(pool pgxPool) (*RepoStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &RepoStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *RepoStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// InitSchema applies the embedded DDL. Idempotent.
func (s *RepoStore) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// CreateRun inserts a crawl_runs row and returns its ID.
func (s *RepoStore) CreateRun(ctx context.Context, runUUID uuid.UUID, startedAt time.Time) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
INSERT INTO crawl_runs (run_uuid, started_at, status)
VALUES ($1, $2, $3)
RETURNING id`, runUUID, startedAt, crawler.RunStatusRunning).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert crawl run: %w", err)
	}
	return id, nil
}

// upsertPageSize bounds the rows per statement. The extended protocol caps
// bind parameters at 65,535 per statement (int16); at 10 columns per row the
// page stays well under that while keeping round trips low.
const upsertPageSize = 1000

// UpsertBatch writes a batch in one transaction: repositories are upserted
// on node_id with only the mutable columns replaced, and star snapshots are
// appended with ON CONFLICT DO NOTHING so replays never duplicate or rewrite
// history. Batches larger than upsertPageSize are written as multiple
// statements inside the same transaction. Safe to apply the same batch twice.
func (s *RepoStore) UpsertBatch(ctx context.Context, repos []crawler.Repo, recordedAt time.Time) error {
	if len(repos) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for start := 0; start < len(repos); start += upsertPageSize {
		page := repos[start:min(start+upsertPageSize, len(repos))]

		repoSQL, repoArgs := buildRepoUpsert(page, recordedAt)
		if _, err := tx.Exec(ctx, repoSQL, repoArgs...); err != nil {
			return fmt.Errorf("upsert repositories: %w", err)
		}

		starSQL, starArgs := buildStarInsert(page, recordedAt)
		if _, err := tx.Exec(ctx, starSQL, starArgs...); err != nil {
			return fmt.Errorf("insert star snapshots: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert batch: %w", err)
	}
	return nil
}

// FinishRun records the run's terminal state.
func (s *RepoStore) FinishRun(
	ctx context.Context,
	runID int64,
	total int,
	status crawler.RunStatus,
	errText string,
	finishedAt time.Time,
) error {
	var errMsg *string
	if errText != "" {
		errMsg = &errText
	}
	_, err := s.pool.Exec(ctx, `
UPDATE crawl_runs
SET finished_at = $1,
    total_repos = $2,
    status      = $3,
    error_msg   = $4
WHERE id = $5`, finishedAt, total, status, errMsg, runID)
	if err != nil {
		return fmt.Errorf("finish crawl run: %w", err)
	}
	return nil
}

// LatestStarCounts returns the most recent snapshot per repository, highest
// stars first.
func (s *RepoStore) LatestStarCounts(ctx context.Context) ([]crawler.StarCount, error) {
	rows, err := s.pool.Query(ctx, `
SELECT node_id, name_with_owner, owner_login, name, star_count, recorded_at
FROM latest_star_counts
ORDER BY star_count DESC`)
	if err != nil {
		return nil, fmt.Errorf("query latest star counts: %w", err)
	}
	defer rows.Close()

	var counts []crawler.StarCount
	for rows.Next() {
		var c crawler.StarCount
		if err := rows.Scan(&c.NodeID, &c.NameWithOwner, &c.OwnerLogin, &c.Name, &c.StarCount, &c.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan star count row: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate star count rows: %w", err)
	}
	return counts, nil
}

func buildRepoUpsert(repos []crawler.Repo, crawledAt time.Time) (string, []any) {
	const cols = 10
	values := make([]string, 0, len(repos))
	args := make([]any, 0, len(repos)*cols)
	for i, r := range repos {
		base := i * cols
		values = append(values, placeholders(base, cols))
		args = append(args,
			r.NodeID,
			r.NameWithOwner,
			r.Name,
			r.OwnerLogin,
			nullable(r.Description),
			nullable(r.PrimaryLanguage),
			r.IsPrivate,
			r.CreatedAt,
			r.UpdatedAt,
			crawledAt,
		)
	}
	sql := `
INSERT INTO repositories
    (node_id, name_with_owner, name, owner_login, description,
     primary_language, is_private, created_at, updated_at, crawled_at)
VALUES ` + strings.Join(values, ", ") + `
ON CONFLICT (node_id) DO UPDATE SET
    name_with_owner  = EXCLUDED.name_with_owner,
    name             = EXCLUDED.name,
    owner_login      = EXCLUDED.owner_login,
    description      = EXCLUDED.description,
    primary_language = EXCLUDED.primary_language,
    is_private       = EXCLUDED.is_private,
    updated_at       = EXCLUDED.updated_at,
    crawled_at       = EXCLUDED.crawled_at`
	return sql, args
}

func buildStarInsert(repos []crawler.Repo, recordedAt time.Time) (string, []any) {
	const cols = 3
	values := make([]string, 0, len(repos))
	args := make([]any, 0, len(repos)*cols)
	for i, r := range repos {
		base := i * cols
		values = append(values, placeholders(base, cols))
		args = append(args, r.NodeID, r.StarCount, recordedAt)
	}
	sql := `
INSERT INTO repository_stars (node_id, star_count, recorded_at)
VALUES ` + strings.Join(values, ", ") + `
ON CONFLICT DO NOTHING`
	return sql, args
}

func placeholders(base, n int) string {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = fmt.Sprintf("$%d", base+i+1)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

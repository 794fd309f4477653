package repositories

import (
	"context"
	"database/sql"
	"sync"

	"github.com/linktally/linktally/internal/core/domain"
	"github.com/linktally/linktally/internal/core/ports"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// postgresArchive keeps a durable record of every created link for listing
// and audit. The accounting engine never reads from it; Redis stays the
// source of truth for budgets and counters.
const archiveSchema = `
CREATE TABLE IF NOT EXISTS short_links (
	id         UUID PRIMARY KEY,
	code       TEXT NOT NULL UNIQUE,
	target_url TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	ttl_sec    INTEGER,
	max_clicks INTEGER
)`

// EnsureArchiveSchema creates the archive table if needed. Must run before
// NewPostgresArchive, which prepares its statements eagerly.
func EnsureArchiveSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, archiveSchema)
	return err
}

type postgresArchive struct {
	DB             *sql.DB
	saveStmt       *sql.Stmt
	listRecentStmt *sql.Stmt
	initOnce       sync.Once
}

func NewPostgresArchive(db *sql.DB) ports.LinkArchive {
	repo := &postgresArchive{DB: db}
	repo.initOnce.Do(repo.initStatements)
	return repo
}

func (r *postgresArchive) initStatements() {
	var err error

	r.saveStmt, err = r.DB.Prepare(`
		INSERT INTO short_links (id, code, target_url, created_at, ttl_sec, max_clicks)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO NOTHING`)
	if err != nil {
		panic("failed to prepare save statement: " + err.Error())
	}

	r.listRecentStmt, err = r.DB.Prepare(`
		SELECT id, code, target_url, created_at, ttl_sec, max_clicks
		FROM short_links
		ORDER BY created_at DESC
		LIMIT $1`)
	if err != nil {
		panic("failed to prepare listRecent statement: " + err.Error())
	}
}

func (r *postgresArchive) Save(ctx context.Context, link domain.Link) error {
	var ttl, maxClicks sql.NullInt64
	if link.TTLSec != nil {
		ttl = sql.NullInt64{Int64: int64(*link.TTLSec), Valid: true}
	}
	if link.MaxClicks != nil {
		maxClicks = sql.NullInt64{Int64: int64(*link.MaxClicks), Valid: true}
	}
	_, err := r.saveStmt.ExecContext(ctx, link.ID, link.Code, link.TargetURL, link.CreatedAt, ttl, maxClicks)
	return err
}

func (r *postgresArchive) ListRecent(ctx context.Context, n int) ([]domain.Link, error) {
	rows, err := r.listRecentStmt.QueryContext(ctx, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []domain.Link
	for rows.Next() {
		var link domain.Link
		var ttl, maxClicks sql.NullInt64
		if err := rows.Scan(&link.ID, &link.Code, &link.TargetURL, &link.CreatedAt, &ttl, &maxClicks); err != nil {
			return nil, err
		}
		if ttl.Valid {
			v := int(ttl.Int64)
			link.TTLSec = &v
		}
		if maxClicks.Valid {
			v := int(maxClicks.Int64)
			link.MaxClicks = &v
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func (r *postgresArchive) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

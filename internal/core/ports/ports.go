package ports

import (
	"context"
	"time"

	"github.com/linktally/linktally/internal/core/domain"
)

// LinkRepository is the budget store: URL mappings with native expiry, the
// remaining-click counters, creation metadata, and the click leaderboard.
// Resolve must be atomic per code (see the Redis adapter's Lua script).
type LinkRepository interface {
	Create(ctx context.Context, link domain.Link, retention time.Duration) error
	Exists(ctx context.Context, code string) (bool, error)
	GetURL(ctx context.Context, code string) (string, error)
	Resolve(ctx context.Context, code string, countClick bool) (domain.Resolution, error)
	Credit(ctx context.Context, code string) error
	Top(ctx context.Context, n int) ([]domain.TopLink, error)
	Stats(ctx context.Context, code string) (domain.Stats, error)
	Ping(ctx context.Context) error
}

// RateLimiter admits or denies one event for an identity against a sliding
// window. The purge-count-insert cycle must be atomic per identity.
type RateLimiter interface {
	Check(ctx context.Context, identity string, limit int, window time.Duration) (domain.RateDecision, error)
}

// LinkArchive is an optional durable record of every created link, used
// for listing and audit. It is never consulted by the accounting engine.
type LinkArchive interface {
	Save(ctx context.Context, link domain.Link) error
	ListRecent(ctx context.Context, n int) ([]domain.Link, error)
	Ping(ctx context.Context) error
}

// VisitPublisher fans counted visits out to external consumers.
// Implementations are fire-and-forget; a failed publish never fails a resolve.
type VisitPublisher interface {
	PublishVisit(ctx context.Context, code string) error
}

type LinkService interface {
	CreateShortLink(ctx context.Context, longURL string, ttlSec, maxClicks *int) (domain.Link, error)
	Resolve(ctx context.Context, code string, countClick bool) (domain.Resolution, error)
	RecordVisit(ctx context.Context, code string) error
	TopLinks(ctx context.Context, n int) ([]domain.TopLink, error)
	LinkStats(ctx context.Context, code string) (domain.Stats, error)
	ListLinks(ctx context.Context, n int) ([]domain.Link, error)
}

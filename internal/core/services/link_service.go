package services

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/linktally/linktally/internal/core/domain"
	"github.com/linktally/linktally/internal/core/ports"
)

const (
	minURLLength = 10
	maxURLLength = 2048

	defaultCodeLength  = 7
	defaultGenAttempts = 5
)

// Options tunes the service. Zero values fall back to defaults; a zero
// StatsRetention keeps creation metadata forever.
type Options struct {
	CodeLength     int
	MaxGenAttempts int
	StatsRetention time.Duration
}

type DefaultLinkService struct {
	Repo    ports.LinkRepository
	Archive ports.LinkArchive    // optional, nil disables archiving
	Events  ports.VisitPublisher // optional, nil disables visit events

	opts    Options
	nowFunc func() time.Time
}

func NewLinkService(repo ports.LinkRepository, archive ports.LinkArchive, events ports.VisitPublisher, opts Options) *DefaultLinkService {
	if opts.CodeLength <= 0 {
		opts.CodeLength = defaultCodeLength
	}
	if opts.MaxGenAttempts <= 0 {
		opts.MaxGenAttempts = defaultGenAttempts
	}
	return &DefaultLinkService{
		Repo:    repo,
		Archive: archive,
		Events:  events,
		opts:    opts,
		nowFunc: time.Now,
	}
}

// CreateShortLink validates the input, allocates a unique code with a
// bounded collision-check loop, and writes the mapping plus its budgets.
// Validation happens before any store write.
func (s *DefaultLinkService) CreateShortLink(ctx context.Context, longURL string, ttlSec, maxClicks *int) (domain.Link, error) {
	if err := validateTargetURL(longURL); err != nil {
		return domain.Link{}, err
	}
	if ttlSec != nil && *ttlSec <= 0 {
		return domain.Link{}, fmt.Errorf("%w: ttl_sec must be positive", domain.ErrValidation)
	}
	if maxClicks != nil && *maxClicks <= 0 {
		return domain.Link{}, fmt.Errorf("%w: max_clicks must be positive", domain.ErrValidation)
	}

	code, err := s.allocateCode(ctx)
	if err != nil {
		return domain.Link{}, err
	}

	link := domain.Link{
		ID:        uuid.New().String(),
		Code:      code,
		TargetURL: longURL,
		CreatedAt: s.nowFunc().UTC(),
		TTLSec:    ttlSec,
		MaxClicks: maxClicks,
	}
	if err := s.Repo.Create(ctx, link, s.opts.StatsRetention); err != nil {
		return domain.Link{}, err
	}

	if s.Archive != nil {
		go func() {
			if err := s.Archive.Save(context.Background(), link); err != nil {
				log.Printf("failed to archive link %s: %v", link.Code, err)
			}
		}()
	}

	return link, nil
}

// allocateCode draws random candidates and checks each against the store.
// The check-then-create window is an accepted probabilistic race: at 62^7
// combinations a collision between two concurrent creators is vanishingly
// unlikely, so the mitigation is a bounded retry, not a global lock.
func (s *DefaultLinkService) allocateCode(ctx context.Context) (string, error) {
	for i := 0; i < s.opts.MaxGenAttempts; i++ {
		candidate, err := RandomCode(s.opts.CodeLength)
		if err != nil {
			return "", err
		}
		taken, err := s.Repo.Exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", domain.ErrCodeGenExhausted
}

// Resolve looks the code up and, when countClick is set, consumes one unit
// of click budget in the same atomic store operation. The leaderboard is
// credited afterwards, only for counted 200s; it is a monotonic statistic,
// not a budget, so it may sit outside the atomic step.
func (s *DefaultLinkService) Resolve(ctx context.Context, code string, countClick bool) (domain.Resolution, error) {
	res, err := s.Repo.Resolve(ctx, code, countClick)
	if err != nil {
		return domain.Resolution{}, err
	}
	if res.Live() && countClick {
		if err := s.RecordVisit(ctx, code); err != nil {
			log.Printf("failed to record visit for %s: %v", code, err)
		}
	}
	return res, nil
}

// RecordVisit credits the click leaderboard for code and publishes the
// visit event when a publisher is wired.
func (s *DefaultLinkService) RecordVisit(ctx context.Context, code string) error {
	if err := s.Repo.Credit(ctx, code); err != nil {
		return err
	}
	if s.Events != nil {
		go func() {
			if err := s.Events.PublishVisit(context.Background(), code); err != nil {
				log.Printf("failed to publish visit for %s: %v", code, err)
			}
		}()
	}
	return nil
}

// TopLinks returns up to n leaderboard entries, n clamped to 1..100.
func (s *DefaultLinkService) TopLinks(ctx context.Context, n int) ([]domain.TopLink, error) {
	return s.Repo.Top(ctx, clampLimit(n))
}

// LinkStats reports lifetime accounting for a code. A code that was
// created but whose mapping has expired is reported with Expired=true;
// ErrNotFound means the code was never created at all.
func (s *DefaultLinkService) LinkStats(ctx context.Context, code string) (domain.Stats, error) {
	return s.Repo.Stats(ctx, code)
}

// ListLinks returns the most recently archived links. Without an archive
// configured there is nothing to list.
func (s *DefaultLinkService) ListLinks(ctx context.Context, n int) ([]domain.Link, error) {
	if s.Archive == nil {
		return nil, domain.ErrNotFound
	}
	return s.Archive.ListRecent(ctx, clampLimit(n))
}

func clampLimit(n int) int {
	if n < 1 {
		return 1
	}
	if n > 100 {
		return 100
	}
	return n
}

func validateTargetURL(raw string) error {
	if len(raw) < minURLLength {
		return fmt.Errorf("%w: url too short", domain.ErrValidation)
	}
	if len(raw) > maxURLLength {
		return fmt.Errorf("%w: url too long (max %d chars)", domain.ErrValidation, maxURLLength)
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return fmt.Errorf("%w: url must start with http:// or https://", domain.ErrValidation)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: url is not parseable", domain.ErrValidation)
	}
	return nil
}

var _ ports.LinkService = (*DefaultLinkService)(nil)

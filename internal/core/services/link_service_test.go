package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/linktally/linktally/internal/core/domain"
)

type fakeRepo struct {
	created   []domain.Link
	retention time.Duration
	existsAll bool

	resolveRes domain.Resolution
	resolveErr error

	credits map[string]int

	topSeen  int
	topLinks []domain.TopLink

	stats    domain.Stats
	statsErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{credits: make(map[string]int)}
}

func (f *fakeRepo) Create(_ context.Context, link domain.Link, retention time.Duration) error {
	f.created = append(f.created, link)
	f.retention = retention
	return nil
}

func (f *fakeRepo) Exists(_ context.Context, _ string) (bool, error) {
	return f.existsAll, nil
}

func (f *fakeRepo) GetURL(_ context.Context, _ string) (string, error) {
	return "", domain.ErrNotFound
}

func (f *fakeRepo) Resolve(_ context.Context, _ string, _ bool) (domain.Resolution, error) {
	return f.resolveRes, f.resolveErr
}

func (f *fakeRepo) Credit(_ context.Context, code string) error {
	f.credits[code]++
	return nil
}

func (f *fakeRepo) Top(_ context.Context, n int) ([]domain.TopLink, error) {
	f.topSeen = n
	return f.topLinks, nil
}

func (f *fakeRepo) Stats(_ context.Context, _ string) (domain.Stats, error) {
	return f.stats, f.statsErr
}

func (f *fakeRepo) Ping(_ context.Context) error { return nil }

func intPtr(n int) *int { return &n }

func TestCreateShortLinkValidation(t *testing.T) {
	tests := []struct {
		name      string
		longURL   string
		ttlSec    *int
		maxClicks *int
	}{
		{"too short", "http://a", nil, nil},
		{"bad scheme", "ftp://example.com/file", nil, nil},
		{"not parseable", "https://%zz invalid", nil, nil},
		{"zero ttl", "https://example.com/page", intPtr(0), nil},
		{"negative ttl", "https://example.com/page", intPtr(-5), nil},
		{"zero max clicks", "https://example.com/page", nil, intPtr(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			svc := NewLinkService(repo, nil, nil, Options{})

			_, err := svc.CreateShortLink(context.Background(), tt.longURL, tt.ttlSec, tt.maxClicks)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("got %v, want ErrValidation", err)
			}
			if len(repo.created) != 0 {
				t.Error("validation failure must not write to the store")
			}
		})
	}
}

func TestCreateShortLinkSuccess(t *testing.T) {
	repo := newFakeRepo()
	svc := NewLinkService(repo, nil, nil, Options{CodeLength: 7, StatsRetention: time.Hour})

	link, err := svc.CreateShortLink(context.Background(), "https://example.com/page", intPtr(60), intPtr(3))
	if err != nil {
		t.Fatalf("CreateShortLink: %v", err)
	}
	if len(link.Code) != 7 {
		t.Errorf("code %q, want length 7", link.Code)
	}
	if link.ID == "" {
		t.Error("link ID not set")
	}
	if len(repo.created) != 1 {
		t.Fatalf("store saw %d creates, want 1", len(repo.created))
	}
	got := repo.created[0]
	if got.TTLSec == nil || *got.TTLSec != 60 {
		t.Errorf("stored ttl %v, want 60", got.TTLSec)
	}
	if got.MaxClicks == nil || *got.MaxClicks != 3 {
		t.Errorf("stored max clicks %v, want 3", got.MaxClicks)
	}
	if repo.retention != time.Hour {
		t.Errorf("retention %v, want 1h", repo.retention)
	}
}

func TestCreateShortLinkGenerationExhausted(t *testing.T) {
	repo := newFakeRepo()
	repo.existsAll = true
	svc := NewLinkService(repo, nil, nil, Options{MaxGenAttempts: 5})

	_, err := svc.CreateShortLink(context.Background(), "https://example.com/page", nil, nil)
	if !errors.Is(err, domain.ErrCodeGenExhausted) {
		t.Fatalf("got %v, want ErrCodeGenExhausted", err)
	}
	if len(repo.created) != 0 {
		t.Error("exhausted generation must not write to the store")
	}
}

func TestResolveCountedCreditsLedger(t *testing.T) {
	repo := newFakeRepo()
	repo.resolveRes = domain.Resolution{Status: domain.StatusOK, LongURL: "https://example.com/page"}
	svc := NewLinkService(repo, nil, nil, Options{})

	res, err := svc.Resolve(context.Background(), "abc1234", true)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.Live() {
		t.Fatalf("status %d, want 200", res.Status)
	}
	if repo.credits["abc1234"] != 1 {
		t.Errorf("ledger credited %d times, want 1", repo.credits["abc1234"])
	}
}

func TestResolveUncountedNeverCredits(t *testing.T) {
	repo := newFakeRepo()
	repo.resolveRes = domain.Resolution{Status: domain.StatusOK, LongURL: "https://example.com/page"}
	svc := NewLinkService(repo, nil, nil, Options{})

	if _, err := svc.Resolve(context.Background(), "abc1234", false); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if repo.credits["abc1234"] != 0 {
		t.Errorf("uncounted resolve credited the ledger %d times", repo.credits["abc1234"])
	}
}

func TestResolveFailureNeverCredits(t *testing.T) {
	for _, status := range []int{domain.StatusNotFound, domain.StatusExhausted} {
		repo := newFakeRepo()
		repo.resolveRes = domain.Resolution{Status: status}
		svc := NewLinkService(repo, nil, nil, Options{})

		res, err := svc.Resolve(context.Background(), "abc1234", true)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if res.Status != status {
			t.Errorf("status %d, want %d", res.Status, status)
		}
		if len(repo.credits) != 0 {
			t.Errorf("status %d resolution credited the ledger", status)
		}
	}
}

func TestTopLinksClampsLimit(t *testing.T) {
	repo := newFakeRepo()
	svc := NewLinkService(repo, nil, nil, Options{})

	if _, err := svc.TopLinks(context.Background(), 0); err != nil {
		t.Fatalf("TopLinks: %v", err)
	}
	if repo.topSeen != 1 {
		t.Errorf("limit 0 clamped to %d, want 1", repo.topSeen)
	}

	if _, err := svc.TopLinks(context.Background(), 5000); err != nil {
		t.Fatalf("TopLinks: %v", err)
	}
	if repo.topSeen != 100 {
		t.Errorf("limit 5000 clamped to %d, want 100", repo.topSeen)
	}
}

func TestListLinksWithoutArchive(t *testing.T) {
	svc := NewLinkService(newFakeRepo(), nil, nil, Options{})
	if _, err := svc.ListLinks(context.Background(), 10); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

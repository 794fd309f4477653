package domain

import "time"

// Resolution status codes. They mirror the HTTP statuses the transport
// layer maps them to, so the atomic store script can return them directly.
const (
	StatusOK        = 200
	StatusNotFound  = 404
	StatusExhausted = 410
)

// Link is a short code bound to a target URL with its consumption budgets.
// TTLSec and MaxClicks are nil when the corresponding budget is unlimited.
type Link struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	TargetURL string    `json:"target_url"`
	CreatedAt time.Time `json:"created_at"`
	TTLSec    *int      `json:"ttl_sec,omitempty"`
	MaxClicks *int      `json:"max_clicks,omitempty"`
}

// Resolution is the outcome of a single resolve call. LongURL is empty
// unless Status is StatusOK.
type Resolution struct {
	Status  int    `json:"status"`
	LongURL string `json:"long_url"`
}

// Live reports whether the resolution produced a usable target.
func (r Resolution) Live() bool { return r.Status == StatusOK }

// TopLink is one leaderboard entry, ordered by lifetime clicks.
type TopLink struct {
	Code    string `json:"code"`
	Clicks  int64  `json:"clicks"`
	LongURL string `json:"long_url"`
}

// Stats describes a code's lifetime accounting. Expired is recomputed on
// every call from the presence of the URL mapping; the metadata record a
// Stats is built from outlives the mapping on purpose.
type Stats struct {
	Code        string     `json:"code"`
	TotalClicks int64      `json:"total_clicks"`
	CreatedAt   time.Time  `json:"created_at"`
	MaxClicks   int        `json:"max_clicks,omitempty"`
	LastClick   *time.Time `json:"last_click,omitempty"`
	Expired     bool       `json:"expired"`
}

// RateDecision is the outcome of one sliding-window admission check.
// Remaining is the number of slots left after this decision.
type RateDecision struct {
	Allowed   bool `json:"allowed"`
	Remaining int  `json:"remaining"`
}

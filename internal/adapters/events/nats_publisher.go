package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/linktally/linktally/internal/core/ports"
)

const DefaultVisitSubject = "linktally.visits"

// VisitEvent is the wire shape published for each counted resolution.
type VisitEvent struct {
	Code string    `json:"code"`
	Ts   time.Time `json:"ts"`
}

// NATSPublisher fans counted visits out on a NATS subject for external
// analytics consumers. Publishing is best-effort; the accounting engine
// never waits on or fails with it.
type NATSPublisher struct {
	Conn    *nats.Conn
	Subject string
}

func NewNATSPublisher(nc *nats.Conn, subject string) *NATSPublisher {
	if subject == "" {
		subject = DefaultVisitSubject
	}
	return &NATSPublisher{Conn: nc, Subject: subject}
}

func (p *NATSPublisher) PublishVisit(_ context.Context, code string) error {
	payload, err := json.Marshal(VisitEvent{Code: code, Ts: time.Now().UTC()})
	if err != nil {
		return err
	}
	return p.Conn.Publish(p.Subject, payload)
}

var _ ports.VisitPublisher = (*NATSPublisher)(nil)

package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/zhangyumengsarah-gif/word/internal/domain"
	"github.com/zhangyumengsarah-gif/word/internal/ports"
)

// Gateway turns events into publisher calls. It is the only path from the
// state machine to the transport.
type Gateway struct {
	pub ports.Publisher
}

// NewGateway wraps pub.
func NewGateway(pub ports.Publisher) *Gateway {
	return &Gateway{pub: pub}
}

// Dispatch publishes events in order. Broadcast events go to the seats present at
// dispatch time; an event with nobody to receive it is dropped without error.
func (g *Gateway) Dispatch(ctx context.Context, session *domain.Session, events []Event) error {
	var errs []error
	for _, ev := range events {
		recipients := ev.Recipients
		if len(recipients) == 0 {
			recipients = append([]string(nil), session.Seats...)
		}
		if len(recipients) == 0 {
			continue
		}
		if err := g.pub.Publish(ctx, recipients, string(ev.Kind), ev.Payload); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", ev.Kind, err))
		}
	}
	return errors.Join(errs...)
}

// Evict forwards to the publisher.
func (g *Gateway) Evict(ctx context.Context, participantID string) error {
	return g.pub.Evict(ctx, participantID)
}

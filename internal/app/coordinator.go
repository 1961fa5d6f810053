package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zhangyumengsarah-gif/word/internal/domain"
	"github.com/zhangyumengsarah-gif/word/internal/ports"
)

// Coordinator serializes every inbound event against the single session. A transition
// and the notifications it produces are applied under one lock, so both seats observe
// events in the order the session changed.
type Coordinator struct {
	mu      sync.Mutex
	svc     *Service
	session *domain.Session
	gateway *Gateway
}

// NewCoordinator owns session and publishes through pub. A nil session starts empty.
func NewCoordinator(svc *Service, session *domain.Session, pub ports.Publisher) *Coordinator {
	if session == nil {
		session = domain.NewSession()
	}
	return &Coordinator{svc: svc, session: session, gateway: NewGateway(pub)}
}

// Join admits participantID, telling it its seat, or that the session is full.
func (c *Coordinator) Join(ctx context.Context, participantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	events, err := c.svc.Join(c.session, participantID)
	if err != nil {
		return c.reject(ctx, participantID, err)
	}
	return c.gateway.Dispatch(ctx, c.session, events)
}

// Leave handles a lost connection. If it held a seat the session resets and the
// other participant is notified and evicted.
func (c *Coordinator) Leave(ctx context.Context, participantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	events := c.svc.Disconnect(c.session, participantID)
	if len(events) == 0 {
		return nil
	}

	errs := []error{c.gateway.Dispatch(ctx, c.session, events)}
	for _, ev := range events {
		for _, id := range ev.Recipients {
			errs = append(errs, c.gateway.Evict(ctx, id))
		}
	}
	return errors.Join(errs...)
}

// Submit decodes and applies one inbound command.
func (c *Coordinator) Submit(ctx context.Context, participantID string, kind CommandKind, raw []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.session.SeatOf(participantID); !ok {
		return ErrInvalidSeat
	}
	cmd, err := DecodeCommand(kind, raw)
	if err != nil {
		return c.reject(ctx, participantID, err)
	}
	return c.apply(ctx, participantID, cmd)
}

// Reject answers a frame the transport could not decode. Only seated participants
// are told.
func (c *Coordinator) Reject(ctx context.Context, participantID string, cause error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.session.SeatOf(participantID); !ok {
		return ErrInvalidSeat
	}
	return c.reject(ctx, participantID, cause)
}

// Tick resolves a claim question whose deadline has passed.
func (c *Coordinator) Tick(ctx context.Context, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	events := c.svc.ExpireClaim(c.session, now)
	if len(events) == 0 {
		return nil
	}
	return c.gateway.Dispatch(ctx, c.session, events)
}

// Snapshot returns a point-in-time view of the session.
func (c *Coordinator) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Snapshot()
}

// Seated reports whether participantID currently holds a seat.
func (c *Coordinator) Seated(participantID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.session.SeatOf(participantID)
	return ok
}

func (c *Coordinator) apply(ctx context.Context, participantID string, cmd Command) error {
	var (
		events []Event
		err    error
	)
	switch cmd.Kind {
	case CommandDrawTile:
		events, err = c.svc.Draw(c.session, participantID)
	case CommandDiscardTile:
		events, err = c.svc.Discard(c.session, participantID, cmd.Tile)
	case CommandPengResponse:
		events, err = c.svc.RespondClaim(c.session, participantID, cmd.Claim)
	case CommandWinDeclaration:
		events, err = c.svc.DeclareWin(c.session, participantID, cmd.Hand)
	default:
		err = ErrUnknownCommand
	}
	if err != nil {
		return c.reject(ctx, participantID, err)
	}
	return c.gateway.Dispatch(ctx, c.session, events)
}

// reject tells the sender why its event was refused. Events from participants
// without a seat are dropped silently since there is no seat to answer.
func (c *Coordinator) reject(ctx context.Context, participantID string, cause error) error {
	if errors.Is(cause, ErrInvalidSeat) {
		return cause
	}
	msg := cause.Error()
	if errors.Is(cause, domain.ErrSessionFull) {
		msg = MessageSessionFull
	}
	notice := []Event{unicast(EventStatus, msg, participantID)}
	return errors.Join(cause, c.gateway.Dispatch(ctx, c.session, notice))
}

package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/zhangyumengsarah-gif/word/internal/app"
)

var (
	errUnknownEvent = errors.New("no op code for event")
	errUnbound      = errors.New("publisher has no dispatcher")
)

// matchPublisher delivers app events through the dispatcher of the current match callback.
// Nakama hands a dispatcher to every callback, so the handler rebinds before driving the
// coordinator.
type matchPublisher struct {
	presences  map[string]runtime.Presence // user id -> presence
	dispatcher runtime.MatchDispatcher
	logger     runtime.Logger
}

func newMatchPublisher() *matchPublisher {
	return &matchPublisher{presences: make(map[string]runtime.Presence)}
}

func (p *matchPublisher) bind(dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	p.dispatcher = dispatcher
	p.logger = logger
}

func (p *matchPublisher) track(presence runtime.Presence) {
	p.presences[presence.GetUserId()] = presence
}

func (p *matchPublisher) forget(userID string) {
	delete(p.presences, userID)
}

// owns reports whether presence is the one tracked for its user.
func (p *matchPublisher) owns(presence runtime.Presence) bool {
	tracked, ok := p.presences[presence.GetUserId()]
	return ok && tracked.GetSessionId() == presence.GetSessionId()
}

// kick removes exactly this presence, leaving any tracked presence of the same user alone.
func (p *matchPublisher) kick(presence runtime.Presence) error {
	if p.dispatcher == nil {
		return errUnbound
	}
	return p.dispatcher.MatchKick([]runtime.Presence{presence})
}

// Publish implements ports.Publisher.
func (p *matchPublisher) Publish(ctx context.Context, recipients []string, event string, payload any) error {
	if p.dispatcher == nil {
		return errUnbound
	}
	opCode, ok := eventOpCodes[app.EventKind(event)]
	if !ok {
		return fmt.Errorf("%w: %s", errUnknownEvent, event)
	}

	var data []byte
	if payload != nil {
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return fmt.Errorf("failed to marshal %s: %w", event, err)
		}
	}

	targets := make([]runtime.Presence, 0, len(recipients))
	for _, uid := range recipients {
		if presence, ok := p.presences[uid]; ok {
			targets = append(targets, presence)
		}
	}
	// A nil presence list would reach everyone in the match.
	if len(targets) == 0 {
		if p.logger != nil {
			p.logger.Debug("Publish: no connected recipients for %s", event)
		}
		return nil
	}

	return p.dispatcher.BroadcastMessage(opCode, data, targets, nil, true)
}

// Evict implements ports.Publisher by kicking the participant's presence from the match.
func (p *matchPublisher) Evict(ctx context.Context, participantID string) error {
	if p.dispatcher == nil {
		return errUnbound
	}
	presence, ok := p.presences[participantID]
	if !ok {
		return nil
	}
	return p.dispatcher.MatchKick([]runtime.Presence{presence})
}

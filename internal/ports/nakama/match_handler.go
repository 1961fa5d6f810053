package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/zhangyumengsarah-gif/word/internal/app"
	"github.com/zhangyumengsarah-gif/word/internal/config"
	"github.com/zhangyumengsarah-gif/word/internal/domain"
)

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	Tick        int64              `json:"tick"`
	Coordinator *app.Coordinator   `json:"-"`
	Config      *config.GameConfig `json:"-"`
	label       string             // last label pushed to Nakama
	publisher   *matchPublisher
	now         func() time.Time
}

// newMatchState wires a coordinator over a fresh session and a match publisher.
func newMatchState(cfg *config.GameConfig) *MatchState {
	pub := newMatchPublisher()
	return &MatchState{
		Coordinator: app.NewCoordinator(app.NewService(cfg, nil), domain.NewSession(), pub),
		Config:      cfg,
		publisher:   pub,
		now:         time.Now,
	}
}

// bind points the publisher at the dispatcher of the running callback.
func (ms *MatchState) bind(dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	ms.publisher.bind(dispatcher, logger)
}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &matchHandler{}, nil
}

type matchHandler struct{}

// loadGameConfig reads the config file and overlays runtime env. Falls back to defaults.
func loadGameConfig(ctx context.Context, logger runtime.Logger) *config.GameConfig {
	cfg, err := config.Load(GameConfigPath)
	if err != nil {
		logger.Warn("MatchInit: Could not load game config: %v", err)
		cfg = config.Default()
	}

	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	overlay := *cfg
	if err := overlay.ApplyEnv(env); err != nil {
		logger.Warn("MatchInit: Ignoring runtime env overrides: %v", err)
		return cfg
	}
	return &overlay
}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	state := newMatchState(loadGameConfig(ctx, logger))

	label, err := matchLabel(state.Coordinator.Snapshot())
	if err != nil {
		logger.Error("MatchInit: %v", err)
		return nil, 0, ""
	}
	state.label = label

	logger.Info("MatchInit: alphabet=%d copies=%d hand=%d strict=%v claimTimeout=%ds",
		len(state.Config.Alphabet), state.Config.CopiesPerSymbol, state.Config.HandSize,
		state.Config.StrictTurns, state.Config.ClaimTimeoutSeconds)
	return state, state.Config.TickRate, label
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	if matchState.Coordinator.Seated(presence.GetUserId()) {
		return state, false, domain.ErrAlreadySeated.Error()
	}
	if matchState.Coordinator.Snapshot().OpenSeats <= 0 {
		return state, false, app.MessageSessionFull
	}
	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}
	matchState.bind(dispatcher, logger)

	for _, p := range presences {
		// A second presence for a seated user must not displace the seated one.
		if matchState.Coordinator.Seated(p.GetUserId()) {
			logger.Warn("MatchJoin: User %s is already seated, kicking session %s.", p.GetUserId(), p.GetSessionId())
			if err := matchState.publisher.kick(p); err != nil {
				logger.Error("MatchJoin: Failed to kick %s: %v", p.GetUserId(), err)
			}
			continue
		}
		matchState.publisher.track(p)

		// Two attempts can pass MatchJoinAttempt for the last seat; the loser is told and kicked.
		if err := matchState.Coordinator.Join(ctx, p.GetUserId()); err != nil {
			if errors.Is(err, domain.ErrSessionFull) || errors.Is(err, domain.ErrAlreadySeated) {
				logger.Warn("MatchJoin: User %s joined but no seat was available.", p.GetUserId())
				if err := matchState.publisher.Evict(ctx, p.GetUserId()); err != nil {
					logger.Error("MatchJoin: Failed to kick %s: %v", p.GetUserId(), err)
				}
				continue
			}
			logger.Error("MatchJoin: Join for %s failed: %v", p.GetUserId(), err)
			continue
		}
		logger.Debug("MatchJoin: User %s seated.", p.GetUserId())
	}

	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

// MatchLeave is called when one or more players leave the match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}
	matchState.bind(dispatcher, logger)

	for _, p := range presences {
		if !matchState.publisher.owns(p) {
			logger.Debug("MatchLeave: Ignoring untracked session %s of user %s.", p.GetSessionId(), p.GetUserId())
			continue
		}
		wasSeated := matchState.Coordinator.Seated(p.GetUserId())
		if err := matchState.Coordinator.Leave(ctx, p.GetUserId()); err != nil {
			logger.Error("MatchLeave: Leave for %s failed: %v", p.GetUserId(), err)
		}
		matchState.publisher.forget(p.GetUserId())
		if wasSeated {
			logger.Info("MatchLeave: User %s left, session reset.", p.GetUserId())
		}
	}

	if len(matchState.publisher.presences) == 0 {
		logger.Info("MatchLeave: Terminating empty match.")
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}
	matchState.bind(dispatcher, logger)
	matchState.Tick = tick

	for _, msg := range messages {
		kind, ok := commandOpCodes[msg.GetOpCode()]
		if !ok {
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
			continue
		}
		err := matchState.Coordinator.Submit(ctx, msg.GetUserId(), kind, msg.GetData())
		switch {
		case err == nil:
		case errors.Is(err, app.ErrInvalidSeat):
			logger.Debug("MatchLoop: Dropping %s from unseated user %s", kind, msg.GetUserId())
		default:
			logger.Debug("MatchLoop: Rejected %s from %s: %v", kind, msg.GetUserId(), err)
		}
	}

	if err := matchState.Coordinator.Tick(ctx, matchState.now()); err != nil {
		logger.Error("MatchLoop: Claim expiry failed: %v", err)
	}

	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

// updateLabel pushes the label when the session's searchable state changed.
func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := matchLabel(state.Coordinator.Snapshot())
	if err != nil {
		logger.Error("UpdateLabel: %v", err)
		return
	}
	if label == state.label {
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
		return
	}
	state.label = label
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminating with %d grace seconds", graceSeconds)
	return state
}

// MatchSignal answers any signal with the session snapshot as JSON.
func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, ""
	}
	snapshot, err := json.Marshal(matchState.Coordinator.Snapshot())
	if err != nil {
		logger.Error("MatchSignal: Failed to marshal snapshot: %v", err)
		return state, ""
	}
	return state, string(snapshot)
}

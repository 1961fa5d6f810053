package app

import (
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/zhangyumengsarah-gif/word/internal/config"
	"github.com/zhangyumengsarah-gif/word/internal/domain"
)

var (
	ErrInvalidSeat  = errors.New("participant has no seat")
	ErrNotPlaying   = errors.New("game is not in progress")
	ErrClaimPending = errors.New("waiting on a claim decision")
	ErrNoClaim      = errors.New("no discard is awaiting a claim")
	ErrNotAskedSeat = errors.New("claim was offered to the other seat")
	ErrNotYourTurn  = errors.New("not your turn")
	ErrGameFinished = errors.New("game is finished")
)

// Service holds the turn/claim rules. Every method either mutates the session and
// returns the resulting events, or returns an error and leaves the session untouched.
type Service struct {
	cfg *config.GameConfig
	rng *rand.Rand
	now func() time.Time
}

// NewService constructs a Service with cfg and rng, falling back to defaults when nil.
func NewService(cfg *config.GameConfig, rng *rand.Rand) *Service {
	if cfg == nil {
		cfg = config.Default()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{cfg: cfg, rng: rng, now: time.Now}
}

// Join admits a participant. The second admission deals the opening hands.
func (s *Service) Join(session *domain.Session, participantID string) ([]Event, error) {
	seat, err := session.Admit(participantID)
	if err != nil {
		return nil, err
	}

	events := []Event{unicast(EventPlayerID, seat, participantID)}
	if !session.Full() || session.Status != domain.StatusWaiting {
		return events, nil
	}

	deal, err := s.deal(session)
	if err != nil {
		session.Remove(participantID)
		return nil, err
	}
	return append(events, deal...), nil
}

// deal shuffles a fresh deck and hands out the opening tiles. Seat 0 moves first.
func (s *Service) deal(session *domain.Session) ([]Event, error) {
	deck, err := domain.NewDeck(domain.TilesFromStrings(s.cfg.Alphabet), s.cfg.CopiesPerSymbol, s.rng)
	if err != nil {
		return nil, err
	}

	hands := make([][]domain.Tile, len(session.Seats))
	for i := range session.Seats {
		if hands[i], err = deck.Deal(s.cfg.HandSize); err != nil {
			return nil, err
		}
	}

	session.Deck = deck
	session.Status = domain.StatusPlaying
	session.CurrentTurnSeat = 0

	events := make([]Event, 0, len(session.Seats))
	for i, id := range session.Seats {
		events = append(events, unicast(EventGameStart, GameStartPayload{
			Hand:     hands[i],
			IsMyTurn: i == session.CurrentTurnSeat,
		}, id))
	}
	return events, nil
}

// Draw pops the top tile for the requesting seat. An empty deck ends the round in a draw.
func (s *Service) Draw(session *domain.Session, participantID string) ([]Event, error) {
	if _, err := s.actingSeat(session, participantID); err != nil {
		return nil, err
	}

	tile, ok := session.Deck.Draw()
	if !ok {
		s.finish(session, domain.NoSeat)
		return []Event{broadcast(EventGameOver, MessageDeckExhausted)}, nil
	}
	return []Event{unicast(EventReceiveTile, tile, participantID)}, nil
}

// Discard records tile as pending and offers it to the other seat.
func (s *Service) Discard(session *domain.Session, participantID string, tile domain.Tile) ([]Event, error) {
	seat, err := s.actingSeat(session, participantID)
	if err != nil {
		return nil, err
	}

	asked := session.OtherSeat(seat)
	pending := tile
	session.PendingDiscard = &pending
	session.AskedSeat = asked
	session.Status = domain.StatusClaimPending
	if s.cfg.ClaimTimeoutSeconds > 0 {
		session.ClaimDeadline = s.now().Add(time.Duration(s.cfg.ClaimTimeoutSeconds) * time.Second)
	}

	return []Event{
		broadcast(EventUpdateDiscard, tile),
		unicast(EventAskPeng, tile, session.Participant(asked)),
	}, nil
}

// RespondClaim resolves the pending discard with the asked seat's decision.
func (s *Service) RespondClaim(session *domain.Session, participantID string, claim bool) ([]Event, error) {
	seat, ok := session.SeatOf(participantID)
	if !ok {
		return nil, ErrInvalidSeat
	}
	switch session.Status {
	case domain.StatusClaimPending:
	case domain.StatusFinished:
		return nil, ErrGameFinished
	default:
		return nil, ErrNoClaim
	}
	if seat != session.AskedSeat {
		return nil, ErrNotAskedSeat
	}
	return s.resolveClaim(session, claim), nil
}

// ExpireClaim declines a claim question whose deadline has passed.
func (s *Service) ExpireClaim(session *domain.Session, now time.Time) []Event {
	if session.Status != domain.StatusClaimPending || session.ClaimDeadline.IsZero() {
		return nil
	}
	if now.Before(session.ClaimDeadline) {
		return nil
	}
	return s.resolveClaim(session, false)
}

func (s *Service) resolveClaim(session *domain.Session, claim bool) []Event {
	seat := session.AskedSeat
	id := session.Participant(seat)
	tile := *session.PendingDiscard

	session.PendingDiscard = nil
	session.AskedSeat = domain.NoSeat
	session.ClaimDeadline = time.Time{}
	session.Status = domain.StatusPlaying
	session.CurrentTurnSeat = seat

	if claim {
		return []Event{unicast(EventConfirmPeng, tile, id)}
	}
	return []Event{unicast(EventYourTurnToDraw, nil, id)}
}

// DeclareWin relays the winner's hand to both seats and ends the game. Any seated
// participant may declare in any state unless StrictWin limits it to live play.
func (s *Service) DeclareWin(session *domain.Session, participantID string, hand json.RawMessage) ([]Event, error) {
	seat, ok := session.SeatOf(participantID)
	if !ok {
		return nil, ErrInvalidSeat
	}
	if s.cfg.StrictWin {
		switch session.Status {
		case domain.StatusPlaying, domain.StatusClaimPending:
		case domain.StatusFinished:
			return nil, ErrGameFinished
		default:
			return nil, ErrNotPlaying
		}
	}
	if len(hand) == 0 {
		hand = json.RawMessage("null")
	}

	s.finish(session, seat)
	return []Event{broadcast(EventAnnounceWinner, AnnounceWinnerPayload{Winner: seat, Hand: hand})}, nil
}

// Disconnect vacates the participant's seat and resets the session. The remaining seat,
// if any, is told once. Unseated participants leave without touching the session.
func (s *Service) Disconnect(session *domain.Session, participantID string) []Event {
	if !session.Remove(participantID) {
		return nil
	}
	remaining := append([]string(nil), session.Seats...)
	session.Reset()

	if len(remaining) == 0 {
		return nil
	}
	return []Event{{Kind: EventPlayerDisconnected, Recipients: remaining}}
}

// actingSeat checks that participantID may draw or discard right now.
func (s *Service) actingSeat(session *domain.Session, participantID string) (int, error) {
	seat, ok := session.SeatOf(participantID)
	if !ok {
		return domain.NoSeat, ErrInvalidSeat
	}
	switch session.Status {
	case domain.StatusPlaying:
	case domain.StatusClaimPending:
		return seat, ErrClaimPending
	case domain.StatusFinished:
		return seat, ErrGameFinished
	default:
		return seat, ErrNotPlaying
	}
	if s.cfg.StrictTurns && seat != session.CurrentTurnSeat {
		return seat, ErrNotYourTurn
	}
	return seat, nil
}

func (s *Service) finish(session *domain.Session, winner int) {
	session.Status = domain.StatusFinished
	session.Winner = winner
	session.CurrentTurnSeat = domain.NoSeat
	session.PendingDiscard = nil
	session.AskedSeat = domain.NoSeat
	session.ClaimDeadline = time.Time{}
}

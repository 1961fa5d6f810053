package domain

import (
	"errors"
	"time"
)

// Status represents the lifecycle stage of the session.
type Status string

const (
	// StatusWaiting indicates the session is waiting for two participants.
	StatusWaiting Status = "waiting"
	// StatusPlaying indicates tiles are being drawn and discarded.
	StatusPlaying Status = "playing"
	// StatusClaimPending indicates a discard is waiting on the other seat's claim decision.
	StatusClaimPending Status = "claim_pending"
	// StatusFinished indicates a win was declared or the deck ran out.
	StatusFinished Status = "finished"
)

// MaxSeats is the number of participants a session admits.
const MaxSeats = 2

// NoSeat marks an undefined seat reference.
const NoSeat = -1

// Tile is an opaque symbol. Two tiles are the same tile if their symbols are equal.
type Tile string

// TilesFromStrings converts configured symbols into tiles.
func TilesFromStrings(symbols []string) []Tile {
	out := make([]Tile, len(symbols))
	for i, s := range symbols {
		out[i] = Tile(s)
	}
	return out
}

var (
	ErrSessionFull   = errors.New("session is full")
	ErrAlreadySeated = errors.New("participant already holds a seat")
)

// Session captures the authoritative state of the single game in flight.
type Session struct {
	Seats           []string // participant ids; index is the seat
	Status          Status
	CurrentTurnSeat int   // NoSeat outside playing/claim_pending
	PendingDiscard  *Tile // non-nil only while claim_pending
	AskedSeat       int   // seat asked to claim PendingDiscard
	ClaimDeadline   time.Time
	Winner          int
	Deck            *Deck
}

// NewSession returns an empty session in the waiting state.
func NewSession() *Session {
	s := &Session{}
	s.Reset()
	return s
}

// Admit seats a participant and returns its 0-based seat index.
func (s *Session) Admit(participantID string) (int, error) {
	if _, ok := s.SeatOf(participantID); ok {
		return NoSeat, ErrAlreadySeated
	}
	if len(s.Seats) >= MaxSeats {
		return NoSeat, ErrSessionFull
	}
	s.Seats = append(s.Seats, participantID)
	return len(s.Seats) - 1, nil
}

// Full reports whether both seats are taken.
func (s *Session) Full() bool {
	return len(s.Seats) == MaxSeats
}

// OtherSeat returns the complementary seat. Only meaningful with two seats present.
func (s *Session) OtherSeat(seat int) int {
	return 1 - seat
}

// SeatOf looks up the seat held by participantID.
func (s *Session) SeatOf(participantID string) (int, bool) {
	for i, id := range s.Seats {
		if id == participantID {
			return i, true
		}
	}
	return NoSeat, false
}

// Participant returns the id seated at seat, or "" if the seat is empty.
func (s *Session) Participant(seat int) string {
	if seat < 0 || seat >= len(s.Seats) {
		return ""
	}
	return s.Seats[seat]
}

// Remove vacates the seat held by participantID. Unknown ids are a no-op.
func (s *Session) Remove(participantID string) bool {
	seat, ok := s.SeatOf(participantID)
	if !ok {
		return false
	}
	s.Seats = append(s.Seats[:seat], s.Seats[seat+1:]...)
	return true
}

// Reset clears seats, deck, turn and pending discard and returns to waiting.
func (s *Session) Reset() {
	s.Seats = nil
	s.Status = StatusWaiting
	s.CurrentTurnSeat = NoSeat
	s.PendingDiscard = nil
	s.AskedSeat = NoSeat
	s.ClaimDeadline = time.Time{}
	s.Winner = NoSeat
	s.Deck = nil
}

// InPlay reports whether turn state is defined.
func (s *Session) InPlay() bool {
	return s.Status == StatusPlaying || s.Status == StatusClaimPending
}

// Snapshot is a read-only view of the session for labels and diagnostics.
type Snapshot struct {
	Status          Status `json:"status"`
	SeatsTaken      int    `json:"seats_taken"`
	OpenSeats       int    `json:"open_seats"`
	DeckRemaining   int    `json:"deck_remaining"`
	CurrentTurnSeat int    `json:"current_turn_seat"`
}

// Snapshot summarizes the session without exposing participant ids or tiles.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Status:          s.Status,
		SeatsTaken:      len(s.Seats),
		OpenSeats:       MaxSeats - len(s.Seats),
		DeckRemaining:   s.Deck.Remaining(),
		CurrentTurnSeat: s.CurrentTurnSeat,
	}
}

package app

import (
	"encoding/json"

	"github.com/zhangyumengsarah-gif/word/internal/domain"
)

// EventKind identifies an outbound notification. The value is the wire event name.
type EventKind string

const (
	EventPlayerID           EventKind = "playerID"
	EventStatus             EventKind = "status"
	EventGameStart          EventKind = "gameStart"
	EventReceiveTile        EventKind = "receiveTile"
	EventGameOver           EventKind = "gameOver"
	EventUpdateDiscard      EventKind = "updateDiscard"
	EventAskPeng            EventKind = "askPeng"
	EventConfirmPeng        EventKind = "confirmPeng"
	EventYourTurnToDraw     EventKind = "yourTurnToDraw"
	EventAnnounceWinner     EventKind = "announceWinner"
	EventPlayerDisconnected EventKind = "playerDisconnected"
)

// Event is an outbound notification with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // participant ids; empty means every seated participant
}

// GameStartPayload is the opening deal sent privately to each seat.
type GameStartPayload struct {
	Hand     []domain.Tile `json:"hand"`
	IsMyTurn bool          `json:"isMyTurn"`
}

// AnnounceWinnerPayload relays a declared win, hand untouched.
type AnnounceWinnerPayload struct {
	Winner int             `json:"winner"`
	Hand   json.RawMessage `json:"hand"`
}

const (
	MessageSessionFull   = "session is full"
	MessageDeckExhausted = "deck exhausted, the round is a draw"
)

func unicast(kind EventKind, payload any, participantID string) Event {
	return Event{Kind: kind, Payload: payload, Recipients: []string{participantID}}
}

func broadcast(kind EventKind, payload any) Event {
	return Event{Kind: kind, Payload: payload}
}

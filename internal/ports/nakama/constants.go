package nakama

import "github.com/zhangyumengsarah-gif/word/internal/app"

const (
	// RpcFindSession is the Nakama RPC id clients call to locate (or create) the session match.
	RpcFindSession = "find_session"

	// MatchNameLetterPeng is the authoritative match handler name registered with Nakama.
	MatchNameLetterPeng = "letterpeng_match"

	// GameName is advertised in the match label so queries can filter on it.
	GameName = "letterpeng"

	// GameConfigPath is read by MatchInit, relative to the Nakama data directory.
	GameConfigPath = "data/game_config.json"
)

// Match label keys.
const (
	MatchLabelKeyOpenSeats = "open"
	MatchLabelKeyGame      = "game"
	MatchLabelKeyStatus    = "status"
)

// Op codes for client messages and server events. Payloads are JSON.
const (
	// Client -> Server
	OpDrawTile       int64 = 1
	OpDiscardTile    int64 = 2
	OpPengResponse   int64 = 3
	OpWinDeclaration int64 = 4

	// Server -> Client events
	OpPlayerID           int64 = 201 // send privately
	OpStatus             int64 = 202 // send privately
	OpGameStart          int64 = 203 // send privately
	OpReceiveTile        int64 = 204 // send privately
	OpGameOver           int64 = 205
	OpUpdateDiscard      int64 = 206
	OpAskPeng            int64 = 207 // send privately
	OpConfirmPeng        int64 = 208 // send privately
	OpYourTurnToDraw     int64 = 209 // send privately
	OpAnnounceWinner     int64 = 210
	OpPlayerDisconnected int64 = 211
)

var commandOpCodes = map[int64]app.CommandKind{
	OpDrawTile:       app.CommandDrawTile,
	OpDiscardTile:    app.CommandDiscardTile,
	OpPengResponse:   app.CommandPengResponse,
	OpWinDeclaration: app.CommandWinDeclaration,
}

var eventOpCodes = map[app.EventKind]int64{
	app.EventPlayerID:           OpPlayerID,
	app.EventStatus:             OpStatus,
	app.EventGameStart:          OpGameStart,
	app.EventReceiveTile:        OpReceiveTile,
	app.EventGameOver:           OpGameOver,
	app.EventUpdateDiscard:      OpUpdateDiscard,
	app.EventAskPeng:            OpAskPeng,
	app.EventConfirmPeng:        OpConfirmPeng,
	app.EventYourTurnToDraw:     OpYourTurnToDraw,
	app.EventAnnounceWinner:     OpAnnounceWinner,
	app.EventPlayerDisconnected: OpPlayerDisconnected,
}

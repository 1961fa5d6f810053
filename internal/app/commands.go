package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/zhangyumengsarah-gif/word/internal/domain"
)

// CommandKind identifies an inbound request. The value is the wire event name.
type CommandKind string

const (
	CommandDrawTile       CommandKind = "drawTile"
	CommandDiscardTile    CommandKind = "discardTile"
	CommandPengResponse   CommandKind = "pengResponse"
	CommandWinDeclaration CommandKind = "winDeclaration"
)

var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrMalformedFrame   = errors.New("malformed message")
	ErrUnknownCommand   = errors.New("unknown command")
)

// Command is a decoded inbound request.
type Command struct {
	Kind  CommandKind
	Tile  domain.Tile     // discardTile
	Claim bool            // pengResponse
	Hand  json.RawMessage // winDeclaration, relayed as-is
}

// DecodeCommand validates the payload shape for kind.
func DecodeCommand(kind CommandKind, raw []byte) (Command, error) {
	cmd := Command{Kind: kind}
	switch kind {
	case CommandDrawTile:
		return cmd, nil

	case CommandDiscardTile:
		var tile string
		if err := json.Unmarshal(raw, &tile); err != nil {
			return cmd, fmt.Errorf("%w: discardTile expects a tile string", ErrMalformedPayload)
		}
		if strings.TrimSpace(tile) == "" {
			return cmd, fmt.Errorf("%w: discardTile expects a non-empty tile", ErrMalformedPayload)
		}
		cmd.Tile = domain.Tile(tile)
		return cmd, nil

	case CommandPengResponse:
		var claim *bool
		if err := json.Unmarshal(raw, &claim); err != nil || claim == nil {
			return cmd, fmt.Errorf("%w: pengResponse expects a boolean", ErrMalformedPayload)
		}
		cmd.Claim = *claim
		return cmd, nil

	case CommandWinDeclaration:
		if len(raw) == 0 {
			cmd.Hand = json.RawMessage("null")
			return cmd, nil
		}
		if !json.Valid(raw) {
			return cmd, fmt.Errorf("%w: winDeclaration expects JSON", ErrMalformedPayload)
		}
		cmd.Hand = append(json.RawMessage(nil), raw...)
		return cmd, nil
	}
	return cmd, fmt.Errorf("%w: %q", ErrUnknownCommand, kind)
}

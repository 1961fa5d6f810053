package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvPrefix namespaces runtime env keys, e.g. letterpeng_hand_size.
const EnvPrefix = "letterpeng_"

// GameConfig holds the tunable rules of a session.
type GameConfig struct {
	Alphabet        []string `json:"alphabet"`
	CopiesPerSymbol int      `json:"copies_per_symbol"`
	HandSize        int      `json:"hand_size"`
	// ClaimTimeoutSeconds bounds how long a claim question stays open. 0 waits forever.
	ClaimTimeoutSeconds int `json:"claim_timeout_seconds"`
	// StrictTurns gates draw and discard on the seat holding the turn.
	StrictTurns bool `json:"strict_turns"`
	// StrictWin accepts win declarations only while a game is in play.
	StrictWin bool `json:"strict_win"`
	// TickRate is the Nakama match tick rate (1..60).
	TickRate int `json:"tick_rate"`
}

// Default returns the classic rules: A-Z, three copies each, 13-tile hands.
func Default() *GameConfig {
	alphabet := make([]string, 0, 26)
	for r := 'A'; r <= 'Z'; r++ {
		alphabet = append(alphabet, string(r))
	}
	return &GameConfig{
		Alphabet:        alphabet,
		CopiesPerSymbol: 3,
		HandSize:        13,
		TickRate:        5,
	}
}

// Load reads a JSON config from path on top of the defaults.
func Load(path string) (*GameConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read game config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays prefixed keys from env. Unknown keys are ignored; bad values are errors.
func (c *GameConfig) ApplyEnv(env map[string]string) error {
	for key, val := range env {
		name, ok := strings.CutPrefix(strings.ToLower(key), EnvPrefix)
		if !ok {
			continue
		}
		var err error
		switch name {
		case "alphabet":
			c.Alphabet = splitAlphabet(val)
		case "copies_per_symbol":
			c.CopiesPerSymbol, err = strconv.Atoi(val)
		case "hand_size":
			c.HandSize, err = strconv.Atoi(val)
		case "claim_timeout_seconds":
			c.ClaimTimeoutSeconds, err = strconv.Atoi(val)
		case "strict_turns":
			c.StrictTurns, err = strconv.ParseBool(val)
		case "strict_win":
			c.StrictWin, err = strconv.ParseBool(val)
		case "tick_rate":
			c.TickRate, err = strconv.Atoi(val)
		}
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	return c.Validate()
}

// Validate checks the deck can always cover the opening deal.
func (c *GameConfig) Validate() error {
	if len(c.Alphabet) == 0 {
		return errors.New("alphabet must not be empty")
	}
	if c.CopiesPerSymbol < 1 {
		return errors.New("copies_per_symbol must be at least 1")
	}
	if c.HandSize < 1 {
		return errors.New("hand_size must be at least 1")
	}
	if 2*c.HandSize > len(c.Alphabet)*c.CopiesPerSymbol {
		return fmt.Errorf("deck of %d tiles cannot deal two hands of %d", len(c.Alphabet)*c.CopiesPerSymbol, c.HandSize)
	}
	if c.ClaimTimeoutSeconds < 0 {
		return errors.New("claim_timeout_seconds must not be negative")
	}
	if c.TickRate < 1 || c.TickRate > 60 {
		return errors.New("tick_rate must be within 1..60")
	}
	return nil
}

// splitAlphabet accepts "A,B,C" or a bare run of single-character symbols like "ABC".
func splitAlphabet(val string) []string {
	if strings.Contains(val, ",") {
		var out []string
		for _, s := range strings.Split(val, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	out := make([]string, 0, len(val))
	for _, r := range strings.TrimSpace(val) {
		out = append(out, string(r))
	}
	return out
}

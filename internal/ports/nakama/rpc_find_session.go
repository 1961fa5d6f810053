package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/heroiclabs/nakama-common/runtime"
)

// FindSessionResponse is returned to clients looking for the session match.
type FindSessionResponse struct {
	MatchID string `json:"match_id"`
	Created bool   `json:"created"`
}

// findSessionMu keeps concurrent callers from each creating a match before the
// first one shows up in MatchList.
var findSessionMu sync.Mutex

// RpcFindSessionHandler returns the id of the running session match, creating it when
// none exists. There is at most one session per node.
//
// Payload: unused.
// Returns: JSON FindSessionResponse.
func RpcFindSessionHandler(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userId, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	findSessionMu.Lock()
	defer findSessionMu.Unlock()

	query := fmt.Sprintf("+label.%s:%s", MatchLabelKeyGame, GameName)
	matches, err := nk.MatchList(ctx, 1, true, "", nil, nil, query)
	if err != nil {
		logger.Error("RpcFindSession [User:%s]: Failed to list matches: %v", userId, err)
		return "", err
	}

	resp := FindSessionResponse{}
	if len(matches) > 0 {
		resp.MatchID = matches[0].MatchId
		logger.Debug("RpcFindSession [User:%s]: Found existing match %s", userId, resp.MatchID)
	} else {
		resp.MatchID, err = nk.MatchCreate(ctx, MatchNameLetterPeng, map[string]interface{}{})
		if err != nil {
			logger.Error("RpcFindSession [User:%s]: Failed to create match: %v", userId, err)
			return "", err
		}
		resp.Created = true
		logger.Info("RpcFindSession [User:%s]: Created new match %s", userId, resp.MatchID)
	}

	b, err := json.Marshal(resp)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

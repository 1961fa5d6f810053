package ws

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/form3tech-oss/jwt-go"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// TokenAuth resolves participant ids from HS256 tokens carrying a "uid" claim.
type TokenAuth struct {
	secret []byte
}

// NewTokenAuth returns nil when secret is empty, which leaves /ws anonymous.
func NewTokenAuth(secret string) *TokenAuth {
	if secret == "" {
		return nil
	}
	return &TokenAuth{secret: []byte(secret)}
}

// ParticipantID validates the request token. Browsers cannot set headers on a
// WebSocket handshake, so a "token" query parameter is accepted too.
func (a *TokenAuth) ParticipantID(r *http.Request) (string, error) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if raw == "" {
		raw = r.URL.Query().Get("token")
	}
	if raw == "" {
		return "", ErrMissingToken
	}

	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	uid, ok := claims["uid"].(string)
	if !ok || uid == "" {
		return "", fmt.Errorf("%w: token claims missing uid", ErrInvalidToken)
	}
	return uid, nil
}

// SignToken issues a token for uid with any extra claims.
func (a *TokenAuth) SignToken(uid string, claims jwt.MapClaims) (string, error) {
	all := jwt.MapClaims{"uid": uid}
	for k, v := range claims {
		all[k] = v
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, all).SignedString(a.secret)
}

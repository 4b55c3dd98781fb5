package mcpsession

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const reconnectPurpose = "session_reconnect"

// reconnectClaims is the JWT payload for a session reconnect token: just
// enough to prove which session this token was issued for and when it
// expires.
type reconnectClaims struct {
	SessionID string `json:"session_id"`
	Purpose   string `json:"purpose"`
	jwt.RegisteredClaims
}

// issueReconnectToken signs a reconnect token for sessionID, valid for ttl.
// Returns the signed token and the sha256 hash that gets persisted on the
// session row — only the hash is ever stored, never the token itself.
func issueReconnectToken(secret []byte, sessionID string, ttl time.Duration) (token, hash string, expiresAt time.Time, err error) {
	now := time.Now()
	expiresAt = now.Add(ttl)
	claims := reconnectClaims{
		SessionID: sessionID,
		Purpose:   reconnectPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("sign reconnect token: %w", err)
	}
	return signed, hashToken(signed), expiresAt, nil
}

// parseReconnectToken validates signature and purpose, returning the
// session id it was issued for. It does not check expiry against the
// stored session row's reconnect_expires_at — the caller compares the
// stored hash and expiry independently, since a token can be structurally
// valid yet already superseded by a later reconnect token for the same
// session.
func parseReconnectToken(secret []byte, tokenStr string) (sessionID string, expired bool, err error) {
	claims := &reconnectClaims{}
	_, err = jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return claims.SessionID, true, nil
		}
		return "", false, err
	}
	if claims.Purpose != reconnectPurpose {
		return "", false, fmt.Errorf("unexpected token purpose %q", claims.Purpose)
	}
	return claims.SessionID, false, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

package chat

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// sessionClaims is the short-lived token handed to the messaging backend
// when a session starts. Subject carries the member, ID the session.
type sessionClaims struct {
	PlanID string `json:"plan_id"`
	jwt.RegisteredClaims
}

func signSessionToken(secret []byte, memberID, sessionID, planID string, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("chat: session token secret not configured")
	}
	claims := sessionClaims{
		PlanID: planID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   memberID,
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("chat: sign session token: %w", err)
	}
	return signed, nil
}

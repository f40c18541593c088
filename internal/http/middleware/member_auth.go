package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const memberClaimsKey contextKey = "memberClaims"

// MemberJWT enforces the portal-issued HMAC-signed member token. The token
// subject is the member id; an optional "group_id" claim scopes eligibility
// lookups.
func MemberJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "member auth disabled", http.StatusUnauthorized)
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			claims := MemberClaims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid || claims.Subject == "" {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), memberClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MemberClaims is the portal token payload.
type MemberClaims struct {
	GroupID string `json:"group_id,omitempty"`
	jwt.RegisteredClaims
}

// MemberFromContext returns the authenticated member and group ids.
func MemberFromContext(ctx context.Context) (memberID, groupID string, ok bool) {
	claims, ok := ctx.Value(memberClaimsKey).(MemberClaims)
	if !ok {
		return "", "", false
	}
	return claims.Subject, claims.GroupID, true
}

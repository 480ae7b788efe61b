package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

type authCtxKey int

const authKey authCtxKey = 7

// Claims bind a facilitator token to a single workshop.
type Claims struct {
	WorkshopID string `json:"wid"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

const facilitatorRole = "facilitator"

func SignToken(secret []byte, workshopID string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	now := time.Now()
	claims := Claims{
		WorkshopID: workshopID,
		Role:       facilitatorRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   workshopID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// Signer adapts SignToken to the services.TokenSigner shape.
func Signer(secret []byte) func(workshopID string, ttl time.Duration) (string, error) {
	return func(workshopID string, ttl time.Duration) (string, error) {
		return SignToken(secret, workshopID, ttl)
	}
}

func parseToken(secret []byte, tok string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tok, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if c, ok := t.Claims.(*Claims); ok && t.Valid && c.Role == facilitatorRole {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

// WithAuth attaches facilitator claims to the context when a valid bearer
// token is present. Requests without one pass through unchanged.
func WithAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if len(secret) > 0 && strings.HasPrefix(h, "Bearer ") {
				tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
				if c, err := parseToken(secret, tok); err == nil {
					ctx := context.WithValue(r.Context(), authKey, c)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// FacilitatorWorkshop returns the workshop the request's token was issued for.
func FacilitatorWorkshop(ctx context.Context) (string, bool) {
	if c, ok := ctx.Value(authKey).(*Claims); ok && c.WorkshopID != "" {
		return c.WorkshopID, true
	}
	return "", false
}

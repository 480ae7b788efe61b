package services

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// TokenSigner issues a facilitator token scoped to one workshop.
type TokenSigner func(workshopID string, ttl time.Duration) (string, error)

// AuthService exchanges the facilitator passcode for a workshop-scoped token.
type AuthService struct {
	passHash  []byte
	now       func() time.Time
	signToken TokenSigner
	tokenTTL  time.Duration
}

type AuthResult struct {
	Token      string    `json:"token"`
	WorkshopID string    `json:"workshopId"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

func NewAuthService(passcodeHash string, signer TokenSigner) *AuthService {
	return &AuthService{
		passHash:  []byte(strings.TrimSpace(passcodeHash)),
		now:       func() time.Time { return time.Now().UTC() },
		signToken: signer,
		tokenTTL:  12 * time.Hour,
	}
}

func (s *AuthService) IssueFacilitatorToken(workshopID, passcode string) (*AuthResult, error) {
	workshopID = strings.TrimSpace(workshopID)
	if workshopID == "" || strings.TrimSpace(passcode) == "" {
		return nil, NewInvalidError("workshopId/passcode required")
	}
	if len(s.passHash) == 0 {
		return nil, NewUnauthorizedError("facilitator passcode not configured")
	}
	if err := bcrypt.CompareHashAndPassword(s.passHash, []byte(passcode)); err != nil {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	if s.signToken == nil {
		return nil, NewInvalidError("token signer not configured")
	}
	token, err := s.signToken(workshopID, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, WorkshopID: workshopID, ExpiresAt: s.now().Add(s.tokenTTL)}, nil
}

func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}

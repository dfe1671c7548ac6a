package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"

	"storefront/internal/models"
)

// CheckoutClaims binds a checkout token to one attempt and its payment intent.
type CheckoutClaims struct {
	AttemptID string `json:"attempt_id"`
	IntentID  string `json:"intent_id"`
	Amount    int64  `json:"amount"`
	jwt.StandardClaims
}

// TokenIssuer signs and validates checkout tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue returns a signed token for the attempt and its expiry.
func (t *TokenIssuer) Issue(attempt *models.CheckoutAttempt) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, CheckoutClaims{
		AttemptID: attempt.ID,
		IntentID:  attempt.IntentID,
		Amount:    attempt.Amount,
		StandardClaims: jwt.StandardClaims{
			Subject:   attempt.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: expiresAt.Unix(),
		},
	})

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign checkout token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse validates a token and returns its claims.
func (t *TokenIssuer) Parse(tokenString string) (*CheckoutClaims, error) {
	claims := &CheckoutClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid checkout token: %w", err)
	}
	if !token.Valid || claims.AttemptID == "" || claims.IntentID == "" {
		return nil, errors.New("invalid checkout token")
	}
	return claims, nil
}

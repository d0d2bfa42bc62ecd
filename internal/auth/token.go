package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// tokenClaims is the JWT payload issued for a session. Expiry mirrors
// the session inactivity window at issue time.
type tokenClaims struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	UserType  string `json:"user_type"`
	jwt.RegisteredClaims
}

// signToken creates an HS256 token bound to the session.
func (s *Store) signToken(sess *Session) (string, error) {
	now := s.now()
	claims := tokenClaims{
		SessionID: sess.ID,
		UserID:    sess.UserID,
		UserType:  sess.UserType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.timeout)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// parseToken verifies signature and expiry and returns the claims.
// Only HS256 is accepted; algorithm confusion attempts fail as malformed.
func (s *Store) parseToken(tokenString string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if claims.SessionID == "" {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

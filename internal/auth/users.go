package auth

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Demo account credentials for development and exploration.
const (
	DemoEmail    = "demo@fintech.com"
	DemoPassword = "demo123"
)

// defaultUsers builds the static account set: the reserved anonymous
// record and one demo account with a bcrypt-hashed password.
func defaultUsers() (map[string]*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}

	now := time.Now().UTC()
	return map[string]*User{
		AnonymousUserID: {
			ID:            AnonymousUserID,
			Username:      "Anonymous User",
			Authenticated: false,
			UserType:      UserTypeAnonymous,
			CreatedAt:     now,
			AccountStatus: "active",
		},
		DemoEmail: {
			ID:            "demo_user",
			Username:      "Demo User",
			Email:         DemoEmail,
			PasswordHash:  hash,
			Authenticated: true,
			UserType:      UserTypeAuthenticated,
			CreatedAt:     now,
			AccountStatus: "active",
		},
	}, nil
}

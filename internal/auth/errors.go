package auth

import "errors"

// Sentinel errors for session and token operations. Callers use errors.Is()
// to distinguish failure modes and map them to transport status codes.
var (
	// ErrInvalidCredentials indicates a failed login attempt. The same
	// error covers unknown emails and wrong passwords so responses do
	// not leak which part was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionNotFound indicates the referenced session does not exist
	// or has already expired.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTokenExpired indicates a token whose signature is valid but
	// whose expiry has passed.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenMalformed indicates a token that could not be parsed or
	// verified: bad structure, wrong signature, or missing claims.
	ErrTokenMalformed = errors.New("token malformed")
)

package ports

import (
	"time"

	"github.com/clinica-salud/identity-service/internal/core/domain"
)

// PasswordHasher hashes and verifies passwords with a salted one-way function.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify reports whether password matches hash.
	Verify(hash, password string) bool
}

// TokenIssuer signs a session payload into a bearer token.
type TokenIssuer interface {
	Issue(payload domain.SessionPayload) (token string, expiresAt time.Time, err error)
}

// TokenVerifier parses a bearer token back into its payload, rejecting
// expired or tampered tokens.
type TokenVerifier interface {
	Verify(token string) (*domain.SessionPayload, error)
}

package ports

import (
	"context"

	"github.com/clinica-salud/identity-service/internal/core/domain"
)

// SessionStore keeps server-side sessions keyed by an opaque session id.
type SessionStore interface {
	Create(ctx context.Context, payload domain.SessionPayload) (sessionID string, err error)
	// Get returns (nil, nil) when the session does not exist or expired.
	Get(ctx context.Context, sessionID string) (*domain.SessionPayload, error)
	// Destroy removes the session. Destroying an absent session is not an error.
	Destroy(ctx context.Context, sessionID string) error
}

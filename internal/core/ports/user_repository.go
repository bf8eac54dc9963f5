package ports

import (
	"context"

	"github.com/clinica-salud/identity-service/internal/core/domain"
)

// UserRepository persists identity records. Implementations enforce username
// uniqueness and report a violation as domain.ErrUserExists.
type UserRepository interface {
	// FindByUsername returns domain.ErrUserNotFound when no user matches.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// FindByID returns domain.ErrUserNotFound for unknown or malformed ids.
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.UserSummary, error)
}

package repository

import (
	"context"

	authdomain "marketplace-backend/internal/auth/domain"
)

// UserRepository is the authoritative user store
type UserRepository interface {
	Create(ctx context.Context, user *authdomain.User) error
	FindByID(ctx context.Context, id uint) (*authdomain.User, error)
	FindByUsername(ctx context.Context, username string) (*authdomain.User, error)
	FindByEmail(ctx context.Context, email string) (*authdomain.User, error)
}

// UserMirror is a best-effort copy of the user table in a secondary store
type UserMirror interface {
	Create(ctx context.Context, user *authdomain.User) error
	FindByEmail(ctx context.Context, email string) (*authdomain.User, error)
}

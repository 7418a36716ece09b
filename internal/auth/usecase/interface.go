package usecase

import (
	"context"

	authdomain "marketplace-backend/internal/auth/domain"
	authdto "marketplace-backend/internal/auth/dto"
)

// AuthUsecase handles account registration and password sessions
type AuthUsecase interface {
	Register(ctx context.Context, req *authdto.RegisterRequest) (*authdomain.User, error)
	Login(ctx context.Context, req *authdto.LoginRequest) (*authdto.TokenResponse, error)
	ValidateToken(ctx context.Context, token string) (*authdomain.User, error)
}

package dto

import (
	"time"

	authdomain "marketplace-backend/internal/auth/domain"
)

type LoginRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
	Remember bool   `json:"remember" form:"remember"`
}

type RegisterRequest struct {
	Username        string `json:"username" form:"username" binding:"required,min=2,max=64"`
	Email           string `json:"email" form:"email" binding:"required,email,max=120"`
	Password        string `json:"password" form:"password" binding:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password" binding:"required,eqfield=Password"`
}

type TokenResponse struct {
	AccessToken string           `json:"access_token"`
	ExpiresAt   time.Time        `json:"expires_at"`
	User        *authdomain.User `json:"user"`
}

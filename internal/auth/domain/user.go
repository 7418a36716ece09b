package domain

import (
	"time"

	"github.com/cockroachdb/errors"
)

var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrLoginUnavailable   = errors.New("login temporarily unavailable")
	ErrInvalidToken       = errors.New("invalid token")
)

type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:64;uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"size:120;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"size:256;not null"` // Never return password hash in JSON
	CreatedAt    time.Time `json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

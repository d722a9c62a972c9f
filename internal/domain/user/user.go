package user

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
)

type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"` // never expose hash in JSON
	Name         string    `json:"name" db:"name"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

type CreateUserRequest struct {
	Name     string `json:"name" binding:"required,max=120"`
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// TokenRequest has no binding rules: missing fields fall through to the
// credential check and answer 401 like any other bad login.
type TokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// NormalizeEmail trims surrounding whitespace. Stores compare the result
// case-insensitively, so it is the only normalization an address gets.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

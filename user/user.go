package user

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultAdminUsername and DefaultAdminPassword seed the first account. A
// login with these exact credentials is flagged so the client can force a
// credential change before anything else.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	IsAdmin      bool      `json:"is_admin"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Repository interface {
	Register(ctx context.Context, username, password string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	List(ctx context.Context) ([]User, error)
	VerifyPassword(hashedPassword, password string) error
	UpdateCredentials(ctx context.Context, id uuid.UUID, newUsername, newPassword string) error
	EnsureAdmin(ctx context.Context) error
}

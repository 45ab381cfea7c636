package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameExists  = errors.New("username already exists")
	ErrInvalidUsername = errors.New("invalid username")
	ErrBlankPassword   = errors.New("password can't be blank")
)

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

func (r *repository) Register(ctx context.Context, username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrInvalidUsername
	}
	if password == "" {
		return nil, ErrBlankPassword
	}

	existing, err := r.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now().UTC(),
	}

	query := `INSERT INTO users (id, username, is_admin, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err = r.db.ExecContext(ctx, query, u.ID, u.Username, u.IsAdmin, u.PasswordHash, u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting user: %w", err)
	}

	return u, nil
}

func (r *repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	query := `SELECT id, username, is_admin, password_hash, created_at FROM users WHERE lower(username) = lower($1)`

	var u User
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&u.ID,
		&u.Username,
		&u.IsAdmin,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}

	return &u, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT id, username, is_admin, password_hash, created_at FROM users WHERE id = $1`

	var u User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID,
		&u.Username,
		&u.IsAdmin,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &u, nil
}

func (r *repository) List(ctx context.Context) ([]User, error) {
	query := `SELECT id, username, is_admin, password_hash, created_at FROM users ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.IsAdmin, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *repository) VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// UpdateCredentials sets a new password and, when newUsername is non-empty,
// renames the account. Used both for self-service changes and admin resets.
func (r *repository) UpdateCredentials(ctx context.Context, id uuid.UUID, newUsername, newPassword string) error {
	if newPassword == "" {
		return ErrBlankPassword
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	if newUsername != "" {
		query := `UPDATE users SET username = $1, password_hash = $2 WHERE id = $3`
		_, err = r.db.ExecContext(ctx, query, strings.TrimSpace(newUsername), string(hashedPassword), id)
	} else {
		query := `UPDATE users SET password_hash = $1 WHERE id = $2`
		_, err = r.db.ExecContext(ctx, query, string(hashedPassword), id)
	}
	if err != nil {
		return fmt.Errorf("updating credentials: %w", err)
	}
	return nil
}

// EnsureAdmin seeds the default admin account when no admin exists yet.
func (r *repository) EnsureAdmin(ctx context.Context) error {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM users WHERE is_admin`).Scan(&count)
	if err != nil {
		return fmt.Errorf("counting admins: %w", err)
	}
	if count > 0 {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(DefaultAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	query := `INSERT INTO users (id, username, is_admin, password_hash, created_at) VALUES ($1, $2, true, $3, $4)
              ON CONFLICT (username) DO NOTHING`
	_, err = r.db.ExecContext(ctx, query, uuid.New(), DefaultAdminUsername, string(hashedPassword), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("seeding admin: %w", err)
	}
	return nil
}

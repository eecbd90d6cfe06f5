package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Roles stored in gewaesser.users.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// User is a registered commenter.
type User struct {
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Role           string    `json:"role"`
	NotifyComments bool      `json:"notify_comments"`
	CreatedAt      time.Time `json:"created_at"`
	LastLoginAt    time.Time `json:"last_login_at"`
}

// IsAdmin reports whether the user may moderate comments.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// New users get RoleMember unless $5 grants admin; existing users keep their
// role unless $5 grants admin.
const upsertUserSQL = `
INSERT INTO gewaesser.users (email, name, role, notify_comments, created_at, last_login_at)
VALUES ($1, $2, $3, $4, NOW(), NOW())
ON CONFLICT (email) DO UPDATE SET
    name = EXCLUDED.name,
    notify_comments = EXCLUDED.notify_comments,
    role = CASE WHEN $5::boolean THEN 'admin' ELSE gewaesser.users.role END,
    last_login_at = NOW()
RETURNING email, name, role, notify_comments, created_at, last_login_at`

// UpsertUser records a login and returns the stored user.
func (s *Store) UpsertUser(ctx context.Context, email, name string, notify, grantAdmin bool) (User, error) {
	role := RoleMember
	if grantAdmin {
		role = RoleAdmin
	}
	var u User
	err := s.pool.QueryRow(ctx, upsertUserSQL, email, name, role, notify, grantAdmin).
		Scan(&u.Email, &u.Name, &u.Role, &u.NotifyComments, &u.CreatedAt, &u.LastLoginAt)
	if err != nil {
		return User{}, fmt.Errorf("upsert user: %w", err)
	}
	return u, nil
}

// GetUser returns ErrNotFound for unknown emails.
func (s *Store) GetUser(ctx context.Context, email string) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
SELECT email, name, role, notify_comments, created_at, last_login_at
FROM gewaesser.users
WHERE email = $1`, email).Scan(&u.Email, &u.Name, &u.Role, &u.NotifyComments, &u.CreatedAt, &u.LastLoginAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

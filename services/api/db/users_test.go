package db

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{"email", "name", "role", "notify_comments", "created_at", "last_login_at"}

func TestUpsertUser(t *testing.T) {
	created := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		grantAdmin bool
		wantRole   string
		storedRole string
	}{
		{name: "member keeps role", grantAdmin: false, wantRole: RoleMember, storedRole: RoleMember},
		{name: "admin email granted", grantAdmin: true, wantRole: RoleAdmin, storedRole: RoleAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)

			mock.ExpectQuery(`INSERT INTO gewaesser.users .* ON CONFLICT \(email\) DO UPDATE`).
				WithArgs("anna@example.org", "Anna", tt.wantRole, true, tt.grantAdmin).
				WillReturnRows(pgxmock.NewRows(userColumns).
					AddRow("anna@example.org", "Anna", tt.storedRole, true, created, now))

			u, err := store.UpsertUser(context.Background(), "anna@example.org", "Anna", true, tt.grantAdmin)
			require.NoError(t, err)
			assert.Equal(t, tt.storedRole, u.Role)
			assert.Equal(t, tt.grantAdmin, u.IsAdmin())
			assert.True(t, u.NotifyComments)
			assert.Equal(t, created, u.CreatedAt)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGetUser(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM gewaesser.users\s+WHERE email = \$1`).
		WithArgs("mod@example.org").
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow("mod@example.org", "Mod", RoleAdmin, false, now, now))

	u, err := store.GetUser(context.Background(), "mod@example.org")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())
}

func TestGetUser_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM gewaesser.users`).
		WithArgs("ghost@example.org").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.GetUser(context.Background(), "ghost@example.org")
	assert.ErrorIs(t, err, ErrNotFound)
}

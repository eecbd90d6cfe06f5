package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	created := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM gewaesser.pending_comments p\s+JOIN gewaesser.comments c`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "author_name", "author_email", "text", "step_id", "section_id", "detail_level", "created_at"}).
			AddRow(id, "Anna", "anna@example.org", "Gut", "step-1", "ph", "citizen", created))

	got, err := NewStore(mock).FetchPending(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, "ph", got[0].SectionID)
	assert.Equal(t, created, got[0].CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchRecipients(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM gewaesser.users\s+WHERE notify_comments`).
		WillReturnRows(pgxmock.NewRows([]string{"email", "name"}).
			AddRow("anna@example.org", "Anna").
			AddRow("mod@example.org", "Mod"))

	got, err := NewStore(mock).FetchRecipients(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "mod@example.org", got[1].Email)
}

func TestClearPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ids := []uuid.UUID{uuid.New(), uuid.New()}
	mock.ExpectExec(`DELETE FROM gewaesser.pending_comments WHERE comment_id = ANY\(\$1\)`).
		WithArgs(ids).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	n, err := NewStore(mock).ClearPending(context.Background(), ids)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearPending_NoIDs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	n, err := NewStore(mock).ClearPending(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearPending_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM gewaesser.pending_comments`).
		WillReturnError(errors.New("read-only transaction"))

	_, err = NewStore(mock).ClearPending(context.Background(), []uuid.UUID{uuid.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear pending comments")
}

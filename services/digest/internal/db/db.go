package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gewaesserguete/digitale-gewaesserguete/services/digest/internal/models"
)

// Querier is satisfied by *pgxpool.Pool and pgxmock pools.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store reads and clears the pending comment queue.
type Store struct {
	q Querier
}

func NewStore(q Querier) *Store {
	return &Store{q: q}
}

// FetchPending loads every queued comment, oldest first.
func (s *Store) FetchPending(ctx context.Context) ([]models.PendingComment, error) {
	rows, err := s.q.Query(ctx, `
SELECT c.id, c.author_name, c.author_email, c.text, c.step_id, c.section_id, c.detail_level, c.created_at
FROM gewaesser.pending_comments p
JOIN gewaesser.comments c ON c.id = p.comment_id
ORDER BY c.created_at, c.id`)
	if err != nil {
		return nil, fmt.Errorf("query pending comments: %w", err)
	}
	defer rows.Close()

	var out []models.PendingComment
	for rows.Next() {
		var c models.PendingComment
		if err := rows.Scan(&c.ID, &c.AuthorName, &c.AuthorEmail, &c.Text, &c.StepID, &c.SectionID, &c.DetailLevel, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending comment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FetchRecipients lists users who asked to be notified about comments.
func (s *Store) FetchRecipients(ctx context.Context) ([]models.Recipient, error) {
	rows, err := s.q.Query(ctx, `
SELECT email, name
FROM gewaesser.users
WHERE notify_comments
ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("query recipients: %w", err)
	}
	defer rows.Close()

	var out []models.Recipient
	for rows.Next() {
		var r models.Recipient
		if err := rows.Scan(&r.Email, &r.Name); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ClearPending removes exactly the given comments from the queue.
func (s *Store) ClearPending(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.q.Exec(ctx, `DELETE FROM gewaesser.pending_comments WHERE comment_id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("clear pending comments: %w", err)
	}
	return tag.RowsAffected(), nil
}

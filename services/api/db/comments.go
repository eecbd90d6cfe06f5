package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Comment is one stored remark on a dashboard step or section.
type Comment struct {
	ID          uuid.UUID `json:"id"`
	AuthorEmail string    `json:"author_email"`
	AuthorName  string    `json:"author_name"`
	Text        string    `json:"text"`
	StepID      string    `json:"step_id"`
	SectionID   string    `json:"section_id"`
	DetailLevel string    `json:"detail_level"`
	CreatedAt   time.Time `json:"created_at"`
}

// CommentFilter narrows ListComments; empty fields match everything.
type CommentFilter struct {
	StepID    string
	SectionID string
	Limit     int
}

const insertCommentSQL = `
INSERT INTO gewaesser.comments (id, author_email, author_name, text, step_id, section_id, detail_level, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const insertPendingSQL = `INSERT INTO gewaesser.pending_comments (comment_id) VALUES ($1)`

// CreateComment stores the comment and queues it for the next digest in one
// transaction.
func (s *Store) CreateComment(ctx context.Context, c Comment) error {
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertCommentSQL,
			c.ID, c.AuthorEmail, c.AuthorName, c.Text, c.StepID, c.SectionID, c.DetailLevel, c.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}
		if _, err := tx.Exec(ctx, insertPendingSQL, c.ID); err != nil {
			return fmt.Errorf("queue comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

const commentColumns = `id, author_email, author_name, text, step_id, section_id, detail_level, created_at`

// ListComments returns matching comments, newest first.
func (s *Store) ListComments(ctx context.Context, f CommentFilter) ([]Comment, error) {
	var (
		conditions []string
		args       []any
	)
	if f.StepID != "" {
		args = append(args, f.StepID)
		conditions = append(conditions, fmt.Sprintf("step_id = $%d", len(args)))
	}
	if f.SectionID != "" {
		args = append(args, f.SectionID)
		conditions = append(conditions, fmt.Sprintf("section_id = $%d", len(args)))
	}

	query := "SELECT " + commentColumns + " FROM gewaesser.comments"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	out := []Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return out, nil
}

// GetComment returns ErrNotFound when no comment has the id.
func (s *Store) GetComment(ctx context.Context, id uuid.UUID) (Comment, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+commentColumns+" FROM gewaesser.comments WHERE id = $1", id)
	c, err := scanComment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Comment{}, ErrNotFound
	}
	if err != nil {
		return Comment{}, fmt.Errorf("get comment: %w", err)
	}
	return c, nil
}

// DeleteComment removes the comment and any pending digest entry for it.
func (s *Store) DeleteComment(ctx context.Context, id uuid.UUID) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM gewaesser.pending_comments WHERE comment_id = $1", id); err != nil {
			return fmt.Errorf("delete pending comment: %w", err)
		}
		tag, err := tx.Exec(ctx, "DELETE FROM gewaesser.comments WHERE id = $1", id)
		if err != nil {
			return fmt.Errorf("delete comment: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func scanComment(row pgx.Row) (Comment, error) {
	var c Comment
	err := row.Scan(&c.ID, &c.AuthorEmail, &c.AuthorName, &c.Text, &c.StepID, &c.SectionID, &c.DetailLevel, &c.CreatedAt)
	return c, err
}

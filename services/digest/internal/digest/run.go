// Package digest groups pending comments into one notification mail.
package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gewaesserguete/digitale-gewaesserguete/services/digest/internal/models"
)

// ErrNoRecipients means there are pending comments but nobody to send them to.
var ErrNoRecipients = errors.New("no digest recipients")

// Queue is the pending comment store.
type Queue interface {
	FetchPending(ctx context.Context) ([]models.PendingComment, error)
	FetchRecipients(ctx context.Context) ([]models.Recipient, error)
	ClearPending(ctx context.Context, ids []uuid.UUID) (int64, error)
}

// Sender delivers a rendered mail.
type Sender interface {
	Send(ctx context.Context, msg models.Message) error
}

// Options configures one digest run.
type Options struct {
	From               string
	Subject            string
	FallbackRecipients []string
	DashboardURL       string
	DryRun             bool
	Logger             *slog.Logger
	Now                func() time.Time
}

// Result summarises a run.
type Result struct {
	Pending    int
	Sections   int
	Recipients int
	Sent       bool
	Cleared    int64
}

// Run mails all pending comments and clears the ones that were delivered.
// Nothing is sent when the queue is empty; nothing is cleared when sending
// fails or DryRun is set. Dry runs still pass the message to sender, which
// is then expected to be a LogSender.
func Run(ctx context.Context, q Queue, sender Sender, opts Options) (Result, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	pending, err := q.FetchPending(ctx)
	if err != nil {
		return Result{}, err
	}
	res := Result{Pending: len(pending)}
	if len(pending) == 0 {
		log.Info("no pending comments, nothing to send")
		return res, nil
	}

	sections := GroupBySection(pending)
	res.Sections = len(sections)

	to, err := recipients(ctx, q, opts.FallbackRecipients)
	if err != nil {
		return res, err
	}
	res.Recipients = len(to)

	html, text, err := Render(View{
		Date:         now(),
		Total:        len(pending),
		Sections:     sections,
		DashboardURL: opts.DashboardURL,
	})
	if err != nil {
		return res, err
	}
	msg := models.Message{From: opts.From, Bcc: to, Subject: opts.Subject, HTML: html, Text: text}

	if err := sender.Send(ctx, msg); err != nil {
		return res, fmt.Errorf("send digest: %w", err)
	}
	if opts.DryRun {
		log.Info("dry-run: pending comments kept", "comments", len(pending), "sections", len(sections), "recipients", len(to))
		return res, nil
	}
	res.Sent = true
	log.Info("digest sent", "comments", len(pending), "sections", len(sections), "recipients", len(to))

	cleared, err := q.ClearPending(ctx, CommentIDs(sections))
	res.Cleared = cleared
	if err != nil {
		return res, err
	}
	return res, nil
}

func recipients(ctx context.Context, q Queue, fallback []string) ([]string, error) {
	subscribed, err := q.FetchRecipients(ctx)
	if err != nil {
		return nil, err
	}
	to := make([]string, 0, len(subscribed))
	for _, r := range subscribed {
		to = append(to, r.Email)
	}
	if len(to) == 0 {
		to = append(to, fallback...)
	}
	if len(to) == 0 {
		return nil, ErrNoRecipients
	}
	return to, nil
}

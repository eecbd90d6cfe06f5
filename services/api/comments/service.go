// Package comments handles dashboard comments, moderation and user logins.
package comments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/gewaesserguete/digitale-gewaesserguete/services/api/db"
)

// Detail levels a comment can be tagged with.
const (
	LevelCitizen        = "citizen"
	LevelAdministration = "administration"
	LevelResearch       = "research"
)

// MaxTextLength bounds a comment body in characters after sanitizing.
const MaxTextLength = 5000

var (
	ErrInvalid   = errors.New("invalid comment request")
	ErrForbidden = errors.New("not permitted")
	ErrNotFound  = errors.New("comment not found")
)

// Store is the persistence the service needs.
type Store interface {
	CreateComment(ctx context.Context, c db.Comment) error
	ListComments(ctx context.Context, f db.CommentFilter) ([]db.Comment, error)
	GetComment(ctx context.Context, id uuid.UUID) (db.Comment, error)
	DeleteComment(ctx context.Context, id uuid.UUID) error
	GetUser(ctx context.Context, email string) (db.User, error)
	UpsertUser(ctx context.Context, email, name string, notify, grantAdmin bool) (db.User, error)
}

// NewComment is the author-supplied part of a comment.
type NewComment struct {
	AuthorEmail string
	AuthorName  string
	Text        string
	StepID      string
	SectionID   string
	DetailLevel string
}

type Service struct {
	store    Store
	policy   *bluemonday.Policy
	validate *validator.Validate
	admins   map[string]struct{}
	log      *slog.Logger

	now   func() time.Time
	newID func() uuid.UUID
}

// NewService builds the service. Logins from adminEmails are granted the
// admin role.
func NewService(store Store, adminEmails []string, log *slog.Logger) *Service {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		if e = normalizeEmail(e); e != "" {
			admins[e] = struct{}{}
		}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:    store,
		policy:   bluemonday.StrictPolicy(),
		validate: validator.New(),
		admins:   admins,
		log:      log.With("component", "comments"),
		now:      time.Now,
		newID:    uuid.New,
	}
}

// ValidDetailLevel reports whether level is one of the known tags.
func ValidDetailLevel(level string) bool {
	switch level {
	case LevelCitizen, LevelAdministration, LevelResearch:
		return true
	}
	return false
}

// Create sanitizes and stores a comment and queues it for the digest.
func (s *Service) Create(ctx context.Context, in NewComment) (db.Comment, error) {
	email := normalizeEmail(in.AuthorEmail)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return db.Comment{}, fmt.Errorf("%w: author email", ErrInvalid)
	}
	if !ValidDetailLevel(in.DetailLevel) {
		return db.Comment{}, fmt.Errorf("%w: detail level %q", ErrInvalid, in.DetailLevel)
	}
	stepID := strings.TrimSpace(in.StepID)
	sectionID := strings.TrimSpace(in.SectionID)
	if stepID == "" || sectionID == "" {
		return db.Comment{}, fmt.Errorf("%w: step and section are required", ErrInvalid)
	}

	text := strings.TrimSpace(s.policy.Sanitize(in.Text))
	if text == "" {
		return db.Comment{}, fmt.Errorf("%w: empty text", ErrInvalid)
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return db.Comment{}, fmt.Errorf("%w: text longer than %d characters", ErrInvalid, MaxTextLength)
	}

	name := s.sanitize(in.AuthorName)
	if name == "" {
		name = email
	}

	c := db.Comment{
		ID:          s.newID(),
		AuthorEmail: email,
		AuthorName:  name,
		Text:        text,
		StepID:      stepID,
		SectionID:   sectionID,
		DetailLevel: in.DetailLevel,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.CreateComment(ctx, c); err != nil {
		return db.Comment{}, err
	}
	s.log.Info("comment created", "id", c.ID, "step", c.StepID, "section", c.SectionID)
	return c, nil
}

// List returns comments for a step and/or section, newest first.
func (s *Service) List(ctx context.Context, f db.CommentFilter) ([]db.Comment, error) {
	return s.store.ListComments(ctx, f)
}

// Get returns a single comment.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (db.Comment, error) {
	c, err := s.store.GetComment(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return db.Comment{}, ErrNotFound
	}
	return c, err
}

// Delete removes a comment on behalf of requester, who must hold the admin role.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, requester string) error {
	email := normalizeEmail(requester)
	if email == "" {
		return ErrForbidden
	}
	user, err := s.store.GetUser(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		return ErrForbidden
	}
	if err != nil {
		return err
	}
	if !user.IsAdmin() {
		s.log.Warn("comment delete refused", "id", id, "requester", email)
		return ErrForbidden
	}

	if err := s.store.DeleteComment(ctx, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.log.Info("comment deleted", "id", id, "requester", email)
	return nil
}

// Login records the user and their notification preference.
func (s *Service) Login(ctx context.Context, email, name string, notify bool) (db.User, error) {
	email = normalizeEmail(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return db.User{}, fmt.Errorf("%w: email", ErrInvalid)
	}
	name = s.sanitize(name)
	if name == "" {
		name = email
	}
	_, admin := s.admins[email]
	return s.store.UpsertUser(ctx, email, name, notify, admin)
}

// sanitize strips markup and collapses whitespace for single-line fields.
func (s *Service) sanitize(in string) string {
	return strings.Join(strings.Fields(s.policy.Sanitize(in)), " ")
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

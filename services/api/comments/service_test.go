package comments

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gewaesserguete/digitale-gewaesserguete/services/api/db"
)

type fakeStore struct {
	created  []db.Comment
	deleted  []uuid.UUID
	users    map[string]db.User
	upserted []bool

	createErr error
	deleteErr error
	listErr   error
	filters   []db.CommentFilter
}

func (f *fakeStore) CreateComment(_ context.Context, c db.Comment) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, c)
	return nil
}

func (f *fakeStore) ListComments(_ context.Context, filter db.CommentFilter) ([]db.Comment, error) {
	f.filters = append(f.filters, filter)
	return f.created, f.listErr
}

func (f *fakeStore) GetComment(_ context.Context, id uuid.UUID) (db.Comment, error) {
	for _, c := range f.created {
		if c.ID == id {
			return c, nil
		}
	}
	return db.Comment{}, db.ErrNotFound
}

func (f *fakeStore) DeleteComment(_ context.Context, id uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeStore) GetUser(_ context.Context, email string) (db.User, error) {
	u, ok := f.users[email]
	if !ok {
		return db.User{}, db.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) UpsertUser(_ context.Context, email, name string, notify, grantAdmin bool) (db.User, error) {
	f.upserted = append(f.upserted, grantAdmin)
	role := db.RoleMember
	if existing, ok := f.users[email]; ok {
		role = existing.Role
	}
	if grantAdmin {
		role = db.RoleAdmin
	}
	u := db.User{Email: email, Name: name, Role: role, NotifyComments: notify}
	if f.users == nil {
		f.users = map[string]db.User{}
	}
	f.users[email] = u
	return u, nil
}

var fixedID = uuid.MustParse("0b7e4a4c-3f0d-4d8e-a8a5-1c2e3f4a5b6c")

func newTestService(store *fakeStore, admins ...string) *Service {
	s := NewService(store, admins, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return time.Date(2025, 5, 1, 14, 0, 0, 0, time.FixedZone("CEST", 2*3600)) }
	s.newID = func() uuid.UUID { return fixedID }
	return s
}

func validComment() NewComment {
	return NewComment{
		AuthorEmail: " Anna@Example.org ",
		AuthorName:  "Anna <b>Müller</b>",
		Text:        "Die <script>alert(1)</script>Werte sind <em>plausibel</em>.",
		StepID:      "step-2",
		SectionID:   "oxygen",
		DetailLevel: LevelCitizen,
	}
}

func TestCreate(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)

	c, err := svc.Create(context.Background(), validComment())
	require.NoError(t, err)

	assert.Equal(t, fixedID, c.ID)
	assert.Equal(t, "anna@example.org", c.AuthorEmail)
	assert.Equal(t, "Anna Müller", c.AuthorName)
	assert.Equal(t, "Die Werte sind plausibel.", c.Text)
	assert.Equal(t, time.UTC, c.CreatedAt.Location())
	assert.Equal(t, 12, c.CreatedAt.Hour())
	require.Len(t, store.created, 1)
	assert.Equal(t, c, store.created[0])
}

func TestCreate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*NewComment)
	}{
		{"missing email", func(c *NewComment) { c.AuthorEmail = "" }},
		{"malformed email", func(c *NewComment) { c.AuthorEmail = "not-an-email" }},
		{"unknown detail level", func(c *NewComment) { c.DetailLevel = "expert" }},
		{"missing step", func(c *NewComment) { c.StepID = "  " }},
		{"missing section", func(c *NewComment) { c.SectionID = "" }},
		{"markup only", func(c *NewComment) { c.Text = "<img src=x onerror=alert(1)>" }},
		{"too long", func(c *NewComment) { c.Text = strings.Repeat("ä", MaxTextLength+1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			in := validComment()
			tt.mutate(&in)

			_, err := newTestService(store).Create(context.Background(), in)

			assert.ErrorIs(t, err, ErrInvalid)
			assert.Empty(t, store.created)
		})
	}
}

func TestCreate_DefaultsNameToEmail(t *testing.T) {
	store := &fakeStore{}
	in := validComment()
	in.AuthorName = "   "

	c, err := newTestService(store).Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "anna@example.org", c.AuthorName)
}

func TestCreate_StoreError(t *testing.T) {
	store := &fakeStore{createErr: errors.New("tx aborted")}

	_, err := newTestService(store).Create(context.Background(), validComment())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
}

func TestList_PassesFilter(t *testing.T) {
	store := &fakeStore{}
	filter := db.CommentFilter{StepID: "step-1", SectionID: "ph"}

	_, err := newTestService(store).List(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, []db.CommentFilter{filter}, store.filters)
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name      string
		requester string
		deleteErr error
		want      error
		deleted   bool
	}{
		{name: "admin", requester: "Mod@example.org", deleted: true},
		{name: "member", requester: "anna@example.org", want: ErrForbidden},
		{name: "unknown user", requester: "ghost@example.org", want: ErrForbidden},
		{name: "anonymous", requester: "", want: ErrForbidden},
		{name: "missing comment", requester: "mod@example.org", deleteErr: db.ErrNotFound, want: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{
				deleteErr: tt.deleteErr,
				users: map[string]db.User{
					"mod@example.org":  {Email: "mod@example.org", Role: db.RoleAdmin},
					"anna@example.org": {Email: "anna@example.org", Role: db.RoleMember},
				},
			}

			err := newTestService(store).Delete(context.Background(), fixedID, tt.requester)

			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.deleted, len(store.deleted) == 1)
		})
	}
}

func TestLogin(t *testing.T) {
	store := &fakeStore{users: map[string]db.User{
		"anna@example.org": {Email: "anna@example.org", Role: db.RoleAdmin},
	}}
	svc := newTestService(store, "Mod@Example.org")

	mod, err := svc.Login(context.Background(), "mod@example.org", "Moderation", true)
	require.NoError(t, err)
	assert.True(t, mod.IsAdmin())
	assert.True(t, mod.NotifyComments)

	anna, err := svc.Login(context.Background(), "anna@example.org", "", false)
	require.NoError(t, err)
	assert.True(t, anna.IsAdmin(), "existing role is kept")
	assert.Equal(t, "anna@example.org", anna.Name)

	bob, err := svc.Login(context.Background(), "bob@example.org", "Bob", false)
	require.NoError(t, err)
	assert.Equal(t, db.RoleMember, bob.Role)

	assert.Equal(t, []bool{true, false, false}, store.upserted)
}

func TestLogin_InvalidEmail(t *testing.T) {
	_, err := newTestService(&fakeStore{}).Login(context.Background(), "nobody", "x", false)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestGet(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)

	_, err := svc.Get(context.Background(), fixedID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Create(context.Background(), validComment())
	require.NoError(t, err)

	c, err := svc.Get(context.Background(), fixedID)
	require.NoError(t, err)
	assert.Equal(t, fixedID, c.ID)
}

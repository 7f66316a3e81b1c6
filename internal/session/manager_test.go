package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/recipes/internal/dbtest"
	"github.com/ovaphlow/pitchfork/recipes/internal/session/repo"
)

func newTestManager(t *testing.T) (*Manager, *repo.SessionRepo) {
	t.Helper()
	r := repo.NewSessionRepo(dbtest.Open(t))
	m := NewManager(r, Options{Secret: "test-secret", TTL: time.Hour}, zap.NewNop().Sugar())
	return m, r
}

func serve(m *Manager, h http.HandlerFunc, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	m.Load(h).ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "recipes_session" {
			return c
		}
	}
	t.Fatalf("no session cookie set")
	return nil
}

func TestAnonymousReadCreatesNoSession(t *testing.T) {
	m, _ := newTestManager(t)
	rec := serve(m, func(w http.ResponseWriter, r *http.Request) {
		_, ok := FromContext(r.Context()).AccountID()
		assert.False(t, ok)
		_, _ = w.Write([]byte("ok"))
	})
	assert.Empty(t, rec.Result().Cookies())
}

func TestStateSurvivesAcrossRequests(t *testing.T) {
	m, _ := newTestManager(t)
	rec := serve(m, func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		s.SetAccountID(42)
		s.AddFlash(LevelSuccess, "hello")
		http.Redirect(w, r, "/next", http.StatusSeeOther)
	})
	c := sessionCookie(t, rec)
	assert.True(t, c.HttpOnly)

	serve(m, func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		id, ok := s.AccountID()
		assert.True(t, ok)
		assert.Equal(t, int64(42), id)
		assert.Equal(t, []Flash{{Level: LevelSuccess, Message: "hello"}}, s.PopFlashes())
		w.WriteHeader(http.StatusOK)
	}, c)

	// flashes are shown once
	serve(m, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, FromContext(r.Context()).PopFlashes())
	}, c)
}

func TestRenewRotatesID(t *testing.T) {
	m, r := newTestManager(t)
	rec := serve(m, func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).SetAccountID(7)
	})
	first := sessionCookie(t, rec)

	var oldID, newID string
	rec = serve(m, func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		oldID = s.ID()
		m.Renew(r.Context())
		newID = s.ID()
		w.WriteHeader(http.StatusNoContent)
	}, first)
	second := sessionCookie(t, rec)

	assert.NotEqual(t, oldID, newID)
	assert.NotEqual(t, first.Value, second.Value)
	ctx := context.Background()
	_, err := r.Get(ctx, oldID)
	assert.Error(t, err)
	got, err := r.Get(ctx, newID)
	require.NoError(t, err)
	assert.Contains(t, got.Data, `"account_id":7`)

	// the old cookie no longer resolves to the account
	serve(m, func(w http.ResponseWriter, r *http.Request) {
		_, ok := FromContext(r.Context()).AccountID()
		assert.False(t, ok)
	}, first)
}

func TestTamperedCookieStartsFresh(t *testing.T) {
	m, _ := newTestManager(t)
	rec := serve(m, func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).SetAccountID(1)
	})
	c := sessionCookie(t, rec)

	other := NewManager(m.repo, Options{Secret: "another-secret"}, zap.NewNop().Sugar())
	serve(other, func(w http.ResponseWriter, r *http.Request) {
		_, ok := FromContext(r.Context()).AccountID()
		assert.False(t, ok)
	}, c)

	c.Value += "x"
	serve(m, func(w http.ResponseWriter, r *http.Request) {
		_, ok := FromContext(r.Context()).AccountID()
		assert.False(t, ok)
	}, c)
}

func TestPurgeExpired(t *testing.T) {
	m, r := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, r.Save(ctx, repo.Record{ID: "old", Data: "{}", ExpiresAt: time.Now().Add(-time.Hour)}))
	require.NoError(t, r.Save(ctx, repo.Record{ID: "live", Data: "{}", ExpiresAt: time.Now().Add(time.Hour)}))

	n, err := m.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = r.Get(ctx, "live")
	assert.NoError(t, err)
}

func TestDraftAndAccountHelpers(t *testing.T) {
	s := &Session{}
	assert.Nil(t, s.Draft())
	s.SetDraft(&RegisterDraft{
		Values: map[string]string{"username": "ann"},
		Errors: map[string][]string{"email": {"E-mail is required"}},
	})
	assert.Equal(t, "ann", s.Draft().Values["username"])
	assert.Equal(t, []string{"E-mail is required"}, s.Draft().Errors["email"])
	s.ClearDraft()
	assert.Nil(t, s.Draft())

	s.SetAccountID(3)
	s.ClearAccount()
	_, ok := s.AccountID()
	assert.False(t, ok)
}

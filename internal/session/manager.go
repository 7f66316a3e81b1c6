package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/recipes/internal/apperr"
	"github.com/ovaphlow/pitchfork/recipes/internal/metrics"
	"github.com/ovaphlow/pitchfork/recipes/internal/session/repo"
	"github.com/ovaphlow/pitchfork/recipes/pkg/utilities"
)

// Options configure the session cookie.
type Options struct {
	Secret       string
	CookieName   string
	TTL          time.Duration
	SecureCookie bool
}

// Manager loads the session for every request and writes it back before
// the response headers are sent.
type Manager struct {
	repo   *repo.SessionRepo
	opts   Options
	logger *zap.SugaredLogger
}

func NewManager(r *repo.SessionRepo, opts Options, logger *zap.SugaredLogger) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = "recipes_session"
	}
	if opts.TTL <= 0 {
		opts.TTL = 14 * 24 * time.Hour
	}
	return &Manager{repo: r, opts: opts, logger: logger}
}

type ctxKey struct{}

// FromContext returns the request session. Outside the Load middleware it
// returns a detached session that is never persisted.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(ctxKey{}).(*Session); ok {
		return s
	}
	return &Session{}
}

// Load is the middleware that attaches a *Session to the request context.
func (m *Manager) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := m.load(r)
		sw := &sessionWriter{ResponseWriter: w, commit: func() { m.commit(r.Context(), w, s) }}
		ctx := context.WithValue(r.Context(), ctxKey{}, s)
		next.ServeHTTP(sw, r.WithContext(ctx))
		sw.flush()
	})
}

func (m *Manager) load(r *http.Request) *Session {
	c, err := r.Cookie(m.opts.CookieName)
	if err != nil {
		return m.fresh()
	}
	id, err := m.parseToken(c.Value)
	if err != nil {
		m.logger.Debugw("session cookie rejected", "err", err)
		return m.fresh()
	}
	rec, err := m.repo.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			m.logger.Errorw("session lookup failed", "err", err)
		}
		return m.fresh()
	}
	s := &Session{id: rec.ID, stored: true}
	if err := json.Unmarshal([]byte(rec.Data), &s.state); err != nil {
		m.logger.Warnw("session data unreadable, starting over", "err", err)
		s.state = State{}
		s.modified = true
	}
	return s
}

func (m *Manager) fresh() *Session {
	return &Session{id: utilities.NewKSUID()}
}

// Renew moves the session to a new id, keeping its state. Call it whenever
// the privilege level changes (login, logout).
func (m *Manager) Renew(ctx context.Context) {
	s := FromContext(ctx)
	if s.stored {
		s.oldID = s.id
	}
	s.id = utilities.NewKSUID()
	s.stored = false
	s.modified = true
}

// commit persists the session and refreshes the cookie. A session that was
// never stored and holds nothing is dropped, so anonymous browsing does not
// create rows.
func (m *Manager) commit(ctx context.Context, w http.ResponseWriter, s *Session) {
	if s.oldID != "" {
		if err := m.repo.Delete(ctx, s.oldID); err != nil {
			m.logger.Warnw("delete rotated session failed", "err", err)
		}
		s.oldID = ""
	}
	if !s.stored && !s.modified {
		return
	}
	data, err := json.Marshal(s.state)
	if err != nil {
		m.logger.Errorw("encode session failed", "err", err)
		return
	}
	expires := time.Now().Add(m.opts.TTL).UTC()
	if err := m.repo.Save(ctx, repo.Record{ID: s.id, Data: string(data), ExpiresAt: expires}); err != nil {
		m.logger.Errorw("save session failed", "err", err)
		return
	}
	s.stored = true
	token, err := m.signToken(s.id, expires)
	if err != nil {
		m.logger.Errorw("sign session cookie failed", "err", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) signToken(id string, expires time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        id,
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.opts.Secret))
}

func (m *Manager) parseToken(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return []byte(m.opts.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if claims.ID == "" {
		return "", fmt.Errorf("session cookie without id")
	}
	return claims.ID, nil
}

// PurgeExpired deletes expired sessions.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := m.repo.DeleteExpired(ctx, time.Now())
	if err == nil {
		metrics.SessionsPurged.Add(float64(n))
	}
	return n, err
}

// RunCleanup purges expired sessions every interval until ctx is done.
func (m *Manager) RunCleanup(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := m.PurgeExpired(ctx)
			if err != nil {
				m.logger.Warnw("session cleanup failed", "err", err)
				continue
			}
			if n > 0 {
				m.logger.Infow("expired sessions purged", "count", n)
			}
		}
	}
}

// sessionWriter commits the session right before the first byte of the
// response goes out, while headers can still be changed.
type sessionWriter struct {
	http.ResponseWriter
	commit    func()
	committed bool
}

func (w *sessionWriter) flush() {
	if !w.committed {
		w.committed = true
		w.commit()
	}
}

func (w *sessionWriter) WriteHeader(code int) {
	w.flush()
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.flush()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

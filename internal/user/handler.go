package user

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/recipes/internal/apperr"
	"github.com/ovaphlow/pitchfork/recipes/internal/metrics"
	"github.com/ovaphlow/pitchfork/recipes/internal/session"
	"github.com/ovaphlow/pitchfork/recipes/internal/web"
)

const (
	msgRegistered     = "Your user is created, please log in."
	msgLoginMalformed = "Invalid username or password"
	msgLoginFailed    = "Invalid credentials"
	msgLoggedIn       = "You are logged in."
	msgLogoutInvalid  = "Invalid logout request"
	msgLoggedOut      = "Logged out successfully"

	loginPath     = "/login"
	dashboardPath = "/dashboard"
)

// Handler exposes the registration, login and logout pages.
type Handler struct {
	svc      *UserService
	sessions *session.Manager
	pages    web.Pages
	logger   *zap.SugaredLogger
}

// NewHandler wires the user service. A nil hasher selects bcrypt with the
// default cost.
func NewHandler(db *sqlx.DB, hasher PasswordHasher, sessions *session.Manager, renderer web.Renderer, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		svc:      NewUserService(db, nil, hasher, logger),
		sessions: sessions,
		pages:    web.Pages{Renderer: renderer, Logger: logger},
		logger:   logger,
	}
}

func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// RegisterView shows the registration form, refilled from a rejected
// submission when one is pending.
func (h *Handler) RegisterView(w http.ResponseWriter, r *http.Request) {
	data := web.Data(r)
	form := RegisterForm{}
	var errs apperr.FieldErrors
	if d := session.FromContext(r.Context()).Draft(); d != nil {
		form = draftForm(d.Values)
		errs = d.Errors
	}
	data["form"] = form
	data["errors"] = errs
	h.pages.Render(w, r, http.StatusOK, "register", data)
}

func (h *Handler) RegisterCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Debugw("invalid register payload", "err", err)
		redirect(w, r, "/register")
		return
	}
	form := RegisterForm{
		Username:  r.PostForm.Get("username"),
		FirstName: r.PostForm.Get("first_name"),
		LastName:  r.PostForm.Get("last_name"),
		Email:     r.PostForm.Get("email"),
		Password:  r.PostForm.Get("password"),
		Password2: r.PostForm.Get("password2"),
	}
	s := session.FromContext(r.Context())
	id, err := h.svc.Register(r.Context(), form)
	if err != nil {
		if fe, ok := apperr.AsValidation(err); ok {
			metrics.Registrations.WithLabelValues(metrics.RegisterReject).Inc()
			s.SetDraft(&session.RegisterDraft{Values: draftValues(form), Errors: fe})
			redirect(w, r, "/register")
			return
		}
		h.pages.ServerError(w, r, err)
		return
	}
	metrics.Registrations.WithLabelValues(metrics.RegisterOK).Inc()
	h.logger.Infow("account registered", "user_id", id)
	s.ClearDraft()
	s.AddFlash(session.LevelSuccess, msgRegistered)
	redirect(w, r, loginPath)
}

// draftValues keeps the non-secret fields of a rejected registration.
func draftValues(f RegisterForm) map[string]string {
	return map[string]string{
		"username":   f.Username,
		"first_name": f.FirstName,
		"last_name":  f.LastName,
		"email":      f.Email,
	}
}

func draftForm(v map[string]string) RegisterForm {
	return RegisterForm{
		Username:  v["username"],
		FirstName: v["first_name"],
		LastName:  v["last_name"],
		Email:     v["email"],
	}
}

func (h *Handler) LoginView(w http.ResponseWriter, r *http.Request) {
	data := web.Data(r)
	data["next"] = SafeNext(r.URL.Query().Get("next"))
	h.pages.Render(w, r, http.StatusOK, "login", data)
}

func (h *Handler) LoginCreate(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		metrics.LoginAttempts.WithLabelValues(metrics.LoginInvalid).Inc()
		s.AddFlash(session.LevelError, msgLoginMalformed)
		redirect(w, r, loginPath)
		return
	}
	form := LoginForm{
		Username: r.PostForm.Get("username"),
		Password: r.PostForm.Get("password"),
		Next:     SafeNext(r.PostForm.Get("next")),
	}
	if !form.Valid() {
		metrics.LoginAttempts.WithLabelValues(metrics.LoginInvalid).Inc()
		s.AddFlash(session.LevelError, msgLoginMalformed)
		redirect(w, r, loginURL(form.Next))
		return
	}
	u, err := h.svc.Authenticate(r.Context(), form.Username, form.Password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			metrics.LoginAttempts.WithLabelValues(metrics.LoginBadCreds).Inc()
			h.logger.Debugw("login failed", "username", form.Username)
			s.AddFlash(session.LevelError, msgLoginFailed)
			redirect(w, r, loginURL(form.Next))
			return
		}
		metrics.LoginAttempts.WithLabelValues(metrics.LoginFailed).Inc()
		h.pages.ServerError(w, r, err)
		return
	}
	metrics.LoginAttempts.WithLabelValues(metrics.LoginSuccess).Inc()
	h.sessions.Renew(r.Context())
	s.SetAccountID(u.ID)
	s.AddFlash(session.LevelSuccess, msgLoggedIn)
	to := form.Next
	if to == "" {
		to = dashboardPath
	}
	redirect(w, r, to)
}

// Logout ends the session on POST. A GET changes nothing.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if r.Method != http.MethodPost {
		s.AddFlash(session.LevelError, msgLogoutInvalid)
		redirect(w, r, loginPath)
		return
	}
	s.ClearAccount()
	h.sessions.Renew(r.Context())
	s.AddFlash(session.LevelSuccess, msgLoggedOut)
	redirect(w, r, loginPath)
}

// LoadUser resolves the session's account for every request. A session that
// points at a deleted account is logged out.
func (h *Handler) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := session.FromContext(r.Context())
		id, ok := s.AccountID()
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		u, err := h.svc.Get(r.Context(), id)
		if err != nil {
			if !errors.Is(err, apperr.ErrNotFound) {
				h.pages.ServerError(w, r, err)
				return
			}
			s.ClearAccount()
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(session.WithUser(r.Context(), u)))
	})
}

// RequireAuth sends visitors to the login page, remembering where they
// were going.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if session.CurrentUser(r.Context()) == nil {
			redirect(w, r, loginURL(r.URL.RequestURI()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func loginURL(next string) string {
	if next == "" {
		return loginPath
	}
	return loginPath + "?next=" + url.QueryEscape(next)
}

// SafeNext returns next when it is a local absolute path, and "" otherwise.
func SafeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, `/\`) {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	return next
}

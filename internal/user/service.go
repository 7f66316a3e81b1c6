package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/recipes/internal/apperr"
	"github.com/ovaphlow/pitchfork/recipes/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/recipes/internal/user/repo"
)

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (hash string, algo string, err error)
	Verify(hash, pw string) bool
	NeedsRehash(hash string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) cost() int {
	if b.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return b.Cost
}

func (b BcryptHasher) Hash(pw string) (string, string, error) {
	cost := b.cost()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", "", err
	}
	return string(h), fmt.Sprintf("bcrypt:%d", cost), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// NeedsRehash reports hashes stored with a lower cost than configured.
func (b BcryptHasher) NeedsRehash(hash string) bool {
	c, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return false
	}
	return c < b.cost()
}

var ErrBadCredentials = fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthorized)

// UserService orchestrates registration and authentication flows.
type UserService struct {
	repo   *userrepo.UserRepo
	hasher PasswordHasher
	logger *zap.SugaredLogger
}

func NewUserService(db *sqlx.DB, r *userrepo.UserRepo, hasher PasswordHasher, logger *zap.SugaredLogger) *UserService {
	if r == nil {
		r = userrepo.NewUserRepo(db)
	}
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &UserService{repo: r, hasher: hasher, logger: logger}
}

// Check validates a registration form, including the uniqueness of email
// and username. It returns an *apperr.ValidationError when the form is
// rejected and a plain error when storage fails.
func (s *UserService) Check(ctx context.Context, form RegisterForm) error {
	form = form.Trimmed()
	fe := form.Validate()
	if form.Email != "" && !fe.Has("email") {
		taken, err := s.repo.EmailExists(ctx, form.Email)
		if err != nil {
			return err
		}
		if taken {
			fe.Add("email", msgEmailTaken)
		}
	}
	if form.Username != "" && !fe.Has("username") {
		taken, err := s.repo.UsernameExists(ctx, form.Username)
		if err != nil {
			return err
		}
		if taken {
			fe.Add("username", msgUsernameTaken)
		}
	}
	return apperr.Validation(fe)
}

// Register validates the form and creates the account. The password is
// stored only as a salted bcrypt hash.
func (s *UserService) Register(ctx context.Context, form RegisterForm) (int64, error) {
	if err := s.Check(ctx, form); err != nil {
		return 0, err
	}
	form = form.Trimmed()
	hash, algo, err := s.hasher.Hash(form.Password)
	if err != nil {
		return 0, err
	}
	u := &entity.User{
		Username:     form.Username,
		Email:        form.Email,
		FirstName:    form.FirstName,
		LastName:     form.LastName,
		PasswordHash: hash,
		PasswordAlgo: algo,
	}
	id, err := s.repo.Create(ctx, u)
	switch {
	case errors.Is(err, userrepo.ErrDuplicateEmail):
		// lost a race with a concurrent registration
		return 0, apperr.Validation(apperr.FieldErrors{"email": {msgEmailTaken}})
	case errors.Is(err, userrepo.ErrDuplicateUsername):
		return 0, apperr.Validation(apperr.FieldErrors{"username": {msgUsernameTaken}})
	case err != nil:
		return 0, err
	}
	return id, nil
}

// Authenticate checks username and password. Unknown users and wrong
// passwords both yield ErrBadCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*entity.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrBadCredentials
	}
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrBadCredentials
		} // avoid user enumeration
		return nil, err
	}
	if u.PasswordHash == "" || !s.hasher.Verify(u.PasswordHash, password) {
		return nil, ErrBadCredentials
	}
	if err := s.repo.TouchLastLogin(ctx, u.ID); err != nil {
		return nil, err
	}
	if s.hasher.NeedsRehash(u.PasswordHash) {
		s.rehash(ctx, u.ID, password)
	}
	return u, nil
}

// Get loads an account by id.
func (s *UserService) Get(ctx context.Context, id int64) (*entity.User, error) {
	return s.repo.GetByID(ctx, id)
}

// rehash stores password under the current hasher settings. Failures only
// cost the upgrade, so the login still succeeds.
func (s *UserService) rehash(ctx context.Context, id int64, password string) {
	hash, algo, err := s.hasher.Hash(password)
	if err == nil {
		err = s.repo.UpdatePassword(ctx, id, hash, algo)
	}
	if err != nil {
		s.logger.Warnw("password rehash failed", "user_id", id, "error", err)
	}
}

package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/recipes/internal/apperr"
	"github.com/ovaphlow/pitchfork/recipes/internal/dbtest"
)

func newTestService(t *testing.T) *UserService {
	t.Helper()
	return NewUserService(dbtest.Open(t), nil, BcryptHasher{Cost: bcrypt.MinCost}, nil)
}

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	hash, algo, err := h.Hash("Str0ngPass")
	require.NoError(t, err)
	assert.Equal(t, "bcrypt:4", algo)
	assert.NotEqual(t, "Str0ngPass", hash)
	assert.True(t, h.Verify(hash, "Str0ngPass"))
	assert.False(t, h.Verify(hash, "str0ngpass"))

	assert.False(t, h.NeedsRehash(hash))
	assert.True(t, BcryptHasher{Cost: bcrypt.MinCost + 1}.NeedsRehash(hash))
	assert.False(t, h.NeedsRehash("not a bcrypt hash"))
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	f := validForm()
	f.Username = "  anncook "
	id, err := svc.Register(ctx, f)
	require.NoError(t, err)
	assert.Positive(t, id)

	u, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "anncook", u.Username)
	assert.Equal(t, "Ann Cook", u.FullName())

	got, err := svc.Authenticate(ctx, "anncook", "Str0ngPass")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)

	_, err = svc.Authenticate(ctx, "anncook", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = svc.Authenticate(ctx, "nobody", "Str0ngPass")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = svc.Authenticate(ctx, "", "")
	assert.ErrorIs(t, err, ErrBadCredentials)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestRegisterRejectsTakenEmailAndUsername(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	_, err := svc.Register(ctx, validForm())
	require.NoError(t, err)

	_, err = svc.Register(ctx, validForm())
	fe, ok := apperr.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, []string{msgEmailTaken}, fe.Get("email"))
	assert.Equal(t, []string{msgUsernameTaken}, fe.Get("username"))
}

func TestCheckSkipsLookupForInvalidFields(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	_, err := svc.Register(ctx, validForm())
	require.NoError(t, err)

	f := validForm()
	f.Email = "ann@"
	err = svc.Check(ctx, f)
	fe, ok := apperr.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, []string{msgEmailInvalid}, fe.Get("email"))
}

func TestRegisterDoesNotCreateOnValidationError(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	f := validForm()
	f.Password2 = "Other0ne1"
	_, err := svc.Register(ctx, f)
	_, ok := apperr.AsValidation(err)
	require.True(t, ok)

	exists, err := svc.repo.UsernameExists(ctx, "anncook")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAuthenticateUpgradesWeakHash(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	weak := NewUserService(db, nil, BcryptHasher{Cost: bcrypt.MinCost}, nil)
	id, err := weak.Register(ctx, validForm())
	require.NoError(t, err)

	strong := NewUserService(db, nil, BcryptHasher{Cost: bcrypt.MinCost + 1}, nil)
	_, err = strong.Authenticate(ctx, "anncook", "Str0ngPass")
	require.NoError(t, err)

	u, err := strong.Get(ctx, id)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(u.PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)
	assert.NotNil(t, u.LastLoginAt)
}

// brokenHasher always asks for a rehash and then fails to produce one.
type brokenHasher struct{ BcryptHasher }

func (brokenHasher) NeedsRehash(string) bool { return true }

func (brokenHasher) Hash(string) (string, string, error) {
	return "", "", assert.AnError
}

func TestAuthenticateLogsFailedRehash(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	id, err := NewUserService(db, nil, BcryptHasher{Cost: bcrypt.MinCost}, nil).Register(ctx, validForm())
	require.NoError(t, err)

	core, logs := observer.New(zapcore.WarnLevel)
	svc := NewUserService(db, nil, brokenHasher{BcryptHasher{Cost: bcrypt.MinCost}}, zap.New(core).Sugar())
	u, err := svc.Authenticate(ctx, "anncook", "Str0ngPass")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)

	entries := logs.FilterMessage("password rehash failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ContextMap()["user_id"])
}

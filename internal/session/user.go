package session

import (
	"context"

	"github.com/ovaphlow/pitchfork/recipes/internal/user/entity"
)

type userKey struct{}

// WithUser stores the authenticated account in ctx.
func WithUser(ctx context.Context, u *entity.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// CurrentUser returns the authenticated account, or nil for visitors.
func CurrentUser(ctx context.Context) *entity.User {
	u, _ := ctx.Value(userKey{}).(*entity.User)
	return u
}

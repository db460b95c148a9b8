package models

import (
	"context"

	"github.com/Dias-T/tow-dispatch-system/internal/domain/types"
	"github.com/Dias-T/tow-dispatch-system/pkg/uuid"
)

// User is the authenticated identity injected by the auth middleware.
// Account management itself lives outside this service.
type User struct {
	ID   uuid.UUID
	Role types.UserRole
}

var anonymous = &User{}

// AnonymousUser returns the sentinel user for unauthenticated requests.
func AnonymousUser() *User {
	return anonymous
}

// IsAnonymous reports whether u is the anonymous sentinel.
func (u *User) IsAnonymous() bool {
	return u == anonymous
}

type userCtxKey struct{}

var userKey = userCtxKey{}

// WithUser stores the user in the context.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext returns the user stored in the context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userKey).(*User)
	return u
}

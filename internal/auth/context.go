package auth

import (
	"context"

	"eventflow/internal/models"
)

type ctxKey string

const (
	userKey ctxKey = "userClaims"
)

// Claims is the authenticated caller as resolved from the token and the
// users table.
type Claims struct {
	Subject string
	Role    string
	Status  string
}

func (c Claims) IsAdmin() bool {
	return c.Role == models.RoleAdmin && c.Status == models.UserValidated
}

func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, userKey, c)
}

func FromContext(ctx context.Context) Claims {
	if v, ok := ctx.Value(userKey).(Claims); ok {
		return v
	}
	return Claims{}
}

func Subject(ctx context.Context) string {
	return FromContext(ctx).Subject
}

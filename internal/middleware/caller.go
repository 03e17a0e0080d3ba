package middleware

import (
	"context"

	"medivault-api/internal/model"
)

type ctxKey string

const callerKey ctxKey = "caller"

// Verifier turns a bearer token into a caller.
type Verifier interface {
	Verify(raw string) (model.Caller, error)
}

func WithCaller(ctx context.Context, c model.Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

func CallerFromContext(ctx context.Context) (model.Caller, bool) {
	c, ok := ctx.Value(callerKey).(model.Caller)
	return c, ok
}

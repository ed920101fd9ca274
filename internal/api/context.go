package api

import (
	"context"

	"receiving/pkg/authtoken"
)

type ctxKey string

const (
	ctxKeyIdentity  ctxKey = "identity"
	ctxKeyRequestID ctxKey = "requestId"
)

func WithIdentity(ctx context.Context, id *authtoken.Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

// IdentityFromContext returns the authenticated operator, or nil when auth
// is disabled.
func IdentityFromContext(ctx context.Context) *authtoken.Identity {
	v := ctx.Value(ctxKeyIdentity)
	if v == nil {
		return nil
	}
	id, _ := v.(*authtoken.Identity)
	return id
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

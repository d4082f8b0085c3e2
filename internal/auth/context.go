// internal/auth/context.go
package auth

import (
	"context"
)

// ContextKey is a type-safe key for context values
type ContextKey string

const (
	// OutcomeContextKey is the key used to store the verification outcome
	OutcomeContextKey ContextKey = "auth:outcome"

	// IdentityContextKey is the key used to store the identity
	IdentityContextKey ContextKey = "auth:identity"
)

// ContextWithOutcome adds a verification outcome to a context
func ContextWithOutcome(ctx context.Context, outcome Outcome) context.Context {
	ctx = context.WithValue(ctx, OutcomeContextKey, outcome)
	if outcome.OK() {
		ctx = context.WithValue(ctx, IdentityContextKey, outcome.Identity)
	}
	return ctx
}

// OutcomeFromContext extracts the verification outcome from a context.
// The second return value is false when no strategy ran for this request.
func OutcomeFromContext(ctx context.Context) (Outcome, bool) {
	if outcome, ok := ctx.Value(OutcomeContextKey).(Outcome); ok {
		return outcome, true
	}
	return Outcome{}, false
}

// IdentityFromContext extracts the identity from a context, or nil when the
// request did not authenticate
func IdentityFromContext(ctx context.Context) *Identity {
	if identity, ok := ctx.Value(IdentityContextKey).(*Identity); ok {
		return identity
	}
	return nil
}

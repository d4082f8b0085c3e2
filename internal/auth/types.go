// internal/auth/types.go
package auth

import (
	"net/http"

	"golang.org/x/exp/slices"
)

// Identity represents a verified caller
type Identity struct {
	// Subject is the unique identifier for this identity. Never empty on a
	// success outcome.
	Subject string

	// Scheme is the name of the scheme that verified the credential
	// (e.g., "apikey", "session-a")
	Scheme string

	// Roles are the role claims attached to the identity
	Roles []string

	// Attributes contains additional identity information
	Attributes map[string]interface{}
}

// HasRole reports whether the identity carries the given role claim
func (i *Identity) HasRole(role string) bool {
	return i != nil && slices.Contains(i.Roles, role)
}

// ErrorKind classifies an authentication failure. Kinds are internal: they
// are logged and counted but all collapse to a generic 401 at the boundary.
type ErrorKind string

const (
	// ErrMissingCredential means no credential was presented at all
	ErrMissingCredential ErrorKind = "missing_credential"

	// ErrEmptyCredential means the credential carrier was present but blank
	ErrEmptyCredential ErrorKind = "empty_credential"

	// ErrInvalidCredential means the credential was presented but did not verify
	ErrInvalidCredential ErrorKind = "invalid_credential"
)

// Outcome is the result of a single verification attempt: either a verified
// identity, or a classified failure. Exactly one of the two is set.
type Outcome struct {
	Identity *Identity
	Kind     ErrorKind
	Reason   string
}

// OK reports whether the outcome is a success
func (o Outcome) OK() bool {
	return o.Identity != nil && o.Identity.Subject != ""
}

// Success builds a success outcome for the given identity
func Success(identity *Identity) Outcome {
	return Outcome{Identity: identity}
}

// Failure builds a failure outcome with a classification and a log-only reason
func Failure(kind ErrorKind, reason string) Outcome {
	return Outcome{Kind: kind, Reason: reason}
}

// Strategy is one pluggable method of verifying a request credential.
// Authenticate must be a pure function of the request's header and cookie
// set: no response writes, no state mutation, same outcome on repeat calls.
type Strategy interface {
	// Name returns the name of this strategy
	Name() string

	// Authenticate inspects the request and produces an outcome
	Authenticate(r *http.Request) Outcome
}

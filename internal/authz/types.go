// internal/authz/types.go
package authz

import (
	"context"

	"authgate/internal/auth"
)

// Decision represents an authorization decision
type Decision int

const (
	// Allow indicates the request is allowed
	Allow Decision = iota
	// Deny indicates the identity lacks the required role
	Deny
	// Unauthorized indicates the request carries no verified identity
	Unauthorized
	// Error indicates an error occurred during authorization
	Error
)

// Request represents an authorization check
type Request struct {
	// Identity is the identity to authorize; nil when authentication failed
	Identity *auth.Identity

	// Role is the required role; empty means any authenticated identity
	Role string

	// Context is the request context
	Context context.Context
}

// Response represents the result of an authorization check
type Response struct {
	// Decision is the authorization decision
	Decision Decision

	// Reason provides additional information about the decision
	Reason string

	// Error is set if an error occurred during authorization
	Error error
}

// Authorizer decides whether an identity satisfies a required role
type Authorizer interface {
	// Authorize checks the identity against the required role
	Authorize(req *Request) *Response
}

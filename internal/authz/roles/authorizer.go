// internal/authz/roles/authorizer.go

// Package roles implements the in-process authorization gate: a pure
// decision over the role claims carried by the verified identity.
package roles

import (
	"authgate/internal/authz"
	"authgate/internal/observability/logging"
)

// Authorizer decides from the identity's own role claims
type Authorizer struct {
	logger *logging.Logger
}

// New creates a role-claims authorizer
func New(logger *logging.Logger) *Authorizer {
	return &Authorizer{
		logger: logger.WithModule("authz.roles"),
	}
}

// Authorize applies the three-way contract: no identity is Unauthorized, a
// missing required role is Deny, everything else is Allow.
func (a *Authorizer) Authorize(req *authz.Request) *authz.Response {
	if req.Identity == nil {
		return &authz.Response{
			Decision: authz.Unauthorized,
			Reason:   "No identity provided",
		}
	}

	if req.Role == "" {
		return &authz.Response{
			Decision: authz.Allow,
			Reason:   "Authenticated, no role required",
		}
	}

	if req.Identity.HasRole(req.Role) {
		return &authz.Response{
			Decision: authz.Allow,
			Reason:   "Role present",
		}
	}

	a.logger.Debug("Role check failed",
		"subject", req.Identity.Subject,
		"required_role", req.Role,
	)
	return &authz.Response{
		Decision: authz.Deny,
		Reason:   "Required role not held",
	}
}

// internal/authz/spicedb/authorizer.go

// Package spicedb implements the authorization gate against an external
// SpiceDB instance: the required role is checked as a permission on a
// configured resource instead of being read from the identity's claims.
package spicedb

import (
	"context"
	"crypto/tls"
	"fmt"

	"authgate/internal/authz"
	"authgate/internal/observability/logging"

	v1pb "github.com/authzed/authzed-go/proto/authzed/api/v1"
	"github.com/authzed/authzed-go/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// Authorizer implements authorization using SpiceDB
type Authorizer struct {
	client       *authzed.Client
	resourceType string
	resourceID   string
	subjectType  string
	logger       *logging.Logger
}

// Config holds SpiceDB authorizer configuration
type Config struct {
	// Endpoint is the SpiceDB endpoint
	Endpoint string

	// Insecure indicates whether to use an insecure connection
	Insecure bool

	// Token is the SpiceDB authentication token
	Token string

	// ResourceType is the SpiceDB resource type
	ResourceType string

	// ResourceID is the SpiceDB resource ID
	ResourceID string

	// SubjectType is the SpiceDB subject type
	SubjectType string
}

// New creates a SpiceDB authorizer and connects the client
func New(config Config, logger *logging.Logger) (*Authorizer, error) {
	opts := []grpc.DialOption{
		grpc.WithPerRPCCredentials(bearerToken{token: config.Token, insecure: config.Insecure}),
	}
	if config.Insecure {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})))
	}

	client, err := authzed.NewClient(config.Endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SpiceDB client: %w", err)
	}

	return &Authorizer{
		client:       client,
		resourceType: config.ResourceType,
		resourceID:   config.ResourceID,
		subjectType:  config.SubjectType,
		logger:       logger.WithModule("authz.spicedb"),
	}, nil
}

// Authorize checks the required role as a SpiceDB permission
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

	checkReq := &v1pb.CheckPermissionRequest{
		Resource: &v1pb.ObjectReference{
			ObjectType: a.resourceType,
			ObjectId:   a.resourceID,
		},
		Permission: req.Role,
		Subject: &v1pb.SubjectReference{
			Object: &v1pb.ObjectReference{
				ObjectType: a.subjectType,
				ObjectId:   req.Identity.Subject,
			},
		},
	}

	// Use the request context so cancellation propagates to the check call
	resp, err := a.client.CheckPermission(req.Context, checkReq)
	if err != nil {
		a.logger.Error("Error checking permission with SpiceDB",
			logging.Err(err),
			"subject", req.Identity.Subject,
			"role", req.Role,
		)
		return &authz.Response{
			Decision: authz.Error,
			Reason:   "Error checking permission",
			Error:    err,
		}
	}

	if resp.GetPermissionship() == v1pb.CheckPermissionResponse_PERMISSIONSHIP_HAS_PERMISSION {
		return &authz.Response{
			Decision: authz.Allow,
			Reason:   "Permission granted",
		}
	}

	return &authz.Response{
		Decision: authz.Deny,
		Reason:   "Permission denied",
	}
}

// bearerToken supplies the SpiceDB pre-shared token on every RPC
type bearerToken struct {
	token    string
	insecure bool
}

func (b bearerToken) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + b.token}, nil
}

func (b bearerToken) RequireTransportSecurity() bool {
	return !b.insecure
}

package roles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate/internal/auth"
	"authgate/internal/authz"
	"authgate/internal/observability/logging"
)

func TestAuthorize(t *testing.T) {
	logger, err := logging.NewLogger("error")
	require.NoError(t, err)
	a := New(logger)

	tests := []struct {
		name     string
		identity *auth.Identity
		role     string
		want     authz.Decision
	}{
		{
			name: "no identity is unauthorized",
			role: "Administrator",
			want: authz.Unauthorized,
		},
		{
			name:     "no required role allows any identity",
			identity: &auth.Identity{Subject: "API User"},
			want:     authz.Allow,
		},
		{
			name:     "required role held",
			identity: &auth.Identity{Subject: "alice", Roles: []string{"Administrator"}},
			role:     "Administrator",
			want:     authz.Allow,
		},
		{
			name:     "required role missing",
			identity: &auth.Identity{Subject: "API User", Roles: []string{"Reader"}},
			role:     "Administrator",
			want:     authz.Deny,
		},
		{
			name:     "role comparison is case-sensitive",
			identity: &auth.Identity{Subject: "alice", Roles: []string{"administrator"}},
			role:     "Administrator",
			want:     authz.Deny,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := a.Authorize(&authz.Request{
				Identity: tt.identity,
				Role:     tt.role,
				Context:  context.Background(),
			})
			assert.Equal(t, tt.want, resp.Decision)
		})
	}
}

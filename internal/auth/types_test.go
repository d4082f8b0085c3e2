package auth

import "testing"

func TestOutcomeOK(t *testing.T) {
	tests := []struct {
		name    string
		outcome Outcome
		want    bool
	}{
		{
			name:    "success with subject",
			outcome: Success(&Identity{Subject: "alice", Scheme: "apikey"}),
			want:    true,
		},
		{
			name:    "failure",
			outcome: Failure(ErrInvalidCredential, "nope"),
			want:    false,
		},
		{
			name:    "identity without subject is not a success",
			outcome: Outcome{Identity: &Identity{}},
			want:    false,
		},
		{
			name:    "zero value",
			outcome: Outcome{},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.outcome.OK(); got != tt.want {
				t.Errorf("OK() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIdentityHasRole(t *testing.T) {
	id := &Identity{Subject: "alice", Roles: []string{"Reader", "Administrator"}}

	if !id.HasRole("Administrator") {
		t.Error("expected Administrator role to be held")
	}
	if id.HasRole("administrator") {
		t.Error("role comparison must be case-sensitive")
	}
	if id.HasRole("Writer") {
		t.Error("unexpected Writer role")
	}

	var nilIdentity *Identity
	if nilIdentity.HasRole("Reader") {
		t.Error("nil identity must hold no roles")
	}
}

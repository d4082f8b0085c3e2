// internal/auth/store/store.go

// Package store abstracts the lookup of API-key credentials so strategies
// never hard-code accounts. Implementations must be safe for concurrent use
// after construction.
package store

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
)

// ErrKeyNotFound is returned when no credential matches the presented key
var ErrKeyNotFound = errors.New("api key not found")

// Credential is the verifier material stored for one API key
type Credential struct {
	// Subject is the identity name granted to callers presenting this key
	Subject string

	// Roles are the role claims granted with this key
	Roles []string
}

// Store looks up the credential granted by a presented API key
type Store interface {
	// LookupKey resolves a raw presented key to its credential, or
	// ErrKeyNotFound when the key does not verify
	LookupKey(ctx context.Context, key string) (*Credential, error)
}

// StaticStore holds a single pre-shared key configured at startup. The
// comparison is constant-time.
type StaticStore struct {
	key        []byte
	credential Credential
}

// NewStaticStore creates a store for one pre-shared key. An empty key is an
// operational misconfiguration and fails fast.
func NewStaticStore(key, subject string, roles []string) (*StaticStore, error) {
	if key == "" {
		return nil, fmt.Errorf("static API key must not be empty")
	}
	if subject == "" {
		return nil, fmt.Errorf("static API key subject must not be empty")
	}
	return &StaticStore{
		key: []byte(key),
		credential: Credential{
			Subject: subject,
			Roles:   roles,
		},
	}, nil
}

// LookupKey compares the presented key against the configured one
func (s *StaticStore) LookupKey(_ context.Context, key string) (*Credential, error) {
	if subtle.ConstantTimeCompare(s.key, []byte(key)) != 1 {
		return nil, ErrKeyNotFound
	}
	cred := s.credential
	return &cred, nil
}

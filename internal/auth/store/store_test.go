package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticStoreLookup(t *testing.T) {
	s, err := NewStaticStore("secret123", "API User", []string{"Reader"})
	require.NoError(t, err)

	cred, err := s.LookupKey(context.Background(), "secret123")
	require.NoError(t, err)
	assert.Equal(t, "API User", cred.Subject)
	assert.Equal(t, []string{"Reader"}, cred.Roles)

	_, err = s.LookupKey(context.Background(), "secret124")
	assert.True(t, errors.Is(err, ErrKeyNotFound))

	// One-character case difference must not match
	_, err = s.LookupKey(context.Background(), "Secret123")
	assert.True(t, errors.Is(err, ErrKeyNotFound))

	_, err = s.LookupKey(context.Background(), "")
	assert.True(t, errors.Is(err, ErrKeyNotFound))
}

func TestNewStaticStoreFailsFast(t *testing.T) {
	_, err := NewStaticStore("", "API User", nil)
	assert.Error(t, err, "empty key must be rejected at startup")

	_, err = NewStaticStore("secret123", "", nil)
	assert.Error(t, err, "empty subject must be rejected at startup")
}

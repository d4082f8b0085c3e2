package session

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestSealOpenRoundtrip(t *testing.T) {
	codec, err := NewCodec(testSecret)
	require.NoError(t, err)

	in := Session{
		Subject: "alice@example.com",
		Email:   "alice@example.com",
		Roles:   []string{"Administrator"},
		Expiry:  time.Now().Add(time.Hour).Truncate(time.Second),
	}

	sealed, err := codec.Seal(in)
	require.NoError(t, err)
	assert.NotContains(t, sealed, "alice", "sealed value must not leak the subject")

	out, err := codec.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, in.Subject, out.Subject)
	assert.Equal(t, in.Roles, out.Roles)
	assert.True(t, in.Expiry.Equal(out.Expiry))
}

func TestOpenRejectsTamperedValue(t *testing.T) {
	codec, err := NewCodec(testSecret)
	require.NoError(t, err)

	sealed, err := codec.Seal(Session{Subject: "alice", Expiry: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	// Flip one character of the ciphertext
	tampered := []byte(sealed)
	if tampered[10] == 'A' {
		tampered[10] = 'B'
	} else {
		tampered[10] = 'A'
	}

	_, err = codec.Open(string(tampered))
	assert.Error(t, err)

	_, err = codec.Open("not base64 at all!!")
	assert.Error(t, err)

	_, err = codec.Open("")
	assert.Error(t, err)
}

func TestOpenRejectsExpiredSession(t *testing.T) {
	codec, err := NewCodec(testSecret)
	require.NoError(t, err)

	sealed, err := codec.Seal(Session{Subject: "alice", Expiry: time.Now().Add(-time.Minute)})
	require.NoError(t, err)

	_, err = codec.Open(sealed)
	assert.True(t, errors.Is(err, ErrExpired))
}

func TestNewCodecRequiresLongSecret(t *testing.T) {
	_, err := NewCodec("too short")
	assert.Error(t, err)

	_, err = NewCodec(strings.Repeat("x", MinSecretLen))
	assert.NoError(t, err)
}

func TestOpenWithDifferentKeyFails(t *testing.T) {
	sealer, err := NewCodec(testSecret)
	require.NoError(t, err)
	opener, err := NewCodec(strings.Repeat("y", MinSecretLen))
	require.NoError(t, err)

	sealed, err := sealer.Seal(Session{Subject: "alice", Expiry: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	_, err = opener.Open(sealed)
	assert.Error(t, err)
}

package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueVerifyRoundtrip(t *testing.T) {
	issuer := NewIssuer(Config{Secret: "test-secret", Issuer: "shopfloor-test", TTL: time.Hour})

	now := time.Now().UTC()
	signed, expiresAt, err := issuer.Issue("123456789", "LINE_MANAGER", now)
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(time.Hour), expiresAt, time.Second)

	claims, err := issuer.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "123456789", claims.UserID)
	assert.Equal(t, "123456789", claims.Subject)
	assert.Equal(t, "LINE_MANAGER", claims.Role)
	assert.Equal(t, "shopfloor-test", claims.Issuer)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	issuer := NewIssuer(Config{Secret: "test-secret", TTL: time.Hour})
	other := NewIssuer(Config{Secret: "another-secret", TTL: time.Hour})

	signed, _, err := other.Issue("1", "WORKER", time.Now().UTC())
	require.NoError(t, err)

	_, err = issuer.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuer := NewIssuer(Config{Secret: "test-secret", TTL: time.Hour})

	signed, _, err := issuer.Issue("1", "WORKER", time.Now().UTC().Add(-2*time.Hour))
	require.NoError(t, err)

	_, err = issuer.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer := NewIssuer(Config{Secret: "test-secret", TTL: time.Hour})

	_, err := issuer.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

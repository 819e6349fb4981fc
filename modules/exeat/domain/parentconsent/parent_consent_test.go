package parentconsent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewToken_UnpredictableAndWellFormed(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		token, err := NewToken()
		require.NoError(t, err)
		require.Len(t, token, 64)
		_, dup := seen[token]
		require.False(t, dup, "token repeated")
		seen[token] = struct{}{}
	}
}

func TestNew_SetsPendingAndExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c, err := New(7, MethodEmail, "please approve", nil, 0, now)
	require.NoError(t, err)
	require.Equal(t, StatusPending, c.Status)
	require.Equal(t, now.Add(TokenTTL), c.ExpiresAt)
	require.NotEmpty(t, c.Token)
}

func TestNew_HonorsConfiguredTTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c, err := New(7, MethodSMS, "please approve", nil, 48*time.Hour, now)
	require.NoError(t, err)
	require.Equal(t, now.Add(48*time.Hour), c.ExpiresAt)
}

func TestResolve_Pending(t *testing.T) {
	now := time.Now()
	c := ParentConsent{RequestID: 1, Status: StatusPending, ExpiresAt: now.Add(time.Hour)}

	resolved, err := c.Resolve(StatusApproved, now)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, resolved.Status)
	require.NotNil(t, resolved.ConsentedAt)
	require.Equal(t, now, *resolved.ConsentedAt)
}

func TestResolve_AlreadyResolved(t *testing.T) {
	now := time.Now()
	c := ParentConsent{Status: StatusApproved, ExpiresAt: now.Add(time.Hour)}

	_, err := c.Resolve(StatusDeclined, now)
	require.ErrorIs(t, err, ErrAlreadyResolved)
}

func TestResolve_Expired(t *testing.T) {
	now := time.Now()
	c := ParentConsent{Status: StatusPending, ExpiresAt: now.Add(-time.Minute)}

	_, err := c.Resolve(StatusApproved, now)
	require.ErrorIs(t, err, ErrExpired)
	require.Equal(t, StatusPending, c.Status)
}

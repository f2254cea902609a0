package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithAuthRoundTrip(t *testing.T) {
	info := AuthInfo{
		RawToken: "00Dxx!token",
		Claims: Claims{
			Subject:  "admin@example.com",
			Issuer:   "https://login.example.com",
			Scope:    "full",
			TenantID: "00Dxx0000001",
		},
	}

	ctx := WithAuth(context.Background(), info)
	got, ok := FromAuth(ctx)
	require.True(t, ok)
	require.Equal(t, info, got)
}

func TestFromAuthMapEncoding(t *testing.T) {
	ctx := context.WithValue(context.Background(), ContextKey, map[string]interface{}{
		"token": "00Dxx!token",
		"claims": map[string]interface{}{
			"sub":       "admin@example.com",
			"iss":       "https://login.example.com",
			"tenant_id": "00Dxx0000001",
		},
	})

	got, ok := FromAuth(ctx)
	require.True(t, ok)
	require.Equal(t, "00Dxx!token", got.RawToken)
	require.Equal(t, "admin@example.com", got.Claims.Subject)
	require.Equal(t, "00Dxx0000001", got.Claims.TenantID)
}

func TestFromAuthFlatMap(t *testing.T) {
	ctx := context.WithValue(context.Background(), ContextKey, map[string]interface{}{
		"sub":   "ci@example.com",
		"scope": "readonly",
	})

	got, ok := FromAuth(ctx)
	require.True(t, ok)
	require.Equal(t, "ci@example.com", got.Claims.Subject)
	require.Equal(t, "readonly", got.Claims.Scope)
}

func TestFromAuthAbsent(t *testing.T) {
	_, ok := FromAuth(context.Background())
	require.False(t, ok)
}

package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLogger_DefaultLevels(t *testing.T) {
	logger := NewLogger("compare")

	require.Equal(t, "compare", logger.GetComponent())
	require.True(t, logger.isEnabled(LevelWarn))
	require.True(t, logger.isEnabled(LevelError))
	require.True(t, logger.isEnabled(LevelInfo))
}

func TestSetLogLevel_PerComponent(t *testing.T) {
	SetLogLevel("migrate", LevelDebug)
	defer SetLogLevel("migrate", LevelInfo)

	require.True(t, MigrateLogger.IsDebugEnabled())
	require.False(t, CompareLogger.IsDebugEnabled())
}

func TestEnableComponentDebug(t *testing.T) {
	EnableComponentDebug("fetch")
	defer SetLogLevel("fetch", LevelInfo)

	require.True(t, FetchLogger.IsDebugEnabled())
}

func TestSanitizeFieldValue_RedactsSensitiveKeys(t *testing.T) {
	require.Equal(t, "<redacted>", sanitizeFieldValue("access_token", "s3cr3t"))
	require.Equal(t, "<redacted>", sanitizeFieldValue("SessionId", "abc"))
	require.Equal(t, "Account", sanitizeFieldValue("object", "Account"))

	// Run correlators stay visible; only platform session credentials
	// are redacted.
	require.Equal(t, "7f3c2a", sanitizeFieldValue("run_id", "7f3c2a"))
}

func TestLevelString(t *testing.T) {
	require.Equal(t, "INFO", LevelInfo.String())
	require.Equal(t, "DEBUG", LevelDebug.String())
	require.Equal(t, "WARN", LevelWarn.String())
	require.Equal(t, "ERROR", LevelError.String())
}

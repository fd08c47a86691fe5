package contract

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSoftLimitBytes_DefaultsWhenUnset(t *testing.T) {
	os.Unsetenv("FUNCQC_SOFT_LIMIT_BYTES")
	require.Equal(t, DefaultSoftLimitBytes, SoftLimitBytes())
}

func TestSoftLimitBytes_HonorsEnvOverride(t *testing.T) {
	t.Setenv("FUNCQC_SOFT_LIMIT_BYTES", "1024")
	require.Equal(t, 1024, SoftLimitBytes())
}

func TestSoftLimitBytes_IgnoresInvalidEnv(t *testing.T) {
	t.Setenv("FUNCQC_SOFT_LIMIT_BYTES", "not-a-number")
	require.Equal(t, DefaultSoftLimitBytes, SoftLimitBytes())
}

func TestValidateBatchScript_AcceptsSmallFiles(t *testing.T) {
	result := ValidateBatchScript(`[{"semanticId":"sem1","description":"does a thing"}]`)
	require.True(t, result.OK)
}

func TestValidateBatchScript_RejectsOversizedFiles(t *testing.T) {
	t.Setenv("FUNCQC_SOFT_LIMIT_BYTES", "10")
	result := ValidateBatchScript(strings.Repeat("x", 11))
	require.False(t, result.OK)
	require.Contains(t, result.Message, "exceeds soft limit")
}

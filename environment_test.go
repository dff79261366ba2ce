package switchback_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xy-planning-network/switchback"
)

func TestEnvironmentValid(t *testing.T) {
	for _, tc := range []struct {
		name  string
		input switchback.Environment
		err   error
	}{
		{"Demo", switchback.Demo, nil},
		{"Development", switchback.Development, nil},
		{"Production", switchback.Production, nil},
		{"Review", switchback.Review, nil},
		{"Staging", switchback.Staging, nil},
		{"Testing", switchback.Testing, nil},
		{"Zero-Value", switchback.Environment(""), switchback.ErrNotValid},
		{"Unknown", switchback.Environment("LOCAL"), switchback.ErrNotValid},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, tc.input.Valid(), tc.err)
		})
	}
}

func TestEnvVarOrBool(t *testing.T) {
	// Arrange
	key := "TEST_BOOL"

	// Act + Assert
	require.True(t, switchback.EnvVarOrBool(key, true))

	t.Setenv(key, "TRUE")
	require.True(t, switchback.EnvVarOrBool(key, false))

	t.Setenv(key, "false")
	require.False(t, switchback.EnvVarOrBool(key, true))

	t.Setenv(key, "not-a-bool")
	require.True(t, switchback.EnvVarOrBool(key, true))
}

func TestEnvVarOrDuration(t *testing.T) {
	// Arrange
	key := "TEST_DURATION"
	def := 5 * time.Second

	// Act + Assert
	require.Equal(t, def, switchback.EnvVarOrDuration(key, def))

	t.Setenv(key, "90s")
	require.Equal(t, 90*time.Second, switchback.EnvVarOrDuration(key, def))

	t.Setenv(key, "750")
	require.Equal(t, def, switchback.EnvVarOrDuration(key, def))
}

func TestEnvVarOrEnv(t *testing.T) {
	// Arrange
	key := "TEST_ENVIRONMENT"

	// Act + Assert
	require.Equal(t, switchback.Development, switchback.EnvVarOrEnv(key, switchback.Development))

	t.Setenv(key, "staging")
	require.Equal(t, switchback.Staging, switchback.EnvVarOrEnv(key, switchback.Development))

	t.Setenv(key, "PRODUCTION")
	require.Equal(t, switchback.Production, switchback.EnvVarOrEnv(key, switchback.Development))

	t.Setenv(key, "nonsense")
	require.Equal(t, switchback.Development, switchback.EnvVarOrEnv(key, switchback.Development))
}

func TestEnvVarOrInt(t *testing.T) {
	// Arrange
	key := "TEST_INT"

	// Act + Assert
	require.Equal(t, 42, switchback.EnvVarOrInt(key, 42))

	t.Setenv(key, "1024")
	require.Equal(t, 1024, switchback.EnvVarOrInt(key, 42))

	t.Setenv(key, "10.24")
	require.Equal(t, 42, switchback.EnvVarOrInt(key, 42))
}

func TestEnvVarOrString(t *testing.T) {
	// Arrange
	key := "TEST_STRING"

	// Act + Assert
	require.Equal(t, "fallback", switchback.EnvVarOrString(key, "fallback"))

	t.Setenv(key, "set")
	require.Equal(t, "set", switchback.EnvVarOrString(key, "fallback"))
}

func TestEnvVarOrURL(t *testing.T) {
	// Arrange
	key := "TEST_URL"
	def := "https://example.com"

	// Act + Assert
	require.Equal(t, "https://example.com/", switchback.EnvVarOrURL(key, def).String())

	t.Setenv(key, "https://switchback.example.com/base")
	require.Equal(t, "https://switchback.example.com/base", switchback.EnvVarOrURL(key, def).String())

	t.Setenv(key, "not a url")
	require.Equal(t, "https://example.com/", switchback.EnvVarOrURL(key, def).String())
}

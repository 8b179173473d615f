package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBool(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    bool
		wantErr bool
	}{
		{"1", "1", true, false},
		{"true mixedcase", "tRuE", true, false},
		{"yes uppercase", "YES", true, false},
		{"0", "0", false, false},
		{"false titlecase", "False", false, false},
		{"no", "no", false, false},
		{"empty", "", false, false},
		{"true with tabs and newlines", "\ttrue\n", true, false},
		{"t", "t", false, true},
		{"on", "on", false, true},
		{"2", "2", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBool(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidBool)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBoolEnv(t *testing.T) {
	t.Setenv(Production, "yes")
	got, err := ParseBoolEnv(Production)
	require.NoError(t, err)
	assert.True(t, got)

	t.Setenv(Production, "enabled")
	_, err = ParseBoolEnv(Production)
	require.ErrorIs(t, err, ErrInvalidBool)
}

func TestFailsafeParseBoolEnv(t *testing.T) {
	const envVar = "TEST_THEMEPIPE_FAILSAFE"

	assert.True(t, FailsafeParseBoolEnv(envVar, true), "unset keeps default")

	t.Setenv(envVar, "enabled")
	assert.False(t, FailsafeParseBoolEnv(envVar, false), "invalid keeps default")

	t.Setenv(envVar, "  false  ")
	assert.False(t, FailsafeParseBoolEnv(envVar, true))
}

func TestLookupInt(t *testing.T) {
	t.Setenv(Port, "")
	_, ok, err := LookupInt(Port)
	require.NoError(t, err)
	assert.False(t, ok)

	t.Setenv(Port, " 8080 ")
	n, ok, err := LookupInt(Port)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 8080, n)

	t.Setenv(Port, "eighty")
	_, ok, err = LookupInt(Port)
	require.ErrorIs(t, err, ErrInvalidInt)
	assert.True(t, ok)
	assert.Contains(t, err.Error(), Port)
}

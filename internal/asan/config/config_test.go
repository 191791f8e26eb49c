package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultEnablesAllChecking(t *testing.T) {
	f := Default()
	require.True(t, f.ReplaceIntrin, "intrinsic checking should default on")
	require.True(t, f.ReplaceStr, "string checking should default on")
	require.Equal(t, 0, f.Verbosity, "verbosity should default quiet")
}

func TestParseEmptyIsDefault(t *testing.T) {
	f, err := Parse("")
	require.NoError(t, err)
	require.Equal(t, Default(), f)
}

func TestParseOptions(t *testing.T) {
	f, err := Parse("replace_intrin=0:replace_str=0:verbosity=2")
	require.NoError(t, err)
	require.False(t, f.ReplaceIntrin)
	require.False(t, f.ReplaceStr)
	require.Equal(t, 2, f.Verbosity)
}

func TestParsePartialKeepsDefaults(t *testing.T) {
	f, err := Parse("verbosity=1")
	require.NoError(t, err)
	require.True(t, f.ReplaceIntrin)
	require.True(t, f.ReplaceStr)
	require.Equal(t, 1, f.Verbosity)
}

func TestParseBoolSpellings(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want bool
	}{
		{"replace_str=0", false},
		{"replace_str=false", false},
		{"replace_str=1", true},
		{"replace_str=true", true},
	} {
		f, err := Parse(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, f.ReplaceStr, tc.in)
	}
}

func TestParseRejectsMalformedInput(t *testing.T) {
	for _, in := range []string{
		"replace_str",          // no value
		"replace_str=2",        // not boolean
		"verbosity=-1",         // negative
		"verbosity=loud",       // not a number
		"handle_segv=1",        // unknown key
		"replace_intrin=0:bad", // trailing junk
	} {
		_, err := Parse(in)
		require.Error(t, err, "input %q should be rejected", in)
	}
}

func TestParseIgnoresEmptySegments(t *testing.T) {
	f, err := Parse("replace_str=0::verbosity=1:")
	require.NoError(t, err)
	require.False(t, f.ReplaceStr)
	require.Equal(t, 1, f.Verbosity)
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvVar, "verbosity=3")
	f, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, 3, f.Verbosity)
}

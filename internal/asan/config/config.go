// Package config holds the runtime-configurable flags for the sanitizer.
//
// Flags are parsed exactly once from the GOASAN environment variable at
// startup and are read-only afterward. The interception core never mutates
// them; it only consults them to decide whether a wrapper validates its
// touch pattern before delegating to the real routine.
//
// Format (colon-separated key=value pairs, matching the GORACE convention):
//
//	GOASAN=replace_intrin=0:replace_str=1:verbosity=2
//
// Unknown keys are rejected so that a typo in an option name fails loudly
// instead of silently running with default behavior.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvVar is the environment variable consulted by FromEnv.
const EnvVar = "GOASAN"

// Flags is the set of runtime toggles consumed by the interception core.
//
// All fields are set before the runtime transitions to Initialized and are
// never written afterward, so wrappers may read them without synchronization.
type Flags struct {
	// ReplaceIntrin controls whether the memory intrinsics (memcpy, memmove,
	// memset) validate their touch pattern. When false the wrappers still
	// delegate to the real routine, they just skip the checks. This is the
	// compatibility fallback for code that relies on technically-undefined
	// intrinsic behavior.
	ReplaceIntrin bool

	// ReplaceStr controls the same toggle for the string routines
	// (strchr, strcat, strcpy, strdup, strlen, strncpy, strnlen, ...).
	ReplaceStr bool

	// Verbosity controls informational notices. Zero suppresses everything
	// except error reports; 1 enables startup banners; 2 and above enable
	// per-subsystem chatter.
	Verbosity int
}

// Default returns the flag values used when GOASAN is unset or empty:
// full checking, quiet output.
func Default() Flags {
	return Flags{
		ReplaceIntrin: true,
		ReplaceStr:    true,
		Verbosity:     0,
	}
}

// FromEnv parses flags from the GOASAN environment variable.
//
// An unset or empty variable yields Default(). A malformed value is a
// startup error: the caller is expected to treat it as fatal, because
// running with half-applied options would make diagnostics misleading.
func FromEnv() (Flags, error) {
	return Parse(os.Getenv(EnvVar))
}

// Parse parses a GOASAN-style option string into Flags.
//
// The empty string is valid and yields Default(). Each option is a
// key=value pair; pairs are separated by colons:
//
//	f, err := config.Parse("replace_str=0:verbosity=1")
func Parse(s string) (Flags, error) {
	f := Default()
	if s == "" {
		return f, nil
	}

	for _, opt := range strings.Split(s, ":") {
		if opt == "" {
			continue
		}
		key, value, found := strings.Cut(opt, "=")
		if !found {
			return f, fmt.Errorf("config: option %q is not key=value", opt)
		}

		switch key {
		case "replace_intrin":
			b, err := parseBool(key, value)
			if err != nil {
				return f, err
			}
			f.ReplaceIntrin = b
		case "replace_str":
			b, err := parseBool(key, value)
			if err != nil {
				return f, err
			}
			f.ReplaceStr = b
		case "verbosity":
			v, err := strconv.Atoi(value)
			if err != nil || v < 0 {
				return f, fmt.Errorf("config: verbosity %q is not a non-negative integer", value)
			}
			f.Verbosity = v
		default:
			return f, fmt.Errorf("config: unknown option %q", key)
		}
	}

	return f, nil
}

// parseBool accepts the 0/1 spelling used by the sanitizer option strings
// as well as the Go spellings (true/false).
func parseBool(key, value string) (bool, error) {
	switch value {
	case "0", "false":
		return false, nil
	case "1", "true":
		return true, nil
	}
	return false, fmt.Errorf("config: option %s=%q is not boolean (use 0 or 1)", key, value)
}

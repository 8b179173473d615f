// Package env reads themepipe's environment overrides.
package env

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variables consulted at startup.
const (
	Production = "THEMEPIPE_PRODUCTION"
	Port       = "THEMEPIPE_PORT"
	Debug      = "THEMEPIPE_DEBUG"
	Verbose    = "THEMEPIPE_VERBOSE"
	DryRun     = "THEMEPIPE_DRYRUN"
)

// ErrInvalidBool is returned when a string cannot be parsed as a boolean.
var ErrInvalidBool = errors.New("invalid boolean value")

// ErrInvalidInt is returned when a string cannot be parsed as an integer.
var ErrInvalidInt = errors.New("invalid integer value")

// ParseBool interprets a string as a boolean.
// It trims leading and trailing whitespace, then lowercases the value
// before matching.
//
// Accepted values (case-insensitive, after trimming):
//   - "true", "yes", "1"  -> true
//   - "false", "no", "0"  -> false
//   - "" (empty)          -> false, nil error
//   - any other non-empty -> false, ErrInvalidBool
func ParseBool(value string) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return false, nil
	}

	switch strings.ToLower(value) {
	case "true", "yes", "1":
		return true, nil
	case "false", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrInvalidBool, value)
	}
}

// ParseBoolEnv reads an environment variable and parses it as a boolean
// using ParseBool. Unset variables are treated the same as empty strings.
func ParseBoolEnv(envVar string) (bool, error) {
	v := os.Getenv(envVar)
	return ParseBool(v)
}

// FailsafeParseBoolEnv reads an environment variable and parses it as a boolean.
// It returns defaultValue if the variable is unset, empty, or contains an invalid
// value.
func FailsafeParseBoolEnv(envVar string, defaultValue bool) bool {
	v, ok := os.LookupEnv(envVar)
	if !ok || v == "" {
		return defaultValue
	}

	b, err := ParseBool(v)
	if err != nil {
		return defaultValue
	}

	return b
}

// LookupInt reads an environment variable as a base-10 integer. The second
// result is false when the variable is unset or empty.
func LookupInt(envVar string) (int, bool, error) {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, true, fmt.Errorf("%s: %w: %q", envVar, ErrInvalidInt, v)
	}
	return n, true, nil
}

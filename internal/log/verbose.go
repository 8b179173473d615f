package log

import (
	"sync"
	"sync/atomic"

	"github.com/yaklabco/themepipe/pkg/env"
)

//nolint:gochecknoglobals // process-wide verbosity
var (
	verbose    atomic.Bool
	verboseEnv = sync.OnceValue(func() bool {
		return env.FailsafeParseBoolEnv(env.Verbose, false)
	})
)

// SetVerbose turns verbose console output on or off.
func SetVerbose(v bool) {
	verbose.Store(v)
}

// Verbose reports whether --verbose or THEMEPIPE_VERBOSE is in effect.
func Verbose() bool {
	return verbose.Load() || verboseEnv()
}

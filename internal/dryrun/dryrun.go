// Package dryrun implements themepipe's dry-run mode.
//
// Dry-run is requested with --dryrun or by setting THEMEPIPE_DRYRUN. While
// it is on, external commands are echoed instead of run and file writes and
// deletions are reported instead of performed.
package dryrun

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/yaklabco/themepipe/internal/log"
)

// RequestedEnv is the environment variable that requests dry-run mode.
const RequestedEnv = "THEMEPIPE_DRYRUN"

//nolint:gochecknoglobals // process-wide mode
var (
	requested    atomic.Bool
	requestedEnv = sync.OnceValue(func() bool {
		return os.Getenv(RequestedEnv) != ""
	})
)

// SetRequested turns dry-run mode on or off for the process.
func SetRequested(value bool) {
	requested.Store(value)
}

// IsDryRun reports whether dry-run mode is on.
func IsDryRun() bool {
	return requested.Load() || requestedEnv()
}

// Wrap creates an *exec.Cmd to run a command or simulate it in dry-run mode.
// If not in dry-run mode, it returns exec.CommandContext(ctx, cmd, args...).
// In dry-run mode, it returns a command that prints the simulated command.
func Wrap(ctx context.Context, cmd string, args ...string) *exec.Cmd {
	if !IsDryRun() {
		return exec.CommandContext(ctx, cmd, args...)
	}

	return exec.CommandContext(ctx, "echo", append([]string{"DRYRUN: " + cmd}, args...)...) //nolint:gosec // It's echo!
}

// Skip reports whether a filesystem side effect should be skipped, logging
// what would have happened when it is.
func Skip(op, path string) bool {
	if !IsDryRun() {
		return false
	}
	slog.Info("DRYRUN: "+op, slog.String(log.Op, op), slog.String(log.Path, path))
	return true
}

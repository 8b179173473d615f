// Package ish runs external commands and touches the filesystem on behalf of
// tasks, honouring dry-run and verbose modes.
package ish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/yaklabco/themepipe/internal/dryrun"
	"github.com/yaklabco/themepipe/internal/log"
	"github.com/yaklabco/themepipe/pkg/task"
)

// Exec executes the command, piping its stdout and stderr to the given
// writers. The child inherits the process environment. The first result
// reports whether the command actually started; false means it could not be
// (for example, the binary is missing). A child killed by a signal did start.
func Exec(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, cmd string, args ...string) (bool, error) {
	err := run(ctx, stdin, stdout, stderr, cmd, args...)
	if err == nil {
		return true, nil
	}
	if CmdRan(err) {
		code := ExitStatus(err)
		return true, task.Fatalf(code, `running "%s %s" failed with exit code %d`, cmd, strings.Join(args, " "), code)
	}
	return false, fmt.Errorf(`failed to run "%s %s": %w`, cmd, strings.Join(args, " "), err)
}

func run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, cmd string, args ...string) error {
	theCmd := dryrun.Wrap(ctx, cmd, args...)
	theCmd.Stderr = stderr
	theCmd.Stdout = stdout
	theCmd.Stdin = stdin

	if log.Verbose() {
		quoted := make([]string, 0, len(args))
		for i := range args {
			quoted = append(quoted, fmt.Sprintf("%q", args[i]))
		}
		log.SimpleConsoleLogger.Println("exec:", cmd, strings.Join(quoted, " "))
	}
	return theCmd.Run()
}

// CmdRan reports whether err came from a command that started, including one
// that exited non-zero or was killed by a signal.
func CmdRan(err error) bool {
	if err == nil {
		return true
	}
	var ee *exec.ExitError
	return errors.As(err, &ee)
}

// ExitStatus returns the exit status of the error if it is an exec.ExitError
// or if it implements ExitStatus() int. A child killed by a signal reports 1.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exit task.ExitStatuser
	if errors.As(err, &exit) {
		return exit.ExitStatus()
	}
	var e *exec.ExitError
	if errors.As(err, &e) {
		if code := e.ExitCode(); code > 0 {
			return code
		}
	}
	return 1
}

// Rm removes the given file or directory even if non-empty. A path that does
// not exist is not an error.
func Rm(path string) error {
	if dryrun.Skip("rm", path) {
		return nil
	}

	err := os.RemoveAll(path)
	if err == nil || os.IsNotExist(err) {
		return nil
	}
	return fmt.Errorf(`failed to remove %s: %w`, path, err)
}

// Output runs cmd and returns its stdout with the trailing newline trimmed.
func Output(ctx context.Context, cmd string, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	_, err := Exec(ctx, nil, buf, os.Stderr, cmd, args...)
	return strings.TrimSuffix(buf.String(), "\n"), err
}

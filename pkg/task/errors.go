package task

import (
	"errors"
	"fmt"
)

type fatalError struct {
	code int
	error
}

func (f fatalError) ExitStatus() int {
	return f.code
}

func (f fatalError) Unwrap() error {
	return f.error
}

// ExitStatuser is an interface for errors that carry an exit status code.
type ExitStatuser interface {
	ExitStatus() int
}

// Fatal returns an error that will cause themepipe to print out the
// given args and exit with the given exit code.
func Fatal(code int, args ...any) error {
	return fatalError{
		code:  code,
		error: errors.New(fmt.Sprint(args...)),
	}
}

// Fatalf returns an error that will cause themepipe to print out the
// given message and exit with the given exit code.
func Fatalf(code int, format string, args ...any) error {
	return fatalError{
		code:  code,
		error: fmt.Errorf(format, args...),
	}
}

// ExitStatus queries the error for an exit status.  If the error is nil, it
// returns 0.  If the error does not implement ExitStatus() int, it returns 1.
// Otherwise it returns the value from ExitStatus().
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exit ExitStatuser
	if errors.As(err, &exit) {
		return exit.ExitStatus()
	}
	return 1
}

type nonfatalError struct {
	error
}

func (n nonfatalError) Unwrap() error {
	return n.error
}

// Nonfatal marks err as recoverable: a Series or Parallel that sees it logs
// it and carries on with the remaining tasks. A nil err stays nil.
func Nonfatal(err error) error {
	if err == nil {
		return nil
	}
	return nonfatalError{error: err}
}

// IsNonfatal reports whether err, or anything it wraps, was marked with
// Nonfatal.
func IsNonfatal(err error) bool {
	var nf nonfatalError
	return errors.As(err, &nf)
}

func changeExit(oldExitCode, newExitCode int) int {
	if newExitCode == 0 {
		return oldExitCode
	}
	if oldExitCode == 0 {
		return newExitCode
	}
	if oldExitCode == newExitCode {
		return oldExitCode
	}
	// both different and both non-zero, just set
	// exit to 1. Nothing more we can do.
	return 1
}

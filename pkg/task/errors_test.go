package task

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFatalExit(t *testing.T) {
	expected := 99
	code := ExitStatus(Fatal(expected))
	assert.Equal(t, expected, code)
}

func TestFatalfExit(t *testing.T) {
	expected := 99
	code := ExitStatus(Fatalf(expected, "boo!"))
	assert.Equal(t, expected, code)
}

func TestExitStatusDefaults(t *testing.T) {
	assert.Equal(t, 0, ExitStatus(nil))
	assert.Equal(t, 1, ExitStatus(errors.New("plain")))
	assert.Equal(t, 4, ExitStatus(fmt.Errorf("wrapped: %w", Fatal(4, "inner"))))
}

func TestNonfatal(t *testing.T) {
	assert.NoError(t, Nonfatal(nil))

	base := errors.New("sass failed")
	err := Nonfatal(base)
	assert.True(t, IsNonfatal(err))
	assert.True(t, IsNonfatal(fmt.Errorf("styles: %w", err)))
	assert.ErrorIs(t, err, base)
	assert.False(t, IsNonfatal(base))
}

func TestChangeExit(t *testing.T) {
	assert.Equal(t, 0, changeExit(0, 0))
	assert.Equal(t, 3, changeExit(0, 3))
	assert.Equal(t, 3, changeExit(3, 0))
	assert.Equal(t, 3, changeExit(3, 3))
	assert.Equal(t, 1, changeExit(2, 3))
}

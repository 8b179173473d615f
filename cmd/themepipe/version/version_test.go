package version

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetPrefersLdflags(t *testing.T) {
	oldVersion, oldCommit, oldDate := Version, Commit, BuildDate
	t.Cleanup(func() { Version, Commit, BuildDate = oldVersion, oldCommit, oldDate })

	Version, Commit, BuildDate = "v1.2.3", "abc123", "2026-01-02T03:04:05Z"
	info := Get(t.Context())
	assert.Equal(t, "v1.2.3", info.Version)
	assert.Equal(t, "abc123", info.Commit)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), info.Built.UTC())
}

func TestGetFallsBack(t *testing.T) {
	oldVersion, oldCommit, oldDate := Version, Commit, BuildDate
	t.Cleanup(func() { Version, Commit, BuildDate = oldVersion, oldCommit, oldDate })

	Version, Commit, BuildDate = "dev", "", "not a time"
	info := Get(t.Context())
	assert.NotEmpty(t, info.Version)
}

func TestParts(t *testing.T) {
	assert.Equal(t, []string{"v1.0.0"}, Info{Version: "v1.0.0"}.Parts())
	assert.Equal(t, "v1.0.0-abc", Info{Version: "v1.0.0", Commit: "abc"}.String())
	assert.Equal(t, []string{"abc"}, Info{Version: "abc", Commit: "abc"}.Parts())
}

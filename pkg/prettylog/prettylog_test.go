package prettylog

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupLevels(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	Setup(&buf, false)
	slog.Debug("hidden detail")
	slog.Info("rebuilt", slog.String("task", "sass"))
	assert.NotContains(t, buf.String(), "hidden detail")
	assert.Contains(t, buf.String(), "rebuilt")
	assert.Contains(t, buf.String(), "task=sass")

	buf.Reset()
	Setup(&buf, true)
	slog.Debug("shown detail")
	assert.Contains(t, buf.String(), "shown detail")
}

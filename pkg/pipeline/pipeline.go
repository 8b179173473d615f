// Package pipeline builds the theme's two static artifacts: app.css from the
// Sass entry point and app.js from the ordered script list.
//
// Both pipelines hand the heavy lifting to esbuild (prefixing, transpiling,
// minifying) and differ only in what they do with the result in production
// and development mode.
package pipeline

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/yaklabco/themepipe/internal/dryrun"
	"github.com/yaklabco/themepipe/internal/log"
	"github.com/yaklabco/themepipe/pkg/fsutils"
)

const artifactPerm = 0o644

// messagesError renders esbuild diagnostics as a single error.
func messagesError(msgs []api.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	formatted := api.FormatMessages(msgs, api.FormatMessagesOptions{
		Kind: api.ErrorMessage,
	})
	return errors.New(strings.TrimSpace(strings.Join(formatted, "")))
}

// writeArtifact writes data to path unless dry-run mode is on or the file
// already holds exactly data.
func writeArtifact(path string, data []byte) error {
	if dryrun.Skip("write", path) {
		return nil
	}
	if fsutils.SameContent(path, data) {
		slog.Debug("artifact unchanged", slog.String(log.Path, path))
		return nil
	}
	if err := fsutils.WriteFileAtomic(path, data, artifactPerm); err != nil {
		return err
	}
	slog.Debug("wrote artifact", slog.String(log.Path, path), slog.Int("bytes", len(data)))
	return nil
}

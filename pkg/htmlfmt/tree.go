package htmlfmt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/yaklabco/themepipe/internal/dryrun"
	"github.com/yaklabco/themepipe/internal/log"
	"github.com/yaklabco/themepipe/internal/parallelism"
	"github.com/yaklabco/themepipe/pkg/fsutils"
)

// FormatTree reformats every *.html file under dir in place. Files whose
// formatted form is unchanged are not rewritten. A missing dir is logged and
// skipped.
func FormatTree(ctx context.Context, dir string, opts Options) error {
	files, err := htmlFiles(dir)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("nothing to lint, directory does not exist", slog.String(log.Dir, dir))
		return nil
	}
	if err != nil {
		return err
	}

	var changed atomic.Int32
	err = parallelism.Each(ctx, files, func(_ context.Context, path string) error {
		rewritten, err := formatFile(path, opts)
		if rewritten {
			changed.Add(1)
		}
		return err
	})

	slog.Info("formatted html",
		slog.String(log.Dir, dir),
		slog.Int(log.Files, len(files)),
		slog.Int("changed", int(changed.Load())),
	)
	return err
}

func htmlFiles(dir string) ([]string, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".html") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	return files, nil
}

func formatFile(path string, opts Options) (bool, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	out, err := FormatBytes(src, opts)
	if err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	if bytes.Equal(src, out) {
		return false, nil
	}
	if dryrun.Skip("format", path) {
		return false, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if err := fsutils.WriteFileAtomic(path, out, info.Mode().Perm()); err != nil {
		return false, err
	}
	return true, nil
}

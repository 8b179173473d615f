package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/yaklabco/themepipe/internal/log"
)

// install adds the directories every binding needs.
func (s *Scheduler) install() error {
	for _, b := range s.bindings {
		for _, p := range b.patterns {
			root := p.Root()
			if p.Literal() {
				if err := s.add(root); err != nil {
					return err
				}
				continue
			}
			s.mu.Lock()
			s.recursive = append(s.recursive, root)
			s.mu.Unlock()
			if err := s.addTree(root); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Scheduler) watchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watched)
}

// add watches dir alone. A missing dir is skipped.
func (s *Scheduler) add(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watched[dir] {
		return nil
	}
	if err := s.watcher.Add(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("not watching missing directory", slog.String(log.Dir, dir))
			return nil
		}
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	s.watched[dir] = true
	slog.Debug("watching directory", slog.String(log.Dir, dir))
	return nil
}

// addTree watches root and every directory below it.
func (s *Scheduler) addTree(root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return s.add(path)
	})
	if err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}
	return nil
}

// underRecursiveRoot reports whether dir should be watched because it sits
// inside a recursively watched tree.
func (s *Scheduler) underRecursiveRoot(dir string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, root := range s.recursive {
		if dir == root || strings.HasPrefix(dir, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

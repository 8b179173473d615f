package watch

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/yaklabco/themepipe/internal/log"
)

func (s *Scheduler) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	path := filepath.Clean(event.Name)

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() && s.underRecursiveRoot(path) {
			if err := s.addTree(path); err != nil {
				slog.Warn("could not watch new directory", slog.String(log.Dir, path), slog.Any(log.Error, err))
			}
		}
	}

	s.dispatch(path)
}

// dispatch triggers every binding whose patterns match path and returns how
// many did.
func (s *Scheduler) dispatch(path string) int {
	n := 0
	for _, b := range s.bindings {
		if !b.match(path) {
			continue
		}
		s.mu.Lock()
		r := s.runners[b.Name]
		s.mu.Unlock()
		if r != nil {
			r.trigger(path)
			n++
		}
	}
	return n
}

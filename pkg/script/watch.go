package script

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher observes glue paths for source changes. It backs the CLI's watch
// mode; the adapter itself never reloads a running backend, a change
// simply means the caller should build a fresh one.
type Watcher struct {
	watcher *fsnotify.Watcher
	logger  zerolog.Logger
}

// NewWatcher creates a watcher over the given glue paths. Classpath-scheme
// paths are skipped: embedded glue cannot change at runtime.
func NewWatcher(paths []string, logger zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		watcher: fw,
		logger:  logger.With().Str("component", "glue-watcher").Logger(),
	}

	for _, p := range paths {
		if strings.HasPrefix(p, ClasspathScheme) {
			continue
		}
		if err := w.addPath(p); err != nil {
			w.logger.Warn().Err(err).Str("path", p).Msg("Failed to watch glue path")
		}
	}

	return w, nil
}

func (w *Watcher) addPath(p string) error {
	info, err := os.Stat(p)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.watcher.Add(p)
	}
	return filepath.WalkDir(p, func(sub string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(sub)
		}
		return nil
	})
}

// Run blocks, invoking onChange with the changed path for every write,
// create, rename or removal of a Starlark source, until ctx is done.
func (w *Watcher) Run(ctx context.Context, onChange func(path string)) error {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, SourceSuffix) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				w.logger.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("Glue source changed")
				onChange(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

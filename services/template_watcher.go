package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// TemplateWatcher reloads HTML templates when files in a directory change.
type TemplateWatcher struct {
	dir    string
	reload func() error
	logger *slog.Logger
}

// NewTemplateWatcher creates a watcher that calls reload after every
// change to an .html or .tmpl file in dir.
func NewTemplateWatcher(dir string, reload func() error, logger *slog.Logger) *TemplateWatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TemplateWatcher{
		dir:    dir,
		reload: reload,
		logger: logger.With("component", "template-watcher"),
	}
}

// Watch blocks until ctx is cancelled. A failing reload is logged and the
// previous templates stay in use.
func (w *TemplateWatcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create template watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching templates", "dir", w.dir)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isTemplateFile(event.Name) {
				continue
			}
			// Editors often write through a temp file and a rename, so every
			// kind of change triggers the same full reload.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("template changed", "file", event.Name, "op", event.Op.String())
			if err := w.reload(); err != nil {
				w.logger.Error("template reload failed", "error", err)
				continue
			}
			w.logger.Info("templates reloaded", "file", filepath.Base(event.Name))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("template watcher error", "error", err)

		case <-ctx.Done():
			w.logger.Debug("template watcher stopped")
			return nil
		}
	}
}

func isTemplateFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".tmpl":
		return true
	default:
		return false
	}
}

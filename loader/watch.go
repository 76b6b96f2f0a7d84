package loader

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch invalidates compiled partials when their files change.
//
// Every directory of the search path, and each directory below it, is
// watched until ctx is done or [Repository.Close] is called. Watch returns
// once the watcher is running.
func (r *Repository) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return ErrWatch.Wrap(err)
	}

	for _, dir := range r.cfg.dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return err
			}

			return w.Add(path)
		})
		if err != nil {
			_ = w.Close()

			return ErrWatch.Wrap(err).With(slog.String("dir", dir))
		}
	}

	r.mu.Lock()
	if r.watcher != nil {
		_ = r.watcher.Close()
	}

	r.watcher = w
	r.mu.Unlock()

	go r.watchLoop(ctx, w)

	return nil
}

func (r *Repository) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	defer func() { _ = w.Close() }()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}

			r.handle(ctx, w, ev)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}

			r.cfg.logger.WarnContext(ctx, "watch error", slog.Any("error", ErrWatch.Wrap(err)))
		}
	}
}

func (r *Repository) handle(ctx context.Context, w *fsnotify.Watcher, ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) && isDir(ev.Name) {
		_ = w.Add(ev.Name)

		return
	}

	if !ev.Has(fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename) {
		return
	}

	for _, dir := range r.cfg.dirs {
		name, ok := r.nameOf(dir, ev.Name)
		if !ok {
			continue
		}

		// A change in any directory may alter which file shadows the others.
		r.Invalidate(name)

		r.cfg.logger.DebugContext(ctx, "partial invalidated",
			slog.String("name", name),
			slog.String("op", ev.Op.String()),
		)

		if r.cfg.onChange != nil {
			r.cfg.onChange(name)
		}

		return
	}
}

// Close stops the watcher started by [Repository.Watch], if any.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.watcher == nil {
		return nil
	}

	err := r.watcher.Close()
	r.watcher = nil

	return err
}

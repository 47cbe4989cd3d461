package appconfig

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// WatchFunc is invoked with a freshly reloaded config whenever path changes
// on disk.
type WatchFunc func(*Config)

// Watch reloads path on every filesystem write/create event and invokes fn
// with the reloaded config; what fn applies is up to the caller (serve
// applies only the log level). The returned stop function closes the
// underlying watcher; the event loop runs in its own goroutine.
func Watch(path string, fn WatchFunc) (stop func() error, err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(path); err != nil {
		_ = w.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					slog.Warn("appconfig: reload failed", slog.String("path", path), slog.Any("error", err))
					continue
				}
				fn(cfg)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("appconfig: watch error", slog.Any("error", err))
			}
		}
	}()

	return w.Close, nil
}

package config

import (
	"context"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Watch watches envFile for writes and calls onChange with a freshly loaded
// Config each time it changes. This is how the notification TTL reaper
// learns that notificationTTLinSeconds changed and needs its TTL
// declaration replaced.
//
// Watch blocks until ctx is cancelled. Errors reloading a changed file are
// logged and skipped — a bad edit to .env must not crash the running hub.
func Watch(ctx context.Context, log *zap.SugaredLogger, envFile string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(envFile); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			// godotenv.Load never replaces variables already in the process
			// environment, so the edited file is applied with Overload first.
			_ = godotenv.Overload(envFile)
			cfg, err := Load(envFile)
			if err != nil {
				log.Warnw("config: reload failed, keeping previous config", "error", err)
				continue
			}
			onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnw("config: watcher error", "error", err)
		}
	}
}

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 200 * time.Millisecond

// Watch calls onChange with the reloaded configuration each time the config file for profile is written.
// The directory is watched because editors often replace the file instead of writing it in place.
// Watch blocks until ctx is done.
func Watch(ctx context.Context, profile string, onChange func(*Config, error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(configPath()); err != nil {
		return fmt.Errorf("failed to watch %s: %w", configPath(), err)
	}

	var (
		timer  *time.Timer
		reload = make(chan struct{}, 1)
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isConfigFile(ev.Name, profile) || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case <-reload:
			onChange(Load(profile))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			onChange(nil, fmt.Errorf("watch error: %w", err))
		}
	}
}

func isConfigFile(name, profile string) bool {
	base := filepath.Base(name)
	for _, stem := range []string{"config", "config-" + profile} {
		if stem == "config-" {
			continue
		}
		if base == stem+".yml" || base == stem+".yaml" {
			return true
		}
	}
	return false
}

package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config file whenever it changes and hands the new
// configuration to onChange. It blocks until ctx is cancelled. Editors
// often replace files atomically, so rename and remove events re-add
// the path to the watcher before reloading.
func Watch(ctx context.Context, configPath string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			fmt.Printf("Warning: failed to close config watcher: %v\n", err)
		}
	}()

	if err := watcher.Add(configPath); err != nil {
		return fmt.Errorf("watching config file %s: %w", configPath, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}

			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				// Give an atomic replace time to land the new file.
				time.Sleep(200 * time.Millisecond)
				if _, err := os.Stat(configPath); os.IsNotExist(err) {
					continue
				}
				if err := watcher.Add(configPath); err != nil {
					fmt.Printf("Warning: failed to re-add config file to watcher: %v\n", err)
				}
			} else {
				time.Sleep(100 * time.Millisecond)
			}

			cfg, err := LoadConfig(configPath)
			if err != nil {
				fmt.Printf("Warning: failed to reload config: %v\n", err)
				continue
			}
			onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Printf("Warning: config watcher error: %v\n", err)
		}
	}
}

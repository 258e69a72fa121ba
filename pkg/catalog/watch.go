package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/miniheartx/heartx/pkg/logger"
)

// DebounceDelay batches the burst of events one editor save produces.
var DebounceDelay = 250 * time.Millisecond

// Watch calls onChange with the reloaded catalog whenever path changes on
// disk, until ctx ends. A file that fails to parse is logged and skipped so
// the last good catalog stays in use. The parent directory is watched so
// editors that save by rename are seen.
func Watch(ctx context.Context, path string, onChange func(*Catalog)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create catalog watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	logger.InfoCF("catalog", "Watching catalog", map[string]interface{}{"path": abs})

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(DebounceDelay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WarnCF("catalog", "Watcher error", map[string]interface{}{"error": err.Error()})

		case <-timer.C:
			cat, err := Load(abs)
			if err != nil {
				logger.WarnCF("catalog", "Catalog reload failed, keeping previous", map[string]interface{}{
					"path":  abs,
					"error": err.Error(),
				})
				continue
			}
			logger.InfoCF("catalog", "Catalog reloaded", map[string]interface{}{
				"path":  abs,
				"tools": len(cat.Tools()),
				"rules": len(cat.Rules),
			})
			onChange(cat)
		}
	}
}

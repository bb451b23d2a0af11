package config

import (
	"github.com/fsnotify/fsnotify"

	"github.com/wayfind-ai/wayfind/internal/devlog"
)

// Watch reloads the config whenever its file changes and invokes onChange
// with the fresh config. Returns a stop function. Used between goals so
// provider/model edits take effect without a restart.
func Watch(path string, onChange func(*Config)) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := LoadFrom(path)
				if err != nil {
					devlog.Tagf("Config", "reload failed: %v", err)
					continue
				}
				devlog.Tagf("Config", "reloaded %s", path)
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				devlog.Tagf("Config", "watch error: %v", err)
			}
		}
	}()

	return func() { watcher.Close() }, nil
}

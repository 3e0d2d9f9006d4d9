package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/platformbuilds/vigilante-core/pkg/logger"
)

// ConfigWatcher reloads the config file on change and hands the new
// configuration to registered callbacks. serve mode uses it to pick up
// edited fixed rules and analysis parameters without a restart.
type ConfigWatcher struct {
	config     *Config
	configPath string
	logger     logger.Logger
	mu         sync.RWMutex
	watchers   []func(*Config)
	stopOnce   sync.Once
	stopCh     chan struct{}
}

func NewConfigWatcher(configPath string, initial *Config, logger logger.Logger) *ConfigWatcher {
	return &ConfigWatcher{
		config:     initial,
		configPath: configPath,
		logger:     logger,
		watchers:   make([]func(*Config), 0),
		stopCh:     make(chan struct{}),
	}
}

// Start blocks watching the file until ctx ends or Stop is called. The
// parent directory is watched so editors that replace the file on save are
// still seen.
func (w *ConfigWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(w.configPath)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch config file: %w", err)
	}

	w.logger.Info("Configuration watcher started", "configPath", w.configPath)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			w.logger.Info("Configuration file changed, reloading", "file", event.Name)
			if err := w.reloadConfig(); err != nil {
				w.logger.Error("Failed to reload configuration", "error", err)
				continue
			}
			w.notifyWatchers()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Configuration watcher error", "error", err)

		case <-ctx.Done():
			return ctx.Err()

		case <-w.stopCh:
			return nil
		}
	}
}

// RegisterWatcher registers a callback for configuration changes
func (w *ConfigWatcher) RegisterWatcher(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.watchers = append(w.watchers, callback)
}

// GetConfig returns the current configuration
func (w *ConfigWatcher) GetConfig() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Stop stops the configuration watcher
func (w *ConfigWatcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

func (w *ConfigWatcher) reloadConfig() error {
	v, err := NewViper(w.configPath)
	if err != nil {
		return err
	}
	cfg, err := FromViper(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.config = cfg
	w.mu.Unlock()

	w.logger.Info("Configuration reloaded successfully")
	return nil
}

func (w *ConfigWatcher) notifyWatchers() {
	w.mu.RLock()
	cfg := w.config
	callbacks := make([]func(*Config), len(w.watchers))
	copy(callbacks, w.watchers)
	w.mu.RUnlock()

	for _, callback := range callbacks {
		go func(cb func(*Config)) {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error("Configuration watcher callback panicked", "panic", r)
				}
			}()
			cb(cfg)
		}(callback)
	}
}

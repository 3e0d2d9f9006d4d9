package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/vigilante-core/pkg/logger"
)

func TestConfigWatcherReload(t *testing.T) {
	path := writeConfig(t, "fixed_rules:\n  v_alarm: 3.0\n")
	initial, err := load(t, path)
	require.NoError(t, err)

	w := NewConfigWatcher(path, initial, logger.NewNop())
	got := make(chan *Config, 1)
	w.RegisterWatcher(func(c *Config) { got <- c })

	require.NoError(t, os.WriteFile(path, []byte("fixed_rules:\n  v_alarm: 4.0\n"), 0o600))
	require.NoError(t, w.reloadConfig())
	w.notifyWatchers()

	select {
	case c := <-got:
		assert.Equal(t, 4.0, c.FixedRules.VAlarm)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher callback not invoked")
	}
	assert.Equal(t, 4.0, w.GetConfig().FixedRules.VAlarm)
}

func TestConfigWatcherKeepsConfigOnInvalidReload(t *testing.T) {
	path := writeConfig(t, "environment: test\n")
	initial, err := load(t, path)
	require.NoError(t, err)

	w := NewConfigWatcher(path, initial, logger.NewNop())
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  retries: 0\n"), 0o600))

	assert.Error(t, w.reloadConfig())
	assert.Same(t, initial, w.GetConfig())

	w.Stop()
	w.Stop()
}

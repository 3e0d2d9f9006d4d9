package eventlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/vigilante-core/internal/config"
	"github.com/platformbuilds/vigilante-core/internal/logging"
	"github.com/platformbuilds/vigilante-core/internal/models"
)

func record(i int, disagree bool) models.StepRecord {
	return models.StepRecord{
		ID:           fmt.Sprintf("id-%d", i),
		RunID:        "run",
		Index:        i,
		Time:         fmt.Sprintf("2025-01-01 00:%02d:00", i),
		CurrentState: models.StateNormal,
		VelMmHr:      float64(i) / 10,
		Disagreement: disagree,
	}
}

func TestWriterAppendAndReadTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "registros.jsonl")
	w, err := NewWriter(config.EventLogConfig{Path: path}, logging.NewNop())
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		ok, err := w.Append(record(i, false))
		require.NoError(t, err)
		assert.True(t, ok)
	}
	require.NoError(t, w.Close())

	all, err := ReadTail(path, 0)
	require.NoError(t, err)
	require.Len(t, all, 10)

	tail, err := ReadTail(path, 3)
	require.NoError(t, err)
	require.Len(t, tail, 3)
	assert.Equal(t, []int{7, 8, 9}, []int{tail[0].Index, tail[1].Index, tail[2].Index})

	more, err := ReadTail(path, 50)
	require.NoError(t, err)
	assert.Len(t, more, 10)
}

func TestWriterAppendsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registros.jsonl")
	for run := 0; run < 2; run++ {
		w, err := NewWriter(config.EventLogConfig{Path: path}, nil)
		require.NoError(t, err)
		_, err = w.Append(record(run, false))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}

	recs, err := ReadTail(path, 0)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestWriterOnlyDisagreements(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registros.jsonl")
	w, err := NewWriter(config.EventLogConfig{Path: path, OnlyDisagreements: true}, nil)
	require.NoError(t, err)

	ok, err := w.Append(record(1, false))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = w.Append(record(2, true))
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, w.Close())

	recs, err := ReadTail(path, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 2, recs[0].Index)
	assert.True(t, recs[0].Disagreement)
}

func TestWriterRotatingBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registros.jsonl")
	w, err := NewWriter(config.EventLogConfig{Path: path, MaxSizeMB: 1, MaxBackups: 1}, nil)
	require.NoError(t, err)

	_, err = w.Append(record(1, false))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	recs, err := ReadTail(path, 0)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestWriterConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registros.jsonl")
	w, err := NewWriter(config.EventLogConfig{Path: path}, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = w.Append(record(i, false))
		}(i)
	}
	wg.Wait()
	require.NoError(t, w.Close())

	recs, err := ReadTail(path, 0)
	require.NoError(t, err)
	assert.Len(t, recs, 20, "no interleaved lines")
}

func TestReadTailSkipsBadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registros.jsonl")
	content := strings.Join([]string{
		`{"index":1,"time":"2025-01-01 00:00:00","current_state":"NORMAL"}`,
		`{"index":2, broken`,
		``,
		`not json at all`,
		`{"index":3,"time":"2025-01-01 00:02:00","current_state":"ALERTA"}`,
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	recs, err := ReadTail(path, 200)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 1, recs[0].Index)
	assert.Equal(t, models.StateAlerta, recs[1].CurrentState)
}

func TestReadTailMissingFile(t *testing.T) {
	recs, err := ReadTail(filepath.Join(t.TempDir(), "nope.jsonl"), 10)
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestNewWriterRequiresPath(t *testing.T) {
	_, err := NewWriter(config.EventLogConfig{}, nil)
	assert.Error(t, err)
}

// Package eventlog persists one JSON line per evaluated step.
package eventlog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/platformbuilds/vigilante-core/internal/config"
	"github.com/platformbuilds/vigilante-core/internal/logging"
	"github.com/platformbuilds/vigilante-core/internal/metrics"
	"github.com/platformbuilds/vigilante-core/internal/models"
)

// Writer appends StepRecords to the JSONL log. Safe for concurrent use.
type Writer struct {
	mu                sync.Mutex
	out               io.WriteCloser
	path              string
	onlyDisagreements bool
	logger            logging.Logger
}

// NewWriter opens the log in append mode. With MaxSizeMB > 0 the file is
// rotated by lumberjack.
func NewWriter(cfg config.EventLogConfig, logger logging.Logger) (*Writer, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("event log path is required")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create event log dir: %w", err)
		}
	}

	var out io.WriteCloser
	if cfg.MaxSizeMB > 0 {
		out = &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   cfg.Compress,
			LocalTime:  false,
		}
	} else {
		f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open event log: %w", err)
		}
		out = f
	}

	return &Writer{
		out:               out,
		path:              cfg.Path,
		onlyDisagreements: cfg.OnlyDisagreements,
		logger:            logging.OrNop(logger),
	}, nil
}

// Append writes rec as one line. It reports false when the record was
// filtered out by only_disagreements.
func (w *Writer) Append(rec models.StepRecord) (bool, error) {
	if w.onlyDisagreements && !rec.Disagreement {
		metrics.EventLogRecords.WithLabelValues("skipped").Inc()
		return false, nil
	}

	line, err := json.Marshal(rec)
	if err != nil {
		metrics.EventLogRecords.WithLabelValues("error").Inc()
		return false, fmt.Errorf("encode step record: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.out.Write(line); err != nil {
		metrics.EventLogRecords.WithLabelValues("error").Inc()
		return false, fmt.Errorf("write event log: %w", err)
	}
	metrics.EventLogRecords.WithLabelValues("written").Inc()
	return true, nil
}

// Path returns the file the writer appends to.
func (w *Writer) Path() string { return w.path }

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.out.Close()
}

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeVendorCSV writes a 300-minute creep that accelerates at the end.
func writeVendorCSV(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("Radar;ARCSAR-07\nSite;Rajo Norte\nTime;ALT-12 (mm)\n")
	t0 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 300; i++ {
		disp := float64(i) / 64
		if i >= 290 {
			disp = 290.0/64 + float64(i-290)*0.125
		}
		fmt.Fprintf(&b, "%s;%.6f\n", t0.Add(time.Duration(i)*time.Minute).Format("02-01-2006 15:04"), disp)
	}
	path := filepath.Join(dir, "radar.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSimulateThenEvents(t *testing.T) {
	dir := t.TempDir()
	csv := writeVendorCSV(t, dir)
	logPath := filepath.Join(dir, "registros.jsonl")
	summaryPath := filepath.Join(dir, "resumen.json")

	out, err := execute(t, "simulate",
		"--csv", csv,
		"--dry-run",
		"--sleep", "0s",
		"--log", logPath,
		"--summary", summaryPath,
		"--format", "plain",
		"--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "=== 2025-03-01 04:59:00 ===")
	assert.Contains(t, out, "State: ALARMA")
	assert.Contains(t, out, "=== Simulation summary ===")
	assert.FileExists(t, summaryPath)

	out, err = execute(t, "events", "--log", logPath, "--limit", "2", "--format", "plain")
	require.NoError(t, err)
	assert.Contains(t, out, "2 records")
	assert.Contains(t, out, "2025-03-01 04:59:00  ALARMA")
}

func TestSimulateRequiresCSV(t *testing.T) {
	_, err := execute(t, "simulate", "--dry-run", "--log-level", "error")
	assert.ErrorContains(t, err, "--csv is required")
}

func TestConfigDump(t *testing.T) {
	out, err := execute(t, "config", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "step_points: 60")
	assert.Contains(t, out, "console_format: json")

	out, err = execute(t, "config", "--template", "production")
	require.NoError(t, err)
	assert.Contains(t, out, "# Environment: production")
}

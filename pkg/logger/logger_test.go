package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLogger_BasicLevels(t *testing.T) {
	l := New("debug")
	if l == nil {
		t.Fatalf("logger nil")
	}
	l.Debug("dbg", "k", 1)
	l.Info("info")
	l.Warn("warn")
	l.Error("err")
	_ = l.Sync()
}

func TestLogger_WithKeepsFields(t *testing.T) {
	l := NewConsole("info").With("run_id", "abc")
	if l == nil {
		t.Fatalf("With returned nil")
	}
	l.Info("step", "i", 60)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARN":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q)=%v want %v", in, got, want)
		}
	}
}

func TestNop(t *testing.T) {
	NewNop().Error("ignored", "k", "v")
}

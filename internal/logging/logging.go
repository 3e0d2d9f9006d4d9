package logging

import (
	corelogger "github.com/platformbuilds/vigilante-core/pkg/logger"
	"go.uber.org/zap"
)

// Logger is the logging surface internal packages depend on, so they do not
// import pkg/logger directly.
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
}

// NewNop returns a Logger that discards all output. Used by tests and by
// components constructed without a logger.
func NewNop() Logger {
	return &zapAdapter{logger: zap.NewNop()}
}

// FromCoreLogger adapts the process logger built in cmd/.
func FromCoreLogger(core corelogger.Logger) Logger {
	if core == nil {
		return NewNop()
	}
	return &coreAdapter{core: core}
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NewNop()
	}
	return l
}

// ExtractZapLogger returns the *zap.Logger behind v when it exposes one.
func ExtractZapLogger(v interface{}) *zap.Logger {
	if zl, ok := v.(interface{ ZapLogger() *zap.Logger }); ok {
		return zl.ZapLogger()
	}
	if za, ok := v.(*zapAdapter); ok {
		return za.logger
	}
	return zap.NewNop()
}

type coreAdapter struct {
	core corelogger.Logger
}

func (c *coreAdapter) Info(msg string, fields ...interface{})  { c.core.Info(msg, fields...) }
func (c *coreAdapter) Error(msg string, fields ...interface{}) { c.core.Error(msg, fields...) }
func (c *coreAdapter) Warn(msg string, fields ...interface{})  { c.core.Warn(msg, fields...) }
func (c *coreAdapter) Debug(msg string, fields ...interface{}) { c.core.Debug(msg, fields...) }
func (c *coreAdapter) Fatal(msg string, fields ...interface{}) { c.core.Fatal(msg, fields...) }

func (c *coreAdapter) ZapLogger() *zap.Logger {
	if zl, ok := c.core.(interface{ ZapLogger() *zap.Logger }); ok {
		return zl.ZapLogger()
	}
	return zap.NewNop()
}

type zapAdapter struct {
	logger *zap.Logger
}

func (z *zapAdapter) Info(msg string, fields ...interface{})  { z.logger.Sugar().Infow(msg, fields...) }
func (z *zapAdapter) Error(msg string, fields ...interface{}) { z.logger.Sugar().Errorw(msg, fields...) }
func (z *zapAdapter) Warn(msg string, fields ...interface{})  { z.logger.Sugar().Warnw(msg, fields...) }
func (z *zapAdapter) Debug(msg string, fields ...interface{}) { z.logger.Sugar().Debugw(msg, fields...) }
func (z *zapAdapter) Fatal(msg string, fields ...interface{}) { z.logger.Sugar().Fatalw(msg, fields...) }

package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"

	corelogger "github.com/platformbuilds/vigilante-core/pkg/logger"
)

func TestFromCoreLogger_NilFallsBackToNop(t *testing.T) {
	l := FromCoreLogger(nil)
	assert.NotNil(t, l)
	l.Info("discarded")
}

func TestExtractZapLogger(t *testing.T) {
	l := FromCoreLogger(corelogger.NewNop())
	assert.NotNil(t, ExtractZapLogger(l))
	assert.NotNil(t, ExtractZapLogger(struct{}{}))
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	n := NewNop()
	assert.Equal(t, n, OrNop(n))
}

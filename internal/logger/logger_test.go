package logger_test

import (
	"testing"

	"codeberg.org/mutker/wearsim/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestWarnOnceDeduplicates(t *testing.T) {
	logger.ResetWarnings()

	// Must not panic or grow without bound even with a quiet logger.
	for i := 0; i < 3; i++ {
		logger.WarnOnce("approximating current density")
	}
	logger.WarnOnce("another warning")

	logger.ResetWarnings()
	logger.WarnOnce("approximating current density")
}

func TestDefaultLogger(t *testing.T) {
	log := logger.Default()
	assert.NotNil(t, log.Debug())
	assert.NotNil(t, log.Warn())
}

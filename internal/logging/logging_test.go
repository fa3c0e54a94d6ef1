package logging_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sourcepawn-studio/spls/internal/logging"
)

func TestNewRespectsLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(&buf, "warn", "text")
	require.NoError(t, err)

	logger.Info("should be filtered out")
	assert.Empty(t, buf.String())

	logger.Warn("should appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestNewJSONFormatProducesStructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(&buf, "info", "json")
	require.NoError(t, err)

	logger.Info("hello", zap.String("file", "plugin.sp"))
	assert.Contains(t, buf.String(), `"message":"hello"`)
	assert.Contains(t, buf.String(), `"file":"plugin.sp"`)
}

func TestNewRejectsUnknownLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	_, err := logging.New(&buf, "verbose", "color")
	assert.Error(t, err)

	_, err = logging.New(&buf, "info", "xml")
	assert.Error(t, err)
}

func TestNopDiscardsEverything(t *testing.T) {
	logger := logging.Nop()
	require.NotNil(t, logger)
	logger.Error("this must not panic or write anywhere")
}

package logging_test

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vearutop/zsmooth/internal/logging"
)

func TestParseLevel(t *testing.T) {
	lvl, err := logging.ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, lvl)

	lvl, err = logging.ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, lvl)

	_, err = logging.ParseLevel("chatty")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log, err := logging.New(&buf, "warn")
	require.NoError(t, err)

	log.Info().Msg("hidden")
	log.Warn().Str("component", "test").Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"component":"test"`)
	assert.Contains(t, buf.String(), `"message":"shown"`)
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	log, err := logging.NewConsole(&buf, "info")
	require.NoError(t, err)

	log.Info().Str("component", "cli").Msg("ready")
	assert.Contains(t, buf.String(), "ready")
	assert.Contains(t, buf.String(), "component=cli")
}

func TestNew_keepsGlobals(t *testing.T) {
	before := zerolog.DurationFieldInteger
	_, err := logging.New(&bytes.Buffer{}, "debug")
	require.NoError(t, err)
	_, err = logging.NewConsole(&bytes.Buffer{}, "debug")
	require.NoError(t, err)
	assert.Equal(t, before, zerolog.DurationFieldInteger)
}

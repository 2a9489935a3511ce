package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONIncludesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: InfoLevel, JSONOutput: true, Output: &buf})

	osdLogger := WithOSD(WithComponent(logger, "activate"), "ceph", "3")
	osdLogger.Info().Msg("volume active")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "activate", entry["component"])
	assert.Equal(t, "ceph", entry["cluster"])
	assert.Equal(t, "3", entry["osd_id"])
	assert.Equal(t, "volume active", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNewFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: WarnLevel, JSONOutput: true, Output: &buf})

	logger.Info().Msg("hidden")
	logger.Debug().Msg("hidden")
	assert.Empty(t, buf.String())

	logger.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: DebugLevel, JSONOutput: true, Output: &buf})

	pathLogger := WithPath(logger, "/var/lib/ceph/tmp/mnt.1")
	pathLogger.Debug().Msg("probing")
	assert.Contains(t, buf.String(), `"path":"/var/lib/ceph/tmp/mnt.1"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, ErrorLevel, ParseLevel("error"))
	assert.Equal(t, InfoLevel, ParseLevel("verbose"))
	assert.Equal(t, InfoLevel, ParseLevel(""))
}

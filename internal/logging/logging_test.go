package logging

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	loc := time.FixedZone("WIB", 7*3600)

	log := Component(New(&buf, loc), "upload")
	log.Info("upload_finalized", "event", "record_appended", "key", "k-1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))

	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "upload_finalized", line["msg"])
	assert.Equal(t, "upload", line["component"])
	assert.Equal(t, "record_appended", line["event"])
	assert.Equal(t, "k-1", line["key"])
	assert.NotContains(t, line, "time")

	ts, ok := line["ts"].(string)
	require.True(t, ok)
	parsed, err := time.Parse(time.RFC3339Nano, ts)
	require.NoError(t, err)
	_, offset := parsed.Zone()
	assert.Equal(t, 7*3600, offset)
}

func TestNew_ErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, nil).Error("boom")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() { Discard().Error("ignored", "k", "v") })
}

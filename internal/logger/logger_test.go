package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComponentFieldIsWritten(t *testing.T) {
	var buf bytes.Buffer
	log := Component(New(&buf, "debug", "json"), "store")

	log.Info().Str("chat_id", "42").Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "store", line["component"])
	require.Equal(t, "42", line["chat_id"])
	require.Equal(t, "hello", line["message"])
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "chatty", "json")

	log.Debug().Msg("hidden")
	require.Zero(t, buf.Len())

	log.Info().Msg("shown")
	require.NotZero(t, buf.Len())
}

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextHook(t *testing.T) {
	t.Run("adds ids from context", func(t *testing.T) {
		var buf bytes.Buffer
		logger := zerolog.New(&buf).Hook(ContextHook{})

		ctx := WithRunID(WithSessionID(context.Background(), "user-1"), "run-1")
		logger.Info().Ctx(ctx).Msg("hello")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "user-1", entry["session_id"])
		assert.Equal(t, "run-1", entry["run_id"])
	})

	t.Run("no context fields without ids", func(t *testing.T) {
		var buf bytes.Buffer
		logger := zerolog.New(&buf).Hook(ContextHook{})

		logger.Info().Msg("hello")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.NotContains(t, entry, "session_id")
		assert.NotContains(t, entry, "run_id")
	})
}

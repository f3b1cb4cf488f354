package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextIDs(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		ctx := context.Background()
		ctx = WithSessionID(ctx, "user-42")
		ctx = WithRunID(ctx, "run-abc")

		assert.Equal(t, "user-42", GetSessionID(ctx))
		assert.Equal(t, "run-abc", GetRunID(ctx))
	})

	t.Run("missing values return empty", func(t *testing.T) {
		ctx := context.Background()

		assert.Empty(t, GetSessionID(ctx))
		assert.Empty(t, GetRunID(ctx))
	})

	t.Run("session id does not leak into run id", func(t *testing.T) {
		ctx := WithSessionID(context.Background(), "user-42")

		assert.Empty(t, GetRunID(ctx))
	})
}

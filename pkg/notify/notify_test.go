package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akenterprises/storefront/pkg/logger"
)

func TestBufferDrainReturnsOldestFirstAndEmpties(t *testing.T) {
	buf := NewBuffer(8)
	ctx := context.Background()
	buf.Push(ctx, Info("cart", "first"))
	buf.Push(ctx, Error("cart", "second"))

	notices := buf.Drain()
	require.Len(t, notices, 2)
	assert.Equal(t, "first", notices[0].Message)
	assert.Equal(t, SeverityError, notices[1].Severity)
	assert.False(t, notices[0].At.IsZero())

	assert.Empty(t, buf.Drain())
}

func TestBufferDropsOldestWhenFull(t *testing.T) {
	buf := NewBuffer(2)
	ctx := context.Background()
	buf.Push(ctx, Info("a", "one"))
	buf.Push(ctx, Info("a", "two"))
	buf.Push(ctx, Info("a", "three"))

	notices := buf.Drain()
	require.Len(t, notices, 2)
	assert.Equal(t, "two", notices[0].Message)
	assert.Equal(t, "three", notices[1].Message)
}

func TestMultiFansOut(t *testing.T) {
	a := NewBuffer(4)
	b := NewBuffer(4)
	Multi{a, b}.Push(context.Background(), Error("sync", "cart update failed"))

	require.Len(t, a.Drain(), 1)
	require.Len(t, b.Drain(), 1)
}

func TestLoggerSinkWritesSeverityAndSource(t *testing.T) {
	var out bytes.Buffer
	log := logger.New(logger.Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: &out})

	LoggerSink{Log: log}.Push(context.Background(), Error("cart", "sync failed"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &entry))
	assert.Equal(t, "cart", entry["source"])
	assert.Equal(t, "error", entry["severity"])
	assert.Equal(t, "sync failed", entry["message"])
}

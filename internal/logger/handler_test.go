package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperlens/internal/middleware"
)

func TestContextHandler_AddsCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewContextHandler(slog.NewJSONHandler(&buf, nil)))

	ctx := middleware.WithCorrelationID(context.Background(), "run-42")
	log.InfoContext(ctx, "stage completed")

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "run-42", record["correlation_id"])
}

func TestContextHandler_SurvivesDerivedLoggers(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewContextHandler(slog.NewJSONHandler(&buf, nil)))

	ctx := middleware.WithCorrelationID(context.Background(), "run-42")
	log.With("run_id", "r-1").InfoContext(ctx, "stage completed")

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "run-42", record["correlation_id"])
	assert.Equal(t, "r-1", record["run_id"])

	buf.Reset()
	log.WithGroup("run").InfoContext(ctx, "stage completed", "stage", "ingest")

	record = nil
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	group, ok := record["run"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "run-42", group["correlation_id"])
}

func TestContextHandler_NoCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewContextHandler(slog.NewJSONHandler(&buf, nil)))

	log.InfoContext(context.Background(), "stage completed")

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	_, present := record["correlation_id"]
	assert.False(t, present)
}

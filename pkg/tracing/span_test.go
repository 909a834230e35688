package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChildSpansShareTraceID(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "run", "")
	require.NotEmpty(t, root.TraceID)

	_, child := StartChildSpan(ctx, "score")
	child.SetAttr("queries", 3)
	child.End()
	root.End()

	assert.Equal(t, root.TraceID, child.TraceID)
	require.Len(t, root.Children, 1)
	assert.Same(t, child, root.Children[0])
}

func TestChildWithoutParentIsRoot(t *testing.T) {
	_, span := StartChildSpan(context.Background(), "orphan")
	assert.NotEmpty(t, span.TraceID)
}

func TestLogWritesEverySpan(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, root := StartSpan(context.Background(), "build", "trace-1")
	_, c := StartChildSpan(ctx, "merge")
	c.End()
	root.End()
	root.Log(logger)

	out := buf.String()
	assert.Contains(t, out, "span=build")
	assert.Contains(t, out, "span=merge")
	assert.Contains(t, out, "trace_id=trace-1")
}

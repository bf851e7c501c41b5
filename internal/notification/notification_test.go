package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerNotifierWritesStructuredRecord(t *testing.T) {
	var buf bytes.Buffer
	n := NewLoggerNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := n.Send(context.Background(), Message{Kind: KindSignupWelcome, Destination: "a@x.com", Body: "hi"})
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "notification", record["msg"])
	assert.Equal(t, KindSignupWelcome, record["kind"])
	assert.Equal(t, "a@x.com", record["destination"])
}

func TestLoggerNotifierNilSafe(t *testing.T) {
	var n *LoggerNotifier
	assert.NoError(t, n.Send(context.Background(), Message{}))
	assert.NoError(t, NewLoggerNotifier(nil).Send(context.Background(), Message{}))
}

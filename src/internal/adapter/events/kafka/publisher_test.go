package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestPublishKeysByTransferID(t *testing.T) {
	w := &recordingWriter{}
	p := &Publisher{writer: w}

	event := domain.TransferCompleted{
		EventID:    "e-1",
		TransferID: "t-1",
		Status:     domain.TransferStatusSuccess,
		Message:    "OK",
		Amount:     25,
		OccurredAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "t-1", string(msg.Key))
	assert.Equal(t, "TransferCompleted", string(msg.Headers[0].Value))

	var decoded domain.TransferCompleted
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event, decoded)
}

func TestPublishWrapsWriterError(t *testing.T) {
	p := &Publisher{writer: &recordingWriter{err: errors.New("broker unreachable")}}

	err := p.Publish(context.Background(), domain.TransferCompleted{TransferID: "t-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unreachable")
}

package activity

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/agentmarket/popsim/internal/gateways/database/models"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type recordingSink struct {
	name    string
	err     error
	entries []*models.ActivityLog
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Append(_ context.Context, entry *models.ActivityLog) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

type fakeWriter struct {
	msgs     []kafka.Message
	deadline bool
	err      error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	_, w.deadline = ctx.Deadline()
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

type fakeCollection struct {
	docs []interface{}
}

func (c *fakeCollection) InsertOne(_ context.Context, doc interface{}, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	c.docs = append(c.docs, doc)
	return &mongo.InsertOneResult{InsertedID: len(c.docs)}, nil
}

func entry() *models.ActivityLog {
	return &models.ActivityLog{
		RunID:     "run-1",
		Kind:      "batch_completed",
		Message:   "batch 1/2 completed",
		Details:   map[string]any{"funded": 3},
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestMultiSink(t *testing.T) {
	tests := []struct {
		name       string
		primaryErr error
		mirrorErr  error
		wantErr    bool
		wantMirror int
	}{
		{name: "all sinks written"},
		{name: "mirror failure is swallowed", mirrorErr: errors.New("broker down")},
		{name: "primary failure skips mirrors", primaryErr: errors.New("db down"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := &recordingSink{name: "db", err: tt.primaryErr}
			failing := &recordingSink{name: "kafka", err: tt.mirrorErr}
			healthy := &recordingSink{name: "mongo"}

			err := NewMultiSink(primary, failing, healthy).Append(context.Background(), entry())
			if tt.wantErr {
				require.Error(t, err)
				assert.Empty(t, healthy.entries)
				return
			}
			require.NoError(t, err)
			assert.Len(t, primary.entries, 1)
			assert.Len(t, healthy.entries, 1)
		})
	}
}

func TestKafkaSink_Append(t *testing.T) {
	writer := &fakeWriter{}
	require.NoError(t, NewKafkaSink(writer).Append(context.Background(), entry()))

	require.Len(t, writer.msgs, 1)
	msg := writer.msgs[0]
	assert.True(t, writer.deadline)
	assert.Equal(t, "run-1", string(msg.Key))
	assert.Equal(t, "kind", msg.Headers[0].Key)
	assert.Equal(t, "batch_completed", string(msg.Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "batch 1/2 completed", decoded["message"])
	assert.NotContains(t, decoded, "id")
}

func TestKafkaSink_WrapsWriteError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("leader not available")}
	err := NewKafkaSink(writer).Append(context.Background(), entry())
	assert.ErrorContains(t, err, "kafka write failed")
}

func TestMongoSink_Append(t *testing.T) {
	coll := &fakeCollection{}
	e := entry()
	require.NoError(t, NewMongoSink(coll).Append(context.Background(), e))
	require.Len(t, coll.docs, 1)
	assert.Same(t, e, coll.docs[0])
}

package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"namereg/internal/registry/events"
	"namereg/internal/registry/models"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		if f.err == nil {
			f.records = append(f.records, r)
		}
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

func TestPublisherPublish(t *testing.T) {
	entry := events.OutboxEntry{
		ID:        uuid.New(),
		EventType: models.EventTransfer,
		Key:       "2",
		Payload:   []byte(`{"kind":"Transfer"}`),
		CreatedAt: time.Unix(1700000000, 0),
	}

	t.Run("records carry key, payload and headers", func(t *testing.T) {
		producer := &fakeProducer{}
		p := NewPublisher(producer, "")

		require.NoError(t, p.Publish(context.Background(), []events.OutboxEntry{entry}))
		require.Len(t, producer.records, 1)

		rec := producer.records[0]
		assert.Equal(t, DefaultTopic, rec.Topic)
		assert.Equal(t, []byte("2"), rec.Key)
		assert.Equal(t, entry.Payload, rec.Value)
		assert.Equal(t, entry.CreatedAt, rec.Timestamp)
		assert.Equal(t, "event_type", rec.Headers[1].Key)
		assert.Equal(t, []byte("Transfer"), rec.Headers[1].Value)
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		producer := &fakeProducer{err: errors.New("should not be called")}
		p := NewPublisher(producer, "custom")
		assert.NoError(t, p.Publish(context.Background(), nil))
	})

	t.Run("broker error is returned", func(t *testing.T) {
		boom := errors.New("not enough replicas")
		p := NewPublisher(&fakeProducer{err: boom}, "custom")
		err := p.Publish(context.Background(), []events.OutboxEntry{entry})
		assert.ErrorIs(t, err, boom)
	})
}

package publisher

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dialogmotekandidat/internal/candidacy/models"
	"dialogmotekandidat/internal/candidacy/store"
	"dialogmotekandidat/pkg/domain"
)

const testIdent = domain.Personident("12345678910")

type sentRecord struct {
	topic string
	key   []byte
	value []byte
}

type fakeSender struct {
	sent    []sentRecord
	failOn  int // 1-based send index that fails; 0 never fails
	attempt int
}

func (f *fakeSender) Send(_ context.Context, topic string, key, value []byte) error {
	f.attempt++
	if f.failOn != 0 && f.attempt == f.failOn {
		return errors.New("broker unavailable")
	}
	f.sent = append(f.sent, sentRecord{topic: topic, key: key, value: value})
	return nil
}

type fakeMetrics struct {
	published, failed int
}

func (m *fakeMetrics) EventPublished() { m.published++ }
func (m *fakeMetrics) PublishFailed()  { m.failed++ }

func newPublisher(t *testing.T, outbox Outbox, sender Sender, metrics Metrics) *Publisher {
	t.Helper()
	p, err := New(outbox, sender, "dialogmotekandidat-endring", metrics, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return p
}

func appendEvents(t *testing.T, outbox *store.MemoryOutbox, n int) {
	t.Helper()
	base := time.Date(2024, 4, 29, 10, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		event := models.NewFromCheckpointEvent(testIdent, base.Add(time.Duration(i)*time.Minute), base)
		require.NoError(t, outbox.Append(context.Background(), event))
	}
}

func TestPublishPending(t *testing.T) {
	t.Run("publishes in order and marks published", func(t *testing.T) {
		outbox := store.NewMemoryOutbox()
		appendEvents(t, outbox, 3)
		sender := &fakeSender{}
		metrics := &fakeMetrics{}

		p := newPublisher(t, outbox, sender, metrics)
		require.NoError(t, p.PublishPending(context.Background()))

		assert.Len(t, sender.sent, 3)
		assert.Equal(t, 3, metrics.published)
		for _, entry := range outbox.All() {
			assert.NotNil(t, entry.PublishedAt)
		}
	})

	t.Run("keys records by stable person hash", func(t *testing.T) {
		outbox := store.NewMemoryOutbox()
		appendEvents(t, outbox, 2)
		sender := &fakeSender{}

		p := newPublisher(t, outbox, sender, &fakeMetrics{})
		require.NoError(t, p.PublishPending(context.Background()))

		require.Len(t, sender.sent, 2)
		assert.Equal(t, sender.sent[0].key, sender.sent[1].key)
		assert.Equal(t, PersonKey(testIdent), sender.sent[0].key)
		assert.NotContains(t, string(sender.sent[0].key), testIdent.String())
	})

	t.Run("stops pass on delivery failure", func(t *testing.T) {
		outbox := store.NewMemoryOutbox()
		appendEvents(t, outbox, 3)
		sender := &fakeSender{failOn: 2}
		metrics := &fakeMetrics{}

		p := newPublisher(t, outbox, sender, metrics)
		err := p.PublishPending(context.Background())
		require.Error(t, err)

		// First entry delivered, the rest wait for the next pass.
		assert.Len(t, sender.sent, 1)
		assert.Equal(t, 1, metrics.published)
		assert.Equal(t, 1, metrics.failed)

		unpublished, err := outbox.ListUnpublished(context.Background(), 10)
		require.NoError(t, err)
		assert.Len(t, unpublished, 2)
	})

	t.Run("empty outbox is a no-op", func(t *testing.T) {
		outbox := store.NewMemoryOutbox()
		sender := &fakeSender{}

		p := newPublisher(t, outbox, sender, &fakeMetrics{})
		require.NoError(t, p.PublishPending(context.Background()))
		assert.Empty(t, sender.sent)
	})
}

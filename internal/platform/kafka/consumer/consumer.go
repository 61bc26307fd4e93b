// Package consumer runs the group consumer for all inbound topics. Offsets
// commit only after a polled batch is fully handled, so every handler must
// tolerate redelivery.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is the decoded unit handed to topic handlers.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
}

// TopicHandler handles messages from a specific topic. Returning an error
// aborts the batch before commit; the records will be redelivered.
type TopicHandler interface {
	Handle(ctx context.Context, msg *Message) error
}

// Consumer owns the poll-route-commit loop.
type Consumer struct {
	client *kgo.Client
	router *Router
	logger *slog.Logger
}

// New joins the consumer group on the router's registered topics and verifies
// they exist before the first poll, so misconfiguration fails at startup
// rather than as a silent idle consumer.
func New(ctx context.Context, brokers []string, groupID string, router *Router, logger *slog.Logger) (*Consumer, error) {
	topics := router.Topics()
	if len(topics) == 0 {
		return nil, fmt.Errorf("no topics registered")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}

	if err := ensureTopics(ctx, client, topics); err != nil {
		client.Close()
		return nil, err
	}

	return &Consumer{client: client, router: router, logger: logger}, nil
}

func ensureTopics(ctx context.Context, client *kgo.Client, topics []string) error {
	adm := kadm.NewClient(client)
	details, err := adm.ListTopics(ctx, topics...)
	if err != nil {
		return fmt.Errorf("list topics: %w", err)
	}
	for _, topic := range topics {
		if !details.Has(topic) {
			return fmt.Errorf("topic %s does not exist", topic)
		}
	}
	return nil
}

// Run polls until ctx is cancelled. A batch is committed only after every
// record in it was handled; handler errors leave the offsets uncommitted and
// back off briefly before the next poll.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Error("fetch error", "topic", topic, "partition", partition, "error", err)
		})

		if err := c.handleBatch(ctx, fetches); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			c.logger.Error("batch handling failed, offsets not committed", "error", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		if fetches.NumRecords() > 0 {
			if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
				c.logger.Error("offset commit failed", "error", err)
			}
		}
	}
}

func (c *Consumer) handleBatch(ctx context.Context, fetches kgo.Fetches) error {
	var handleErr error
	fetches.EachRecord(func(record *kgo.Record) {
		if handleErr != nil {
			return
		}
		msg := &Message{
			Topic:     record.Topic,
			Partition: record.Partition,
			Offset:    record.Offset,
			Key:       record.Key,
			Value:     record.Value,
			Timestamp: record.Timestamp,
		}
		handleErr = c.router.Handle(ctx, msg)
	})
	return handleErr
}

// Close leaves the group and releases the client.
func (c *Consumer) Close() {
	c.client.Close()
}

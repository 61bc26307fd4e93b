package timeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"dialogmotekandidat/internal/platform/kafka/consumer"
	"dialogmotekandidat/pkg/domain"
)

// SignalRecorder is the slice of the signal store the consumer needs.
type SignalRecorder interface {
	Record(ctx context.Context, personident domain.Personident, receivedAt time.Time) error
}

// FactHandler consumes timeline facts and flags the person for the next
// scheduling sweep. The fact payload itself is not stored; the sweep
// re-fetches windows from the case service.
type FactHandler struct {
	signals SignalRecorder
	logger  *slog.Logger
}

func NewFactHandler(signals SignalRecorder, logger *slog.Logger) *FactHandler {
	return &FactHandler{signals: signals, logger: logger}
}

type timelineFact struct {
	Personident string `json:"personident"`
}

// Handle records a pending signal. Malformed records are logged and skipped
// so a poison message cannot wedge the partition; store failures abort the
// batch for redelivery.
func (h *FactHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var fact timelineFact
	if err := json.Unmarshal(msg.Value, &fact); err != nil {
		h.logger.Warn("skipping malformed timeline fact",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}

	personident, err := domain.ParsePersonident(fact.Personident)
	if err != nil {
		h.logger.Warn("skipping timeline fact with invalid personident",
			"topic", msg.Topic,
			"offset", msg.Offset,
		)
		return nil
	}

	return h.signals.Record(ctx, personident, msg.Timestamp)
}

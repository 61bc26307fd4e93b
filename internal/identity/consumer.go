// Package identity consumes registry merge notifications and applies them.
package identity

import (
	"context"
	"encoding/json"
	"log/slog"

	"dialogmotekandidat/internal/platform/kafka/consumer"
	"dialogmotekandidat/pkg/domain"
	dErrors "dialogmotekandidat/pkg/domain-errors"
)

// RowMerger is the slice of the merge coordinator the consumer needs.
type RowMerger interface {
	Merge(ctx context.Context, inactive []domain.Personident, active domain.Personident) (int64, error)
}

// MergeHandler consumes identifier-merge notifications.
type MergeHandler struct {
	merger RowMerger
	logger *slog.Logger
}

func NewMergeHandler(merger RowMerger, logger *slog.Logger) *MergeHandler {
	return &MergeHandler{merger: merger, logger: logger}
}

type mergeNotification struct {
	ActiveIdent    string   `json:"aktivIdent"`
	InactiveIdents []string `json:"inaktiveIdenter"`
}

// Handle applies one merge notification. Malformed records are logged and
// skipped. A registry inconsistency (the notified active identifier went
// inactive again) is also skipped: a follow-up notification for the newer
// merge will carry the rows the rest of the way. Persistence failures abort
// the batch for redelivery.
func (h *MergeHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var notification mergeNotification
	if err := json.Unmarshal(msg.Value, &notification); err != nil {
		h.logger.Warn("skipping malformed merge notification",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}

	active, err := domain.ParsePersonident(notification.ActiveIdent)
	if err != nil {
		h.logger.Warn("skipping merge notification with invalid active identifier",
			"topic", msg.Topic,
			"offset", msg.Offset,
		)
		return nil
	}

	inactive := make([]domain.Personident, 0, len(notification.InactiveIdents))
	for _, raw := range notification.InactiveIdents {
		ident, err := domain.ParsePersonident(raw)
		if err != nil {
			h.logger.Warn("skipping merge notification with invalid inactive identifier",
				"topic", msg.Topic,
				"offset", msg.Offset,
			)
			return nil
		}
		inactive = append(inactive, ident)
	}

	moved, err := h.merger.Merge(ctx, inactive, active)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			h.logger.Warn("skipping inconsistent merge notification",
				"topic", msg.Topic,
				"offset", msg.Offset,
				"error", err,
			)
			return nil
		}
		return err
	}

	if moved > 0 {
		h.logger.Info("merge notification applied", "rows_moved", moved)
	}
	return nil
}

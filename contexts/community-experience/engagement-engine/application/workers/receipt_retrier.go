package workers

import (
	"context"
	"log/slog"

	application "engagement/contexts/community-experience/engagement-engine/application"
)

type ReceiptSource interface {
	RetryFailedReceipts(ctx context.Context) (int, error)
}

// ReceiptRetrier re-sends read receipts whose background delivery failed.
type ReceiptRetrier struct {
	Receipts ReceiptSource
	Logger   *slog.Logger
}

// RunOnce retries one batch. Individual failures stay queued for the next
// cycle and are reported but do not stop the worker loop.
func (r ReceiptRetrier) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	if r.Receipts == nil {
		return nil
	}
	confirmed, err := r.Receipts.RetryFailedReceipts(ctx)
	if err != nil {
		logger.Warn("read receipt retry cycle left failures",
			"event", "engagement_receipt_retry_partial",
			"module", application.ModuleName,
			"layer", "worker",
			"confirmed_count", confirmed,
			"error", err.Error(),
		)
		return nil
	}
	if confirmed == 0 {
		logger.Debug("read receipt retry found nothing to send",
			"event", "engagement_receipt_retry_noop",
			"module", application.ModuleName,
			"layer", "worker",
		)
		return nil
	}
	logger.Info("read receipt retry cycle completed",
		"event", "engagement_receipt_retry_completed",
		"module", application.ModuleName,
		"layer", "worker",
		"confirmed_count", confirmed,
	)
	return nil
}

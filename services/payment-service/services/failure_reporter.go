package services

import (
	"context"
	"encoding/json"
	"time"

	awspkg "github.com/yashrajoria/tailoring-backend/pkg/aws"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/models"
	"go.uber.org/zap"
)

// FailureReporter queues failed vendor groups for manual replay.
type FailureReporter struct {
	sender awspkg.MessageSender
	logger *zap.Logger
}

func NewFailureReporter(sender awspkg.MessageSender, logger *zap.Logger) *FailureReporter {
	return &FailureReporter{sender: sender, logger: logger}
}

func (r *FailureReporter) Report(ctx context.Context, eventID string, evt *models.CheckoutEvent, failures []*VendorGroupError) {
	if r == nil || r.sender == nil {
		return
	}
	for _, f := range failures {
		msg := models.VendorGroupFailedEvent{
			EventType: models.EventVendorGroupFailed,
			EventID:   eventID,
			SessionID: evt.SessionID,
			UserID:    evt.UserID,
			VendorID:  f.VendorID,
			Reason:    f.Err.Error(),
			Timestamp: time.Now().UTC(),
		}
		body, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		if err := r.sender.SendMessage(ctx, string(body), map[string]string{"event_type": msg.EventType}); err != nil {
			r.logger.Error("Failed to queue vendor group for reconciliation",
				zap.String("session_id", evt.SessionID),
				zap.String("vendor_id", f.VendorID),
				zap.Error(err),
			)
		}
	}
}

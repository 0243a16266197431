package services

import (
	"context"
	"encoding/json"
	"time"

	awspkg "github.com/yashrajoria/tailoring-backend/pkg/aws"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/models"
	"go.uber.org/zap"
)

const defaultNotifyTimeout = 5 * time.Second

// OrderNotifier hands finished orders to the notification service over SNS.
// Delivery is fire-and-forget.
type OrderNotifier struct {
	publisher awspkg.SNSPublisher
	topicARN  string
	metrics   MetricsRecorder
	logger    *zap.Logger
	timeout   time.Duration
}

func NewOrderNotifier(publisher awspkg.SNSPublisher, topicARN string, metrics MetricsRecorder, logger *zap.Logger) *OrderNotifier {
	return &OrderNotifier{
		publisher: publisher,
		topicARN:  topicARN,
		metrics:   orNoop(metrics),
		logger:    logger,
		timeout:   defaultNotifyTimeout,
	}
}

// OrderCreated publishes an order_created summary. Failures are logged and
// counted; the order is already durable.
func (n *OrderNotifier) OrderCreated(ctx context.Context, order *models.Order, recipient string) {
	if n.publisher == nil || n.topicARN == "" {
		n.logger.Debug("Order notifications disabled", zap.String("order_id", order.ID.String()))
		return
	}

	evt := models.OrderCreatedEvent{
		EventType:       models.EventOrderCreated,
		OrderID:         order.ID.String(),
		UserID:          order.UserID,
		VendorID:        order.VendorID,
		Recipient:       recipient,
		Items:           make([]models.OrderLineSummary, 0, len(order.Items)),
		TotalAmount:     order.TotalAmount,
		TotalDisplay:    FormatMinorUnits(order.TotalAmount, order.Currency),
		Currency:        order.Currency,
		ShippingAddress: order.ShippingAddress,
		Timestamp:       time.Now().UTC(),
	}
	for _, it := range order.Items {
		evt.Items = append(evt.Items, models.OrderLineSummary{
			ProductID: it.ProductID,
			Title:     it.ProductTitle,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.Subtotal,
		})
	}

	body, err := json.Marshal(evt)
	if err != nil {
		n.logger.Error("Failed to marshal order notification", zap.String("order_id", evt.OrderID), zap.Error(err))
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	if err := n.publisher.Publish(pubCtx, n.topicARN, models.EventOrderCreated, body); err != nil {
		n.logger.Warn("Failed to publish order notification", zap.String("order_id", evt.OrderID), zap.Error(err))
		_ = n.metrics.RecordCount(ctx, awspkg.MetricNotificationsFailed, 1, nil)
		return
	}
	n.logger.Info("Order notification published", zap.String("order_id", evt.OrderID))
}

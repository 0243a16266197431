package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/services"
	"go.uber.org/zap"
)

// maxWebhookBody bounds a Stripe delivery. Checkout sessions with full
// metadata stay well below it.
const maxWebhookBody = 64 << 10

type WebhookHandler interface {
	Process(ctx context.Context, payload []byte, sigHeader string) (*services.Outcome, error)
}

type WebhookController struct {
	processor WebhookHandler
	logger    *zap.Logger
}

func NewWebhookController(processor WebhookHandler, logger *zap.Logger) *WebhookController {
	return &WebhookController{processor: processor, logger: logger}
}

// StripeWebhook handles POST /stripe/webhook.
//
// Bad signatures and undecodable payloads get a 400; anything else that fails
// gets a 500 so Stripe redelivers. Redelivery is safe because order creation
// is idempotent per (session, vendor).
func (wc *WebhookController) StripeWebhook(ctx *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxWebhookBody+1))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}
	if len(payload) > maxWebhookBody {
		ctx.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Payload too large"})
		return
	}

	outcome, err := wc.processor.Process(ctx.Request.Context(), payload, ctx.GetHeader("Stripe-Signature"))
	if err != nil {
		var de *services.DecodeError
		switch {
		case errors.Is(err, services.ErrSignatureInvalid):
			wc.logger.Warn("Stripe webhook signature verification failed", zap.Error(err))
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		case errors.As(err, &de):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid checkout payload", "field": de.Field})
		default:
			fields := []zap.Field{zap.Error(err)}
			if outcome != nil {
				fields = append(fields, zap.String("event_id", outcome.EventID))
			}
			wc.logger.Error("Stripe webhook processing failed", fields...)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Processing failed"})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"received": true})
}

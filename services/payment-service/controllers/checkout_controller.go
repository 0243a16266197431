package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yashrajoria/tailoring-backend/services/common/errors"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/middleware"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/models"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/services"
)

type CheckoutController struct {
	checkoutService services.CheckoutService
}

func NewCheckoutController(svc services.CheckoutService) *CheckoutController {
	return &CheckoutController{checkoutService: svc}
}

// CreateSession handles POST /checkout/sessions
func (cc *CheckoutController) CreateSession(ctx *gin.Context) {
	var req models.CreateCheckoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	resp, err := cc.checkoutService.CreateCheckoutSession(ctx.Request.Context(), middleware.GetUserID(ctx), &req)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, resp)
}

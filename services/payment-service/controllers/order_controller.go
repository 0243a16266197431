package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apperrors "github.com/yashrajoria/tailoring-backend/services/common/errors"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/middleware"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/services"
)

// OrderController serves the buyer's order history and each tailor's
// incoming orders.
type OrderController struct {
	orderService services.OrderQueryService
}

func NewOrderController(svc services.OrderQueryService) *OrderController {
	return &OrderController{orderService: svc}
}

// ListOrders handles GET /orders
func (oc *OrderController) ListOrders(ctx *gin.Context) {
	page, limit := parsePaginationParams(ctx)
	orders, total, err := oc.orderService.ListBuyerOrders(ctx.Request.Context(), middleware.GetUserID(ctx), page, limit)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"orders": orders, "total": total, "page": page, "limit": limit})
}

// GetOrder handles GET /orders/:id
func (oc *OrderController) GetOrder(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
		return
	}

	order, err := oc.orderService.GetBuyerOrder(ctx.Request.Context(), middleware.GetUserID(ctx), id)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"order": order})
}

// ListVendorOrders handles GET /vendors/:vendorId/orders. A tailor only sees
// their own orders.
func (oc *OrderController) ListVendorOrders(ctx *gin.Context) {
	vendorID := ctx.Param("vendorId")
	if vendorID != middleware.GetUserID(ctx) {
		apperrors.Respond(ctx, apperrors.Forbidden("Not allowed to view these orders"))
		return
	}

	page, limit := parsePaginationParams(ctx)
	orders, total, err := oc.orderService.ListVendorOrders(ctx.Request.Context(), vendorID, page, limit)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"orders": orders, "total": total, "page": page, "limit": limit})
}

// parsePaginationParams extracts and validates page/limit query params.
func parsePaginationParams(ctx *gin.Context) (int, int) {
	const maxLimit = 100
	pageInt, limitInt := 1, 10
	if p, err := strconv.Atoi(ctx.DefaultQuery("page", "1")); err == nil && p > 0 {
		pageInt = p
	}
	if l, err := strconv.Atoi(ctx.DefaultQuery("limit", "10")); err == nil && l > 0 {
		if l > maxLimit {
			l = maxLimit
		}
		limitInt = l
	}
	return pageInt, limitInt
}

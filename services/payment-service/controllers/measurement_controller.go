package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apperrors "github.com/yashrajoria/tailoring-backend/services/common/errors"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/middleware"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/models"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/services"
)

type MeasurementController struct {
	measurementService services.MeasurementService
}

func NewMeasurementController(svc services.MeasurementService) *MeasurementController {
	return &MeasurementController{measurementService: svc}
}

// CreateSession handles POST /measurements/sessions
func (mc *MeasurementController) CreateSession(ctx *gin.Context) {
	var req models.CreateMeasurementSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	resp, err := mc.measurementService.CreateSession(ctx.Request.Context(), middleware.GetUserID(ctx), req.Provider)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// GetSession handles GET /measurements/sessions/:id
func (mc *MeasurementController) GetSession(ctx *gin.Context) {
	id, ok := sessionIDParam(ctx)
	if !ok {
		return
	}

	resp, err := mc.measurementService.GetSession(ctx.Request.Context(), middleware.GetUserID(ctx), id)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// SubmitManual handles PUT /measurements/sessions/:id
func (mc *MeasurementController) SubmitManual(ctx *gin.Context) {
	id, ok := sessionIDParam(ctx)
	if !ok {
		return
	}

	var req models.SubmitMeasurementsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	resp, err := mc.measurementService.SubmitManual(ctx.Request.Context(), middleware.GetUserID(ctx), id, &req)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

func sessionIDParam(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session id"})
		return uuid.Nil, false
	}
	return id, true
}

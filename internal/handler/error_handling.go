package handler

import (
	"errors"
	"net/http"

	"simulation-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) handleServiceError(c *gin.Context, err error) {
	var statusCode int
	var errResp ErrorResponse

	switch {
	case errors.Is(err, models.ErrMalformedScenario):
		statusCode = http.StatusUnprocessableEntity
		errResp = ErrorResponse{Code: ErrCodeMalformedScenario, Message: err.Error()}
	case errors.Is(err, models.ErrNotFound):
		statusCode = http.StatusNotFound
		errResp = ErrorResponse{Code: ErrCodeNotFound, Message: err.Error()}
	case errors.Is(err, models.ErrInvalidAction):
		statusCode = http.StatusBadRequest
		errResp = ErrorResponse{Code: ErrCodeInvalidAction, Message: "Unknown action"}
	case errors.Is(err, models.ErrInvalidChoice):
		statusCode = http.StatusBadRequest
		errResp = ErrorResponse{Code: ErrCodeInvalidChoice, Message: "Unknown choice for this action"}
	case errors.Is(err, models.ErrInvalidState):
		statusCode = http.StatusConflict
		errResp = ErrorResponse{Code: ErrCodeInvalidState, Message: "Simulation already completed"}
	case errors.Is(err, models.ErrVersionConflict):
		statusCode = http.StatusConflict
		errResp = ErrorResponse{Code: ErrCodeConflict, Message: "Session was modified concurrently, retry the request"}
	case errors.Is(err, models.ErrInvalidSignature), errors.Is(err, models.ErrWebhookNotConfigured):
		statusCode = http.StatusUnauthorized
		errResp = ErrorResponse{Code: ErrCodeUnauthorized, Message: "Missing or invalid webhook signature"}
	case errors.Is(err, models.ErrOTPMissing):
		statusCode = http.StatusBadRequest
		errResp = ErrorResponse{Code: ErrCodeOTPMissing, Message: "OTP expired or missing"}
	case errors.Is(err, models.ErrOTPInvalid):
		statusCode = http.StatusBadRequest
		errResp = ErrorResponse{Code: ErrCodeOTPInvalid, Message: "Invalid OTP"}
	case errors.Is(err, models.ErrBadRequest), errors.Is(err, models.ErrInvalidScenarioID):
		statusCode = http.StatusBadRequest
		errResp = ErrorResponse{Code: ErrCodeBadRequest, Message: err.Error()}
	case errors.Is(err, models.ErrPaymentProvider), errors.Is(err, models.ErrEmailDelivery):
		h.logger.Error("Upstream provider error", zap.String("path", c.FullPath()), zap.Error(err))
		statusCode = http.StatusBadGateway
		errResp = ErrorResponse{Code: ErrCodeUpstream, Message: "Upstream provider request failed"}
	default:
		h.logger.Error("Unhandled internal error in handleServiceError", zap.String("path", c.FullPath()), zap.Error(err))
		statusCode = http.StatusInternalServerError
		errResp = ErrorResponse{Code: ErrCodeInternal, Message: "An unexpected internal error occurred"}
	}

	c.AbortWithStatusJSON(statusCode, errResp)
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: ErrCodeBadRequest, Message: message})
}

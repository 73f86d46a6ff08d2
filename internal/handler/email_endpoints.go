package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) sendOTP(c *gin.Context) {
	var req sendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}
	if err := h.emails.SendOTP(c.Request.Context(), req.Email, req.Name, req.Purpose); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "OTP sent"})
}

func (h *Handler) verifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}
	if err := h.emails.VerifyOTP(c.Request.Context(), req.Email, req.OTPCode, req.Purpose); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "OTP verified"})
}

func (h *Handler) sendWelcome(c *gin.Context) {
	var req sendWelcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}
	if err := h.emails.SendWelcome(c.Request.Context(), req.Email, req.Name, req.VerificationURL); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "Welcome email sent"})
}

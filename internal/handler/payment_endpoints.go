package handler

import (
	"net/http"

	"simulation-server/internal/payment/paystack"
	"simulation-server/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) initPayment(c *gin.Context) {
	var req initPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}
	res, err := h.payments.Initialize(c.Request.Context(), service.InitPaymentRequest{
		Email:  req.Email,
		Amount: req.Amount,
		PlanID: req.PlanID,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, initPaymentResponse{
		AuthorizationURL: res.AuthorizationURL,
		AccessCode:       res.AccessCode,
		Reference:        res.Reference,
	})
}

// paystackWebhook принимает уведомления Paystack. Подпись считается от сырого тела запроса.
func (h *Handler) paystackWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		badRequest(c, "Failed to read request body")
		return
	}
	status, err := h.payments.HandleWebhook(c.Request.Context(), body, c.GetHeader(paystack.SignatureHeader))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, webhookResponse{Status: status})
}

func (h *Handler) verifyPayment(c *gin.Context) {
	data, err := h.payments.Verify(c.Request.Context(), c.Param("reference"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, verifyPaymentResponse{
		Reference: data.Reference,
		Status:    data.Status,
		Amount:    data.Amount,
		Currency:  data.Currency,
		Email:     data.Customer.Email,
		PaidAt:    data.PaidAt.Ptr(),
	})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/RozoAI/api-proxy-sub001/internal/application/paymentservice"
	"github.com/RozoAI/api-proxy-sub001/internal/domain"
)

type PaymentHandler struct {
	paymentSvc paymentservice.IPaymentService
	logger     zerolog.Logger
}

func NewPaymentHandler(paymentSvc paymentservice.IPaymentService, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentSvc: paymentSvc,
		logger:     logger,
	}
}

func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req domain.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return
	}

	resp, err := h.paymentSvc.CreatePayment(c.Request.Context(), &req)
	if err != nil {
		h.logger.Error().Err(err).
			Str("chain_id", req.RoutingChainID()).
			Msg("Failed to create payment")
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "Payment id is required",
		})
		return
	}

	resp, err := h.paymentSvc.GetPayment(c.Request.Context(), id)
	if err != nil {
		status := domain.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error().Err(err).Str("payment_id", id).Msg("Failed to get payment")
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

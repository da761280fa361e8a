package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/RozoAI/api-proxy-sub001/internal/application/reconciler"
	"github.com/RozoAI/api-proxy-sub001/internal/domain"
)

type WebhookHandler struct {
	reconciler *reconciler.Reconciler
	logger     zerolog.Logger
}

func NewWebhookHandler(rec *reconciler.Reconciler, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconciler: rec,
		logger:     logger,
	}
}

// HandleProviderWebhook authenticates the provider's shared token carried
// out-of-band from the payload (query parameter or header) and hands the raw
// payload to the reconciler.
func (h *WebhookHandler) HandleProviderWebhook(c *gin.Context) {
	provider := c.Param("provider")

	token := c.Query("token")
	if token == "" {
		token = c.GetHeader("X-Webhook-Token")
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "Failed to read webhook payload",
		})
		return
	}

	result, err := h.reconciler.HandleEvent(c.Request.Context(), provider, token, payload)
	if err != nil {
		status := domain.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error().Err(err).Str("provider", provider).Msg("Webhook reconciliation failed")
		} else {
			h.logger.Warn().Err(err).Str("provider", provider).Msg("Webhook rejected")
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

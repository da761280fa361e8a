package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/RozoAI/api-proxy-sub001/internal/domain"
	"github.com/RozoAI/api-proxy-sub001/internal/domain/interfaces"
)

type HealthHandler struct {
	router interfaces.PaymentRouter
}

func NewHealthHandler(router interfaces.PaymentRouter) *HealthHandler {
	return &HealthHandler{router: router}
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "payment-gateway",
		"version":   "1.0.0",
		"timestamp": time.Now(),
	})
}

// ProvidersHealth fans out to every configured provider adapter. The
// aggregate is reported as degraded when any provider is unhealthy, but the
// endpoint itself still answers 200: a bad upstream is a data point, not a
// gateway failure.
func (h *HealthHandler) ProvidersHealth(c *gin.Context) {
	results := h.router.CheckProvidersHealth(c.Request.Context())

	status := "healthy"
	for _, health := range results {
		if health.Status != domain.HealthStatusHealthy {
			status = "degraded"
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"providers": results,
		"timestamp": time.Now(),
	})
}

func (h *HealthHandler) SupportedChains(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"chains": h.router.SupportedChains(),
	})
}

func (h *HealthHandler) Providers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"providers": h.router.ProviderSummaries(),
	})
}

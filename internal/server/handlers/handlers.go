package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/RozoAI/api-proxy-sub001/internal/application/paymentservice"
	"github.com/RozoAI/api-proxy-sub001/internal/application/reconciler"
	"github.com/RozoAI/api-proxy-sub001/internal/domain/interfaces"
	"github.com/RozoAI/api-proxy-sub001/internal/server/middleware"
	"github.com/RozoAI/api-proxy-sub001/internal/server/websocket"
	"github.com/RozoAI/api-proxy-sub001/pkg/config"
)

type Handlers struct {
	PaymentSvc paymentservice.IPaymentService
	Reconciler *reconciler.Reconciler
	Router     interfaces.PaymentRouter
	Hub        *websocket.StatusHub
	Logger     zerolog.Logger
	Config     *config.Config
}

func New(
	paymentSvc paymentservice.IPaymentService,
	rec *reconciler.Reconciler,
	paymentRouter interfaces.PaymentRouter,
	hub *websocket.StatusHub,
	logger zerolog.Logger,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		PaymentSvc: paymentSvc,
		Reconciler: rec,
		Router:     paymentRouter,
		Hub:        hub,
		Logger:     logger,
		Config:     cfg,
	}
}

func (h *Handlers) SetupHandlers(router *gin.Engine) {
	registerValidations()

	mw := middleware.New(h.Config.Security, h.Logger)
	mw.SetupMiddleware(router)

	paymentHandler := NewPaymentHandler(h.PaymentSvc, h.Logger)
	webhookHandler := NewWebhookHandler(h.Reconciler, h.Logger)
	healthHandler := NewHealthHandler(h.Router)
	statusHandler := NewStatusHandler(h.Hub, h.Config.WebSocket, h.Logger)

	router.GET("/health", healthHandler.Health)
	router.GET("/health/providers", healthHandler.ProvidersHealth)

	// WebSocket status push
	router.GET("/status/:payment_id", statusHandler.HandleConnection)

	v1 := router.Group("/v1")
	{
		payments := v1.Group("/payments", mw.APIKeyMiddleware())
		{
			payments.POST("", paymentHandler.CreatePayment)
			payments.GET("/:id", paymentHandler.GetPayment)
		}

		v1.GET("/chains", mw.APIKeyMiddleware(), healthHandler.SupportedChains)
		v1.GET("/providers", mw.APIKeyMiddleware(), healthHandler.Providers)

		// Authenticated per provider, not by API key.
		v1.POST("/webhooks/:provider", webhookHandler.HandleProviderWebhook)
	}
}

func registerValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("decimalamount", func(fl validator.FieldLevel) bool {
			amount, err := decimal.NewFromString(fl.Field().String())
			return err == nil && amount.IsPositive()
		})
	}
}

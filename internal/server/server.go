package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/RozoAI/api-proxy-sub001/internal/application/paymentservice"
	"github.com/RozoAI/api-proxy-sub001/internal/application/reconciler"
	"github.com/RozoAI/api-proxy-sub001/internal/domain/interfaces"
	"github.com/RozoAI/api-proxy-sub001/internal/server/handlers"
	"github.com/RozoAI/api-proxy-sub001/internal/server/websocket"
	"github.com/RozoAI/api-proxy-sub001/pkg/config"
)

type Server struct {
	PaymentSvc paymentservice.IPaymentService
	Reconciler *reconciler.Reconciler
	PayRouter  interfaces.PaymentRouter
	Hub        *websocket.StatusHub
	Cfg        *config.Config
	Logger     zerolog.Logger
	Router     *gin.Engine
	httpServer *http.Server
}

func New(
	cfg *config.Config,
	paymentSvc paymentservice.IPaymentService,
	rec *reconciler.Reconciler,
	payRouter interfaces.PaymentRouter,
	hub *websocket.StatusHub,
	logger zerolog.Logger,
) *Server {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	return &Server{
		PaymentSvc: paymentSvc,
		Reconciler: rec,
		PayRouter:  payRouter,
		Hub:        hub,
		Cfg:        cfg,
		Logger:     logger,
		Router:     gin.New(),
	}
}

func (s *Server) SetupRouter() {
	handler := handlers.New(
		s.PaymentSvc,
		s.Reconciler,
		s.PayRouter,
		s.Hub,
		s.Logger,
		s.Cfg,
	)
	handler.SetupHandlers(s.Router)
}

func (s *Server) Start() {
	s.SetupRouter()

	s.httpServer = &http.Server{
		Addr:         s.Cfg.Server.Host + ":" + s.Cfg.Server.Port,
		Handler:      s.Router,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	s.Logger.Info().Msgf("Starting server on %s", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-stopChan
	s.Logger.Info().Msg("Shutdown signal received, shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.Logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	s.Logger.Info().Msg("Server exited gracefully")
}

package main

import (
	"context"

	"github.com/RozoAI/api-proxy-sub001/internal/application/paymentservice"
	"github.com/RozoAI/api-proxy-sub001/internal/application/reconciler"
	"github.com/RozoAI/api-proxy-sub001/internal/application/withdrawal"
	"github.com/RozoAI/api-proxy-sub001/internal/infrastructure/database"
	"github.com/RozoAI/api-proxy-sub001/internal/infrastructure/http/clients"
	"github.com/RozoAI/api-proxy-sub001/internal/providers"
	"github.com/RozoAI/api-proxy-sub001/internal/repositories/paymentrepo"
	"github.com/RozoAI/api-proxy-sub001/internal/routing"
	"github.com/RozoAI/api-proxy-sub001/internal/server"
	"github.com/RozoAI/api-proxy-sub001/internal/server/websocket"
	"github.com/RozoAI/api-proxy-sub001/pkg/config"
	"github.com/RozoAI/api-proxy-sub001/pkg/logger"
)

func main() {
	logger := logger.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.ShutDown()

	paymentRepo := paymentrepo.New(db, logger)

	adapters := providers.BuildAdapters(cfg.Providers, logger)

	table := routing.NewTable(cfg.Chains)
	payRouter := routing.NewRouter(table, adapters, cfg.Routing, logger)

	paymentSvc := paymentservice.New(paymentRepo, payRouter, cfg.Cache, cfg.Poller, logger)

	withdrawalClient := clients.NewWithdrawalClient(cfg.Withdrawal, logger)
	trigger := withdrawal.New(withdrawalClient, paymentRepo, cfg.Withdrawal, logger)

	hub := websocket.NewStatusHub(logger)
	go hub.Run()

	rec := reconciler.New(paymentRepo, adapters, cfg.Providers, trigger, hub, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Poller.Enabled {
		go func() {
			if err := paymentSvc.StartReconciliationLoop(ctx); err != nil && err != context.Canceled {
				logger.Error().Err(err).Msg("Reconciliation loop exited")
			}
		}()
	}

	srv := server.New(cfg, paymentSvc, rec, payRouter, hub, logger)
	srv.Start()
}

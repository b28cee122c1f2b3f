package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/exp/slog"

	"github.com/sipharbor/sms-platform/api/routes"
	"github.com/sipharbor/sms-platform/internal/config"
	"github.com/sipharbor/sms-platform/internal/handlers"
	mongorepo "github.com/sipharbor/sms-platform/internal/repositories/mongodb"
	"github.com/sipharbor/sms-platform/internal/services"
	"github.com/sipharbor/sms-platform/pkg/mongodb"
	"github.com/sipharbor/sms-platform/pkg/smsgateway"
	"github.com/sipharbor/sms-platform/pkg/webhooktoken"
)

func main() {
	// A missing .env is fine; containers set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	mongoClient, err := mongodb.NewClient(ctx, cfg.MongoDB.URI)
	cancel()
	if err != nil {
		slog.Error("failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(ctx); err != nil {
			slog.Error("failed to disconnect from MongoDB", "error", err)
		}
	}()

	db := mongoClient.Database(cfg.MongoDB.Database)

	messageRepo := mongorepo.NewMessageRepository(db)
	campaignRepo := mongorepo.NewCampaignRepository(db)
	billingRepo := mongorepo.NewBillingRecordRepository(db)
	settingsRepo := mongorepo.NewBillingSettingsRepository(db)

	tokens := webhooktoken.NewService(cfg.Webhook.Secret, cfg.Webhook.TokenTTL)

	// Delivery reports go to the webhook endpoint first and fall back to
	// writing storage directly when the callback fails.
	webhookSink := smsgateway.NewWebhookSink(cfg.Webhook.BaseURL+"/sms/webhook/delivery", tokens)
	storeSink := smsgateway.NewStoreSink(messageRepo)
	simulator := smsgateway.NewSimulator(smsgateway.WithReportSinks(webhookSink, storeSink))

	billingService := services.NewBillingService(messageRepo, billingRepo, settingsRepo, campaignRepo, cfg.Billing.Endpoint)
	smsService := services.NewSmsService(messageRepo, simulator, billingService, cfg.Simulation.DefaultProfile)
	campaignService := services.NewCampaignService(campaignRepo, messageRepo, simulator, billingService)

	router := routes.SetupRouter(cfg, routes.Handlers{
		Sms:        handlers.NewSmsHandler(smsService),
		Campaign:   handlers.NewCampaignHandler(campaignService),
		Billing:    handlers.NewBillingHandler(billingService, billingRepo, settingsRepo),
		Simulation: handlers.NewSimulationHandler(simulator),
		Webhook:    handlers.NewWebhookHandler(smsService, tokens),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		slog.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	// Cancel pending delivery-report timers before letting in-flight
	// requests drain.
	simulator.Reset()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

func setupLogger(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

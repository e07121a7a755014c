package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ArowuTest/raffle-backend/api/routes"
	"github.com/ArowuTest/raffle-backend/internal/config"
	"github.com/ArowuTest/raffle-backend/internal/handlers"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	mongorepo "github.com/ArowuTest/raffle-backend/internal/repositories/mongodb"
	"github.com/ArowuTest/raffle-backend/internal/repositories/sqlstore"
	"github.com/ArowuTest/raffle-backend/internal/services"
	"github.com/ArowuTest/raffle-backend/pkg/entitlement"
	"github.com/ArowuTest/raffle-backend/pkg/jwt"
	mongodb "github.com/ArowuTest/raffle-backend/pkg/mongodb"
	"github.com/ArowuTest/raffle-backend/pkg/notifier"
	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := pflag.String("config", "", "path to a config file (default: ./config.yaml if present)")
	migrateOnly := pflag.Bool("migrate-only", false, "prepare the storage schema and exit")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	setupLogger(cfg.LogLevel)

	if err := run(cfg, *migrateOnly); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
	if lvl > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
}

// openStore connects the configured storage backend
func openStore(ctx context.Context, cfg *config.Config) (*repositories.Store, error) {
	switch cfg.Storage.Driver {
	case "mongo":
		client, err := mongodb.NewClient(ctx, cfg.MongoDB.URI, cfg.MongoDB.ConnectTimeout)
		if err != nil {
			return nil, fmt.Errorf("connect to MongoDB: %w", err)
		}
		db := client.Database(cfg.MongoDB.Database)
		if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("ensure MongoDB indexes: %w", err)
		}
		slog.Info("Connected to MongoDB", "database", cfg.MongoDB.Database)
		return mongorepo.NewStore(db, cfg.Notify.Gateway, client.Disconnect), nil
	default:
		db, err := sqlstore.Open(ctx, cfg.SQLite.DSN)
		if err != nil {
			return nil, err
		}
		slog.Info("Opened SQL store", "remote", db.Remote())
		return db.Store(cfg.Notify.Gateway), nil
	}
}

// buildGateways registers the mock gateway plus every configured real one
func buildGateways(cfg *config.Config) []notifier.Gateway {
	gateways := []notifier.Gateway{}
	if cfg.Notify.Webhook.URL != "" {
		gateways = append(gateways, notifier.NewWebhookGateway(cfg.Notify.Webhook.URL, cfg.Notify.Webhook.Secret))
	}
	if cfg.Notify.Telegram.Token != "" {
		tg, err := notifier.NewTelegramGateway(cfg.Notify.Telegram.Token, cfg.Notify.Telegram.ChatID)
		if err != nil {
			slog.Error("Telegram gateway disabled", "error", err)
		} else {
			gateways = append(gateways, tg)
		}
	}
	gateways = append(gateways, notifier.NewMockGateway(notifier.GatewayMock))
	return gateways
}

func run(cfg *config.Config, migrateOnly bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			slog.Error("Error closing store", "error", err)
		}
	}()
	if migrateOnly {
		slog.Info("Storage schema is up to date")
		return nil
	}
	if cfg.JWT.Secret == "" {
		return errors.New("JWT secret is not configured")
	}

	tokens := jwt.NewTokenService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiresIn)*time.Second, "raffle-backend")
	var clock services.Clock

	// Services
	outbox := services.NewOutbox(store.Notifications)
	notificationService := services.NewNotificationService(
		store.Notifications, store.Settings, buildGateways(cfg),
		cfg.Notify.BatchSize, cfg.Notify.DispatchInterval,
	)
	settingsService := services.NewSystemSettingsService(store.Settings, notificationService.GatewayNames())
	entitlements := entitlement.NewClient(cfg.Entitlement.BaseURL, cfg.Entitlement.APIKey, cfg.Entitlement.Mock)
	raffleService := services.NewRaffleService(store.Raffles, entitlements)
	inventoryService := services.NewInventoryService(store.Raffles, store.Tickets, clock)
	samplerService := services.NewSamplerService(store.Raffles, store.Tickets, cfg.Reservation.SampleBulkThreshold, clock)
	reservationService := services.NewReservationService(store.Raffles, store.Tickets, samplerService, outbox, cfg.Reservation, clock)
	proofService := services.NewProofService(store.Raffles, store.Tickets, outbox, clock)
	approvalService := services.NewApprovalService(store.Raffles, store.Tickets, outbox, clock)
	orderService := services.NewOrderService(store.Raffles, store.Tickets, clock)
	drawService := services.NewDrawService(store.Raffles, store.Tickets, store.Draws, outbox, clock)
	authService := services.NewAuthService(store.AdminUsers, tokens, clock)
	reclaimer := services.NewReclaimer(store.Tickets, cfg.Reservation.ReclaimInterval, cfg.Reservation.ReclaimGrace, clock)

	// Handlers
	router := routes.SetupRouter(routes.Handlers{
		Auth:         handlers.NewAuthHandler(authService),
		Raffle:       handlers.NewRaffleHandler(raffleService, inventoryService, drawService),
		Ticket:       handlers.NewTicketHandler(inventoryService, samplerService, reservationService, reclaimer),
		Order:        handlers.NewOrderHandler(orderService, proofService, approvalService),
		Draw:         handlers.NewDrawHandler(drawService),
		Settings:     handlers.NewSystemSettingsHandler(settingsService),
		Notification: handlers.NewNotificationHandler(notificationService),
	}, tokens, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:              ":" + strings.TrimPrefix(cfg.Server.Port, ":"),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server starting", "port", cfg.Server.Port, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error { return reclaimer.Run(gctx) })
	g.Go(func() error { return notificationService.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("Server exiting")
	return nil
}

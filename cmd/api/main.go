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
	"github.com/prometheus/client_golang/prometheus"

	"github.com/peakkart/peakkart-backend/api"
	"github.com/peakkart/peakkart-backend/api/controllers"
	"github.com/peakkart/peakkart-backend/api/routes"
	"github.com/peakkart/peakkart-backend/internal/auth"
	"github.com/peakkart/peakkart-backend/internal/cart"
	"github.com/peakkart/peakkart-backend/internal/coupons"
	"github.com/peakkart/peakkart-backend/internal/inventory"
	"github.com/peakkart/peakkart-backend/internal/notifications"
	"github.com/peakkart/peakkart-backend/internal/orders"
	"github.com/peakkart/peakkart-backend/internal/payments"
	"github.com/peakkart/peakkart-backend/internal/products"
	"github.com/peakkart/peakkart-backend/internal/routing"
	"github.com/peakkart/peakkart-backend/internal/tenants"
	"github.com/peakkart/peakkart-backend/internal/users"
	"github.com/peakkart/peakkart-backend/internal/wishlist"
	"github.com/peakkart/peakkart-backend/pkg/config"
	"github.com/peakkart/peakkart-backend/pkg/db"
	"github.com/peakkart/peakkart-backend/pkg/logger"
	"github.com/peakkart/peakkart-backend/pkg/metrics"
	"github.com/peakkart/peakkart-backend/pkg/migrate"
	"github.com/peakkart/peakkart-backend/pkg/pubsub"
	"github.com/peakkart/peakkart-backend/pkg/razorpay"
	"github.com/peakkart/peakkart-backend/pkg/redis"
)

const shutdownGrace = 20 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pingers := []controllers.Pinger{dbClient, redisClient}

	var pubsubClient *pubsub.Client
	if cfg.GCP.ProjectID != "" {
		pubsubClient, err = pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		pingers = append(pingers, pubsubClient)
	} else {
		logg.Warn(ctx, "gcp project not configured, notification queue disabled")
	}

	var razorpayClient *razorpay.Client
	if cfg.Razorpay.KeyID != "" {
		razorpayClient, err = razorpay.NewClient(cfg.Razorpay, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap razorpay", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(ctx, "razorpay keys not configured, payment verification disabled")
	}

	gdb := dbClient.DB()

	registry := prometheus.NewRegistry()
	orderMetrics := metrics.NewOrderMetrics(registry)

	couponSvc, err := coupons.NewService(coupons.NewRepository(gdb), dbClient)
	if err != nil {
		fatal(ctx, logg, "coupons service", err)
	}
	if err := couponSvc.EnsureTreasureDefault(ctx); err != nil {
		fatal(ctx, logg, "seeding default coupon", err)
	}

	tenantRepo := tenants.NewRepository(gdb)
	tenantSvc, err := tenants.NewService(tenantRepo, dbClient)
	if err != nil {
		fatal(ctx, logg, "tenants service", err)
	}

	productRepo := products.NewRepository(gdb)
	productSvc, err := products.NewService(productRepo)
	if err != nil {
		fatal(ctx, logg, "products service", err)
	}

	cartRepo := cart.NewRepository(gdb)
	cartSvc, err := cart.NewService(cartRepo)
	if err != nil {
		fatal(ctx, logg, "cart service", err)
	}

	wishlistSvc, err := wishlist.NewService(wishlist.NewRepository(gdb), productRepo)
	if err != nil {
		fatal(ctx, logg, "wishlist service", err)
	}

	notificationRepo := notifications.NewRepository(gdb)
	notificationSvc, err := notifications.NewService(notificationRepo)
	if err != nil {
		fatal(ctx, logg, "notifications service", err)
	}

	var notifier orders.Notifier
	if pubsubClient != nil {
		notifier = notifications.NewDispatcher(notificationRepo, pubsubClient.NotificationPublisher(), logg)
	} else {
		notifier = notifications.NewDispatcher(notificationRepo, nil, logg)
	}

	orderRepo := orders.NewRepository(gdb)
	orderSvc, err := orders.NewService(
		orderRepo,
		dbClient,
		inventory.NewLedger(),
		couponSvc,
		productRepo,
		tenantRepo,
		cart.NewCloser(cartRepo),
		notifier,
		orderMetrics,
	)
	if err != nil {
		fatal(ctx, logg, "orders service", err)
	}

	routingSvc, err := routing.NewService(routing.NewRepository(gdb), dbClient, tenantRepo, notifier, orderMetrics)
	if err != nil {
		fatal(ctx, logg, "routing service", err)
	}

	authSvc, err := auth.NewService(auth.ServiceParams{
		UserRepo:     users.NewRepository(gdb),
		TenantReader: tenantRepo,
		LoginLimiter: redisClient,
		JWTConfig:    cfg.JWT,
		PasswordCfg:  cfg.Password,
		AuthCfg:      cfg.Auth,
	})
	if err != nil {
		fatal(ctx, logg, "auth service", err)
	}

	var verifier payments.SignatureVerifier
	if razorpayClient != nil {
		verifier = razorpayClient
	}
	paymentSvc := payments.NewService(orderRepo, verifier, logg)

	router := routes.NewRouter(routes.RouterParams{
		Config:        cfg,
		Logger:        logg,
		Redis:         redisClient,
		Pingers:       pingers,
		Gatherer:      registry,
		Auth:          authSvc,
		Orders:        orderSvc,
		Routing:       routingSvc,
		Coupons:       couponSvc,
		Tenants:       tenantSvc,
		Products:      productSvc,
		Cart:          cartSvc,
		Wishlist:      wishlistSvc,
		Notifications: notificationSvc,
		Payments:      paymentSvc,
	})

	server := api.NewServer(cfg, router)

	startCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": server.Addr,
	})
	logg.Info(startCtx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logg.Info(startCtx, "shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(startCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "graceful shutdown failed", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "api server stopped")
}

func fatal(ctx context.Context, logg *logger.Logger, what string, err error) {
	logg.Error(ctx, "failed to build "+what, err)
	os.Exit(1)
}

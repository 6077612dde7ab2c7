package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/pamoja-sacco/pamoja-sacco/internal/app"
	"github.com/pamoja-sacco/pamoja-sacco/internal/auth"
	"github.com/pamoja-sacco/pamoja-sacco/internal/loans"
	"github.com/pamoja-sacco/pamoja-sacco/internal/members"
	"github.com/pamoja-sacco/pamoja-sacco/internal/messaging"
	"github.com/pamoja-sacco/pamoja-sacco/internal/observability"
	"github.com/pamoja-sacco/pamoja-sacco/internal/platform/cache"
	"github.com/pamoja-sacco/pamoja-sacco/internal/platform/db"
	"github.com/pamoja-sacco/pamoja-sacco/internal/routeguard"
	"github.com/pamoja-sacco/pamoja-sacco/internal/shared"
	"github.com/pamoja-sacco/pamoja-sacco/internal/transactions"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	messagingService := messaging.NewService(logger, asynqClient)
	messagingHandler := messaging.NewHandler(logger, messagingService)

	membersRepo := members.NewRepository(pool)
	membersService := members.NewService(membersRepo)
	membersHandler := members.NewHandler(logger, membersService)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	resetTokens := auth.NewResetTokenStore(redisClient, cfg.ResetTokenTTL)
	authMiddleware := auth.NewMiddleware(logger, tokens, membersRepo, !cfg.IsProduction())
	authService := auth.NewService(logger, membersRepo, tokens, resetTokens, messagingService, auditLogger)
	authHandler := auth.NewHandler(logger, authService, authMiddleware)

	loansRepo := loans.NewRepository(pool)
	loansService := loans.NewService(logger, loansRepo, messagingService, membersService, auditLogger)
	loansHandler := loans.NewHandler(logger, loansService)

	transactionsRepo := transactions.NewRepository(pool)
	transactionsService := transactions.NewService(logger, transactionsRepo, idempotencyStore, auditLogger)
	transactionsHandler := transactions.NewHandler(logger, transactionsService)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		AuthMiddleware:      authMiddleware,
		AuthHandler:         authHandler,
		MembersHandler:      membersHandler,
		LoansHandler:        loansHandler,
		TransactionsHandler: transactionsHandler,
		MessagingHandler:    messagingHandler,
		RouteTable:          routeguard.DefaultTable(),
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server", slog.Any("error", err))
		os.Exit(1)
	}
}

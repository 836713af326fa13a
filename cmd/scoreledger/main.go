// Package main запускает HTTP-сервер сервиса баллов.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/avdeyev/score-ledger-system/internal/activity"
	"github.com/avdeyev/score-ledger-system/internal/config"
	"github.com/avdeyev/score-ledger-system/internal/envelope"
	"github.com/avdeyev/score-ledger-system/internal/handler"
	"github.com/avdeyev/score-ledger-system/internal/ledger"
	"github.com/avdeyev/score-ledger-system/internal/middleware"
	"github.com/avdeyev/score-ledger-system/internal/ranking"
	"github.com/avdeyev/score-ledger-system/internal/repository"
	"github.com/avdeyev/score-ledger-system/internal/service"
	"github.com/avdeyev/score-ledger-system/internal/userdir"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	loc, err := time.LoadLocation(cfg.DailyTimezone)
	if err != nil {
		sugar.Fatalw("invalid timezone", "tz", cfg.DailyTimezone, "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	var directory *userdir.Client
	if cfg.UserDirectoryAddress != "" {
		directory = userdir.NewClient(cfg.UserDirectoryAddress)
	}

	points := ledger.New(repo, logger)
	envelopes := envelope.NewService(repo, points, envelope.NewAllocator(), logger, cfg.EnvelopeTTL)
	counter := activity.NewCounter(repo, loc)
	leaderboard := ranking.NewView(repo)

	svc := service.NewService(
		repo, points, envelopes, counter, leaderboard, directory,
		service.TransferPolicy{
			MinAmount:  cfg.TransferMinAmount,
			MaxAmount:  cfg.TransferMaxAmount,
			Fee:        cfg.TransferFee,
			DailyLimit: cfg.TransferDailyLimit,
		},
		cfg.DailyLimits(),
		cfg.SweepInterval,
	)
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, directory, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Фоновая уборка просроченных конвертов
	g.Go(func() error {
		svc.StartMaintenance(ctx)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting score ledger server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

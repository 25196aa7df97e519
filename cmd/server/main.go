package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teamscope/teamscope/internal/api"
	"github.com/teamscope/teamscope/internal/auth"
	"github.com/teamscope/teamscope/internal/authz"
	"github.com/teamscope/teamscope/internal/config"
	"github.com/teamscope/teamscope/internal/database"
	"github.com/teamscope/teamscope/internal/membership"
	"github.com/teamscope/teamscope/internal/module"
	"github.com/teamscope/teamscope/internal/moduleconfig"
	"github.com/teamscope/teamscope/internal/resolver"
	"github.com/teamscope/teamscope/internal/team"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	db, err := database.New(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = db.Migrate(migrateCtx)
	cancel()
	if err != nil {
		slog.Error("failed to apply database schema", "error", err)
		os.Exit(1)
	}

	userRepo := auth.NewUserRepository(db.Pool())
	teamRepo := team.NewRepository(db.Pool())
	membershipRepo := membership.NewRepository(db.Pool())
	configRepo := moduleconfig.NewRepository(db.Pool())

	registry := module.NewRegistry()
	authService := auth.NewService(userRepo, cfg.BcryptCost)
	configService := moduleconfig.NewService(registry, configRepo)
	engine := authz.NewEngine(membershipRepo)
	moduleResolver := resolver.New(registry, configRepo, membershipRepo, userRepo)

	bootstrapCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	_, err = authService.BootstrapAdmin(bootstrapCtx)
	cancel()
	if err != nil {
		slog.Error("failed to bootstrap admin", "error", err)
		os.Exit(1)
	}

	router := api.NewRouter(api.RouterDeps{
		AuthService:    authService,
		UserRepo:       userRepo,
		TeamRepo:       teamRepo,
		MembershipRepo: membershipRepo,
		ConfigService:  configService,
		Resolver:       moduleResolver,
		Engine:         engine,
		DBPinger:       db,
		Version:        cfg.Version,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting teamscope server", "port", cfg.Port, "version", cfg.Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

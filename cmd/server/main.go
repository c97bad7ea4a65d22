package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "tasktracker/docs" // swagger docs

	"github.com/labstack/echo/v4"

	"tasktracker/internal/auth"
	"tasktracker/internal/cache"
	"tasktracker/internal/config"
	"tasktracker/internal/db"
	"tasktracker/internal/handler"
	"tasktracker/internal/repository"
	"tasktracker/internal/router"
	"tasktracker/internal/service"
)

// @title Task Tracker API
// @version 1.0
// @description Task tracking API with role-based updates and JWT authentication.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	gormDB, err := db.NewMySQL(cfg.MySQLDSN, cfg.MySQLMaxOpenConns)
	if err != nil {
		return err
	}

	if cfg.ResetDB {
		logger.Warn("RESET_DB=true detected, dropping all tables")
		if err := db.Reset(gormDB); err != nil {
			return err
		}
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTLifetime)
	if err != nil {
		return err
	}
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	taskRepo := repository.NewTaskRepository(gormDB)

	// Initialize services
	userService := service.NewUserService(userRepo, cacheClient, logger)
	authService := service.NewAuthService(userRepo, tokens, tokenStore, cfg.BcryptCost, logger)
	taskService := service.NewTaskService(taskRepo, userRepo, logger)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, logger, auth.NewResolver(tokens, userService, tokenStore, logger), router.Handlers{
		Auth: handler.NewAuthHandler(authService),
		User: handler.NewUserHandler(userService),
		Task: handler.NewTaskHandler(taskService),
	})

	logger.Info("swagger documentation available", "url", swaggerURL(cfg.SwaggerHost, cfg.ServerPort))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(":" + cfg.ServerPort)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// swaggerURL builds the UI address. host may already include a scheme.
func swaggerURL(host, port string) string {
	if host == "" {
		host = "localhost:" + port
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/swagger/index.html"
}

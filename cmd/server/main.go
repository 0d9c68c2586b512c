package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"railboard/internal/auth"
	"railboard/internal/config"
	"railboard/internal/session"
	"railboard/internal/web"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer logger.Sync()

	store, err := newSessionStore(cfg)
	if err != nil {
		logger.Fatal("session store init", zap.Error(err))
	}

	cookies := auth.NewCookieService(cfg.CookieSecret)
	server := web.NewServer(cfg, store, cookies, logger)

	e := echo.New()
	e.HideBanner = true
	if err := server.Routes(e); err != nil {
		logger.Fatal("route setup", zap.Error(err))
	}

	addr := ":" + cfg.ServerPort
	logger.Info("console listening", zap.String("addr", addr), zap.String("backend", cfg.BackendURL))
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server start", zap.Error(err))
	}
}

// newSessionStore picks Redis when configured and in-process memory otherwise.
func newSessionStore(cfg *config.Config) (session.Store, error) {
	if cfg.RedisAddr == "" {
		return session.NewMemoryStore(), nil
	}
	store := session.NewRedisStore(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, auth.SessionExpiry)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// Command stubd runs the reference scheduling backend: the REST contract the
// console is written against, backed by a local database and seeded with demo
// accounts and trains.
package main

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"railboard/internal/config"
	"railboard/internal/stub"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer logger.Sync()

	db, err := stub.OpenDB(cfg.MySQLDSN, cfg.SQLiteDSN)
	if err != nil {
		logger.Fatal("database init", zap.Error(err))
	}
	if err := stub.Migrate(db); err != nil {
		logger.Fatal("auto-migrate", zap.Error(err))
	}
	if err := stub.Seed(db); err != nil {
		logger.Fatal("seed", zap.Error(err))
	}

	server := stub.NewServer(db, stub.NewTokenService(cfg.JWTSecret), logger)

	e := echo.New()
	e.HideBanner = true
	server.Register(e)

	addr := ":" + cfg.StubPort
	logger.Info("backend listening", zap.String("addr", addr))
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server start", zap.Error(err))
	}
}

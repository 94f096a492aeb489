package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"chefia-terminal-api/internal/cache"
	"chefia-terminal-api/internal/config"
	"chefia-terminal-api/internal/events"
	"chefia-terminal-api/internal/gateway"
)

func main() {
	cfg := config.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	client := gateway.NewClient(cfg.BackendURL, cfg.BackendToken, cfg.HTTPTimeout, log)
	defer client.Close()

	requestCache := cache.New(log)
	defer requestCache.Close()

	bus := events.NewBus(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poller := gateway.NewPoller(client, bus, cfg.TerminalID, cfg.PollInterval, log)
	poller.Start(ctx)
	defer poller.Stop()

	router, cashierService := SetupRoutes(log, client, requestCache, bus, cfg)
	defer cashierService.Close()

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("terminal api listening",
			zap.String("port", cfg.Port),
			zap.String("terminal_id", cfg.TerminalID),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
}

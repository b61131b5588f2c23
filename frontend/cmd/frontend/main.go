package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/itchan-dev/echobox/frontend/internal/router"
	"github.com/itchan-dev/echobox/frontend/internal/setup"
	"github.com/itchan-dev/echobox/shared/config"
	"github.com/itchan-dev/echobox/shared/logger"
)

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 60 * time.Second // media downloads stream through
	idleTimeout     = 120 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	configFolder := flag.String("config_folder", "config", "Path to folder with public.yaml and private.yaml")
	flag.Parse()

	cfg := config.MustLoad(*configFolder)
	logger.Initialize(cfg.Public.LogLevel, cfg.Public.LogJSON)

	deps, err := setup.SetupDependencies(cfg)
	if err != nil {
		logger.Log.Error("failed to setup dependencies", "error", err)
		os.Exit(1)
	}
	defer deps.CancelFunc()

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Public.Port),
		Handler:      router.SetupRouter(deps),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	go func() {
		logger.Log.Info("starting frontend", "address", server.Addr, "gateway", cfg.Public.GatewayURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("shutting down frontend")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Log.Error("server forced to shutdown", "error", err)
	}
}

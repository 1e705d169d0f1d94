package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medmind-api/internal/api/handlers"
	"medmind-api/internal/app"
	"medmind-api/internal/config"
	"medmind-api/internal/logger"
	"medmind-api/internal/repository/postgres"
	"medmind-api/internal/service/session"

	"github.com/sirupsen/logrus"
)

func main() {
	appConfig, err := config.LoadConfig()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load configuration")
	}

	// Initialize database
	logger.Log.Info("Initializing database...")
	database, err := postgres.NewPostgresDB(appConfig.Database)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	locker, closeLocker, err := app.NewLocker(ctx, appConfig.Lock)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize conversation locks")
	}
	defer closeLocker()

	provider := session.NewOpenAIProvider(appConfig.OpenAI)
	config := app.NewConfig(database, appConfig, provider, locker)

	// Go 1.22+ ServeMux for method routing and path parameters
	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, config)

	server := &http.Server{
		Addr:              ":" + appConfig.Server.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.Execution.Timeout+5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.WithError(err).Warn("Server shutdown did not complete cleanly")
		}
	}()

	logger.Log.WithFields(logrus.Fields{
		"port":              appConfig.Server.Port,
		"lock_driver":       appConfig.Lock.Driver,
		"default_model":     appConfig.Pricing.DefaultModel(),
		"execution_timeout": appConfig.Execution.Timeout.String(),
	}).Info("Server starting")
	logger.Log.Infof("Health check: http://localhost:%s/api/health", appConfig.Server.Port)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.WithError(err).Fatal("Server failed to start")
	}
}

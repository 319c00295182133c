package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"reviewdesk/internal/database"
	"reviewdesk/internal/features"
	"reviewdesk/internal/handler"
	"reviewdesk/internal/repo"
	"reviewdesk/internal/resolver"
	"reviewdesk/internal/service"
	"reviewdesk/internal/utils/extractor"
	logging "reviewdesk/pkg/logger"
	"reviewdesk/pkg/rabbit"
	"reviewdesk/pkg/redis"
)

//nolint:gochecknoglobals // Cobra boilerplate
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the review-portal HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.Logger(context.TODO())
		startServer(logger)
		return nil
	},
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(serveCmd)
}

func startServer(logger *zap.Logger) {
	db, err := database.Open(database.ReadConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	repository := repo.New(db)
	cache := redis.New(viper.GetBool("redis.enable"), redis.ReadConfig())
	queue := rabbit.New(rabbit.ReadConfig())

	portal := features.New(repository, queue, cache, resolver.ReadConfig(), logger)

	ext := extractor.New()
	verifier := handler.NewHMACVerifier(viper.GetString("auth.attestation_secret"))
	storage := service.NewStorageClient(logger)
	identity := service.NewIdentityClient(logger)

	router := gin.New()
	router.Use(gin.Recovery())
	handler.New(portal, storage, identity, ext, logger).Register(router, verifier)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", viper.GetString("server.port")),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", viper.GetString("server.port")))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	logger.Info("HTTP server stopped")
}

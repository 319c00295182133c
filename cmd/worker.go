package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"reviewdesk/internal/database"
	"reviewdesk/internal/features"
	"reviewdesk/internal/repo"
	"reviewdesk/internal/resolver"
	logging "reviewdesk/pkg/logger"
	"reviewdesk/pkg/rabbit"
	"reviewdesk/pkg/redis"
)

//nolint:gochecknoglobals // Cobra boilerplate
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume submission events and recompute response statuses",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.Logger(context.TODO())
		startWorker(logger)
		return nil
	},
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(workerCmd)
}

func startWorker(logger *zap.Logger) {
	db, err := database.Open(database.ReadConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	repository := repo.New(db)
	cache := redis.New(viper.GetBool("redis.enable"), redis.ReadConfig())
	queue := rabbit.New(rabbit.ReadConfig())

	portal := features.New(repository, queue, cache, resolver.ReadConfig(), logger)

	pool := features.NewRecomputePool(
		viper.GetInt("worker.pool_size"),
		viper.GetInt("worker.max_tasks_per_worker"),
		viper.GetInt("worker.max_idle_time"),
		viper.GetInt("worker.max_task_wait_time"),
	)
	pool.Start(portal)
	defer pool.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := queue.Consume(ctx, portal.HandleScoreEvent); err != nil {
			logger.Fatal("Failed to consume submission events", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down worker...")
}

package cmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"reviewdesk/internal/database"
	"reviewdesk/internal/features"
	"reviewdesk/internal/models"
	"reviewdesk/internal/repo"
	"reviewdesk/internal/resolver"
	logging "reviewdesk/pkg/logger"
	"reviewdesk/pkg/rabbit"
	"reviewdesk/pkg/redis"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rubricFile string

//nolint:gochecknoglobals // Cobra boilerplate
var importRubricsCmd = &cobra.Command{
	Use:   "import-rubrics",
	Short: "Bulk import interview rubrics from a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.Logger(context.TODO())
		return importRubrics(cmd.Context(), logger)
	},
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	importRubricsCmd.Flags().StringVarP(&rubricFile, "file", "f", "", "path to the rubric JSON file")
	if err := importRubricsCmd.MarkFlagRequired("file"); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(importRubricsCmd)
}

func importRubrics(ctx context.Context, logger *zap.Logger) error {
	raw, err := os.ReadFile(rubricFile)
	if err != nil {
		return err
	}

	var rubrics []models.InterviewRubric
	if err := json.Unmarshal(raw, &rubrics); err != nil {
		return err
	}

	db, err := database.Open(database.ReadConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	// Offline import, no cache or broker to keep in sync.
	repository := repo.New(db)
	portal := features.New(repository, &rabbit.Dummy{}, redis.Dummy(), resolver.ReadConfig(), logger)

	count, err := portal.ImportInterviewRubrics(ctx, rubrics)
	if err != nil {
		return err
	}

	logger.Info("Imported interview rubrics", zap.Int("count", count), zap.String("file", rubricFile))
	return nil
}

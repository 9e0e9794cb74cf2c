package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var warmupCmd = &cobra.Command{
	Use:   "warmup",
	Short: "Build the job embedding cache and the similarity index",
	Run: func(_ *cobra.Command, _ []string) {
		warmup()
	},
}

func init() {
	rootCmd.AddCommand(warmupCmd)
}

func warmup() {
	ctx := context.Background()
	start := time.Now()

	logger, config := setup()

	c, err := buildComponents(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the engine", zap.Error(err))
	}

	res, err := c.engine.Warmup(ctx)
	if err != nil {
		logger.Fatal("building the job index", zap.Error(err))
	}

	logger.Info("warmup completed",
		zap.String("cache", config.Cache.Path),
		zap.Bool("hit", res.Hit),
		zap.Bool("recomputed", res.Recomputed),
		zap.Bool("persisted", res.Persisted),
		zap.Duration("took", time.Since(start)),
	)
}

package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend jobs and a learning plan for a list of skills",
	Run: func(cmd *cobra.Command, _ []string) {
		recommend(cmd)
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().StringSliceP("skills", "s", nil, "comma separated list of skills you already have")
	recommendCmd.MarkFlagRequired("skills")
}

func recommend(cmd *cobra.Command) {
	ctx := context.Background()

	logger, config := setup()

	list, err := cmd.Flags().GetStringSlice("skills")
	if err != nil {
		logger.Fatal("reading skills flag", zap.Error(err))
	}

	c, err := buildComponents(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the engine", zap.Error(err))
	}

	report, err := c.service.Recommend(ctx, list)
	if err != nil {
		fatalAnalysis(logger, err)
	}

	if err := printJSON(cmd.OutOrStdout(), report); err != nil {
		logger.Fatal("printing the report", zap.Error(err))
	}
}

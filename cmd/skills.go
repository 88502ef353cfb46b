package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nicolad/nomadically.work/internal/store"
	"github.com/nicolad/nomadically.work/internal/taxonomy"
)

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Inspect stored skills and the tag vocabulary",
}

var skillsListCmd = &cobra.Command{
	Use:   "list JOB_ID",
	Short: "Print the stored skills of a job, required first",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logger, config := setup()

		jobID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			logger.Fatal("parsing job id", zap.String("job_id", args[0]), zap.Error(err))
		}

		ctx := context.Background()
		db, err := store.Open(ctx, config.Database, store.WithLogger(logger))
		if err != nil {
			logger.Fatal("opening the database", zap.Error(err))
		}
		defer db.Close()

		assertions, err := db.ListByJob(ctx, jobID)
		if err != nil {
			logger.Fatal("listing skills", zap.Error(err))
		}

		logger.Debug("listed skills", zap.Int64("job_id", jobID), zap.Int("count", len(assertions)))

		pretty, _ := json.MarshalIndent(assertions, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(pretty))
	},
}

var skillsTagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Print the tag vocabulary by category",
	Run: func(cmd *cobra.Command, _ []string) {
		logger, config := setup()

		tax, err := taxonomy.Load(config.Taxonomy)
		if err != nil {
			logger.Fatal("loading taxonomy", zap.Error(err))
		}

		for _, category := range tax.Categories() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s:\n", category)
			for _, tag := range tax.CategoryTags(category) {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-20s %s\n", tag.Tag, tag.Label)
			}
		}
		logger.Debug("taxonomy", zap.Int("tags", tax.Len()))
	},
}

func init() {
	skillsCmd.AddCommand(skillsListCmd, skillsTagsCmd)
	rootCmd.AddCommand(skillsCmd)
}

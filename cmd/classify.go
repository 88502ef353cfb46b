package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nicolad/nomadically.work/internal/classification"
	"github.com/nicolad/nomadically.work/internal/logger"
)

const (
	sourceModel     = "model"
	sourceHeuristic = "heuristic"
)

type classified struct {
	JobID int64 `json:"job_id"`
	classification.Record
	Source string `json:"source"`
	Error  string `json:"error,omitempty"`
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Decide for every job whether it is fully remote and open to EU workers",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger, config := setup()

		jobsFile, _ := cmd.Flags().GetString("jobs")
		jobs, err := loadJobs(jobsFile)
		if err != nil {
			logger.Fatal("loading jobs", zap.Error(err))
		}

		var model *classification.Classifier
		if heuristic, _ := cmd.Flags().GetBool("heuristic"); !heuristic {
			model = newClassifier(ctx, config, logger)
		}

		out := make([]classified, 0, len(jobs))
		for _, j := range jobs {
			if ctx.Err() != nil {
				logger.Warn("classification interrupted", zap.Int("done", len(out)), zap.Int("jobs", len(jobs)))
				break
			}
			record, source, err := classify(ctx, model, toClassificationJob(j), logger)
			c := classified{JobID: j.ID, Record: record, Source: source}
			if err != nil {
				c.Error = err.Error()
			}
			out = append(out, c)
		}

		pretty, _ := json.MarshalIndent(out, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(pretty))
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().StringP("jobs", "f", "", "YAML or JSON file with the jobs to classify")
	classifyCmd.Flags().Bool("heuristic", false, "use the offline keyword classifier instead of the model")
	classifyCmd.MarkFlagRequired("jobs")
}

// classify uses the model when there is one and the heuristic otherwise.
// A model failure is returned as is, without falling back.
func classify(ctx context.Context, model *classification.Classifier, job classification.Job, log *zap.Logger) (classification.Record, string, error) {
	if model == nil {
		return classification.Heuristic(job), sourceHeuristic, nil
	}

	record, err := model.Classify(ctx, job)
	if err != nil {
		log.Warn("classification failed", append(logger.JobFields(job.ID, ""), zap.Error(err))...)
		return classification.Record{}, sourceModel, err
	}
	return record, sourceModel, nil
}

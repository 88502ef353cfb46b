package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nicolad/nomadically.work/internal/pipeline"
	"github.com/nicolad/nomadically.work/internal/store"
)

const (
	PromptYes      = "Yes"
	PromptNo       = "No"
	PromptShowJobs = "Show jobs"
	PromptDryRun   = "Dry run (do not store)"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Extract and store skills?",
	Items: []string{PromptYes, PromptNo, PromptShowJobs, PromptDryRun},
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract, validate and store skills for a file of jobs",
	Run: func(cmd *cobra.Command, _ []string) {
		extract(cmd)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("jobs", "f", "", "YAML or JSON file with the jobs to process")
	extractCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before storing")
	extractCmd.Flags().Bool("dry-run", false, "run extraction and validation without storing")
	extractCmd.MarkFlagRequired("jobs")
}

// extract runs a batch and stores the validated skills.
func extract(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, config := setup()

	jobsFile, _ := cmd.Flags().GetString("jobs")
	jobs, err := loadJobs(jobsFile)
	if err != nil {
		logger.Fatal("loading jobs", zap.Error(err))
	}
	if len(jobs) == 0 {
		logger.Info("exiting", zap.String("reason", "no jobs in file"))
		return
	}

	logger.Info("starting extraction", zap.String("version", version), zap.Int("jobs", len(jobs)))

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	autoApprove, _ := cmd.Flags().GetBool("auto-approve")
	if !autoApprove {
		dryRun, err = confirm(jobs, dryRun, logger)
		if err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}

	var persister pipeline.Persister
	if !dryRun {
		lock := flock.New(config.Database + ".lock")
		locked, err := lock.TryLock()
		if err != nil {
			logger.Fatal("locking the database", zap.Error(err))
		}
		if !locked {
			logger.Fatal("another extraction holds the database lock", zap.String("lock", lock.Path()))
		}
		defer lock.Unlock()

		db, err := store.Open(ctx, config.Database, store.WithLogger(logger))
		if err != nil {
			logger.Fatal("opening the database", zap.Error(err))
		}
		defer db.Close()
		persister = db
	}

	p, err := newPipeline(ctx, config, persister, logger)
	if err != nil {
		logger.Fatal("building the pipeline", zap.Error(err))
	}

	results, summary := p.Batch(ctx, jobs)

	// do not bother error since results are plain data
	pretty, _ := json.MarshalIndent(struct {
		Summary pipeline.Summary  `json:"summary"`
		Results []pipeline.Result `json:"results"`
	}{summary, results}, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(pretty))

	if summary.Failed > 0 {
		for _, r := range results {
			if r.Err != nil {
				logger.Warn("job failed", zap.Int64("job_id", r.JobID), zap.Error(r.Err))
			}
		}
		logger.Fatal("extraction finished with failures", zap.Int("failed", summary.Failed), zap.String("run_id", summary.RunID))
	}
}

// confirm asks until the user approves, declines or picks a dry run.
func confirm(jobs []pipeline.Job, dryRun bool, logger *zap.Logger) (bool, error) {
	for {
		_, action, err := prompt.Run()
		if err != nil {
			return dryRun, err
		}

		switch action {
		case PromptYes:
			return dryRun, nil
		case PromptDryRun:
			return true, nil
		case PromptNo:
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return dryRun, errExit
		case PromptShowJobs:
			titles := make([]string, 0, len(jobs))
			for _, j := range jobs {
				titles = append(titles, fmt.Sprintf("%d %s", j.ID, strings.TrimSpace(j.Title)))
			}
			logger.Info("jobs to process", zap.Strings("jobs", titles))
		default:
			return dryRun, fmt.Errorf("invalid action: %s", action)
		}
	}
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nicolad/nomadically.work/internal/classification"
	"github.com/nicolad/nomadically.work/internal/eval"
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Score classifications and verify curated listing batches",
}

var evalClassificationCmd = &cobra.Command{
	Use:   "classification",
	Short: "Score classifier output against labelled cases",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger, config := setup()

		casesFile, _ := cmd.Flags().GetString("cases")
		data, err := os.ReadFile(casesFile)
		if err != nil {
			logger.Fatal("reading cases", zap.Error(err))
		}

		// an unreadable document still yields a report
		cases, parseErr := eval.ParseCases(data)
		if parseErr != nil {
			logger.Warn("cases are malformed", zap.Error(parseErr))
		}
		for _, c := range cases {
			if c.Failure != "" {
				logger.Warn("malformed case", zap.String("case", c.ID), zap.String("reason", c.Failure))
			}
		}

		missing := 0
		for _, c := range cases {
			if c.Actual == nil && c.Failure == "" {
				missing++
			}
		}

		if missing > 0 {
			var model *classification.Classifier
			if heuristic, _ := cmd.Flags().GetBool("heuristic"); !heuristic {
				model = newClassifier(ctx, config, logger)
			}
			logger.Info("classifying cases without an actual record", zap.Int("cases", missing), zap.Bool("model", model != nil))

			for i := range cases {
				if cases[i].Actual != nil || cases[i].Failure != "" {
					continue
				}
				if ctx.Err() != nil {
					cases[i].Failure = ctx.Err().Error()
					continue
				}
				record, _, err := classify(ctx, model, cases[i].Job, logger)
				if err != nil {
					cases[i].Failure = err.Error()
					continue
				}
				cases[i].Actual = &record
			}
		}

		report := eval.ScoreAll(cases)
		if parseErr != nil {
			report.Reason = parseErr.Error()
		}
		logger.Info("classification scored",
			zap.Int("cases", len(report.Cases)),
			zap.Float64("mean", report.Mean),
			zap.Int("exact", report.Exact),
			zap.Int("half", report.Half),
			zap.Int("wrong", report.Wrong),
		)

		if path, _ := cmd.Flags().GetString("report"); path != "" {
			if err := eval.WriteReport(path, &report, nil, time.Now()); err != nil {
				logger.Fatal("writing report", zap.Error(err))
			}
		}

		pretty, _ := json.MarshalIndent(report, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(pretty))
	},
}

var evalListingsCmd = &cobra.Command{
	Use:   "listings",
	Short: "Verify a batch of curated remote listings",
	Run: func(cmd *cobra.Command, _ []string) {
		logger, _ := setup()

		file, _ := cmd.Flags().GetString("file")
		data, err := os.ReadFile(file)
		if err != nil {
			logger.Fatal("reading listings", zap.Error(err))
		}

		now := time.Now()
		if raw, _ := cmd.Flags().GetString("now"); raw != "" {
			now, err = time.Parse(time.RFC3339, raw)
			if err != nil {
				logger.Fatal("parsing --now", zap.String("now", raw), zap.Error(err))
			}
		}

		verdict := eval.VerifyBatch(data, now)
		logger.Info("listings verified",
			zap.Float64("score", verdict.Score),
			zap.Int("passed", verdict.Diagnostics.Passed),
			zap.Int("total", verdict.Diagnostics.Total),
			zap.String("reason", verdict.Diagnostics.Reason),
		)

		if path, _ := cmd.Flags().GetString("report"); path != "" {
			if err := eval.WriteReport(path, nil, &verdict, now); err != nil {
				logger.Fatal("writing report", zap.Error(err))
			}
		}

		pretty, _ := json.MarshalIndent(verdict, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(pretty))
	},
}

func init() {
	evalCmd.AddCommand(evalClassificationCmd, evalListingsCmd)
	rootCmd.AddCommand(evalCmd)

	evalClassificationCmd.Flags().StringP("cases", "c", "", "YAML or JSON file with labelled cases")
	evalClassificationCmd.Flags().Bool("heuristic", false, "classify missing cases with the offline keyword classifier")
	evalClassificationCmd.Flags().StringP("report", "r", "", "write an xlsx report to this path")
	evalClassificationCmd.MarkFlagRequired("cases")

	evalListingsCmd.Flags().StringP("file", "f", "", "YAML or JSON file with europe and worldwide buckets")
	evalListingsCmd.Flags().String("now", "", "reference time in RFC3339 (default is the current time)")
	evalListingsCmd.Flags().StringP("report", "r", "", "write an xlsx report to this path")
	evalListingsCmd.MarkFlagRequired("file")
}

package cmd

import (
	"context"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nicolad/nomadically.work/internal/mcpserver"
	"github.com/nicolad/nomadically.work/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scoring, verification, classification and extraction tools over MCP stdio",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		logger, config := setup()

		opts := []mcpserver.Option{}

		if noExtract, _ := cmd.Flags().GetBool("no-extract"); !noExtract {
			lock := flock.New(config.Database + ".lock")
			locked, err := lock.TryLock()
			switch {
			case err != nil:
				logger.Warn("extract_skills disabled", zap.String("reason", "locking the database"), zap.Error(err))
			case !locked:
				logger.Warn("extract_skills disabled", zap.String("reason", "another process holds the database lock"), zap.String("lock", lock.Path()))
			default:
				defer lock.Unlock()

				db, err := store.Open(ctx, config.Database, store.WithLogger(logger))
				if err != nil {
					logger.Fatal("opening the database", zap.Error(err))
				}
				defer db.Close()

				p, err := newPipeline(ctx, config, db, logger)
				if err != nil {
					logger.Warn("extract_skills disabled", zap.Error(err))
				} else {
					opts = append(opts, mcpserver.WithRunner(p))
				}
			}
		}

		if heuristic, _ := cmd.Flags().GetBool("heuristic"); !heuristic {
			// a nil *Classifier would still be a non-nil interface
			if model := newClassifier(ctx, config, logger); model != nil {
				opts = append(opts, mcpserver.WithClassifier(model))
			}
		}

		if err := mcpserver.New(version, logger, opts...).ServeStdio(); err != nil {
			logger.Fatal("serving mcp", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Bool("no-extract", false, "do not register the extract_skills tool")
	serveCmd.Flags().Bool("heuristic", false, "classify with the offline keyword classifier")
}

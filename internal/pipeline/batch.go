package pipeline

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nicolad/nomadically.work/internal/logger"
)

// Summary counts the outcomes of a batch.
type Summary struct {
	RunID     string `json:"run_id"`
	Jobs      int    `json:"jobs"`
	Succeeded int    `json:"succeeded"`
	Empty     int    `json:"empty"`
	Failed    int    `json:"failed"`
	Skills    int    `json:"skills"`
	Canceled  bool   `json:"canceled,omitempty"`
}

// Batch runs every job and returns one result per job in input order.
// A failing job never stops its siblings.
func (p *Pipeline) Batch(ctx context.Context, jobs []Job) ([]Result, Summary) {
	runID := uuid.NewString()
	log := p.logger.With(zap.String(logger.FieldRunID, runID))

	limit := p.cfg.Concurrency
	if limit < 1 {
		limit = 1
	}

	log.Info("batch started", zap.Int("jobs", len(jobs)), zap.Int("concurrency", limit))

	results := make([]Result, len(jobs))

	var g errgroup.Group
	g.SetLimit(limit)

	for i, job := range jobs {
		g.Go(func() error {
			jobLog := logger.WithFields(p.logger, logger.JobFields(job.ID, runID)...)

			res, err := p.run(ctx, job, jobLog)
			if err != nil {
				res.Err = err
				jobLog.Error("job failed", zap.Error(err))
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	summary := Summarize(results)
	summary.RunID = runID
	summary.Canceled = errors.Is(ctx.Err(), context.Canceled)

	log.Info("batch finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("empty", summary.Empty),
		zap.Int("failed", summary.Failed),
		zap.Int("skills", summary.Skills),
	)
	return results, summary
}

// Summarize counts results.
func Summarize(results []Result) Summary {
	s := Summary{Jobs: len(results)}
	for _, r := range results {
		switch {
		case r.Err != nil:
			s.Failed++
		case r.Empty:
			s.Empty++
		default:
			s.Succeeded++
			s.Skills += len(r.Skills)
		}
	}
	return s
}

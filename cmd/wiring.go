package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/nicolad/nomadically.work/internal/ai/gemini"
	"github.com/nicolad/nomadically.work/internal/classification"
	"github.com/nicolad/nomadically.work/internal/extraction"
	"github.com/nicolad/nomadically.work/internal/logger"
	"github.com/nicolad/nomadically.work/internal/pipeline"
	"github.com/nicolad/nomadically.work/internal/retriever"
	"github.com/nicolad/nomadically.work/internal/secrets"
	"github.com/nicolad/nomadically.work/internal/signals"
	"github.com/nicolad/nomadically.work/internal/taxonomy"
	"github.com/nicolad/nomadically.work/internal/validation"
	"github.com/nicolad/nomadically.work/internal/vectorize"

	"github.com/spf13/viper"
)

const (
	retrievalLexical   = "lexical"
	retrievalVectorize = "vectorize"
)

// setup builds the logger and decodes the config. Failures are fatal like in
// every command of the cli.
func setup() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	return logger, config
}

func newGenerator(ctx context.Context, cfg *AIConfig, log *zap.Logger) (*gemini.Generator, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != gemini.Provider {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:           "gemini api key",
		Value:          cfg.Gemini.APIKey,
		File:           cfg.Gemini.APIKeyFile,
		Env:            "GEMINI_API_KEY",
		KeyringAccount: cfg.Gemini.KeyringAccount,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file, GEMINI_API_KEY or run `%s keyring set`)", err, app)
	}

	return gemini.NewGenerator(ctx, gemini.Options{
		APIKey:         apiKey,
		Model:          cfg.Gemini.Model,
		EmbeddingModel: cfg.Gemini.EmbeddingModel,
		MaxLogLength:   cfg.Gemini.MaxLogLength,
		Logger:         log,
	})
}

func newSearcher(cfg *RetrievalConfig, tax *taxonomy.Taxonomy, generator *gemini.Generator, log *zap.Logger) (retriever.Searcher, error) {
	mode := strings.TrimSpace(strings.ToLower(cfg.Mode))
	switch mode {
	case "", retrievalLexical:
		return retriever.NewLexicalSearcher(tax.Tags()), nil
	case retrievalVectorize:
		v := cfg.Vectorize
		if v == nil || strings.TrimSpace(v.APIURL) == "" {
			return nil, errors.New("retrieval.vectorize.api-url is required in vectorize mode")
		}
		token, err := secrets.Load(secrets.Source{
			Name:  "vectorize token",
			Value: v.Token,
			File:  v.TokenFile,
			Env:   "VECTORIZE_TOKEN",
		})
		if err != nil {
			return nil, err
		}
		client, err := vectorize.New(log, v.APIURL, token,
			vectorize.WithTimeout(v.Timeout),
			vectorize.WithRateLimit(v.RequestsPerSecond, 1),
		)
		if err != nil {
			return nil, err
		}
		return vectorize.NewSearcher(generator, client), nil
	default:
		return nil, fmt.Errorf("unknown retrieval mode %q (want %s or %s)", cfg.Mode, retrievalLexical, retrievalVectorize)
	}
}

// newPipeline wires the extraction pipeline. persister may be nil for a dry run.
func newPipeline(ctx context.Context, config *Config, persister pipeline.Persister, log *zap.Logger) (*pipeline.Pipeline, error) {
	tax, err := taxonomy.Load(config.Taxonomy)
	if err != nil {
		return nil, err
	}

	generator, err := newGenerator(ctx, config.AI, log)
	if err != nil {
		return nil, fmt.Errorf("building generator: %w", err)
	}

	searcher, err := newSearcher(config.Retrieval, tax, generator, log)
	if err != nil {
		return nil, fmt.Errorf("building retriever: %w", err)
	}

	log.Debug("pipeline wiring",
		zap.String("retrieval", config.Retrieval.Mode),
		zap.Int("taxonomy_tags", tax.Len()),
		zap.String("model", generator.Model()),
	)

	x := config.Extraction
	return pipeline.New(
		retriever.New(searcher, log),
		extraction.New(generator, log, config.AI.Gemini.MaxLogLength),
		persister,
		pipeline.Config{
			Version:           x.Version,
			TopK:              x.TopK,
			Concurrency:       x.Concurrency,
			RequestsPerSecond: x.RequestsPerSecond,
			Validation:        &validation.Config{MinEvidence: x.MinEvidence, MaxSkills: x.MaxSkills},
		},
		log,
	)
}

// newClassifier returns a model classifier, or nil when no model is configured
// and the heuristic should be used.
func newClassifier(ctx context.Context, config *Config, log *zap.Logger) *classification.Classifier {
	generator, err := newGenerator(ctx, config.AI, log)
	if err != nil {
		log.Warn("no model available, falling back to heuristic classification", zap.Error(err))
		return nil
	}
	return classification.New(generator, log, config.AI.Gemini.MaxLogLength)
}

// loadJobs reads a YAML or JSON list of jobs.
func loadJobs(path string) ([]pipeline.Job, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("jobs file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var jobs []pipeline.Job
	if err := yaml.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("parse jobs %q: %w", path, err)
	}

	seen := make(map[int64]struct{}, len(jobs))
	for i, j := range jobs {
		if j.ID == 0 {
			return nil, fmt.Errorf("job %d in %q has no id", i, path)
		}
		if _, dup := seen[j.ID]; dup {
			return nil, fmt.Errorf("job id %d appears twice in %q", j.ID, path)
		}
		seen[j.ID] = struct{}{}
	}
	return jobs, nil
}

func toClassificationJob(j pipeline.Job) classification.Job {
	description, err := signals.PlainText(j.Description)
	if err != nil {
		description = j.Description
	}
	return classification.Job{ID: j.ID, Title: j.Title, Location: j.Location, Description: description}
}

package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/nicolad/nomadically.work/internal/ai"
	"github.com/nicolad/nomadically.work/internal/logger"
	"github.com/nicolad/nomadically.work/internal/utils"
)

const (
	// Provider is the name logged with every request.
	Provider = "gemini"

	defaultModel          = "gemini-2.5-flash"
	defaultEmbeddingModel = "text-embedding-004"
	defaultMaxLogLength   = 200
	embeddingTaskType     = "RETRIEVAL_QUERY"
)

// models is the part of *genai.Models the generator needs.
type models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Options configure a Generator.
type Options struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	MaxLogLength   int
	Logger         *zap.Logger
}

// Generator wraps the Google GenAI client for structured generation and
// embeddings. Every call is a single round trip.
type Generator struct {
	models         models
	model          string
	embeddingModel string
	maxLogLen      int
	logger         *zap.Logger
}

var (
	_ ai.StructuredGenerator = (*Generator)(nil)
	_ ai.Embedder            = (*Generator)(nil)
)

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, opts Options) (*Generator, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, opts), nil
}

func newGenerator(m models, opts Options) *Generator {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	embeddingModel := strings.TrimSpace(opts.EmbeddingModel)
	if embeddingModel == "" {
		embeddingModel = defaultEmbeddingModel
	}
	maxLogLen := opts.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	return &Generator{
		models:         m,
		model:          model,
		embeddingModel: embeddingModel,
		maxLogLen:      maxLogLen,
		logger:         logger.WithCommonFields(opts.Logger, Provider, model),
	}
}

// GenerateStructured sends instructions and input with a JSON response schema
// and returns the raw JSON text of the first candidate.
func (g *Generator) GenerateStructured(ctx context.Context, req ai.Request) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	input := strings.TrimSpace(req.Input)
	if input == "" {
		return "", errors.New("input must not be empty")
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   req.Schema,
		Temperature:      req.Temperature,
	}
	if instructions := strings.TrimSpace(req.Instructions); instructions != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: instructions}}}
	}

	g.logger.Debug("gemini generate content request",
		zap.Int("input_length", utf8.RuneCountInString(input)),
		zap.String("input_preview", utils.TruncateForLog(input, g.maxLogLen)),
	)

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(input), config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	output, err := responseText(resp)
	if err != nil {
		return "", err
	}

	g.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", utils.TruncateForLog(output, g.maxLogLen)),
	)

	return output, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: prompt blocked: %s", ai.ErrSchemaViolation, resp.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("%w: gemini api returned no candidates", ai.ErrSchemaViolation)
	}

	candidate := resp.Candidates[0]
	if candidate != nil && candidate.FinishReason == genai.FinishReasonMaxTokens {
		return "", fmt.Errorf("%w: response truncated at max tokens", ai.ErrSchemaViolation)
	}

	var builder strings.Builder
	if candidate != nil && candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			builder.WriteString(part.Text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", fmt.Errorf("%w: gemini api returned empty response", ai.ErrSchemaViolation)
	}
	return output, nil
}

// Embed returns the embedding vector of text.
func (g *Generator) Embed(ctx context.Context, text string) ([]float32, error) {
	if g == nil || g.models == nil {
		return nil, errors.New("gemini generator is not initialized")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text must not be empty")
	}

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	resp, err := g.models.EmbedContent(ctx, g.embeddingModel, contents, &genai.EmbedContentConfig{
		TaskType: embeddingTaskType,
	})
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		return nil, errors.New("gemini api returned no embeddings")
	}

	g.logger.Debug("gemini embed content",
		zap.String("embedding_model", g.embeddingModel),
		zap.Int("dimensions", len(resp.Embeddings[0].Values)),
	)

	return resp.Embeddings[0].Values, nil
}

// Model returns the generation model name.
func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// EmbeddingModel returns the embedding model name.
func (g *Generator) EmbeddingModel() string {
	if g == nil {
		return ""
	}
	return g.embeddingModel
}

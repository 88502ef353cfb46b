// Package mcpserver exposes scoring, listing verification, classification and
// extraction as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/nicolad/nomadically.work/internal/classification"
	"github.com/nicolad/nomadically.work/internal/eval"
	"github.com/nicolad/nomadically.work/internal/logger"
	"github.com/nicolad/nomadically.work/internal/pipeline"
)

const name = "nomadically"

// JobRunner runs extraction for one job.
type JobRunner interface {
	Run(ctx context.Context, job pipeline.Job) (pipeline.Result, error)
}

// Classifier classifies one job.
type Classifier interface {
	Classify(ctx context.Context, job classification.Job) (classification.Record, error)
}

// Server holds the dependencies of the tool handlers.
type Server struct {
	version    string
	runner     JobRunner
	classifier Classifier
	now        func() time.Time
	logger     *zap.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithRunner enables the extract_skills tool.
func WithRunner(r JobRunner) Option { return func(s *Server) { s.runner = r } }

// WithClassifier makes classify_job use a model instead of the heuristic.
func WithClassifier(c Classifier) Option { return func(s *Server) { s.classifier = c } }

// WithClock overrides the time used for listing freshness.
func WithClock(now func() time.Time) Option { return func(s *Server) { s.now = now } }

// New creates a Server.
func New(version string, log *zap.Logger, opts ...Option) *Server {
	s := &Server{version: version, now: time.Now, logger: logger.OrNop(log)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MCP builds the MCP server with every available tool registered.
func (s *Server) MCP() *server.MCPServer {
	srv := server.NewMCPServer(name, s.version)

	scoreTool := mcp.NewTool("score_classification",
		mcp.WithDescription("Score an EU-remote classification against the expected one (1, 0.5 or 0)"),
	)
	scoreTool.InputSchema = mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"expected": recordSchema("Expected classification"),
			"actual":   recordSchema("Classification to score"),
		},
		Required: []string{"expected", "actual"},
	}
	srv.AddTool(scoreTool, s.scoreClassification)

	listingsTool := mcp.NewTool("verify_listings",
		mcp.WithDescription("Verify a curated listing batch: unique urls, remote wording, region consistency and freshness"),
	)
	listingsTool.InputSchema = mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"europe":    map[string]interface{}{"type": "array", "description": "Listings curated as remote Europe"},
			"worldwide": map[string]interface{}{"type": "array", "description": "Listings curated as remote worldwide"},
			"now":       map[string]interface{}{"type": "string", "description": "RFC3339 reference time (default: current time)"},
		},
	}
	srv.AddTool(listingsTool, s.verifyListings)

	classifyTool := mcp.NewTool("classify_job",
		mcp.WithDescription("Classify whether a job is fully remote and open to EU residents"),
	)
	classifyTool.InputSchema = jobSchema()
	srv.AddTool(classifyTool, s.classifyJob)

	if s.runner != nil {
		extractTool := mcp.NewTool("extract_skills",
			mcp.WithDescription("Extract, validate and store the skills of a job posting"),
		)
		extractTool.InputSchema = jobSchema()
		extractTool.InputSchema.Required = []string{"job_id", "title", "description"}
		srv.AddTool(extractTool, s.extractSkills)
	}

	return srv
}

// ServeStdio serves the tools on stdin and stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	s.logger.Info("serving mcp over stdio", zap.String("version", s.version), zap.Bool("extraction", s.runner != nil))
	return server.ServeStdio(s.MCP())
}

func recordSchema(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": description,
		"properties": map[string]interface{}{
			"isRemoteEU": map[string]interface{}{"type": "boolean"},
			"confidence": map[string]interface{}{"type": "string", "enum": []string{"high", "medium", "low"}},
			"reason":     map[string]interface{}{"type": "string"},
		},
	}
}

func jobSchema() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"job_id":      map[string]interface{}{"type": "integer", "description": "Job identifier"},
			"title":       map[string]interface{}{"type": "string", "description": "Job title"},
			"location":    map[string]interface{}{"type": "string", "description": "Location text (optional)"},
			"description": map[string]interface{}{"type": "string", "description": "Job description, plain text or HTML"},
		},
		Required: []string{"title"},
	}
}

func arguments(request mcp.CallToolRequest) (map[string]interface{}, bool) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	return args, ok
}

func stringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

type scoreFailure struct {
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

func (s *Server) scoreClassification(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return jsonResult(scoreFailure{Reason: "invalid arguments format"})
	}

	records := make([]classification.Record, 0, 2)
	for _, key := range []string{"expected", "actual"} {
		raw, ok := args[key].(map[string]interface{})
		if !ok {
			return jsonResult(scoreFailure{Reason: key + " must be an object"})
		}
		r, err := classification.DecodeRecord(raw)
		if err != nil {
			return jsonResult(scoreFailure{Reason: fmt.Sprintf("%s: %v", key, err)})
		}
		records = append(records, r)
	}

	return jsonResult(eval.ScoreClassification(records[0], records[1]))
}

func (s *Server) verifyListings(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return jsonResult(eval.ListingVerdict{Diagnostics: eval.Diagnostics{Reason: "invalid arguments format"}})
	}

	now := s.now()
	if v := stringArg(args, "now"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return jsonResult(eval.ListingVerdict{Diagnostics: eval.Diagnostics{Reason: fmt.Sprintf("invalid now: %v", err)}})
		}
		now = parsed
	}

	batch, err := json.Marshal(map[string]interface{}{"europe": args["europe"], "worldwide": args["worldwide"]})
	if err != nil {
		return jsonResult(eval.ListingVerdict{Diagnostics: eval.Diagnostics{Reason: err.Error()}})
	}

	verdict := eval.VerifyBatch(batch, now)
	s.logger.Debug("verified listings", zap.Float64("score", verdict.Score), zap.Int("total", verdict.Diagnostics.Total))
	return jsonResult(verdict)
}

func jobFromArgs(args map[string]interface{}) (pipeline.Job, error) {
	job := pipeline.Job{
		Title:       stringArg(args, "title"),
		Location:    stringArg(args, "location"),
		Description: stringArg(args, "description"),
	}
	switch v := args["job_id"].(type) {
	case float64:
		job.ID = int64(v)
	case nil:
	default:
		return job, fmt.Errorf("job_id must be a number, got %T", v)
	}
	if job.Title == "" {
		return job, fmt.Errorf("title is required")
	}
	return job, nil
}

type classifyResult struct {
	classification.Record
	Source string `json:"source"`
}

func (s *Server) classifyJob(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}
	job, err := jobFromArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	in := classification.Job{ID: job.ID, Title: job.Title, Location: job.Location, Description: job.Description}

	if s.classifier == nil {
		return jsonResult(classifyResult{Record: classification.Heuristic(in), Source: "heuristic"})
	}
	record, err := s.classifier.Classify(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to classify job: %v", err)), nil
	}
	return jsonResult(classifyResult{Record: record, Source: "model"})
}

func (s *Server) extractSkills(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}
	job, err := jobFromArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if job.ID == 0 {
		return mcp.NewToolResultError("job_id is required"), nil
	}

	res, err := s.runner.Run(ctx, job)
	if err != nil {
		s.logger.Warn("extract_skills failed", zap.Int64(logger.FieldJobID, job.ID), zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("Failed to extract skills: %v", err)), nil
	}
	return jsonResult(res)
}

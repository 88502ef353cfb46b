package classification

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/genai"

	"github.com/nicolad/nomadically.work/internal/ai"
)

type stubGenerator struct {
	response string
	err      error
	calls    int
	last     ai.Request
}

func (s *stubGenerator) GenerateStructured(_ context.Context, req ai.Request) (string, error) {
	s.calls++
	s.last = req
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) Model() string { return "stub-model" }

func TestClassify(t *testing.T) {
	stub := &stubGenerator{response: "```json\n{\"isRemoteEU\": true, \"confidence\": \"high\", \"reason\": \"Remote - EU\"}\n```"}

	got, err := New(stub, nil, 0).Classify(context.Background(), Job{
		ID:          7,
		Title:       "Backend Engineer",
		Location:    "Remote - EU",
		Description: "Work from anywhere in the EU.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := Record{IsRemoteEU: true, Confidence: ConfidenceHigh, Reason: "Remote - EU"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected record (-want +got):\n%s", diff)
	}
	if stub.last.Schema == nil || stub.last.Schema.Type != genai.TypeObject {
		t.Fatal("expected object schema to be sent")
	}
	if !strings.Contains(stub.last.Input, "- Location: Remote - EU") {
		t.Fatalf("expected location in input, got %q", stub.last.Input)
	}
	if !strings.Contains(stub.last.Instructions, "Remote EU") {
		t.Fatalf("unexpected instructions: %q", stub.last.Instructions)
	}
}

func TestClassifyMalformed(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)
	stub := &stubGenerator{response: `{"confidence": "high"}`}

	_, err := New(stub, zap.New(core), 10).Classify(context.Background(), Job{ID: 3, Title: "x"})
	if !errors.Is(err, ai.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
	if stub.calls != 1 {
		t.Fatalf("expected no retry, got %d calls", stub.calls)
	}

	entries := observed.FilterMessage("malformed classification response").All()
	if len(entries) != 1 {
		t.Fatalf("expected one warning, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["job_id"]; got != int64(3) {
		t.Fatalf("expected job_id 3, got %v", got)
	}
}

func TestClassifyGeneratorError(t *testing.T) {
	boom := errors.New("quota exceeded")
	_, err := New(&stubGenerator{err: boom}, nil, 0).Classify(context.Background(), Job{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped generator error, got %v", err)
	}

	if _, err := New(nil, nil, 0).Classify(context.Background(), Job{}); err == nil {
		t.Fatal("expected error without generator")
	}
}

func TestBuildInputDefaultsLocation(t *testing.T) {
	input := BuildInput(Job{Title: " Data Engineer ", Description: "Python"})
	want := "JOB DETAILS:\n- Title: Data Engineer\n- Location: not specified\n- Description: Python"
	if input != want {
		t.Fatalf("unexpected input:\n%s", input)
	}
}

func TestHeuristic(t *testing.T) {
	tests := []struct {
		name       string
		job        Job
		remote     bool
		confidence Confidence
	}{
		{
			name:       "us locked",
			job:        Job{Title: "Senior Go Engineer", Location: "Remote (US)"},
			remote:     false,
			confidence: ConfidenceHigh,
		},
		{
			name:       "explicit eu",
			job:        Job{Title: "Platform Engineer", Description: "Fully remote, EU only."},
			remote:     true,
			confidence: ConfidenceHigh,
		},
		{
			name:       "eu country",
			job:        Job{Title: "Backend Engineer", Location: "Remote - Germany"},
			remote:     true,
			confidence: ConfidenceHigh,
		},
		{
			name:       "emea",
			job:        Job{Title: "SRE", Location: "Remote, EMEA"},
			remote:     true,
			confidence: ConfidenceMedium,
		},
		{
			name:       "worldwide",
			job:        Job{Title: "Designer", Description: "Remote worldwide, async team."},
			remote:     true,
			confidence: ConfidenceMedium,
		},
		{
			name:       "hybrid",
			job:        Job{Title: "Engineer", Location: "Hybrid in Berlin"},
			remote:     false,
			confidence: ConfidenceHigh,
		},
		{
			name:       "timezone only",
			job:        Job{Title: "Engineer", Location: "Remote, CET timezone"},
			remote:     false,
			confidence: ConfidenceLow,
		},
		{
			name:       "no remote wording",
			job:        Job{Title: "Engineer", Description: "Join our team."},
			remote:     false,
			confidence: ConfidenceLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Heuristic(tt.job)
			if got.IsRemoteEU != tt.remote || got.Confidence != tt.confidence {
				t.Fatalf("unexpected record: %+v", got)
			}
			if got.Reason == "" {
				t.Fatal("expected a reason")
			}
		})
	}
}

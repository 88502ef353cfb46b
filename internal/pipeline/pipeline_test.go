package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/nicolad/nomadically.work/internal/ai"
	"github.com/nicolad/nomadically.work/internal/extraction"
	"github.com/nicolad/nomadically.work/internal/retriever"
	"github.com/nicolad/nomadically.work/internal/skills"
	"github.com/nicolad/nomadically.work/internal/store"
	"github.com/nicolad/nomadically.work/internal/validation"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type fakeCandidates struct {
	tags []skills.CanonicalTag
	err  error
}

func (f *fakeCandidates) Candidates(_ context.Context, _, _ string, _ int) ([]skills.CanonicalTag, error) {
	return f.tags, f.err
}

type fakeExtractor struct {
	mu       sync.Mutex
	items    []skills.Extracted
	err      error
	failJob  int64
	requests []extraction.Request
	delay    time.Duration
	inflight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeExtractor) Extract(_ context.Context, req extraction.Request) ([]skills.Extracted, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if f.failJob != 0 && req.JobID == f.failJob {
		return nil, fmt.Errorf("%w: truncated", skills.ErrMalformedExtraction)
	}
	return f.items, nil
}

type fakePersister struct {
	mu    sync.Mutex
	calls map[int64][]skills.Extracted
	err   error
}

func (f *fakePersister) Replace(_ context.Context, jobID int64, _ string, items []skills.Extracted) (store.ReplaceResult, error) {
	if f.err != nil {
		return store.ReplaceResult{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[int64][]skills.Extracted{}
	}
	f.calls[jobID] = items
	return store.ReplaceResult{OK: true, Count: len(items)}, nil
}

var candidates = []skills.CanonicalTag{{Tag: "go", Label: "Go"}, {Tag: "kubernetes", Label: "Kubernetes"}}

func goodItems() []skills.Extracted {
	return []skills.Extracted{
		{Tag: "go", Level: skills.LevelRequired, Evidence: "build services in Go"},
		{Tag: "haskell", Level: skills.LevelNice, Evidence: "Haskell is never mentioned"},
		{Tag: "kubernetes", Level: skills.LevelPreferred, Evidence: "k8s"},
	}
}

func newPipeline(t *testing.T, c CandidateSource, e Extractor, p Persister, cfg Config) *Pipeline {
	t.Helper()
	pl, err := New(c, e, p, cfg, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return pl
}

func TestRunStoresValidatedSkills(t *testing.T) {
	persister := &fakePersister{}
	extractor := &fakeExtractor{items: goodItems()}
	pl := newPipeline(t, &fakeCandidates{tags: candidates}, extractor, persister, Config{})

	res, err := pl.Run(context.Background(), Job{ID: 5, Title: "Go Engineer", Description: "Build services in Go."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []skills.Extracted{{Tag: "go", Level: skills.LevelRequired, Evidence: "build services in Go"}}
	if diff := cmp.Diff(want, persister.calls[5]); diff != "" {
		t.Fatalf("unexpected stored skills (-want +got):\n%s", diff)
	}
	if res.Empty || res.Stored != 1 || res.Extracted != 3 || res.Candidates != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.Steps) != 4 || res.Steps[0].Name != "allowed_tags" || res.Steps[0].Dropped != 1 {
		t.Fatalf("unexpected steps: %+v", res.Steps)
	}
}

func TestRunEmptyValidationLeavesStoreUntouched(t *testing.T) {
	persister := &fakePersister{}
	extractor := &fakeExtractor{items: []skills.Extracted{
		{Tag: "rust", Level: skills.LevelRequired, Evidence: "systems work in Rust"},
	}}
	pl := newPipeline(t, &fakeCandidates{tags: candidates}, extractor, persister, Config{})

	res, err := pl.Run(context.Background(), Job{ID: 6, Title: "Engineer"})
	if err != nil {
		t.Fatalf("empty validation is not an error, got %v", err)
	}
	if !res.Empty || res.Reason != skills.ErrValidationEmpty.Error()+", "+PriorAssertionsKept {
		t.Fatalf("expected empty result, got %+v", res)
	}
	if len(persister.calls) != 0 {
		t.Fatalf("expected no replace, got %+v", persister.calls)
	}

	dry := newPipeline(t, &fakeCandidates{tags: candidates}, extractor, nil, Config{})
	res, err = dry.Run(context.Background(), Job{ID: 6, Title: "Engineer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reason != skills.ErrValidationEmpty.Error() {
		t.Fatalf("dry run has no stored assertions to keep, got %q", res.Reason)
	}
}

func TestRunEmptyCandidatesSkipsExtraction(t *testing.T) {
	extractor := &fakeExtractor{items: goodItems()}
	pl := newPipeline(t, &fakeCandidates{}, extractor, &fakePersister{}, Config{})

	res, err := pl.Run(context.Background(), Job{ID: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Empty || len(extractor.requests) != 0 {
		t.Fatalf("expected extraction to be skipped, got %+v", res)
	}
	if res.Reason != "no candidate tags, "+PriorAssertionsKept {
		t.Fatalf("unexpected reason %q", res.Reason)
	}
}

func TestRunPropagatesErrorKinds(t *testing.T) {
	tests := []struct {
		name      string
		source    *fakeCandidates
		extractor *fakeExtractor
		persister *fakePersister
		want      error
	}{
		{
			name:      "retrieval",
			source:    &fakeCandidates{err: fmt.Errorf("%w: connection refused", skills.ErrRetrievalUnavailable)},
			extractor: &fakeExtractor{},
			persister: &fakePersister{},
			want:      skills.ErrRetrievalUnavailable,
		},
		{
			name:      "malformed",
			source:    &fakeCandidates{tags: candidates},
			extractor: &fakeExtractor{err: fmt.Errorf("%w: not json", skills.ErrMalformedExtraction)},
			persister: &fakePersister{},
			want:      skills.ErrMalformedExtraction,
		},
		{
			name:      "persistence",
			source:    &fakeCandidates{tags: candidates},
			extractor: &fakeExtractor{items: goodItems()},
			persister: &fakePersister{err: fmt.Errorf("%w: disk full", skills.ErrPersistence)},
			want:      skills.ErrPersistence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pl := newPipeline(t, tt.source, tt.extractor, tt.persister, Config{})
			_, err := pl.Run(context.Background(), Job{ID: 1})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if tt.name == "retrieval" && len(tt.extractor.requests) != 0 {
				t.Fatal("extraction must not run after a retrieval failure")
			}
		})
	}
}

func TestRunStripsHTML(t *testing.T) {
	extractor := &fakeExtractor{items: goodItems()}
	pl := newPipeline(t, &fakeCandidates{tags: candidates}, extractor, nil, Config{})

	res, err := pl.Run(context.Background(), Job{ID: 2, Title: "Go", Description: "<p>Build services in <b>Go</b></p><script>x()</script>"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := extractor.requests[0].Description; strings.Contains(got, "<") || strings.Contains(got, "x()") {
		t.Fatalf("expected plain text description, got %q", got)
	}
	if res.Stored != 0 || len(res.Skills) != 1 {
		t.Fatalf("expected dry run result with one skill, got %+v", res)
	}
}

func TestNewValidatesInput(t *testing.T) {
	if _, err := New(nil, &fakeExtractor{}, nil, Config{}, nil); err == nil {
		t.Fatal("expected error without candidate source")
	}
	if _, err := New(&fakeCandidates{}, nil, nil, Config{}, nil); err == nil {
		t.Fatal("expected error without extractor")
	}
	if _, err := New(&fakeCandidates{}, &fakeExtractor{}, nil, Config{Validation: &validation.Config{MinEvidence: 8}}, nil); err == nil {
		t.Fatal("expected error for invalid validation config")
	}
}

func TestBatchIsolatesFailures(t *testing.T) {
	persister := &fakePersister{}
	extractor := &fakeExtractor{items: goodItems(), failJob: 2}
	pl := newPipeline(t, &fakeCandidates{tags: candidates}, extractor, persister, Config{Concurrency: 3})

	jobs := []Job{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}}
	results, summary := pl.Batch(context.Background(), jobs)

	if len(results) != len(jobs) {
		t.Fatalf("expected %d results, got %d", len(jobs), len(results))
	}
	for i, r := range results {
		if r.JobID != jobs[i].ID {
			t.Fatalf("results out of order: %+v", results)
		}
	}
	if !errors.Is(results[1].Err, skills.ErrMalformedExtraction) {
		t.Fatalf("expected malformed extraction for job 2, got %v", results[1].Err)
	}
	if summary.Failed != 1 || summary.Succeeded != 3 || summary.Skills != 3 || summary.RunID == "" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(persister.calls) != 3 {
		t.Fatalf("expected three replaced jobs, got %d", len(persister.calls))
	}
}

func TestBatchRespectsConcurrency(t *testing.T) {
	extractor := &fakeExtractor{items: goodItems(), delay: 10 * time.Millisecond}
	pl := newPipeline(t, &fakeCandidates{tags: candidates}, extractor, &fakePersister{}, Config{Concurrency: 2})

	jobs := make([]Job, 8)
	for i := range jobs {
		jobs[i] = Job{ID: int64(i + 1)}
	}
	pl.Batch(context.Background(), jobs)

	if peak := extractor.peak.Load(); peak > 2 {
		t.Fatalf("expected at most 2 concurrent extractions, got %d", peak)
	}
}

func TestBatchCanceled(t *testing.T) {
	pl := newPipeline(t, &fakeCandidates{tags: candidates}, &fakeExtractor{items: goodItems()}, &fakePersister{}, Config{RequestsPerSecond: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, summary := pl.Batch(ctx, []Job{{ID: 1}, {ID: 2}})
	if summary.Failed != 2 || !summary.Canceled {
		t.Fatalf("expected all jobs to fail on a canceled context, got %+v", summary)
	}
	if !errors.Is(results[0].Err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", results[0].Err)
	}
}

type stubGenerator struct {
	response string
}

func (s stubGenerator) GenerateStructured(context.Context, ai.Request) (string, error) {
	return s.response, nil
}

func (stubGenerator) Model() string { return "stub-model" }

func TestEndToEndWithLexicalRetrieval(t *testing.T) {
	db, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "skills.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	vocabulary := []skills.CanonicalTag{
		{Tag: "go", Label: "Go", Aliases: []string{"golang"}},
		{Tag: "postgresql", Label: "PostgreSQL", Aliases: []string{"postgres"}},
		{Tag: "react", Label: "React"},
	}
	source := retriever.New(retriever.NewLexicalSearcher(vocabulary), nil)
	protocol := extraction.New(stubGenerator{response: `{"skills":[
		{"tag":"postgresql","level":"preferred","confidence":0.7,"evidence":"Postgres experience is a plus"},
		{"tag":"go","level":"required","confidence":0.9,"evidence":"You write Golang every day"},
		{"tag":"react","level":"nice","evidence":"React"}
	]}`}, nil, 0)

	pl := newPipeline(t, source, protocol, db, Config{})
	res, err := pl.Run(context.Background(), Job{
		ID:          99,
		Title:       "Backend Engineer",
		Description: "You write Golang every day. Postgres experience is a plus.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stored != 2 {
		t.Fatalf("expected two stored skills, got %+v", res)
	}

	rows, err := db.ListByJob(context.Background(), 99)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var tags []string
	for _, r := range rows {
		tags = append(tags, r.Tag)
	}
	if diff := cmp.Diff([]string{"go", "postgresql"}, tags); diff != "" {
		t.Fatalf("unexpected stored tags (-want +got):\n%s", diff)
	}
}

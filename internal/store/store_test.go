package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nicolad/nomadically.work/internal/skills"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "skills.db"), WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestReplaceAndListOrdering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	items := []skills.Extracted{
		{Tag: "terraform", Level: skills.LevelNice, Confidence: ptr(0.9), Evidence: "Terraform is a bonus"},
		{Tag: "kubernetes", Level: skills.LevelPreferred, Evidence: "Kubernetes experience preferred"},
		{Tag: "docker", Level: skills.LevelPreferred, Confidence: ptr(0.4), Evidence: "Docker in CI pipelines"},
		{Tag: "go", Level: skills.LevelRequired, Confidence: ptr(0.8), Evidence: "build services in Go"},
		{Tag: "aws", Level: skills.LevelPreferred, Confidence: ptr(0.7), Evidence: "AWS experience preferred"},
		{Tag: "postgresql", Level: skills.LevelRequired, Confidence: ptr(0.95), Evidence: "PostgreSQL in production"},
	}

	res, err := s.Replace(ctx, 42, "", items)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if !res.OK || res.Count != len(items) {
		t.Fatalf("unexpected result: %+v", res)
	}

	got, err := s.ListByJob(ctx, 42)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	var order []string
	for _, a := range got {
		order = append(order, a.Tag)
		if a.JobID != 42 || a.Version != DefaultVersion || !a.ExtractedAt.Equal(fixedNow) {
			t.Fatalf("unexpected row metadata: %+v", a)
		}
	}
	want := []string{"postgresql", "go", "aws", "docker", "kubernetes", "terraform"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}

	if got[4].Confidence != nil {
		t.Fatalf("expected missing confidence to stay nil, got %v", *got[4].Confidence)
	}
}

func TestReplaceFullyReplacesAllVersions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Replace(ctx, 7, "skills-v0", []skills.Extracted{
		{Tag: "go", Level: skills.LevelRequired, Evidence: "build services in Go"},
		{Tag: "rust", Level: skills.LevelNice, Evidence: "Rust is a plus here"},
	}); err != nil {
		t.Fatalf("first replace: %v", err)
	}
	if _, err := s.Replace(ctx, 8, "", []skills.Extracted{
		{Tag: "go", Level: skills.LevelRequired, Evidence: "another job in Go"},
	}); err != nil {
		t.Fatalf("other job replace: %v", err)
	}

	if _, err := s.Replace(ctx, 7, "skills-v1", []skills.Extracted{
		{Tag: "python", Level: skills.LevelRequired, Evidence: "Python data pipelines"},
	}); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	got, err := s.ListByJob(ctx, 7)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Tag != "python" || got[0].Version != "skills-v1" {
		t.Fatalf("expected only the new assertion, got %+v", got)
	}

	if n, err := s.CountByJob(ctx, 8); err != nil || n != 1 {
		t.Fatalf("expected other job untouched, got %d (%v)", n, err)
	}
}

func TestReplaceFailureRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Replace(ctx, 9, "", []skills.Extracted{
		{Tag: "go", Level: skills.LevelRequired, Evidence: "build services in Go"},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := s.Replace(ctx, 9, "", []skills.Extracted{
		{Tag: "rust", Level: skills.LevelRequired, Evidence: "systems work in Rust"},
		{Tag: "rust", Level: skills.LevelNice, Evidence: "duplicate tag breaks the key"},
	})
	if !errors.Is(err, skills.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}

	got, err := s.ListByJob(ctx, 9)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Tag != "go" {
		t.Fatalf("expected prior assertions to survive a failed replace, got %+v", got)
	}
}

func TestReplaceRejectsInvalidLevel(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Replace(context.Background(), 1, "", []skills.Extracted{
		{Tag: "go", Level: skills.Level("must-have"), Evidence: "build services in Go"},
	})
	if !errors.Is(err, skills.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestReplaceCancelledContext(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Replace(ctx, 1, "", nil); !errors.Is(err, skills.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestListUnknownJob(t *testing.T) {
	s := openTestStore(t)

	got, err := s.ListByJob(context.Background(), 404)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no rows, got %+v", got)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "skills.db")

	first, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if _, err := first.Replace(context.Background(), 3, "", []skills.Extracted{
		{Tag: "go", Level: skills.LevelRequired, Evidence: "build services in Go"},
	}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer second.Close()

	if err := second.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate again: %v", err)
	}
	if n, err := second.CountByJob(context.Background(), 3); err != nil || n != 1 {
		t.Fatalf("expected data to survive reopen, got %d (%v)", n, err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

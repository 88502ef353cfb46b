package taxonomy

import (
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	tx, err := Default()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tx.Len() < 100 {
		t.Fatalf("expected the full vocabulary, got %d tags", tx.Len())
	}

	golang, ok := tx.Lookup("go")
	if !ok {
		t.Fatalf("expected go tag")
	}
	if golang.Label != "Go" {
		t.Fatalf("unexpected label %q", golang.Label)
	}
	found := false
	for _, alias := range golang.Aliases {
		if alias == "golang" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected golang alias, got %v", golang.Aliases)
	}

	if _, ok := tx.Lookup("cobol"); ok {
		t.Fatalf("did not expect cobol in vocabulary")
	}
}

func TestParseRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "duplicate",
			doc:  "categories:\n  - name: a\n    tags:\n      - tag: go\n      - tag: go\n",
			want: "duplicate tag",
		},
		{
			name: "bad identifier",
			doc:  "categories:\n  - name: a\n    tags:\n      - tag: Spring Boot\n",
			want: "invalid tag",
		},
		{
			name: "empty",
			doc:  "categories: []\n",
			want: "no tags",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestParseDefaultsLabel(t *testing.T) {
	tx, err := Parse([]byte("categories:\n  - name: a\n    tags:\n      - tag: rust\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tag, _ := tx.Lookup("rust")
	if tag.Label != "rust" {
		t.Fatalf("expected label fallback, got %q", tag.Label)
	}
	if got := tx.Categories(); len(got) != 1 || got[0] != "a" {
		t.Fatalf("unexpected categories %v", got)
	}
}

func TestCategoryTags(t *testing.T) {
	tx, err := Parse([]byte("categories:\n  - name: a\n    tags:\n      - tag: rust\n  - name: b\n    tags:\n      - tag: go\n        label: Go\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := tx.CategoryTags("b")
	if len(got) != 1 || got[0].Tag != "go" || got[0].Label != "Go" {
		t.Fatalf("unexpected tags %v", got)
	}
	if got := tx.CategoryTags("a"); len(got) != 1 || got[0].Label != "rust" {
		t.Fatalf("expected label fallback in category view, got %v", got)
	}
	if tx.CategoryTags("missing") != nil {
		t.Fatal("expected nil for unknown category")
	}
}

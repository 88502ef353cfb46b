package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDecodeConfigDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	config, err := decodeConfig(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.Database != "nomadically.db" {
		t.Fatalf("unexpected database %q", config.Database)
	}
	x := config.Extraction
	if x.Version != "skills-v1" || x.TopK != 50 || x.MinEvidence != 8 || x.MaxSkills != 30 {
		t.Fatalf("unexpected extraction defaults %+v", x)
	}
	if config.Retrieval.Mode != retrievalLexical {
		t.Fatalf("unexpected retrieval mode %q", config.Retrieval.Mode)
	}
	if config.Retrieval.Vectorize == nil || config.Retrieval.Vectorize.Timeout != 10*time.Second {
		t.Fatalf("unexpected vectorize defaults %+v", config.Retrieval.Vectorize)
	}
	if config.AI.Gemini.KeyringAccount != "gemini" {
		t.Fatalf("unexpected keyring account %q", config.AI.Gemini.KeyringAccount)
	}
}

func TestDecodeConfigFromYAML(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	err := v.ReadConfig(strings.NewReader(`
database: /tmp/skills.db
extraction:
  top-k: 20
  requests-per-second: 0.5
retrieval:
  mode: vectorize
  vectorize:
    api-url: https://vectorize.example.com/v2/indexes/skills
    timeout: 3s
ai:
  gemini:
    model: gemini-2.5-flash
`))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}

	config, err := decodeConfig(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.Database != "/tmp/skills.db" || config.Extraction.TopK != 20 || config.Extraction.RequestsPerSecond != 0.5 {
		t.Fatalf("unexpected config %+v %+v", config, config.Extraction)
	}
	if config.Extraction.MaxSkills != 30 {
		t.Fatalf("expected default max skills to survive, got %d", config.Extraction.MaxSkills)
	}
	if config.Retrieval.Vectorize.Timeout != 3*time.Second || config.Retrieval.Vectorize.APIURL == "" {
		t.Fatalf("unexpected vectorize config %+v", config.Retrieval.Vectorize)
	}
	if config.AI.Gemini.Model != "gemini-2.5-flash" {
		t.Fatalf("unexpected model %q", config.AI.Gemini.Model)
	}
}

func TestNewSearcherModes(t *testing.T) {
	if _, err := newSearcher(&RetrievalConfig{Mode: "semantic"}, nil, nil, nil); err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if _, err := newSearcher(&RetrievalConfig{Mode: retrievalVectorize}, nil, nil, nil); err == nil {
		t.Fatal("expected error without api url")
	}
}

func TestLoadJobs(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
		return path
	}

	jobs, err := loadJobs(write("jobs.yaml", `
- id: 1
  title: Go Engineer
  location: Remote - EU
  description: "<p>Go and PostgreSQL</p>"
- id: 2
  title: Data Engineer
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != 1 || jobs[1].Title != "Data Engineer" {
		t.Fatalf("unexpected jobs %+v", jobs)
	}

	jobs, err = loadJobs(write("jobs.json", `[{"id": 7, "title": "SRE"}]`))
	if err != nil || len(jobs) != 1 || jobs[0].ID != 7 {
		t.Fatalf("unexpected json jobs %+v, %v", jobs, err)
	}

	tests := map[string]string{
		"missing id": "- title: x\n",
		"duplicate":  "- id: 1\n- id: 1\n",
		"not a list": "id: 1\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := loadJobs(write(strings.ReplaceAll(name, " ", "_")+".yaml", body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	if _, err := loadJobs(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestToClassificationJobStripsHTML(t *testing.T) {
	jobs, err := loadJobs(writeTemp(t, "- id: 3\n  title: x\n  description: \"<p>Remote</p><p>EU</p>\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	got := toClassificationJob(jobs[0])
	if strings.Contains(got.Description, "<") || !strings.Contains(got.Description, "Remote") {
		t.Fatalf("unexpected description %q", got.Description)
	}
}

func writeTemp(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobs.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

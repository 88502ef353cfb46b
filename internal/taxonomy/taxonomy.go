// Package taxonomy holds the controlled skill vocabulary.
package taxonomy

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nicolad/nomadically.work/internal/skills"
)

//go:embed taxonomy.yaml
var defaultYAML []byte

var tagPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Category groups related tags. It only affects presentation.
type Category struct {
	Name string                `yaml:"name"`
	Tags []skills.CanonicalTag `yaml:"tags"`
}

// Taxonomy is an immutable, validated vocabulary.
type Taxonomy struct {
	categories []Category
	tags       []skills.CanonicalTag
	index      map[string]int
}

type document struct {
	Categories []Category `yaml:"categories"`
}

// Default returns the embedded vocabulary.
func Default() (*Taxonomy, error) {
	return Parse(defaultYAML)
}

// Load reads a vocabulary file. An empty path yields the embedded default.
func Load(path string) (*Taxonomy, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy %q: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes and validates a YAML vocabulary.
func Parse(data []byte) (*Taxonomy, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode taxonomy: %w", err)
	}

	t := &Taxonomy{index: make(map[string]int)}
	for _, category := range doc.Categories {
		for _, tag := range category.Tags {
			tag.Tag = strings.TrimSpace(tag.Tag)
			if !tagPattern.MatchString(tag.Tag) {
				return nil, fmt.Errorf("category %q: invalid tag %q", category.Name, tag.Tag)
			}
			if _, dup := t.index[tag.Tag]; dup {
				return nil, fmt.Errorf("duplicate tag %q", tag.Tag)
			}
			if strings.TrimSpace(tag.Label) == "" {
				tag.Label = tag.Tag
			}
			t.index[tag.Tag] = len(t.tags)
			t.tags = append(t.tags, tag)
		}
		t.categories = append(t.categories, category)
	}

	if len(t.tags) == 0 {
		return nil, fmt.Errorf("taxonomy has no tags")
	}

	return t, nil
}

// Len returns the number of tags.
func (t *Taxonomy) Len() int { return len(t.tags) }

// Tags returns a copy of all tags in file order.
func (t *Taxonomy) Tags() []skills.CanonicalTag {
	out := make([]skills.CanonicalTag, len(t.tags))
	copy(out, t.tags)
	return out
}

// Lookup returns the tag definition for an identifier.
func (t *Taxonomy) Lookup(tag string) (skills.CanonicalTag, bool) {
	idx, ok := t.index[tag]
	if !ok {
		return skills.CanonicalTag{}, false
	}
	return t.tags[idx], true
}

// Categories returns the category names in file order.
func (t *Taxonomy) Categories() []string {
	names := make([]string, 0, len(t.categories))
	for _, c := range t.categories {
		names = append(names, c.Name)
	}
	return names
}

// CategoryTags returns the tags of one category, or nil if it is unknown.
func (t *Taxonomy) CategoryTags(name string) []skills.CanonicalTag {
	for _, c := range t.categories {
		if c.Name != name {
			continue
		}
		out := make([]skills.CanonicalTag, 0, len(c.Tags))
		for _, tag := range c.Tags {
			if idx, ok := t.index[strings.TrimSpace(tag.Tag)]; ok {
				out = append(out, t.tags[idx])
			}
		}
		return out
	}
	return nil
}

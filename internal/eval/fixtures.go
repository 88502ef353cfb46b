package eval

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nicolad/nomadically.work/internal/classification"
)

type wireListing struct {
	Title          string   `json:"title" yaml:"title"`
	Company        string   `json:"company" yaml:"company"`
	LocationText   string   `json:"location_text" yaml:"location_text"`
	SalaryText     string   `json:"salary_text" yaml:"salary_text"`
	SourceURL      string   `json:"source_url" yaml:"source_url"`
	ApplyURL       string   `json:"apply_url" yaml:"apply_url"`
	Evidence       []string `json:"evidence" yaml:"evidence"`
	IsFullyRemote  *bool    `json:"is_fully_remote" yaml:"is_fully_remote"`
	RemoteRegion   *string  `json:"remote_region" yaml:"remote_region"`
	PostedHoursAgo *float64 `json:"posted_hours_ago" yaml:"posted_hours_ago"`
	PostedAtISO    string   `json:"posted_at_iso" yaml:"posted_at_iso"`
}

type wireBuckets struct {
	Europe    []wireListing `json:"europe" yaml:"europe"`
	Worldwide []wireListing `json:"worldwide" yaml:"worldwide"`
}

// decode reads JSON when the document is a JSON object and YAML otherwise.
func decode(data []byte, target any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return errors.New("empty document")
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return json.Unmarshal(trimmed, target)
	}
	return yaml.Unmarshal(trimmed, target)
}

// ParseBuckets decodes a listing batch. Every listing must state
// is_fully_remote and a known remote_region.
func ParseBuckets(data []byte) (Buckets, error) {
	var wire wireBuckets
	if err := decode(data, &wire); err != nil {
		return Buckets{}, fmt.Errorf("parse listings: %w", err)
	}

	europe, err := convertListings(RegionEurope, wire.Europe)
	if err != nil {
		return Buckets{}, err
	}
	worldwide, err := convertListings(RegionWorldwide, wire.Worldwide)
	if err != nil {
		return Buckets{}, err
	}
	return Buckets{Europe: europe, Worldwide: worldwide}, nil
}

func convertListings(bucket Region, in []wireListing) ([]Listing, error) {
	out := make([]Listing, 0, len(in))
	for i, w := range in {
		if w.IsFullyRemote == nil {
			return nil, fmt.Errorf("%s listing %d: is_fully_remote is required", bucket, i)
		}
		if w.RemoteRegion == nil {
			return nil, fmt.Errorf("%s listing %d: remote_region is required", bucket, i)
		}
		region := Region(*w.RemoteRegion)
		if region != RegionEurope && region != RegionWorldwide {
			return nil, fmt.Errorf("%s listing %d: unknown remote_region %q", bucket, i, *w.RemoteRegion)
		}
		out = append(out, Listing{
			Title:          w.Title,
			Company:        w.Company,
			LocationText:   w.LocationText,
			SalaryText:     w.SalaryText,
			SourceURL:      w.SourceURL,
			ApplyURL:       w.ApplyURL,
			Evidence:       w.Evidence,
			IsFullyRemote:  *w.IsFullyRemote,
			RemoteRegion:   region,
			PostedHoursAgo: w.PostedHoursAgo,
			PostedAtISO:    w.PostedAtISO,
		})
	}
	return out, nil
}

// VerifyBatch parses and verifies a raw batch. Malformed input scores 0.
func VerifyBatch(data []byte, now time.Time) ListingVerdict {
	buckets, err := ParseBuckets(data)
	if err != nil {
		return ListingVerdict{Score: 0, Diagnostics: Diagnostics{Reason: err.Error()}}
	}
	return VerifyListings(buckets, now)
}

type wireCase struct {
	ID       string             `json:"id" yaml:"id"`
	Job      classification.Job `json:"job" yaml:"job"`
	Expected any                `json:"expected" yaml:"expected"`
	Actual   any                `json:"actual" yaml:"actual"`
}

// ParseCases decodes a list of labelled classification cases. Only a
// document that is not a list of cases is an error. A case whose expected or
// actual record is malformed keeps the decode error in Failure and scores 0.
func ParseCases(data []byte) ([]Case, error) {
	var wire []wireCase
	if err := decode(data, &wire); err != nil {
		return nil, fmt.Errorf("parse cases: %w", err)
	}

	cases := make([]Case, 0, len(wire))
	for i, w := range wire {
		c := Case{ID: w.ID, Job: w.Job}
		if c.ID == "" {
			c.ID = fmt.Sprintf("case-%d", i+1)
		}

		expected, err := decodeCaseRecord(w.Expected)
		if err != nil {
			c.Failure = fmt.Sprintf("expected: %s", err)
			cases = append(cases, c)
			continue
		}
		c.Expected = expected

		if w.Actual != nil {
			actual, err := decodeCaseRecord(w.Actual)
			if err != nil {
				c.Failure = fmt.Sprintf("actual: %s", err)
			} else {
				c.Actual = &actual
			}
		}
		cases = append(cases, c)
	}
	return cases, nil
}

func decodeCaseRecord(v any) (classification.Record, error) {
	if v == nil {
		return classification.Record{}, errors.New("record is missing")
	}
	raw, ok := v.(map[string]any)
	if !ok {
		return classification.Record{}, fmt.Errorf("record is a %T, not an object", v)
	}
	return classification.DecodeRecord(raw)
}

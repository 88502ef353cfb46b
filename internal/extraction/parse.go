package extraction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/nicolad/nomadically.work/internal/ai"
	"github.com/nicolad/nomadically.work/internal/skills"
)

// ParseResponse decodes a raw model response and checks it against the
// extraction schema. Any deviation is reported as skills.ErrMalformedExtraction.
// Items are returned in model order and are not filtered.
func ParseResponse(raw string) ([]skills.Extracted, error) {
	object, err := ai.ExtractJSONObject(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", skills.ErrMalformedExtraction, err)
	}

	decoder := json.NewDecoder(bytes.NewReader([]byte(object)))
	decoder.UseNumber()

	var document map[string]any
	if err := decoder.Decode(&document); err != nil {
		return nil, fmt.Errorf("%w: decode json: %v", skills.ErrMalformedExtraction, err)
	}

	value, ok := document["skills"]
	if !ok {
		return nil, fmt.Errorf("%w: missing skills array", skills.ErrMalformedExtraction)
	}
	items, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: skills is %T, not an array", skills.ErrMalformedExtraction, value)
	}

	result := make([]skills.Extracted, 0, len(items))
	for i, item := range items {
		extracted, err := parseItem(item)
		if err != nil {
			return nil, fmt.Errorf("%w: skills[%d]: %v", skills.ErrMalformedExtraction, i, err)
		}
		result = append(result, extracted)
	}
	return result, nil
}

func parseItem(item any) (skills.Extracted, error) {
	var out skills.Extracted

	fields, ok := item.(map[string]any)
	if !ok {
		return out, fmt.Errorf("item is %T, not an object", item)
	}

	tag, err := requiredString(fields, "tag")
	if err != nil {
		return out, err
	}
	levelText, err := requiredString(fields, "level")
	if err != nil {
		return out, err
	}
	level, err := skills.ParseLevel(levelText)
	if err != nil {
		return out, err
	}
	evidence, err := requiredString(fields, "evidence")
	if err != nil {
		return out, err
	}
	confidence, err := optionalConfidence(fields)
	if err != nil {
		return out, err
	}

	out.Tag = tag
	out.Level = level
	out.Evidence = evidence
	out.Confidence = confidence
	return out, nil
}

func requiredString(fields map[string]any, key string) (string, error) {
	value, ok := fields[key]
	if !ok || value == nil {
		return "", fmt.Errorf("missing %s", key)
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%s is %T, not a string", key, value)
	}
	return s, nil
}

func optionalConfidence(fields map[string]any) (*float64, error) {
	value, ok := fields["confidence"]
	if !ok || value == nil {
		return nil, nil
	}
	number, ok := value.(json.Number)
	if !ok {
		return nil, fmt.Errorf("confidence is %T, not a number", value)
	}
	f, err := number.Float64()
	if err != nil {
		return nil, fmt.Errorf("confidence: %w", err)
	}
	if math.IsNaN(f) || f < 0 || f > 1 {
		return nil, errors.New("confidence outside [0, 1]")
	}
	return &f, nil
}

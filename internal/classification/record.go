// Package classification decides whether a posting is a fully remote role
// open to workers in the EU.
package classification

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/nicolad/nomadically.work/internal/utils"
)

// MaxReasonRunes caps the stored justification.
const MaxReasonRunes = 500

// Confidence is the certainty of a classification.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ParseConfidence accepts high, medium or low in any case.
func ParseConfidence(s string) (Confidence, error) {
	switch c := Confidence(strings.ToLower(strings.TrimSpace(s))); c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return c, nil
	default:
		return "", fmt.Errorf("unknown confidence %q", s)
	}
}

// Record is the outcome of classifying one posting.
type Record struct {
	IsRemoteEU bool       `json:"isRemoteEU" yaml:"isRemoteEU"`
	Confidence Confidence `json:"confidence" yaml:"confidence"`
	Reason     string     `json:"reason" yaml:"reason"`
}

// UnmarshalJSON accepts camelCase and snake_case keys.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := DecodeRecord(raw)
	if err != nil {
		return err
	}
	*r = decoded
	return nil
}

// UnmarshalYAML accepts the same key variants as UnmarshalJSON.
func (r *Record) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	decoded, err := DecodeRecord(raw)
	if err != nil {
		return err
	}
	*r = decoded
	return nil
}

type wireRecord struct {
	IsRemoteEU *bool  `mapstructure:"isremoteeu"`
	Confidence string `mapstructure:"confidence"`
	Reason     string `mapstructure:"reason"`
}

func normaliseKey(k string) string {
	lk := strings.ToLower(k)
	lk = strings.ReplaceAll(lk, "_", "")
	lk = strings.ReplaceAll(lk, "-", "")
	switch lk {
	case "isremoteeu", "isremoteeuposition", "remoteeu":
		return "isremoteeu"
	case "reason", "explanation":
		return "reason"
	default:
		return lk
	}
}

// DecodeRecord builds a Record from loosely keyed model or fixture output.
// isRemoteEU and confidence are required; reason is truncated.
func DecodeRecord(raw map[string]any) (Record, error) {
	if raw == nil {
		return Record{}, errors.New("classification record is empty")
	}

	normalised := make(map[string]any, len(raw))
	for k, v := range raw {
		normalised[normaliseKey(k)] = v
	}

	var wire wireRecord
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &wire,
	})
	if err != nil {
		return Record{}, err
	}
	if err := decoder.Decode(normalised); err != nil {
		return Record{}, fmt.Errorf("decode classification: %w", err)
	}

	if wire.IsRemoteEU == nil {
		return Record{}, errors.New("classification is missing isRemoteEU")
	}
	confidence, err := ParseConfidence(wire.Confidence)
	if err != nil {
		return Record{}, err
	}

	return Record{
		IsRemoteEU: *wire.IsRemoteEU,
		Confidence: confidence,
		Reason:     utils.TruncateRunes(strings.TrimSpace(wire.Reason), MaxReasonRunes),
	}, nil
}

// Package eval scores classifier output against expectations and verifies
// curated listing batches. Nothing here returns an error for harness input:
// bad input becomes a score of 0 with a reason.
package eval

import (
	"github.com/nicolad/nomadically.work/internal/classification"
)

// ClassificationMetadata keeps both records for auditing a score.
type ClassificationMetadata struct {
	Expected        classification.Record `json:"expected"`
	Actual          classification.Record `json:"actual"`
	RemoteEUMatch   bool                  `json:"remote_eu_match"`
	ConfidenceMatch bool                  `json:"confidence_match"`
}

// ClassificationScore is 0, 0.5 or 1.
type ClassificationScore struct {
	Score    float64                `json:"score"`
	Metadata ClassificationMetadata `json:"metadata"`
}

// ScoreClassification compares a classifier result with the expected one.
// A wrong isRemoteEU scores 0 whatever the confidence; a right answer with
// a different confidence scores 0.5.
func ScoreClassification(expected, actual classification.Record) ClassificationScore {
	meta := ClassificationMetadata{
		Expected:        expected,
		Actual:          actual,
		RemoteEUMatch:   expected.IsRemoteEU == actual.IsRemoteEU,
		ConfidenceMatch: expected.Confidence == actual.Confidence,
	}

	score := 1.0
	switch {
	case !meta.RemoteEUMatch:
		score = 0
	case !meta.ConfidenceMatch:
		score = 0.5
	}
	return ClassificationScore{Score: score, Metadata: meta}
}

// Case is one labelled classification example. Actual is filled in by the
// caller when it is not part of the fixture; Failure records why it could not
// be, or why the fixture itself was unusable.
type Case struct {
	ID       string                 `json:"id" yaml:"id"`
	Job      classification.Job     `json:"job" yaml:"job"`
	Expected classification.Record  `json:"expected" yaml:"expected"`
	Actual   *classification.Record `json:"actual,omitempty" yaml:"actual"`
	Failure  string                 `json:"-" yaml:"-"`
}

// CaseResult is the score of one case. Err is set when no actual record
// could be produced.
type CaseResult struct {
	ID    string              `json:"id"`
	Score ClassificationScore `json:"score"`
	Err   string              `json:"error,omitempty"`
}

// ClassificationReport aggregates case results.
type ClassificationReport struct {
	Cases  []CaseResult `json:"cases"`
	Mean   float64      `json:"mean"`
	Exact  int          `json:"exact"`
	Half   int          `json:"half"`
	Wrong  int          `json:"wrong"`
	Reason string       `json:"reason,omitempty"`
}

// ScoreAll scores every case that has an actual record. Cases without one
// score 0 and are reported with a reason.
func ScoreAll(cases []Case) ClassificationReport {
	report := ClassificationReport{Cases: make([]CaseResult, 0, len(cases))}
	if len(cases) == 0 {
		report.Reason = "no cases"
		return report
	}

	total := 0.0
	for _, c := range cases {
		result := CaseResult{ID: c.ID}
		if c.Actual == nil || c.Failure != "" {
			result.Score = ClassificationScore{Metadata: ClassificationMetadata{Expected: c.Expected}}
			result.Err = c.Failure
			if result.Err == "" {
				result.Err = "missing actual classification"
			}
		} else {
			result.Score = ScoreClassification(c.Expected, *c.Actual)
		}

		switch result.Score.Score {
		case 1:
			report.Exact++
		case 0.5:
			report.Half++
		default:
			report.Wrong++
		}
		total += result.Score.Score
		report.Cases = append(report.Cases, result)
	}

	report.Mean = total / float64(len(cases))
	return report
}

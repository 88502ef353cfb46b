package extraction

import (
	"google.golang.org/genai"

	"github.com/nicolad/nomadically.work/internal/skills"
)

// MaxEvidenceRunes is the evidence length requested from the model.
const MaxEvidenceRunes = 100

// Schema returns the response schema sent with every extraction request.
func Schema() *genai.Schema {
	levels := make([]string, 0, len(skills.Levels))
	for _, l := range skills.Levels {
		levels = append(levels, string(l))
	}

	minConfidence, maxConfidence := 0.0, 1.0
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"skills": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"tag": {
							Type:        genai.TypeString,
							Description: "Exact tag from the allowed list.",
						},
						"level": {
							Type:        genai.TypeString,
							Description: "How strongly the posting asks for the skill.",
							Enum:        levels,
						},
						"confidence": {
							Type:        genai.TypeNumber,
							Description: "Certainty that the skill applies.",
							Minimum:     &minConfidence,
							Maximum:     &maxConfidence,
						},
						"evidence": {
							Type:        genai.TypeString,
							Description: "Verbatim supporting quote, at most 100 characters.",
						},
					},
					Required:         []string{"tag", "level", "evidence"},
					PropertyOrdering: []string{"tag", "level", "confidence", "evidence"},
				},
			},
		},
		Required: []string{"skills"},
	}
}

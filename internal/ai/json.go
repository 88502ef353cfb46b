package ai

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nicolad/nomadically.work/internal/utils"
)

var fencePattern = regexp.MustCompile("```(?:json|JSON)?")

// ExtractJSONObject strips markdown fences and any text around the outermost
// JSON object of a model response.
func ExtractJSONObject(raw string) (string, error) {
	cleaned := strings.TrimSpace(fencePattern.ReplaceAllString(raw, ""))
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("%w: no json object in %q", ErrSchemaViolation, utils.TruncateForLog(cleaned, 200))
	}
	return cleaned[start : end+1], nil
}

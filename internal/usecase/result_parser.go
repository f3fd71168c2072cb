// File: internal/usecase/result_parser.go
package usecase

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"sprint-estimator/internal/domain"
	"sprint-estimator/internal/domain/model"
)

var (
	jsonFencePattern = regexp.MustCompile("(?s)```json\n?(.*?)\n?```")
	anyFencePattern  = regexp.MustCompile("(?s)```\n?(.*?)\n?```")
	rawJSONPattern   = regexp.MustCompile(`(?s)\{.*"estimatedPoints".*\}`)

	controlCharPattern   = regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]")
	trailingCommaPattern = regexp.MustCompile(`,(\s*[}\]])`)
	bareKeyPattern       = regexp.MustCompile(`([{,]\s*)(\w+)(\s*:)`)
)

// HasResultJSON reports whether the text already looks like it carries the
// final estimation payload. Used to decide on the one-shot recovery prompt.
func HasResultJSON(text string) bool {
	return rawJSONPattern.MatchString(text) || strings.Contains(text, "```json")
}

// ExtractResultJSON locates the estimation JSON inside a model response.
// Precedence: a ```json fence, then any fence, then a raw object that
// mentions estimatedPoints.
func ExtractResultJSON(text string) (string, error) {
	if m := jsonFencePattern.FindStringSubmatch(text); m != nil {
		return m[1], nil
	}
	if m := anyFencePattern.FindStringSubmatch(text); m != nil {
		return m[1], nil
	}
	if m := rawJSONPattern.FindString(text); m != "" {
		return m, nil
	}
	preview := text
	if len(preview) > 200 {
		preview = preview[:200]
	}
	return "", fmt.Errorf("%w: response length %d, preview: %s", domain.ErrNoResultJSON, len(text), preview)
}

// SanitizeJSON repairs almost-JSON emitted by models. The first pass strips
// disallowed control characters and trailing commas; if the result still
// fails to parse, a second pass converts single quotes, quotes bare keys
// and drops a BOM. The output of the second pass is returned as-is; the
// caller's json.Unmarshal decides whether the repair was enough.
func SanitizeJSON(s string) string {
	result := controlCharPattern.ReplaceAllString(s, "")
	result = trailingCommaPattern.ReplaceAllString(result, "$1")

	if json.Valid([]byte(result)) {
		return result
	}

	result = strings.ReplaceAll(result, "'", `"`)
	result = bareKeyPattern.ReplaceAllString(result, `$1"$2"$3`)
	result = strings.TrimPrefix(result, "\uFEFF")
	return strings.TrimSpace(result)
}

// ParseEstimationResult extracts, repairs, decodes and normalizes the final
// estimation payload from a raw model response.
func ParseEstimationResult(text string) (*model.EstimationResult, error) {
	raw, err := ExtractResultJSON(text)
	if err != nil {
		return nil, err
	}
	sanitized := SanitizeJSON(raw)

	var result model.EstimationResult
	if err := json.Unmarshal([]byte(sanitized), &result); err != nil {
		return nil, fmt.Errorf("decode estimation result: %w", err)
	}
	result.Normalize()
	return &result, nil
}

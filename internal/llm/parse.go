package llm

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/ternarybob/quaero/internal/models"
)

// fencedJSONRegex extracts a ```json ... ``` or ``` ... ``` fenced block.
var fencedJSONRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// parseMatchResult turns a provider's raw text response into a MatchResult,
// trying progressively looser extraction strategies:
//  1. the text is already a bare JSON object
//  2. the JSON object is wrapped in a fenced code block
//  3. the first balanced {...} substring in the text
//  4. give up and return a default zero-confidence result
func parseMatchResult(text string) (*models.MatchResult, bool) {
	trimmed := strings.TrimSpace(text)

	if result, ok := tryUnmarshalMatchResult(trimmed); ok {
		return result, true
	}

	if m := fencedJSONRegex.FindStringSubmatch(trimmed); len(m) == 2 {
		if result, ok := tryUnmarshalMatchResult(m[1]); ok {
			return result, true
		}
	}

	if block := extractBalancedBraces(trimmed); block != "" {
		if result, ok := tryUnmarshalMatchResult(block); ok {
			return result, true
		}
	}

	return defaultMatchResult(trimmed), false
}

func tryUnmarshalMatchResult(text string) (*models.MatchResult, bool) {
	var raw struct {
		MatchingScore   json.RawMessage `json:"matching_score"`
		Summary         string          `json:"summary"`
		Strengths       []string        `json:"strengths"`
		Gaps            []string        `json:"gaps"`
		Recommendations []string        `json:"recommendations"`
		Reasoning       string          `json:"reasoning"`
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, false
	}

	score, ok := coerceScore(raw.MatchingScore)
	if !ok {
		return nil, false
	}

	return &models.MatchResult{
		MatchingScore:   clampScore(score),
		Summary:         raw.Summary,
		Strengths:       raw.Strengths,
		Gaps:            raw.Gaps,
		Recommendations: raw.Recommendations,
		Reasoning:       raw.Reasoning,
	}, true
}

// coerceScore accepts matching_score encoded as either a bare JSON number
// or a JSON string wrapping a number (some providers quote numeric fields),
// per spec §8 Testable Property 6's `'{"matching_score": "95"}' -> 95` vector.
func coerceScore(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}

	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		if f, err := asNumber.Float64(); err == nil {
			return f, true
		}
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(asString), 64); err == nil {
			return f, true
		}
	}

	return 0, false
}

// extractBalancedBraces returns the first top-level {...} substring, or ""
// if the text contains no balanced braces.
func extractBalancedBraces(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// truncatedRawTextLimit bounds how much of a malformed provider response gets
// carried into the default result's reasoning field.
const truncatedRawTextLimit = 500

// defaultMatchResult is returned when every parse strategy fails, so a
// single malformed provider response doesn't abort an entire batch. The
// raw provider text is preserved (truncated) in Reasoning per spec §4.B
// step 4.
func defaultMatchResult(rawText string) *models.MatchResult {
	if len(rawText) > truncatedRawTextLimit {
		rawText = rawText[:truncatedRawTextLimit] + "..."
	}
	return &models.MatchResult{
		MatchingScore: 0,
		Summary:       "analysis unavailable",
		Reasoning:     rawText,
	}
}

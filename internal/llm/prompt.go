package llm

import "strings"

// scorePromptTemplate is rendered with literal substring substitution
// rather than text/template or fmt.Sprintf, since the résumé and job JSON
// payloads routinely contain curly braces and percent signs that would
// otherwise collide with a templating engine's own syntax.
const scorePromptTemplate = `You are an expert technical recruiter. Compare the candidate résumé to the job posting below and score how well they match.

Résumé:
{resume_json}

Job posting:
{job_json}

Respond with a JSON object matching this exact shape:
{
  "matching_score": <number 0-100>,
  "summary": "<one or two sentence summary>",
  "strengths": ["<short phrase>", ...],
  "gaps": ["<short phrase>", ...],
  "recommendations": ["<short phrase>", ...],
  "reasoning": "<brief explanation of how the score was reached>"
}

Return ONLY the JSON object, with no surrounding prose or markdown fences.`

// renderScorePrompt substitutes the literal placeholders in the template
// with the given JSON payloads.
func renderScorePrompt(resumeJSON, jobJSON string) string {
	prompt := scorePromptTemplate
	prompt = strings.ReplaceAll(prompt, "{resume_json}", resumeJSON)
	prompt = strings.ReplaceAll(prompt, "{job_json}", jobJSON)
	return prompt
}

// matchResultSchema is the JSON schema handed to providers that support
// structured/function-call output (OpenAI-compatible tool calling, Gemini
// response schema).
var matchResultSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"matching_score":  map[string]interface{}{"type": "number", "minimum": 0, "maximum": 100},
		"summary":         map[string]interface{}{"type": "string"},
		"strengths":       map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		"gaps":            map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		"recommendations": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		"reasoning":       map[string]interface{}{"type": "string"},
	},
	"required": []string{"matching_score", "summary"},
}

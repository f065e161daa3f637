package analysis

const systemPrompt = `You analyse sales call transcripts for a sales team.
Return a JSON object with exactly these keys, each holding a string:
- "summary": two or three sentences describing the call.
- "key_insights": the most important insights, one bullet point per line.
- "pain_points": the customer's pain points, one bullet point per line.
- "next_steps": agreed or recommended next steps, one bullet point per line.
Bullet points start with "- ". Use an empty string when a section has nothing to report.`

const userPromptPrefix = "Analyze this sales call transcript:\n\n"

const schemaName = "call_analysis"

// responseSchema constrains the model output to the four string fields and nothing else.
var responseSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"summary":      map[string]any{"type": "string"},
		"key_insights": map[string]any{"type": "string"},
		"pain_points":  map[string]any{"type": "string"},
		"next_steps":   map[string]any{"type": "string"},
	},
	"required":             []string{"summary", "key_insights", "pain_points", "next_steps"},
	"additionalProperties": false,
}

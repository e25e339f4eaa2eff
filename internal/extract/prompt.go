package extract

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are an analyst converting raw sales meeting notes into structured CRM facts.

Extract every person, company, opportunity, and follow-up commitment the notes mention. Do not invent facts that are not in the notes. Keep names exactly as written, including misspellings.

Respond with a single JSON object and nothing else. The object has these fields:

{
  "meeting_date": "YYYY-MM-DD or null if not stated",
  "participants": [{"name": "...", "role": "...", "company": "...", "email": "..."}],
  "companies": [{"name": "...", "domain": "...", "industry": "..."}],
  "opportunities": [{"title": "...", "stage": "...", "amount": 0, "company": "..."}],
  "follow_ups": [{"kind": "meeting|task|validation", "with": "...", "timing": "...", "topic": "..."}],
  "key_points": ["..."],
  "sentiment": "positive|neutral|negative"
}

Rules:
- Omit optional string fields you cannot fill rather than guessing.
- "amount" is a number in the deal currency, 0 if unknown.
- A follow-up "kind" is "meeting" for a commitment to meet again, "task" for a concrete action item, "validation" for a fact that needs checking.
- "key_points" are short declarative statements of what was decided or learned.`

const strictSupplement = `

STRICT MODE: your previous response failed schema validation. Output ONLY the JSON object. No markdown fences, no commentary, no trailing text. Every array field must be present, using [] when empty. "meeting_date" must be "YYYY-MM-DD" or null.`

// SystemPrompt returns the extraction system prompt, tightened when strict.
func SystemPrompt(strict bool) string {
	if strict {
		return systemPrompt + strictSupplement
	}
	return systemPrompt
}

// BuildUserMessage assembles the user turn from notes and optional context.
func BuildUserMessage(notes, contextBlock string) string {
	var b strings.Builder
	if contextBlock != "" {
		b.WriteString(strings.TrimRight(contextBlock, "\n"))
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Meeting notes:\n%s", notes)
	return b.String()
}

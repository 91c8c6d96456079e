// Package prompt renders the single text prompt sent to the chat model.
package prompt

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/yoockh/studybuddy/internal/models"
)

const persona = `You are StudyBuddy, a highly knowledgeable, helpful, and friendly study assistant.
You explain concepts like a tutor (clear, concise, step-by-step) and also give examples
when useful.`

const fieldRules = `Your response MUST always be in JSON with these keys:

- answer: (string) a direct, clear explanation in natural language.
- key_points: (array of 3-6 bullet strings) short, focused takeaways.
- follow_up_questions: (array of 2 short questions) things the student might ask next.
- references: (array of strings) external references or sources if available, otherwise [].`

const jsonOnly = `Do NOT add extra text outside JSON. Output only valid JSON.`

const closing = `Respond with a single JSON object ONLY (no markdown, no prose).`

var (
	systemOnce sync.Once
	system     string
)

// SystemInstruction is the fixed preamble: persona, field rules, the JSON
// schema of StudyAnswer and the JSON-only directive.
func SystemInstruction() string {
	systemOnce.Do(func() {
		parts := []string{persona, fieldRules}
		if s := answerSchema(); s != "" {
			parts = append(parts, "JSON schema of the response:\n"+s)
		}
		parts = append(parts, jsonOnly)
		system = strings.Join(parts, "\n\n")
	})
	return system
}

func answerSchema() string {
	r := &jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
	s := r.Reflect(&models.StudyAnswer{})
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}

// Build concatenates the system instruction, the rendered history, the
// question and the closing directive.
func Build(history, question string) string {
	var b strings.Builder
	b.WriteString(SystemInstruction())
	b.WriteString("\n\nChat history:\n")
	b.WriteString(history)
	b.WriteString("\n\nStudent question:\n")
	b.WriteString(question)
	b.WriteString("\n\n")
	b.WriteString(closing)
	return b.String()
}

package gemini

import (
	_ "embed"
	"strconv"
	"strings"
)

var (
	//go:embed prompts/classify.md
	classifyPrompt string
	//go:embed prompts/hr_questions.md
	hrQuestionsPrompt string
	//go:embed prompts/tech_questions.md
	techQuestionsPrompt string
	//go:embed prompts/hr_evaluation.md
	hrEvaluationPrompt string
	//go:embed prompts/tech_evaluation.md
	techEvaluationPrompt string
	//go:embed prompts/transcribe.md
	transcribePrompt string
	//go:embed prompts/assistant.md
	assistantPrompt string
)

func renderPrompt(template string, values map[string]string) string {
	prompt := template
	for key, value := range values {
		prompt = strings.ReplaceAll(prompt, "{{"+key+"}}", value)
	}
	return strings.TrimSpace(prompt)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

package interview

import (
	"strings"
	"unicode"
)

const (
	minDescriptionWords = 5
	minDescriptionChars = 30
)

type descriptionRule struct {
	name    string
	ok      func(text string) bool
	message string
}

// Rules run in order; the first failing rule decides the message.
var descriptionRules = []descriptionRule{
	{
		name:    "not_empty",
		ok:      func(text string) bool { return strings.TrimSpace(text) != "" },
		message: "Please enter a job description",
	},
	{
		name:    "min_words",
		ok:      func(text string) bool { return len(strings.Fields(text)) >= minDescriptionWords },
		message: "Please enter a proper job description (at least 5 words)",
	},
	{
		name:    "has_letters",
		ok:      func(text string) bool { return strings.IndexFunc(text, unicode.IsLetter) != -1 },
		message: "Please enter meaningful text, not just numbers/symbols",
	},
	{
		name:    "min_chars",
		ok:      func(text string) bool { return len([]rune(text)) >= minDescriptionChars },
		message: "Description too short - please provide more details",
	},
}

// ValidateJobDescription checks the description before it is sent to the
// classifier. The returned error is a validation Failure.
func ValidateJobDescription(text string) error {
	for _, rule := range descriptionRules {
		if !rule.ok(text) {
			return validationFailure("validate job description: "+rule.name, rule.message)
		}
	}
	return nil
}

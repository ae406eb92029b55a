package ai

import (
	"fmt"
	"strings"
)

// Prompt is the fixed two-part instruction sent to every backend.
type Prompt struct {
	System string
	User   string
}

var anatomistRules = []string{
	"You are an expert anatomist and science educator inside an interactive human anatomy app.",
	"Answer in a friendly, engaging, concise way (2-4 sentences max).",
	"Use plain language suitable for curious learners of all ages.",
	"Do not use markdown.",
}

// BuildPrompt embeds the organ name and the verbatim question in the
// anatomist template.
func BuildPrompt(organName, question string) Prompt {
	return Prompt{
		System: strings.Join(anatomistRules, " "),
		User:   fmt.Sprintf("The user is currently viewing the %s.\nTheir question: %s", organName, question),
	}
}

// Combined flattens the prompt for backends that take a single text field.
func (p Prompt) Combined() string {
	return p.System + "\n\n" + p.User
}

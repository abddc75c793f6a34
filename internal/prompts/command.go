package prompts

import (
	"encoding/json"
	"fmt"
	"strings"
)

const CommandPrompt = `You are the command interpreter for a voice navigation assistant.
Your only job is to classify the user's speech and extract a destination.

USER SPEECH: %q

INTENTS:
- WHAT_IS_AHEAD: asks about objects directly in front ("what's ahead", "anything in front")
- DESCRIBE_SURROUNDINGS: wants a general overview ("where am I", "what's around")
- SAFETY_CHECK: wants to know if moving is safe ("is it safe", "can I walk", "clear path?")
- NAVIGATE: wants to go somewhere ("take me to", "go to", "navigate to")
- STOP_SESSION: wants to halt guidance ("stop", "cancel", "quit")
- HELP: wants usage instructions ("help", "what can I say")

VALID DESTINATIONS: %s

RULES:
1. Be flexible with wording.
2. If they want to go somewhere not in the list, return NAVIGATE with destination null.
3. Return ONLY valid JSON.

JSON FORMAT:
{"intent": "<INTENT>", "destination": "<destination or null>"}`

// Command is the classifier's answer before validation
type Command struct {
	Intent      string  `json:"intent"`
	Destination *string `json:"destination"`
}

func BuildCommandPrompt(transcript string, destinations []string) string {
	return fmt.Sprintf(CommandPrompt, transcript, strings.Join(destinations, ", "))
}

// ParseCommand extracts the JSON object from a classifier answer,
// tolerating markdown fences and surrounding prose.
func ParseCommand(content string) (*Command, error) {
	jsonContent := extractJSON(content)
	if jsonContent == "" {
		return nil, fmt.Errorf("no valid JSON found in response")
	}

	var cmd Command
	if err := json.Unmarshal([]byte(jsonContent), &cmd); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if cmd.Destination != nil {
		d := strings.TrimSpace(*cmd.Destination)
		if d == "" || strings.EqualFold(d, "null") {
			cmd.Destination = nil
		}
	}

	return &cmd, nil
}

func extractJSON(content string) string {
	start := strings.Index(content, "{")
	if start == -1 {
		return ""
	}

	end := strings.LastIndex(content, "}")
	if end == -1 || end <= start {
		return ""
	}

	return content[start : end+1]
}

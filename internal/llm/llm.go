// Package llm holds the OpenAI-compatible chat completions wire format used to
// probe the provider directly.
package llm

import (
	"errors"
	"fmt"
	"strings"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a chat completions request body.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// Response is the subset of a chat completions response the probe reads.
type Response struct {
	ID      string   `json:"id,omitempty"`
	Model   string   `json:"model,omitempty"`
	Choices []Choice `json:"choices"`
}

// NewRequest builds a system+user prompt request.
func NewRequest(model string, temperature float64, maxTokens int, systemPrompt, userPrompt string) Request {
	return Request{
		Model: model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
}

// Endpoint joins a provider base URL with the completions path.
func Endpoint(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/chat/completions"
}

// FirstChoice returns the text of choices[0] from a decoded response object.
func FirstChoice(body map[string]interface{}) (string, error) {
	raw, ok := body["choices"]
	if !ok {
		return "", errors.New("llm response has no choices field")
	}
	choices, ok := raw.([]interface{})
	if !ok {
		return "", fmt.Errorf("llm choices is %T, want array", raw)
	}
	if len(choices) == 0 {
		return "", errors.New("llm response has no choices")
	}
	choice, ok := choices[0].(map[string]interface{})
	if !ok {
		return "", errors.New("llm choice is not an object")
	}
	msg, ok := choice["message"].(map[string]interface{})
	if !ok {
		return "", errors.New("llm choice has no message")
	}
	content, ok := msg["content"].(string)
	if !ok {
		return "", errors.New("llm message has no content")
	}
	return strings.TrimSpace(content), nil
}

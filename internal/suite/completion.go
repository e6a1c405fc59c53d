package suite

import (
	"errors"
	"net/http"
	"time"

	"github.com/yourorg/apicheck/internal/check"
	"github.com/yourorg/apicheck/internal/llm"
)

// CompletionOptions parameterizes the direct provider probe.
type CompletionOptions struct {
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	// APIKey returns the bearer credential; an error fails the probe locally.
	APIKey func() (string, error)
}

// Completion returns the single-check table that calls the provider's chat
// completions endpoint directly.
func Completion(opts CompletionOptions) []check.Check {
	return []check.Check{{
		ID:     "completion",
		Name:   "Completion Provider API",
		Method: http.MethodPost,
		Path:   llm.Endpoint(opts.BaseURL),
		HeaderFunc: func() (map[string]string, error) {
			if opts.APIKey == nil {
				return nil, errors.New("no API key source configured")
			}
			key, err := opts.APIKey()
			if err != nil {
				return nil, err
			}
			return map[string]string{"Authorization": "Bearer " + key}, nil
		},
		Body: func(check.Vars) interface{} {
			return llm.NewRequest(opts.Model, opts.Temperature, opts.MaxTokens,
				"You are a helpful assistant.", "Say hello in one word.")
		},
		Validate: func(body check.Body) (string, error) {
			text, err := llm.FirstChoice(body)
			if err != nil {
				return "", err
			}
			return "Response: " + text, nil
		},
		Timeout: opts.Timeout,
	}}
}

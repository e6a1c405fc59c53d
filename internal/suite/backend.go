// Package suite declares the check tables run against the chat application
// and its completion provider.
package suite

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/apicheck/internal/check"
)

const (
	// HealthMessage is the fixed identifying message of the health probe.
	HealthMessage = "AI Chat API"

	replyExcerpt = 100
)

// BackendOptions parameterizes the backend table.
type BackendOptions struct {
	// Token is sent as a bearer credential by the authenticated checks.
	Token             string
	Timeout           time.Duration
	GenerationTimeout time.Duration
	// NewID generates identities and placeholder ids. Defaults to uuid v4.
	NewID func() string
}

func (o BackendOptions) withDefaults() BackendOptions {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.GenerationTimeout <= 0 {
		o.GenerationTimeout = 30 * time.Second
	}
	if o.NewID == nil {
		o.NewID = func() string { return uuid.NewString() }
	}
	return o
}

// Backend returns the chat application checks in execution order. Paths are
// relative to the API base, e.g. https://host/api.
func Backend(opts BackendOptions) []check.Check {
	o := opts.withDefaults()
	bearer := map[string]string{"Authorization": "Bearer " + o.Token}

	return []check.Check{
		{
			ID:       "health_check",
			Name:     "Health Check API",
			Method:   http.MethodGet,
			Validate: check.FieldEquals("message", HealthMessage),
			Timeout:  o.Timeout,
		},
		{
			ID:     "user_signup",
			Name:   "User Signup API",
			Method: http.MethodPost,
			Path:   "/auth/signup",
			Body: func(check.Vars) interface{} {
				id := o.NewID()
				short := id
				if len(short) > 8 {
					short = short[:8]
				}
				return map[string]string{
					"id":       id,
					"email":    fmt.Sprintf("testuser_%s@example.com", short),
					"name":     fmt.Sprintf("Test User %s", short),
					"password": "testpassword123",
				}
			},
			Validate: check.ObjectField("user", "email", "User created"),
			Timeout:  o.Timeout,
		},
		{
			ID:     "chat_guest",
			Name:   "Chat API - Guest Mode",
			Method: http.MethodPost,
			Path:   "/chat",
			Body: func(check.Vars) interface{} {
				return map[string]string{"message": "Hello, this is a test message from a guest user. Can you respond?"}
			},
			Validate: reply,
			Produces: "chatId",
			Extract:  check.StringField("chatId"),
			Timeout:  o.GenerationTimeout,
		},
		{
			ID:      "chat_auth",
			Name:    "Chat API - Authenticated Mode",
			Method:  http.MethodPost,
			Path:    "/chat",
			Headers: bearer,
			Body: func(check.Vars) interface{} {
				return map[string]string{"message": "Hello, this is a test message from an authenticated user. Can you respond?"}
			},
			Notes:    map[int]string{http.StatusInternalServerError: "Server error (expected with dummy token)"},
			Validate: reply,
			Timeout:  o.GenerationTimeout,
		},
		{
			ID:       "get_chats_guest",
			Name:     "Get Chats API - Guest Mode",
			Method:   http.MethodGet,
			Path:     "/chats",
			Validate: check.ListField("chats", "chats"),
			Timeout:  o.Timeout,
		},
		{
			ID:       "get_chats_auth",
			Name:     "Get Chats API - Authenticated Mode",
			Method:   http.MethodGet,
			Path:     "/chats",
			Headers:  bearer,
			Validate: check.ListField("chats", "chats"),
			Timeout:  o.Timeout,
		},
		{
			ID:     "get_messages",
			Name:   "Get Chat Messages API",
			Method: http.MethodGet,
			Path:   "/chats/{chatId}/messages",
			Params: []check.Param{{
				Name:     "chatId",
				From:     "chatId",
				Fallback: o.NewID,
			}},
			Validate: check.ListField("messages", "messages"),
			Timeout:  o.Timeout,
		},
		{
			ID:      "create_custom_gpt",
			Name:    "Create Custom GPT API",
			Method:  http.MethodPost,
			Path:    "/custom-gpts",
			Headers: bearer,
			Body: func(check.Vars) interface{} {
				return customGPT("You are a helpful test assistant. Always respond with enthusiasm and include the word 'test' in your responses.")
			},
			Expect:   []int{http.StatusOK},
			Accept:   map[int]string{http.StatusUnauthorized: "Correctly returned 401 for invalid auth token"},
			Validate: check.ObjectField("customGPT", "name", "Created"),
			Timeout:  o.Timeout,
		},
		{
			ID:       "get_custom_gpts",
			Name:     "Get Custom GPTs API",
			Method:   http.MethodGet,
			Path:     "/custom-gpts",
			Headers:  bearer,
			Validate: check.ListField("customGPTs", "custom GPTs"),
			Timeout:  o.Timeout,
		},
		{
			ID:     "create_custom_gpt_no_auth",
			Name:   "Create Custom GPT API - No Auth",
			Method: http.MethodPost,
			Path:   "/custom-gpts",
			Body: func(check.Vars) interface{} {
				return customGPT("You are a helpful test assistant.")
			},
			Accept:         map[int]string{http.StatusUnauthorized: "Correctly returned 401 Unauthorized"},
			NoGapHeuristic: true,
			Timeout:        o.Timeout,
		},
	}
}

// customGPT sends the prompt under both spellings; the API reads
// systemPrompt while older clients send system_prompt.
func customGPT(prompt string) map[string]string {
	return map[string]string{
		"name":          "Test Assistant",
		"description":   "A test custom GPT assistant",
		"system_prompt": prompt,
		"systemPrompt":  prompt,
	}
}

func reply(body check.Body) (string, error) {
	if err := check.RequireKeys(body, "message", "chatId"); err != nil {
		return "", fmt.Errorf("missing required fields: %w", err)
	}
	msg, _ := check.String(body, "message")
	return "AI Response: " + check.Truncate(msg, replyExcerpt), nil
}

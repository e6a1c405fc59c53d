// Package stubapi serves an in-memory imitation of the chat application API
// and a completions endpoint, for dry runs and tests of the check suites.
package stubapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/yourorg/apicheck/internal/llm"
)

// DefaultToken is accepted as a valid bearer credential unless Options.Tokens
// is set.
const DefaultToken = "dummy_token_for_testing"

type Options struct {
	// Tokens maps bearer tokens to user ids.
	Tokens map[string]string
	// ProviderKey is the credential the completions endpoint expects.
	ProviderKey string
	// MissingRelations makes every store-backed endpoint fail the way an
	// unmigrated database does.
	MissingRelations bool
	Reply            func(message string) string
}

type user struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type customGPT struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	SystemPrompt string    `json:"system_prompt"`
	CreatorID    string    `json:"creator_id"`
	IsPublic     bool      `json:"is_public"`
	CreatedAt    time.Time `json:"created_at"`
}

// Server holds the stub state. It is safe for concurrent use.
type Server struct {
	opts   Options
	router chi.Router

	mu       sync.Mutex
	users    map[string]user
	chats    []chat
	messages map[string][]message
	gpts     []customGPT
}

func New(opts Options) *Server {
	if opts.Tokens == nil {
		opts.Tokens = map[string]string{DefaultToken: "user-test"}
	}
	if opts.Reply == nil {
		opts.Reply = func(msg string) string { return "Hello! You said: " + msg }
	}
	s := &Server{
		opts:     opts,
		users:    map[string]user{},
		messages: map[string][]message{},
	}
	s.router = s.routes()
	return s
}

// Handler returns the http handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/", s.handleHealth)
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/chat", s.handleChat)
		r.Get("/chats", s.handleListChats)
		r.Get("/chats/{chatId}/messages", s.handleListMessages)
		r.Post("/custom-gpts", s.handleCreateGPT)
		r.Get("/custom-gpts", s.handleListGPTs)
	})
	r.Post("/openai/v1/chat/completions", s.handleCompletion)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "AI Chat API"})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if s.missing(w, "users") {
		return
	}
	var in struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	u := user{ID: in.ID, Email: in.Email, Name: in.Name}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			writeError(w, http.StatusBadRequest, "user already exists")
			return
		}
	}
	s.users[u.ID] = u
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": u})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.authenticate(r)
	var in struct {
		Message string `json:"message"`
		ChatID  string `json:"chatId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(in.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if s.missing(w, "chats") {
		return
	}
	reply := s.opts.Reply(in.Message)
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	if in.ChatID == "" {
		in.ChatID = uuid.NewString()
		title := in.Message
		if len(title) > 50 {
			title = title[:50]
		}
		s.chats = append(s.chats, chat{ID: in.ChatID, Title: title, UserID: userID, CreatedAt: now})
	}
	s.messages[in.ChatID] = append(s.messages[in.ChatID],
		message{ID: uuid.NewString(), ChatID: in.ChatID, Role: "user", Content: in.Message, CreatedAt: now},
		message{ID: uuid.NewString(), ChatID: in.ChatID, Role: "assistant", Content: reply, CreatedAt: now},
	)
	writeJSON(w, http.StatusOK, map[string]string{"message": reply, "chatId": in.ChatID})
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	if s.missing(w, "chats") {
		return
	}
	userID, _ := s.authenticate(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]chat, 0)
	for i := len(s.chats) - 1; i >= 0; i-- {
		if s.chats[i].UserID == userID {
			out = append(out, s.chats[i])
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"chats": out})
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	if s.missing(w, "messages") {
		return
	}
	id := chi.URLParam(r, "chatId")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append(make([]message, 0), s.messages[id]...)
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": out})
}

func (s *Server) handleCreateGPT(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var in struct {
		Name         string `json:"name"`
		Description  string `json:"description"`
		SystemPrompt string `json:"systemPrompt"`
		LegacyPrompt string `json:"system_prompt"`
		IsPublic     bool   `json:"isPublic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if in.SystemPrompt == "" {
		in.SystemPrompt = in.LegacyPrompt
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.SystemPrompt) == "" {
		writeError(w, http.StatusBadRequest, "name and system prompt are required")
		return
	}
	if s.missing(w, "custom_gpts") {
		return
	}
	g := customGPT{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Description:  in.Description,
		SystemPrompt: in.SystemPrompt,
		CreatorID:    userID,
		IsPublic:     in.IsPublic,
		CreatedAt:    time.Now().UTC(),
	}
	s.mu.Lock()
	s.gpts = append(s.gpts, g)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"customGPT": g})
}

func (s *Server) handleListGPTs(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if s.missing(w, "custom_gpts") {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]customGPT, 0)
	for _, g := range s.gpts {
		if g.CreatorID == userID {
			out = append(out, g)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"customGPTs": out})
}

func (s *Server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	if s.opts.ProviderKey == "" || bearer(r) != s.opts.ProviderKey {
		writeError(w, http.StatusUnauthorized, "Invalid API Key")
		return
	}
	var in llm.Request
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if in.Model == "" || len(in.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "model and messages are required")
		return
	}
	writeJSON(w, http.StatusOK, llm.Response{
		ID:    "chatcmpl-" + uuid.NewString(),
		Model: in.Model,
		Choices: []llm.Choice{{
			Message:      llm.Message{Role: "assistant", Content: "Hello"},
			FinishReason: "stop",
		}},
	})
}

// authenticate resolves the bearer token to a user id. An absent or unknown
// token yields ok=false.
func (s *Server) authenticate(r *http.Request) (string, bool) {
	tok := bearer(r)
	if tok == "" {
		return "", false
	}
	id, ok := s.opts.Tokens[tok]
	return id, ok
}

func (s *Server) missing(w http.ResponseWriter, table string) bool {
	if !s.opts.MissingRelations {
		return false
	}
	writeError(w, http.StatusBadRequest, fmt.Sprintf("relation \"public.%s\" does not exist", table))
	return true
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

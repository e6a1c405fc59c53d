package check

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/apicheck/internal/redact"
	"github.com/yourorg/apicheck/pkg/types"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExecuteHealthPass(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"message":"AI Chat API"}`)
	e := &Executor{BaseURL: srv.URL}

	res := e.Execute(context.Background(), Check{ID: "health_check", Validate: FieldEquals("message", "AI Chat API")}, Vars{})

	assert.True(t, res.Success)
	assert.Equal(t, types.OutcomePass, res.Outcome)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Detail, "AI Chat API")
}

func TestExecuteShapeMismatch(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"message":"something else"}`)
	e := &Executor{BaseURL: srv.URL}

	res := e.Execute(context.Background(), Check{ID: "health_check", Validate: FieldEquals("message", "AI Chat API")}, Vars{})

	assert.False(t, res.Success)
	assert.Equal(t, types.OutcomeAssertion, res.Outcome)
	assert.Contains(t, res.Detail, "something else")
}

func TestExecuteUnexpectedStatusEchoed(t *testing.T) {
	srv := serve(t, http.StatusBadRequest, `{"error":"bad input"}`)
	e := &Executor{BaseURL: srv.URL}

	res := e.Execute(context.Background(), Check{ID: "get_chats", Validate: ListField("chats", "chats")}, Vars{})

	assert.False(t, res.Success)
	assert.Equal(t, types.OutcomeAssertion, res.Outcome)
	assert.Equal(t, `Status: 400, Response: {"error":"bad input"}`, res.Detail)
}

func TestExecuteAcceptedStatusIgnoresBody(t *testing.T) {
	srv := serve(t, http.StatusUnauthorized, `not json at all`)
	e := &Executor{BaseURL: srv.URL}
	c := Check{
		ID:     "create_custom_gpt_no_auth",
		Method: http.MethodPost,
		Body:   func(Vars) interface{} { return map[string]string{"name": "x"} },
		Accept: map[int]string{http.StatusUnauthorized: "Correctly returned 401 Unauthorized"},
	}

	res := e.Execute(context.Background(), c, Vars{})

	assert.True(t, res.Success)
	assert.Equal(t, types.OutcomeAccepted, res.Outcome)
	assert.Equal(t, "Correctly returned 401 Unauthorized", res.Detail)
}

func TestExecuteAcceptOnlyRejects200(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"customGPT":{}}`)
	e := &Executor{BaseURL: srv.URL}
	c := Check{ID: "no_auth", Accept: map[int]string{http.StatusUnauthorized: "ok"}}

	res := e.Execute(context.Background(), c, Vars{})

	assert.False(t, res.Success)
	assert.Contains(t, res.Detail, "Status: 200")
}

func TestExecuteMissingRelationFlagged(t *testing.T) {
	srv := serve(t, http.StatusBadRequest, `{"error":"relation \"public.custom_gpts\" does not exist"}`)
	e := &Executor{BaseURL: srv.URL}
	c := Check{
		ID:       "create_custom_gpt",
		Method:   http.MethodPost,
		Expect:   []int{http.StatusOK},
		Accept:   map[int]string{http.StatusUnauthorized: "Correctly returned 401 for invalid auth token"},
		Validate: ObjectField("customGPT", "name", "Created"),
	}

	res := e.Execute(context.Background(), c, Vars{})

	assert.False(t, res.Success)
	assert.Equal(t, types.OutcomeEnvironment, res.Outcome)
	assert.Equal(t, 400, res.Status)
	assert.True(t, strings.HasPrefix(res.Detail, EnvironmentGapDetail), res.Detail)
	assert.Contains(t, res.Detail, "Status: 400")
}

func TestExecuteGapHeuristicOptOut(t *testing.T) {
	srv := serve(t, http.StatusInternalServerError, `{"error":"relation \"public.custom_gpts\" does not exist"}`)
	e := &Executor{BaseURL: srv.URL}
	c := Check{
		ID:             "create_custom_gpt_no_auth",
		Method:         http.MethodPost,
		Accept:         map[int]string{http.StatusUnauthorized: "Correctly returned 401 Unauthorized"},
		NoGapHeuristic: true,
	}

	res := e.Execute(context.Background(), c, Vars{})

	assert.False(t, res.Success)
	assert.Equal(t, types.OutcomeAssertion, res.Outcome)
	assert.Contains(t, res.Detail, "Status: 500")
	assert.Contains(t, res.Detail, "does not exist")
}

func TestExecuteNoteLabelsKnownFailure(t *testing.T) {
	srv := serve(t, http.StatusInternalServerError, `{"error":"invalid token"}`)
	e := &Executor{BaseURL: srv.URL}
	c := Check{ID: "chat_auth", Notes: map[int]string{500: "Server error (expected with dummy token)"}}

	res := e.Execute(context.Background(), c, Vars{})

	assert.False(t, res.Success)
	assert.True(t, strings.HasPrefix(res.Detail, "Server error (expected with dummy token): Status: 500"))
}

func TestExecuteMalformedBody(t *testing.T) {
	srv := serve(t, http.StatusOK, `<html>oops</html>`)
	e := &Executor{BaseURL: srv.URL}

	res := e.Execute(context.Background(), Check{ID: "health_check"}, Vars{})

	assert.False(t, res.Success)
	assert.Equal(t, types.OutcomeProtocol, res.Outcome)
	assert.Contains(t, res.Detail, "malformed response body")
}

func TestExecuteTransportFailure(t *testing.T) {
	srv := serve(t, http.StatusOK, `{}`)
	url := srv.URL
	srv.Close()
	e := &Executor{BaseURL: url}

	res := e.Execute(context.Background(), Check{ID: "health_check"}, Vars{})

	assert.False(t, res.Success)
	assert.Equal(t, types.OutcomeTransport, res.Outcome)
	assert.Zero(t, res.Status)
}

func TestExecuteTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	e := &Executor{BaseURL: srv.URL}
	res := e.Execute(context.Background(), Check{ID: "slow", Timeout: 50 * time.Millisecond}, Vars{})

	assert.False(t, res.Success)
	assert.Equal(t, types.OutcomeTransport, res.Outcome)
	assert.Contains(t, res.Detail, "deadline exceeded")
}

func TestExecuteResolvesParamsAndFallback(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = io.WriteString(w, `{"messages":[]}`)
	}))
	defer srv.Close()

	e := &Executor{BaseURL: srv.URL + "/api/"}
	c := Check{
		ID:       "get_messages",
		Path:     "/chats/{chatId}/messages",
		Params:   []Param{{Name: "chatId", From: "chatId", Fallback: func() string { return "generated" }}},
		Validate: ListField("messages", "messages"),
	}

	res := e.Execute(context.Background(), c, Vars{"chatId": "abc"})
	require.True(t, res.Success, res.Detail)
	assert.Equal(t, "/api/chats/abc/messages", gotPath)
	assert.Equal(t, "Found 0 messages", res.Detail)

	res = e.Execute(context.Background(), c, Vars{})
	require.True(t, res.Success, res.Detail)
	assert.Equal(t, "/api/chats/generated/messages", gotPath)
}

func TestExecuteEscapesPathParams(t *testing.T) {
	var gotPath, gotEscaped, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotEscaped = r.URL.EscapedPath()
		gotQuery = r.URL.RawQuery
		_, _ = io.WriteString(w, `{"messages":[]}`)
	}))
	defer srv.Close()

	e := &Executor{BaseURL: srv.URL}
	c := Check{
		ID:       "get_messages",
		Path:     "/chats/{chatId}/messages",
		Params:   []Param{{Name: "chatId", From: "chatId"}},
		Validate: ListField("messages", "messages"),
	}

	res := e.Execute(context.Background(), c, Vars{"chatId": "a b?x=1#frag"})
	require.True(t, res.Success, res.Detail)
	assert.Equal(t, "/chats/a b?x=1#frag/messages", gotPath)
	assert.Empty(t, gotQuery)

	res = e.Execute(context.Background(), c, Vars{"chatId": "x/y"})
	require.True(t, res.Success, res.Detail)
	assert.Equal(t, "/chats/x%2Fy/messages", gotEscaped)
}

func TestExecuteHeaderFunc(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	e := &Executor{BaseURL: srv.URL}
	key := "first"
	c := Check{
		ID:      "completion",
		Headers: map[string]string{"Authorization": "Bearer static"},
		HeaderFunc: func() (map[string]string, error) {
			return map[string]string{"Authorization": "Bearer " + key}, nil
		},
	}

	res := e.Execute(context.Background(), c, Vars{})
	require.True(t, res.Success, res.Detail)
	assert.Equal(t, "Bearer first", gotAuth)

	key = "second"
	res = e.Execute(context.Background(), c, Vars{})
	require.True(t, res.Success, res.Detail)
	assert.Equal(t, "Bearer second", gotAuth)
	assert.Equal(t, map[string]string{"Authorization": "Bearer static"}, c.Headers)

	c.HeaderFunc = func() (map[string]string, error) { return nil, io.ErrUnexpectedEOF }
	res = e.Execute(context.Background(), c, Vars{})
	assert.False(t, res.Success)
	assert.Equal(t, types.OutcomePrecondition, res.Outcome)
}

func TestExecuteExtractAndRedactedRequest(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{"message":"hello","chatId":"c-1"}`)
	}))
	defer srv.Close()

	e := &Executor{
		BaseURL:  srv.URL,
		Redactor: redact.New(redact.Config{Headers: []string{"Authorization"}, Replacement: "***"}),
	}
	c := Check{
		ID:       "chat_auth",
		Method:   http.MethodPost,
		Path:     "chat",
		Headers:  map[string]string{"Authorization": "Bearer secret"},
		Body:     func(Vars) interface{} { return map[string]string{"message": "hi"} },
		Produces: "chatId",
		Extract:  StringField("chatId"),
	}

	res := e.Execute(context.Background(), c, Vars{})
	require.True(t, res.Success, res.Detail)
	assert.Equal(t, "c-1", res.Value)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Contains(t, res.Request, "Authorization: ***")
	assert.NotContains(t, res.Request, "secret")
}

func TestExecutePrecheckFailure(t *testing.T) {
	e := &Executor{BaseURL: "http://127.0.0.1:1"}
	c := Check{ID: "completion", Precheck: func() error { return io.ErrUnexpectedEOF }}

	res := e.Execute(context.Background(), c, Vars{})

	assert.False(t, res.Success)
	assert.Equal(t, types.OutcomePrecondition, res.Outcome)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "ab...", Truncate("abc", 2))
	assert.Equal(t, "héé...", Truncate("héééé", 3))
}

func TestIsMissingRelation(t *testing.T) {
	assert.True(t, IsMissingRelation(`ERROR: Relation "users" DOES NOT EXIST`))
	assert.False(t, IsMissingRelation(`{"error":"not found"}`))
}

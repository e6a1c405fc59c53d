package check

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/yourorg/apicheck/internal/redact"
	"github.com/yourorg/apicheck/pkg/types"
)

const (
	defaultExcerptLimit = 200
	maxResponseBytes    = 1 << 20

	// EnvironmentGapDetail marks failures caused by an unprovisioned backing
	// store rather than a functional regression.
	EnvironmentGapDetail = "Expected failure: database tables don't exist yet (backing store not provisioned)"
)

// Executor runs a single check. It never retries and never panics outward on
// transport or decoding problems; every outcome becomes a CheckResult.
type Executor struct {
	BaseURL      string
	Client       *http.Client
	Redactor     *redact.Redactor
	Logger       *slog.Logger
	ExcerptLimit int
}

func (e *Executor) Execute(ctx context.Context, c Check, vars Vars) (res types.CheckResult) {
	start := time.Now()
	res = types.CheckResult{ID: c.ID, Name: c.DisplayName()}
	defer func() { res.Duration = time.Since(start) }()

	if c.Precheck != nil {
		if err := c.Precheck(); err != nil {
			return fail(res, types.OutcomePrecondition, err.Error())
		}
	}

	var extra map[string]string
	if c.HeaderFunc != nil {
		h, err := c.HeaderFunc()
		if err != nil {
			return fail(res, types.OutcomePrecondition, err.Error())
		}
		extra = h
	}

	target, err := e.resolveURL(c, vars)
	if err != nil {
		return fail(res, types.OutcomePrecondition, err.Error())
	}

	var payload []byte
	if c.Body != nil {
		payload, err = json.Marshal(c.Body(vars))
		if err != nil {
			return fail(res, types.OutcomePrecondition, fmt.Sprintf("encode request body: %v", err))
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, c.method(), target, bytes.NewReader(payload))
	if err != nil {
		return fail(res, types.OutcomePrecondition, fmt.Sprintf("build request: %v", err))
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range extra {
		req.Header.Set(k, v)
	}
	if e.Redactor != nil {
		res.Request = e.Redactor.Curl(req, string(payload))
	}
	if e.Logger != nil {
		e.Logger.Debug("check request", "id", c.ID, "method", req.Method, "url", target, "timeout", c.timeout())
	}

	resp, err := e.client().Do(req)
	if err != nil {
		return fail(res, types.OutcomeTransport, fmt.Sprintf("Exception: %v", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fail(res, types.OutcomeTransport, fmt.Sprintf("read response: %v", err))
	}
	res.Status = resp.StatusCode
	if e.Logger != nil {
		e.Logger.Debug("check response", "id", c.ID, "status", resp.StatusCode, "bytes", len(data))
	}

	if note, ok := c.Accept[resp.StatusCode]; ok {
		res.Success = true
		res.Outcome = types.OutcomeAccepted
		res.Detail = note
		return res
	}

	text := string(data)
	if !slices.Contains(c.expected(), resp.StatusCode) {
		if !c.NoGapHeuristic && IsMissingRelation(text) {
			return fail(res, types.OutcomeEnvironment, fmt.Sprintf("%s (Status: %d)", EnvironmentGapDetail, resp.StatusCode))
		}
		detail := fmt.Sprintf("Status: %d, Response: %s", resp.StatusCode, e.excerpt(text))
		if note, ok := c.Notes[resp.StatusCode]; ok {
			detail = note + ": " + detail
		}
		return fail(res, types.OutcomeAssertion, detail)
	}

	var body Body
	if err := json.Unmarshal(data, &body); err != nil || body == nil {
		if err == nil {
			err = errors.New("not a JSON object")
		}
		return fail(res, types.OutcomeProtocol, fmt.Sprintf("malformed response body: %v; body: %s", err, e.excerpt(text)))
	}

	if c.Validate != nil {
		detail, err := c.Validate(body)
		if err != nil {
			return fail(res, types.OutcomeAssertion, fmt.Sprintf("%v: %s", err, e.excerpt(text)))
		}
		res.Detail = detail
	}
	if c.Extract != nil {
		if v, ok := c.Extract(body); ok {
			res.Value = v
		}
	}
	res.Success = true
	res.Outcome = types.OutcomePass
	return res
}

func fail(res types.CheckResult, outcome types.Outcome, detail string) types.CheckResult {
	res.Success = false
	res.Outcome = outcome
	res.Detail = detail
	return res
}

func (e *Executor) client() *http.Client {
	if e.Client != nil {
		return e.Client
	}
	return http.DefaultClient
}

func (e *Executor) resolveURL(c Check, vars Vars) (string, error) {
	path := c.Path
	for _, p := range c.Params {
		v := vars[p.From]
		if v == "" && p.Fallback != nil {
			v = p.Fallback()
		}
		if v == "" {
			return "", fmt.Errorf("no value for path parameter %q", p.Name)
		}
		path = strings.ReplaceAll(path, "{"+p.Name+"}", url.PathEscape(v))
	}
	if i := strings.Index(path, "{"); i >= 0 && strings.Contains(path[i:], "}") {
		return "", fmt.Errorf("unresolved path parameter in %q", path)
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path, nil
	}
	if path == "" {
		return strings.TrimRight(e.BaseURL, "/"), nil
	}
	return strings.TrimRight(e.BaseURL, "/") + "/" + strings.TrimLeft(path, "/"), nil
}

func (e *Executor) excerpt(s string) string {
	limit := e.ExcerptLimit
	if limit <= 0 {
		limit = defaultExcerptLimit
	}
	return Truncate(strings.TrimSpace(s), limit)
}

// Truncate cuts s to at most n runes, appending "..." when shortened.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// IsMissingRelation is a heuristic over raw response text: the target's
// database error for an absent table reads `relation "x" does not exist`.
// It depends on the target's error wording and is not a structural
// classification.
func IsMissingRelation(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "relation") && strings.Contains(lower, "does not exist")
}

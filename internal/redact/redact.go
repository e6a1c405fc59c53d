package redact

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/yourorg/apicheck/internal/config"
)

// Config is an alias of config.SanitizeConfig.
type Config = config.SanitizeConfig

// Redactor masks credentials in headers and JSON bodies before they are
// logged or stored.
type Redactor struct {
	headers     map[string]struct{}
	fields      map[string]struct{}
	replacement string
}

func New(cfg Config) *Redactor {
	return &Redactor{
		headers:     toLowerSet(cfg.Headers),
		fields:      toLowerSet(cfg.BodyFields),
		replacement: cfg.Replacement,
	}
}

func toLowerSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, v := range items {
		v = strings.TrimSpace(strings.ToLower(v))
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}

// Headers returns a flattened copy of h with sensitive values replaced.
func (r *Redactor) Headers(h http.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, vs := range h {
		if _, ok := r.headers[strings.ToLower(k)]; ok {
			out[k] = r.replacement
			continue
		}
		out[k] = strings.Join(vs, ", ")
	}
	return out
}

// Body redacts sensitive fields in a JSON body. Non-JSON input is returned as is.
func (r *Redactor) Body(body string) string {
	if strings.TrimSpace(body) == "" {
		return body
	}
	var v interface{}
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return body
	}
	v = r.value(v)
	out, err := json.Marshal(v)
	if err != nil {
		return body
	}
	return string(out)
}

func (r *Redactor) value(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, v2 := range val {
			if _, ok := r.fields[strings.ToLower(k)]; ok {
				val[k] = r.replacement
				continue
			}
			val[k] = r.value(v2)
		}
		return val
	case []interface{}:
		for i := range val {
			val[i] = r.value(val[i])
		}
		return val
	default:
		return val
	}
}

// Curl renders req as a curl command line with credentials masked.
func (r *Redactor) Curl(req *http.Request, body string) string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "curl -X %s", req.Method)
	headers := r.Headers(req.Header)
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " -H '%s: %s'", k, headers[k])
	}
	if body != "" {
		fmt.Fprintf(b, " -d '%s'", r.Body(body))
	}
	fmt.Fprintf(b, " '%s'", req.URL.String())
	return b.String()
}

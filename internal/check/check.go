// Package check describes HTTP conformance checks and executes them one at a
// time against a target API.
package check

import (
	"net/http"
	"time"
)

// DefaultTimeout applies to checks that do not set their own.
const DefaultTimeout = 10 * time.Second

// Body is a decoded JSON object response.
type Body = map[string]interface{}

// Vars holds values extracted by earlier checks, keyed by the producer's
// Produces name.
type Vars map[string]string

// Validator inspects a decoded body and returns the success detail, or an
// error describing the shape mismatch.
type Validator func(Body) (string, error)

// Extractor pulls a value out of a decoded body for later checks.
type Extractor func(Body) (string, bool)

// Param binds a {Name} placeholder in a check path to a value produced by an
// earlier check. Fallback supplies a locally generated placeholder when that
// value is missing.
type Param struct {
	Name     string
	From     string
	Fallback func() string
}

// Check is one declarative request/assertion pair.
type Check struct {
	ID     string
	Name   string
	Method string
	// Path is appended to the executor base URL unless it is absolute.
	Path    string
	Params  []Param
	Body    func(Vars) interface{}
	Headers map[string]string
	// HeaderFunc resolves headers that depend on local state, such as a
	// credential file, at execution time. Its values override Headers.
	HeaderFunc func() (map[string]string, error)

	// Expect lists statuses whose body must satisfy Validate. Defaults to
	// 200 when both Expect and Accept are empty.
	Expect []int
	// Accept lists documented alternative statuses that pass on status
	// alone; the value becomes the result detail.
	Accept map[int]string
	// Notes label known failing statuses in the failure detail.
	Notes map[int]string
	// NoGapHeuristic reports unexpected statuses as plain assertion
	// failures even when the body names a missing relation.
	NoGapHeuristic bool

	Validate Validator
	Produces string
	Extract  Extractor
	Precheck func() error
	Timeout  time.Duration
}

// DisplayName falls back to the ID when Name is empty.
func (c Check) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

func (c Check) method() string {
	if c.Method == "" {
		return http.MethodGet
	}
	return c.Method
}

func (c Check) expected() []int {
	if len(c.Expect) == 0 && len(c.Accept) == 0 {
		return []int{http.StatusOK}
	}
	return c.Expect
}

func (c Check) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

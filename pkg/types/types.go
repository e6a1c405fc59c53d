package types

import "time"

// Outcome classifies why a check passed or failed.
type Outcome string

const (
	OutcomePass         Outcome = "pass"
	OutcomeAccepted     Outcome = "accepted"
	OutcomeTransport    Outcome = "transport"
	OutcomeProtocol     Outcome = "protocol"
	OutcomeEnvironment  Outcome = "environment"
	OutcomeAssertion    Outcome = "assertion"
	OutcomePrecondition Outcome = "precondition"
	OutcomePanic        Outcome = "panic"
)

// CheckResult is the outcome of running one check.
type CheckResult struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Success  bool          `json:"success"`
	Outcome  Outcome       `json:"outcome"`
	Status   int           `json:"status,omitempty"`
	Detail   string        `json:"detail,omitempty"`
	Value    string        `json:"value,omitempty"`
	Request  string        `json:"request,omitempty"`
	Duration time.Duration `json:"duration"`
}

// RunReport is the ordered set of results of one invocation.
type RunReport struct {
	ID        string        `json:"id,omitempty"`
	Suite     string        `json:"suite"`
	BaseURL   string        `json:"base_url"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Results   []CheckResult `json:"results"`
}

// Passed counts successful results.
func (r *RunReport) Passed() int {
	n := 0
	for _, res := range r.Results {
		if res.Success {
			n++
		}
	}
	return n
}

// Total is the number of results.
func (r *RunReport) Total() int {
	return len(r.Results)
}

// Ratio returns Passed/Total in [0,1]; an empty report yields 0.
func (r *RunReport) Ratio() float64 {
	if len(r.Results) == 0 {
		return 0
	}
	return float64(r.Passed()) / float64(len(r.Results))
}

// AllPassed reports whether every check succeeded. An empty report never passes.
func (r *RunReport) AllPassed() bool {
	return len(r.Results) > 0 && r.Passed() == r.Total()
}

// EnvironmentGaps counts failures attributed to an unprovisioned backing store.
func (r *RunReport) EnvironmentGaps() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == OutcomeEnvironment {
			n++
		}
	}
	return n
}

// RunSummary is the stored headline of a run, without per-check results.
type RunSummary struct {
	ID        string        `json:"id"`
	Suite     string        `json:"suite"`
	BaseURL   string        `json:"base_url"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Passed    int           `json:"passed"`
	Total     int           `json:"total"`
}

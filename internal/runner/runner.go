package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/apicheck/internal/check"
	"github.com/yourorg/apicheck/pkg/types"
)

// Executor runs one check.
type Executor interface {
	Execute(ctx context.Context, c check.Check, vars check.Vars) types.CheckResult
}

// ResultFunc observes each result as soon as it is available.
type ResultFunc func(types.CheckResult)

// Runner executes a check table strictly in order on the calling goroutine.
// Later checks may read values extracted by earlier ones, so there is no
// parallelism and no early exit.
type Runner struct {
	Exec     Executor
	BaseURL  string
	Logger   *slog.Logger
	OnResult ResultFunc
}

// Run lints the table, then produces exactly one result per check in
// declaration order. Definition errors are returned before any request is
// sent; check failures never are.
func (r *Runner) Run(ctx context.Context, suite string, checks []check.Check) (*types.RunReport, error) {
	if r.Exec == nil {
		return nil, fmt.Errorf("runner has no executor")
	}
	if err := check.Lint(checks); err != nil {
		return nil, fmt.Errorf("suite %s: %w", suite, err)
	}

	rep := &types.RunReport{
		Suite:     suite,
		BaseURL:   r.BaseURL,
		StartedAt: time.Now().UTC(),
		Results:   make([]types.CheckResult, 0, len(checks)),
	}
	vars := check.Vars{}
	for i, c := range checks {
		if r.Logger != nil {
			r.Logger.Debug("running check", "seq", i+1, "id", c.ID)
		}
		res := r.runOne(ctx, c, vars)
		if res.Success && c.Produces != "" && res.Value != "" {
			vars[c.Produces] = res.Value
		}
		rep.Results = append(rep.Results, res)
		if r.Logger != nil {
			r.Logger.Info("check finished", "id", res.ID, "success", res.Success, "outcome", res.Outcome, "status", res.Status, "duration", res.Duration)
		}
		if r.OnResult != nil {
			r.OnResult(res)
		}
	}
	rep.Duration = time.Since(rep.StartedAt)
	return rep, nil
}

func (r *Runner) runOne(ctx context.Context, c check.Check, vars check.Vars) (res types.CheckResult) {
	defer func() {
		if p := recover(); p != nil {
			res = types.CheckResult{
				ID:      c.ID,
				Name:    c.DisplayName(),
				Outcome: types.OutcomePanic,
				Detail:  fmt.Sprintf("Exception: %v", p),
			}
		}
	}()
	if err := ctx.Err(); err != nil {
		return types.CheckResult{
			ID:      c.ID,
			Name:    c.DisplayName(),
			Outcome: types.OutcomeTransport,
			Detail:  fmt.Sprintf("Exception: %v", err),
		}
	}
	// vars is shared across the run; pass a snapshot so a check cannot
	// mutate values produced for later checks.
	snapshot := make(check.Vars, len(vars))
	for k, v := range vars {
		snapshot[k] = v
	}
	res = r.Exec.Execute(ctx, c, snapshot)
	res.ID = c.ID
	if res.Name == "" {
		res.Name = c.DisplayName()
	}
	return res
}

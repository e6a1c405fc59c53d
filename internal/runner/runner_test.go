package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/apicheck/internal/check"
	"github.com/yourorg/apicheck/pkg/types"
)

type fakeExec struct {
	results map[string]types.CheckResult
	panics  map[string]bool
	seen    []string
	vars    []check.Vars
}

func (f *fakeExec) Execute(_ context.Context, c check.Check, vars check.Vars) types.CheckResult {
	f.seen = append(f.seen, c.ID)
	f.vars = append(f.vars, vars)
	if f.panics[c.ID] {
		panic("boom")
	}
	if res, ok := f.results[c.ID]; ok {
		return res
	}
	return types.CheckResult{Success: true, Outcome: types.OutcomePass}
}

func table() []check.Check {
	return []check.Check{
		{ID: "health_check"},
		{ID: "chat_guest", Produces: "chatId", Extract: check.StringField("chatId")},
		{ID: "explodes"},
		{ID: "get_messages", Path: "/chats/{chatId}/messages", Params: []check.Param{{Name: "chatId", From: "chatId"}}},
	}
}

func TestRunOrderAndNoEarlyExit(t *testing.T) {
	exec := &fakeExec{
		results: map[string]types.CheckResult{
			"health_check": {Success: false, Outcome: types.OutcomeAssertion, Detail: "Status: 500"},
			"chat_guest":   {Success: true, Outcome: types.OutcomePass, Value: "c-42"},
		},
		panics: map[string]bool{"explodes": true},
	}
	var streamed []string
	r := &Runner{Exec: exec, OnResult: func(res types.CheckResult) { streamed = append(streamed, res.ID) }}

	rep, err := r.Run(context.Background(), "backend", table())
	require.NoError(t, err)

	ids := make([]string, 0, len(rep.Results))
	for _, res := range rep.Results {
		ids = append(ids, res.ID)
	}
	assert.Equal(t, []string{"health_check", "chat_guest", "explodes", "get_messages"}, ids)
	assert.Equal(t, ids, exec.seen)
	assert.Equal(t, ids, streamed)

	assert.Equal(t, types.OutcomePanic, rep.Results[2].Outcome)
	assert.False(t, rep.Results[2].Success)
	assert.Contains(t, rep.Results[2].Detail, "boom")

	assert.Equal(t, "c-42", exec.vars[3]["chatId"])
	assert.Empty(t, exec.vars[0])

	assert.Equal(t, 2, rep.Passed())
	assert.Equal(t, 4, rep.Total())
	assert.False(t, rep.AllPassed())
}

func TestRunFailedProducerLeavesValueUnset(t *testing.T) {
	exec := &fakeExec{results: map[string]types.CheckResult{
		"chat_guest": {Success: false, Outcome: types.OutcomeEnvironment, Value: "ignored"},
	}}
	r := &Runner{Exec: exec}

	_, err := r.Run(context.Background(), "backend", table())
	require.NoError(t, err)
	_, ok := exec.vars[3]["chatId"]
	assert.False(t, ok)
}

func TestRunRejectsBadTable(t *testing.T) {
	exec := &fakeExec{}
	r := &Runner{Exec: exec}

	_, err := r.Run(context.Background(), "backend", []check.Check{{ID: "a"}, {ID: "a"}})
	require.Error(t, err)
	assert.Empty(t, exec.seen)
}

func TestRunCancelledContextStillReportsEveryCheck(t *testing.T) {
	exec := &fakeExec{}
	r := &Runner{Exec: exec}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := r.Run(ctx, "backend", table())
	require.NoError(t, err)
	assert.Len(t, rep.Results, 4)
	assert.Empty(t, exec.seen)
	for _, res := range rep.Results {
		assert.Equal(t, types.OutcomeTransport, res.Outcome)
	}
}

func TestRunIdempotentOutcomes(t *testing.T) {
	exec := &fakeExec{results: map[string]types.CheckResult{
		"health_check": {Success: true, Outcome: types.OutcomePass},
		"explodes":     {Success: false, Outcome: types.OutcomeAssertion},
	}}
	r := &Runner{Exec: exec}

	first, err := r.Run(context.Background(), "backend", table())
	require.NoError(t, err)
	second, err := r.Run(context.Background(), "backend", table())
	require.NoError(t, err)

	for i := range first.Results {
		assert.Equal(t, first.Results[i].Success, second.Results[i].Success)
		assert.Equal(t, first.Results[i].Outcome, second.Results[i].Outcome)
	}
}

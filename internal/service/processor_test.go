package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailpilot/internal/gate"
	"mailpilot/internal/matcher"
	"mailpilot/internal/model"
	"mailpilot/pkg/mq"
)

type processorFixture struct {
	exec      *executorFixture
	rules     *fakeRules
	deduper   *fakeDeduper
	processor *Processor
}

func newProcessorFixture(rules ...model.Rule) *processorFixture {
	exec := newExecutorFixture(nil)
	f := &processorFixture{
		exec:    exec,
		rules:   &fakeRules{rules: rules},
		deduper: newFakeDeduper(),
	}
	queue := NewApprovalQueue(exec.tx, exec.approvals, exec.executions, exec.events, zap.NewNop())
	f.processor = NewProcessor(f.rules, matcher.New(nil, nil, zap.NewNop()), exec.executor, queue, f.deduper, zap.NewNop())
	return f
}

func bossRule(automate bool) model.Rule {
	return model.Rule{
		ID:       "boss",
		Name:     "Boss",
		Type:     model.RuleTypeStatic,
		Enabled:  true,
		Automate: automate,
		From:     "boss@co.com",
		Actions:  []model.Action{{ID: "a1", Type: model.ActionLabel, Params: map[string]string{model.ParamLabel: "Boss"}}},
	}
}

func bossEmail() model.Email {
	return model.Email{ID: 1, UserID: 7, From: "boss@co.com", Subject: "Q"}
}

func TestProcess_AutomatedRuleExecutesNow(t *testing.T) {
	f := newProcessorFixture(bossRule(true))

	out, err := f.processor.Process(context.Background(), bossEmail())
	require.NoError(t, err)
	require.NotNil(t, out.Rule)
	assert.Equal(t, "boss", out.Rule.ID)
	assert.Equal(t, gate.ExecuteNow, out.Decision)
	assert.Equal(t, 1, out.Execution.Executed)
	assert.Equal(t, []string{mq.RoutingActionExecute}, f.exec.events.keys())
}

func TestProcess_ManualRuleQueuesForApproval(t *testing.T) {
	f := newProcessorFixture(bossRule(false))

	out, err := f.processor.Process(context.Background(), bossEmail())
	require.NoError(t, err)
	require.NotNil(t, out.Rule)
	assert.Equal(t, gate.QueueForApproval, out.Decision)
	assert.NotEmpty(t, out.ApprovalID)
	assert.Equal(t, []string{mq.RoutingApprovalQueued}, f.exec.events.keys())
}

func TestProcess_NoMatch(t *testing.T) {
	f := newProcessorFixture(bossRule(true))
	email := bossEmail()
	email.From = "someone@else.com"

	out, err := f.processor.Process(context.Background(), email)
	require.NoError(t, err)
	assert.Nil(t, out.Rule)
	assert.Empty(t, f.exec.events.events)
}

func TestProcess_DuplicateDelivery(t *testing.T) {
	f := newProcessorFixture(bossRule(true))

	_, err := f.processor.Process(context.Background(), bossEmail())
	require.NoError(t, err)

	out, err := f.processor.Process(context.Background(), bossEmail())
	require.NoError(t, err)
	assert.True(t, out.Duplicate)
	assert.Len(t, f.exec.events.events, 1)
}

// openDeduper admits every delivery, as the redis deduper does when redis is down.
type openDeduper struct{}

func (openDeduper) AcquireOnce(context.Context, string, string) bool { return true }
func (openDeduper) Release(context.Context, string, string) {}

func TestProcess_RedeliveryQueuesApprovalOnceWithoutDedup(t *testing.T) {
	f := newProcessorFixture(bossRule(false))
	f.processor.deduper = openDeduper{}

	first, err := f.processor.Process(context.Background(), bossEmail())
	require.NoError(t, err)
	assert.NotEmpty(t, first.ApprovalID)

	second, err := f.processor.Process(context.Background(), bossEmail())
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Empty(t, second.ApprovalID)
	assert.Len(t, f.exec.approvals.items, 1)
	assert.Equal(t, []string{mq.RoutingApprovalQueued}, f.exec.events.keys())
}

func TestProcess_ExecutionFailureReleasesDedup(t *testing.T) {
	f := newProcessorFixture(bossRule(true))
	f.exec.events.err = errors.New("outbox down")

	_, err := f.processor.Process(context.Background(), bossEmail())
	require.Error(t, err)
	assert.Equal(t, []string{"rule:boss:1"}, f.deduper.released)
}

func TestProcess_RuleLoadFailure(t *testing.T) {
	f := newProcessorFixture()
	boom := errors.New("db down")
	f.rules.err = boom

	_, err := f.processor.Process(context.Background(), bossEmail())
	assert.ErrorIs(t, err, boom)
}

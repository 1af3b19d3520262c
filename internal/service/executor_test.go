package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqcontracts "mailpilot/contracts/mq"
	"mailpilot/internal/apperr"
	"mailpilot/internal/draft"
	"mailpilot/internal/model"
	"mailpilot/pkg/mq"
)

type executorFixture struct {
	tx         *fakeTx
	events     *fakeEvents
	executions *fakeExecutions
	approvals  *fakeApprovals
	executor   *Executor
}

func newExecutorFixture(drafter *KnowledgeDrafter) *executorFixture {
	f := &executorFixture{
		tx:         &fakeTx{},
		events:     &fakeEvents{},
		executions: newFakeExecutions(),
		approvals:  newFakeApprovals(),
	}
	queue := NewApprovalQueue(f.tx, f.approvals, f.executions, f.events, zap.NewNop())
	f.executor = NewExecutor(f.tx, f.executions, f.events, queue, drafter, zap.NewNop())
	return f
}

func refundEmail() model.Email {
	return model.Email{
		ID:       42,
		UserID:   7,
		ThreadID: "t-1",
		From:     "customer@shop.com",
		To:       "support@acme.com",
		Subject:  "Refund?",
		Body:     "Can I return my order?",
	}
}

func supportRule(actions ...model.Action) model.Rule {
	return model.Rule{ID: "r1", Name: "Support", Type: model.RuleTypeStatic, Enabled: true, Automate: true, Actions: actions}
}

func TestExecutor_WritesActionEvents(t *testing.T) {
	f := newExecutorFixture(nil)
	rule := supportRule(
		model.Action{ID: "a1", Type: model.ActionLabel, Params: map[string]string{model.ParamLabel: "Support"}},
		model.Action{ID: "a2", Type: model.ActionArchive},
	)

	out, err := f.executor.Execute(context.Background(), rule, rule.Actions, refundEmail())
	require.NoError(t, err)
	assert.Equal(t, 2, out.Executed)
	assert.False(t, out.Duplicate)

	require.Len(t, f.events.events, 2)
	first := f.events.events[0].payload.(mqcontracts.ActionExecutePayload)
	assert.Equal(t, mq.RoutingActionExecute, f.events.events[0].routingKey)
	assert.Equal(t, "42", f.events.events[0].aggregateID)
	assert.Equal(t, "LABEL", first.ActionType)
	assert.Equal(t, "Support", first.Params[model.ParamLabel])
	assert.Equal(t, ExecutionKey("r1", 42), first.ExecutionKey)
	assert.Equal(t, 1, f.events.events[1].payload.(mqcontracts.ActionExecutePayload).Position)
}

func TestExecutor_AtMostOncePerRuleAndEmail(t *testing.T) {
	f := newExecutorFixture(nil)
	rule := supportRule(model.Action{ID: "a1", Type: model.ActionArchive})

	_, err := f.executor.Execute(context.Background(), rule, rule.Actions, refundEmail())
	require.NoError(t, err)

	out, err := f.executor.Execute(context.Background(), rule, rule.Actions, refundEmail())
	require.NoError(t, err)
	assert.True(t, out.Duplicate)
	assert.Len(t, f.events.events, 1)
}

func TestExecutor_EventWriteFailure(t *testing.T) {
	f := newExecutorFixture(nil)
	f.events.err = errors.New("outbox down")
	rule := supportRule(model.Action{ID: "a1", Type: model.ActionArchive})

	_, err := f.executor.Execute(context.Background(), rule, rule.Actions, refundEmail())
	require.Error(t, err)
}

func newDrafter(knowledge fakeKnowledge, composer DraftComposer) *KnowledgeDrafter {
	return NewKnowledgeDrafter(knowledge, fakeThreads{}, fakeProfiles{}, fakeHistory{}, composer, zap.NewNop())
}

func TestExecutor_GroundedDraft(t *testing.T) {
	var got draft.Request
	composer := composerFunc(func(_ context.Context, req draft.Request) draft.Result {
		got = req
		return draft.Result{Reply: "Refunds are accepted within 30 days."}
	})
	knowledge := fakeKnowledge{entries: []model.KnowledgeEntry{{Title: "Refunds", Content: "Refund policy: 30 days"}}}
	f := newExecutorFixture(newDrafter(knowledge, composer))

	rule := supportRule(model.Action{ID: "d1", Type: model.ActionDraftEmail, Params: map[string]string{model.ParamContent: "Be warm."}})
	out, err := f.executor.Execute(context.Background(), rule, rule.Actions, refundEmail())
	require.NoError(t, err)
	assert.Equal(t, 1, out.Drafted)
	assert.Empty(t, out.ApprovalID)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, mq.RoutingDraftCreated, f.events.events[0].routingKey)
	payload := f.events.events[0].payload.(mqcontracts.DraftCreatedPayload)
	assert.Equal(t, "Refunds are accepted within 30 days.", payload.Reply)
	assert.Equal(t, "customer@shop.com", payload.To)

	assert.Equal(t, "Refunds:\nRefund policy: 30 days", got.KnowledgeBaseContent)
	assert.Equal(t, "Be warm.", got.Instructions)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "Can I return my order?", got.Messages[0].Body)
	assert.Equal(t, "Support lead", got.User.About)
}

func TestExecutor_DraftFailureFallsBackToApproval(t *testing.T) {
	composer := composerFunc(func(context.Context, draft.Request) draft.Result {
		return draft.Result{Err: apperr.NewDraftGeneration(errors.New("schema mismatch"))}
	})
	knowledge := fakeKnowledge{entries: []model.KnowledgeEntry{{Content: "Refund policy: 30 days"}}}
	f := newExecutorFixture(newDrafter(knowledge, composer))

	rule := supportRule(
		model.Action{ID: "a1", Type: model.ActionLabel, Params: map[string]string{model.ParamLabel: "Support"}},
		model.Action{ID: "d1", Type: model.ActionDraftEmail},
	)
	out, err := f.executor.Execute(context.Background(), rule, rule.Actions, refundEmail())
	require.NoError(t, err)
	assert.Equal(t, 1, out.Executed)
	assert.Equal(t, 0, out.Drafted)
	require.NotEmpty(t, out.ApprovalID)

	assert.Equal(t, []string{mq.RoutingActionExecute, mq.RoutingApprovalQueued}, f.events.keys())
	approval := f.approvals.items[out.ApprovalID]
	require.NotNil(t, approval)
	require.Len(t, approval.Actions, 1)
	assert.Equal(t, model.ActionDraftEmail, approval.Actions[0].Type)
	assert.Equal(t, reasonDraftFailed, approval.Reason)
}

func TestExecutor_DraftWithoutKnowledgeRunsAsPlainAction(t *testing.T) {
	called := false
	composer := composerFunc(func(context.Context, draft.Request) draft.Result {
		called = true
		return draft.Result{Reply: "x"}
	})
	f := newExecutorFixture(newDrafter(fakeKnowledge{}, composer))

	rule := supportRule(model.Action{ID: "d1", Type: model.ActionDraftEmail, Params: map[string]string{model.ParamContent: "Thanks!"}})
	out, err := f.executor.Execute(context.Background(), rule, rule.Actions, refundEmail())
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, 1, out.Executed)
	assert.Equal(t, []string{mq.RoutingActionExecute}, f.events.keys())
}

func TestKnowledgeDrafter_ContextErrors(t *testing.T) {
	composer := composerFunc(func(context.Context, draft.Request) draft.Result {
		return draft.Result{Reply: "ok"}
	})
	boom := errors.New("db down")

	t.Run("knowledge lookup fails", func(t *testing.T) {
		d := newDrafter(fakeKnowledge{err: boom}, composer)
		out := d.Draft(context.Background(), refundEmail(), model.Action{Type: model.ActionDraftEmail})
		assert.True(t, out.Grounded)
		assert.ErrorIs(t, out.Err, boom)
	})

	t.Run("thread lookup fails", func(t *testing.T) {
		d := NewKnowledgeDrafter(fakeKnowledge{entries: []model.KnowledgeEntry{{Content: "k"}}},
			fakeThreads{err: boom}, fakeProfiles{}, fakeHistory{}, composer, zap.NewNop())
		out := d.Draft(context.Background(), refundEmail(), model.Action{Type: model.ActionDraftEmail})
		assert.ErrorIs(t, out.Err, boom)
	})

	t.Run("history failure is tolerated", func(t *testing.T) {
		d := NewKnowledgeDrafter(fakeKnowledge{entries: []model.KnowledgeEntry{{Content: "k"}}},
			fakeThreads{}, fakeProfiles{}, fakeHistory{err: boom}, composer, zap.NewNop())
		out := d.Draft(context.Background(), refundEmail(), model.Action{Type: model.ActionDraftEmail})
		require.NoError(t, out.Err)
		assert.Equal(t, "ok", out.Reply)
	})
}

func TestKnowledgeDrafter_UsesStoredThread(t *testing.T) {
	var got draft.Request
	composer := composerFunc(func(_ context.Context, req draft.Request) draft.Result {
		got = req
		return draft.Result{Reply: "ok"}
	})
	thread := []model.ThreadMessage{
		{From: "customer@shop.com", To: "support@acme.com", Body: "first"},
		{From: "support@acme.com", To: "customer@shop.com", Body: "second"},
	}
	d := NewKnowledgeDrafter(fakeKnowledge{entries: []model.KnowledgeEntry{{Content: "k"}}},
		fakeThreads{messages: thread}, fakeProfiles{}, fakeHistory{summary: "Bought twice."}, composer, zap.NewNop())

	out := d.Draft(context.Background(), refundEmail(), model.Action{Type: model.ActionDraftEmail})
	require.NoError(t, out.Err)
	assert.Equal(t, thread, got.Messages)
	assert.Equal(t, "Bought twice.", got.EmailHistorySummary)
	assert.Equal(t, "user7@acme.com", got.User.Email)
}

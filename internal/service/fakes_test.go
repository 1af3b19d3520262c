package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"mailpilot/internal/apperr"
	"mailpilot/internal/draft"
	"mailpilot/internal/model"
)

type fakeTx struct{ calls int }

func (f *fakeTx) InTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	f.calls++
	return fn(nil)
}

type recordedEvent struct {
	aggregateType string
	aggregateID   string
	routingKey    string
	payload       any
}

type fakeEvents struct {
	events []recordedEvent
	err    error
}

func (f *fakeEvents) Enqueue(_ context.Context, _ pgx.Tx, aggregateType, aggregateID, routingKey string, payload any) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, recordedEvent{aggregateType, aggregateID, routingKey, payload})
	return nil
}

func (f *fakeEvents) keys() []string {
	keys := make([]string, len(f.events))
	for i, e := range f.events {
		keys[i] = e.routingKey
	}
	return keys
}

type fakeExecutions struct {
	claimed map[string]bool
}

func newFakeExecutions() *fakeExecutions {
	return &fakeExecutions{claimed: map[string]bool{}}
}

func (f *fakeExecutions) RecordTx(_ context.Context, _ pgx.Tx, key, _ string, _ int) (bool, error) {
	if f.claimed[key] {
		return false, nil
	}
	f.claimed[key] = true
	return true, nil
}

type fakeApprovals struct {
	items map[string]*model.Approval
	seq   int
}

func newFakeApprovals() *fakeApprovals {
	return &fakeApprovals{items: map[string]*model.Approval{}}
}

func (f *fakeApprovals) CreateTx(_ context.Context, _ pgx.Tx, a *model.Approval) error {
	f.seq++
	a.ID = "ap-" + strconv.Itoa(f.seq)
	a.Status = model.ApprovalPending
	a.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	stored := *a
	f.items[a.ID] = &stored
	return nil
}

func (f *fakeApprovals) Get(_ context.Context, userID int, id string) (*model.Approval, error) {
	a, ok := f.items[id]
	if !ok || a.UserID != userID {
		return nil, apperr.NewNotFound("approval", id)
	}
	copied := *a
	return &copied, nil
}

func (f *fakeApprovals) List(_ context.Context, userID int, status model.ApprovalStatus) ([]model.Approval, error) {
	var out []model.Approval
	for i := 1; i <= f.seq; i++ {
		a, ok := f.items["ap-"+strconv.Itoa(i)]
		if !ok || a.UserID != userID {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeApprovals) DecideTx(_ context.Context, _ pgx.Tx, id string, status model.ApprovalStatus) (bool, error) {
	a, ok := f.items[id]
	if !ok || a.Status != model.ApprovalPending {
		return false, nil
	}
	a.Status = status
	return true, nil
}

type fakeRules struct {
	rules []model.Rule
	err   error
}

func (f *fakeRules) ListEnabledRules(context.Context, int) ([]model.Rule, error) {
	return f.rules, f.err
}

type fakeDeduper struct {
	seen     map[string]bool
	released []string
}

func newFakeDeduper() *fakeDeduper {
	return &fakeDeduper{seen: map[string]bool{}}
}

func (f *fakeDeduper) AcquireOnce(_ context.Context, handler, subject string) bool {
	key := handler + ":" + subject
	if f.seen[key] {
		return false
	}
	f.seen[key] = true
	return true
}

func (f *fakeDeduper) Release(_ context.Context, handler, subject string) {
	key := handler + ":" + subject
	delete(f.seen, key)
	f.released = append(f.released, key)
}

type fakeKnowledge struct {
	entries []model.KnowledgeEntry
	err     error
}

func (f fakeKnowledge) ListByUser(context.Context, int) ([]model.KnowledgeEntry, error) {
	return f.entries, f.err
}

type fakeThreads struct {
	messages []model.ThreadMessage
	err      error
}

func (f fakeThreads) ListThread(context.Context, int, string) ([]model.ThreadMessage, error) {
	return f.messages, f.err
}

type fakeProfiles struct{}

func (fakeProfiles) GetProfile(_ context.Context, userID int) (model.UserProfile, error) {
	return model.UserProfile{ID: userID, Email: fmt.Sprintf("user%d@acme.com", userID), About: "Support lead"}, nil
}

type fakeHistory struct {
	summary string
	err     error
}

func (f fakeHistory) Summary(context.Context, model.Email) (string, error) {
	return f.summary, f.err
}

type composerFunc func(ctx context.Context, req draft.Request) draft.Result

func (f composerFunc) Compose(ctx context.Context, req draft.Request) draft.Result {
	return f(ctx, req)
}

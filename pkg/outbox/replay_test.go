package outbox

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReplayStore struct {
	events map[int64]*Event
	failed []*Event
	sent   []int64
	reset  []int64
}

func (s *fakeReplayStore) GetEventByID(_ context.Context, id int64) (*Event, error) {
	e, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrEventNotFound, id)
	}
	return e, nil
}

func (s *fakeReplayStore) GetFailedEvents(_ context.Context, limit int) ([]*Event, error) {
	if len(s.failed) > limit {
		return s.failed[:limit], nil
	}
	return s.failed, nil
}

func (s *fakeReplayStore) MarkAsSent(_ context.Context, id int64) error {
	s.sent = append(s.sent, id)
	return nil
}

func (s *fakeReplayStore) ResetEvent(_ context.Context, id int64) error {
	s.reset = append(s.reset, id)
	return nil
}

func TestReplayEvent(t *testing.T) {
	store := &fakeReplayStore{events: map[int64]*Event{
		7: {ID: 7, RoutingKey: "approval.queued", TraceID: "t-7"},
	}}
	pub := &fakePublisher{}

	svc := NewReplayService(store, pub, zap.NewNop())
	require.NoError(t, svc.ReplayEvent(context.Background(), 7))

	assert.Equal(t, []int64{7}, store.sent)
	assert.Equal(t, []string{"t-7"}, pub.traces)
}

func TestReplayEvent_NotFound(t *testing.T) {
	svc := NewReplayService(&fakeReplayStore{}, &fakePublisher{}, zap.NewNop())
	err := svc.ReplayEvent(context.Background(), 1)
	assert.True(t, errors.Is(err, ErrEventNotFound))
}

func TestReplayEvent_PublishFailureResetsEvent(t *testing.T) {
	store := &fakeReplayStore{events: map[int64]*Event{
		3: {ID: 3, RoutingKey: "action.execute"},
	}}
	pub := &fakePublisher{failKeys: map[string]bool{"action.execute": true}}

	svc := NewReplayService(store, pub, zap.NewNop())
	err := svc.ReplayEvent(context.Background(), 3)

	require.Error(t, err)
	assert.Equal(t, []int64{3}, store.reset)
	assert.Empty(t, store.sent)
}

func TestReplayFailedEvents_CountsSuccesses(t *testing.T) {
	ok := &Event{ID: 1, RoutingKey: "action.execute"}
	bad := &Event{ID: 2, RoutingKey: "draft.created"}
	store := &fakeReplayStore{
		events: map[int64]*Event{1: ok, 2: bad},
		failed: []*Event{ok, bad},
	}
	pub := &fakePublisher{failKeys: map[string]bool{"draft.created": true}}

	svc := NewReplayService(store, pub, zap.NewNop())
	n, err := svc.ReplayFailedEvents(context.Background(), 10)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{1}, store.sent)
	assert.Equal(t, []int64{2}, store.reset)
}

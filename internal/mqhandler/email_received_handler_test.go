package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqcontracts "mailpilot/contracts/mq"
	"mailpilot/internal/model"
	"mailpilot/internal/service"
	"mailpilot/pkg/mq"
	"mailpilot/pkg/trace"
)

type fakeStore struct {
	saved []model.Email
	err   error
}

func (f *fakeStore) Save(_ context.Context, e model.Email) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, e)
	return nil
}

type fakeProcessor struct {
	got     []model.Email
	traceID string
	err     error
}

func (f *fakeProcessor) Process(ctx context.Context, e model.Email) (service.ProcessOutcome, error) {
	f.got = append(f.got, e)
	f.traceID = trace.FromContext(ctx)
	return service.ProcessOutcome{}, f.err
}

type fakeRetries struct {
	counts map[string]int64
	resets int
}

func (f *fakeRetries) IncrementAndGet(_ context.Context, key string) (int64, error) {
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeRetries) Reset(_ context.Context, key string) error {
	f.resets++
	delete(f.counts, key)
	return nil
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func payload(t *testing.T, p mqcontracts.EmailReceivedPayload) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return raw
}

func TestHandle_ProcessesEmail(t *testing.T) {
	store, proc, retries := &fakeStore{}, &fakeProcessor{}, &fakeRetries{}
	h := NewEmailReceivedHandler(store, proc, retries, 3, zap.NewNop())

	raw := payload(t, mqcontracts.EmailReceivedPayload{
		EmailID: 1, UserID: 7, ThreadID: "t", From: "boss@co.com", Subject: "Q",
		IsThreadFollowUp: true, TraceID: "trace-1",
	})
	require.NoError(t, h.Handle(context.Background(), raw))

	require.Len(t, store.saved, 1)
	require.Len(t, proc.got, 1)
	assert.Equal(t, "boss@co.com", proc.got[0].From)
	assert.True(t, proc.got[0].IsThreadFollowUp)
	assert.Equal(t, "trace-1", proc.traceID)
	assert.Equal(t, 1, retries.resets)
}

func TestHandle_GeneratesTraceID(t *testing.T) {
	proc := &fakeProcessor{}
	h := NewEmailReceivedHandler(&fakeStore{}, proc, nil, 3, zap.NewNop())

	require.NoError(t, h.Handle(context.Background(), payload(t, mqcontracts.EmailReceivedPayload{EmailID: 1, UserID: 7})))
	assert.NotEmpty(t, proc.traceID)
}

func TestHandle_BadPayloadIsPermanent(t *testing.T) {
	h := NewEmailReceivedHandler(&fakeStore{}, &fakeProcessor{}, nil, 3, zap.NewNop())

	err := h.Handle(context.Background(), json.RawMessage(`{not json`))
	assert.True(t, mq.IsPermanent(err))

	err = h.Handle(context.Background(), payload(t, mqcontracts.EmailReceivedPayload{Subject: "no ids"}))
	assert.True(t, mq.IsPermanent(err))
}

func TestHandle_RetryableErrorRequeuedUntilLimit(t *testing.T) {
	proc := &fakeProcessor{err: timeoutErr{}}
	retries := &fakeRetries{}
	h := NewEmailReceivedHandler(&fakeStore{}, proc, retries, 2, zap.NewNop())
	raw := payload(t, mqcontracts.EmailReceivedPayload{EmailID: 1, UserID: 7})

	for i := 0; i < 2; i++ {
		err := h.Handle(context.Background(), raw)
		require.Error(t, err)
		assert.False(t, mq.IsPermanent(err), "attempt %d", i+1)
	}

	err := h.Handle(context.Background(), raw)
	assert.True(t, mq.IsPermanent(err))
}

func TestHandle_NonRetryableErrorIsPermanent(t *testing.T) {
	proc := &fakeProcessor{err: errors.New("rule data broken")}
	h := NewEmailReceivedHandler(&fakeStore{}, proc, &fakeRetries{}, 3, zap.NewNop())

	err := h.Handle(context.Background(), payload(t, mqcontracts.EmailReceivedPayload{EmailID: 1, UserID: 7}))
	assert.True(t, mq.IsPermanent(err))
}

func TestHandle_CanceledContextRequeues(t *testing.T) {
	proc := &fakeProcessor{err: context.Canceled}
	h := NewEmailReceivedHandler(&fakeStore{}, proc, &fakeRetries{}, 3, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.Handle(ctx, payload(t, mqcontracts.EmailReceivedPayload{EmailID: 1, UserID: 7}))
	require.Error(t, err)
	assert.False(t, mq.IsPermanent(err))
}

func TestHandle_SaveFailure(t *testing.T) {
	proc := &fakeProcessor{}
	h := NewEmailReceivedHandler(&fakeStore{err: timeoutErr{}}, proc, &fakeRetries{}, 3, zap.NewNop())

	err := h.Handle(context.Background(), payload(t, mqcontracts.EmailReceivedPayload{EmailID: 1, UserID: 7}))
	require.Error(t, err)
	assert.False(t, mq.IsPermanent(err))
	assert.Empty(t, proc.got)
}

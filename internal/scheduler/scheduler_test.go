package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadence/internal/jobs"
)

type fakeEnqueuer struct {
	requests []jobs.Request
	err      error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, req jobs.Request) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.requests = append(f.requests, req)
	return "job-id", nil
}

func TestEnqueueSyncsFansOut(t *testing.T) {
	queue := &fakeEnqueuer{}
	s := New(queue, "*/15 * * * *", []string{"mail", "calendar"}, []string{"u1", "u2"}, zerolog.Nop())

	enqueued := s.EnqueueSyncs(context.Background())

	assert.Equal(t, 4, enqueued)
	require.Len(t, queue.requests, 4)

	seen := make(map[string]bool)
	for _, req := range queue.requests {
		assert.Equal(t, jobs.KindProviderSync, req.Kind)
		var payload jobs.SyncPayload
		require.NoError(t, json.Unmarshal(req.Payload, &payload))
		seen[req.UserID+"/"+payload.Provider] = true
	}
	assert.Len(t, seen, 4)
	assert.True(t, seen["u1/mail"])
	assert.True(t, seen["u2/calendar"])
}

func TestEnqueueSyncsNoUsers(t *testing.T) {
	queue := &fakeEnqueuer{}
	s := New(queue, "*/15 * * * *", []string{"mail"}, nil, zerolog.Nop())

	assert.Equal(t, 0, s.EnqueueSyncs(context.Background()))
	assert.Empty(t, queue.requests)
}

func TestEnqueueSyncsQueueFailure(t *testing.T) {
	queue := &fakeEnqueuer{err: errors.New("queue unavailable")}
	s := New(queue, "*/15 * * * *", []string{"mail"}, []string{"u1"}, zerolog.Nop())

	assert.Equal(t, 0, s.EnqueueSyncs(context.Background()))
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := New(&fakeEnqueuer{}, "not a schedule", []string{"mail"}, []string{"u1"}, zerolog.Nop())

	err := s.Start()
	require.Error(t, err)
}

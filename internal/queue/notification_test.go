package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/models"
)

type fakeInserter struct {
	err  error
	args []river.JobArgs
}

func (f *fakeInserter) Insert(_ context.Context, args river.JobArgs, _ *river.InsertOpts) (*rivertype.JobInsertResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.args = append(f.args, args)
	return &rivertype.JobInsertResult{Job: &rivertype.JobRow{ID: int64(len(f.args))}}, nil
}

type fakeDeliverer struct {
	mu     sync.Mutex
	events []models.SettlementEvent
	err    error
	done   chan struct{}
}

func (f *fakeDeliverer) DeliverSettlementEvent(_ context.Context, event models.SettlementEvent) error {
	f.mu.Lock()
	f.events = append(f.events, event)
	f.mu.Unlock()
	if f.done != nil {
		close(f.done)
	}
	return f.err
}

func testEvent() models.SettlementEvent {
	installer := uuid.New()
	return models.SettlementEvent{
		Event:        models.EventEscrowSettled,
		JobID:        uuid.New(),
		GiverID:      uuid.New(),
		InstallerID:  &installer,
		Path:         models.SettlementPathCancellation,
		RefundAmount: 9750,
		PayoutAmount: 0,
	}
}

func TestNotifier_InsertsJob(t *testing.T) {
	inserter := &fakeInserter{}
	deliverer := &fakeDeliverer{}
	event := testEvent()

	require.NoError(t, NewNotifier(inserter, deliverer).Notify(context.Background(), event))

	require.Len(t, inserter.args, 1)
	args, ok := inserter.args[0].(SettlementNotificationArgs)
	require.True(t, ok)
	assert.Equal(t, event.JobID, args.Event.JobID)
	assert.Equal(t, "escrow_settlement_notification", args.Kind())
	assert.Empty(t, deliverer.events)
}

func TestNotifier_FallsBackToDirectDelivery(t *testing.T) {
	inserter := &fakeInserter{err: errors.New("queue down")}
	deliverer := &fakeDeliverer{done: make(chan struct{})}
	event := testEvent()

	err := NewNotifier(inserter, deliverer).Notify(context.Background(), event)
	assert.Error(t, err)

	select {
	case <-deliverer.done:
	case <-time.After(time.Second):
		t.Fatal("fallback delivery not executed")
	}
	deliverer.mu.Lock()
	defer deliverer.mu.Unlock()
	require.Len(t, deliverer.events, 1)
	assert.Equal(t, event.JobID, deliverer.events[0].JobID)
}

func TestSettlementNotificationWorker_Work(t *testing.T) {
	deliverer := &fakeDeliverer{}
	worker := NewSettlementNotificationWorker(deliverer)
	event := testEvent()

	err := worker.Work(context.Background(), &river.Job[SettlementNotificationArgs]{
		JobRow: &rivertype.JobRow{ID: 1},
		Args:   SettlementNotificationArgs{Event: event},
	})
	require.NoError(t, err)
	assert.Len(t, deliverer.events, 1)

	deliverer.err = errors.New("db down")
	err = worker.Work(context.Background(), &river.Job[SettlementNotificationArgs]{
		JobRow: &rivertype.JobRow{ID: 2},
		Args:   SettlementNotificationArgs{Event: event},
	})
	assert.ErrorContains(t, err, "db down")
}

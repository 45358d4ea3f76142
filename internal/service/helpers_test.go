package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/roomswap-service/internal/config"
	"github.com/spec-kit/roomswap-service/internal/domain"
	"github.com/spec-kit/roomswap-service/internal/events"
	"github.com/spec-kit/roomswap-service/internal/repository/memory"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return d.err
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) ofType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, e := range d.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	store       *memory.Store
	dispatcher  *recordingDispatcher
	preferences *PreferenceService
	ledger      *LedgerService
	commits     *CommitService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	dispatcher := &recordingDispatcher{}
	deps := SwapDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Config: config.SwapConfig{
			QueryLimit:          50,
			StoreTimeoutSeconds: 5,
			CommitRetries:       3,
			SyntheticTTLHours:   72,
		},
	}
	return &testEnv{
		store:       store,
		dispatcher:  dispatcher,
		preferences: NewPreferenceService(deps),
		ledger:      NewLedgerService(deps),
		commits:     NewCommitService(deps),
	}
}

func (e *testEnv) resident(t *testing.T, name, room string) *domain.User {
	t.Helper()
	user := &domain.User{CollegeID: "C-" + name, Name: name, Email: name + "@dorm.test", Phone: "555" + name, RoomNumber: room}
	require.NoError(t, e.store.Users().Create(context.Background(), user))
	return user
}

func (e *testEnv) room(t *testing.T, userID string) string {
	t.Helper()
	user, err := e.store.Users().GetByID(context.Background(), userID)
	require.NoError(t, err)
	return user.RoomNumber
}

func (e *testEnv) status(t *testing.T, requestID string) domain.SwapStatus {
	t.Helper()
	req, err := e.store.SwapRequests().GetByID(context.Background(), requestID)
	require.NoError(t, err)
	return req.Status
}

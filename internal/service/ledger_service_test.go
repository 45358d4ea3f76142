package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/roomswap-service/internal/domain"
	"github.com/spec-kit/roomswap-service/internal/events"
	"github.com/spec-kit/roomswap-service/internal/repository"
	apperrors "github.com/spec-kit/roomswap-service/pkg/util/errorutil"
)

func TestLedgerService_ProposeSnapshotsRooms(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.resident(t, "ALICE001", "101")
	bob := env.resident(t, "BOB00001", "205")

	pref, err := env.preferences.Post(ctx, alice.ID, "101", "205")
	require.NoError(t, err)

	req, err := env.ledger.Propose(ctx, pref.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SwapStatusPending, req.Status)
	assert.Equal(t, alice.ID, req.OwnerID)
	assert.Equal(t, "205", req.FromRoom)
	assert.Equal(t, "101", req.ToRoom)

	created := env.dispatcher.ofType(events.EventRequestCreated)
	require.Len(t, created, 1)
	payload := created[0].Payload.(events.RequestCreatedPayload)
	assert.Equal(t, bob.ID, payload.RequesterID)
	assert.Equal(t, "BOB00001", payload.RequesterName)
	assert.Equal(t, alice.ID, payload.OwnerID)
	assert.Equal(t, "205", payload.FromRoom)
	assert.Equal(t, "101", payload.ToRoom)
}

func TestLedgerService_ProposeErrors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.resident(t, "ALICE001", "101")
	bob := env.resident(t, "BOB00001", "205")
	pref, err := env.preferences.Post(ctx, alice.ID, "101", "205")
	require.NoError(t, err)

	_, err = env.ledger.Propose(ctx, "missing", bob.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = env.ledger.Propose(ctx, pref.ID, alice.ID)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.ledger.Propose(ctx, pref.ID, bob.ID)
	require.NoError(t, err)
	_, err = env.ledger.Propose(ctx, pref.ID, bob.ID)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateRequest)
}

func TestLedgerService_ProposeSurvivesNotifierFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.dispatcher.err = events.ErrQueueFull
	alice := env.resident(t, "ALICE001", "101")
	bob := env.resident(t, "BOB00001", "205")
	pref, err := env.preferences.Post(ctx, alice.ID, "101", "205")
	require.NoError(t, err)

	_, err = env.ledger.Propose(ctx, pref.ID, bob.ID)
	assert.NoError(t, err)
}

func TestLedgerService_ConcurrentProposeYieldsOnePending(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.resident(t, "ALICE001", "101")
	bob := env.resident(t, "BOB00001", "205")
	pref, err := env.preferences.Post(ctx, alice.ID, "101", "205")
	require.NoError(t, err)

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.ledger.Propose(ctx, pref.ID, bob.ID)
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperrors.ErrDuplicateRequest):
			dup++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, dup)

	pending, err := env.ledger.Outgoing(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestLedgerService_RejectThenCancel(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.resident(t, "ALICE001", "101")
	bob := env.resident(t, "BOB00001", "205")
	pref, err := env.preferences.Post(ctx, alice.ID, "101", "205")
	require.NoError(t, err)
	req, err := env.ledger.Propose(ctx, pref.ID, bob.ID)
	require.NoError(t, err)

	_, err = env.ledger.Reject(ctx, req.ID, bob.ID)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	rejected, err := env.ledger.Reject(ctx, req.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SwapStatusRejected, rejected.Status)
	assert.NotNil(t, rejected.ResolvedAt)
	assert.Equal(t, "101", env.room(t, alice.ID))
	assert.Equal(t, "205", env.room(t, bob.ID))

	assert.ErrorIs(t, env.ledger.Cancel(ctx, req.ID, bob.ID), apperrors.ErrInvalidState)
	_, err = env.ledger.Reject(ctx, req.ID, alice.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	assert.Equal(t, domain.SwapStatusRejected, env.status(t, req.ID), "rejected rows are retained")
}

func TestLedgerService_CancelRemovesRow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.resident(t, "ALICE001", "101")
	bob := env.resident(t, "BOB00001", "205")
	pref, err := env.preferences.Post(ctx, alice.ID, "101", "205")
	require.NoError(t, err)
	req, err := env.ledger.Propose(ctx, pref.ID, bob.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, env.ledger.Cancel(ctx, req.ID, alice.ID), apperrors.ErrUnauthorized)
	require.NoError(t, env.ledger.Cancel(ctx, req.ID, bob.ID))

	_, err = env.store.SwapRequests().GetByID(ctx, req.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, env.ledger.Cancel(ctx, req.ID, bob.ID), apperrors.ErrNotFound)
	assert.Len(t, env.dispatcher.ofType(events.EventRequestCancelled), 1)

	// the pair is free again once the pending row is gone
	_, err = env.ledger.Propose(ctx, pref.ID, bob.ID)
	assert.NoError(t, err)
}

func TestLedgerService_ProposeDirect(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.resident(t, "ALICE001", "101")
	bob := env.resident(t, "BOB00001", "205")
	carol := env.resident(t, "CAROL001", "310")

	_, err := env.ledger.ProposeDirect(ctx, bob.ID, bob.ID)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = env.ledger.ProposeDirect(ctx, "ghost", bob.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	first, err := env.ledger.ProposeDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	second, err := env.ledger.ProposeDirect(ctx, alice.ID, carol.ID)
	require.NoError(t, err)
	assert.Equal(t, first.PreferenceID, second.PreferenceID, "synthetic preference is reused")

	pref, err := env.store.Preferences().GetByID(ctx, first.PreferenceID)
	require.NoError(t, err)
	assert.True(t, pref.Synthetic)
	assert.Equal(t, "101", pref.Available)
	assert.Equal(t, domain.WildcardRoom, pref.Needed)

	_, err = env.ledger.ProposeDirect(ctx, alice.ID, bob.ID)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateRequest)

	incoming, err := env.ledger.Incoming(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, incoming, 2)
}

func TestLedgerService_ProposeDirectUsesAuthoredPreference(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.resident(t, "ALICE001", "101")
	bob := env.resident(t, "BOB00001", "205")

	authored, err := env.preferences.Post(ctx, alice.ID, "101", "205")
	require.NoError(t, err)

	req, err := env.ledger.ProposeDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, authored.ID, req.PreferenceID)
}

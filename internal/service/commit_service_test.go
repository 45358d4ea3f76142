package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/roomswap-service/internal/domain"
	"github.com/spec-kit/roomswap-service/internal/events"
	apperrors "github.com/spec-kit/roomswap-service/pkg/util/errorutil"
)

func TestCommitService_SwapsRooms(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.resident(t, "ALICE001", "101")
	bob := env.resident(t, "BOB00001", "205")

	pref, err := env.preferences.Post(ctx, alice.ID, "101", "205")
	require.NoError(t, err)
	req, err := env.ledger.Propose(ctx, pref.ID, bob.ID)
	require.NoError(t, err)

	result, err := env.commits.Commit(ctx, req.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SwapStatusCommitted, result.Request.Status)
	assert.Equal(t, "205", result.Owner.RoomNumber)
	assert.Equal(t, "101", result.Requester.RoomNumber)
	assert.Empty(t, result.Invalidated)

	assert.Equal(t, "205", env.room(t, alice.ID))
	assert.Equal(t, "101", env.room(t, bob.ID))
	assert.Equal(t, domain.SwapStatusCommitted, env.status(t, req.ID))

	committed := env.dispatcher.ofType(events.EventRequestCommitted)
	require.Len(t, committed, 1)
	payload := committed[0].Payload.(events.RequestCommittedPayload)
	assert.Equal(t, "101", payload.RequesterRoom)
	assert.Equal(t, "205", payload.OwnerRoom)
}

func TestCommitService_OnlyOwnerCommits(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.resident(t, "ALICE001", "101")
	bob := env.resident(t, "BOB00001", "205")
	mallory := env.resident(t, "MALLORY1", "666")

	pref, err := env.preferences.Post(ctx, alice.ID, "101", "205")
	require.NoError(t, err)
	req, err := env.ledger.Propose(ctx, pref.ID, bob.ID)
	require.NoError(t, err)

	for _, caller := range []string{bob.ID, mallory.ID} {
		_, err := env.commits.Commit(ctx, req.ID, caller)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	}
	_, err = env.commits.Commit(ctx, "missing", alice.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.Equal(t, "101", env.room(t, alice.ID))
	assert.Equal(t, domain.SwapStatusPending, env.status(t, req.ID))
}

func TestCommitService_TerminalRequestsCannotCommit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.resident(t, "ALICE001", "101")
	bob := env.resident(t, "BOB00001", "205")
	pref, err := env.preferences.Post(ctx, alice.ID, "101", "205")
	require.NoError(t, err)
	req, err := env.ledger.Propose(ctx, pref.ID, bob.ID)
	require.NoError(t, err)

	_, err = env.commits.Commit(ctx, req.ID, alice.ID)
	require.NoError(t, err)

	_, err = env.commits.Commit(ctx, req.ID, alice.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	assert.ErrorIs(t, env.ledger.Cancel(ctx, req.ID, bob.ID), apperrors.ErrInvalidState)
	assert.Equal(t, "205", env.room(t, alice.ID), "second commit must not swap back")
}

func TestCommitService_CascadeRejectsCompetingRequests(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.resident(t, "ALICE001", "101")
	bob := env.resident(t, "BOB00001", "205")
	carol := env.resident(t, "CAROL001", "310")
	dave := env.resident(t, "DAVE0001", "412")
	erin := env.resident(t, "ERIN0001", "520")

	alicePref, err := env.preferences.Post(ctx, alice.ID, "101", "ANY")
	require.NoError(t, err)
	bobPref, err := env.preferences.Post(ctx, bob.ID, "205", "ANY")
	require.NoError(t, err)
	davePref, err := env.preferences.Post(ctx, dave.ID, "412", "ANY")
	require.NoError(t, err)

	winner, err := env.ledger.Propose(ctx, alicePref.ID, bob.ID)
	require.NoError(t, err)
	carolToAlice, err := env.ledger.Propose(ctx, alicePref.ID, carol.ID)
	require.NoError(t, err)
	daveToBob, err := env.ledger.Propose(ctx, bobPref.ID, dave.ID)
	require.NoError(t, err)
	bobToDave, err := env.ledger.Propose(ctx, davePref.ID, bob.ID)
	require.NoError(t, err)
	unrelated, err := env.ledger.Propose(ctx, davePref.ID, erin.ID)
	require.NoError(t, err)

	result, err := env.commits.Commit(ctx, winner.ID, alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{carolToAlice.ID, daveToBob.ID, bobToDave.ID}, result.Invalidated)

	assert.Equal(t, domain.SwapStatusRejected, env.status(t, carolToAlice.ID))
	assert.Equal(t, domain.SwapStatusRejected, env.status(t, daveToBob.ID))
	assert.Equal(t, domain.SwapStatusRejected, env.status(t, bobToDave.ID))
	assert.Equal(t, domain.SwapStatusPending, env.status(t, unrelated.ID))

	// the stale snapshot can no longer be committed
	_, err = env.commits.Commit(ctx, carolToAlice.ID, alice.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestCommitService_ConcurrentCommitsSharingOwner(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.resident(t, "OWNER001", "100")
	pref, err := env.preferences.Post(ctx, owner.ID, "100", "ANY")
	require.NoError(t, err)

	const n = 6
	requesters := make(map[string]string, n)
	requestIDs := make([]string, n)
	for i := 0; i < n; i++ {
		user := env.resident(t, fmt.Sprintf("RESIDNT%d", i), fmt.Sprintf("%d", 200+i))
		requesters[user.ID] = user.RoomNumber
		req, err := env.ledger.Propose(ctx, pref.ID, user.ID)
		require.NoError(t, err)
		requestIDs[i] = req.ID
	}

	errs := make([]error, n)
	results := make([]*CommitResult, n)
	var wg sync.WaitGroup
	for i := range requestIDs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = env.commits.Commit(ctx, requestIDs[i], owner.ID)
		}(i)
	}
	wg.Wait()

	var winner *CommitResult
	for i, err := range errs {
		if err == nil {
			require.Nil(t, winner, "only one commit may succeed")
			winner = results[i]
			continue
		}
		assert.True(t, errors.Is(err, apperrors.ErrInvalidState), "unexpected error: %v", err)
	}
	require.NotNil(t, winner)

	committed := 0
	for _, id := range requestIDs {
		switch env.status(t, id) {
		case domain.SwapStatusCommitted:
			committed++
		case domain.SwapStatusRejected:
		default:
			t.Fatalf("request %s still pending", id)
		}
	}
	assert.Equal(t, 1, committed)

	winnerID := winner.Requester.ID
	assert.Equal(t, requesters[winnerID], env.room(t, owner.ID))
	assert.Equal(t, "100", env.room(t, winnerID))
	for id, room := range requesters {
		if id != winnerID {
			assert.Equal(t, room, env.room(t, id))
		}
	}
}

func TestCommitService_ConcurrentCommitAndCancel(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.resident(t, "ALICE001", "101")
	bob := env.resident(t, "BOB00001", "205")
	pref, err := env.preferences.Post(ctx, alice.ID, "101", "205")
	require.NoError(t, err)
	req, err := env.ledger.Propose(ctx, pref.ID, bob.ID)
	require.NoError(t, err)

	var commitErr, cancelErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, commitErr = env.commits.Commit(ctx, req.ID, alice.ID)
	}()
	go func() {
		defer wg.Done()
		cancelErr = env.ledger.Cancel(ctx, req.ID, bob.ID)
	}()
	wg.Wait()

	if commitErr == nil {
		assert.ErrorIs(t, cancelErr, apperrors.ErrInvalidState)
		assert.Equal(t, "205", env.room(t, alice.ID))
		return
	}
	require.NoError(t, cancelErr)
	assert.True(t, errors.Is(commitErr, apperrors.ErrNotFound) || errors.Is(commitErr, apperrors.ErrInvalidState))
	assert.Equal(t, "101", env.room(t, alice.ID))
}

func TestCommitService_History(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.resident(t, "ALICE001", "101")
	bob := env.resident(t, "BOB00001", "205")
	carol := env.resident(t, "CAROL001", "310")

	first, err := env.ledger.ProposeDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = env.commits.Commit(ctx, first.ID, alice.ID)
	require.NoError(t, err)

	second, err := env.ledger.ProposeDirect(ctx, carol.ID, alice.ID)
	require.NoError(t, err)
	_, err = env.commits.Commit(ctx, second.ID, carol.ID)
	require.NoError(t, err)

	rejected, err := env.ledger.ProposeDirect(ctx, bob.ID, carol.ID)
	require.NoError(t, err)
	_, err = env.ledger.Reject(ctx, rejected.ID, bob.ID)
	require.NoError(t, err)

	history, err := env.commits.History(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID, "most recent first")
	assert.Equal(t, first.ID, history[1].ID)

	again, err := env.commits.History(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, history, again)

	bobHistory, err := env.commits.History(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, bobHistory, 1)
}

package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/roomswap-service/internal/domain"
	"github.com/spec-kit/roomswap-service/internal/events"
	"github.com/spec-kit/roomswap-service/internal/repository"
	apperrors "github.com/spec-kit/roomswap-service/pkg/util/errorutil"
)

func TestPreferenceService_PostDeduplicates(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.resident(t, "ALICE001", "101")

	pref, err := env.preferences.Post(ctx, alice.ID, " 101 ", "205")
	require.NoError(t, err)
	assert.Equal(t, "101", pref.Available)

	_, err = env.preferences.Post(ctx, alice.ID, "101", "205")
	assert.ErrorIs(t, err, apperrors.ErrDuplicatePreference)

	own, err := env.preferences.ListOwn(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, own, 1)
	assert.Len(t, env.dispatcher.ofType(events.EventPreferencePosted), 1)
}

func TestPreferenceService_PostValidates(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.resident(t, "ALICE001", "101")

	_, err := env.preferences.Post(ctx, alice.ID, "  ", "205")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.preferences.Post(ctx, alice.ID, "101", "ROOM-NUMBER-LONGER-THAN-LIMIT")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.preferences.Post(ctx, "ghost", "101", "205")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPreferenceService_QueryFiltersAndCaps(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.resident(t, "ALICE001", "101")
	bob := env.resident(t, "BOB00001", "205")

	_, err := env.preferences.Post(ctx, alice.ID, "A-101", "ANY")
	require.NoError(t, err)
	for i := 0; i < 55; i++ {
		_, err := env.preferences.Post(ctx, bob.ID, fmt.Sprintf("A-%03d", i), "ANY")
		require.NoError(t, err)
	}
	_, err = env.preferences.Post(ctx, bob.ID, "B-999", "ANY")
	require.NoError(t, err)

	got, err := env.preferences.Query(ctx, alice.ID, "a-")
	require.NoError(t, err)
	require.Len(t, got, 50)
	assert.Equal(t, "A-054", got[0].Available, "most recent first")
	for _, pref := range got {
		assert.Equal(t, bob.ID, pref.OwnerID)
	}

	got, err = env.preferences.Query(ctx, alice.ID, "b-9")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "B-999", got[0].Available)
}

func TestPreferenceService_DeleteChecksOwnership(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.resident(t, "ALICE001", "101")
	bob := env.resident(t, "BOB00001", "205")

	pref, err := env.preferences.Post(ctx, alice.ID, "101", "205")
	require.NoError(t, err)

	assert.ErrorIs(t, env.preferences.Delete(ctx, pref.ID, bob.ID), apperrors.ErrUnauthorized)
	assert.ErrorIs(t, env.preferences.Delete(ctx, "missing", alice.ID), apperrors.ErrNotFound)
	require.NoError(t, env.preferences.Delete(ctx, pref.ID, alice.ID))

	_, err = env.store.Preferences().GetByID(ctx, pref.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPreferenceService_DeleteRejectsPendingRequests(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.resident(t, "ALICE001", "101")
	bob := env.resident(t, "BOB00001", "205")

	pref, err := env.preferences.Post(ctx, alice.ID, "101", "205")
	require.NoError(t, err)
	req, err := env.ledger.Propose(ctx, pref.ID, bob.ID)
	require.NoError(t, err)

	require.NoError(t, env.preferences.Delete(ctx, pref.ID, alice.ID))

	got, err := env.store.SwapRequests().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SwapStatusRejected, got.Status)
	assert.Empty(t, got.PreferenceID)

	rejected := env.dispatcher.ofType(events.EventRequestRejected)
	require.Len(t, rejected, 1)
	payload := rejected[0].Payload.(events.RequestRejectedPayload)
	assert.Equal(t, []string{req.ID}, payload.RequestIDs)
	assert.Equal(t, events.RejectReasonPreferenceRemoved, payload.Reason)
}

func TestPreferenceService_Update(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.resident(t, "ALICE001", "101")
	bob := env.resident(t, "BOB00001", "205")

	first, err := env.preferences.Post(ctx, alice.ID, "101", "205")
	require.NoError(t, err)
	second, err := env.preferences.Post(ctx, alice.ID, "101", "300")
	require.NoError(t, err)

	_, err = env.preferences.Update(ctx, first.ID, bob.ID, "101", "400")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = env.preferences.Update(ctx, second.ID, alice.ID, "101", "205")
	assert.ErrorIs(t, err, apperrors.ErrDuplicatePreference)

	updated, err := env.preferences.Update(ctx, first.ID, alice.ID, "101", "b-400")
	require.NoError(t, err)
	assert.Equal(t, "B-400", updated.Needed)
}

func TestPreferenceService_CollectSynthetic(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	env.store.SetClock(func() time.Time { return now })

	alice := env.resident(t, "ALICE001", "101")
	bob := env.resident(t, "BOB00001", "205")
	carol := env.resident(t, "CAROL001", "310")

	req, err := env.ledger.ProposeDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, env.ledger.Cancel(ctx, req.ID, bob.ID))
	_, err = env.ledger.ProposeDirect(ctx, carol.ID, bob.ID)
	require.NoError(t, err)

	removed, err := env.preferences.CollectSynthetic(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, removed, "younger than the TTL")

	removed, err = env.preferences.CollectSynthetic(ctx, now.Add(73*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed, "carol's synthetic preference still has a pending request")

	own, err := env.preferences.ListOwn(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, own)
}

func TestPreferenceService_PostPromotesSyntheticPreference(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	env.store.SetClock(func() time.Time { return now })

	alice := env.resident(t, "ALICE001", "101")
	bob := env.resident(t, "BOB00001", "205")
	carol := env.resident(t, "CAROL001", "310")

	req, err := env.ledger.ProposeDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, env.ledger.Cancel(ctx, req.ID, bob.ID))

	listed, err := env.preferences.Query(ctx, carol.ID, "")
	require.NoError(t, err)
	assert.Empty(t, listed, "synthetic preferences are not offered to other residents")

	pref, err := env.preferences.Post(ctx, alice.ID, "101", "ANY")
	require.NoError(t, err)
	assert.Equal(t, req.PreferenceID, pref.ID)
	assert.False(t, pref.Synthetic)
	assert.Len(t, env.dispatcher.ofType(events.EventPreferencePosted), 1)

	_, err = env.preferences.Post(ctx, alice.ID, "101", "ANY")
	assert.ErrorIs(t, err, apperrors.ErrDuplicatePreference)

	removed, err := env.preferences.CollectSynthetic(ctx, now.Add(73*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, removed)

	listed, err = env.preferences.Query(ctx, carol.ID, "")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, pref.ID, listed[0].ID)
	assert.False(t, listed[0].Synthetic)
}

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/roomswap-service/internal/domain"
	"github.com/spec-kit/roomswap-service/internal/events"
	"github.com/spec-kit/roomswap-service/internal/repository"
	apperrors "github.com/spec-kit/roomswap-service/pkg/util/errorutil"
)

// PreferenceService is the registry of offer/want postings.
type PreferenceService struct {
	swapCore
}

// NewPreferenceService constructs the service.
func NewPreferenceService(deps SwapDependencies) *PreferenceService {
	return &PreferenceService{swapCore: newSwapCore(deps)}
}

// Post stores a new preference for ownerID and returns it. A synthetic row with the same
// pair is promoted to an authored one instead of being reported as a duplicate.
func (s *PreferenceService) Post(ctx context.Context, ownerID, available, needed string) (*domain.Preference, error) {
	available, needed, err := normalizeRoomCodes(available, needed)
	if err != nil {
		return nil, err
	}

	var (
		pref  *domain.Preference
		owner *domain.User
	)
	err = s.withTx(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		owner, err = tx.Users().GetByID(ctx, ownerID)
		if err != nil {
			return notFoundAs(err, "user", map[string]any{"user_id": ownerID})
		}

		existing, err := tx.Preferences().GetByTuple(ctx, ownerID, available, needed)
		switch {
		case err == nil && !existing.Synthetic:
			return apperrors.NewDuplicatePreference(map[string]any{"available": available, "needed": needed})
		case err == nil:
			pref = existing
			pref.Synthetic = false
			return tx.Preferences().Update(ctx, pref)
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}

		pref = &domain.Preference{OwnerID: ownerID, Available: available, Needed: needed}
		if err := tx.Preferences().Create(ctx, pref); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				// inserted concurrently; the retry sees the row and classifies it
				return repository.ErrContention
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:    events.EventPreferencePosted,
		ActorID: ownerID,
		Payload: events.PreferencePostedPayload{
			PreferenceID: pref.ID,
			OwnerID:      ownerID,
			OwnerName:    owner.Name,
			Available:    pref.Available,
			Needed:       pref.Needed,
		},
	})
	return pref, nil
}

// Query returns preferences other residents posted whose available room contains filter,
// newest first and capped at the configured query limit. Synthetic rows are not listed.
func (s *PreferenceService) Query(ctx context.Context, callerID, filter string) ([]domain.Preference, error) {
	var prefs []domain.Preference
	err := s.withStore(ctx, func(ctx context.Context, store repository.Store) error {
		var err error
		prefs, err = store.Preferences().List(ctx, repository.PreferenceFilter{
			ExcludeOwnerID:    callerID,
			ExcludeSynthetic:  true,
			AvailableContains: strings.TrimSpace(filter),
			Limit:             s.cfg.QueryLimit,
		})
		return err
	})
	return prefs, err
}

// ListOwn returns every preference ownerID has, newest first.
func (s *PreferenceService) ListOwn(ctx context.Context, ownerID string) ([]domain.Preference, error) {
	var prefs []domain.Preference
	err := s.withStore(ctx, func(ctx context.Context, store repository.Store) error {
		var err error
		prefs, err = store.Preferences().List(ctx, repository.PreferenceFilter{OwnerID: ownerID, Unbounded: true})
		return err
	})
	return prefs, err
}

// Update replaces the offer/want pair of a preference owned by callerID.
func (s *PreferenceService) Update(ctx context.Context, prefID, callerID, available, needed string) (*domain.Preference, error) {
	available, needed, err := normalizeRoomCodes(available, needed)
	if err != nil {
		return nil, err
	}

	var pref *domain.Preference
	err = s.withTx(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		pref, err = loadOwnedPreference(ctx, tx, prefID, callerID)
		if err != nil {
			return err
		}
		if pref.Available == available && pref.Needed == needed && !pref.Synthetic {
			return nil
		}

		existing, err := tx.Preferences().GetByTuple(ctx, callerID, available, needed)
		switch {
		case err == nil && existing.ID != pref.ID:
			return apperrors.NewDuplicatePreference(map[string]any{"preference_id": existing.ID})
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return err
		}

		pref.Available = available
		pref.Needed = needed
		pref.Synthetic = false
		if err := tx.Preferences().Update(ctx, pref); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperrors.NewDuplicatePreference(nil)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pref, nil
}

// Delete removes a preference owned by callerID. Pending requests against it are rejected
// and every request referencing it is detached.
func (s *PreferenceService) Delete(ctx context.Context, prefID, callerID string) error {
	var rejected []string
	err := s.withTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if _, err := loadOwnedPreference(ctx, tx, prefID, callerID); err != nil {
			return err
		}
		var err error
		rejected, err = tx.SwapRequests().DetachPreference(ctx, prefID)
		if err != nil {
			return err
		}
		return notFoundAs(tx.Preferences().Delete(ctx, prefID), "preference", map[string]any{"preference_id": prefID})
	})
	if err != nil {
		return err
	}

	if len(rejected) > 0 {
		s.publish(ctx, events.Event{
			Type:    events.EventRequestRejected,
			ActorID: callerID,
			Payload: events.RequestRejectedPayload{RequestIDs: rejected, Reason: events.RejectReasonPreferenceRemoved},
		})
	}
	return nil
}

// CollectSynthetic deletes synthetic preferences older than the configured TTL that no
// pending request references. It returns the number removed.
func (s *PreferenceService) CollectSynthetic(ctx context.Context, now time.Time) (int64, error) {
	ttl := s.cfg.SyntheticTTL()
	if ttl <= 0 {
		return 0, nil
	}
	var removed int64
	err := s.withTx(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		removed, err = tx.Preferences().DeleteStaleSynthetic(ctx, now.Add(-ttl))
		return err
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("collected synthetic preferences", zap.Int64("removed", removed))
	}
	return removed, nil
}

func loadOwnedPreference(ctx context.Context, store repository.Store, prefID, callerID string) (*domain.Preference, error) {
	pref, err := store.Preferences().GetByID(ctx, prefID)
	if err != nil {
		return nil, notFoundAs(err, "preference", map[string]any{"preference_id": prefID})
	}
	if pref.OwnerID != callerID {
		return nil, apperrors.NewUnauthorized("only the owner may change this preference")
	}
	return pref, nil
}

package service

import (
	"context"
	"errors"

	"github.com/spec-kit/roomswap-service/internal/domain"
	"github.com/spec-kit/roomswap-service/internal/events"
	"github.com/spec-kit/roomswap-service/internal/repository"
	apperrors "github.com/spec-kit/roomswap-service/pkg/util/errorutil"
)

// LedgerService records swap proposals and their owner/requester resolutions.
type LedgerService struct {
	swapCore
}

// NewLedgerService constructs the service.
func NewLedgerService(deps SwapDependencies) *LedgerService {
	return &LedgerService{swapCore: newSwapCore(deps)}
}

type proposal struct {
	request   *domain.SwapRequest
	requester *domain.User
}

// Propose records a pending request from requesterID against preferenceID, snapshotting
// both parties' current rooms.
func (s *LedgerService) Propose(ctx context.Context, preferenceID, requesterID string) (*domain.SwapRequest, error) {
	var p proposal
	err := s.withTx(ctx, func(ctx context.Context, tx repository.Store) error {
		pref, err := tx.Preferences().GetByID(ctx, preferenceID)
		if err != nil {
			return notFoundAs(err, "preference", map[string]any{"preference_id": preferenceID})
		}
		p, err = proposeAgainst(ctx, tx, pref, requesterID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.announce(ctx, p)
	return p.request, nil
}

// ProposeDirect proposes against targetUserID's most relevant preference. A target with no
// preference gets a synthetic one offering their current room for any room.
func (s *LedgerService) ProposeDirect(ctx context.Context, targetUserID, requesterID string) (*domain.SwapRequest, error) {
	if targetUserID == requesterID {
		return nil, apperrors.NewValidationError("cannot propose a swap with yourself", nil)
	}

	var p proposal
	err := s.withTx(ctx, func(ctx context.Context, tx repository.Store) error {
		target, err := tx.Users().GetByID(ctx, targetUserID)
		if err != nil {
			return notFoundAs(err, "user", map[string]any{"user_id": targetUserID})
		}

		pref, err := tx.Preferences().LatestForOwner(ctx, targetUserID)
		if errors.Is(err, repository.ErrNotFound) {
			pref, err = synthesizePreference(ctx, tx, target)
		}
		if err != nil {
			return err
		}
		p, err = proposeAgainst(ctx, tx, pref, requesterID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.announce(ctx, p)
	return p.request, nil
}

// Reject marks a pending request rejected. Only the preference owner may reject.
func (s *LedgerService) Reject(ctx context.Context, requestID, callerID string) (*domain.SwapRequest, error) {
	var req *domain.SwapRequest
	err := s.withTx(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		req, err = lockPendingRequest(ctx, tx, requestID, func(r *domain.SwapRequest) bool { return r.OwnerID == callerID })
		if err != nil {
			return err
		}
		if err := tx.SwapRequests().Transition(ctx, req.ID, domain.SwapStatusPending, domain.SwapStatusRejected); err != nil {
			return err
		}
		req, err = tx.SwapRequests().GetByID(ctx, req.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:    events.EventRequestRejected,
		ActorID: callerID,
		Payload: events.RequestRejectedPayload{RequestIDs: []string{req.ID}, Reason: events.RejectReasonOwner},
	})
	return req, nil
}

// Cancel deletes a pending request. Only the requester may cancel.
func (s *LedgerService) Cancel(ctx context.Context, requestID, callerID string) error {
	var req *domain.SwapRequest
	err := s.withTx(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		req, err = lockPendingRequest(ctx, tx, requestID, func(r *domain.SwapRequest) bool { return r.RequesterID == callerID })
		if err != nil {
			return err
		}
		return tx.SwapRequests().DeletePending(ctx, req.ID)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.Event{
		Type:    events.EventRequestCancelled,
		ActorID: callerID,
		Payload: events.RequestCancelledPayload{RequestID: req.ID, RequesterID: req.RequesterID, OwnerID: req.OwnerID},
	})
	return nil
}

// Incoming lists pending requests awaiting ownerID's decision, newest first.
func (s *LedgerService) Incoming(ctx context.Context, ownerID string) ([]domain.SwapRequest, error) {
	return s.pending(ctx, repository.SwapRequestFilter{OwnerID: ownerID})
}

// Outgoing lists requesterID's own pending requests, newest first.
func (s *LedgerService) Outgoing(ctx context.Context, requesterID string) ([]domain.SwapRequest, error) {
	return s.pending(ctx, repository.SwapRequestFilter{RequesterID: requesterID})
}

func (s *LedgerService) pending(ctx context.Context, filter repository.SwapRequestFilter) ([]domain.SwapRequest, error) {
	filter.Statuses = []domain.SwapStatus{domain.SwapStatusPending}
	filter.Unbounded = true

	var reqs []domain.SwapRequest
	err := s.withStore(ctx, func(ctx context.Context, store repository.Store) error {
		var err error
		reqs, err = store.SwapRequests().List(ctx, filter)
		return err
	})
	return reqs, err
}

func (s *LedgerService) announce(ctx context.Context, p proposal) {
	s.publish(ctx, events.Event{
		Type:    events.EventRequestCreated,
		ActorID: p.request.RequesterID,
		Payload: events.RequestCreatedPayload{
			RequestID:     p.request.ID,
			PreferenceID:  p.request.PreferenceID,
			RequesterID:   p.request.RequesterID,
			RequesterName: p.requester.Name,
			OwnerID:       p.request.OwnerID,
			FromRoom:      p.request.FromRoom,
			ToRoom:        p.request.ToRoom,
		},
	})
}

func proposeAgainst(ctx context.Context, tx repository.Store, pref *domain.Preference, requesterID string) (proposal, error) {
	if pref.OwnerID == requesterID {
		return proposal{}, apperrors.NewValidationError("cannot propose against your own preference", nil)
	}
	requester, err := tx.Users().GetByID(ctx, requesterID)
	if err != nil {
		return proposal{}, notFoundAs(err, "user", map[string]any{"user_id": requesterID})
	}
	owner, err := tx.Users().GetByID(ctx, pref.OwnerID)
	if err != nil {
		return proposal{}, notFoundAs(err, "user", map[string]any{"user_id": pref.OwnerID})
	}

	req := &domain.SwapRequest{
		PreferenceID: pref.ID,
		OwnerID:      owner.ID,
		RequesterID:  requester.ID,
		FromRoom:     requester.RoomNumber,
		ToRoom:       owner.RoomNumber,
	}
	if err := tx.SwapRequests().CreatePending(ctx, req); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return proposal{}, apperrors.NewDuplicateRequest(map[string]any{"preference_id": pref.ID})
		}
		return proposal{}, err
	}
	return proposal{request: req, requester: requester}, nil
}

func synthesizePreference(ctx context.Context, tx repository.Store, target *domain.User) (*domain.Preference, error) {
	room := domain.NormalizeRoom(target.RoomNumber)
	if room == "" {
		return nil, apperrors.NewValidationError("target user has no room assigned", map[string]any{"user_id": target.ID})
	}
	pref := &domain.Preference{
		OwnerID:   target.ID,
		Available: room,
		Needed:    domain.WildcardRoom,
		Synthetic: true,
	}
	if err := tx.Preferences().Create(ctx, pref); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// a concurrent direct proposal created it first; the retry will find it
			return nil, repository.ErrContention
		}
		return nil, err
	}
	return pref, nil
}

// lockPendingRequest row-locks the request, then checks the caller and pending status in
// that order.
func lockPendingRequest(ctx context.Context, tx repository.Store, requestID string, allowed func(*domain.SwapRequest) bool) (*domain.SwapRequest, error) {
	req, err := tx.SwapRequests().GetForUpdate(ctx, requestID)
	if err != nil {
		return nil, notFoundAs(err, "swap request", map[string]any{"request_id": requestID})
	}
	if !allowed(req) {
		return nil, apperrors.NewUnauthorized("caller may not resolve this request")
	}
	if req.Status != domain.SwapStatusPending {
		return nil, apperrors.NewInvalidState("request is no longer pending", map[string]any{"status": req.Status})
	}
	return req, nil
}

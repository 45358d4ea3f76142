package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/roomswap-service/internal/domain"
	"github.com/spec-kit/roomswap-service/internal/events"
	"github.com/spec-kit/roomswap-service/internal/repository"
	apperrors "github.com/spec-kit/roomswap-service/pkg/util/errorutil"
)

// CommitService executes swaps.
type CommitService struct {
	swapCore
}

// CommitResult describes a committed swap. Users carry their post-swap rooms.
type CommitResult struct {
	Request     domain.SwapRequest
	Requester   domain.User
	Owner       domain.User
	Invalidated []string
}

// NewCommitService constructs the service.
func NewCommitService(deps SwapDependencies) *CommitService {
	return &CommitService{swapCore: newSwapCore(deps)}
}

// Commit exchanges the rooms of the request's owner and requester, marks the request
// committed and rejects every other pending request involving either of them, all in one
// transaction. Only the preference owner may commit.
func (s *CommitService) Commit(ctx context.Context, requestID, callerID string) (*CommitResult, error) {
	var result *CommitResult
	err := s.withTx(ctx, func(ctx context.Context, tx repository.Store) error {
		req, err := tx.SwapRequests().GetByID(ctx, requestID)
		if err != nil {
			return notFoundAs(err, "swap request", map[string]any{"request_id": requestID})
		}
		if req.OwnerID != callerID {
			return apperrors.NewUnauthorized("only the preference owner may commit")
		}
		if req.Status != domain.SwapStatusPending {
			return apperrors.NewInvalidState("request is no longer pending", map[string]any{"status": req.Status})
		}

		// User rows first, ascending id, then the request row.
		locked, err := tx.Users().LockForUpdate(ctx, []string{req.RequesterID, req.OwnerID})
		if err != nil {
			return notFoundAs(err, "user", nil)
		}
		users := make(map[string]domain.User, len(locked))
		for _, u := range locked {
			users[u.ID] = u
		}
		requester, okR := users[req.RequesterID]
		owner, okO := users[req.OwnerID]
		if !okR || !okO {
			return apperrors.NewNotFound("user", nil)
		}

		req, err = tx.SwapRequests().GetForUpdate(ctx, requestID)
		if err != nil {
			return notFoundAs(err, "swap request", map[string]any{"request_id": requestID})
		}
		if req.Status != domain.SwapStatusPending {
			return apperrors.NewInvalidState("request is no longer pending", map[string]any{"status": req.Status})
		}

		requesterRoom, ownerRoom := requester.RoomNumber, owner.RoomNumber
		if err := tx.Users().UpdateRoom(ctx, requester.ID, ownerRoom); err != nil {
			return err
		}
		if err := tx.Users().UpdateRoom(ctx, owner.ID, requesterRoom); err != nil {
			return err
		}
		if err := tx.SwapRequests().Transition(ctx, req.ID, domain.SwapStatusPending, domain.SwapStatusCommitted); err != nil {
			return err
		}
		invalidated, err := tx.SwapRequests().RejectPendingInvolving(ctx, []string{requester.ID, owner.ID}, req.ID)
		if err != nil {
			return err
		}

		committed, err := tx.SwapRequests().GetByID(ctx, req.ID)
		if err != nil {
			return err
		}
		requester.RoomNumber, owner.RoomNumber = ownerRoom, requesterRoom
		result = &CommitResult{
			Request:     *committed,
			Requester:   requester,
			Owner:       owner,
			Invalidated: invalidated,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("swap committed",
		zap.String("request_id", result.Request.ID),
		zap.String("requester_id", result.Requester.ID),
		zap.String("owner_id", result.Owner.ID),
		zap.Int("invalidated", len(result.Invalidated)))
	s.publish(ctx, events.Event{
		Type:    events.EventRequestCommitted,
		ActorID: callerID,
		Payload: events.RequestCommittedPayload{
			RequestID:     result.Request.ID,
			RequesterID:   result.Requester.ID,
			OwnerID:       result.Owner.ID,
			RequesterRoom: result.Requester.RoomNumber,
			OwnerRoom:     result.Owner.RoomNumber,
			Invalidated:   result.Invalidated,
		},
	})
	return result, nil
}

// History lists committed swaps where userID was either party, most recent first.
func (s *CommitService) History(ctx context.Context, userID string) ([]domain.SwapRequest, error) {
	var reqs []domain.SwapRequest
	err := s.withStore(ctx, func(ctx context.Context, store repository.Store) error {
		var err error
		reqs, err = store.SwapRequests().List(ctx, repository.SwapRequestFilter{
			ParticipantID: userID,
			Statuses:      []domain.SwapStatus{domain.SwapStatusCommitted},
			Unbounded:     true,
		})
		return err
	})
	return reqs, err
}

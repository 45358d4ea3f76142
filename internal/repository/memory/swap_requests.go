package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/roomswap-service/internal/domain"
	"github.com/spec-kit/roomswap-service/internal/repository"
)

type swapRequestRepository struct {
	s *Store
}

func (r *swapRequestRepository) CreatePending(ctx context.Context, req *domain.SwapRequest) error {
	return r.s.do(ctx, func(st *state) error {
		for _, existing := range st.requests {
			if existing.Status == domain.SwapStatusPending &&
				existing.PreferenceID == req.PreferenceID &&
				existing.RequesterID == req.RequesterID {
				return repository.ErrDuplicate
			}
		}
		req.ID = uuid.NewString()
		req.Status = domain.SwapStatusPending
		req.CreatedAt = r.s.now()
		req.ResolvedAt = nil
		st.requests[req.ID] = *req
		st.stamp(req.ID)
		return nil
	})
}

func (r *swapRequestRepository) GetByID(ctx context.Context, id string) (*domain.SwapRequest, error) {
	var out *domain.SwapRequest
	err := r.s.do(ctx, func(st *state) error {
		req, ok := st.requests[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &req
		return nil
	})
	return out, err
}

// GetForUpdate needs no lock of its own: transactions are already serialized.
func (r *swapRequestRepository) GetForUpdate(ctx context.Context, id string) (*domain.SwapRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *swapRequestRepository) Transition(ctx context.Context, id string, from, to domain.SwapStatus) error {
	return r.s.do(ctx, func(st *state) error {
		req, ok := st.requests[id]
		if !ok || req.Status != from {
			return repository.ErrStaleState
		}
		resolve(r.s, &req, to)
		st.requests[id] = req
		return nil
	})
}

func (r *swapRequestRepository) DeletePending(ctx context.Context, id string) error {
	return r.s.do(ctx, func(st *state) error {
		req, ok := st.requests[id]
		if !ok || req.Status != domain.SwapStatusPending {
			return repository.ErrStaleState
		}
		delete(st.requests, id)
		delete(st.seq, id)
		return nil
	})
}

func (r *swapRequestRepository) RejectPendingInvolving(ctx context.Context, userIDs []string, exceptID string) ([]string, error) {
	var ids []string
	err := r.s.do(ctx, func(st *state) error {
		for id, req := range st.requests {
			if id == exceptID || req.Status != domain.SwapStatusPending {
				continue
			}
			for _, userID := range userIDs {
				if req.Involves(userID) {
					ids = append(ids, id)
					break
				}
			}
		}
		sort.Strings(ids)
		for _, id := range ids {
			req := st.requests[id]
			resolve(r.s, &req, domain.SwapStatusRejected)
			st.requests[id] = req
		}
		return nil
	})
	return ids, err
}

func (r *swapRequestRepository) DetachPreference(ctx context.Context, preferenceID string) ([]string, error) {
	var ids []string
	err := r.s.do(ctx, func(st *state) error {
		for id, req := range st.requests {
			if req.PreferenceID != preferenceID {
				continue
			}
			if req.Status == domain.SwapStatusPending {
				resolve(r.s, &req, domain.SwapStatusRejected)
				ids = append(ids, id)
			}
			req.PreferenceID = ""
			st.requests[id] = req
		}
		sort.Strings(ids)
		return nil
	})
	return ids, err
}

func (r *swapRequestRepository) List(ctx context.Context, filter repository.SwapRequestFilter) ([]domain.SwapRequest, error) {
	var out []domain.SwapRequest
	err := r.s.do(ctx, func(st *state) error {
		var ids []string
		for id, req := range st.requests {
			if filter.OwnerID != "" && req.OwnerID != filter.OwnerID {
				continue
			}
			if filter.RequesterID != "" && req.RequesterID != filter.RequesterID {
				continue
			}
			if filter.ParticipantID != "" && !req.Involves(filter.ParticipantID) {
				continue
			}
			if filter.PreferenceID != "" && req.PreferenceID != filter.PreferenceID {
				continue
			}
			if !filter.HasStatus(req.Status) {
				continue
			}
			ids = append(ids, id)
		}
		newestFirst(ids, func(id string) time.Time { return activityTime(st.requests[id]) }, st.seq)
		ids = capped(ids, filter.Limit, filter.Unbounded)
		for _, id := range ids {
			out = append(out, st.requests[id])
		}
		return nil
	})
	return out, err
}

func resolve(s *Store, req *domain.SwapRequest, to domain.SwapStatus) {
	now := s.now()
	req.Status = to
	req.ResolvedAt = &now
}

func activityTime(req domain.SwapRequest) time.Time {
	if req.ResolvedAt != nil {
		return *req.ResolvedAt
	}
	return req.CreatedAt
}

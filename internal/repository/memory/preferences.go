package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/roomswap-service/internal/domain"
	"github.com/spec-kit/roomswap-service/internal/repository"
)

type preferenceRepository struct {
	s *Store
}

func (r *preferenceRepository) Create(ctx context.Context, pref *domain.Preference) error {
	return r.s.do(ctx, func(st *state) error {
		if findTuple(st, pref.OwnerID, pref.Available, pref.Needed) != nil {
			return repository.ErrDuplicate
		}
		now := r.s.now()
		pref.ID = uuid.NewString()
		pref.CreatedAt = now
		pref.UpdatedAt = now
		st.prefs[pref.ID] = *pref
		st.stamp(pref.ID)
		return nil
	})
}

func (r *preferenceRepository) Update(ctx context.Context, pref *domain.Preference) error {
	return r.s.do(ctx, func(st *state) error {
		current, ok := st.prefs[pref.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if other := findTuple(st, current.OwnerID, pref.Available, pref.Needed); other != nil && other.ID != pref.ID {
			return repository.ErrDuplicate
		}
		current.Available = pref.Available
		current.Needed = pref.Needed
		current.Synthetic = pref.Synthetic
		current.UpdatedAt = r.s.now()
		st.prefs[pref.ID] = current
		pref.UpdatedAt = current.UpdatedAt
		return nil
	})
}

func (r *preferenceRepository) GetByID(ctx context.Context, id string) (*domain.Preference, error) {
	var out *domain.Preference
	err := r.s.do(ctx, func(st *state) error {
		pref, ok := st.prefs[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &pref
		return nil
	})
	return out, err
}

func (r *preferenceRepository) GetByTuple(ctx context.Context, ownerID, available, needed string) (*domain.Preference, error) {
	var out *domain.Preference
	err := r.s.do(ctx, func(st *state) error {
		out = findTuple(st, ownerID, available, needed)
		if out == nil {
			return repository.ErrNotFound
		}
		return nil
	})
	return out, err
}

func (r *preferenceRepository) LatestForOwner(ctx context.Context, ownerID string) (*domain.Preference, error) {
	var out *domain.Preference
	err := r.s.do(ctx, func(st *state) error {
		for _, pref := range st.prefs {
			if pref.OwnerID != ownerID {
				continue
			}
			if out == nil || betterLatest(st, pref, *out) {
				p := pref
				out = &p
			}
		}
		if out == nil {
			return repository.ErrNotFound
		}
		return nil
	})
	return out, err
}

func (r *preferenceRepository) List(ctx context.Context, filter repository.PreferenceFilter) ([]domain.Preference, error) {
	var out []domain.Preference
	err := r.s.do(ctx, func(st *state) error {
		var ids []string
		for id, pref := range st.prefs {
			if filter.OwnerID != "" && pref.OwnerID != filter.OwnerID {
				continue
			}
			if filter.ExcludeOwnerID != "" && pref.OwnerID == filter.ExcludeOwnerID {
				continue
			}
			if filter.ExcludeSynthetic && pref.Synthetic {
				continue
			}
			if filter.AvailableContains != "" && !repository.ContainsFold(pref.Available, filter.AvailableContains) {
				continue
			}
			ids = append(ids, id)
		}
		newestFirst(ids, func(id string) time.Time { return st.prefs[id].CreatedAt }, st.seq)
		ids = capped(ids, filter.Limit, filter.Unbounded)
		for _, id := range ids {
			out = append(out, st.prefs[id])
		}
		return nil
	})
	return out, err
}

func (r *preferenceRepository) Delete(ctx context.Context, id string) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.prefs[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.prefs, id)
		delete(st.seq, id)
		detachRequests(st, id)
		return nil
	})
}

func (r *preferenceRepository) DeleteStaleSynthetic(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := r.s.do(ctx, func(st *state) error {
		for id, pref := range st.prefs {
			if !pref.Synthetic || !pref.CreatedAt.Before(cutoff) || hasPending(st, id) {
				continue
			}
			delete(st.prefs, id)
			delete(st.seq, id)
			detachRequests(st, id)
			removed++
		}
		return nil
	})
	return removed, err
}

func findTuple(st *state, ownerID, available, needed string) *domain.Preference {
	for _, pref := range st.prefs {
		if pref.OwnerID == ownerID && pref.Available == available && pref.Needed == needed {
			p := pref
			return &p
		}
	}
	return nil
}

// betterLatest prefers owner-authored rows, then the most recently created.
func betterLatest(st *state, candidate, current domain.Preference) bool {
	if candidate.Synthetic != current.Synthetic {
		return !candidate.Synthetic
	}
	if !candidate.CreatedAt.Equal(current.CreatedAt) {
		return candidate.CreatedAt.After(current.CreatedAt)
	}
	return st.seq[candidate.ID] > st.seq[current.ID]
}

func hasPending(st *state, preferenceID string) bool {
	for _, req := range st.requests {
		if req.PreferenceID == preferenceID && req.Status == domain.SwapStatusPending {
			return true
		}
	}
	return false
}

// detachRequests mirrors ON DELETE SET NULL on swap_requests.preference_id.
func detachRequests(st *state, preferenceID string) {
	for id, req := range st.requests {
		if req.PreferenceID == preferenceID {
			req.PreferenceID = ""
			st.requests[id] = req
		}
	}
}

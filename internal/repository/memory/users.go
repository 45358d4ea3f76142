package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/spec-kit/roomswap-service/internal/domain"
	"github.com/spec-kit/roomswap-service/internal/repository"
)

type userRepository struct {
	s *Store
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	return r.s.do(ctx, func(st *state) error {
		for _, existing := range st.users {
			if existing.CollegeID == user.CollegeID || existing.Name == user.Name ||
				existing.Email == user.Email || existing.Phone == user.Phone {
				return repository.ErrDuplicate
			}
		}
		now := r.s.now()
		user.ID = uuid.NewString()
		user.CreatedAt = now
		user.UpdatedAt = now
		st.users[user.ID] = *user
		st.stamp(user.ID)
		return nil
	})
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.s.do(ctx, func(st *state) error {
		user, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &user
		return nil
	})
	return out, err
}

func (r *userRepository) GetByName(ctx context.Context, name string) (*domain.User, error) {
	var out *domain.User
	err := r.s.do(ctx, func(st *state) error {
		for _, user := range st.users {
			if user.Name == name {
				u := user
				out = &u
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *userRepository) LockForUpdate(ctx context.Context, ids []string) ([]domain.User, error) {
	ordered := append([]string(nil), ids...)
	sort.Strings(ordered)

	var out []domain.User
	err := r.s.do(ctx, func(st *state) error {
		seen := make(map[string]struct{}, len(ordered))
		for _, id := range ordered {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			user, ok := st.users[id]
			if !ok {
				return repository.ErrNotFound
			}
			out = append(out, user)
		}
		return nil
	})
	return out, err
}

func (r *userRepository) UpdateRoom(ctx context.Context, id, room string) error {
	return r.s.do(ctx, func(st *state) error {
		user, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		user.RoomNumber = room
		user.UpdatedAt = r.s.now()
		st.users[id] = user
		return nil
	})
}

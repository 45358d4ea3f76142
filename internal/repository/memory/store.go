// Package memory provides a process-local transactional Store. Transactions are
// serialized and run against a copy of the state that replaces the committed state only
// when the callback succeeds, so a failed transaction leaves nothing behind.
package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spec-kit/roomswap-service/internal/domain"
	"github.com/spec-kit/roomswap-service/internal/repository"
)

type state struct {
	users    map[string]domain.User
	prefs    map[string]domain.Preference
	requests map[string]domain.SwapRequest
	seq      map[string]int64
	next     int64
}

func newState() *state {
	return &state{
		users:    make(map[string]domain.User),
		prefs:    make(map[string]domain.Preference),
		requests: make(map[string]domain.SwapRequest),
		seq:      make(map[string]int64),
	}
}

func (s *state) clone() *state {
	out := &state{
		users:    make(map[string]domain.User, len(s.users)),
		prefs:    make(map[string]domain.Preference, len(s.prefs)),
		requests: make(map[string]domain.SwapRequest, len(s.requests)),
		seq:      make(map[string]int64, len(s.seq)),
		next:     s.next,
	}
	for k, v := range s.users {
		out.users[k] = v
	}
	for k, v := range s.prefs {
		out.prefs[k] = v
	}
	for k, v := range s.requests {
		out.requests[k] = v
	}
	for k, v := range s.seq {
		out.seq[k] = v
	}
	return out
}

func (s *state) stamp(id string) {
	s.next++
	s.seq[id] = s.next
}

// Store is an in-memory repository.Store.
type Store struct {
	sem  chan struct{}
	st   *state
	inTx bool
	now  func() time.Time
}

var _ repository.Store = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		sem: make(chan struct{}, 1),
		st:  newState(),
		now: time.Now,
	}
}

// SetClock overrides the time source; tests use it to age records.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) Users() repository.UserRepository {
	return &userRepository{s: s}
}

func (s *Store) Preferences() repository.PreferenceRepository {
	return &preferenceRepository{s: s}
}

func (s *Store) SwapRequests() repository.SwapRequestRepository {
	return &swapRequestRepository{s: s}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	tx := &Store{st: s.st.clone(), inTx: true, now: s.now}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrContention, err)
	}
	s.st = tx.st
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// do runs fn against the state, serialized with transactions when outside one.
func (s *Store) do(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrContention, err)
	}
	if s.inTx {
		return fn(s.st)
	}
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()
	return fn(s.st)
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", repository.ErrContention, ctx.Err())
	}
}

func (s *Store) release() {
	<-s.sem
}

// newestFirst orders ids by the given time descending, then by insertion order descending.
func newestFirst(ids []string, at func(id string) time.Time, seq map[string]int64) {
	sort.Slice(ids, func(i, j int) bool {
		ti, tj := at(ids[i]), at(ids[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return seq[ids[i]] > seq[ids[j]]
	})
}

func capped[T any](items []T, limit int, unbounded bool) []T {
	if n := repository.EffectiveLimit(limit, unbounded); n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/roomswap-service/internal/domain"
)

// SwapRequestRepository encapsulates ledger persistence.
type SwapRequestRepository interface {
	// CreatePending inserts a pending request unless one already exists for
	// (preference, requester); in that case it returns ErrDuplicate.
	CreatePending(ctx context.Context, req *domain.SwapRequest) error
	GetByID(ctx context.Context, id string) (*domain.SwapRequest, error)
	// GetForUpdate row-locks the request for the rest of the transaction.
	GetForUpdate(ctx context.Context, id string) (*domain.SwapRequest, error)
	// Transition moves a request from one status to another; ErrStaleState if it is not in from.
	Transition(ctx context.Context, id string, from, to domain.SwapStatus) error
	// DeletePending removes a pending request; ErrStaleState if it is no longer pending.
	DeletePending(ctx context.Context, id string) error
	// RejectPendingInvolving rejects every pending request with any of userIDs as owner or
	// requester, except exceptID. Returns the rejected ids in ascending order.
	RejectPendingInvolving(ctx context.Context, userIDs []string, exceptID string) ([]string, error)
	// DetachPreference rejects pending requests against the preference and clears the
	// preference reference on every request. Returns the rejected ids.
	DetachPreference(ctx context.Context, preferenceID string) ([]string, error)
	List(ctx context.Context, filter SwapRequestFilter) ([]domain.SwapRequest, error)
}

type swapRequestRepository struct {
	q querier
}

const swapRequestColumns = `id, COALESCE(preference_id::text, ''), owner_id, requester_id, status, from_room, to_room, created_at, resolved_at`

func (r *swapRequestRepository) CreatePending(ctx context.Context, req *domain.SwapRequest) error {
	const query = `
        INSERT INTO swap_requests (preference_id, owner_id, requester_id, status, from_room, to_room)
        VALUES ($1, $2, $3, 'pending', $4, $5)
        ON CONFLICT (preference_id, requester_id) WHERE status = 'pending' DO NOTHING
        RETURNING id, created_at`
	err := r.q.QueryRow(ctx, query,
		req.PreferenceID,
		req.OwnerID,
		req.RequesterID,
		req.FromRoom,
		req.ToRoom,
	).Scan(&req.ID, &req.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicate
	}
	if err != nil {
		return mapError(err)
	}
	req.Status = domain.SwapStatusPending
	return nil
}

func (r *swapRequestRepository) GetByID(ctx context.Context, id string) (*domain.SwapRequest, error) {
	const query = `SELECT ` + swapRequestColumns + ` FROM swap_requests WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *swapRequestRepository) GetForUpdate(ctx context.Context, id string) (*domain.SwapRequest, error) {
	const query = `SELECT ` + swapRequestColumns + ` FROM swap_requests WHERE id=$1 FOR UPDATE`
	return r.fetchSingle(ctx, query, id)
}

func (r *swapRequestRepository) Transition(ctx context.Context, id string, from, to domain.SwapStatus) error {
	const query = `
        UPDATE swap_requests SET status=$1, resolved_at=NOW()
        WHERE id=$2 AND status=$3`
	cmd, err := r.q.Exec(ctx, query, to, id, from)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrStaleState
	}
	return nil
}

func (r *swapRequestRepository) DeletePending(ctx context.Context, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM swap_requests WHERE id=$1 AND status='pending'`, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrStaleState
	}
	return nil
}

func (r *swapRequestRepository) RejectPendingInvolving(ctx context.Context, userIDs []string, exceptID string) ([]string, error) {
	// Locking in id order keeps concurrent cascades from deadlocking on shared rows.
	const lockQuery = `
        SELECT id FROM swap_requests
        WHERE status = 'pending' AND id::text <> $2
          AND (owner_id = ANY($1::uuid[]) OR requester_id = ANY($1::uuid[]))
        ORDER BY id
        FOR UPDATE`
	ids, err := r.collectIDs(ctx, lockQuery, userIDs, exceptID)
	if err != nil || len(ids) == 0 {
		return ids, err
	}
	return ids, r.rejectIDs(ctx, ids)
}

func (r *swapRequestRepository) DetachPreference(ctx context.Context, preferenceID string) ([]string, error) {
	const lockQuery = `
        SELECT id FROM swap_requests
        WHERE preference_id = $1 AND status = 'pending'
        ORDER BY id
        FOR UPDATE`
	ids, err := r.collectIDs(ctx, lockQuery, preferenceID)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		if err := r.rejectIDs(ctx, ids); err != nil {
			return nil, err
		}
	}
	if _, err := r.q.Exec(ctx, `UPDATE swap_requests SET preference_id=NULL WHERE preference_id=$1`, preferenceID); err != nil {
		return nil, mapError(err)
	}
	return ids, nil
}

func (r *swapRequestRepository) List(ctx context.Context, filter SwapRequestFilter) ([]domain.SwapRequest, error) {
	var b clauseBuilder
	if filter.OwnerID != "" {
		b.add("owner_id=$%d", filter.OwnerID)
	}
	if filter.RequesterID != "" {
		b.add("requester_id=$%d", filter.RequesterID)
	}
	if filter.ParticipantID != "" {
		b.add("$%d IN (owner_id, requester_id)", filter.ParticipantID)
	}
	if filter.PreferenceID != "" {
		b.add("preference_id=$%d", filter.PreferenceID)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			b.args = append(b.args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(b.args))
		}
		b.clauses = append(b.clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	query := `SELECT ` + swapRequestColumns + ` FROM swap_requests WHERE ` + b.where() +
		` ORDER BY COALESCE(resolved_at, created_at) DESC, id DESC` + limitClause(filter.Limit, filter.Unbounded)

	rows, err := r.q.Query(ctx, query, b.args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []domain.SwapRequest
	for rows.Next() {
		req, err := scanSwapRequest(rows)
		if err != nil {
			return nil, mapError(err)
		}
		result = append(result, *req)
	}
	return result, mapError(rows.Err())
}

func (r *swapRequestRepository) collectIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapError(err)
		}
		ids = append(ids, id)
	}
	return ids, mapError(rows.Err())
}

func (r *swapRequestRepository) rejectIDs(ctx context.Context, ids []string) error {
	const query = `
        UPDATE swap_requests SET status='rejected', resolved_at=NOW()
        WHERE id = ANY($1::uuid[]) AND status='pending'`
	_, err := r.q.Exec(ctx, query, ids)
	return mapError(err)
}

func (r *swapRequestRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.SwapRequest, error) {
	req, err := scanSwapRequest(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapError(err)
	}
	return req, nil
}

func scanSwapRequest(row pgx.Row) (*domain.SwapRequest, error) {
	var req domain.SwapRequest
	if err := row.Scan(
		&req.ID,
		&req.PreferenceID,
		&req.OwnerID,
		&req.RequesterID,
		&req.Status,
		&req.FromRoom,
		&req.ToRoom,
		&req.CreatedAt,
		&req.ResolvedAt,
	); err != nil {
		return nil, err
	}
	return &req, nil
}

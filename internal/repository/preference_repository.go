package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/roomswap-service/internal/domain"
)

// PreferenceRepository encapsulates preference persistence.
type PreferenceRepository interface {
	// Create inserts the preference; ErrDuplicate if (owner, available, needed) exists.
	Create(ctx context.Context, pref *domain.Preference) error
	Update(ctx context.Context, pref *domain.Preference) error
	GetByID(ctx context.Context, id string) (*domain.Preference, error)
	GetByTuple(ctx context.Context, ownerID, available, needed string) (*domain.Preference, error)
	// LatestForOwner prefers owner-authored rows over synthetic ones.
	LatestForOwner(ctx context.Context, ownerID string) (*domain.Preference, error)
	List(ctx context.Context, filter PreferenceFilter) ([]domain.Preference, error)
	Delete(ctx context.Context, id string) error
	// DeleteStaleSynthetic removes synthetic rows created before cutoff with no pending request.
	DeleteStaleSynthetic(ctx context.Context, cutoff time.Time) (int64, error)
}

type preferenceRepository struct {
	q querier
}

const preferenceColumns = `id, owner_id, available, needed, synthetic, created_at, updated_at`

func (r *preferenceRepository) Create(ctx context.Context, pref *domain.Preference) error {
	const query = `
        INSERT INTO preferences (owner_id, available, needed, synthetic)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`
	err := r.q.QueryRow(ctx, query,
		pref.OwnerID,
		pref.Available,
		pref.Needed,
		pref.Synthetic,
	).Scan(&pref.ID, &pref.CreatedAt, &pref.UpdatedAt)
	return mapError(err)
}

func (r *preferenceRepository) Update(ctx context.Context, pref *domain.Preference) error {
	const query = `
        UPDATE preferences SET available=$1, needed=$2, synthetic=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at`
	err := r.q.QueryRow(ctx, query,
		pref.Available,
		pref.Needed,
		pref.Synthetic,
		pref.ID,
	).Scan(&pref.UpdatedAt)
	return mapError(err)
}

func (r *preferenceRepository) GetByID(ctx context.Context, id string) (*domain.Preference, error) {
	const query = `SELECT ` + preferenceColumns + ` FROM preferences WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *preferenceRepository) GetByTuple(ctx context.Context, ownerID, available, needed string) (*domain.Preference, error) {
	const query = `SELECT ` + preferenceColumns + ` FROM preferences WHERE owner_id=$1 AND available=$2 AND needed=$3`
	return r.fetchSingle(ctx, query, ownerID, available, needed)
}

func (r *preferenceRepository) LatestForOwner(ctx context.Context, ownerID string) (*domain.Preference, error) {
	const query = `
        SELECT ` + preferenceColumns + ` FROM preferences
        WHERE owner_id=$1
        ORDER BY synthetic ASC, created_at DESC
        LIMIT 1`
	return r.fetchSingle(ctx, query, ownerID)
}

func (r *preferenceRepository) List(ctx context.Context, filter PreferenceFilter) ([]domain.Preference, error) {
	var b clauseBuilder
	if filter.OwnerID != "" {
		b.add("owner_id=$%d", filter.OwnerID)
	}
	if filter.ExcludeOwnerID != "" {
		b.add("owner_id<>$%d", filter.ExcludeOwnerID)
	}
	if filter.ExcludeSynthetic {
		b.clauses = append(b.clauses, "NOT synthetic")
	}
	if filter.AvailableContains != "" {
		b.add(`available ILIKE $%d ESCAPE '\'`, ContainsPattern(filter.AvailableContains))
	}

	query := `SELECT ` + preferenceColumns + ` FROM preferences WHERE ` + b.where() +
		` ORDER BY created_at DESC, id DESC` + limitClause(filter.Limit, filter.Unbounded)

	rows, err := r.q.Query(ctx, query, b.args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []domain.Preference
	for rows.Next() {
		pref, err := scanPreference(rows)
		if err != nil {
			return nil, mapError(err)
		}
		result = append(result, *pref)
	}
	return result, mapError(rows.Err())
}

func (r *preferenceRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM preferences WHERE id=$1`, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *preferenceRepository) DeleteStaleSynthetic(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `
        DELETE FROM preferences p
        WHERE p.synthetic AND p.created_at < $1
          AND NOT EXISTS (
              SELECT 1 FROM swap_requests r
              WHERE r.preference_id = p.id AND r.status = 'pending'
          )`
	cmd, err := r.q.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, mapError(err)
	}
	return cmd.RowsAffected(), nil
}

func (r *preferenceRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Preference, error) {
	pref, err := scanPreference(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err)
	}
	return pref, nil
}

func scanPreference(row pgx.Row) (*domain.Preference, error) {
	var pref domain.Preference
	if err := row.Scan(
		&pref.ID,
		&pref.OwnerID,
		&pref.Available,
		&pref.Needed,
		&pref.Synthetic,
		&pref.CreatedAt,
		&pref.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &pref, nil
}

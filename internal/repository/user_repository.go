package repository

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/roomswap-service/internal/domain"
)

// UserRepository defines persistence access for residents.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByName(ctx context.Context, name string) (*domain.User, error)
	// LockForUpdate row-locks the given users in ascending id order and returns them in that order.
	LockForUpdate(ctx context.Context, ids []string) ([]domain.User, error)
	UpdateRoom(ctx context.Context, id, room string) error
}

type userRepository struct {
	q querier
}

const userColumns = `id, college_id, name, email, phone, password_hash, room_number, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (college_id, name, email, phone, password_hash, room_number)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`

	err := r.q.QueryRow(ctx, query,
		user.CollegeID,
		user.Name,
		user.Email,
		user.Phone,
		user.PasswordHash,
		user.RoomNumber,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	return mapError(err)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *userRepository) GetByName(ctx context.Context, name string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE name=$1`
	return r.fetchSingle(ctx, query, name)
}

func (r *userRepository) LockForUpdate(ctx context.Context, ids []string) ([]domain.User, error) {
	ordered := append([]string(nil), ids...)
	sort.Strings(ordered)

	const query = `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1::uuid[]) ORDER BY id FOR UPDATE`
	rows, err := r.q.Query(ctx, query, ordered)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, mapError(err)
		}
		result = append(result, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	if len(result) != len(uniqueStrings(ordered)) {
		return nil, ErrNotFound
	}
	return result, nil
}

func (r *userRepository) UpdateRoom(ctx context.Context, id, room string) error {
	const query = `UPDATE users SET room_number=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.q.Exec(ctx, query, room, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	user, err := scanUser(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapError(err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.CollegeID,
		&user.Name,
		&user.Email,
		&user.Phone,
		&user.PasswordHash,
		&user.RoomNumber,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

package db

import (
	"context"
	"fmt"
	"time"

	"github.com/12darko/TeacherConnect-sub000/internal/model"
	"github.com/12darko/TeacherConnect-sub000/internal/store"
)

const userColumns = `id, email, password_hash, first_name, last_name, role, suspended, created_at, updated_at`

func scanUser(row scanner) (model.User, error) {
	var user model.User
	var role string
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&role,
		&user.Suspended,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	user.Role = model.Role(role)
	return user, err
}

func (s *Store) CreateUser(ctx context.Context, user model.User) (model.User, error) {
	user.ID = newID(user.ID)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.UpdatedAt = user.CreatedAt
	_, err := s.q.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName, string(user.Role), user.Suspended, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return model.User{}, fmt.Errorf("insert user: %w", mapWriteError(err))
	}
	return user, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (model.User, bool, error) {
	return getOne(ctx, s.q, scanUser, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, bool, error) {
	return getOne(ctx, s.q, scanUser, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (s *Store) ListUsers(ctx context.Context, filter store.UserFilter) ([]model.User, error) {
	return listAll(ctx, s.q, scanUser, `
		SELECT `+userColumns+`
		FROM users
		WHERE ($1 = '' OR role = $1)
		ORDER BY created_at, id
	`, string(filter.Role))
}

func (s *Store) UpdateUserRole(ctx context.Context, id string, role model.Role) (model.User, bool, error) {
	return getOne(ctx, s.q, scanUser, `
		UPDATE users SET role = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+userColumns, id, string(role), time.Now().UTC())
}

func (s *Store) SetUserSuspended(ctx context.Context, id string, suspended bool) (model.User, bool, error) {
	return getOne(ctx, s.q, scanUser, `
		UPDATE users SET suspended = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+userColumns, id, suspended, time.Now().UTC())
}

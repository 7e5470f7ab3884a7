package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"earntracker/internal/core"
)

var userColumns = []string{"id", "username", "password_hash", "created_at", "updated_at"}

func (r *SQLiteRepository) CreateUser(ctx context.Context, username, passwordHash string) (core.User, error) {
	id, err := insertID(ctx, r.db, sq.Insert("users").
		Columns("username", "password_hash").
		Values(username, passwordHash))
	if err != nil {
		return core.User{}, fmt.Errorf("create user %q: %w", username, err)
	}
	return r.GetUser(ctx, id)
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	u, err := getOne[core.User](ctx, r.db, sq.Select(userColumns...).From("users").Where(sq.Eq{"id": id}))
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	u, err := getOne[core.User](ctx, r.db, sq.Select(userColumns...).From("users").Where(sq.Eq{"username": username}))
	if err != nil {
		return core.User{}, fmt.Errorf("get user %q: %w", username, err)
	}
	return u, nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	users, err := selectAll[core.User](ctx, r.db, sq.Select(userColumns...).From("users").OrderBy("username"))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// DeleteUser removes the user and, by cascade, everything the user owns.
func (r *SQLiteRepository) DeleteUser(ctx context.Context, id int64) error {
	if err := execOne(ctx, r.db, sq.Delete("users").Where(sq.Eq{"id": id})); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	return nil
}

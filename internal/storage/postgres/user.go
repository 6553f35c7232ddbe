package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickshelf/pos/internal/domain/user"
)

const (
	getUserByUsernameSQL = `SELECT user_id, username, password_hash, role, is_active
		FROM users WHERE username = $1`

	createUserSQL = `INSERT INTO users (username, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4) RETURNING user_id`

	listUsersSQL = `SELECT user_id, username, password_hash, role, is_active
		FROM users ORDER BY username`

	setUserActiveSQL = `UPDATE users SET is_active = $2 WHERE user_id = $1`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	rows, err := r.pool.Query(ctx, getUserByUsernameSQL, username)
	if err != nil {
		return nil, fmt.Errorf("getting user %q: %w", username, err)
	}
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user %q: %w", username, err)
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u user.User) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, createUserSQL, u.Username, u.PasswordHash, string(u.Role), u.Active).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, user.ErrUsernameTaken
		}
		return 0, fmt.Errorf("creating user %q: %w", u.Username, err)
	}
	return id, nil
}

func (r *UserRepository) List(ctx context.Context) ([]user.User, error) {
	rows, err := r.pool.Query(ctx, listUsersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return pgx.CollectRows(rows, scanUser)
}

func (r *UserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, setUserActiveSQL, id, active)
	if err != nil {
		return fmt.Errorf("setting active flag of user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var (
		u    user.User
		role string
	)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &u.Active)
	u.Role = user.Role(role)
	return u, err
}

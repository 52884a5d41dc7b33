package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresUserRepository stores accounts in PostgreSQL.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository creates a PostgreSQL-backed credential store.
func NewPostgresUserRepository(pool *pgxpool.Pool) (*PostgresUserRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresUserRepository{pool: pool}, nil
}

const pgUserColumns = `id, username, password_hash, role, status, personal_data, created_at`

func (r *PostgresUserRepository) List(ctx context.Context) ([]User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `SELECT `+pgUserColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanPostgresUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (User, error) {
	return r.getOne(ctx, `SELECT `+pgUserColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (User, error) {
	return r.getOne(ctx, `SELECT `+pgUserColumns+` FROM users WHERE username = $1`, username)
}

func (r *PostgresUserRepository) getOne(ctx context.Context, query, arg string) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	u, err := scanPostgresUser(r.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return u, err
}

func (r *PostgresUserRepository) Create(ctx context.Context, u User) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	personal, err := json.Marshal(u.PersonalData)
	if err != nil {
		return fmt.Errorf("marshal personal data: %w", err)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}

	cmd, err := r.pool.Exec(ctx,
		`INSERT INTO users (`+pgUserColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)
		 ON CONFLICT DO NOTHING`,
		u.ID, u.Credentials.Username, u.Credentials.PasswordHash,
		string(u.Role), string(u.Status), string(personal), u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrUsernameTaken
	}
	return nil
}

func (r *PostgresUserRepository) SetStatus(ctx context.Context, id string, status Status) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := r.pool.Exec(ctx, `UPDATE users SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update user status: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresUserRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func scanPostgresUser(row pgx.Row) (User, error) {
	var (
		u            User
		role, status string
		personal     []byte
	)
	err := row.Scan(&u.ID, &u.Credentials.Username, &u.Credentials.PasswordHash, &role, &status, &personal, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, err
		}
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	u.Role = Role(role)
	u.Status = Status(status)
	if err := json.Unmarshal(personal, &u.PersonalData); err != nil {
		return User{}, fmt.Errorf("decode personal data for %s: %w", u.ID, err)
	}
	return u, nil
}

package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore keeps one progress row per user in PostgreSQL. Updates lock
// the user's row so concurrent writers serialise instead of clobbering.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed progress store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) List(ctx context.Context) (map[string]UserProgress, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT user_id, document FROM progress ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	out := map[string]UserProgress{}
	for rows.Next() {
		var id string
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		u, err := decodeDocument(id, doc)
		if err != nil {
			return nil, err
		}
		out[id] = u
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, userID string) (UserProgress, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT document FROM progress WHERE user_id = $1`, userID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return NewUserProgress(), false, nil
	}
	if err != nil {
		return UserProgress{}, false, fmt.Errorf("get progress: %w", err)
	}
	u, err := decodeDocument(userID, doc)
	if err != nil {
		return UserProgress{}, false, err
	}
	return u, true, nil
}

func (s *PostgresStore) Update(ctx context.Context, userID string, fn func(*UserProgress) error) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin progress update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Materialise the row first so FOR UPDATE always has something to lock.
	if _, err := tx.Exec(ctx,
		`INSERT INTO progress (user_id, document) VALUES ($1, '{"modularProgress":{}}'::jsonb)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID,
	); err != nil {
		return fmt.Errorf("reserve progress row: %w", err)
	}

	var doc []byte
	if err := tx.QueryRow(ctx,
		`SELECT document FROM progress WHERE user_id = $1 FOR UPDATE`,
		userID,
	).Scan(&doc); err != nil {
		return fmt.Errorf("lock progress row: %w", err)
	}

	u, err := decodeDocument(userID, doc)
	if err != nil {
		return err
	}
	if err := fn(&u); err != nil {
		return err
	}

	if u.Empty() {
		if _, err := tx.Exec(ctx, `DELETE FROM progress WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("delete progress: %w", err)
		}
	} else {
		data, err := encodeDocument(u)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE progress SET document = $2::jsonb, updated_at = NOW() WHERE user_id = $1`,
			userID, string(data),
		); err != nil {
			return fmt.Errorf("write progress: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit progress update: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx, `DELETE FROM progress WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx, `DELETE FROM progress`); err != nil {
		return fmt.Errorf("clear progress: %w", err)
	}
	return nil
}

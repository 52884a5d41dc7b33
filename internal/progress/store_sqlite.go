package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/p-n-ai/diplomado/internal/platform/sqlite"
)

// SQLiteStore keeps one progress row per user in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store over a database opened with sqlite.Open.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) List(ctx context.Context) (map[string]UserProgress, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, document FROM progress ORDER BY user_id`)
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

func (s *SQLiteStore) Get(ctx context.Context, userID string) (UserProgress, bool, error) {
	return getSQLite(ctx, s.db, userID)
}

func (s *SQLiteStore) Update(ctx context.Context, userID string, fn func(*UserProgress) error) error {
	return sqlite.WithinTx(ctx, s.db, func(ctx context.Context, tx sqlite.DBTX) error {
		u, _, err := getSQLite(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := fn(&u); err != nil {
			return err
		}

		if u.Empty() {
			if _, err := tx.ExecContext(ctx, `DELETE FROM progress WHERE user_id = ?`, userID); err != nil {
				return fmt.Errorf("delete progress: %w", err)
			}
			return nil
		}

		doc, err := encodeDocument(u)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO progress (user_id, document, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(user_id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
			userID, string(doc), time.Now().UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("upsert progress: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) Delete(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM progress WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM progress`); err != nil {
		return fmt.Errorf("clear progress: %w", err)
	}
	return nil
}

func getSQLite(ctx context.Context, q sqlite.DBTX, userID string) (UserProgress, bool, error) {
	var doc []byte
	err := q.QueryRowContext(ctx, `SELECT document FROM progress WHERE user_id = ?`, userID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
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

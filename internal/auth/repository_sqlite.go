package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/p-n-ai/diplomado/internal/platform/sqlite"
)

// SQLiteUserRepository stores accounts in the embedded SQLite database.
type SQLiteUserRepository struct {
	db *sql.DB
}

// NewSQLiteUserRepository creates a SQLite-backed credential store.
func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

// sqliteTimeLayout has a fixed width so stored timestamps sort as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const sqliteUserColumns = `id, username, password_hash, role, status, personal_data, created_at`

func (r *SQLiteUserRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sqliteUserColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanSQLiteUser(rows)
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

func (r *SQLiteUserRepository) GetByID(ctx context.Context, id string) (User, error) {
	return r.getOne(ctx, `SELECT `+sqliteUserColumns+` FROM users WHERE id = ?`, id)
}

func (r *SQLiteUserRepository) GetByUsername(ctx context.Context, username string) (User, error) {
	return r.getOne(ctx, `SELECT `+sqliteUserColumns+` FROM users WHERE username = ?`, username)
}

func (r *SQLiteUserRepository) getOne(ctx context.Context, query string, arg string) (User, error) {
	u, err := scanSQLiteUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return u, err
}

func (r *SQLiteUserRepository) Create(ctx context.Context, u User) error {
	personal, err := json.Marshal(u.PersonalData)
	if err != nil {
		return fmt.Errorf("marshal personal data: %w", err)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}

	return sqlite.WithinTx(ctx, r.db, func(ctx context.Context, tx sqlite.DBTX) error {
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM users WHERE username = ? OR id = ?`,
			u.Credentials.Username, u.ID,
		).Scan(&n); err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if n > 0 {
			return ErrUsernameTaken
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (`+sqliteUserColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			u.ID, u.Credentials.Username, u.Credentials.PasswordHash,
			string(u.Role), string(u.Status), string(personal),
			u.CreatedAt.UTC().Format(sqliteTimeLayout),
		)
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		return nil
	})
}

func (r *SQLiteUserRepository) SetStatus(ctx context.Context, id string, status Status) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update user status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user status: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *SQLiteUserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteUser(row rowScanner) (User, error) {
	var (
		u                     User
		role, status, created string
		personal              string
	)
	err := row.Scan(&u.ID, &u.Credentials.Username, &u.Credentials.PasswordHash, &role, &status, &personal, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, err
		}
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	u.Role = Role(role)
	u.Status = Status(status)
	if err := json.Unmarshal([]byte(personal), &u.PersonalData); err != nil {
		return User{}, fmt.Errorf("decode personal data for %s: %w", u.ID, err)
	}
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		u.CreatedAt = t
	}
	return u, nil
}

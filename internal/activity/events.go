// Package activity records portal events (completions, submissions, resets,
// account changes) and fans them out to live subscribers.
package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// Event types.
const (
	ItemCompleted       = "item_completed"
	ItemUncompleted     = "item_uncompleted"
	EvaluationSubmitted = "evaluation_submitted"
	FinalAnalysisSaved  = "final_analysis_saved"
	FinalAnalysisReset  = "final_analysis_reset"
	ProgressReset       = "progress_reset"
	ProgressImported    = "progress_imported"
	UserCreated         = "user_created"
	UserArchived        = "user_archived"
	UserReactivated     = "user_reactivated"
)

// Event is a single portal activity record.
type Event struct {
	UserID    string         `json:"userId"`
	ModuleID  string         `json:"moduleId,omitempty"`
	ItemID    string         `json:"itemId,omitempty"`
	EventType string         `json:"eventType"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (e Event) validate() error {
	if e.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if e.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	return nil
}

// payload merges the module and item ids into the stored data column.
func (e Event) payload() ([]byte, error) {
	data := make(map[string]any, len(e.Data)+2)
	for k, v := range e.Data {
		data[k] = v
	}
	if e.ModuleID != "" {
		data["module_id"] = e.ModuleID
	}
	if e.ItemID != "" {
		data["item_id"] = e.ItemID
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal event data: %w", err)
	}
	return b, nil
}

// EventLogger defines event logging behavior.
type EventLogger interface {
	LogEvent(event Event) error
}

// NopEventLogger ignores all events.
type NopEventLogger struct{}

func (NopEventLogger) LogEvent(Event) error {
	return nil
}

// MemoryEventLogger stores events in memory for tests.
type MemoryEventLogger struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryEventLogger() *MemoryEventLogger {
	return &MemoryEventLogger{events: []Event{}}
}

func (l *MemoryEventLogger) LogEvent(event Event) error {
	if err := event.validate(); err != nil {
		return err
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()
	return nil
}

func (l *MemoryEventLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

// PostgresEventLogger inserts events into the events table.
type PostgresEventLogger struct {
	pool *pgxpool.Pool
}

func NewPostgresEventLogger(pool *pgxpool.Pool) *PostgresEventLogger {
	return &PostgresEventLogger{pool: pool}
}

func (l *PostgresEventLogger) LogEvent(event Event) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("event logger pool is nil")
	}
	if err := event.validate(); err != nil {
		return err
	}
	data, err := event.payload()
	if err != nil {
		return err
	}
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if _, err := l.pool.Exec(ctx,
		`INSERT INTO events (user_id, event_type, data, created_at) VALUES ($1, $2, $3::jsonb, $4)`,
		event.UserID, event.EventType, string(data), createdAt,
	); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	slog.Debug("event logged", "type", event.EventType, "user_id", event.UserID)
	return nil
}

// SQLiteEventLogger inserts events into the embedded database.
type SQLiteEventLogger struct {
	db *sql.DB
}

func NewSQLiteEventLogger(db *sql.DB) *SQLiteEventLogger {
	return &SQLiteEventLogger{db: db}
}

func (l *SQLiteEventLogger) LogEvent(event Event) error {
	if l == nil || l.db == nil {
		return fmt.Errorf("event logger db is nil")
	}
	if err := event.validate(); err != nil {
		return err
	}
	data, err := event.payload()
	if err != nil {
		return err
	}
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if _, err := l.db.ExecContext(ctx,
		`INSERT INTO events (user_id, event_type, data, created_at) VALUES (?, ?, ?, ?)`,
		event.UserID, event.EventType, string(data), createdAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	slog.Debug("event logged", "type", event.EventType, "user_id", event.UserID)
	return nil
}

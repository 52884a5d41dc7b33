package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ErrBudgetExceeded is returned when a user has spent their token budget.
var ErrBudgetExceeded = errors.New("AI token budget exhausted")

// BudgetChecker checks and records per-user token usage.
type BudgetChecker interface {
	// Check returns true if the user has budget remaining.
	Check(ctx context.Context, userID string) (bool, error)
	// Record adds tokens to the user's usage.
	Record(ctx context.Context, userID string, tokens int) error
	// Usage returns the user's usage and limit. A zero limit means unlimited.
	Usage(ctx context.Context, userID string) (used int64, limit int64, err error)
}

// UnlimitedBudget never refuses and records nothing.
type UnlimitedBudget struct{}

func (UnlimitedBudget) Check(context.Context, string) (bool, error) { return true, nil }
func (UnlimitedBudget) Record(context.Context, string, int) error { return nil }
func (UnlimitedBudget) Usage(context.Context, string) (int64, int64, error) { return 0, 0, nil }

// InMemoryBudget tracks usage in process memory with one limit for every user.
type InMemoryBudget struct {
	mu    sync.RWMutex
	limit int64
	usage map[string]int64
}

// NewInMemoryBudget creates a tracker allowing limit tokens per user; 0 means unlimited.
func NewInMemoryBudget(limit int64) *InMemoryBudget {
	return &InMemoryBudget{
		limit: limit,
		usage: make(map[string]int64),
	}
}

func (b *InMemoryBudget) Check(_ context.Context, userID string) (bool, error) {
	if b.limit == 0 {
		return true, nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.usage[userID] < b.limit, nil
}

func (b *InMemoryBudget) Record(_ context.Context, userID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.usage[userID] += int64(tokens)
	return nil
}

func (b *InMemoryBudget) Usage(_ context.Context, userID string) (int64, int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.usage[userID], b.limit, nil
}

// RedisBudget keeps usage counters in Redis so every server instance
// sees the same totals.
type RedisBudget struct {
	client *redis.Client
	limit  int64
	prefix string
}

// NewRedisBudget creates a Redis-backed tracker allowing limit tokens per user.
func NewRedisBudget(client *redis.Client, limit int64) *RedisBudget {
	return &RedisBudget{client: client, limit: limit, prefix: "diplomado:ai_tokens:"}
}

func (b *RedisBudget) Check(ctx context.Context, userID string) (bool, error) {
	if b.limit == 0 {
		return true, nil
	}
	used, _, err := b.Usage(ctx, userID)
	if err != nil {
		return false, err
	}
	return used < b.limit, nil
}

func (b *RedisBudget) Record(ctx context.Context, userID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}
	if err := b.client.IncrBy(ctx, b.prefix+userID, int64(tokens)).Err(); err != nil {
		return fmt.Errorf("record token usage: %w", err)
	}
	return nil
}

func (b *RedisBudget) Usage(ctx context.Context, userID string) (int64, int64, error) {
	used, err := b.client.Get(ctx, b.prefix+userID).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, b.limit, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("read token usage: %w", err)
	}
	return used, b.limit, nil
}

package progress

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
)

var (
	// ErrCorrupt is returned when a stored progress document cannot be decoded.
	ErrCorrupt = errors.New("progress document corrupt")
	// ErrEvaluationItem is returned when an evaluacion* item is completed
	// without a graded submission.
	ErrEvaluationItem = errors.New("evaluation items are completed by submitting the evaluation")
)

// Store persists one progress document per user.
type Store interface {
	// List returns every stored document keyed by user id.
	List(ctx context.Context) (map[string]UserProgress, error)
	// Get returns the document for userID; ok is false when none exists.
	Get(ctx context.Context, userID string) (UserProgress, bool, error)
	// Update applies fn to the user's document inside one transaction.
	// fn receives an empty root when no document exists. If the root is
	// empty afterwards the document is deleted. An error from fn aborts
	// the update and is returned unchanged.
	Update(ctx context.Context, userID string, fn func(*UserProgress) error) error
	// Delete removes the user's document. Deleting an absent document is not an error.
	Delete(ctx context.Context, userID string) error
	// Clear removes every document.
	Clear(ctx context.Context) error
}

// MemoryStore is an in-memory Store. Documents are kept encoded so callers
// never share maps with the store.
type MemoryStore struct {
	docs map[string][]byte
	mu   sync.Mutex
}

// NewMemoryStore creates an empty in-memory progress store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (s *MemoryStore) List(_ context.Context) (map[string]UserProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]UserProgress, len(s.docs))
	for _, id := range slices.Sorted(maps.Keys(s.docs)) {
		u, err := decodeDocument(id, s.docs[id])
		if err != nil {
			return nil, err
		}
		out[id] = u
	}
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, userID string) (UserProgress, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.docs[userID]
	if !ok {
		return NewUserProgress(), false, nil
	}
	u, err := decodeDocument(userID, data)
	if err != nil {
		return UserProgress{}, false, err
	}
	return u, true, nil
}

func (s *MemoryStore) Update(_ context.Context, userID string, fn func(*UserProgress) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := NewUserProgress()
	if data, ok := s.docs[userID]; ok {
		var err error
		if u, err = decodeDocument(userID, data); err != nil {
			return err
		}
	}

	if err := fn(&u); err != nil {
		return err
	}

	if u.Empty() {
		delete(s.docs, userID)
		return nil
	}
	data, err := encodeDocument(u)
	if err != nil {
		return err
	}
	s.docs[userID] = data
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, userID)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.docs)
	return nil
}

// putRaw stores data verbatim; tests use it to plant corrupt documents.
func (s *MemoryStore) putRaw(userID string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[userID] = data
}
